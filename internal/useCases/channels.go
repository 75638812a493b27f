package useCases

import (
	"context"
	"strings"

	"github.com/larriantoniy/tg_webapp_api/internal/broker"
)

// JoinChannels вступает в каждый канал, мьютит и архивирует его.
// Ошибки по отдельным каналам не прерывают обход и не возвращаются.
func (s *Service) JoinChannels(ctx context.Context, req Request) error {
	job, err := s.job(req)
	if err != nil {
		return err
	}

	return s.runner.Run(ctx, job, func(ctx context.Context, acq *broker.Acquired) error {
		log := s.log.With("session", req.Ref.ID)

		for _, channel := range req.Channels {
			channel = strings.TrimSpace(channel)
			if channel == "" {
				continue
			}

			member, err := acq.Session.IsChannelMember(ctx, channel)
			if err == nil && member {
				log.Debug("already a member", "channel", channel)
				continue
			}

			peer, err := acq.Session.JoinChannel(ctx, channel)
			if err != nil {
				log.Debug("join skipped", "channel", channel, "error", err)
				continue
			}
			if err := acq.Session.MuteChat(ctx, peer); err != nil {
				log.Debug("mute skipped", "channel", channel, "error", err)
				continue
			}
			if err := acq.Session.ArchiveChat(ctx, peer); err != nil {
				log.Debug("archive skipped", "channel", channel, "error", err)
				continue
			}
			log.Info("channel joined", "channel", channel)
		}

		// истёкший дедлайн остаётся ошибкой, даже если все каналы пропущены
		return ctx.Err()
	})
}
