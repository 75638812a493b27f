package useCases

import (
	"context"

	"github.com/larriantoniy/tg_webapp_api/internal/broker"
	"github.com/larriantoniy/tg_webapp_api/internal/domain"
)

// CreateLegacy выгружает portable-сессию в legacy-контейнер <dir>/<id>
func (s *Service) CreateLegacy(ctx context.Context, req Request) error {
	job, err := s.job(req)
	if err != nil {
		return err
	}

	return s.runner.Run(ctx, job, func(ctx context.Context, acq *broker.Acquired) error {
		me, err := acq.Session.GetMe(ctx)
		if err != nil {
			return err
		}
		return s.export(ctx, req.Ref, acq, me)
	})
}

// export пишет контейнер только для portable-сессий: legacy-сессия уже лежит в контейнере
func (s *Service) export(ctx context.Context, ref domain.StorageRef, acq *broker.Acquired, me domain.Account) error {
	if ref.Kind != domain.StoragePortable {
		return nil
	}
	if err := s.legacy.Export(ctx, ref.PortablePath(), ref.LegacyPath(), acq.Credentials.Bundle, me); err != nil {
		return err
	}
	s.log.Info("legacy container exported", "session", ref.ID, "path", ref.LegacyPath())
	return nil
}
