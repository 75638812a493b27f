package useCases

import (
	"context"

	"github.com/larriantoniy/tg_webapp_api/internal/broker"
	"github.com/larriantoniy/tg_webapp_api/internal/domain"
)

// WebAppData: ответ getTgWebAppData
type WebAppData struct {
	TgWebAppData string
	AuthURL      string
	// Account заполнен только при isUpload или otherInfo
	Account *domain.Account
	// APIJSON: канонический apiJson, только при isUpload
	APIJSON *string
}

// WebAppData проводит рукопожатие с mini app. При isUpload сессия
// дополнительно выгружается в legacy-контейнер и получает username.
func (s *Service) WebAppData(ctx context.Context, req Request) (*WebAppData, error) {
	descriptor, err := s.registry.Lookup(req.Service)
	if err != nil {
		return nil, err
	}
	job, err := s.job(req)
	if err != nil {
		return nil, err
	}

	out := &WebAppData{}
	err = s.runner.Run(ctx, job, func(ctx context.Context, acq *broker.Acquired) error {
		if req.IsUpload || req.OtherInfo {
			me, err := acq.Session.GetMe(ctx)
			if err != nil {
				return err
			}
			out.Account = &me
		}

		if req.IsUpload {
			if err := s.export(ctx, req.Ref, acq, *out.Account); err != nil {
				return err
			}
			username, err := s.ensureUsername(ctx, acq.Session, *out.Account)
			if err != nil {
				return err
			}
			out.Account.Username = username

			doc := string(acq.Credentials.Document)
			out.APIJSON = &doc
		}

		res, err := s.gateway.Perform(ctx, acq.Session, descriptor, req.Referral, req.Platform)
		if err != nil {
			return err
		}
		out.TgWebAppData = res.Payload
		out.AuthURL = res.RawURL
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("web app data issued", "session", req.Ref.ID, "service", req.Service, "upload", req.IsUpload)
	return out, nil
}
