package useCases

import (
	"context"
	"net/http"

	"github.com/larriantoniy/tg_webapp_api/internal/broker"
	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/larriantoniy/tg_webapp_api/internal/webview"
)

// StartBot отправляет /start произвольному боту, если диалога ещё не было
func (s *Service) StartBot(ctx context.Context, req Request) error {
	if req.Bot == "" {
		return &domain.UnknownError{Status: http.StatusBadRequest, Detail: "bot is required"}
	}
	job, err := s.job(req)
	if err != nil {
		return err
	}

	return s.runner.Run(ctx, job, func(ctx context.Context, acq *broker.Acquired) error {
		return webview.StartBot(ctx, acq.Session, req.Bot, req.Referral)
	})
}
