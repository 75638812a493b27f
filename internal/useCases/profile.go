package useCases

import (
	"context"
	"strings"

	"github.com/larriantoniy/tg_webapp_api/internal/broker"
)

// Marker: значок, который дописывается к имени аккаунта
type Marker string

const (
	MarkerDiamond Marker = "💎"
	MarkerCat     Marker = "🐈‍⬛"
	MarkerPixel   Marker = "▪️"
)

// SetMarker добавляет или убирает значок из имени. Повторный вызов ничего не меняет.
func (s *Service) SetMarker(ctx context.Context, req Request, marker Marker, add bool) error {
	job, err := s.job(req)
	if err != nil {
		return err
	}

	return s.runner.Run(ctx, job, func(ctx context.Context, acq *broker.Acquired) error {
		me, err := acq.Session.GetMe(ctx)
		if err != nil {
			return err
		}

		first, last, changed := applyMarker(me.FirstName, me.LastName, marker, add)
		if !changed {
			return nil
		}
		if err := acq.Session.UpdateName(ctx, first, last); err != nil {
			return err
		}

		s.log.Info("profile marker updated", "session", req.Ref.ID, "marker", string(marker), "add", add)
		return nil
	})
}

func applyMarker(first, last string, marker Marker, add bool) (string, string, bool) {
	m := string(marker)
	present := strings.Contains(first, m) || strings.Contains(last, m)

	switch {
	case add && present, !add && !present:
		return first, last, false
	case add && first != "":
		return first + m, last, true
	case add:
		return first, last + m, true
	default:
		return strings.ReplaceAll(first, m, ""), strings.ReplaceAll(last, m, ""), true
	}
}
