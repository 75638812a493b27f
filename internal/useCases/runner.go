package useCases

import (
	"context"
	"log/slog"
	"time"

	"github.com/larriantoniy/tg_webapp_api/internal/broker"
	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/larriantoniy/tg_webapp_api/internal/metrics"
	"github.com/larriantoniy/tg_webapp_api/internal/ports"
)

const DefaultRequestTimeout = 20 * time.Second

// Job: всё, что нужно для открытия сессии под один запрос
type Job struct {
	Ref         domain.StorageRef
	Proxy       domain.ProxyDescriptor
	Credentials *domain.Credentials
}

// Op выполняется на проверенной сессии. Сессию закрывать нельзя: это делает Runner.
type Op func(ctx context.Context, acq *broker.Acquired) error

type Runner struct {
	broker  *broker.Broker
	locker  ports.SessionLocker
	metrics *metrics.Metrics
	log     *slog.Logger
	timeout time.Duration
}

// NewRunner собирает раннер; locker может быть nil, тогда аренда не берётся
func NewRunner(
	b *broker.Broker,
	locker ports.SessionLocker,
	m *metrics.Metrics,
	log *slog.Logger,
	timeout time.Duration,
) *Runner {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Runner{broker: b, locker: locker, metrics: m, log: log, timeout: timeout}
}

// Run укладывает аренду, открытие, проверку и op в один дедлайн.
// Открытая сессия закрывается ровно один раз при любом исходе.
func (r *Runner) Run(ctx context.Context, job Job, op Op) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := r.log.With("session", job.Ref.ID, "kind", job.Ref.Kind)

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, job.Ref.Key())
		if err != nil {
			return err
		}
		defer unlock()
	}

	acq, err := r.broker.Acquire(ctx, job.Credentials, job.Proxy, job.Ref)
	if err != nil {
		return err
	}
	r.metrics.SessionOpened()
	defer r.release(log, acq.Session)

	if err := r.broker.Verify(ctx, acq.Session); err != nil {
		return err
	}

	return op(ctx, acq)
}

func (r *Runner) release(log *slog.Logger, s ports.TelegramSession) {
	if err := s.Close(); err != nil {
		log.Debug("session close failed", "error", err)
	}
	r.metrics.SessionReleased()
}
