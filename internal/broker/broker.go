package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/larriantoniy/tg_webapp_api/internal/credentials"
	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/larriantoniy/tg_webapp_api/internal/metrics"
	"github.com/larriantoniy/tg_webapp_api/internal/ports"
)

const (
	// portableAttempts объявлено как 4, но ошибка на попытке с индексом
	// lastAttempt пробрасывается сразу, так что реальных попыток три.
	portableAttempts = 4
	lastAttempt      = 2

	DefaultBackoff = 400 * time.Millisecond
)

// Acquired: открытая сессия и креды, с которыми она открыта.
// Освобождать сессию должен вызывающий.
type Acquired struct {
	Session     ports.TelegramSession
	Credentials domain.Credentials
}

type Broker struct {
	opener     ports.SessionOpener
	legacy     ports.LegacyStore
	normalizer *credentials.Normalizer
	metrics    *metrics.Metrics
	log        *slog.Logger
	backoff    time.Duration
}

func New(
	opener ports.SessionOpener,
	legacy ports.LegacyStore,
	normalizer *credentials.Normalizer,
	m *metrics.Metrics,
	log *slog.Logger,
	backoff time.Duration,
) *Broker {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Broker{
		opener:     opener,
		legacy:     legacy,
		normalizer: normalizer,
		metrics:    m,
		log:        log,
		backoff:    backoff,
	}
}

// Acquire открывает сессию по ref. Для legacy-контейнера creds не нужны:
// они берутся из контейнера и возвращаются в Acquired.Credentials.
func (b *Broker) Acquire(ctx context.Context, creds *domain.Credentials, proxy domain.ProxyDescriptor, ref domain.StorageRef) (*Acquired, error) {
	start := time.Now()

	var (
		acq *Acquired
		err error
	)
	switch ref.Kind {
	case domain.StorageLegacy:
		acq, err = b.acquireLegacy(ctx, proxy, ref)
	default:
		acq, err = b.acquirePortable(ctx, creds, proxy, ref)
	}

	b.metrics.ObserveAcquire(string(ref.Kind), time.Since(start), err)
	return acq, err
}

func (b *Broker) acquireLegacy(ctx context.Context, proxy domain.ProxyDescriptor, ref domain.StorageRef) (*Acquired, error) {
	container, err := b.legacy.Load(ctx, ref.LegacyPath())
	if err != nil {
		return nil, err
	}

	raw := maps.Clone(container.Credentials)
	if raw == nil {
		raw = map[string]any{}
	}
	raw["system_version"] = credentials.SampleSystemVersion()
	raw["app_version"] = credentials.SampleAppVersion()

	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal legacy credentials: %w", err)
	}
	creds, err := b.normalizer.Normalize(doc)
	if err != nil {
		return nil, err
	}

	if err := b.legacy.Materialize(ctx, container, ref.PortablePath()); err != nil {
		return nil, err
	}

	session, err := b.opener.OpenPortable(ctx, ref.PortablePath(), creds.Bundle, proxy)
	if err != nil {
		return nil, err
	}

	b.log.Info("legacy container converted",
		"session", ref.ID,
		"system_version", creds.Bundle.SystemVersion,
		"app_version", creds.Bundle.AppVersion,
	)
	return &Acquired{Session: session, Credentials: creds}, nil
}

func (b *Broker) acquirePortable(ctx context.Context, creds *domain.Credentials, proxy domain.ProxyDescriptor, ref domain.StorageRef) (*Acquired, error) {
	if creds == nil {
		return nil, &domain.CredentialError{Field: "apiJson"}
	}

	var lastErr error
	for attempt := 0; attempt < portableAttempts; attempt++ {
		session, err := b.opener.OpenPortable(ctx, ref.PortablePath(), creds.Bundle, proxy)
		if err == nil {
			return &Acquired{Session: session, Credentials: *creds}, nil
		}
		lastErr = err

		if attempt == lastAttempt {
			return nil, err
		}

		b.log.Warn("open session failed, retrying",
			"session", ref.ID,
			"attempt", attempt,
			"backoff", b.backoff,
			"error", err,
		)
		if err := sleep(ctx, b.backoff); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// Verify подключает сессию при необходимости и проверяет авторизацию.
// Интерактивной авторизации нет, поэтому неавторизованная сессия считается ошибкой.
func (b *Broker) Verify(ctx context.Context, s ports.TelegramSession) error {
	if !s.IsConnected() {
		if err := s.Connect(ctx); err != nil {
			return err
		}
	}

	ok, err := s.IsAuthorized(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.SessionInvalidError{Reason: "session is not authorized"}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
