package ports

import (
	"context"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
)

// LegacyStore работает с legacy-контейнерами сессий
type LegacyStore interface {
	// Load читает контейнер, не изменяя его
	Load(ctx context.Context, path string) (*domain.LegacyContainer, error)

	// Materialize создаёт portable-артефакт из контейнера
	Materialize(ctx context.Context, c *domain.LegacyContainer, artifactPath string) error

	// Export сохраняет portable-артефакт как legacy-контейнер
	Export(ctx context.Context, artifactPath, legacyPath string, creds domain.CredentialBundle, acct domain.Account) error
}

// SessionLocker не даёт двум запросам одновременно открыть один артефакт
type SessionLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
