package redislock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 30 * time.Second

	keyPrefix     = "tgwebapp:lease:"
	unlockTimeout = 2 * time.Second
)

// снимаем аренду, только если она всё ещё наша
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker: аренда артефакта сессии в Redis (SET NX PX + compare-and-delete).
// Если Redis недоступен, запрос идёт без аренды.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{rdb: rdb, ttl: ttl, log: log}
}

// NewFromURL разбирает redis://... и создаёт клиента
func NewFromURL(rawURL string, ttl time.Duration, log *slog.Logger) (*Locker, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(opts), ttl, log), nil
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		l.log.Warn("redis lease unavailable, continuing without it", "key", key, "error", err)
		return func() {}, nil
	}
	if !ok {
		return nil, fmt.Errorf("lease %s: %w", key, domain.ErrSessionInUse)
	}

	return func() {
		// ctx запроса к этому моменту может быть уже отменён
		ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		if err := unlockScript.Run(ctx, l.rdb, []string{k}, token).Err(); err != nil {
			l.log.Debug("redis lease release failed", "key", key, "error", err)
		}
	}, nil
}

func (l *Locker) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

func (l *Locker) Close() error {
	return l.rdb.Close()
}

// Nop: аренда выключена
type Nop struct{}

func (Nop) Lock(context.Context, string) (func(), error) { return func() {}, nil }
