package tg

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"golang.org/x/net/proxy"
)

const (
	DefaultProbeTimeout = 5 * time.Second
	// DefaultProbeTarget: DC2 Telegram, до него и проверяем туннель через socks5
	DefaultProbeTarget = "149.154.167.51:443"

	proxyUnreachable = "Failed to connect to proxy"
)

// ProxyProber проверяет прокси до старта TDLib: сам TDLib при недоступном
// прокси молча переподключается до конца дедлайна.
type ProxyProber struct {
	log     *slog.Logger
	timeout time.Duration
	target  string
}

func NewProxyProber(log *slog.Logger, timeout time.Duration) *ProxyProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &ProxyProber{log: log, timeout: timeout, target: DefaultProbeTarget}
}

// Probe для socks5 проходит рукопожатие и CONNECT до target,
// для http достаточно TCP-соединения с самим прокси.
func (p *ProxyProber) Probe(ctx context.Context, d domain.ProxyDescriptor) error {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dial(probeCtx, d)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.log.Debug("proxy unreachable", "addr", d.Addr(), "scheme", d.Scheme, "error", err)
		return &domain.ProxyError{Reason: proxyUnreachable, Err: err}
	}
	_ = conn.Close()

	p.log.Debug("proxy reachable", "addr", d.Addr(), "scheme", d.Scheme, "took", time.Since(start))
	return nil
}

func (p *ProxyProber) dial(ctx context.Context, d domain.ProxyDescriptor) (net.Conn, error) {
	direct := &net.Dialer{Timeout: p.timeout}

	if d.Scheme != domain.ProxySOCKS5 {
		return direct.DialContext(ctx, "tcp", d.Addr())
	}

	var auth *proxy.Auth
	if d.Username != "" {
		auth = &proxy.Auth{User: d.Username, Password: d.Password}
	}
	dialer, err := proxy.SOCKS5("tcp", d.Addr(), auth, direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer: %w", err)
	}

	cd, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return dialer.Dial("tcp", p.target)
	}
	return cd.DialContext(ctx, "tcp", p.target)
}
