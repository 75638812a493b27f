package domain

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

type ProxyScheme string

const (
	ProxySOCKS5 ProxyScheme = "socks5"
	ProxyHTTP   ProxyScheme = "http"
)

// ProxyDescriptor описывает прокси одного запроса
type ProxyDescriptor struct {
	Scheme          ProxyScheme
	Host            string
	Port            int32
	Username        string
	Password        string
	ResolveRemotely bool
}

func (p ProxyDescriptor) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port)))
}

// ParseProxy разбирает строку вида "<scheme>:<host>:<port>:<user>:<pass>".
// Любая схема кроме socks5 считается http.
func ParseProxy(s string) (ProxyDescriptor, error) {
	parts := strings.SplitN(s, ":", 5)
	if len(parts) != 5 {
		return ProxyDescriptor{}, &UnknownError{Status: 400, Detail: fmt.Sprintf("invalid proxy %q: expected 5 fields", s)}
	}

	port, err := strconv.ParseInt(parts[2], 10, 32)
	if err != nil || port <= 0 || port > 65535 {
		return ProxyDescriptor{}, &UnknownError{Status: 400, Detail: fmt.Sprintf("invalid proxy port %q", parts[2])}
	}
	if parts[1] == "" {
		return ProxyDescriptor{}, &UnknownError{Status: 400, Detail: "invalid proxy: empty host"}
	}

	scheme := ProxyHTTP
	if parts[0] == string(ProxySOCKS5) {
		scheme = ProxySOCKS5
	}

	return ProxyDescriptor{
		Scheme:          scheme,
		Host:            parts[1],
		Port:            int32(port),
		Username:        parts[3],
		Password:        parts[4],
		ResolveRemotely: true,
	}, nil
}
