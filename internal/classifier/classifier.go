package classifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
)

const (
	detailProxyTimeout = "Proxy connection timed out"
	detailProxyConnect = "Failed to connect to proxy"
	detailDoubleUse    = "Session file was used under two different keys"
)

// Response: то, что уходит клиенту на любую неуспешную операцию
type Response struct {
	HTTPStatus int
	Status     domain.FailureCategory
	Detail     string
	Data       string
}

// Body формирует JSON-тело ответа
func (r Response) Body() map[string]any {
	if r.Status == domain.CategoryIgnoredSuccess {
		return map[string]any{"status": "success"}
	}
	return map[string]any{
		"status": string(r.Status),
		"detail": r.Detail,
		"data":   r.Data,
	}
}

type rule struct {
	name  string
	match func(err error) bool
	apply func(err error) (domain.FailureCategory, string)
}

// Classifier сопоставляет ошибку с категорией по упорядоченному списку правил,
// срабатывает первое подходящее.
type Classifier struct {
	log   *slog.Logger
	rules []rule
}

func New(log *slog.Logger) *Classifier {
	return &Classifier{log: log, rules: defaultRules()}
}

func (c *Classifier) Classify(err error, echo []byte) Response {
	var local *domain.UnknownError
	if errors.As(err, &local) {
		status := local.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		return Response{HTTPStatus: status, Status: domain.CategoryUnknown, Detail: local.Detail, Data: string(echo)}
	}

	for _, r := range c.rules {
		if !r.match(err) {
			continue
		}
		category, detail := r.apply(err)
		c.log.Debug("error classified", "rule", r.name, "status", category, "error", err)
		return Response{HTTPStatus: http.StatusOK, Status: category, Detail: detail, Data: string(echo)}
	}

	c.log.Error("unexpected error", "error", err)
	return Response{HTTPStatus: http.StatusOK, Status: domain.CategoryUnknown, Detail: errText(err), Data: string(echo)}
}

func defaultRules() []rule {
	return []rule{
		{
			name:  "proxy timeout",
			match: func(err error) bool { return errors.Is(err, context.DeadlineExceeded) },
			apply: fixed(domain.CategoryProxyError, detailProxyTimeout),
		},
		{
			name:  "proxy connect",
			match: isNetworkError,
			apply: fixed(domain.CategoryProxyError, detailProxyConnect),
		},
		{
			name:  "double use",
			match: isDoubleUse,
			apply: fixed(domain.CategoryProxyError, detailDoubleUse),
		},
		{
			name:  "session invalid",
			match: isSessionInvalid,
			apply: func(err error) (domain.FailureCategory, string) { return domain.CategorySessionInvalid, errText(err) },
		},
		{
			name:  "join",
			match: isJoinFailure,
			apply: fixed(domain.CategoryIgnoredSuccess, ""),
		},
	}
}

func fixed(c domain.FailureCategory, detail string) func(error) (domain.FailureCategory, string) {
	return func(error) (domain.FailureCategory, string) { return c, detail }
}

func isNetworkError(err error) bool {
	var (
		pe    *domain.ProxyError
		opErr *net.OpError
		nerr  net.Error
	)
	switch {
	case errors.As(err, &pe), errors.As(err, &opErr), errors.As(err, &nerr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED):
		return true
	}
	return strings.Contains(errText(err), "ConnectionError")
}

func isDoubleUse(err error) bool {
	if errors.Is(err, domain.ErrSessionInUse) {
		return true
	}
	return containsAny(errText(err),
		"The authorization key (session file) was used under two",
		"AUTH_KEY_DUPLICATED",
	)
}

var sessionInvalidOps = []domain.RemoteOp{
	domain.OpSendCode,
	domain.OpUpdateUsername,
	domain.OpRequestWebView,
	domain.OpResolveUsername,
}

func isSessionInvalid(err error) bool {
	var (
		sie *domain.SessionInvalidError
		re  *domain.RemoteError
	)
	switch {
	case errors.As(err, &sie):
		return true
	case errors.Is(err, domain.ErrLegacyUnauthorized), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}

	if errors.As(err, &re) {
		if re.Code == http.StatusUnauthorized {
			return true
		}
		for _, op := range sessionInvalidOps {
			if re.Op == op {
				return true
			}
		}
	}

	text := errText(err)
	if containsAny(text,
		"The phone number is invalid",
		"PHONE_NUMBER_INVALID",
		"SessionInvalidError",
		"This API id w",
		"API_ID_PUBLISHED_FLOOD",
		"API_ID_INVALID",
		"bytes read on a total",
	) {
		return true
	}
	for _, op := range sessionInvalidOps {
		if strings.Contains(text, "(caused by "+string(op)+")") {
			return true
		}
	}
	return false
}

func isJoinFailure(err error) bool {
	var re *domain.RemoteError
	if errors.As(err, &re) && re.Op == domain.OpJoinChannel {
		return true
	}
	return strings.Contains(errText(err), string(domain.OpJoinChannel))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
