package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"testing"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func newClassifier() *Classifier {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus domain.FailureCategory
		wantDetail string
		wantHTTP   int
	}{
		{
			name:       "deadline",
			err:        fmt.Errorf("acquire: %w", context.DeadlineExceeded),
			wantStatus: domain.CategoryProxyError,
			wantDetail: detailProxyTimeout,
		},
		{
			name:       "proxy probe",
			err:        &domain.ProxyError{Reason: detailProxyConnect, Err: errors.New("dial tcp: refused")},
			wantStatus: domain.CategoryProxyError,
			wantDetail: detailProxyConnect,
		},
		{
			name:       "op error",
			err:        &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route")},
			wantStatus: domain.CategoryProxyError,
			wantDetail: detailProxyConnect,
		},
		{
			name:       "connection refused",
			err:        fmt.Errorf("open: %w", syscall.ECONNREFUSED),
			wantStatus: domain.CategoryProxyError,
			wantDetail: detailProxyConnect,
		},
		{
			name:       "connection error text",
			err:        errors.New("ConnectionError: Connection to Telegram failed 5 time(s)"),
			wantStatus: domain.CategoryProxyError,
			wantDetail: detailProxyConnect,
		},
		{
			name:       "session in use",
			err:        fmt.Errorf("lease: %w", domain.ErrSessionInUse),
			wantStatus: domain.CategoryProxyError,
			wantDetail: detailDoubleUse,
		},
		{
			name:       "auth key duplicated",
			err:        &domain.RemoteError{Op: domain.OpGetMe, Code: 406, Err: errors.New("AUTH_KEY_DUPLICATED")},
			wantStatus: domain.CategoryProxyError,
			wantDetail: detailDoubleUse,
		},
		{
			name:       "unauthorized",
			err:        &domain.SessionInvalidError{Reason: "session is not authorized"},
			wantStatus: domain.CategorySessionInvalid,
			wantDetail: "session is not authorized",
		},
		{
			name:       "credential",
			err:        &domain.CredentialError{Field: "app_version"},
			wantStatus: domain.CategoryUnknown,
			wantDetail: "api json: app_version is missing or invalid",
		},
		{
			name:       "legacy container",
			err:        fmt.Errorf("load /s/1: %w", domain.ErrLegacyUnauthorized),
			wantStatus: domain.CategorySessionInvalid,
			wantDetail: "load /s/1: legacy container is not authorized",
		},
		{
			name:       "truncated artifact",
			err:        fmt.Errorf("read: %w", io.ErrUnexpectedEOF),
			wantStatus: domain.CategorySessionInvalid,
			wantDetail: "read: unexpected EOF",
		},
		{
			name:       "remote 401",
			err:        &domain.RemoteError{Op: domain.OpGetHistory, Code: 401, Err: errors.New("AUTH_KEY_UNREGISTERED")},
			wantStatus: domain.CategorySessionInvalid,
			wantDetail: "AUTH_KEY_UNREGISTERED (caused by GetHistoryRequest)",
		},
		{
			name:       "resolve username",
			err:        &domain.RemoteError{Op: domain.OpResolveUsername, Code: 400, Err: errors.New("USERNAME_NOT_OCCUPIED")},
			wantStatus: domain.CategorySessionInvalid,
			wantDetail: "USERNAME_NOT_OCCUPIED (caused by ResolveUsernameRequest)",
		},
		{
			name:       "caused by text",
			err:        errors.New("FLOOD_WAIT_X (caused by RequestWebViewRequest)"),
			wantStatus: domain.CategorySessionInvalid,
			wantDetail: "FLOOD_WAIT_X (caused by RequestWebViewRequest)",
		},
		{
			name:       "api id text",
			err:        errors.New("API_ID_PUBLISHED_FLOOD"),
			wantStatus: domain.CategorySessionInvalid,
			wantDetail: "API_ID_PUBLISHED_FLOOD",
		},
		{
			name:       "join channel",
			err:        &domain.RemoteError{Op: domain.OpJoinChannel, Code: 400, Err: errors.New("CHANNELS_TOO_MUCH")},
			wantStatus: domain.CategoryIgnoredSuccess,
		},
		{
			name:       "fallback",
			err:        errors.New("boom"),
			wantStatus: domain.CategoryUnknown,
			wantDetail: "boom",
		},
		{
			name:       "unrelated remote op",
			err:        &domain.RemoteError{Op: domain.OpSendMessage, Code: 400, Err: errors.New("PEER_ID_INVALID")},
			wantStatus: domain.CategoryUnknown,
			wantDetail: "PEER_ID_INVALID (caused by SendMessageRequest)",
		},
		{
			name:       "local validation",
			err:        &domain.UnknownError{Status: http.StatusBadRequest, Detail: "Service 'x' not found in service map"},
			wantStatus: domain.CategoryUnknown,
			wantDetail: "Service 'x' not found in service map",
			wantHTTP:   http.StatusBadRequest,
		},
	}

	c := newClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := c.Classify(tt.err, []byte(`{"id":"1"}`))

			wantHTTP := tt.wantHTTP
			if wantHTTP == 0 {
				wantHTTP = http.StatusOK
			}
			assert.Equal(t, wantHTTP, resp.HTTPStatus)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantDetail, resp.Detail)
			assert.Equal(t, `{"id":"1"}`, resp.Data)
		})
	}
}

func TestFirstMatchWins(t *testing.T) {
	c := newClassifier()

	t.Run("network before join", func(t *testing.T) {
		err := &domain.RemoteError{Op: domain.OpJoinChannel, Err: errors.New("ConnectionError: reset")}
		assert.Equal(t, domain.CategoryProxyError, c.Classify(err, nil).Status)
	})

	t.Run("double use before session invalid", func(t *testing.T) {
		err := &domain.RemoteError{Op: domain.OpResolveUsername, Err: errors.New("AUTH_KEY_DUPLICATED")}
		resp := c.Classify(err, nil)
		assert.Equal(t, domain.CategoryProxyError, resp.Status)
		assert.Equal(t, detailDoubleUse, resp.Detail)
	})

	t.Run("session invalid before join", func(t *testing.T) {
		err := fmt.Errorf("join: %w", &domain.RemoteError{Op: domain.OpJoinChannel, Code: 401, Err: errors.New("SESSION_REVOKED")})
		assert.Equal(t, domain.CategorySessionInvalid, c.Classify(err, nil).Status)
	})
}

func TestBody(t *testing.T) {
	ignored := Response{HTTPStatus: 200, Status: domain.CategoryIgnoredSuccess, Data: "x"}
	assert.Equal(t, map[string]any{"status": "success"}, ignored.Body())

	failed := Response{HTTPStatus: 200, Status: domain.CategoryProxyError, Detail: detailProxyConnect, Data: "x"}
	assert.Equal(t, map[string]any{
		"status": "proxy_error",
		"detail": detailProxyConnect,
		"data":   "x",
	}, failed.Body())
}
