package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/larriantoniy/tg_webapp_api/internal/metrics"
	"github.com/larriantoniy/tg_webapp_api/internal/useCases"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	webApp *useCases.WebAppData
	err    error
	panics bool

	got    useCases.Request
	marker useCases.Marker
	add    bool
	calls  int
}

func (f *fakeService) WebAppData(_ context.Context, req useCases.Request) (*useCases.WebAppData, error) {
	f.got = req
	f.calls++
	if f.panics {
		panic("boom")
	}
	return f.webApp, f.err
}

func (f *fakeService) JoinChannels(_ context.Context, req useCases.Request) error {
	f.got = req
	f.calls++
	return f.err
}

func (f *fakeService) CreateLegacy(_ context.Context, req useCases.Request) error {
	f.got = req
	f.calls++
	return f.err
}

func (f *fakeService) SetMarker(_ context.Context, req useCases.Request, marker useCases.Marker, add bool) error {
	f.got = req
	f.marker = marker
	f.add = add
	f.calls++
	return f.err
}

func (f *fakeService) StartBot(_ context.Context, req useCases.Request) error {
	f.got = req
	f.calls++
	return f.err
}

func newTestRouter(svc Service, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(Options{Service: svc, Metrics: m, Log: log, DefaultPlatform: "android"})
}

func post(t *testing.T, r http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

const baseBody = `{"id":"100","pathDirectory":"/sessions","sessionType":"portable","apiJson":null,"proxy":"socks5:1.2.3.4:1080:u:p","service":"blum","referralCode":null}`

func TestWebAppDataSuccess(t *testing.T) {
	apiJSON := `{"app_id":4}`
	svc := &fakeService{webApp: &useCases.WebAppData{
		TgWebAppData: "query_id=1",
		AuthURL:      "https://app/#tgWebAppData=query_id%3D1",
		Account:      &domain.Account{ID: 42, Phone: "79990001122", Username: "ivan_p", Premium: true},
		APIJSON:      &apiJSON,
	}}
	r := newTestRouter(svc, metrics.New())

	w, out := post(t, r, "/api/getTgWebAppData", baseBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "query_id=1", out["tgWebAppData"])
	assert.Equal(t, "https://app/#tgWebAppData=query_id%3D1", out["authUrl"])
	assert.Equal(t, "79990001122", out["number"])
	assert.Equal(t, true, out["isPremium"])
	assert.Equal(t, "ivan_p", out["username"])
	assert.Equal(t, float64(42), out["userId"])
	assert.Equal(t, apiJSON, out["apiJson"])
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	assert.Equal(t, domain.StorageRef{Kind: domain.StoragePortable, Dir: "/sessions", ID: "100"}, svc.got.Ref)
	assert.Equal(t, "android", svc.got.Platform)
	assert.Nil(t, svc.got.APIJSON)
	assert.Nil(t, svc.got.Referral)
}

func TestWebAppDataWithoutAccount(t *testing.T) {
	svc := &fakeService{webApp: &useCases.WebAppData{TgWebAppData: "x", AuthURL: "u"}}
	r := newTestRouter(svc, nil)

	_, out := post(t, r, "/api/getTgWebAppData", baseBody)

	assert.Equal(t, "success", out["status"])
	assert.Nil(t, out["number"])
	assert.Nil(t, out["isPremium"])
	assert.Nil(t, out["username"])
	assert.Nil(t, out["apiJson"])
	assert.Equal(t, float64(0), out["userId"])
}

func TestRequestDecoding(t *testing.T) {
	svc := &fakeService{webApp: &useCases.WebAppData{}}
	r := newTestRouter(svc, nil)

	body := `{"id":100,"pathDirectory":"/s","sessionType":"tdata","apiJson":"{\"app_id\":4}","proxy":"p","service":"paws","referralCode":"ref1","tgIdentification":"ios","isUpload":true,"otherInfo":true}`
	_, out := post(t, r, "/api/getTgWebAppData", body)
	require.Equal(t, "success", out["status"])

	assert.Equal(t, domain.StorageRef{Kind: domain.StorageLegacy, Dir: "/s", ID: "100"}, svc.got.Ref)
	assert.JSONEq(t, `{"app_id":4}`, string(svc.got.APIJSON))
	require.NotNil(t, svc.got.Referral)
	assert.Equal(t, "ref1", *svc.got.Referral)
	assert.Equal(t, "ios", svc.got.Platform)
	assert.True(t, svc.got.IsUpload)
	assert.True(t, svc.got.OtherInfo)
}

func TestDecodeAPIJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "absent", raw: "", want: ""},
		{name: "null", raw: "null", want: ""},
		{name: "empty string", raw: `""`, want: ""},
		{name: "string", raw: `"{\"app_id\":1}"`, want: `{"app_id":1}`},
		{name: "object", raw: `{"app_id":1}`, want: `{"app_id":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAPIJSON(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestFailureResponses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantStatus string
		wantDetail string
	}{
		{
			name:       "unknown service",
			err:        &domain.UnknownError{Status: http.StatusBadRequest, Detail: "Service 'nope' not found in service map"},
			wantCode:   http.StatusBadRequest,
			wantStatus: "unknown_error",
			wantDetail: "Service 'nope' not found in service map",
		},
		{
			name:       "proxy refused",
			err:        &domain.ProxyError{Reason: "Failed to connect to proxy", Err: errors.New("refused")},
			wantCode:   http.StatusOK,
			wantStatus: "proxy_error",
			wantDetail: "Failed to connect to proxy",
		},
		{
			name:       "deadline",
			err:        context.DeadlineExceeded,
			wantCode:   http.StatusOK,
			wantStatus: "proxy_error",
			wantDetail: "Proxy connection timed out",
		},
		{
			name:       "session invalid",
			err:        &domain.SessionInvalidError{Reason: "session is not authorized"},
			wantCode:   http.StatusOK,
			wantStatus: "session_invalid",
			wantDetail: "session is not authorized",
		},
		{
			name:       "bad api json",
			err:        &domain.CredentialError{Field: "lang_pack"},
			wantCode:   http.StatusOK,
			wantStatus: "unknown_error",
			wantDetail: "api json: lang_pack is missing or invalid",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeService{err: tt.err}, metrics.New())

			w, out := post(t, r, "/api/getTgWebAppData", baseBody)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantStatus, out["status"])
			assert.Equal(t, tt.wantDetail, out["detail"])
			assert.Equal(t, baseBody, out["data"])
		})
	}
}

func TestBadRequestBody(t *testing.T) {
	svc := &fakeService{}
	r := newTestRouter(svc, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{"id":`},
		{name: "missing id", body: `{"sessionType":"portable"}`},
		{name: "bad session type", body: `{"id":"1","sessionType":"pyrogram"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := post(t, r, "/api/joinChannels", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "unknown_error", out["status"])
			assert.Equal(t, tt.body, out["data"])
		})
	}
	assert.Zero(t, svc.calls)
}

func TestJoinFailureIsIgnored(t *testing.T) {
	err := &domain.RemoteError{Op: domain.OpJoinChannel, Code: 400, Err: errors.New("CHANNELS_TOO_MUCH")}
	r := newTestRouter(&fakeService{err: err}, nil)

	w, out := post(t, r, "/api/joinChannels", baseBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "success"}, out)
}

func TestSimpleRoutes(t *testing.T) {
	for _, path := range []string{"/api/joinChannels", "/api/createTData", "/api/startBot"} {
		t.Run(path, func(t *testing.T) {
			svc := &fakeService{}
			r := newTestRouter(svc, nil)

			w, out := post(t, r, path, baseBody)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, map[string]any{"status": "success"}, out)
			assert.Equal(t, 1, svc.calls)
		})
	}
}

func TestMarkerRoutes(t *testing.T) {
	tests := []struct {
		path   string
		marker useCases.Marker
		add    bool
	}{
		{"/api/addDiamond", useCases.MarkerDiamond, true},
		{"/api/removeDiamond", useCases.MarkerDiamond, false},
		{"/api/addCat", useCases.MarkerCat, true},
		{"/api/removeCat", useCases.MarkerCat, false},
		{"/api/addPixel", useCases.MarkerPixel, true},
		{"/api/removePixel", useCases.MarkerPixel, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			svc := &fakeService{}
			r := newTestRouter(svc, nil)

			_, out := post(t, r, tt.path, baseBody)

			assert.Equal(t, "success", out["status"])
			assert.Equal(t, tt.marker, svc.marker)
			assert.Equal(t, tt.add, svc.add)
		})
	}
}

func TestPanicIsRecovered(t *testing.T) {
	r := newTestRouter(&fakeService{panics: true}, nil)

	w, out := post(t, r, "/api/getTgWebAppData", baseBody)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unknown_error", out["status"])
	assert.Contains(t, out["detail"], "boom")
	assert.Equal(t, baseBody, out["data"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/startBot", strings.NewReader(baseBody))
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	r := newTestRouter(&fakeService{}, m)

	post(t, r, "/api/startBot", baseBody)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `webapp_responses_total{route="startBot",status="success"} 1`)
	assert.Contains(t, w.Body.String(), `webapp_http_requests_total{method="POST",path="/api/startBot",status="200"} 1`)
}
