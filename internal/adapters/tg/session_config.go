package tg

import (
	"math"
	"path/filepath"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/zelenin/go-tdlib/client"
)

const (
	manifestName = "config.json"
	databaseDir  = "database"
	filesDir     = "files"
	// muteForever: всё, что больше года, TDLib считает бессрочным мьютом
	muteForever = math.MaxInt32
)

// RawSessionConfig: манифест legacy-контейнера (<dir>/<id>/config.json)
type RawSessionConfig struct {
	SessionFile string `json:"session_file"`
	Phone       string `json:"phone"`
	UserID      int64  `json:"user_id"`

	AppID   int32  `json:"app_id"`
	AppHash string `json:"app_hash"`

	SDK        string `json:"sdk"`         // SystemVersion
	AppVersion string `json:"app_version"` // ApplicationVersion
	Device     string `json:"device"`      // DeviceModel
	LangCode   string `json:"lang_code"`
	SystemLang string `json:"system_lang_code"`
	LangPack   string `json:"lang_pack"`
}

func newRawSessionConfig(sessionFile string, b domain.CredentialBundle, acct domain.Account) *RawSessionConfig {
	return &RawSessionConfig{
		SessionFile: sessionFile,
		Phone:       acct.Phone,
		UserID:      acct.ID,
		AppID:       b.APIID,
		AppHash:     b.APIHash,
		SDK:         b.SystemVersion,
		AppVersion:  b.AppVersion,
		Device:      b.DeviceModel,
		LangCode:    b.LangCode,
		SystemLang:  b.SystemLangCode,
		LangPack:    b.LangPack,
	}
}

// Credentials отдаёт поля манифеста в виде сырого apiJson для нормализатора.
// Пустые поля пропускаются, чтобы нормализатор мог подставить значения по умолчанию.
func (c *RawSessionConfig) Credentials() map[string]any {
	out := map[string]any{}
	if c.AppID != 0 {
		out["app_id"] = c.AppID
	}
	put := func(key, v string) {
		if v != "" {
			out[key] = v
		}
	}
	put("app_hash", c.AppHash)
	put("device", c.Device)
	put("system_version", c.SDK)
	put("app_version", c.AppVersion)
	put("lang_code", c.LangCode)
	put("system_lang_code", c.SystemLang)
	put("lang_pack", c.LangPack)
	return out
}

// tdParams собирает параметры TDLib для артефакта по пути path:
// база лежит прямо в path, файлы в path/files.
func tdParams(path string, b domain.CredentialBundle) *client.SetTdlibParametersRequest {
	return &client.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   path,
		FilesDirectory:      filepath.Join(path, filesDir),
		UseFileDatabase:     true,
		UseChatInfoDatabase: true,
		UseMessageDatabase:  true,
		UseSecretChats:      false,
		ApiId:               b.APIID,
		ApiHash:             b.APIHash,
		SystemLanguageCode:  b.SystemLangCode,
		DeviceModel:         b.DeviceModel,
		SystemVersion:       b.SystemVersion,
		ApplicationVersion:  b.AppVersion,
	}
}

func proxyRequest(p domain.ProxyDescriptor) *client.AddProxyRequest {
	req := &client.AddProxyRequest{
		Server: p.Host,
		Port:   p.Port,
		Enable: true,
	}
	switch p.Scheme {
	case domain.ProxySOCKS5:
		req.Type = &client.ProxyTypeSocks5{Username: p.Username, Password: p.Password}
	default:
		req.Type = &client.ProxyTypeHttp{Username: p.Username, Password: p.Password}
	}
	return req
}
