package credentials

import (
	"errors"
	"testing"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const fullAPIJSON = `{
	"app_id": 2040,
	"app_hash": "b18441a1ff607e10a989891a5462e627",
	"device": "Desktop",
	"system_version": "Windows 10",
	"app_version": "5.6.2 x64",
	"lang_code": "en",
	"system_lang_code": "en-US",
	"lang_pack": "tdesktop",
	"pid": 14
}`

func fixedNormalizer(version string) *Normalizer {
	return &Normalizer{systemVersion: func() string { return version }}
}

func TestNormalizeFull(t *testing.T) {
	creds, err := NewNormalizer().Normalize([]byte(fullAPIJSON))
	require.NoError(t, err)

	assert.Equal(t, domain.CredentialBundle{
		APIID:          2040,
		APIHash:        "b18441a1ff607e10a989891a5462e627",
		DeviceModel:    "Desktop",
		SystemVersion:  "Windows 10",
		AppVersion:     "5.6.2 x64",
		LangCode:       "en",
		SystemLangCode: "en-US",
		LangPack:       "tdesktop",
	}, creds.Bundle)

	doc := gjson.ParseBytes(creds.Document)
	assert.Equal(t, int64(2040), doc.Get("api_id").Int())
	assert.Equal(t, int64(2040), doc.Get("app_id").Int())
	assert.Equal(t, "Desktop", doc.Get("device_model").String())
	assert.Equal(t, creds.Bundle.APIHash, doc.Get("api_hash").String())
	assert.Equal(t, int64(14), doc.Get("pid").Int(), "unknown keys are preserved")
}

func TestNormalizeAliasSymmetry(t *testing.T) {
	n := fixedNormalizer("Windows 11")

	a, err := n.Normalize([]byte(`{"app_id": 7, "app_hash": "h", "device": "PC", "app_version": "1", "lang_code": "ru", "lang_pack": "tdesktop"}`))
	require.NoError(t, err)
	b, err := n.Normalize([]byte(`{"api_id": 7, "api_hash": "h", "device_model": "PC", "app_version": "1", "lang_code": "ru", "lang_pack": "tdesktop"}`))
	require.NoError(t, err)

	assert.Equal(t, a.Bundle, b.Bundle)
	assert.Equal(t, int32(7), a.Bundle.APIID)
	assert.Equal(t, "ru", a.Bundle.SystemLangCode)
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer()

	first, err := n.Normalize([]byte(`{"api_id": "99", "api_hash": "h", "device": "PC", "app_version": "5.5.0 x64", "system_lang_pack": "de", "lang_pack": "tdesktop"}`))
	require.NoError(t, err)

	second, err := n.Normalize(first.Document)
	require.NoError(t, err)

	assert.Equal(t, first.Bundle, second.Bundle)
	assert.Equal(t, "de", second.Bundle.SystemLangCode)
	assert.Equal(t, "de", second.Bundle.LangCode)
}

func TestNormalizeGeneratesSystemVersion(t *testing.T) {
	creds, err := NewNormalizer().Normalize([]byte(`{"api_id": 1, "api_hash": "h", "device": "PC", "app_version": "1", "lang_code": "en", "lang_pack": "tdesktop"}`))
	require.NoError(t, err)

	assert.Contains(t, SystemVersions(), creds.Bundle.SystemVersion)
	assert.Equal(t, creds.Bundle.SystemVersion, gjson.GetBytes(creds.Document, "system_version").String())
}

func TestNormalizeMissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"no id", `{"api_hash": "h", "device": "PC", "app_version": "1", "lang_code": "en", "lang_pack": "p"}`, "api_id"},
		{"zero id", `{"api_id": 0, "api_hash": "h", "device": "PC", "app_version": "1", "lang_code": "en", "lang_pack": "p"}`, "api_id"},
		{"no hash", `{"api_id": 1, "device": "PC", "app_version": "1", "lang_code": "en", "lang_pack": "p"}`, "api_hash"},
		{"no device", `{"api_id": 1, "api_hash": "h", "app_version": "1", "lang_code": "en", "lang_pack": "p"}`, "device_model"},
		{"no app version", `{"api_id": 1, "api_hash": "h", "device": "PC", "lang_code": "en", "lang_pack": "p"}`, "app_version"},
		{"no lang", `{"api_id": 1, "api_hash": "h", "device": "PC", "app_version": "1", "lang_pack": "p"}`, "system_lang_code"},
		{"no lang pack", `{"api_id": 1, "api_hash": "h", "device": "PC", "app_version": "1", "lang_code": "en"}`, "lang_pack"},
		{"not json", `api_id=1`, "apiJson"},
		{"array", `[1,2]`, "apiJson"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNormalizer().Normalize([]byte(tt.raw))
			var ce *domain.CredentialError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestMissingAppVersionOrLangPackAlwaysFails(t *testing.T) {
	// остальные поля не влияют на результат
	for _, extra := range []string{`"system_version": "Windows 10"`, `"system_lang_code": "en"`, `"device_model": "X", "app_id": 3`} {
		_, err := NewNormalizer().Normalize([]byte(`{"api_id": 1, "api_hash": "h", "device": "PC", "lang_code": "en", "lang_pack": "p", ` + extra + `}`))
		var ce *domain.CredentialError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "app_version", ce.Field)

		_, err = NewNormalizer().Normalize([]byte(`{"api_id": 1, "api_hash": "h", "device": "PC", "lang_code": "en", "app_version": "1", ` + extra + `}`))
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "lang_pack", ce.Field)
	}
}

func TestSampleAppVersion(t *testing.T) {
	for i := 0; i < 20; i++ {
		v := SampleAppVersion()
		assert.Contains(t, AppVersions(), v[:len(v)-len(appVersionSuffix)])
		assert.Equal(t, appVersionSuffix, v[len(v)-len(appVersionSuffix):])
	}
}
