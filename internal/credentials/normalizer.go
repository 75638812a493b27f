package credentials

import (
	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Normalizer приводит apiJson с разными вариантами имён полей к одному бандлу
type Normalizer struct {
	systemVersion func() string
}

func NewNormalizer() *Normalizer {
	return &Normalizer{systemVersion: SampleSystemVersion}
}

// Normalize проверяет apiJson и возвращает бандл и канонический документ,
// в котором записаны оба варианта имён. Лишние ключи документа сохраняются.
func (n *Normalizer) Normalize(raw []byte) (domain.Credentials, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return domain.Credentials{}, &domain.CredentialError{Field: "apiJson"}
	}
	doc := append([]byte(nil), raw...)

	var (
		id, hash, device gjson.Result
		err              error
	)
	if doc, id, err = mirror(doc, "app_id", "api_id"); err != nil {
		return domain.Credentials{}, err
	}
	apiID := id.Int()
	if apiID <= 0 || apiID > 1<<31-1 {
		return domain.Credentials{}, &domain.CredentialError{Field: "api_id"}
	}
	if doc, hash, err = mirror(doc, "app_hash", "api_hash"); err != nil {
		return domain.Credentials{}, err
	}
	if doc, device, err = mirror(doc, "device", "device_model"); err != nil {
		return domain.Credentials{}, err
	}

	if !gjson.GetBytes(doc, "system_version").Exists() {
		if doc, err = sjson.SetBytes(doc, "system_version", n.systemVersion()); err != nil {
			return domain.Credentials{}, err
		}
	}

	if !gjson.GetBytes(doc, "app_version").Exists() {
		return domain.Credentials{}, &domain.CredentialError{Field: "app_version"}
	}

	if !gjson.GetBytes(doc, "system_lang_code").Exists() {
		src := gjson.GetBytes(doc, "lang_code")
		if !src.Exists() {
			src = gjson.GetBytes(doc, "system_lang_pack")
		}
		if !src.Exists() {
			return domain.Credentials{}, &domain.CredentialError{Field: "system_lang_code"}
		}
		if doc, err = sjson.SetRawBytes(doc, "system_lang_code", []byte(src.Raw)); err != nil {
			return domain.Credentials{}, err
		}
	}

	if !gjson.GetBytes(doc, "lang_code").Exists() {
		slc := gjson.GetBytes(doc, "system_lang_code")
		if doc, err = sjson.SetRawBytes(doc, "lang_code", []byte(slc.Raw)); err != nil {
			return domain.Credentials{}, err
		}
	}

	if !gjson.GetBytes(doc, "lang_pack").Exists() {
		return domain.Credentials{}, &domain.CredentialError{Field: "lang_pack"}
	}

	fields := gjson.GetManyBytes(doc, "system_version", "app_version", "lang_code", "system_lang_code", "lang_pack")

	return domain.Credentials{
		Bundle: domain.CredentialBundle{
			APIID:          int32(apiID),
			APIHash:        hash.String(),
			DeviceModel:    device.String(),
			SystemVersion:  fields[0].String(),
			AppVersion:     fields[1].String(),
			LangCode:       fields[2].String(),
			SystemLangCode: fields[3].String(),
			LangPack:       fields[4].String(),
		},
		Document: doc,
	}, nil
}

// mirror копирует значение первого найденного ключа (preferred, затем other) в оба
func mirror(doc []byte, preferred, other string) ([]byte, gjson.Result, error) {
	v := gjson.GetBytes(doc, preferred)
	if !v.Exists() {
		v = gjson.GetBytes(doc, other)
	}
	if !v.Exists() {
		return doc, v, &domain.CredentialError{Field: other}
	}

	var err error
	for _, key := range []string{preferred, other} {
		if doc, err = sjson.SetRawBytes(doc, key, []byte(v.Raw)); err != nil {
			return doc, v, err
		}
	}
	return doc, v, nil
}
