package domain

import "encoding/json"

// CredentialBundle: канонический набор параметров клиента
type CredentialBundle struct {
	APIID          int32  `json:"api_id"`
	APIHash        string `json:"api_hash"`
	DeviceModel    string `json:"device_model"`
	SystemVersion  string `json:"system_version"`
	AppVersion     string `json:"app_version"`
	LangCode       string `json:"lang_code"`
	SystemLangCode string `json:"system_lang_code"`
	LangPack       string `json:"lang_pack"`
}

// Credentials связывает бандл с его каноническим JSON-документом (apiJson в ответе)
type Credentials struct {
	Bundle   CredentialBundle
	Document json.RawMessage
}
