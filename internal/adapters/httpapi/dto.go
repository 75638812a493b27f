package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/larriantoniy/tg_webapp_api/internal/useCases"
)

// flexString принимает и строку, и число: id часто приходит числом
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// requestDTO: общее тело всех POST /api/* запросов
type requestDTO struct {
	ID               flexString      `json:"id"`
	PathDirectory    string          `json:"pathDirectory"`
	SessionType      string          `json:"sessionType"`
	APIJSON          json.RawMessage `json:"apiJson"`
	Proxy            string          `json:"proxy"`
	Service          string          `json:"service"`
	ReferralCode     *string         `json:"referralCode"`
	TgIdentification string          `json:"tgIdentification"`
	IsUpload         bool            `json:"isUpload"`
	OtherInfo        bool            `json:"otherInfo"`
	Channels         []string        `json:"channels"`
	Bot              string          `json:"bot"`
}

func badRequest(format string, args ...any) error {
	return &domain.UnknownError{Status: http.StatusBadRequest, Detail: fmt.Sprintf(format, args...)}
}

// parseRequest собирает useCases.Request из сырого тела
func parseRequest(body []byte, defaultPlatform string) (useCases.Request, error) {
	var dto requestDTO
	if err := binding.JSON.BindBody(body, &dto); err != nil {
		return useCases.Request{}, badRequest("invalid request body: %v", err)
	}

	kind, err := domain.ParseStorageKind(dto.SessionType)
	if err != nil {
		return useCases.Request{}, err
	}
	if dto.ID == "" {
		return useCases.Request{}, badRequest("id is required")
	}

	apiJSON, err := decodeAPIJSON(dto.APIJSON)
	if err != nil {
		return useCases.Request{}, err
	}

	platform := dto.TgIdentification
	if platform == "" {
		platform = defaultPlatform
	}

	return useCases.Request{
		Ref:       domain.StorageRef{Kind: kind, Dir: dto.PathDirectory, ID: string(dto.ID)},
		Proxy:     dto.Proxy,
		APIJSON:   apiJSON,
		Service:   dto.Service,
		Referral:  dto.ReferralCode,
		Platform:  platform,
		IsUpload:  dto.IsUpload,
		OtherInfo: dto.OtherInfo,
		Channels:  dto.Channels,
		Bot:       dto.Bot,
	}, nil
}

// decodeAPIJSON: apiJson приходит JSON-строкой; объект тоже принимаем как есть
func decodeAPIJSON(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '"' {
		return trimmed, nil
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return nil, badRequest("apiJson: %v", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []byte(text), nil
}
