package domain

import (
	"errors"
	"fmt"
)

// FailureCategory: статус, который видит вызывающая сторона
type FailureCategory string

const (
	CategoryProxyError     FailureCategory = "proxy_error"
	CategorySessionInvalid FailureCategory = "session_invalid"
	CategoryIgnoredSuccess FailureCategory = "ignored_success"
	CategoryUnknown        FailureCategory = "unknown_error"
)

var (
	// ErrSessionInUse: артефакт уже открыт другим запросом
	ErrSessionInUse = errors.New("session artifact is already in use")
	// ErrLegacyUnauthorized: legacy-контейнер не содержит авторизации
	ErrLegacyUnauthorized = errors.New("legacy container is not authorized")
)

// CredentialError: apiJson неполный или битый
type CredentialError struct {
	Field string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("api json: %s is missing or invalid", e.Field)
}

type ProxyError struct {
	Reason string
	Err    error
}

func (e *ProxyError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ProxyError) Unwrap() error { return e.Err }

type SessionInvalidError struct {
	Reason string
	Err    error
}

func (e *SessionInvalidError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *SessionInvalidError) Unwrap() error { return e.Err }

// UnknownError: локальная ошибка валидации с собственным HTTP-статусом
type UnknownError struct {
	Status int
	Detail string
}

func (e *UnknownError) Error() string { return e.Detail }

// RemoteOp: имя удалённой операции, на которой упал вызов
type RemoteOp string

const (
	OpSendCode          RemoteOp = "SendCodeRequest"
	OpUpdateUsername    RemoteOp = "UpdateUsernameRequest"
	OpRequestWebView    RemoteOp = "RequestWebViewRequest"
	OpRequestAppWebView RemoteOp = "RequestAppWebViewRequest"
	OpResolveUsername   RemoteOp = "ResolveUsernameRequest"
	OpJoinChannel       RemoteOp = "JoinChannelRequest"
	OpGetParticipant    RemoteOp = "GetParticipantRequest"
	OpGetHistory        RemoteOp = "GetHistoryRequest"
	OpSendMessage       RemoteOp = "SendMessageRequest"
	OpUpdateProfile     RemoteOp = "UpdateProfileRequest"
	OpUpdateNotify      RemoteOp = "UpdateNotifySettingsRequest"
	OpEditFolder        RemoteOp = "EditPeerFoldersRequest"
	OpGetMe             RemoteOp = "GetUsersRequest"
)

// RemoteError оборачивает ошибку удалённой стороны вместе с именем операции
type RemoteError struct {
	Op   RemoteOp
	Code int
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%v (caused by %s)", e.Err, e.Op)
}

func (e *RemoteError) Unwrap() error { return e.Err }
