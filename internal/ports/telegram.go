package ports

import (
	"context"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
)

// Peer: разрешённый собеседник (бот, канал или сам аккаунт)
type Peer struct {
	ChatID   int64
	UserID   int64
	Username string
}

type MenuWebViewRequest struct {
	Bot        Peer
	URL        string
	Platform   string
	StartParam *string
}

type AppWebViewRequest struct {
	Bot        Peer
	ShortName  string
	Platform   string
	StartParam *string
}

// TelegramSession: открытая сессия одного аккаунта.
// Реализуется адаптерами (TDLib), принадлежит ровно одному запросу.
type TelegramSession interface {
	IsConnected() bool
	Connect(ctx context.Context) error
	IsAuthorized(ctx context.Context) (bool, error)

	GetMe(ctx context.Context) (domain.Account, error)
	// ResolveUsername находит чат по публичному username
	ResolveUsername(ctx context.Context, username string) (Peer, error)
	HasHistory(ctx context.Context, peer Peer) (bool, error)
	SendMessage(ctx context.Context, peer Peer, text string) error

	// RequestMenuWebView открывает web view кнопки меню бота, возвращает launch URL
	RequestMenuWebView(ctx context.Context, req MenuWebViewRequest) (string, error)
	// RequestAppWebView открывает mini app по short name от имени self
	RequestAppWebView(ctx context.Context, req AppWebViewRequest) (string, error)

	// IsChannelMember проверяет, состоит ли аккаунт в канале
	IsChannelMember(ctx context.Context, channel string) (bool, error)
	// JoinChannel подписывается по username или invite-ссылке
	JoinChannel(ctx context.Context, channel string) (Peer, error)
	MuteChat(ctx context.Context, peer Peer) error
	ArchiveChat(ctx context.Context, peer Peer) error

	UpdateUsername(ctx context.Context, username string) error
	UpdateName(ctx context.Context, firstName, lastName string) error

	// Close отключает сессию; повторный вызов безопасен
	Close() error
}

// SessionOpener открывает portable-артефакт через заданный прокси.
// Одна попытка, без переподключений: повторы делает брокер.
type SessionOpener interface {
	OpenPortable(ctx context.Context, path string, creds domain.CredentialBundle, proxy domain.ProxyDescriptor) (TelegramSession, error)
}
