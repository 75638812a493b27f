package tg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/larriantoniy/tg_webapp_api/internal/ports"
	"github.com/tidwall/gjson"
	"github.com/zelenin/go-tdlib/client"
)

const (
	DefaultVerbosity = 1

	startParamKey = "tgWebAppStartParam"
)

var verbosityOnce sync.Once

// Opener открывает portable-артефакты через TDLib
type Opener struct {
	log       *slog.Logger
	prober    *ProxyProber
	verbosity int32
}

func NewOpener(log *slog.Logger, prober *ProxyProber, verbosity int32) *Opener {
	return &Opener{log: log, prober: prober, verbosity: verbosity}
}

// OpenPortable поднимает TDLib-клиент на базе path. Интерактивной авторизации нет:
// если TDLib просит телефон или код, возвращается сессия с IsAuthorized() == false.
func (o *Opener) OpenPortable(ctx context.Context, path string, creds domain.CredentialBundle, p domain.ProxyDescriptor) (ports.TelegramSession, error) {
	log := o.log.With("artifact", filepath.Base(path))

	if err := o.prober.Probe(ctx, p); err != nil {
		return nil, err
	}

	if err := checkArtifact(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(path, filesDir), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", path, err)
	}

	verbosityOnce.Do(func() {
		if _, err := client.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{
			NewVerbosityLevel: o.verbosity,
		}); err != nil {
			o.log.Error("TDLib SetLogVerbosityLevel", "error", err)
		}
	})

	authorizer := newSessionAuthorizer(tdParams(path, creds))

	type result struct {
		client *client.Client
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := client.NewClient(authorizer, client.WithProxy(proxyRequest(p)))
		ch <- result{client: c, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		// клиент может подняться уже после дедлайна
		go func() {
			if r := <-ch; r.client != nil {
				_, _ = r.client.Close()
			}
		}()
		return nil, ctx.Err()
	case res = <-ch:
	}

	if res.err != nil {
		if errors.Is(res.err, errUnauthorized) {
			log.Info("session is not authorized")
			return &unauthorizedSession{td: authorizer.client}, nil
		}
		log.Error("TDLib NewClient error", "error", res.err)
		return nil, fmt.Errorf("tdlib client: %w", res.err)
	}
	tdCli := res.client

	s := &Session{client: tdCli, log: log}

	me, err := call(ctx, domain.OpGetMe, tdCli.GetMe)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.selfID = me.Id

	s.applyLanguage(ctx, creds)

	log.Info("TDLib client initialized and authorized", "self_id", me.Id)
	return s, nil
}

// checkArtifact не даёт TDLib создать пустую базу под несуществующую сессию
func checkArtifact(path string) error {
	_, err := os.Stat(filepath.Join(path, binlogName))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return &domain.SessionInvalidError{Reason: "session artifact not found", Err: err}
	default:
		return fmt.Errorf("stat %s: %w", path, err)
	}
}

// Session реализует ports.TelegramSession поверх go-tdlib
type Session struct {
	client *client.Client
	log    *slog.Logger
	selfID int64

	closeOnce sync.Once
	closeErr  error
}

// applyLanguage выставляет языковой пакет из кредов; ошибки не критичны
func (s *Session) applyLanguage(ctx context.Context, creds domain.CredentialBundle) {
	options := map[string]string{
		"localization_target": creds.LangPack,
		"language_pack_id":    creds.LangCode,
	}
	for name, value := range options {
		if value == "" {
			continue
		}
		_, err := call(ctx, domain.OpUpdateProfile, func() (*client.Ok, error) {
			return s.client.SetOption(&client.SetOptionRequest{
				Name:  name,
				Value: &client.OptionValueString{Value: value},
			})
		})
		if err != nil {
			s.log.Debug("SetOption failed", "option", name, "error", err)
		}
	}
}

// IsConnected: после NewClient TDLib сам держит соединение
func (s *Session) IsConnected() bool { return s.client != nil }

func (s *Session) Connect(context.Context) error { return nil }

func (s *Session) IsAuthorized(ctx context.Context) (bool, error) {
	state, err := call(ctx, domain.OpGetMe, s.client.GetAuthorizationState)
	if err != nil {
		return false, err
	}
	_, ok := state.(*client.AuthorizationStateReady)
	return ok, nil
}

func (s *Session) GetMe(ctx context.Context) (domain.Account, error) {
	me, err := call(ctx, domain.OpGetMe, s.client.GetMe)
	if err != nil {
		return domain.Account{}, err
	}

	acct := domain.Account{
		ID:        me.Id,
		Phone:     me.PhoneNumber,
		FirstName: me.FirstName,
		LastName:  me.LastName,
		Premium:   me.IsPremium,
	}
	if me.Usernames != nil && len(me.Usernames.ActiveUsernames) > 0 {
		acct.Username = me.Usernames.ActiveUsernames[0]
	}
	return acct, nil
}

func (s *Session) ResolveUsername(ctx context.Context, username string) (ports.Peer, error) {
	username = strings.TrimPrefix(username, "@")

	chat, err := call(ctx, domain.OpResolveUsername, func() (*client.Chat, error) {
		return s.client.SearchPublicChat(&client.SearchPublicChatRequest{Username: username})
	})
	if err != nil {
		return ports.Peer{}, err
	}

	peer := ports.Peer{ChatID: chat.Id, Username: username}
	if private, ok := chat.Type.(*client.ChatTypePrivate); ok {
		peer.UserID = private.UserId
	}
	return peer, nil
}

func (s *Session) HasHistory(ctx context.Context, peer ports.Peer) (bool, error) {
	history, err := call(ctx, domain.OpGetHistory, func() (*client.Messages, error) {
		return s.client.GetChatHistory(&client.GetChatHistoryRequest{
			ChatId: peer.ChatID,
			Limit:  1,
		})
	})
	if err != nil {
		return false, err
	}
	return len(history.Messages) > 0, nil
}

func (s *Session) SendMessage(ctx context.Context, peer ports.Peer, text string) error {
	_, err := call(ctx, domain.OpSendMessage, func() (*client.Message, error) {
		return s.client.SendMessage(&client.SendMessageRequest{
			ChatId: peer.ChatID,
			InputMessageContent: &client.InputMessageText{
				Text:       &client.FormattedText{Text: text},
				ClearDraft: true,
			},
		})
	})
	return err
}

// RequestMenuWebView открывает web view кнопки меню бота (openWebApp).
// В openWebApp нет start-параметра, поэтому он уходит в query entry URL.
func (s *Session) RequestMenuWebView(ctx context.Context, req ports.MenuWebViewRequest) (string, error) {
	entry := req.URL
	if req.StartParam != nil {
		u, err := url.Parse(req.URL)
		if err != nil {
			return "", fmt.Errorf("parse entry url: %w", err)
		}
		q := u.Query()
		q.Set(startParamKey, *req.StartParam)
		u.RawQuery = q.Encode()
		entry = u.String()
	}

	return s.sendForURL(ctx, domain.OpRequestWebView, "openWebApp", map[string]any{
		"chat_id":          req.Bot.ChatID,
		"bot_user_id":      req.Bot.UserID,
		"url":              entry,
		"application_name": req.Platform,
		"parameters": map[string]any{
			"@type":            "webAppOpenParameters",
			"application_name": req.Platform,
		},
	})
}

// RequestAppWebView получает ссылку на mini app бота по short name (getWebAppLinkUrl)
func (s *Session) RequestAppWebView(ctx context.Context, req ports.AppWebViewRequest) (string, error) {
	start := ""
	if req.StartParam != nil {
		start = *req.StartParam
	}

	return s.sendForURL(ctx, domain.OpRequestAppWebView, "getWebAppLinkUrl", map[string]any{
		"chat_id":            s.selfID,
		"bot_user_id":        req.Bot.UserID,
		"web_app_short_name": req.ShortName,
		"start_parameter":    start,
		"application_name":   req.Platform,
		"allow_write_access": true,
		"parameters": map[string]any{
			"@type":            "webAppOpenParameters",
			"application_name": req.Platform,
		},
	})
}

// sendForURL шлёт сырой запрос: поля web app методов меняются между версиями TDLib,
// а из ответа нужен только url.
func (s *Session) sendForURL(ctx context.Context, op domain.RemoteOp, method string, data map[string]any) (string, error) {
	resp, err := call(ctx, op, func() (*client.Response, error) {
		req := client.Request{Data: data}
		req.Type = method
		return s.client.Send(req)
	})
	if err != nil {
		return "", err
	}
	if resp.Type == "error" {
		return "", responseError(op, resp.Data)
	}

	u := gjson.GetBytes(resp.Data, "url").String()
	if u == "" {
		return "", &domain.RemoteError{Op: op, Err: errors.New("empty web app url")}
	}
	return u, nil
}

func (s *Session) IsChannelMember(ctx context.Context, channel string) (bool, error) {
	chatID, err := s.channelChatID(ctx, channel)
	if err != nil || chatID == 0 {
		return false, err
	}

	member, err := call(ctx, domain.OpGetParticipant, func() (*client.ChatMember, error) {
		return s.client.GetChatMember(&client.GetChatMemberRequest{
			ChatId:   chatID,
			MemberId: &client.MessageSenderUser{UserId: s.selfID},
		})
	})
	if err != nil {
		s.log.Debug("GetChatMember failed, assuming not a member", "chat_id", chatID, "error", err)
		return false, nil
	}

	switch st := member.Status.(type) {
	case *client.ChatMemberStatusMember, *client.ChatMemberStatusAdministrator, *client.ChatMemberStatusCreator:
		return true, nil
	case *client.ChatMemberStatusRestricted:
		return st.IsMember, nil
	default:
		return false, nil
	}
}

// channelChatID: для invite-ссылки 0 значит, что доступа к чату до вступления нет
func (s *Session) channelChatID(ctx context.Context, channel string) (int64, error) {
	if isInviteLink(channel) {
		info, err := call(ctx, domain.OpGetParticipant, func() (*client.ChatInviteLinkInfo, error) {
			return s.client.CheckChatInviteLink(&client.CheckChatInviteLinkRequest{InviteLink: channel})
		})
		if err != nil {
			return 0, err
		}
		return info.ChatId, nil
	}

	peer, err := s.ResolveUsername(ctx, channel)
	if err != nil {
		return 0, err
	}
	return peer.ChatID, nil
}

func (s *Session) JoinChannel(ctx context.Context, channel string) (ports.Peer, error) {
	if isInviteLink(channel) {
		chat, err := call(ctx, domain.OpJoinChannel, func() (*client.Chat, error) {
			return s.client.JoinChatByInviteLink(&client.JoinChatByInviteLinkRequest{InviteLink: channel})
		})
		if err != nil {
			return ports.Peer{}, err
		}
		s.log.Info("Joined channel by invite link", "link", channel)
		return ports.Peer{ChatID: chat.Id}, nil
	}

	peer, err := s.ResolveUsername(ctx, channel)
	if err != nil {
		return ports.Peer{}, err
	}
	_, err = call(ctx, domain.OpJoinChannel, func() (*client.Ok, error) {
		return s.client.JoinChat(&client.JoinChatRequest{ChatId: peer.ChatID})
	})
	if err != nil {
		return ports.Peer{}, err
	}

	s.log.Info("Joined channel", "channel", channel)
	return peer, nil
}

func (s *Session) MuteChat(ctx context.Context, peer ports.Peer) error {
	_, err := call(ctx, domain.OpUpdateNotify, func() (*client.Ok, error) {
		return s.client.SetChatNotificationSettings(&client.SetChatNotificationSettingsRequest{
			ChatId: peer.ChatID,
			NotificationSettings: &client.ChatNotificationSettings{
				UseDefaultMuteFor: false,
				MuteFor:           muteForever,
			},
		})
	})
	return err
}

func (s *Session) ArchiveChat(ctx context.Context, peer ports.Peer) error {
	_, err := call(ctx, domain.OpEditFolder, func() (*client.Ok, error) {
		return s.client.AddChatToList(&client.AddChatToListRequest{
			ChatId:   peer.ChatID,
			ChatList: &client.ChatListArchive{},
		})
	})
	return err
}

func (s *Session) UpdateUsername(ctx context.Context, username string) error {
	_, err := call(ctx, domain.OpUpdateUsername, func() (*client.Ok, error) {
		return s.client.SetUsername(&client.SetUsernameRequest{Username: username})
	})
	return err
}

func (s *Session) UpdateName(ctx context.Context, firstName, lastName string) error {
	_, err := call(ctx, domain.OpUpdateProfile, func() (*client.Ok, error) {
		return s.client.SetName(&client.SetNameRequest{FirstName: firstName, LastName: lastName})
	})
	return err
}

// Close закрывает TDLib-клиент; повторные вызовы возвращают первый результат
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		_, s.closeErr = s.client.Close()
	})
	return s.closeErr
}

func isInviteLink(channel string) bool {
	return strings.Contains(channel, "t.me/+") ||
		strings.Contains(channel, "t.me/joinchat/") ||
		strings.HasPrefix(channel, "tg://join")
}

// unauthorizedSession: результат открытия артефакта без авторизации.
// Любые вызовы, кроме проверки авторизации, ошибочны.
type unauthorizedSession struct {
	td        *client.Client
	closeOnce sync.Once
}

var errNoSession = &domain.SessionInvalidError{Reason: "session is not authorized"}

func (*unauthorizedSession) IsConnected() bool { return true }

func (*unauthorizedSession) Connect(context.Context) error { return nil }

func (*unauthorizedSession) IsAuthorized(context.Context) (bool, error) { return false, nil }

func (*unauthorizedSession) GetMe(context.Context) (domain.Account, error) {
	return domain.Account{}, errNoSession
}

func (*unauthorizedSession) ResolveUsername(context.Context, string) (ports.Peer, error) {
	return ports.Peer{}, errNoSession
}

func (*unauthorizedSession) HasHistory(context.Context, ports.Peer) (bool, error) {
	return false, errNoSession
}

func (*unauthorizedSession) SendMessage(context.Context, ports.Peer, string) error {
	return errNoSession
}

func (*unauthorizedSession) RequestMenuWebView(context.Context, ports.MenuWebViewRequest) (string, error) {
	return "", errNoSession
}

func (*unauthorizedSession) RequestAppWebView(context.Context, ports.AppWebViewRequest) (string, error) {
	return "", errNoSession
}

func (*unauthorizedSession) IsChannelMember(context.Context, string) (bool, error) {
	return false, errNoSession
}

func (*unauthorizedSession) JoinChannel(context.Context, string) (ports.Peer, error) {
	return ports.Peer{}, errNoSession
}

func (*unauthorizedSession) MuteChat(context.Context, ports.Peer) error { return errNoSession }

func (*unauthorizedSession) ArchiveChat(context.Context, ports.Peer) error { return errNoSession }

func (*unauthorizedSession) UpdateUsername(context.Context, string) error { return errNoSession }

func (*unauthorizedSession) UpdateName(context.Context, string, string) error { return errNoSession }

// Close гасит TDLib-клиент, брошенный на шаге авторизации. Ответа не ждём:
// клиент может быть уже закрыт самим go-tdlib.
func (u *unauthorizedSession) Close() error {
	u.closeOnce.Do(func() {
		if u.td != nil {
			go func() { _, _ = u.td.Close() }()
		}
	})
	return nil
}
