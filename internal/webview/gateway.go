package webview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/larriantoniy/tg_webapp_api/internal/ports"
)

const (
	dataMarker    = "tgWebAppData="
	versionMarker = "&tgWebAppVersion"

	startCommand = "/start"
)

var ErrNoWebAppData = errors.New("tgWebAppData not found in web view url")

// Result: данные рукопожатия mini app
type Result struct {
	Payload string
	RawURL  string
}

type Gateway struct {
	log *slog.Logger
}

func NewGateway(log *slog.Logger) *Gateway {
	return &Gateway{log: log}
}

// Perform выполняет рукопожатие по дескриптору и извлекает tgWebAppData
func (g *Gateway) Perform(ctx context.Context, s ports.TelegramSession, d domain.IntegrationDescriptor, referral *string, platform string) (Result, error) {
	if d.SeedStartCommand {
		if err := StartBot(ctx, s, d.Bot, referral); err != nil {
			return Result{}, err
		}
	}

	var (
		rawURL string
		err    error
	)
	switch d.Kind {
	case domain.HandshakeBotMenu:
		rawURL, err = g.menuWebView(ctx, s, d, referral, platform)
	case domain.HandshakeShortNameApp:
		rawURL, err = g.appWebView(ctx, s, d, referral, platform)
	default:
		return Result{}, fmt.Errorf("integration %q: unsupported handshake %q", d.Key, d.Kind)
	}
	if err != nil {
		return Result{}, err
	}

	payload, err := ExtractPayload(rawURL)
	if err != nil {
		return Result{}, err
	}

	g.log.Debug("web view handshake done", "service", d.Key, "bot", d.Bot)
	return Result{Payload: payload, RawURL: rawURL}, nil
}

func (g *Gateway) menuWebView(ctx context.Context, s ports.TelegramSession, d domain.IntegrationDescriptor, referral *string, platform string) (string, error) {
	bot, err := s.ResolveUsername(ctx, d.Bot)
	if err != nil {
		return "", err
	}

	var start *string
	if !d.ReferralSeedOnly {
		start = referral
	}

	return s.RequestMenuWebView(ctx, ports.MenuWebViewRequest{
		Bot:        bot,
		URL:        d.EntryURL,
		Platform:   platform,
		StartParam: start,
	})
}

func (g *Gateway) appWebView(ctx context.Context, s ports.TelegramSession, d domain.IntegrationDescriptor, referral *string, platform string) (string, error) {
	bot, err := s.ResolveUsername(ctx, d.Bot)
	if err != nil {
		return "", err
	}

	var start *string
	if referral != nil && !d.ReferralSeedOnly {
		v := d.ReferralPrefix + *referral
		start = &v
	}

	return s.RequestAppWebView(ctx, ports.AppWebViewRequest{
		Bot:        bot,
		ShortName:  d.ShortName,
		Platform:   platform,
		StartParam: start,
	})
}

// StartBot отправляет боту "/start [referral]", если переписки с ним ещё нет.
// Повторный вызов ничего не отправляет.
func StartBot(ctx context.Context, s ports.TelegramSession, bot string, referral *string) error {
	peer, err := s.ResolveUsername(ctx, bot)
	if err != nil {
		return err
	}

	hasHistory, err := s.HasHistory(ctx, peer)
	if err != nil {
		return err
	}
	if hasHistory {
		return nil
	}

	cmd := startCommand
	if referral != nil && *referral != "" {
		cmd += " " + *referral
	}
	return s.SendMessage(ctx, peer, cmd)
}

// ExtractPayload декодирует URL один раз, вырезает значение между
// tgWebAppData= и &tgWebAppVersion и декодирует его второй раз:
// удалённая сторона кодирует данные повторно.
func ExtractPayload(rawURL string) (string, error) {
	once, err := url.PathUnescape(rawURL)
	if err != nil {
		return "", fmt.Errorf("decode web view url: %w", err)
	}

	_, rest, ok := strings.Cut(once, dataMarker)
	if !ok {
		return "", ErrNoWebAppData
	}
	encoded, _, ok := strings.Cut(rest, versionMarker)
	if !ok {
		return "", ErrNoWebAppData
	}

	payload, err := url.PathUnescape(encoded)
	if err != nil {
		return "", fmt.Errorf("decode tgWebAppData: %w", err)
	}
	return payload, nil
}
