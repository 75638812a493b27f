// Package portstest provides in-memory implementations of the ports for tests.
package portstest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/larriantoniy/tg_webapp_api/internal/ports"
)

type SentMessage struct {
	Peer ports.Peer
	Text string
}

// Session is a scriptable ports.TelegramSession.
// Fail makes the named method return the error, Block makes it wait for ctx.
type Session struct {
	mu sync.Mutex

	Connected  bool
	Authorized bool
	Me         domain.Account

	// Peers by username without "@"; unknown usernames resolve to a generated peer
	Peers   map[string]ports.Peer
	History map[int64]bool
	Members map[string]bool

	MenuURL string
	AppURL  string

	// UsernameResults are consumed per UpdateUsername call; nil accepts the name
	UsernameResults []error

	Fail  map[string]error
	Block map[string]bool

	Calls        []string
	Sent         []SentMessage
	MenuRequests []ports.MenuWebViewRequest
	AppRequests  []ports.AppWebViewRequest
	Joined       []string
	Muted        []int64
	Archived     []int64
	Usernames    []string
	Names        [][2]string
	Closes       int
}

func NewSession() *Session {
	return &Session{
		Connected:  true,
		Authorized: true,
		Me:         domain.Account{ID: 42, Phone: "79990001122", FirstName: "Ivan", LastName: "Petrov"},
		Peers:      map[string]ports.Peer{},
		History:    map[int64]bool{},
		Members:    map[string]bool{},
		Fail:       map[string]error{},
		Block:      map[string]bool{},
	}
}

func (s *Session) enter(ctx context.Context, op string) error {
	s.mu.Lock()
	s.Calls = append(s.Calls, op)
	err := s.Fail[op]
	block := s.Block[op]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Connected
}

func (s *Session) Connect(ctx context.Context) error {
	if err := s.enter(ctx, "Connect"); err != nil {
		return err
	}
	s.mu.Lock()
	s.Connected = true
	s.mu.Unlock()
	return nil
}

func (s *Session) IsAuthorized(ctx context.Context) (bool, error) {
	if err := s.enter(ctx, "IsAuthorized"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Authorized, nil
}

func (s *Session) GetMe(ctx context.Context) (domain.Account, error) {
	if err := s.enter(ctx, "GetMe"); err != nil {
		return domain.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Me, nil
}

func (s *Session) ResolveUsername(ctx context.Context, username string) (ports.Peer, error) {
	if err := s.enter(ctx, "ResolveUsername"); err != nil {
		return ports.Peer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.TrimPrefix(username, "@")
	if p, ok := s.Peers[username]; ok {
		return p, nil
	}
	id := int64(1000 + len(s.Peers))
	p := ports.Peer{ChatID: id, UserID: id, Username: username}
	s.Peers[username] = p
	return p, nil
}

func (s *Session) HasHistory(ctx context.Context, peer ports.Peer) (bool, error) {
	if err := s.enter(ctx, "HasHistory"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.History[peer.ChatID], nil
}

func (s *Session) SendMessage(ctx context.Context, peer ports.Peer, text string) error {
	if err := s.enter(ctx, "SendMessage"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, SentMessage{Peer: peer, Text: text})
	s.History[peer.ChatID] = true
	return nil
}

func (s *Session) RequestMenuWebView(ctx context.Context, req ports.MenuWebViewRequest) (string, error) {
	if err := s.enter(ctx, "RequestMenuWebView"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MenuRequests = append(s.MenuRequests, req)
	return s.MenuURL, nil
}

func (s *Session) RequestAppWebView(ctx context.Context, req ports.AppWebViewRequest) (string, error) {
	if err := s.enter(ctx, "RequestAppWebView"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AppRequests = append(s.AppRequests, req)
	return s.AppURL, nil
}

func (s *Session) IsChannelMember(ctx context.Context, channel string) (bool, error) {
	if err := s.enter(ctx, "IsChannelMember"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Members[channel], nil
}

func (s *Session) JoinChannel(ctx context.Context, channel string) (ports.Peer, error) {
	if err := s.enter(ctx, "JoinChannel"); err != nil {
		return ports.Peer{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Joined = append(s.Joined, channel)
	s.Members[channel] = true
	id := int64(5000 + len(s.Joined))
	return ports.Peer{ChatID: id, Username: strings.TrimPrefix(channel, "@")}, nil
}

func (s *Session) MuteChat(ctx context.Context, peer ports.Peer) error {
	if err := s.enter(ctx, "MuteChat"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Muted = append(s.Muted, peer.ChatID)
	return nil
}

func (s *Session) ArchiveChat(ctx context.Context, peer ports.Peer) error {
	if err := s.enter(ctx, "ArchiveChat"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Archived = append(s.Archived, peer.ChatID)
	return nil
}

func (s *Session) UpdateUsername(ctx context.Context, username string) error {
	if err := s.enter(ctx, "UpdateUsername"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Usernames = append(s.Usernames, username)

	if len(s.UsernameResults) > 0 {
		err := s.UsernameResults[0]
		s.UsernameResults = s.UsernameResults[1:]
		if err != nil {
			return err
		}
	}
	s.Me.Username = username
	return nil
}

func (s *Session) UpdateName(ctx context.Context, firstName, lastName string) error {
	if err := s.enter(ctx, "UpdateName"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Names = append(s.Names, [2]string{firstName, lastName})
	s.Me.FirstName, s.Me.LastName = firstName, lastName
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closes++
	return s.Fail["Close"]
}

func (s *Session) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Closes
}

// Opener hands out sessions; Errs are returned by the first calls in order.
type Opener struct {
	mu sync.Mutex

	Errs       []error
	NewSession func() *Session

	Calls   int
	Paths   []string
	Bundles []domain.CredentialBundle
	Proxies []domain.ProxyDescriptor
	Opened  []*Session
}

func (o *Opener) OpenPortable(ctx context.Context, path string, creds domain.CredentialBundle, proxy domain.ProxyDescriptor) (ports.TelegramSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.Calls++
	o.Paths = append(o.Paths, path)
	o.Bundles = append(o.Bundles, creds)
	o.Proxies = append(o.Proxies, proxy)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(o.Errs) > 0 {
		err := o.Errs[0]
		o.Errs = o.Errs[1:]
		if err != nil {
			return nil, err
		}
	}

	var s *Session
	if o.NewSession != nil {
		s = o.NewSession()
	} else {
		s = NewSession()
	}
	o.Opened = append(o.Opened, s)
	return s, nil
}

// Releases sums Close calls over every session handed out
func (o *Opener) Releases() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, s := range o.Opened {
		n += s.CloseCount()
	}
	return n
}

func (o *Opener) Acquired() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Opened)
}

// LegacyStore keeps containers in memory
type LegacyStore struct {
	mu sync.Mutex

	Containers map[string]*domain.LegacyContainer
	LoadErr    error
	ExportErr  error

	Materialized []string
	Exported     []string
}

func NewLegacyStore() *LegacyStore {
	return &LegacyStore{Containers: map[string]*domain.LegacyContainer{}}
}

func (l *LegacyStore) Load(_ context.Context, path string) (*domain.LegacyContainer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LoadErr != nil {
		return nil, l.LoadErr
	}
	c, ok := l.Containers[path]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", path, domain.ErrLegacyUnauthorized)
	}
	return c, nil
}

func (l *LegacyStore) Materialize(_ context.Context, c *domain.LegacyContainer, artifactPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Materialized = append(l.Materialized, artifactPath)
	return nil
}

func (l *LegacyStore) Export(_ context.Context, artifactPath, legacyPath string, _ domain.CredentialBundle, _ domain.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ExportErr != nil {
		return l.ExportErr
	}
	l.Exported = append(l.Exported, legacyPath)
	return nil
}

// Locker records lock/unlock pairs; Busy keys fail with domain.ErrSessionInUse.
type Locker struct {
	mu sync.Mutex

	Busy     map[string]bool
	Locks    int
	Unlocks  int
	LastKeys []string
}

func (l *Locker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Busy[key] {
		return nil, domain.ErrSessionInUse
	}
	l.Locks++
	l.LastKeys = append(l.LastKeys, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.Unlocks++
	}, nil
}
