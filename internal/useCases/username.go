package useCases

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/larriantoniy/tg_webapp_api/internal/domain"
	"github.com/larriantoniy/tg_webapp_api/internal/ports"
	"github.com/mozillazg/go-unidecode"
	"github.com/thanhpk/randstr"
)

const (
	lowercaseLetters = "abcdefghijklmnopqrstuvwxyz"
	randomBaseLen    = 8
	maxBaseLen       = 28
	maxUsernameLen   = 30
)

var (
	ErrBadUsername    = errors.New("bad username generated")
	ErrUsernameNotSet = errors.New("username not set")

	usernamePattern = regexp.MustCompile(`^[a-zA-Z][\w\d]{3,30}[a-zA-Z\d]$`)
	notUsernameChar = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// usernameStrategy: одна попытка подобрать username, по порядку
type usernameStrategy struct {
	useNames bool
	suffix   *[2]int
}

var usernameStrategies = []usernameStrategy{
	{useNames: true},
	{useNames: true, suffix: &[2]int{0, 99}},
	{},
	{suffix: &[2]int{1000, 100000000}},
}

type UsernameGenerator struct {
	intN    func(n int) int
	letters func(n int) string
}

func NewUsernameGenerator() *UsernameGenerator {
	return &UsernameGenerator{
		intN:    rand.Intn,
		letters: func(n int) string { return randstr.String(n, lowercaseLetters) },
	}
}

// Generate собирает username из имени и фамилии (или случайных букв)
// и необязательного числового суффикса из диапазона [lo, hi].
func (g *UsernameGenerator) Generate(first, last string, suffix *[2]int) (string, error) {
	parts := make([]string, 0, 2)
	for _, p := range []string{first, last} {
		if p != "" {
			parts = append(parts, strings.ReplaceAll(strings.ToLower(p), " ", "_"))
		}
	}
	base := strings.Join(parts, "_")
	if g.intN(2) == 1 {
		base = strings.ReplaceAll(base, "_", "")
	}
	if base == "" {
		base = g.letters(randomBaseLen)
	}

	base = notUsernameChar.ReplaceAllString(unidecode.Unidecode(base), "")
	if len(base) > maxBaseLen {
		base = base[:maxBaseLen]
	}

	username := base
	if suffix != nil {
		username += strconv.Itoa(suffix[0] + g.intN(suffix[1]-suffix[0]+1))
	}
	if len(username) > maxUsernameLen {
		username = username[:maxUsernameLen]
	}

	if !usernamePattern.MatchString(username) {
		return "", ErrBadUsername
	}
	return username, nil
}

// ensureUsername ставит username, если его нет, перебирая стратегии.
// Наружу уходит ошибка последней стратегии.
func (s *Service) ensureUsername(ctx context.Context, session ports.TelegramSession, me domain.Account) (string, error) {
	if me.Username != "" {
		return me.Username, nil
	}

	var lastErr error
	for i, st := range usernameStrategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		first, last := "", ""
		if st.useNames {
			first, last = me.FirstName, me.LastName
		}

		username, err := s.trySetUsername(ctx, session, first, last, st.suffix)
		if err == nil {
			s.log.Info("username set", "user_id", me.ID, "username", username, "strategy", i)
			return username, nil
		}
		s.log.Debug("username strategy failed", "user_id", me.ID, "strategy", i, "error", err)
		lastErr = err
	}
	return "", lastErr
}

func (s *Service) trySetUsername(ctx context.Context, session ports.TelegramSession, first, last string, suffix *[2]int) (string, error) {
	username, err := s.usernames.Generate(first, last, suffix)
	if err != nil {
		return "", err
	}
	if err := session.UpdateUsername(ctx, username); err != nil {
		return "", err
	}

	me, err := session.GetMe(ctx)
	if err != nil {
		return "", err
	}
	if me.Username == "" {
		return "", ErrUsernameNotSet
	}
	return me.Username, nil
}
