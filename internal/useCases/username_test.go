package useCases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/larriantoniy/tg_webapp_api/internal/ports/portstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedGenerator всегда выбирает нижнюю границу диапазона
func fixedGenerator(keepUnderscores bool) *UsernameGenerator {
	return &UsernameGenerator{
		intN: func(n int) int {
			if n == 2 && !keepUnderscores {
				return 1
			}
			return 0
		},
		letters: func(n int) string { return strings.Repeat("q", n) },
	}
}

func TestGenerateUsername(t *testing.T) {
	tests := []struct {
		name      string
		first     string
		last      string
		suffix    *[2]int
		keepUnder bool
		want      string
		wantErr   error
	}{
		{name: "names", first: "Ivan", last: "Petrov", keepUnder: true, want: "ivan_petrov"},
		{name: "names without underscores", first: "Ivan", last: "Petrov", want: "ivanpetrov"},
		{name: "spaces", first: "Anna Maria", last: "", keepUnder: true, want: "anna_maria"},
		{name: "transliterated", first: "Иван", last: "Петров", keepUnder: true, want: "ivan_petrov"},
		{name: "suffix", first: "Ivan", suffix: &[2]int{0, 99}, want: "ivan0"},
		{name: "random", want: "qqqqqqqq"},
		{name: "random with suffix", suffix: &[2]int{1000, 100000000}, want: "qqqqqqqq1000"},
		{name: "too short", first: "Al", wantErr: ErrBadUsername},
		{name: "leading digit", first: "1st", last: "Place", wantErr: ErrBadUsername},
		{
			name:   "long names are cut",
			first:  "Abcdefghijklmnopqrstuvwxyz",
			last:   "Abcdefghijklmnopqrstuvwxyz",
			suffix: &[2]int{1000, 100000000},
			want:   "abcdefghijklmnopqrstuvwxyzab10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fixedGenerator(tt.keepUnder).Generate(tt.first, tt.last, tt.suffix)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, usernamePattern, got)
		})
	}
}

func TestGenerateUsernameRandomized(t *testing.T) {
	g := NewUsernameGenerator()
	for i := 0; i < 50; i++ {
		got, err := g.Generate("", "", &[2]int{1000, 100000000})
		require.NoError(t, err)
		assert.Regexp(t, usernamePattern, got)
	}
}

func newUsernameService() *Service {
	return &Service{
		usernames: fixedGenerator(true),
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestEnsureUsername(t *testing.T) {
	t.Run("already set", func(t *testing.T) {
		s := portstest.NewSession()
		s.Me.Username = "taken"

		got, err := newUsernameService().ensureUsername(context.Background(), s, s.Me)
		require.NoError(t, err)
		assert.Equal(t, "taken", got)
		assert.Empty(t, s.Usernames)
	})

	t.Run("first strategy", func(t *testing.T) {
		s := portstest.NewSession()

		got, err := newUsernameService().ensureUsername(context.Background(), s, s.Me)
		require.NoError(t, err)
		assert.Equal(t, "ivan_petrov", got)
		assert.Equal(t, []string{"ivan_petrov"}, s.Usernames)
	})

	t.Run("falls through in order", func(t *testing.T) {
		s := portstest.NewSession()
		occupied := errors.New("USERNAME_OCCUPIED")
		s.UsernameResults = []error{occupied, occupied, nil}

		got, err := newUsernameService().ensureUsername(context.Background(), s, s.Me)
		require.NoError(t, err)
		assert.Equal(t, "qqqqqqqq", got)
		assert.Equal(t, []string{"ivan_petrov", "ivan_petrov0", "qqqqqqqq"}, s.Usernames)
	})

	t.Run("last failure propagates", func(t *testing.T) {
		s := portstest.NewSession()
		s.UsernameResults = []error{
			errors.New("e1"), errors.New("e2"), errors.New("e3"), errors.New("e4"),
		}

		_, err := newUsernameService().ensureUsername(context.Background(), s, s.Me)
		assert.EqualError(t, err, "e4")
		assert.Equal(t, "qqqqqqqq1000", s.Usernames[3])
	})
}
