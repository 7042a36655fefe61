package shortener_test

import (
	"strings"
	"testing"

	"github.com/serroba/shortlink/internal/shortener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyGenerator_Generate(t *testing.T) {
	t.Run("uses configured length and alphabet", func(t *testing.T) {
		cfg := shortener.DefaultConfig()
		cfg.KeyLength = 7

		gen, err := shortener.NewKeyGenerator(cfg)
		require.NoError(t, err)

		for range 200 {
			token := gen.Generate()

			require.Len(t, token, 7)

			for _, ch := range string(token) {
				assert.True(t, strings.ContainsRune(cfg.KeyChars, ch), "unexpected char %q", ch)
			}
		}
	})

	t.Run("skips forbidden words", func(t *testing.T) {
		cfg := shortener.DefaultConfig()
		cfg.KeyChars = "ab"
		cfg.KeyLength = 2
		cfg.ForbiddenKeys = []string{"a"}

		gen, err := shortener.NewKeyGenerator(cfg)
		require.NoError(t, err)

		for range 50 {
			assert.Equal(t, shortener.Token("bb"), gen.Generate())
		}
	})

	t.Run("matches forbidden words case-insensitively", func(t *testing.T) {
		cfg := shortener.DefaultConfig()
		cfg.KeyChars = "XYZ"
		cfg.KeyLength = 3
		cfg.ForbiddenKeys = []string{"x", "Y"}

		gen, err := shortener.NewKeyGenerator(cfg)
		require.NoError(t, err)

		for range 50 {
			assert.Equal(t, shortener.Token("ZZZ"), gen.Generate())
		}
	})

	t.Run("produces varied tokens", func(t *testing.T) {
		gen, err := shortener.NewKeyGenerator(shortener.DefaultConfig())
		require.NoError(t, err)

		seen := make(map[shortener.Token]bool)
		for range 100 {
			seen[gen.Generate()] = true
		}

		assert.Greater(t, len(seen), 90)
	})
}

func TestNewKeyGenerator_InvalidConfig(t *testing.T) {
	tests := map[string]func(*shortener.Config){
		"empty alphabet":      func(c *shortener.Config) { c.KeyChars = "" },
		"non-ascii alphabet":  func(c *shortener.Config) { c.KeyChars = "abcé" },
		"duplicate chars":     func(c *shortener.Config) { c.KeyChars = "abca" },
		"zero length":         func(c *shortener.Config) { c.KeyLength = 0 },
		"no default redirect": func(c *shortener.Config) { c.DefaultRedirect = "" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := shortener.DefaultConfig()
			mutate(&cfg)

			gen, err := shortener.NewKeyGenerator(cfg)

			assert.Nil(t, gen)
			assert.Error(t, err)
		})
	}
}

func TestParseForbiddenKeys(t *testing.T) {
	assert.Equal(t, []string{"admin", "api"}, shortener.ParseForbiddenKeys(" admin, ,api,"))
	assert.Empty(t, shortener.ParseForbiddenKeys(""))
}
