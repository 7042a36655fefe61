package shortener

import (
	"fmt"
	"strings"

	"github.com/jaevor/go-nanoid"
)

// KeyFunc produces candidate tokens.
type KeyFunc func() Token

// KeyGenerator draws random tokens from the configured alphabet and skips any
// candidate containing a forbidden word.
//
// The forbidden-word loop has no attempt cap. It terminates quickly as long as the
// forbidden list is small relative to the keyspace; a list that matches most of the
// keyspace makes Generate spin.
type KeyGenerator struct {
	draw      func() string
	forbidden []string // lowercased
}

// NewKeyGenerator creates a generator for cfg's alphabet, length and forbidden keys.
func NewKeyGenerator(cfg Config) (*KeyGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	draw, err := nanoid.CustomASCII(cfg.KeyChars, cfg.KeyLength)
	if err != nil {
		return nil, fmt.Errorf("key generator: %w", err)
	}

	forbidden := make([]string, 0, len(cfg.ForbiddenKeys))
	for _, k := range cfg.ForbiddenKeys {
		forbidden = append(forbidden, strings.ToLower(k))
	}

	return &KeyGenerator{draw: draw, forbidden: forbidden}, nil
}

// Generate returns a random token that contains no forbidden word. It does not
// check the token against storage.
func (g *KeyGenerator) Generate() Token {
	for {
		candidate := g.draw()
		if !g.isForbidden(candidate) {
			return Token(candidate)
		}
	}
}

func (g *KeyGenerator) isForbidden(candidate string) bool {
	if len(g.forbidden) == 0 {
		return false
	}

	lower := strings.ToLower(candidate)

	for _, word := range g.forbidden {
		if strings.Contains(lower, word) {
			return true
		}
	}

	return false
}
