package shortener

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultKeyChars is the default token alphabet.
	DefaultKeyChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultKeyLength is the default generated token length.
	DefaultKeyLength = 5
	// DefaultRedirect is where unknown tokens are sent.
	DefaultRedirect = "/"
)

// Config holds the values the shortener core reads.
type Config struct {
	KeyChars        string   // key_chars
	KeyLength       int      // unique_key_length
	ForbiddenKeys   []string // forbidden_keys
	DefaultRedirect string   // default_redirect
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		KeyChars:        DefaultKeyChars,
		KeyLength:       DefaultKeyLength,
		DefaultRedirect: DefaultRedirect,
	}
}

// Validate checks the configuration for values the core cannot work with.
func (c Config) Validate() error {
	if c.KeyChars == "" {
		return errors.New("key chars must not be empty")
	}

	seen := make(map[byte]bool, len(c.KeyChars))

	for i := range len(c.KeyChars) {
		ch := c.KeyChars[i]
		if ch > 0x7f || ch <= ' ' {
			return fmt.Errorf("key chars must be printable ascii, got %q", ch)
		}

		if seen[ch] {
			return fmt.Errorf("key chars contain duplicate %q", ch)
		}

		seen[ch] = true
	}

	if c.KeyLength <= 0 {
		return fmt.Errorf("key length must be positive, got %d", c.KeyLength)
	}

	if c.DefaultRedirect == "" {
		return errors.New("default redirect must not be empty")
	}

	return nil
}

// ParseForbiddenKeys splits a comma separated list, dropping blanks.
func ParseForbiddenKeys(raw string) []string {
	var keys []string

	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	return keys
}

// alphabet is a byte-indexed membership table for the configured key chars.
type alphabet [256]bool

func newAlphabet(chars string) *alphabet {
	var a alphabet

	for i := range len(chars) {
		a[chars[i]] = true
	}

	return &a
}

func (a *alphabet) contains(b byte) bool {
	return a[b]
}
