package shortener_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingFinder struct{ err error }

func (f failingFinder) FindUnexpired(context.Context, shortener.Token) (*shortener.Link, error) {
	return nil, f.err
}

type failingCounter struct{ calls int }

func (c *failingCounter) IncrementUseCount(context.Context, shortener.Token) error {
	c.calls++

	return errStoreDown
}

func setupResolver(t *testing.T) (*shortener.Resolver, *shortener.Service, *store.MemoryStore) {
	t.Helper()

	repo := store.NewMemoryStore()
	svc := newService(t, repo, nil)

	return shortener.NewResolver(svc, repo, shortener.DefaultConfig(), zap.NewNop()), svc, repo
}

func TestResolver_ExtractToken(t *testing.T) {
	resolver, _, _ := setupResolver(t)

	tests := map[string]shortener.Token{
		"abc12":          "abc12",
		"abc12/trailing": "abc12",
		"abc12.html":     "abc12",
		"abc12?x=1":      "abc12",
		"-abc":           "",
		"":               "",
	}

	for raw, expected := range tests {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, expected, resolver.ExtractToken(raw))
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("hit redirects permanently to stored url", func(t *testing.T) {
		resolver, svc, _ := setupResolver(t)

		link, err := svc.CreateUnique(ctx, "https://example.com/x?a=1", shortener.Owner{}, nil, "")
		require.NoError(t, err)

		out := resolver.Resolve(ctx, string(link.Token), nil)

		assert.Equal(t, http.StatusMovedPermanently, out.Status)
		assert.Equal(t, "https://example.com/x?a=1", out.Location)
		require.NotNil(t, out.Link)
		assert.Equal(t, link.Token, out.Link.Token)
		assert.NoError(t, out.LookupErr)
	})

	t.Run("merges inbound query over stored query", func(t *testing.T) {
		resolver, svc, _ := setupResolver(t)

		link, err := svc.CreateUnique(ctx, "https://example.com/x?a=1&b=2", shortener.Owner{}, nil, "")
		require.NoError(t, err)

		out := resolver.Resolve(ctx, string(link.Token), url.Values{"b": {"3"}, "c": {"4"}})

		assert.Equal(t, "https://example.com/x?a=1&b=3&c=4", out.Location)
	})

	t.Run("tolerates trailing path", func(t *testing.T) {
		resolver, svc, _ := setupResolver(t)

		link, err := svc.CreateUnique(ctx, "/target", shortener.Owner{}, nil, "")
		require.NoError(t, err)

		out := resolver.Resolve(ctx, string(link.Token)+"/anything", nil)

		assert.Equal(t, http.StatusMovedPermanently, out.Status)
		assert.Equal(t, "/target", out.Location)
	})

	t.Run("miss goes to default redirect", func(t *testing.T) {
		resolver, _, _ := setupResolver(t)

		out := resolver.Resolve(ctx, "nope1", url.Values{"a": {"1"}})

		assert.Equal(t, http.StatusFound, out.Status)
		assert.Equal(t, shortener.DefaultRedirect, out.Location)
		assert.Nil(t, out.Link)
		assert.NoError(t, out.LookupErr)
	})

	t.Run("expired link is a miss", func(t *testing.T) {
		resolver, svc, _ := setupResolver(t)

		past := time.Now().Add(-time.Minute)

		link, err := svc.CreateUnique(ctx, "/gone", shortener.Owner{}, &past, "")
		require.NoError(t, err)

		out := resolver.Resolve(ctx, string(link.Token), nil)

		assert.Equal(t, http.StatusFound, out.Status)
		assert.Equal(t, shortener.DefaultRedirect, out.Location)
	})

	t.Run("lookup failure falls back to default", func(t *testing.T) {
		resolver := shortener.NewResolver(
			failingFinder{err: errStoreDown}, store.NewMemoryStore(), shortener.DefaultConfig(), zap.NewNop(),
		)

		out := resolver.Resolve(ctx, "abc12", nil)

		assert.Equal(t, http.StatusFound, out.Status)
		assert.Equal(t, shortener.DefaultRedirect, out.Location)
		require.ErrorIs(t, out.LookupErr, errStoreDown)
	})

	t.Run("counts each hit", func(t *testing.T) {
		resolver, svc, repo := setupResolver(t)

		link, err := svc.CreateUnique(ctx, "/counted", shortener.Owner{}, nil, "")
		require.NoError(t, err)

		for range 3 {
			resolver.Resolve(ctx, string(link.Token), nil)
		}

		require.NoError(t, resolver.Shutdown())

		got, err := repo.FindByToken(ctx, link.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.UseCount)
	})

	t.Run("count failure does not change the redirect", func(t *testing.T) {
		repo := store.NewMemoryStore()
		svc := newService(t, repo, nil)
		counter := &failingCounter{}
		resolver := shortener.NewResolver(svc, counter, shortener.DefaultConfig(), zap.NewNop())

		link, err := svc.CreateUnique(ctx, "/still-works", shortener.Owner{}, nil, "")
		require.NoError(t, err)

		out := resolver.Resolve(ctx, string(link.Token), nil)
		require.NoError(t, resolver.Shutdown())

		assert.Equal(t, http.StatusMovedPermanently, out.Status)
		assert.Equal(t, "/still-works", out.Location)
		assert.Equal(t, 1, counter.calls)
	})
}

func TestMergeQuery(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		inbound  url.Values
		expected string
	}{
		{
			name:     "adds to url without query",
			stored:   "https://example.com/x",
			inbound:  url.Values{"utm": {"mail"}},
			expected: "https://example.com/x?utm=mail",
		},
		{
			name:     "inbound replaces every stored value",
			stored:   "/x?tag=a&tag=b&keep=1",
			inbound:  url.Values{"tag": {"c"}},
			expected: "/x?keep=1&tag=c",
		},
		{
			name:     "keeps inbound multi values",
			stored:   "/x",
			inbound:  url.Values{"tag": {"a", "b"}},
			expected: "/x?tag=a&tag=b",
		},
		{
			name:     "preserves fragment",
			stored:   "https://example.com/x?a=1#section",
			inbound:  url.Values{"b": {"2"}},
			expected: "https://example.com/x?a=1&b=2#section",
		},
		{
			name:     "keeps stored pair with semicolon",
			stored:   "https://example.com/p?a=1;b=2",
			inbound:  url.Values{"c": {"3"}},
			expected: "https://example.com/p?a=1;b=2&c=3",
		},
		{
			name:     "keeps stored pair with bad escape",
			stored:   "https://example.com/p?a=%zz&keep=1",
			inbound:  url.Values{"c": {"3"}},
			expected: "https://example.com/p?a=%zz&keep=1&c=3",
		},
		{
			name:     "replaces escaped stored key",
			stored:   "/x?utm%5Fsource=old&a=1",
			inbound:  url.Values{"utm_source": {"new"}},
			expected: "/x?a=1&utm_source=new",
		},
		{
			name:     "keeps stored order",
			stored:   "/x?z=1&a=2",
			inbound:  url.Values{"m": {"3"}},
			expected: "/x?z=1&a=2&m=3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shortener.MergeQuery(tt.stored, tt.inbound)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("does not alias inbound values", func(t *testing.T) {
		inbound := url.Values{"a": {"1"}}

		_, err := shortener.MergeQuery("/x", inbound)
		require.NoError(t, err)

		assert.Equal(t, url.Values{"a": {"1"}}, inbound)
	})
}
