package shortener

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const countTimeout = 5 * time.Second

// LinkFinder looks up unexpired links by exact token.
type LinkFinder interface {
	FindUnexpired(ctx context.Context, token Token) (*Link, error)
}

// Outcome is where a resolution redirects to.
type Outcome struct {
	Location string
	Status   int
	// Link is the matched link, nil on a miss.
	Link *Link
	// LookupErr is set when the lookup failed for a reason other than not found.
	LookupErr error
}

// Resolver turns an inbound token and query into a redirect.
type Resolver struct {
	finder          LinkFinder
	counter         UseCounter
	alphabet        *alphabet
	defaultRedirect string
	logger          *zap.Logger
	inflight        sync.WaitGroup
}

// NewResolver creates a resolver. Use counts are incremented through counter.
func NewResolver(finder LinkFinder, counter UseCounter, cfg Config, logger *zap.Logger) *Resolver {
	return &Resolver{
		finder:          finder,
		counter:         counter,
		alphabet:        newAlphabet(cfg.KeyChars),
		defaultRedirect: cfg.DefaultRedirect,
		logger:          logger,
	}
}

// Resolve finds the link for rawToken and builds the redirect target. Misses and
// lookup failures redirect to the default location with 302 Found; hits redirect
// with 301 Moved Permanently.
func (r *Resolver) Resolve(ctx context.Context, rawToken string, query url.Values) Outcome {
	token := r.ExtractToken(rawToken)
	if token == "" {
		return r.miss(nil)
	}

	link, err := r.finder.FindUnexpired(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Error("link lookup failed", zap.String("token", string(token)), zap.Error(err))

			return r.miss(err)
		}

		r.logger.Debug("link not found", zap.String("token", string(token)))

		return r.miss(nil)
	}

	r.countUse(ctx, link.Token)

	location := link.DestinationURL

	if len(query) > 0 {
		merged, err := MergeQuery(link.DestinationURL, query)
		if err != nil {
			r.logger.Warn("stored url could not be merged, redirecting without query",
				zap.String("token", string(token)),
				zap.Error(err),
			)
		} else {
			location = merged
		}
	}

	return Outcome{
		Location: location,
		Status:   http.StatusMovedPermanently,
		Link:     link,
	}
}

// ExtractToken returns the longest prefix of raw made only of alphabet characters.
func (r *Resolver) ExtractToken(raw string) Token {
	for i := range len(raw) {
		if !r.alphabet.contains(raw[i]) {
			return Token(raw[:i])
		}
	}

	return Token(raw)
}

// Shutdown waits for in-flight use count increments.
func (r *Resolver) Shutdown() error {
	r.inflight.Wait()

	return nil
}

func (r *Resolver) miss(err error) Outcome {
	return Outcome{
		Location:  r.defaultRedirect,
		Status:    http.StatusFound,
		LookupErr: err,
	}
}

// countUse increments the use count off the request path. Failures are logged only.
func (r *Resolver) countUse(ctx context.Context, token Token) {
	r.inflight.Add(1)

	go func() {
		defer r.inflight.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), countTimeout)
		defer cancel()

		if err := r.counter.IncrementUseCount(ctx, token); err != nil {
			r.logger.Warn("failed to increment use count",
				zap.String("token", string(token)),
				zap.Error(err),
			)
		}
	}()
}

// MergeQuery merges inbound parameters into stored's query string. An inbound key
// replaces every stored value for that key. Other stored pairs are kept verbatim,
// including ones that do not parse as form values. The rest of the URL is left
// untouched.
func MergeQuery(stored string, inbound url.Values) (string, error) {
	u, err := url.Parse(stored)
	if err != nil {
		return "", err
	}

	pairs := make([]string, 0, len(inbound)+1)

	if u.RawQuery != "" {
		for _, pair := range strings.Split(u.RawQuery, "&") {
			if pair == "" {
				continue
			}

			key, _, _ := strings.Cut(pair, "=")
			if unescaped, err := url.QueryUnescape(key); err == nil {
				key = unescaped
			}

			if _, replaced := inbound[key]; replaced {
				continue
			}

			pairs = append(pairs, pair)
		}
	}

	if encoded := inbound.Encode(); encoded != "" {
		pairs = append(pairs, encoded)
	}

	u.RawQuery = strings.Join(pairs, "&")

	return u.String(), nil
}
