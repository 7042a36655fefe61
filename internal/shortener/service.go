package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MaxKeyAttempts bounds inserts with a generated key: the first try plus five retries.
const MaxKeyAttempts = 6

const writeTimeout = 10 * time.Second

// CreateRequest describes a link to create.
type CreateRequest struct {
	DestinationURL string
	Owner          Owner
	CustomKey      Token
	ExpiresAt      *time.Time
	// Fresh always inserts a new link instead of reusing one with the same
	// destination and owner.
	Fresh bool
}

// Service allocates unique tokens and creates links. Token uniqueness is left to
// the repository's insert constraint; existence checks are never trusted for it.
type Service struct {
	repo        Repository
	generateKey KeyFunc
	alphabet    *alphabet
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a link service.
func NewService(repo Repository, generateKey KeyFunc, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		generateKey: generateKey,
		alphabet:    newAlphabet(cfg.KeyChars),
		logger:      logger,
		now:         time.Now,
	}
}

// CreateUnique inserts a new link. A custom key is tried once and reported as
// ErrCustomKeyTaken on conflict. Generated keys are retried on conflict up to
// MaxKeyAttempts times before failing with ErrKeyAllocationExhausted.
func (s *Service) CreateUnique(
	ctx context.Context, destinationURL string, owner Owner, expiresAt *time.Time, customKey Token,
) (*Link, error) {
	cleaned, err := CleanURL(destinationURL)
	if err != nil {
		return nil, err
	}

	template := Link{
		DestinationURL: cleaned,
		Owner:          owner,
		ExpiresAt:      expiresAt,
	}

	// Writes are not abandoned when the caller disconnects.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if customKey != "" {
		return s.insertCustom(ctx, template, customKey)
	}

	return s.insertGenerated(ctx, template)
}

func (s *Service) insertCustom(ctx context.Context, template Link, key Token) (*Link, error) {
	if !s.validKey(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCustomKey, key)
	}

	link := template
	link.Token = key

	err := s.repo.Insert(ctx, &link)
	if errors.Is(err, ErrTokenConflict) {
		return nil, fmt.Errorf("%w: %q", ErrCustomKeyTaken, key)
	}

	if err != nil {
		return nil, fmt.Errorf("insert link: %w", err)
	}

	return &link, nil
}

func (s *Service) insertGenerated(ctx context.Context, template Link) (*Link, error) {
	for attempt := 1; attempt <= MaxKeyAttempts; attempt++ {
		link := template
		link.Token = s.generateKey()

		err := s.repo.Insert(ctx, &link)
		if err == nil {
			return &link, nil
		}

		if !errors.Is(err, ErrTokenConflict) {
			return nil, fmt.Errorf("insert link: %w", err)
		}

		s.logger.Info("token collision, retrying with a different key",
			zap.String("token", string(link.Token)),
			zap.Int("attempt", attempt),
		)
	}

	s.logger.Warn("too many token collisions, giving up", zap.Int("attempts", MaxKeyAttempts))

	return nil, fmt.Errorf("%w after %d attempts", ErrKeyAllocationExhausted, MaxKeyAttempts)
}

// Generate returns a link for the request. Unless Fresh is set, an existing link
// with the same cleaned destination and owner is returned instead of a new one.
func (s *Service) Generate(ctx context.Context, req CreateRequest) (*Link, error) {
	cleaned, err := CleanURL(req.DestinationURL)
	if err != nil {
		return nil, err
	}

	if !req.Fresh {
		existing, err := s.repo.FindByDestination(ctx, cleaned, req.Owner)
		if err == nil {
			return existing, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("find by destination: %w", err)
		}
	}

	return s.CreateUnique(ctx, cleaned, req.Owner, req.ExpiresAt, req.CustomKey)
}

// GenerateFromLink returns link unchanged when it already belongs to req.Owner,
// otherwise creates a link to the same destination for the new owner.
func (s *Service) GenerateFromLink(ctx context.Context, link *Link, req CreateRequest) (*Link, error) {
	if link.Owner == req.Owner {
		return link, nil
	}

	req.DestinationURL = link.DestinationURL

	return s.Generate(ctx, req)
}

// GenerateOrNil is Generate that never fails: any error is logged and nil returned.
func (s *Service) GenerateOrNil(ctx context.Context, req CreateRequest) (link *Link) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("link generation panicked", zap.Any("panic", r))

			link = nil
		}
	}()

	link, err := s.Generate(ctx, req)
	if err != nil {
		s.logger.Info("link generation failed",
			zap.String("url", req.DestinationURL),
			zap.Error(err),
		)

		return nil
	}

	return link
}

// BuildWithoutSave proposes an unsaved link whose token was free at the time of
// the check. The check is advisory: inserting the link can still conflict.
func (s *Service) BuildWithoutSave(ctx context.Context, destinationURL string, owner Owner) (*Link, error) {
	cleaned, err := CleanURL(destinationURL)
	if err != nil {
		return nil, err
	}

	for range MaxKeyAttempts {
		token := s.generateKey()

		exists, err := s.repo.TokenExists(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("check token: %w", err)
		}

		if !exists {
			return &Link{Token: token, DestinationURL: cleaned, Owner: owner}, nil
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrKeyAllocationExhausted, MaxKeyAttempts)
}

// FindUnexpired returns the link for token if it has not expired.
func (s *Service) FindUnexpired(ctx context.Context, token Token) (*Link, error) {
	return s.repo.FindUnexpired(ctx, token, s.now())
}

// Get returns the link for token, expired or not.
func (s *Service) Get(ctx context.Context, token Token) (*Link, error) {
	return s.repo.FindByToken(ctx, token)
}

// ListByOwner returns the owner's links.
func (s *Service) ListByOwner(ctx context.Context, owner Owner) ([]*Link, error) {
	return s.repo.ListByOwner(ctx, owner)
}

func (s *Service) validKey(key Token) bool {
	for i := range len(key) {
		if !s.alphabet.contains(key[i]) {
			return false
		}
	}

	return true
}
