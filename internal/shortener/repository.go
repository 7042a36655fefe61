package shortener

import (
	"context"
	"time"
)

// Repository persists links.
//
// Insert must enforce token uniqueness atomically and report a violation as
// ErrTokenConflict. Lookups return ErrNotFound when nothing matches.
type Repository interface {
	// Insert stores a new link and fills in its ID and CreatedAt.
	Insert(ctx context.Context, link *Link) error

	// FindUnexpired returns the link with exactly this token whose expiry is unset
	// or strictly after now.
	FindUnexpired(ctx context.Context, token Token, now time.Time) (*Link, error)

	// FindByToken returns the link with this token, expired or not.
	FindByToken(ctx context.Context, token Token) (*Link, error)

	// FindByDestination returns the oldest link for a cleaned destination URL and owner.
	FindByDestination(ctx context.Context, destinationURL string, owner Owner) (*Link, error)

	// ListByOwner returns the owner's links, newest first.
	ListByOwner(ctx context.Context, owner Owner) ([]*Link, error)

	// TokenExists is an advisory check; it never replaces the Insert constraint.
	TokenExists(ctx context.Context, token Token) (bool, error)

	UseCounter
}

// UseCounter increments a link's use count.
type UseCounter interface {
	IncrementUseCount(ctx context.Context, token Token) error
}
