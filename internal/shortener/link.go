package shortener

import "time"

// Token is the short key that identifies a link.
type Token string

// Owner references the entity a link belongs to. The zero value means no owner.
type Owner struct {
	Kind string
	ID   string
}

// IsZero reports whether the owner is unset.
func (o Owner) IsZero() bool {
	return o.Kind == "" && o.ID == ""
}

// Link maps a token to a destination URL.
type Link struct {
	ID             int64
	Token          Token
	DestinationURL string
	Owner          Owner
	ExpiresAt      *time.Time // nil never expires
	UseCount       int64
	CreatedAt      time.Time
}

// ExpiredAt reports whether the link is expired at t. A link expiring exactly at t
// is expired.
func (l *Link) ExpiredAt(t time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(t)
}
