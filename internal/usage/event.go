package usage

import "time"

const (
	TopicLinkCreated  = "link.created"
	TopicLinkResolved = "link.resolved"
)

// LinkCreatedEvent is emitted after a link is stored.
type LinkCreatedEvent struct {
	Token          string     `json:"token"`
	DestinationURL string     `json:"destinationUrl"`
	OwnerKind      string     `json:"ownerKind,omitempty"`
	OwnerID        string     `json:"ownerId,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	ClientIP       string     `json:"clientIp"`
	UserAgent      string     `json:"userAgent"`
}

// LinkResolvedEvent is emitted for every redirect that matched a link.
type LinkResolvedEvent struct {
	Token      string    `json:"token"`
	ResolvedAt time.Time `json:"resolvedAt"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
	Referrer   string    `json:"referrer,omitempty"`
}
