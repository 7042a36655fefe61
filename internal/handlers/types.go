package handlers

import (
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// CreateLinkBody describes a link to create.
type CreateLinkBody struct {
	URL       string     `doc:"Destination URL"                                example:"https://example.com/very/long/path" json:"url"                 minLength:"1"`
	CustomKey string     `doc:"Token to use instead of a generated one"        example:"promo"                              json:"customKey,omitempty"`
	OwnerKind string     `doc:"Kind of the owning entity"                      example:"user"                               json:"ownerKind,omitempty"`
	OwnerID   string     `doc:"ID of the owning entity"                        example:"42"                                 json:"ownerId,omitempty"`
	ExpiresAt *time.Time `doc:"When the link stops resolving"                  json:"expiresAt,omitempty"`
	Fresh     bool       `doc:"Always create a new link instead of reusing one" json:"fresh,omitempty"`
}

// LinkBody is the representation of a stored or proposed link.
type LinkBody struct {
	Token          string     `doc:"The short token"       example:"aB3xZ"                             json:"token"`
	ShortURL       string     `doc:"The full short URL"    example:"http://localhost:8888/aB3xZ"       json:"shortUrl"`
	DestinationURL string     `doc:"The cleaned URL"       example:"https://example.com/very/long/path" json:"destinationUrl"`
	OwnerKind      string     `json:"ownerKind,omitempty"`
	OwnerID        string     `json:"ownerId,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	UseCount       int64      `doc:"Number of redirects served" json:"useCount"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
}

// CreateLinkRequest is the request for creating a link.
type CreateLinkRequest struct {
	Body CreateLinkBody
}

// LinkResponse wraps a single link.
type LinkResponse struct {
	Headers struct {
		Location string `doc:"The short URL" header:"Location"`
	}
	Body LinkBody
}

// BatchCreateRequest creates several links at once.
type BatchCreateRequest struct {
	Body struct {
		Links []CreateLinkBody `json:"links" maxItems:"100" minItems:"1"`
	}
}

// BatchCreateResponse holds one entry per requested link, null where creation failed.
type BatchCreateResponse struct {
	Body struct {
		Links []*LinkBody `json:"links"`
	}
}

// PreviewLinkRequest asks for a proposed, unsaved link.
type PreviewLinkRequest struct {
	Body struct {
		URL       string `json:"url"                 minLength:"1"`
		OwnerKind string `json:"ownerKind,omitempty"`
		OwnerID   string `json:"ownerId,omitempty"`
	}
}

// PreviewLinkResponse is a proposed link. The token is not reserved.
type PreviewLinkResponse struct {
	Body LinkBody
}

// ListLinksRequest selects the links of one owner.
type ListLinksRequest struct {
	OwnerKind string `doc:"Kind of the owning entity" query:"ownerKind" required:"true"`
	OwnerID   string `doc:"ID of the owning entity"   query:"ownerId"   required:"true"`
}

// ListLinksResponse lists links newest first.
type ListLinksResponse struct {
	Body struct {
		Links []*LinkBody `json:"links"`
	}
}

// GetLinkRequest identifies a link by token.
type GetLinkRequest struct {
	Token string `doc:"The short token" example:"aB3xZ" path:"token"`
}

// GetLinkResponse is the stored link, expired or not.
type GetLinkResponse struct {
	Body LinkBody
}

// RedirectRequest is the request for resolving a short token. The raw query
// string is captured so it can be merged into the destination.
type RedirectRequest struct {
	Token string `doc:"The short token" example:"aB3xZ" path:"token"`

	query url.Values
}

// Resolve captures the inbound query parameters.
func (r *RedirectRequest) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	r.query = u.Query()

	return nil
}

// RedirectWithSuffixRequest tolerates a trailing path segment after the token.
type RedirectWithSuffixRequest struct {
	RedirectRequest

	Suffix string `doc:"Ignored trailing segment" path:"suffix"`
}

// RedirectResponse redirects to the resolved location.
type RedirectResponse struct {
	Status       int
	Location     string `header:"Location"`
	CacheControl string `header:"Cache-Control"`
}
