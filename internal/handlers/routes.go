package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/ratelimit"
)

// RegisterRoutes registers all link routes. Writes are limited under the create
// scope and reads under the resolve scope.
func RegisterRoutes(api huma.API, h *LinkHandler) {
	create := ratelimit.Metadata(ratelimit.EndpointConfig{Scope: ratelimit.ScopeCreate})
	resolve := ratelimit.Metadata(ratelimit.EndpointConfig{Scope: ratelimit.ScopeResolve})

	huma.Register(api, huma.Operation{
		OperationID:   "create-link",
		Method:        http.MethodPost,
		Path:          "/api/links",
		Summary:       "Create short link",
		Description:   "Shortens a URL. An existing link with the same destination and owner is reused unless fresh is set.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
		Metadata:      create,
	}, h.CreateLink)

	huma.Register(api, huma.Operation{
		OperationID: "create-links",
		Method:      http.MethodPost,
		Path:        "/api/links/batch",
		Summary:     "Create short links in bulk",
		Description: "Creates each link independently. Entries that fail are returned as null.",
		Tags:        []string{"Links"},
		Metadata:    create,
	}, h.CreateLinks)

	huma.Register(api, huma.Operation{
		OperationID: "preview-link",
		Method:      http.MethodPost,
		Path:        "/api/links/preview",
		Summary:     "Preview short link",
		Description: "Returns the link that would be created without storing it. The token is not reserved.",
		Tags:        []string{"Links"},
		Metadata:    resolve,
	}, h.PreviewLink)

	huma.Register(api, huma.Operation{
		OperationID: "list-links",
		Method:      http.MethodGet,
		Path:        "/api/links",
		Summary:     "List links by owner",
		Tags:        []string{"Links"},
		Metadata:    resolve,
	}, h.ListLinks)

	huma.Register(api, huma.Operation{
		OperationID: "get-link",
		Method:      http.MethodGet,
		Path:        "/api/links/{token}",
		Summary:     "Get link",
		Description: "Returns the stored link, including expired ones.",
		Tags:        []string{"Links"},
		Metadata:    resolve,
	}, h.GetLink)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{token}",
		Summary:     "Redirect to destination",
		Description: "Redirects to the destination with the inbound query merged in. Unknown or expired tokens redirect to the default location.",
		Tags:        []string{"Redirect"},
		Metadata:    resolve,
	}, h.Redirect)

	huma.Register(api, huma.Operation{
		OperationID: "redirect-with-suffix",
		Method:      http.MethodGet,
		Path:        "/{token}/{suffix}",
		Summary:     "Redirect ignoring a trailing segment",
		Tags:        []string{"Redirect"},
		Hidden:      true,
		Metadata:    resolve,
	}, h.RedirectWithSuffix)
}
