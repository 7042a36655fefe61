package ratelimit

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Scope groups operations that share a rate limit budget.
type Scope string

const (
	// ScopeResolve covers redirects and read-only lookups.
	ScopeResolve Scope = "resolve"
	// ScopeCreate covers operations that allocate tokens.
	ScopeCreate Scope = "create"
)

// MetadataKey is the key used to store rate limit config in operation metadata.
const MetadataKey = "rateLimit"

// EndpointConfig is attached to Huma operations via the Metadata field.
type EndpointConfig struct {
	// Scope overrides method-based detection when set.
	Scope Scope
	// Disabled skips rate limiting entirely for this endpoint.
	Disabled bool
}

// ResolveScope returns the scope for the request. ok is false when rate limiting
// is disabled for the operation. Without operation metadata, safe methods map to
// ScopeResolve and everything else to ScopeCreate.
func ResolveScope(ctx huma.Context) (scope Scope, ok bool) {
	if cfg := GetEndpointConfig(ctx); cfg != nil {
		if cfg.Disabled {
			return "", false
		}

		if cfg.Scope != "" {
			return cfg.Scope, true
		}
	}

	switch ctx.Method() {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ScopeResolve, true
	default:
		return ScopeCreate, true
	}
}

// GetEndpointConfig extracts the EndpointConfig from operation metadata, if present.
func GetEndpointConfig(ctx huma.Context) *EndpointConfig {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}

// Metadata builds operation metadata carrying cfg.
func Metadata(cfg EndpointConfig) map[string]any {
	return map[string]any{MetadataKey: cfg}
}
