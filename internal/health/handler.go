package health

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/ratelimit"
)

const checkTimeout = 2 * time.Second

// Checker defines the interface for checking service health.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts redis.Client to Checker interface.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// PostgresChecker adapts pgxpool.Pool to Checker interface.
type PostgresChecker struct {
	pool *pgxpool.Pool
}

// NewPostgresChecker creates a new PostgreSQL health checker.
func NewPostgresChecker(pool *pgxpool.Pool) *PostgresChecker {
	return &PostgresChecker{pool: pool}
}

// Ping checks PostgreSQL connectivity.
func (p *PostgresChecker) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Dependency is a named checker. A failing critical dependency makes the
// service unavailable; any other failure only degrades it.
type Dependency struct {
	Name     string
	Checker  Checker
	Critical bool
}

// Handler handles health check operations.
type Handler struct {
	deps []Dependency
}

// NewHandler creates a new health handler.
func NewHandler(deps ...Dependency) *Handler {
	return &Handler{deps: deps}
}

// Response is the response for health check endpoint.
type Response struct {
	Status int
	Body   struct {
		Status string            `doc:"ok, degraded or unavailable" json:"status"`
		Checks map[string]string `doc:"Per dependency state"        json:"checks"`
	}
}

// Check performs a health check of the application and its dependencies.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{Status: http.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Checks = make(map[string]string, len(h.deps))

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	for _, dep := range h.deps {
		if err := dep.Checker.Ping(ctx); err != nil {
			resp.Body.Checks[dep.Name] = "unhealthy"

			if dep.Critical {
				resp.Status = http.StatusServiceUnavailable
				resp.Body.Status = "unavailable"
			} else if resp.Body.Status == "ok" {
				resp.Body.Status = "degraded"
			}

			continue
		}

		resp.Body.Checks[dep.Name] = "healthy"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
		Metadata:    ratelimit.Metadata(ratelimit.EndpointConfig{Disabled: true}),
	}, h.Check)
}
