package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/shortener"
)

const uniqueViolation = "23505"

const linkColumns = `id, token, destination_url, owner_kind, owner_id, expires_at, use_count, created_at`

// PostgresStore is a PostgreSQL implementation of shortener.Repository. Token
// uniqueness is enforced by the unique index on shortened_links.token.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed link store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Insert(ctx context.Context, link *shortener.Link) error {
	query := `
		INSERT INTO shortened_links (token, destination_url, owner_kind, owner_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	kind, id := ownerColumns(link.Owner)

	err := p.pool.QueryRow(ctx, query,
		string(link.Token),
		link.DestinationURL,
		kind,
		id,
		link.ExpiresAt,
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shortener.ErrTokenConflict
		}

		return err
	}

	return nil
}

func (p *PostgresStore) FindUnexpired(ctx context.Context, token shortener.Token, now time.Time) (*shortener.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM shortened_links
		WHERE token = $1 AND (expires_at IS NULL OR expires_at > $2)
	`

	return scanLink(p.pool.QueryRow(ctx, query, string(token), now))
}

func (p *PostgresStore) FindByToken(ctx context.Context, token shortener.Token) (*shortener.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM shortened_links
		WHERE token = $1
	`

	return scanLink(p.pool.QueryRow(ctx, query, string(token)))
}

func (p *PostgresStore) FindByDestination(
	ctx context.Context, destinationURL string, owner shortener.Owner,
) (*shortener.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM shortened_links
		WHERE destination_url = $1
		  AND owner_kind IS NOT DISTINCT FROM $2
		  AND owner_id IS NOT DISTINCT FROM $3
		ORDER BY id
		LIMIT 1
	`

	kind, id := ownerColumns(owner)

	return scanLink(p.pool.QueryRow(ctx, query, destinationURL, kind, id))
}

func (p *PostgresStore) ListByOwner(ctx context.Context, owner shortener.Owner) ([]*shortener.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM shortened_links
		WHERE owner_kind IS NOT DISTINCT FROM $1
		  AND owner_id IS NOT DISTINCT FROM $2
		ORDER BY id DESC
	`

	kind, id := ownerColumns(owner)

	rows, err := p.pool.Query(ctx, query, kind, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]*shortener.Link, 0)

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, rows.Err()
}

func (p *PostgresStore) TokenExists(ctx context.Context, token shortener.Token) (bool, error) {
	var exists bool

	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM shortened_links WHERE token = $1)`,
		string(token),
	).Scan(&exists)

	return exists, err
}

func (p *PostgresStore) IncrementUseCount(ctx context.Context, token shortener.Token) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE shortened_links SET use_count = use_count + 1 WHERE token = $1`,
		string(token),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

// Shutdown closes the connection pool.
func (p *PostgresStore) Shutdown() error {
	p.pool.Close()

	return nil
}

func scanLink(row pgx.Row) (*shortener.Link, error) {
	var (
		link      shortener.Link
		token     string
		ownerKind *string
		ownerID   *string
	)

	err := row.Scan(
		&link.ID,
		&token,
		&link.DestinationURL,
		&ownerKind,
		&ownerID,
		&link.ExpiresAt,
		&link.UseCount,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	link.Token = shortener.Token(token)

	if ownerKind != nil {
		link.Owner.Kind = *ownerKind
	}

	if ownerID != nil {
		link.Owner.ID = *ownerID
	}

	return &link, nil
}

// ownerColumns maps the zero owner to NULL columns.
func ownerColumns(owner shortener.Owner) (kind, id *string) {
	if owner.IsZero() {
		return nil, nil
	}

	return &owner.Kind, &owner.ID
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)
