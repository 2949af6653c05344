package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/product-links/internal/domain"
)

// LinkListItem is a link audit record joined with its product.
type LinkListItem struct {
	domain.ProductLink
	ProductName  string
	ProductCRMID int64
}

// LinkRepository persists issued link audit records.
type LinkRepository interface {
	Create(ctx context.Context, link *domain.ProductLink) error
	GetByID(ctx context.Context, id int64) (*domain.ProductLink, error)
	GetActiveByToken(ctx context.Context, token string) (*domain.ProductLink, error)
	List(ctx context.Context, limit, offset int) ([]LinkListItem, int64, error)
	RecordAccess(ctx context.Context, id int64, at time.Time) error
}

type linkRepository struct {
	pool *pgxpool.Pool
}

// NewLinkRepository constructs repository.
func NewLinkRepository(pool *pgxpool.Pool) LinkRepository {
	return &linkRepository{pool: pool}
}

const linkColumns = `l.id, l.product_id, l.signed_token, l.access_count, l.last_accessed_at,
               l.created_at, l.expires_at, l.is_active`

// Create stores link. Tokens minted for the same product and lifetime within
// one second are identical, so an existing record for the token is returned
// in place of a new row.
func (r *linkRepository) Create(ctx context.Context, link *domain.ProductLink) error {
	const query = `
        INSERT INTO product_links AS l (product_id, signed_token, expires_at, is_active)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (signed_token) DO UPDATE SET signed_token = EXCLUDED.signed_token
        RETURNING ` + linkColumns
	stored, err := scanLink(r.pool.QueryRow(ctx, query,
		link.ProductID,
		link.SignedToken,
		link.ExpiresAt,
		link.IsActive,
	))
	if err != nil {
		return err
	}
	*link = *stored
	return nil
}

func (r *linkRepository) GetByID(ctx context.Context, id int64) (*domain.ProductLink, error) {
	query := `SELECT ` + linkColumns + ` FROM product_links l WHERE l.id=$1`
	return scanLink(r.pool.QueryRow(ctx, query, id))
}

func (r *linkRepository) GetActiveByToken(ctx context.Context, token string) (*domain.ProductLink, error) {
	query := `SELECT ` + linkColumns + ` FROM product_links l WHERE l.signed_token=$1 AND l.is_active`
	return scanLink(r.pool.QueryRow(ctx, query, token))
}

func (r *linkRepository) List(ctx context.Context, limit, offset int) ([]LinkListItem, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM product_links`).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`
        SELECT %s, p.name, p.crm_id
        FROM product_links l JOIN products p ON p.id = l.product_id
        ORDER BY l.created_at DESC, l.id DESC LIMIT %d OFFSET %d`, linkColumns, limit, offset)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []LinkListItem
	for rows.Next() {
		var item LinkListItem
		if err := rows.Scan(
			&item.ID,
			&item.ProductID,
			&item.SignedToken,
			&item.AccessCount,
			&item.LastAccessedAt,
			&item.CreatedAt,
			&item.ExpiresAt,
			&item.IsActive,
			&item.ProductName,
			&item.ProductCRMID,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, item)
	}
	return result, total, rows.Err()
}

func (r *linkRepository) RecordAccess(ctx context.Context, id int64, at time.Time) error {
	const query = `
        UPDATE product_links SET access_count = access_count + 1, last_accessed_at=$1
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanLink(row rowScanner) (*domain.ProductLink, error) {
	var link domain.ProductLink
	if err := row.Scan(
		&link.ID,
		&link.ProductID,
		&link.SignedToken,
		&link.AccessCount,
		&link.LastAccessedAt,
		&link.CreatedAt,
		&link.ExpiresAt,
		&link.IsActive,
	); err != nil {
		return nil, err
	}
	return &link, nil
}
