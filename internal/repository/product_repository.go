package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/product-links/internal/domain"
)

// ProductFilter captures staff catalogue search parameters.
type ProductFilter struct {
	CRMID      *int64
	NameQuery  *string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ProductRepository encapsulates product persistence.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetByCRMID(ctx context.Context, crmID int64) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error)
	Search(ctx context.Context, term string, limit int) ([]domain.Product, error)
}

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository instantiates repository.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

const productColumns = `id, crm_id, name, COALESCE(description, ''), price::text, currency, photo_url,
               sort_order, is_active, created_at, updated_at`

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	const query = `
        INSERT INTO products (crm_id, name, description, price, currency, photo_url, sort_order, is_active)
        VALUES ($1,$2,$3,$4::numeric,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		product.CRMID,
		product.Name,
		nullableText(product.Description),
		product.Price.StringFixed(2),
		product.Currency,
		product.PhotoURL,
		product.SortOrder,
		product.IsActive,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	const query = `
        UPDATE products SET name=$1, description=$2, price=$3::numeric, currency=$4, photo_url=$5,
            sort_order=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		product.Name,
		nullableText(product.Description),
		product.Price.StringFixed(2),
		product.Currency,
		product.PhotoURL,
		product.SortOrder,
		product.IsActive,
		product.ID,
	).Scan(&product.UpdatedAt)
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id=$1`
	return scanProduct(r.pool.QueryRow(ctx, query, id))
}

func (r *productRepository) GetByCRMID(ctx context.Context, crmID int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE crm_id=$1`
	return scanProduct(r.pool.QueryRow(ctx, query, crmID))
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ActiveOnly {
		clauses = append(clauses, "is_active")
	}
	if filter.CRMID != nil {
		args = append(args, *filter.CRMID)
		clauses = append(clauses, fmt.Sprintf("crm_id=$%d", len(args)))
	}
	if filter.NameQuery != nil && strings.TrimSpace(*filter.NameQuery) != "" {
		args = append(args, likePattern(*filter.NameQuery))
		clauses = append(clauses, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY sort_order, name LIMIT %d OFFSET %d`,
		productColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) Search(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + productColumns + `
        FROM products WHERE is_active AND name ILIKE $1
        ORDER BY sort_order, name LIMIT $2`
	rows, err := r.pool.Query(ctx, query, likePattern(term), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		product domain.Product
		price   string
	)
	if err := row.Scan(
		&product.ID,
		&product.CRMID,
		&product.Name,
		&product.Description,
		&price,
		&product.Currency,
		&product.PhotoURL,
		&product.SortOrder,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price of product %d: %w", product.ID, err)
	}
	product.Price = parsed
	return &product, nil
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	var result []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *product)
	}
	return result, rows.Err()
}

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters in term escaped.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(term)) + "%"
}

func nullableText(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
