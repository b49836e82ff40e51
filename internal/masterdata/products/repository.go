package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Repository provides read-only product lookups.
type Repository interface {
	Search(ctx context.Context, term string) ([]Product, error)
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, name, price, created_at, updated_at`

// Search matches term as a case-insensitive substring of the name, ascending
// name order. An empty term returns the full catalog.
func (r *repository) Search(ctx context.Context, term string) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE name ILIKE '%' || $1 || '%' ORDER BY name ASC`, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetMany loads the given products keyed by id. Absent ids are simply missing
// from the result map; the caller decides whether that is an error.
func (r *repository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]Product{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]Product, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var list []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
