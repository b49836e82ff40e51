package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/sales/quotations"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Repository defines persistence for sales orders.
type Repository interface {
	Insert(ctx context.Context, order SalesOrder) error
	ExistsForQuotation(ctx context.Context, quotationID uuid.UUID) (bool, error)
	List(ctx context.Context) ([]SalesOrder, map[uuid.UUID]quotations.UserRef, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Insert writes a sales order. The UNIQUE constraint on quotation_id keeps
// the one-order-per-quotation invariant even under races; a violation
// surfaces as shared.ErrConflict.
func (r *repository) Insert(ctx context.Context, order SalesOrder) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sales_orders (id, quotation_id, created_by, created_at)
VALUES ($1, $2, $3, $4)`,
		order.ID, order.QuotationID, order.CreatedByID, order.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: sales order already exists for quotation", shared.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *repository) ExistsForQuotation(ctx context.Context, quotationID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sales_orders WHERE quotation_id = $1)`, quotationID).Scan(&exists)
	return exists, err
}

// List returns every sales order, newest first, plus the creator projection
// keyed by order id.
func (r *repository) List(ctx context.Context) ([]SalesOrder, map[uuid.UUID]quotations.UserRef, error) {
	rows, err := r.pool.Query(ctx, `
SELECT o.id, o.quotation_id, o.created_by, o.created_at,
       u.name, u.email, u.role
FROM sales_orders o
JOIN users u ON o.created_by = u.id
ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var list []SalesOrder
	creators := make(map[uuid.UUID]quotations.UserRef)
	for rows.Next() {
		var o SalesOrder
		var creator quotations.UserRef
		if err := rows.Scan(&o.ID, &o.QuotationID, &o.CreatedByID, &o.CreatedAt,
			&creator.Name, &creator.Email, &creator.Role); err != nil {
			return nil, nil, err
		}
		creator.ID = o.CreatedByID
		list = append(list, o)
		creators[o.ID] = creator
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return list, creators, nil
}
