package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Repository defines persistence for the quotation aggregate, its status
// ledger, and the sales-order row written by the approval transition.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Insert(ctx context.Context, q Quotation) error
	InsertItem(ctx context.Context, item QuotationItem) error
	InsertHistory(ctx context.Context, entry StatusHistoryEntry) error
	Get(ctx context.Context, id uuid.UUID) (*Quotation, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*QuotationDetail, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]QuotationDetail, int, error)
	MarkApproved(ctx context.Context, id, approverID uuid.UUID, at time.Time) (bool, error)
	InsertSalesOrder(ctx context.Context, order CreatedSalesOrder) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// WithTx runs fn against a transaction-scoped repository. All writes commit
// or roll back as one unit.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Insert(ctx context.Context, q Quotation) error {
	_, err := r.db.Exec(ctx, `INSERT INTO quotations (id, customer_id, created_by, status, created_at)
VALUES ($1, $2, $3, $4, $5)`,
		q.ID, q.CustomerID, q.CreatedByID, string(q.Status), q.CreatedAt)
	return err
}

func (r *repository) InsertItem(ctx context.Context, item QuotationItem) error {
	_, err := r.db.Exec(ctx, `INSERT INTO quotation_items (id, quotation_id, product_id, quantity)
VALUES ($1, $2, $3, $4)`,
		item.ID, item.QuotationID, item.ProductID, item.Quantity)
	return err
}

func (r *repository) InsertHistory(ctx context.Context, entry StatusHistoryEntry) error {
	_, err := r.db.Exec(ctx, `INSERT INTO quotation_status_history (id, quotation_id, status, changed_by, changed_at)
VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.QuotationID, string(entry.Status), entry.ChangedByID, entry.ChangedAt)
	return err
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Quotation, error) {
	row := r.db.QueryRow(ctx, `SELECT id, customer_id, created_by, status, approved_by, approved_at, created_at
FROM quotations WHERE id = $1`, id)
	var q Quotation
	var status string
	if err := row.Scan(&q.ID, &q.CustomerID, &q.CreatedByID, &status, &q.ApprovedByID, &q.ApprovedAt, &q.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	q.Status = QuotationStatus(status)
	return &q, nil
}

// MarkApproved performs the authoritative check-then-write as a single
// compare-and-swap: only the first caller observing PENDING flips the row.
// It returns false when the quotation was not PENDING anymore — including
// when a competing transaction committed the flip first and this one was
// aborted with a serialization failure instead of seeing zero rows.
func (r *repository) MarkApproved(ctx context.Context, id, approverID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE quotations
SET status = $2, approved_by = $3, approved_at = $4
WHERE id = $1 AND status = $5`,
		id, string(QuotationStatusApproved), approverID, at, string(QuotationStatusPending))
	if err != nil {
		if db.IsSerializationFailure(err) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// InsertSalesOrder writes the derived sales order. The UNIQUE constraint on
// quotation_id is the final arbiter against duplicates; a violation surfaces
// as shared.ErrConflict so the surrounding transaction rolls back.
func (r *repository) InsertSalesOrder(ctx context.Context, order CreatedSalesOrder) error {
	_, err := r.db.Exec(ctx, `INSERT INTO sales_orders (id, quotation_id, created_by, created_at)
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

const detailHeadQuery = `
SELECT q.id, q.customer_id, q.created_by, q.status, q.approved_by, q.approved_at, q.created_at,
       c.id, c.name, c.user_id, c.created_at, c.updated_at,
       u1.name, u1.email, u1.role,
       u2.name, u2.email, u2.role
FROM quotations q
JOIN customers c ON q.customer_id = c.id
JOIN users u1 ON q.created_by = u1.id
LEFT JOIN users u2 ON q.approved_by = u2.id`

func (r *repository) GetDetail(ctx context.Context, id uuid.UUID) (*QuotationDetail, error) {
	row := r.db.QueryRow(ctx, detailHeadQuery+` WHERE q.id = $1`, id)
	detail, err := scanDetailHead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.attachChildren(ctx, []*QuotationDetail{detail}); err != nil {
		return nil, err
	}
	return detail, nil
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]QuotationDetail, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("q.status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("q.created_at >= $%d", argPos))
		args = append(args, *req.StartDate)
		argPos++
	}
	if req.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("q.created_at <= $%d", argPos))
		args = append(args, *req.EndDate)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM quotations q" + whereClause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(req.Page, req.Limit, total)
	query := fmt.Sprintf("%s%s ORDER BY q.created_at DESC LIMIT $%d OFFSET $%d", detailHeadQuery, whereClause, argPos, argPos+1)
	args = append(args, page.Limit, page.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var details []*QuotationDetail
	for rows.Next() {
		detail, err := scanDetailHead(rows)
		if err != nil {
			return nil, 0, err
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachChildren(ctx, details); err != nil {
		return nil, 0, err
	}

	out := make([]QuotationDetail, 0, len(details))
	for _, d := range details {
		out = append(out, *d)
	}
	return out, total, nil
}

// attachChildren loads items (with live product data), computes totals from
// current prices, and loads the status ledger for each quotation.
func (r *repository) attachChildren(ctx context.Context, details []*QuotationDetail) error {
	if len(details) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*QuotationDetail, len(details))
	ids := make([]uuid.UUID, 0, len(details))
	for _, d := range details {
		d.Items = []ItemDetail{}
		d.StatusHistory = []StatusHistoryEntry{}
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}

	itemRows, err := r.db.Query(ctx, `
SELECT i.id, i.quotation_id, i.product_id, i.quantity,
       p.name, p.price, p.created_at, p.updated_at
FROM quotation_items i
JOIN products p ON i.product_id = p.id
WHERE i.quotation_id = ANY($1)
ORDER BY i.id`, ids)
	if err != nil {
		return err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item ItemDetail
		if err := itemRows.Scan(&item.ID, &item.QuotationID, &item.ProductID, &item.Quantity,
			&item.Product.Name, &item.Product.Price, &item.Product.CreatedAt, &item.Product.UpdatedAt); err != nil {
			return err
		}
		item.Product.ID = item.ProductID
		item.Subtotal = item.Product.Price.Mul(decimalFromInt(item.Quantity))
		d := byID[item.QuotationID]
		d.Items = append(d.Items, item)
		d.Total = d.Total.Add(item.Subtotal)
	}
	if err := itemRows.Err(); err != nil {
		return err
	}

	historyRows, err := r.db.Query(ctx, `
SELECT id, quotation_id, status, changed_by, changed_at
FROM quotation_status_history
WHERE quotation_id = ANY($1)
ORDER BY changed_at ASC, id ASC`, ids)
	if err != nil {
		return err
	}
	defer historyRows.Close()
	for historyRows.Next() {
		var entry StatusHistoryEntry
		var status string
		if err := historyRows.Scan(&entry.ID, &entry.QuotationID, &status, &entry.ChangedByID, &entry.ChangedAt); err != nil {
			return err
		}
		entry.Status = QuotationStatus(status)
		d := byID[entry.QuotationID]
		d.StatusHistory = append(d.StatusHistory, entry)
	}
	return historyRows.Err()
}

func scanDetailHead(row pgx.Row) (*QuotationDetail, error) {
	var d QuotationDetail
	var status string
	var creatorRole string
	var approverName, approverEmail, approverRole *string
	if err := row.Scan(
		&d.ID, &d.CustomerID, &d.CreatedByID, &status, &d.ApprovedByID, &d.ApprovedAt, &d.CreatedAt,
		&d.Customer.ID, &d.Customer.Name, &d.Customer.UserID, &d.Customer.CreatedAt, &d.Customer.UpdatedAt,
		&d.CreatedBy.Name, &d.CreatedBy.Email, &creatorRole,
		&approverName, &approverEmail, &approverRole,
	); err != nil {
		return nil, err
	}
	d.Status = QuotationStatus(status)
	d.CreatedBy.ID = d.CreatedByID
	d.CreatedBy.Role = creatorRole
	if d.ApprovedByID != nil && approverName != nil {
		d.ApprovedBy = &UserRef{
			ID:    *d.ApprovedByID,
			Name:  *approverName,
			Email: derefString(approverEmail),
			Role:  derefString(approverRole),
		}
	}
	return &d, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
