package quotations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// fakeDBTX scripts the outcome of the next statement.
type fakeDBTX struct {
	tag pgconn.CommandTag
	err error
}

func (f *fakeDBTX) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return f.tag, f.err
}

func (f *fakeDBTX) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, f.err
}

func (f *fakeDBTX) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func TestMarkApprovedFlipsPendingRow(t *testing.T) {
	repo := &repository{db: &fakeDBTX{tag: pgconn.NewCommandTag("UPDATE 1")}}

	flipped, err := repo.MarkApproved(context.Background(), uuid.New(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.True(t, flipped)
}

func TestMarkApprovedAlreadyProcessed(t *testing.T) {
	repo := &repository{db: &fakeDBTX{tag: pgconn.NewCommandTag("UPDATE 0")}}

	flipped, err := repo.MarkApproved(context.Background(), uuid.New(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestMarkApprovedSerializationFailureLosesRace(t *testing.T) {
	// A competing transaction that commits the flip first can abort this one
	// with SQLSTATE 40001 instead of letting the UPDATE report zero rows.
	// That is still losing the race, not a storage error.
	repo := &repository{db: &fakeDBTX{err: &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}}}

	flipped, err := repo.MarkApproved(context.Background(), uuid.New(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestMarkApprovedStorageError(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &repository{db: &fakeDBTX{err: boom}}

	_, err := repo.MarkApproved(context.Background(), uuid.New(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, boom)
}

func TestInsertSalesOrderUniqueViolation(t *testing.T) {
	repo := &repository{db: &fakeDBTX{err: &pgconn.PgError{Code: "23505", ConstraintName: "sales_orders_quotation_id_key"}}}

	err := repo.InsertSalesOrder(context.Background(), CreatedSalesOrder{
		ID:          uuid.New(),
		QuotationID: uuid.New(),
		CreatedByID: uuid.New(),
		CreatedAt:   time.Now(),
	})
	assert.ErrorIs(t, err, shared.ErrConflict)
}
