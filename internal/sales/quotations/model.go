package quotations

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlas-erp/atlas-erp/internal/masterdata/products"
	"github.com/atlas-erp/atlas-erp/internal/sales/customers"
)

// QuotationStatus enumerates the lifecycle states. REJECTED and CANCELED are
// part of the closed set but no exposed operation currently produces them;
// they remain terminal if ever reached.
type QuotationStatus string

const (
	QuotationStatusPending  QuotationStatus = "PENDING"
	QuotationStatusApproved QuotationStatus = "APPROVED"
	QuotationStatusRejected QuotationStatus = "REJECTED"
	QuotationStatusCanceled QuotationStatus = "CANCELED"
)

// Valid reports whether s is a known status.
func (s QuotationStatus) Valid() bool {
	switch s {
	case QuotationStatusPending, QuotationStatusApproved, QuotationStatusRejected, QuotationStatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s QuotationStatus) Terminal() bool {
	return s != QuotationStatusPending
}

// Quotation is the root entity of the lifecycle. It owns its items and its
// status history; at most one sales order may ever reference it.
type Quotation struct {
	ID           uuid.UUID       `json:"id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CreatedByID  uuid.UUID       `json:"created_by_id"`
	Status       QuotationStatus `json:"status"`
	ApprovedByID *uuid.UUID      `json:"approved_by_id,omitempty"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// QuotationItem is a (product, quantity) line. Items are immutable after
// creation; there is no edit operation.
type QuotationItem struct {
	ID          uuid.UUID `json:"id"`
	QuotationID uuid.UUID `json:"quotation_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
}

// StatusHistoryEntry is one row of the append-only transition ledger. Entries
// are never updated or deleted; one exists per transition, in transition
// order.
type StatusHistoryEntry struct {
	ID          uuid.UUID       `json:"id"`
	QuotationID uuid.UUID       `json:"quotation_id"`
	Status      QuotationStatus `json:"status"`
	ChangedByID uuid.UUID       `json:"changed_by_id"`
	ChangedAt   time.Time       `json:"changed_at"`
}

// UserRef is the public projection of a user embedded in detail reads.
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// ItemDetail is a quotation item joined with its live product. The subtotal
// uses the product's current price, not a snapshot.
type ItemDetail struct {
	QuotationItem
	Product  products.Product `json:"product"`
	Subtotal decimal.Decimal  `json:"subtotal"`
}

// QuotationDetail is the fully materialised aggregate used by detail and
// listing reads.
type QuotationDetail struct {
	Quotation
	Customer      customers.Customer   `json:"customer"`
	CreatedBy     UserRef              `json:"created_by"`
	ApprovedBy    *UserRef             `json:"approved_by,omitempty"`
	Items         []ItemDetail         `json:"items"`
	StatusHistory []StatusHistoryEntry `json:"status_history"`
	Total         decimal.Decimal      `json:"total"`
}

// CreatedSalesOrder is the sales order row written by the approval
// transition. The orders module owns the full read model.
type CreatedSalesOrder struct {
	ID          uuid.UUID `json:"id"`
	QuotationID uuid.UUID `json:"quotation_id"`
	CreatedByID uuid.UUID `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ApprovalResult is returned by a successful approval.
type ApprovalResult struct {
	Quotation  Quotation         `json:"quotation"`
	SalesOrder CreatedSalesOrder `json:"sales_order"`
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
