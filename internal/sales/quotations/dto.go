package quotations

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// CreateQuotationRequest is the payload for POST /quotations. An empty items
// array is accepted; each present item must reference an existing product.
type CreateQuotationRequest struct {
	CustomerID uuid.UUID             `json:"customer_id" validate:"required"`
	Items      []CreateQuotationItem `json:"items" validate:"dive"`
}

// CreateQuotationItem is one requested line.
type CreateQuotationItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// ListQuotationsRequest filters the quotation listing. Filtering is a pure
// conjunction: status equality plus an inclusive createdAt range.
type ListQuotationsRequest struct {
	Status    *QuotationStatus
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// ListQuotationsResponse is the paginated listing envelope.
type ListQuotationsResponse struct {
	Data []QuotationDetail `json:"data"`
	Meta shared.Pagination `json:"meta"`
}
