package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/sales/quotations"
)

// SalesOrder is the confirmed-sale record derived 1:1 from an approved
// quotation. It is created exactly once and never mutated.
type SalesOrder struct {
	ID          uuid.UUID `json:"id"`
	QuotationID uuid.UUID `json:"quotation_id"`
	CreatedByID uuid.UUID `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// SalesOrderDetail is the listing projection: the order with its source
// quotation fully materialised (customer, items, history) and its creator.
type SalesOrderDetail struct {
	SalesOrder
	Quotation quotations.QuotationDetail `json:"quotation"`
	CreatedBy quotations.UserRef         `json:"created_by"`
}
