package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/auth"
	"github.com/atlas-erp/atlas-erp/internal/sales/quotations"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Service implements the manual sales-order entry point. The approval flow
// creates orders itself; this path exists for recovery when an approved
// quotation somehow lacks its order. Both paths are arbitrated by the same
// unique constraint, so at most one order per quotation can ever exist.
type Service struct {
	repo      Repository
	quoteRepo quotations.Repository
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, quoteRepo quotations.Repository) *Service {
	return &Service{repo: repo, quoteRepo: quoteRepo, now: time.Now}
}

// Create derives a sales order for an already-approved quotation that does
// not have one yet.
func (s *Service) Create(ctx context.Context, quotationID uuid.UUID, actor auth.Principal) (*SalesOrder, error) {
	quotation, err := s.quoteRepo.Get(ctx, quotationID)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if quotation.Status != quotations.QuotationStatusApproved {
		return nil, fmt.Errorf("%w: quotation is not approved", shared.ErrInvalidTransition)
	}

	exists, err := s.repo.ExistsForQuotation(ctx, quotationID)
	if err != nil {
		return nil, fmt.Errorf("check existing order: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: sales order already exists for quotation", shared.ErrConflict)
	}

	order := SalesOrder{
		ID:          uuid.New(),
		QuotationID: quotationID,
		CreatedByID: actor.ID,
		CreatedAt:   s.now().UTC(),
	}
	// Insert still races against a concurrent creator; the unique constraint
	// decides and the loser gets ErrConflict.
	if err := s.repo.Insert(ctx, order); err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns all sales orders, newest first, each with its source
// quotation fully materialised.
func (s *Service) List(ctx context.Context) ([]SalesOrderDetail, error) {
	list, creators, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]SalesOrderDetail, 0, len(list))
	for _, order := range list {
		quotation, err := s.quoteRepo.GetDetail(ctx, order.QuotationID)
		if err != nil {
			return nil, fmt.Errorf("load quotation %s: %w", order.QuotationID, err)
		}
		details = append(details, SalesOrderDetail{
			SalesOrder: order,
			Quotation:  *quotation,
			CreatedBy:  creators[order.ID],
		})
	}
	return details, nil
}
