package quotations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/auth"
	"github.com/atlas-erp/atlas-erp/internal/masterdata/products"
	"github.com/atlas-erp/atlas-erp/internal/sales/customers"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Service implements the quotation lifecycle: creation of the aggregate and
// the approval transition that derives a sales order.
type Service struct {
	repo         Repository
	customerRepo customers.Repository
	productRepo  products.Repository
	now          func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, customerRepo customers.Repository, productRepo products.Repository) *Service {
	return &Service{
		repo:         repo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		now:          time.Now,
	}
}

// Create inserts a quotation in PENDING state together with its items and the
// first ledger entry, atomically. An empty items slice is accepted; every
// referenced customer and product must exist.
func (s *Service) Create(ctx context.Context, req CreateQuotationRequest, createdBy auth.Principal) (*QuotationDetail, error) {
	if _, err := s.customerRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}

	productIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	known, err := s.productRepo.GetMany(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("verify products: %w", err)
	}
	for _, item := range req.Items {
		if _, ok := known[item.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %s", shared.ErrNotFound, item.ProductID)
		}
	}

	now := s.now().UTC()
	quotation := Quotation{
		ID:          uuid.New(),
		CustomerID:  req.CustomerID,
		CreatedByID: createdBy.ID,
		Status:      QuotationStatusPending,
		CreatedAt:   now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Insert(ctx, quotation); err != nil {
			return fmt.Errorf("insert quotation: %w", err)
		}
		for _, item := range req.Items {
			line := QuotationItem{
				ID:          uuid.New(),
				QuotationID: quotation.ID,
				ProductID:   item.ProductID,
				Quantity:    item.Quantity,
			}
			if err := repo.InsertItem(ctx, line); err != nil {
				return fmt.Errorf("insert quotation item: %w", err)
			}
		}
		entry := StatusHistoryEntry{
			ID:          uuid.New(),
			QuotationID: quotation.ID,
			Status:      QuotationStatusPending,
			ChangedByID: createdBy.ID,
			ChangedAt:   now,
		}
		if err := repo.InsertHistory(ctx, entry); err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetDetail(ctx, quotation.ID)
}

// Approve runs the PENDING → APPROVED transition. The role gate comes before
// any state inspection, so an unprivileged actor cannot learn quotation state
// through error differences. The status flip, the ledger append, and the
// sales-order insert commit or roll back as one unit; a raced or repeated
// call deterministically fails with ErrInvalidTransition and writes nothing.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor auth.Principal) (*ApprovalResult, error) {
	if !actor.Role.In(auth.RoleSales) {
		return nil, fmt.Errorf("%w: role %s may not approve quotations", shared.ErrForbidden, actor.Role)
	}

	now := s.now().UTC()
	var result ApprovalResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		quotation, err := repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get quotation: %w", err)
		}

		flipped, err := repo.MarkApproved(ctx, id, actor.ID, now)
		if err != nil {
			return fmt.Errorf("mark approved: %w", err)
		}
		if !flipped {
			return fmt.Errorf("%w: quotation already processed", shared.ErrInvalidTransition)
		}

		entry := StatusHistoryEntry{
			ID:          uuid.New(),
			QuotationID: id,
			Status:      QuotationStatusApproved,
			ChangedByID: actor.ID,
			ChangedAt:   now,
		}
		if err := repo.InsertHistory(ctx, entry); err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}

		order := CreatedSalesOrder{
			ID:          uuid.New(),
			QuotationID: id,
			CreatedByID: actor.ID,
			CreatedAt:   now,
		}
		if err := repo.InsertSalesOrder(ctx, order); err != nil {
			return fmt.Errorf("insert sales order: %w", err)
		}

		approvedBy := actor.ID
		approvedAt := now
		quotation.Status = QuotationStatusApproved
		quotation.ApprovedByID = &approvedBy
		quotation.ApprovedAt = &approvedAt
		result = ApprovalResult{Quotation: *quotation, SalesOrder: order}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Get returns the fully materialised aggregate.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*QuotationDetail, error) {
	return s.repo.GetDetail(ctx, id)
}

// List returns a filtered page of quotations with pagination metadata.
func (s *Service) List(ctx context.Context, req ListQuotationsRequest) (*ListQuotationsResponse, error) {
	data, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []QuotationDetail{}
	}
	return &ListQuotationsResponse{
		Data: data,
		Meta: shared.NewPagination(req.Page, req.Limit, total),
	}, nil
}
