package issuance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/supplyhub/supplyhub/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetIssuance(ctx context.Context, id int64) (IssuanceRecord, error)
	ListIssuances(ctx context.Context, limit, offset int, filters ListFilters) ([]IssuanceRecord, int, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertIssuance(ctx context.Context, rec IssuanceRecord) (int64, error)
	UpdateIssuanceStatus(ctx context.Context, id int64, status Status) error
}

// CatalogPort resolves item references against the catalog.
type CatalogPort interface {
	GetItemName(ctx context.Context, itemID int64) (string, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service creates issuance batches atomically and manages status moves.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
}

// NewService constructs the issuance service.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit}
}

// BatchItem is one requested (item, quantity) pair.
type BatchItem struct {
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

// BatchInput carries the shared recipient metadata plus the item pairs.
type BatchInput struct {
	Recipient           string      `json:"recipient" validate:"required"`
	Department          string      `json:"department"`
	FundCluster         string      `json:"fund_cluster"`
	Designation         string      `json:"designation"`
	Purpose             string      `json:"purpose"`
	Approver            string      `json:"approver"`
	ApproverDesignation string      `json:"approver_designation"`
	DateIssued          time.Time   `json:"date_issued"`
	IssuedBy            int64       `json:"issued_by"`
	Items               []BatchItem `json:"items" validate:"min=1"`
}

// IssueBatch persists one issuance record per item pair as a single unit.
// Any invalid entry rejects the whole batch before a write happens; the
// result keeps the input order.
func (s *Service) IssueBatch(ctx context.Context, input BatchInput) ([]IssuanceRecord, error) {
	errs := shared.ValidateStruct(input)
	if errs == nil {
		errs = make(shared.FieldErrors)
	}
	for i, item := range input.Items {
		if item.Quantity <= 0 {
			errs[fmt.Sprintf("items[%d].quantity", i)] = "must be a positive integer"
		}
		if item.ItemID <= 0 {
			errs[fmt.Sprintf("items[%d].item_id", i)] = "required"
			continue
		}
		if s.catalog != nil {
			if _, err := s.catalog.GetItemName(ctx, item.ItemID); err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					errs[fmt.Sprintf("items[%d].item_id", i)] = "unknown item"
					continue
				}
				return nil, err
			}
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	dateIssued := input.DateIssued
	if dateIssued.IsZero() {
		dateIssued = time.Now()
	}

	batchID := uuid.New()
	records := make([]IssuanceRecord, 0, len(input.Items))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, item := range input.Items {
			rec := IssuanceRecord{
				BatchID:             batchID,
				ItemID:              item.ItemID,
				Quantity:            item.Quantity,
				Recipient:           input.Recipient,
				Department:          input.Department,
				FundCluster:         input.FundCluster,
				Designation:         input.Designation,
				Purpose:             input.Purpose,
				Approver:            input.Approver,
				ApproverDesignation: input.ApproverDesignation,
				DateIssued:          dateIssued,
				IssuedBy:            input.IssuedBy,
				Status:              StatusIssued,
			}
			id, err := tx.InsertIssuance(ctx, rec)
			if err != nil {
				return err
			}
			rec.ID = id
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, input.IssuedBy, "ISSUE_BATCH", records[0].ID, map[string]any{
		"batch_id":  batchID.String(),
		"recipient": input.Recipient,
		"records":   len(records),
	})
	return records, nil
}

// SetStatus moves a record to any of the known statuses. No transition is
// forbidden and stock levels are not recomputed; cancelling does not return
// quantities to stock.
func (s *Service) SetStatus(ctx context.Context, id int64, status Status) error {
	if !status.Valid() {
		return shared.FieldErrors{"status": "must be one of PENDING, ISSUED, CANCELLED"}
	}
	if _, err := s.repo.GetIssuance(ctx, id); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateIssuanceStatus(ctx, id, status)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, shared.ActorFromContext(ctx), "ISSUE_STATUS", id, map[string]any{"status": string(status)})
	return nil
}

// Get loads one issuance record.
func (s *Service) Get(ctx context.Context, id int64) (IssuanceRecord, error) {
	return s.repo.GetIssuance(ctx, id)
}

// List pages through issuance records.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]IssuanceRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListIssuances(ctx, limit, offset, filters)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "issuance", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
