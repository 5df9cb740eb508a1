package receiving

import (
	"context"
	"fmt"
	"time"

	"github.com/supplyhub/supplyhub/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetReceiving(ctx context.Context, id int64) (ReceivingRecord, error)
	ListReceivings(ctx context.Context, limit, offset int, filters ListFilters) ([]ReceivingRecord, int, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertReceiving(ctx context.Context, rec ReceivingRecord) (int64, error)
	UpdateReceivingStatus(ctx context.Context, id int64, status Status) error
}

// CatalogPort resolves item and supplier references.
type CatalogPort interface {
	GetItemName(ctx context.Context, itemID int64) (string, error)
	GetSupplierName(ctx context.Context, supplierID int64) (string, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records inbound stock movements.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
}

// NewService constructs the receiving service.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit}
}

// ReceiveInput is one inbound delivery line.
type ReceiveInput struct {
	ItemID       int64     `json:"item_id" validate:"required,gt=0"`
	SupplierID   int64     `json:"supplier_id" validate:"required,gt=0"`
	Quantity     int64     `json:"quantity" validate:"required,gt=0"`
	Reference    string    `json:"reference"`
	DateReceived time.Time `json:"date_received"`
	ReceivedBy   int64     `json:"received_by"`
}

// Receive validates and persists one receiving record with status Received.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (ReceivingRecord, error) {
	errs := shared.ValidateStruct(input)
	if errs == nil {
		errs = make(shared.FieldErrors)
	}
	if input.ItemID > 0 && s.catalog != nil {
		if _, err := s.catalog.GetItemName(ctx, input.ItemID); err != nil {
			errs["item_id"] = "unknown item"
		}
	}
	if input.SupplierID > 0 && s.catalog != nil {
		if _, err := s.catalog.GetSupplierName(ctx, input.SupplierID); err != nil {
			errs["supplier_id"] = "unknown supplier"
		}
	}
	if len(errs) > 0 {
		return ReceivingRecord{}, errs
	}

	dateReceived := input.DateReceived
	if dateReceived.IsZero() {
		dateReceived = time.Now()
	}
	rec := ReceivingRecord{
		ItemID:       input.ItemID,
		SupplierID:   input.SupplierID,
		Quantity:     input.Quantity,
		Reference:    input.Reference,
		DateReceived: dateReceived,
		ReceivedBy:   input.ReceivedBy,
		Status:       StatusReceived,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertReceiving(ctx, rec)
		if err != nil {
			return err
		}
		rec.ID = id
		return nil
	})
	if err != nil {
		return ReceivingRecord{}, err
	}
	s.recordAudit(ctx, input.ReceivedBy, "RECEIVE", rec.ID, map[string]any{
		"item_id":  rec.ItemID,
		"quantity": rec.Quantity,
	})
	return rec, nil
}

// SetStatus moves a record to any of the known statuses.
func (s *Service) SetStatus(ctx context.Context, id int64, status Status) error {
	if !status.Valid() {
		return shared.FieldErrors{"status": "must be one of RECEIVED, PENDING, CANCELLED"}
	}
	if _, err := s.repo.GetReceiving(ctx, id); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateReceivingStatus(ctx, id, status)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, shared.ActorFromContext(ctx), "RECEIVE_STATUS", id, map[string]any{"status": string(status)})
	return nil
}

// Get loads one receiving record.
func (s *Service) Get(ctx context.Context, id int64) (ReceivingRecord, error) {
	return s.repo.GetReceiving(ctx, id)
}

// List pages through receiving records.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]ReceivingRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListReceivings(ctx, limit, offset, filters)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "receiving", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
