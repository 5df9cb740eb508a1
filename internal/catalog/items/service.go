package items

import (
	"context"

	catshared "github.com/supplyhub/supplyhub/internal/catalog/shared"
	"github.com/supplyhub/supplyhub/internal/shared"
)

// Invalidator drops cached entries for an item after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, itemID int64) error
}

type Service struct {
	repo  Repository
	cache Invalidator
}

func NewService(repo Repository, cache Invalidator) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) List(ctx context.Context, filters catshared.ListFilters) ([]Item, int, error) {
	filters.Clamp()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, item Item) (Item, error) {
	if err := s.validate(item); err != nil {
		return Item{}, err
	}
	return s.repo.Create(ctx, item)
}

func (s *Service) Update(ctx context.Context, id int64, item Item) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	if err := s.validate(item); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, item); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// AdjustStock applies a signed stock delta, used by receiving and issuance
// wiring at the edges.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int64) (int64, error) {
	level, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, id)
	return level, nil
}

// ListBelowThreshold returns items whose stock level fell under threshold.
func (s *Service) ListBelowThreshold(ctx context.Context, threshold int64) ([]Item, error) {
	return s.repo.ListBelowThreshold(ctx, threshold)
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, id)
}
