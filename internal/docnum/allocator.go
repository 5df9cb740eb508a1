package docnum

import (
	"context"
	"fmt"
)

// RepositoryPort describes the read side used for previewing numbers.
type RepositoryPort interface {
	// MaxSequence returns the greatest recorded sequence for the
	// (type, period) pair, or 0 when none exists.
	MaxSequence(ctx context.Context, docType DocumentType, period Period) (int, error)
}

// TxSequences is implemented by transactional repositories that can hand
// out sequences atomically. NextSequence must bump a dedicated counter row
// under row-level locking, and RecordIdentifier must insert into the number
// registry whose unique index backs collision detection.
type TxSequences interface {
	NextSequence(ctx context.Context, docType DocumentType, period Period) (int, error)
	RecordIdentifier(ctx context.Context, docType DocumentType, id Identifier) error
}

// Allocator computes document numbers scoped to (type, period).
type Allocator struct {
	repo RepositoryPort
}

// NewAllocator constructs an Allocator.
func NewAllocator(repo RepositoryPort) *Allocator {
	return &Allocator{repo: repo}
}

// Next previews the next identifier without reserving it. The number only
// becomes permanent when a document carrying it is persisted, so callers
// that persist must allocate again through AllocateTx inside their
// transaction.
func (a *Allocator) Next(ctx context.Context, docType DocumentType, period Period) (Identifier, error) {
	if !docType.Valid() {
		return "", ErrUnknownType
	}
	if period.IsZero() {
		return "", fmt.Errorf("docnum: period required")
	}
	max, err := a.repo.MaxSequence(ctx, docType, period)
	if err != nil {
		return "", err
	}
	if max >= maxSequence {
		return "", fmt.Errorf("%w: %s %s", ErrSequenceExhausted, docType, period)
	}
	return FormatIdentifier(period, max+1), nil
}

// AllocateTx hands out the next identifier within the caller's transaction
// and records it in the registry. The counter bump serialises concurrent
// allocations for the same (type, period); the registry insert turns any
// residual duplicate into ErrIdentifierCollision.
func AllocateTx(ctx context.Context, seqs TxSequences, docType DocumentType, period Period) (Identifier, error) {
	if !docType.Valid() {
		return "", ErrUnknownType
	}
	if period.IsZero() {
		return "", fmt.Errorf("docnum: period required")
	}
	seq, err := seqs.NextSequence(ctx, docType, period)
	if err != nil {
		return "", err
	}
	if seq > maxSequence {
		return "", fmt.Errorf("%w: %s %s", ErrSequenceExhausted, docType, period)
	}
	id := FormatIdentifier(period, seq)
	if err := seqs.RecordIdentifier(ctx, docType, id); err != nil {
		return "", err
	}
	return id, nil
}
