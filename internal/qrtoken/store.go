package qrtoken

import (
	"context"
	"time"

	"vetcred/pkg/domain"
)

// Store abstracts token pool persistence.
//
// CreateCode must enforce token uniqueness and surface
// sentinel.ErrDuplicateKey when the token already exists; ActivateOnScan
// relies on that to resolve the concurrent first-scan race.
//
// FillCode must be an atomic compare-and-set on status: it succeeds only for
// a code currently in StatusGenerated and returns sentinel.ErrConflict for an
// already-filled code, sentinel.ErrNotFound for an unknown token.
type Store interface {
	CreateBatch(ctx context.Context, batch *Batch, codes []*Code) error
	CreateCode(ctx context.Context, code *Code) error
	FindCode(ctx context.Context, token string) (*Code, error)
	FillCode(ctx context.Context, token string, filledAt time.Time) error
	FindBatch(ctx context.Context, id domain.BatchID) (*Batch, error)
	ListBatches(ctx context.Context) ([]*Batch, error)
	Stats(ctx context.Context, id domain.BatchID) (*BatchStats, error)
}
