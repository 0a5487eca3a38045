package qrtoken

import (
	"context"
	"errors"

	"vetcred/internal/access"
	"vetcred/internal/audit"
	"vetcred/internal/platform/metrics"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/requestcontext"
)

// MaxBatchQuantity bounds one mint request. Larger print runs are split into
// multiple batches so provenance stays granular.
const MaxBatchQuantity = 500

// Service manages the QR token pool: batch minting, lazy activation on first
// scan, and the one-way generated -> filled bind transition.
type Service struct {
	store   Store
	auditor audit.Recorder
	metrics *metrics.Metrics
}

func NewService(store Store, auditor audit.Recorder, m *metrics.Metrics) *Service {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Service{store: store, auditor: auditor, metrics: m}
}

// MintBatch creates one batch and quantity codes in StatusGenerated.
// Validation failures create zero rows.
func (s *Service) MintBatch(ctx context.Context, actor domain.Principal, quantity int) (*Batch, []*Code, error) {
	if err := access.AuthorizeGlobal(actor); err != nil {
		return nil, nil, err
	}
	if quantity < 1 || quantity > MaxBatchQuantity {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "batch quantity must be between 1 and 500")
	}

	now := requestcontext.Now(ctx)
	batch := &Batch{
		ID:       domain.NewBatchID(),
		Quantity: quantity,
		IssuedBy: actor.ID.String(),
		IssuedAt: now,
	}
	codes := make([]*Code, 0, quantity)
	for range quantity {
		codes = append(codes, &Code{
			Token:     NewToken(),
			BatchID:   &batch.ID,
			Status:    StatusGenerated,
			Issuer:    actor.ID.String(),
			CreatedAt: now,
		})
	}

	if err := s.store.CreateBatch(ctx, batch, codes); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint batch")
	}

	if s.metrics != nil {
		s.metrics.TokensMinted.Add(float64(quantity))
	}
	s.auditor.Record(ctx, audit.Event{
		Action:     "qr_batch_minted",
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role.String(),
		TargetID:   batch.ID.String(),
		TargetType: "qr_batch",
	})
	return batch, codes, nil
}

// ActivateOnScan is the lazy-creation path triggered by a first physical
// scan. Unknown tokens are created on the fly in StatusGenerated with issuer
// "system". Safe under concurrent first-scans of the same code: the insert
// race is resolved by treating a duplicate key as "someone else just created
// it" and re-reading.
func (s *Service) ActivateOnScan(ctx context.Context, token string) (*Code, error) {
	token, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}

	code, err := s.store.FindCode(ctx, token)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up token")
	}

	fresh := &Code{
		Token:     token,
		Status:    StatusGenerated,
		Issuer:    SystemIssuer,
		CreatedAt: requestcontext.Now(ctx),
	}
	err = s.store.CreateCode(ctx, fresh)
	if err == nil {
		if s.metrics != nil {
			s.metrics.TokensActivated.Inc()
		}
		return fresh, nil
	}
	if errors.Is(err, sentinel.ErrDuplicateKey) {
		// Lost the race; the winner's row is authoritative.
		code, err := s.store.FindCode(ctx, token)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to re-read token after race")
		}
		return code, nil
	}
	return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate token")
}

// Bind transitions a token generated -> filled at the moment a credential is
// bound to it. An unknown token is first created system-issued (stock printed
// before minting), then filled. Binding an already-filled token is a
// conflict. Callers are responsible for authorization and for running this
// inside their transaction boundary.
func (s *Service) Bind(ctx context.Context, token string) error {
	token, err := NormalizeToken(token)
	if err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	err = s.store.FillCode(ctx, token, now)
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "token is already bound to a credential")
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind token")
	}

	create := s.store.CreateCode(ctx, &Code{
		Token:     token,
		Status:    StatusGenerated,
		Issuer:    SystemIssuer,
		CreatedAt: now,
	})
	if create != nil && !errors.Is(create, sentinel.ErrDuplicateKey) {
		return dErrors.Wrap(create, dErrors.CodeInternal, "failed to create token for bind")
	}
	if err := s.store.FillCode(ctx, token, now); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "token is already bound to a credential")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind token")
	}
	return nil
}

// Lookup returns a code without creating it.
func (s *Service) Lookup(ctx context.Context, token string) (*Code, error) {
	token, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	code, err := s.store.FindCode(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up token")
	}
	return code, nil
}

// Stats returns used/unused counts for a batch.
func (s *Service) Stats(ctx context.Context, actor domain.Principal, id domain.BatchID) (*BatchStats, error) {
	if err := access.AuthorizeGlobal(actor); err != nil {
		return nil, err
	}
	stats, err := s.store.Stats(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "batch not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute batch stats")
	}
	return stats, nil
}

// ListBatches returns all batches, newest last.
func (s *Service) ListBatches(ctx context.Context, actor domain.Principal) ([]*Batch, error) {
	if err := access.AuthorizeGlobal(actor); err != nil {
		return nil, err
	}
	batches, err := s.store.ListBatches(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list batches")
	}
	return batches, nil
}
