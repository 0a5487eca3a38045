package renewal

import (
	"context"
	"errors"
	"strings"

	"vetcred/internal/access"
	"vetcred/internal/audit"
	"vetcred/internal/member"
	"vetcred/internal/qrtoken"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/platform/tx"
	"vetcred/pkg/requestcontext"
)

// Service handles the renewal request lifecycle. Approval delegates the
// expiry extension to the member service inside one transaction, so the
// renewal date math has exactly one home.
type Service struct {
	store   Store
	members member.Store
	renewer *member.Service
	runner  tx.Runner
	auditor audit.Recorder
}

func NewService(store Store, members member.Store, renewer *member.Service, runner tx.Runner, auditor audit.Recorder) *Service {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Service{
		store:   store,
		members: members,
		renewer: renewer,
		runner:  runner,
		auditor: auditor,
	}
}

// Submit files a renewal request for the member holding the credential token.
// The token is the capability; no login is involved. A member can have at
// most one pending request.
func (s *Service) Submit(ctx context.Context, qrToken, notes string) (*Request, error) {
	qrToken, err := qrtoken.NormalizeToken(strings.TrimSpace(qrToken))
	if err != nil {
		return nil, err
	}
	m, err := s.members.FindByToken(ctx, qrToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no credential matches this token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}

	r := &Request{
		ID:        domain.NewRenewalRequestID(),
		MemberID:  m.ID,
		CityID:    m.CityID,
		Notes:     strings.TrimSpace(notes),
		Status:    StatusPending,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrDuplicateKey) {
			return nil, dErrors.New(dErrors.CodeConflict, "a renewal request is already pending for this member")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save renewal request")
	}

	s.auditor.Record(ctx, audit.Event{
		Action:     "renewal_requested",
		ActorID:    m.ID.String(),
		ActorRole:  "member",
		TargetID:   r.ID.String(),
		TargetType: "renewal_request",
	})
	return r, nil
}

// Approve marks the request approved and renews the member in the same
// transaction. A request that is already processed is a conflict, reported
// as such rather than as not-found.
func (s *Service) Approve(ctx context.Context, actor domain.Principal, id domain.RenewalRequestID) (*member.Member, error) {
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusPending {
		return nil, dErrors.New(dErrors.CodeConflict, "renewal request has already been processed")
	}
	if err := access.Authorize(actor, r.CityID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var renewed *member.Member
	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		r.ApplyApproval(actor.ID.String(), now)
		if err := s.store.Decide(txCtx, r); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "renewal request has already been processed")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record approval")
		}
		m, err := s.renewer.RenewInTx(txCtx, actor, r.MemberID)
		if err != nil {
			return err
		}
		renewed = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, audit.Event{
		Action:     "renewal_approved",
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role.String(),
		TargetID:   r.ID.String(),
		TargetType: "renewal_request",
	})
	return renewed, nil
}

// Reject closes the request without touching the member.
func (s *Service) Reject(ctx context.Context, actor domain.Principal, id domain.RenewalRequestID, reason string) (*Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusPending {
		return nil, dErrors.New(dErrors.CodeConflict, "renewal request has already been processed")
	}
	if err := access.Authorize(actor, r.CityID); err != nil {
		return nil, err
	}

	r.ApplyRejection(actor.ID.String(), reason, requestcontext.Now(ctx))
	if err := s.store.Decide(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "renewal request has already been processed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record rejection")
	}

	s.auditor.Record(ctx, audit.Event{
		Action:     "renewal_rejected",
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role.String(),
		TargetID:   r.ID.String(),
		TargetType: "renewal_request",
		Detail:     reason,
	})
	return r, nil
}

// ListPending returns open requests within the actor's scope.
func (s *Service) ListPending(ctx context.Context, actor domain.Principal) ([]*Request, error) {
	if !actor.Role.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "administrative role required")
	}
	requests, err := s.store.ListPending(ctx, access.Scope(actor))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list renewal requests")
	}
	return requests, nil
}

func (s *Service) find(ctx context.Context, id domain.RenewalRequestID) (*Request, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "renewal request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load renewal request")
	}
	return r, nil
}
