package member

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vetcred/internal/access"
	"vetcred/internal/audit"
	"vetcred/internal/platform/metrics"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/platform/tx"
	"vetcred/pkg/requestcontext"
)

// CacheEvicter drops a cached credential read when its member changes. The
// card cache satisfies it.
type CacheEvicter interface {
	Evict(qrToken string)
}

// Service governs the member lifecycle: suspension, reactivation, renewal.
// Expiry is never a transition here; it is derived at read time by
// Member.Effective.
type Service struct {
	store   Store
	runner  tx.Runner
	auditor audit.Recorder
	metrics *metrics.Metrics
	cache   CacheEvicter
}

func NewService(store Store, runner tx.Runner, auditor audit.Recorder, m *metrics.Metrics) *Service {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Service{store: store, runner: runner, auditor: auditor, metrics: m}
}

// UseCache registers the credential cache so lifecycle writes evict stale
// reads. Wired at startup; nil is fine.
func (s *Service) UseCache(c CacheEvicter) {
	s.cache = c
}

func (s *Service) evict(m *Member) {
	if s.cache != nil {
		s.cache.Evict(m.QRToken)
	}
}

// Get loads a member, enforcing the actor's city scope.
func (s *Service) Get(ctx context.Context, actor domain.Principal, id domain.MemberID) (*Member, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(actor, m.CityID); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns members visible to the actor. An unassigned branch admin gets
// an empty list, never an error.
func (s *Service) List(ctx context.Context, actor domain.Principal) ([]*Member, error) {
	if !actor.Role.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "administrative role required")
	}
	members, err := s.store.List(ctx, access.Scope(actor))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return members, nil
}

// Suspend puts the member into the suspended state with a mandatory reason.
// Suspending an already-suspended member re-sets the reason (last writer
// wins); there is no "already suspended" rejection.
func (s *Service) Suspend(ctx context.Context, actor domain.Principal, id domain.MemberID, reason string) (*Member, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "suspension reason is required")
	}
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(actor, m.CityID); err != nil {
		return nil, err
	}

	m.ApplySuspension(reason, actor.ID.String(), requestcontext.Now(ctx))
	if err := s.store.Update(ctx, m); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to suspend member")
	}
	s.evict(m)

	s.auditor.Record(ctx, audit.Event{
		Action:     "member_suspended",
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role.String(),
		TargetID:   m.ID.String(),
		TargetType: "member",
		Detail:     reason,
	})
	return m, nil
}

// Unsuspend returns the member to active and clears the reason. Expiry is
// untouched; a lapsed member reads as expired again until renewed.
func (s *Service) Unsuspend(ctx context.Context, actor domain.Principal, id domain.MemberID) (*Member, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(actor, m.CityID); err != nil {
		return nil, err
	}

	m.ApplyUnsuspension(actor.ID.String(), requestcontext.Now(ctx))
	if err := s.store.Update(ctx, m); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to unsuspend member")
	}
	s.evict(m)

	s.auditor.Record(ctx, audit.Event{
		Action:     "member_unsuspended",
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role.String(),
		TargetID:   m.ID.String(),
		TargetType: "member",
	})
	return m, nil
}

// Renew extends the credential inside its own transaction boundary. This is
// the only expiry-extension code path; renewal-request approval calls
// RenewInTx inside its composite transaction so the date math can never
// diverge.
func (s *Service) Renew(ctx context.Context, actor domain.Principal, id domain.MemberID) (*Member, error) {
	var renewed *Member
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		m, err := s.RenewInTx(txCtx, actor, id)
		if err != nil {
			return err
		}
		renewed = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renewed, nil
}

// RenewInTx performs the renewal writes assuming the caller established the
// transaction boundary.
func (s *Service) RenewInTx(ctx context.Context, actor domain.Principal, id domain.MemberID) (*Member, error) {
	m, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(actor, m.CityID); err != nil {
		return nil, err
	}

	m.ApplyRenewal(actor.ID.String(), requestcontext.Now(ctx))
	if err := s.store.Update(ctx, m); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to renew member")
	}
	s.evict(m)

	if s.metrics != nil {
		s.metrics.MembersRenewed.Inc()
	}
	s.auditor.Record(ctx, audit.Event{
		Action:     "member_renewed",
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role.String(),
		TargetID:   m.ID.String(),
		TargetType: "member",
	})
	return m, nil
}

// CountByCity satisfies the city service's reference check.
func (s *Service) CountByCity(ctx context.Context, cityID domain.CityID) (int, error) {
	return s.store.CountByCity(ctx, cityID)
}

// FormatMemberNo renders the human-readable member number.
func FormatMemberNo(year int, seq int64) string {
	return fmt.Sprintf("VET-%d-%05d", year, seq)
}

func (s *Service) find(ctx context.Context, id domain.MemberID) (*Member, error) {
	m, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	return m, nil
}
