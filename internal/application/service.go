package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vetcred/internal/access"
	"vetcred/internal/audit"
	"vetcred/internal/member"
	"vetcred/internal/platform/metrics"
	"vetcred/internal/qrtoken"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/internal/notify"
	"vetcred/pkg/platform/secrets"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/platform/tx"
	"vetcred/pkg/requestcontext"
)

// CityChecker validates the target city at submission time.
type CityChecker interface {
	IsAcceptingApplications(ctx context.Context, id domain.CityID) (bool, error)
}

// Service governs the application review state machine and the one-to-one
// member creation on approval.
type Service struct {
	apps    Store
	members member.Store
	tokens  *qrtoken.Service
	cities  CityChecker
	runner  tx.Runner
	mailer  notify.Mailer
	auditor audit.Recorder
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewService(
	apps Store,
	members member.Store,
	tokens *qrtoken.Service,
	cities CityChecker,
	runner tx.Runner,
	mailer notify.Mailer,
	auditor audit.Recorder,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Service{
		apps:    apps,
		members: members,
		tokens:  tokens,
		cities:  cities,
		runner:  runner,
		mailer:  mailer,
		auditor: auditor,
		metrics: m,
		logger:  logger,
	}
}

// Submit validates and persists a new application in pending. The returned
// application carries the tracking token exactly once; callers hand it to
// the applicant and it is never listed again.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Application, error) {
	accepting, err := s.cities.IsAcceptingApplications(ctx, in.CityID)
	if err != nil {
		return nil, err
	}
	if !accepting {
		return nil, dErrors.New(dErrors.CodeValidation, "city is not accepting applications")
	}

	token, err := secrets.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate tracking token")
	}
	app, err := New(domain.NewApplicationID(), in, token, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save application")
	}

	s.sendMail(ctx, app.Email, "Application received",
		fmt.Sprintf("Your application is being reviewed. Track its status with token: %s", app.TrackingToken))
	return app, nil
}

// Approve moves a pending application to approved and creates its member
// credential in one transaction. qrToken may be empty, in which case a fresh
// token is minted and bound.
func (s *Service) Approve(ctx context.Context, actor domain.Principal, id domain.ApplicationID, qrToken string) (*member.Member, error) {
	app, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusPending {
		return nil, dErrors.New(dErrors.CodeConflict, "application has already been processed")
	}
	if err := access.Authorize(actor, app.CityID); err != nil {
		return nil, err
	}

	qrToken = strings.TrimSpace(qrToken)
	if qrToken == "" {
		qrToken = qrtoken.NewToken()
	} else {
		// The member row must carry the same canonical key Bind writes, or
		// the credential is unreachable by scan.
		qrToken, err = qrtoken.NormalizeToken(qrToken)
		if err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	var created *member.Member
	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		// Bind before the status write so a rejected token leaves the
		// application untouched.
		if err := s.tokens.Bind(txCtx, qrToken); err != nil {
			return err
		}

		app.ApplyApproval(actor.ID.String(), now)
		if err := s.apps.Decide(txCtx, app); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "application has already been processed")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record approval")
		}

		seq, err := s.members.NextMemberNo(txCtx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate member number")
		}
		m := &member.Member{
			ID:            domain.NewMemberID(),
			MemberNo:      member.FormatMemberNo(now.Year(), seq),
			QRToken:       qrToken,
			ApplicationID: app.ID,
			NameEn:        app.NameEn,
			NameAr:        app.NameAr,
			CityID:        app.CityID,
			IssueDate:     now,
			ExpiryDate:    now.AddDate(member.ValidityPeriod, 0, 0),
			Status:        member.StatusActive,
			UpdatedAt:     now,
			UpdatedBy:     actor.ID.String(),
		}
		if err := s.members.Create(txCtx, m); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create member")
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ApplicationsDecided.WithLabelValues("approved").Inc()
	}
	s.auditor.Record(ctx, audit.Event{
		Action:     "application_approved",
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role.String(),
		TargetID:   app.ID.String(),
		TargetType: "application",
		Detail:     "member " + created.MemberNo,
	})
	s.sendMail(ctx, app.Email, "Application approved",
		fmt.Sprintf("Congratulations. Your membership number is %s, valid until %s.",
			created.MemberNo, created.ExpiryDate.Format("2006-01-02")))
	return created, nil
}

// Reject moves a pending application to rejected with a mandatory reason.
// The notification carries the tracking token so the applicant can look up
// the decision without authenticating.
func (s *Service) Reject(ctx context.Context, actor domain.Principal, id domain.ApplicationID, reason string) (*Application, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	app, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusPending {
		return nil, dErrors.New(dErrors.CodeConflict, "application has already been processed")
	}
	if err := access.Authorize(actor, app.CityID); err != nil {
		return nil, err
	}

	app.ApplyRejection(actor.ID.String(), reason, requestcontext.Now(ctx))
	if err := s.apps.Decide(ctx, app); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "application has already been processed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record rejection")
	}

	if s.metrics != nil {
		s.metrics.ApplicationsDecided.WithLabelValues("rejected").Inc()
	}
	s.auditor.Record(ctx, audit.Event{
		Action:     "application_rejected",
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role.String(),
		TargetID:   app.ID.String(),
		TargetType: "application",
		Detail:     reason,
	})
	s.sendMail(ctx, app.Email, "Application decision",
		fmt.Sprintf("Your application was not approved: %s. Check details with token: %s",
			reason, app.TrackingToken))
	return app, nil
}

// StatusView is the public read for an applicant holding a tracking token.
type StatusView struct {
	Status          Status     `json:"status"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	Member          *MemberCard `json:"member,omitempty"`
}

// MemberCard is the public-safe subset of member fields shown to the
// applicant once approved.
type MemberCard struct {
	MemberNo   string                 `json:"member_no"`
	NameEn     string                 `json:"name_en"`
	NameAr     string                 `json:"name_ar"`
	IssueDate  time.Time              `json:"issue_date"`
	ExpiryDate time.Time              `json:"expiry_date"`
	Status     member.EffectiveStatus `json:"status"`
}

// GetByTrackingToken is the unauthenticated status lookup. The token is the
// sole capability; no principal is involved.
func (s *Service) GetByTrackingToken(ctx context.Context, token string) (*StatusView, error) {
	if strings.TrimSpace(token) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tracking token is required")
	}
	app, err := s.apps.FindByTrackingToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}

	view := &StatusView{
		Status:          app.Status,
		SubmittedAt:     app.CreatedAt,
		ReviewedAt:      app.ReviewedAt,
		RejectionReason: app.RejectionReason,
	}
	if app.Status != StatusApproved {
		return view, nil
	}

	m, err := s.members.FindByApplication(ctx, app.ID)
	if err != nil {
		// An approved application without a member is the invariant the
		// transaction in Approve exists to prevent.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "approved application has no member record")
	}
	view.Member = &MemberCard{
		MemberNo:   m.MemberNo,
		NameEn:     m.NameEn,
		NameAr:     m.NameAr,
		IssueDate:  m.IssueDate,
		ExpiryDate: m.ExpiryDate,
		Status:     m.Effective(requestcontext.Now(ctx)),
	}
	return view, nil
}

// List returns applications visible to the actor, optionally filtered by
// status.
func (s *Service) List(ctx context.Context, actor domain.Principal, status Status) ([]*Application, error) {
	if !actor.Role.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "administrative role required")
	}
	apps, err := s.apps.List(ctx, access.Scope(actor), status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	// The tracking token is shown once at submission and never again.
	for _, a := range apps {
		a.TrackingToken = ""
	}
	return apps, nil
}

// CountByCity satisfies the city service's reference check.
func (s *Service) CountByCity(ctx context.Context, cityID domain.CityID) (int, error) {
	return s.apps.CountByCity(ctx, cityID)
}

func (s *Service) find(ctx context.Context, id domain.ApplicationID) (*Application, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return app, nil
}

// sendMail is best-effort: failures are logged and never surfaced as the
// operation's result.
func (s *Service) sendMail(ctx context.Context, to, subject, body string) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			"to", to,
			"subject", subject,
			"error", err,
		)
	}
}
