package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mssola/useragent"

	"vetcred/internal/audit"
	"vetcred/internal/jwttoken"
	"vetcred/internal/platform/metrics"
	"vetcred/internal/ratelimit"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/platform/secrets"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/requestcontext"
)

// AccessTokenTTL is how long an issued session token stays valid.
const AccessTokenTTL = 8 * time.Hour

// Service handles login and account administration. Login failures are
// throttled per source IP; the account's existence is never revealed by
// which step failed.
type Service struct {
	store   Store
	tokens  *jwttoken.Service
	limiter *ratelimit.Limiter
	auditor audit.Recorder
	metrics *metrics.Metrics
}

func NewService(store Store, tokens *jwttoken.Service, limiter *ratelimit.Limiter, auditor audit.Recorder, m *metrics.Metrics) *Service {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Service{
		store:   store,
		tokens:  tokens,
		limiter: limiter,
		auditor: auditor,
		metrics: m,
	}
}

// LoginResult carries the issued token and the authenticated identity.
type LoginResult struct {
	AccessToken string           `json:"access_token"`
	ExpiresIn   int              `json:"expires_in"`
	AccountID   domain.AccountID `json:"account_id"`
	Role        domain.Role      `json:"role"`
}

// Login authenticates by email and password and issues a session token.
// Every failure path records against the throttle and reads the same to the
// caller: invalid credentials.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	key := requestcontext.ClientIP(ctx)
	if key == "" {
		key = "unknown"
	}
	if err := s.limiter.Allow(ctx, key); err != nil {
		s.observe("throttled")
		return nil, err
	}

	account, err := s.store.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if account == nil || !account.Active {
		return nil, s.fail(ctx, key, email)
	}
	if err := secrets.Verify(password, account.PasswordHash); err != nil {
		return nil, s.fail(ctx, key, email)
	}

	if err := s.limiter.RecordSuccess(ctx, key); err != nil {
		return nil, err
	}
	token, err := s.tokens.GenerateAccessToken(account.Principal(), AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.observe("success")
	s.auditor.Record(ctx, audit.Event{
		Action:     "login_succeeded",
		ActorID:    account.ID.String(),
		ActorRole:  account.Role.String(),
		TargetID:   account.ID.String(),
		TargetType: "account",
		Detail:     describeDevice(requestcontext.UserAgent(ctx)),
	})
	return &LoginResult{
		AccessToken: token,
		ExpiresIn:   int(AccessTokenTTL.Seconds()),
		AccountID:   account.ID,
		Role:        account.Role,
	}, nil
}

func (s *Service) fail(ctx context.Context, key, email string) error {
	if err := s.limiter.RecordFailure(ctx, key); err != nil {
		return err
	}
	s.observe("failure")
	s.auditor.Record(ctx, audit.Event{
		Action:     "login_failed",
		ActorID:    strings.ToLower(strings.TrimSpace(email)),
		TargetType: "account",
		Detail:     describeDevice(requestcontext.UserAgent(ctx)),
	})
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(result).Inc()
	}
}

// describeDevice condenses a User-Agent header for the audit trail.
func describeDevice(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return ua.OS()
	}
	return fmt.Sprintf("%s %s on %s", name, version, ua.OS())
}

// CreateAccount registers a staff login. Top admin only.
func (s *Service) CreateAccount(ctx context.Context, actor domain.Principal, email, password string, role domain.Role, cities []domain.CityID) (*Account, error) {
	if actor.Role != domain.RoleTopAdmin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the top admin manages accounts")
	}
	if len(password) < 12 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 12 characters")
	}
	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	account, err := NewAccount(domain.NewAccountID(), email, hash, role, cities, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrDuplicateKey) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.auditor.Record(ctx, audit.Event{
		Action:     "account_created",
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role.String(),
		TargetID:   account.ID.String(),
		TargetType: "account",
		Detail:     string(role),
	})
	return account, nil
}

// AssignCities replaces a branch admin's city scope.
func (s *Service) AssignCities(ctx context.Context, actor domain.Principal, id domain.AccountID, cities []domain.CityID) (*Account, error) {
	if actor.Role != domain.RoleTopAdmin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the top admin manages accounts")
	}
	account, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Role != domain.RoleBranchAdmin {
		return nil, dErrors.New(dErrors.CodeValidation, "only branch admins carry city assignments")
	}

	account.Cities = cities
	account.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update account")
	}

	s.auditor.Record(ctx, audit.Event{
		Action:     "account_cities_assigned",
		ActorID:    actor.ID.String(),
		ActorRole:  actor.Role.String(),
		TargetID:   account.ID.String(),
		TargetType: "account",
	})
	return account, nil
}

// SetActive enables or disables a login. Deactivated accounts keep their
// history; tokens already issued expire on their own.
func (s *Service) SetActive(ctx context.Context, actor domain.Principal, id domain.AccountID, active bool) (*Account, error) {
	if actor.Role != domain.RoleTopAdmin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the top admin manages accounts")
	}
	account, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	account.Active = active
	account.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update account")
	}
	return account, nil
}

// List returns all accounts. Top admin only.
func (s *Service) List(ctx context.Context, actor domain.Principal) ([]*Account, error) {
	if actor.Role != domain.RoleTopAdmin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the top admin manages accounts")
	}
	accounts, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts")
	}
	return accounts, nil
}

func (s *Service) find(ctx context.Context, id domain.AccountID) (*Account, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return account, nil
}
