package member

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/platform/tx"
	"vetcred/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite

	ctx   context.Context
	now   time.Time
	store *InMemory
	svc   *Service

	admin  domain.Principal
	cityID domain.CityID
	m      *Member
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.cityID = domain.NewCityID()
	s.admin = domain.Principal{
		ID:     domain.NewAccountID(),
		Role:   domain.RoleBranchAdmin,
		Cities: []domain.CityID{s.cityID},
	}

	s.store = NewInMemory()
	s.svc = NewService(s.store, tx.NewMemoryRunner(), nil, nil)

	s.m = &Member{
		ID:         domain.NewMemberID(),
		MemberNo:   "VET-2025-00001",
		QRToken:    "9a1b44d0-17c2-4e59-9a31-c5d1e0b7f402",
		NameEn:     "Lina Alqahtani",
		CityID:     s.cityID,
		IssueDate:  s.now.AddDate(-1, 0, 0),
		ExpiryDate: s.now.AddDate(0, 2, 0),
		Status:     StatusActive,
		UpdatedAt:  s.now.AddDate(-1, 0, 0),
	}
	s.Require().NoError(s.store.Create(s.ctx, s.m))
}

func (s *ServiceSuite) TestSuspendRequiresReason() {
	_, err := s.svc.Suspend(s.ctx, s.admin, s.m.ID, "   ")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSuspendSetsReason() {
	m, err := s.svc.Suspend(s.ctx, s.admin, s.m.ID, "rabies vaccination record under review")
	s.Require().NoError(err)
	s.Equal(StatusSuspended, m.Status)
	s.Equal("rabies vaccination record under review", m.SuspensionReason)
	s.Equal(EffectiveSuspended, m.Effective(s.now))
}

func (s *ServiceSuite) TestResuspendLastWriterWins() {
	_, err := s.svc.Suspend(s.ctx, s.admin, s.m.ID, "first reason")
	s.Require().NoError(err)
	m, err := s.svc.Suspend(s.ctx, s.admin, s.m.ID, "second reason")
	s.Require().NoError(err)
	s.Equal("second reason", m.SuspensionReason)
}

func (s *ServiceSuite) TestSuspensionOutranksExpiry() {
	_, err := s.svc.Suspend(s.ctx, s.admin, s.m.ID, "hold")
	s.Require().NoError(err)

	// Past expiry the member still reads suspended, not expired.
	afterExpiry := s.m.ExpiryDate.AddDate(0, 1, 0)
	m, err := s.store.FindByID(s.ctx, s.m.ID)
	s.Require().NoError(err)
	s.Equal(EffectiveSuspended, m.Effective(afterExpiry))
}

func (s *ServiceSuite) TestUnsuspendExposesExpiredState() {
	s.m.ExpiryDate = s.now.AddDate(0, 0, -10)
	s.m.Status = StatusSuspended
	s.m.SuspensionReason = "hold"
	s.Require().NoError(s.store.Update(s.ctx, s.m))

	m, err := s.svc.Unsuspend(s.ctx, s.admin, s.m.ID)
	s.Require().NoError(err)
	s.Empty(m.SuspensionReason)
	// Unsuspension does not move the expiry date.
	s.Equal(EffectiveExpired, m.Effective(s.now))
}

func (s *ServiceSuite) TestRenewStacksOnRemainingTerm() {
	m, err := s.svc.Renew(s.ctx, s.admin, s.m.ID)
	s.Require().NoError(err)
	s.Equal(s.m.ExpiryDate.AddDate(1, 0, 0), m.ExpiryDate)
	s.Equal(s.now, m.IssueDate)
}

func (s *ServiceSuite) TestRenewLapsedStartsFromNow() {
	s.m.ExpiryDate = s.now.AddDate(-1, 0, 0)
	s.Require().NoError(s.store.Update(s.ctx, s.m))

	m, err := s.svc.Renew(s.ctx, s.admin, s.m.ID)
	s.Require().NoError(err)
	s.Equal(s.now.AddDate(1, 0, 0), m.ExpiryDate)
	s.Equal(EffectiveActive, m.Effective(s.now))
}

func (s *ServiceSuite) TestRenewReactivatesSuspended() {
	_, err := s.svc.Suspend(s.ctx, s.admin, s.m.ID, "hold")
	s.Require().NoError(err)

	m, err := s.svc.Renew(s.ctx, s.admin, s.m.ID)
	s.Require().NoError(err)
	s.Equal(StatusActive, m.Status)
	s.Empty(m.SuspensionReason)
}

func (s *ServiceSuite) TestScopeEnforcedOnMutations() {
	outsider := domain.Principal{
		ID:     domain.NewAccountID(),
		Role:   domain.RoleBranchAdmin,
		Cities: []domain.CityID{domain.NewCityID()},
	}
	_, err := s.svc.Suspend(s.ctx, outsider, s.m.ID, "hold")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.svc.Renew(s.ctx, outsider, s.m.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.svc.Get(s.ctx, outsider, s.m.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestListScoped() {
	members, err := s.svc.List(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Len(members, 1)

	unassigned := domain.Principal{ID: domain.NewAccountID(), Role: domain.RoleBranchAdmin}
	members, err = s.svc.List(s.ctx, unassigned)
	s.Require().NoError(err)
	s.Empty(members)
}

type evictRecorder struct {
	tokens []string
}

func (r *evictRecorder) Evict(token string) { r.tokens = append(r.tokens, token) }

func (s *ServiceSuite) TestMutationsEvictCachedCard() {
	rec := &evictRecorder{}
	s.svc.UseCache(rec)

	_, err := s.svc.Suspend(s.ctx, s.admin, s.m.ID, "hold")
	s.Require().NoError(err)
	_, err = s.svc.Unsuspend(s.ctx, s.admin, s.m.ID)
	s.Require().NoError(err)
	_, err = s.svc.Renew(s.ctx, s.admin, s.m.ID)
	s.Require().NoError(err)

	s.Equal([]string{s.m.QRToken, s.m.QRToken, s.m.QRToken}, rec.tokens)
}

func TestFormatMemberNo(t *testing.T) {
	assert.Equal(t, "VET-2026-00042", FormatMemberNo(2026, 42))
	assert.Equal(t, "VET-2026-123456", FormatMemberNo(2026, 123456))
}

func TestEffectiveDerivation(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	m := &Member{Status: StatusActive, ExpiryDate: now.Add(time.Hour)}

	assert.Equal(t, EffectiveActive, m.Effective(now))
	assert.Equal(t, EffectiveExpired, m.Effective(now.Add(2*time.Hour)))

	m.Status = StatusSuspended
	assert.Equal(t, EffectiveSuspended, m.Effective(now))
	assert.Equal(t, EffectiveSuspended, m.Effective(now.Add(2*time.Hour)))
}
