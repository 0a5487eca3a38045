package renewal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vetcred/internal/member"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/platform/tx"
	"vetcred/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite

	ctx     context.Context
	now     time.Time
	svc     *Service
	members *member.InMemory

	admin  domain.Principal
	cityID domain.CityID
	member *member.Member
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.cityID = domain.NewCityID()
	s.admin = domain.Principal{
		ID:     domain.NewAccountID(),
		Role:   domain.RoleBranchAdmin,
		Cities: []domain.CityID{s.cityID},
	}

	s.members = member.NewInMemory()
	runner := tx.NewMemoryRunner()
	memberSvc := member.NewService(s.members, runner, nil, nil)
	s.svc = NewService(NewInMemory(), s.members, memberSvc, runner, nil)

	s.member = &member.Member{
		ID:         domain.NewMemberID(),
		MemberNo:   "VET-2025-00042",
		QRToken:    "3f1d2aa0-9d55-4f6e-9f3a-6f3f1f9b2c01",
		NameEn:     "Sara Alotaibi",
		CityID:     s.cityID,
		IssueDate:  s.now.AddDate(-1, 0, 0),
		ExpiryDate: s.now.AddDate(0, 1, 0),
		Status:     member.StatusActive,
		UpdatedAt:  s.now.AddDate(-1, 0, 0),
	}
	s.Require().NoError(s.members.Create(s.ctx, s.member))
}

func (s *ServiceSuite) submit() *Request {
	r, err := s.svc.Submit(s.ctx, s.member.QRToken, "license fee paid")
	s.Require().NoError(err)
	return r
}

func (s *ServiceSuite) TestSubmit() {
	r := s.submit()
	s.Equal(StatusPending, r.Status)
	s.Equal(s.member.ID, r.MemberID)
	s.Equal(s.cityID, r.CityID)
	s.Equal("license fee paid", r.Notes)
}

func (s *ServiceSuite) TestSubmitUnknownToken() {
	_, err := s.svc.Submit(s.ctx, "ffffffff-ffff-4fff-8fff-ffffffffffff", "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSubmitSecondPendingConflicts() {
	s.submit()
	_, err := s.svc.Submit(s.ctx, s.member.QRToken, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestSubmitAllowedAgainAfterDecision() {
	r := s.submit()
	_, err := s.svc.Reject(s.ctx, s.admin, r.ID, "fee not received")
	s.Require().NoError(err)

	_, err = s.svc.Submit(s.ctx, s.member.QRToken, "fee paid this time")
	s.NoError(err)
}

func (s *ServiceSuite) TestApproveExtendsFromExpiry() {
	r := s.submit()

	renewed, err := s.svc.Approve(s.ctx, s.admin, r.ID)
	s.Require().NoError(err)

	// Not yet expired: the new term stacks on the remaining one.
	s.Equal(s.member.ExpiryDate.AddDate(1, 0, 0), renewed.ExpiryDate)
	s.Equal(member.EffectiveActive, renewed.Effective(s.now))
}

func (s *ServiceSuite) TestApproveExpiredMemberExtendsFromNow() {
	s.member.ExpiryDate = s.now.AddDate(0, -2, 0)
	s.Require().NoError(s.members.Update(s.ctx, s.member))
	r := s.submit()

	renewed, err := s.svc.Approve(s.ctx, s.admin, r.ID)
	s.Require().NoError(err)

	// Lapsed terms do not stack; the clock restarts at approval time.
	s.Equal(s.now.AddDate(1, 0, 0), renewed.ExpiryDate)
	s.Equal(member.EffectiveActive, renewed.Effective(s.now))
}

func (s *ServiceSuite) TestApproveTwiceConflicts() {
	r := s.submit()
	_, err := s.svc.Approve(s.ctx, s.admin, r.ID)
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.ctx, s.admin, r.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestRejectThenApproveConflicts() {
	r := s.submit()
	_, err := s.svc.Reject(s.ctx, s.admin, r.ID, "documents expired")
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.ctx, s.admin, r.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	// The member's expiry is untouched by the rejected request.
	m, err := s.members.FindByID(s.ctx, s.member.ID)
	s.Require().NoError(err)
	s.Equal(s.member.ExpiryDate, m.ExpiryDate)
}

func (s *ServiceSuite) TestApproveUnknownRequest() {
	_, err := s.svc.Approve(s.ctx, s.admin, domain.NewRenewalRequestID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestApproveOutsideScopeUnauthorized() {
	outsider := domain.Principal{
		ID:     domain.NewAccountID(),
		Role:   domain.RoleBranchAdmin,
		Cities: []domain.CityID{domain.NewCityID()},
	}
	r := s.submit()

	_, err := s.svc.Approve(s.ctx, outsider, r.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestRejectRequiresReason() {
	r := s.submit()
	_, err := s.svc.Reject(s.ctx, s.admin, r.ID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestListPendingScoped() {
	r := s.submit()

	pending, err := s.svc.ListPending(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(r.ID, pending[0].ID)

	outsider := domain.Principal{
		ID:     domain.NewAccountID(),
		Role:   domain.RoleBranchAdmin,
		Cities: []domain.CityID{domain.NewCityID()},
	}
	pending, err = s.svc.ListPending(s.ctx, outsider)
	s.Require().NoError(err)
	s.Empty(pending)

	clinic := domain.Principal{ID: domain.NewAccountID(), Role: domain.RoleClinic}
	_, err = s.svc.ListPending(s.ctx, clinic)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
