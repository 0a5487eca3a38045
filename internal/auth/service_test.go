package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vetcred/internal/jwttoken"
	"vetcred/internal/ratelimit"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/platform/secrets"
	"vetcred/pkg/requestcontext"
)

const testPassword = "correct horse battery"

type ServiceSuite struct {
	suite.Suite

	ctx      context.Context
	now      time.Time
	store    *InMemory
	jwt      *jwttoken.Service
	svc      *Service
	topAdmin domain.Principal
	account  *Account
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithClientMetadata(
		requestcontext.WithTime(context.Background(), s.now),
		"203.0.113.7",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/125.0 Safari/537.36",
	)

	s.store = NewInMemory()
	s.jwt = jwttoken.NewService("test-signing-key", "vetcred-test")
	limiter := ratelimit.New(ratelimit.NewInMemory(), ratelimit.WithMaxAttempts(3))
	s.svc = NewService(s.store, s.jwt, limiter, nil, nil)

	s.topAdmin = domain.Principal{ID: domain.NewAccountID(), Role: domain.RoleTopAdmin}

	hash, err := secrets.Hash(testPassword)
	s.Require().NoError(err)
	account, err := NewAccount(domain.NewAccountID(), "branch@vetcred.example", hash,
		domain.RoleBranchAdmin, []domain.CityID{domain.NewCityID()}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, account))
	s.account = account
}

func (s *ServiceSuite) TestLoginIssuesUsableToken() {
	result, err := s.svc.Login(s.ctx, "branch@vetcred.example", testPassword)
	s.Require().NoError(err)
	s.Equal(s.account.ID, result.AccountID)
	s.Equal(domain.RoleBranchAdmin, result.Role)

	p, err := s.jwt.ValidatePrincipal(result.AccessToken)
	s.Require().NoError(err)
	s.Equal(s.account.ID, p.ID)
	s.Equal(domain.RoleBranchAdmin, p.Role)
	s.Equal(s.account.Cities, p.Cities)
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	_, err := s.svc.Login(s.ctx, "branch@vetcred.example", "wrong")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLoginUnknownEmailReadsTheSame() {
	_, errUnknown := s.svc.Login(s.ctx, "nobody@vetcred.example", testPassword)
	_, errWrongPw := s.svc.Login(s.ctx, "branch@vetcred.example", "wrong")

	s.Require().Error(errUnknown)
	s.Require().Error(errWrongPw)
	s.Equal(dErrors.Message(errUnknown), dErrors.Message(errWrongPw))
}

func (s *ServiceSuite) TestLoginDeactivatedAccount() {
	s.account.Active = false
	s.Require().NoError(s.store.Update(s.ctx, s.account))

	_, err := s.svc.Login(s.ctx, "branch@vetcred.example", testPassword)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLoginThrottledAfterRepeatedFailures() {
	for i := 0; i < 3; i++ {
		_, err := s.svc.Login(s.ctx, "branch@vetcred.example", "wrong")
		s.Require().Error(err)
	}

	// Even the correct password is refused while the window is saturated.
	_, err := s.svc.Login(s.ctx, "branch@vetcred.example", testPassword)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestLoginSuccessResetsThrottle() {
	for i := 0; i < 2; i++ {
		_, err := s.svc.Login(s.ctx, "branch@vetcred.example", "wrong")
		s.Require().Error(err)
	}

	_, err := s.svc.Login(s.ctx, "branch@vetcred.example", testPassword)
	s.Require().NoError(err)

	// The window restarted; two more mistakes do not lock the account.
	for i := 0; i < 2; i++ {
		_, err := s.svc.Login(s.ctx, "branch@vetcred.example", "wrong")
		s.Require().Error(err)
	}
	_, err = s.svc.Login(s.ctx, "branch@vetcred.example", testPassword)
	s.NoError(err)
}

func (s *ServiceSuite) TestCreateAccount() {
	account, err := s.svc.CreateAccount(s.ctx, s.topAdmin, "clinic@vetcred.example",
		"a-long-enough-password", domain.RoleClinic, nil)
	s.Require().NoError(err)
	s.Equal(domain.RoleClinic, account.Role)
	s.True(account.Active)

	_, err = s.svc.CreateAccount(s.ctx, s.topAdmin, "clinic@vetcred.example",
		"a-long-enough-password", domain.RoleClinic, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestCreateAccountRejectsShortPassword() {
	_, err := s.svc.CreateAccount(s.ctx, s.topAdmin, "x@vetcred.example",
		"short", domain.RoleClinic, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestCreateAccountDeniedForBranchAdmin() {
	_, err := s.svc.CreateAccount(s.ctx, s.account.Principal(), "x@vetcred.example",
		"a-long-enough-password", domain.RoleClinic, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestAssignCities() {
	cities := []domain.CityID{domain.NewCityID(), domain.NewCityID()}
	account, err := s.svc.AssignCities(s.ctx, s.topAdmin, s.account.ID, cities)
	s.Require().NoError(err)
	s.Equal(cities, account.Cities)
}

func (s *ServiceSuite) TestAssignCitiesOnlyForBranchAdmins() {
	clinic, err := s.svc.CreateAccount(s.ctx, s.topAdmin, "clinic@vetcred.example",
		"a-long-enough-password", domain.RoleClinic, nil)
	s.Require().NoError(err)

	_, err = s.svc.AssignCities(s.ctx, s.topAdmin, clinic.ID, []domain.CityID{domain.NewCityID()})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestDescribeDevice(t *testing.T) {
	got := describeDevice("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	if got == "" {
		t.Fatal("expected a device description")
	}
}
