//go:build integration

package renewal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vetcred/internal/application"
	"vetcred/internal/city"
	"vetcred/internal/member"
	"vetcred/internal/qrtoken"
	"vetcred/internal/renewal"
	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pc    *containers.PostgresContainer
	store *renewal.PostgresStore

	cityID   domain.CityID
	memberID domain.MemberID
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pc = containers.NewPostgresContainer(s.T())
	s.store = renewal.NewPostgres(s.pc.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.pc.Truncate(ctx,
		"renewal_requests", "members", "applications", "cities"))

	now := time.Now().UTC().Truncate(time.Microsecond)

	c, err := city.New(domain.NewCityID(), "Riyadh", "الرياض", "RUH", now)
	s.Require().NoError(err)
	s.Require().NoError(city.NewPostgres(s.pc.DB).Create(ctx, c))
	s.cityID = c.ID

	app, err := application.New(domain.NewApplicationID(), application.SubmitInput{
		NameEn: "Dana Veterinarian",
		NameAr: "دانة البيطرية",
		Email:  "dana@example.com",
		Phone:  "+966500000001",
		CityID: c.ID,
	}, "tracking-token-1", now)
	s.Require().NoError(err)
	s.Require().NoError(application.NewPostgres(s.pc.DB).Create(ctx, app))

	m := &member.Member{
		ID:            domain.NewMemberID(),
		MemberNo:      "VET-2026-00001",
		QRToken:       qrtoken.NewToken(),
		ApplicationID: app.ID,
		NameEn:        app.NameEn,
		NameAr:        app.NameAr,
		CityID:        c.ID,
		IssueDate:     now,
		ExpiryDate:    now.AddDate(1, 0, 0),
		Status:        member.StatusActive,
		UpdatedAt:     now,
	}
	s.Require().NoError(member.NewPostgres(s.pc.DB).Create(ctx, m))
	s.memberID = m.ID
}

func (s *PostgresStoreSuite) newRequest() *renewal.Request {
	return &renewal.Request{
		ID:        domain.NewRenewalRequestID(),
		MemberID:  s.memberID,
		CityID:    s.cityID,
		Notes:     "annual renewal",
		Status:    renewal.StatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	r := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, r))

	found, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(r.MemberID, found.MemberID)
	s.Equal(renewal.StatusPending, found.Status)
	s.Equal("annual renewal", found.Notes)
}

func (s *PostgresStoreSuite) TestSecondPendingIsDuplicate() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newRequest()))

	err := s.store.Create(ctx, s.newRequest())
	s.Require().ErrorIs(err, sentinel.ErrDuplicateKey)
}

func (s *PostgresStoreSuite) TestResubmitAfterDecision() {
	ctx := context.Background()
	r := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, r))

	r.ApplyApproval("admin@vetcred.example", time.Now().UTC())
	s.Require().NoError(s.store.Decide(ctx, r))

	// The partial index only covers pending rows, so a fresh request lands.
	s.Require().NoError(s.store.Create(ctx, s.newRequest()))
}

func (s *PostgresStoreSuite) TestDecideIsOneWay() {
	ctx := context.Background()
	r := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, r))

	r.ApplyRejection("admin@vetcred.example", "incomplete records", time.Now().UTC())
	s.Require().NoError(s.store.Decide(ctx, r))

	r.ApplyApproval("admin@vetcred.example", time.Now().UTC())
	s.Require().ErrorIs(s.store.Decide(ctx, r), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestDecideUnknownIsNotFound() {
	r := s.newRequest()
	r.ApplyApproval("admin@vetcred.example", time.Now().UTC())
	s.Require().ErrorIs(s.store.Decide(context.Background(), r), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListPendingScope() {
	ctx := context.Background()
	r := s.newRequest()
	s.Require().NoError(s.store.Create(ctx, r))

	all, err := s.store.ListPending(ctx, nil)
	s.Require().NoError(err)
	s.Len(all, 1)

	scoped, err := s.store.ListPending(ctx, []domain.CityID{s.cityID})
	s.Require().NoError(err)
	s.Len(scoped, 1)

	other, err := s.store.ListPending(ctx, []domain.CityID{domain.NewCityID()})
	s.Require().NoError(err)
	s.Empty(other)
}
