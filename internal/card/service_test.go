package card

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vetcred/internal/member"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite

	ctx     context.Context
	now     time.Time
	members *member.InMemory
	cache   *Cache
	svc     *Service
	m       *member.Member
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 4, 20, 8, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.members = member.NewInMemory()
	s.cache = NewCache(DefaultCacheCapacity)
	s.svc = NewService(s.members, s.cache, "https://cards.vetcred.example/c/", nil)

	s.m = &member.Member{
		ID:         domain.NewMemberID(),
		MemberNo:   "VET-2025-00007",
		QRToken:    "7d0e7c7e-4f2a-4b94-8b6e-2f0a9ad52c11",
		NameEn:     "Omar Alharbi",
		NameAr:     "عمر الحربي",
		TitleEn:    "Veterinary Surgeon",
		CityID:     domain.NewCityID(),
		IssueDate:  s.now.AddDate(-1, 6, 0),
		ExpiryDate: s.now.AddDate(0, 6, 0),
		Status:     member.StatusActive,
	}
	s.Require().NoError(s.members.Create(s.ctx, s.m))
}

func (s *ServiceSuite) admin() *domain.Principal {
	return &domain.Principal{ID: domain.NewAccountID(), Role: domain.RoleTopAdmin}
}

func (s *ServiceSuite) TestResolveActive() {
	card, err := s.svc.Resolve(s.ctx, s.m.QRToken, nil)
	s.Require().NoError(err)

	s.Equal(member.EffectiveActive, card.Status)
	s.Equal(s.m.MemberNo, card.MemberNo)
	s.Equal(s.m.NameEn, card.NameEn)
	s.Equal("https://cards.vetcred.example/c/"+s.m.QRToken, card.Payload)
	s.Require().NotNil(card.ExpiryDate)
	s.Equal(s.m.ExpiryDate, *card.ExpiryDate)
}

func (s *ServiceSuite) TestResolveExpiredIsDerived() {
	s.m.ExpiryDate = s.now.AddDate(0, 0, -1)
	s.Require().NoError(s.members.Update(s.ctx, s.m))

	card, err := s.svc.Resolve(s.ctx, s.m.QRToken, nil)
	s.Require().NoError(err)
	s.Equal(member.EffectiveExpired, card.Status)
	// Expired still shows identity; only suspension hides it.
	s.Equal(s.m.NameEn, card.NameEn)
}

func (s *ServiceSuite) TestResolveSuspendedHidesIdentityFromPublic() {
	s.m.Status = member.StatusSuspended
	s.m.SuspensionReason = "pending fitness-to-practise review"
	s.Require().NoError(s.members.Update(s.ctx, s.m))

	card, err := s.svc.Resolve(s.ctx, s.m.QRToken, nil)
	s.Require().NoError(err)
	s.Equal(member.EffectiveSuspended, card.Status)
	s.Equal(s.m.MemberNo, card.MemberNo)
	s.Empty(card.NameEn)
	s.Empty(card.SuspensionReason)
	s.Nil(card.ExpiryDate)
}

func (s *ServiceSuite) TestResolveSuspendedAdminSeesReason() {
	s.m.Status = member.StatusSuspended
	s.m.SuspensionReason = "pending fitness-to-practise review"
	s.Require().NoError(s.members.Update(s.ctx, s.m))

	card, err := s.svc.Resolve(s.ctx, s.m.QRToken, s.admin())
	s.Require().NoError(err)
	s.Equal(member.EffectiveSuspended, card.Status)
	s.Equal(s.m.NameEn, card.NameEn)
	s.Equal("pending fitness-to-practise review", card.SuspensionReason)
}

func (s *ServiceSuite) TestClinicViewerGetsPublicCard() {
	clinic := &domain.Principal{ID: domain.NewAccountID(), Role: domain.RoleClinic}
	dob := time.Date(1990, 5, 2, 0, 0, 0, 0, time.UTC)
	s.m.DateOfBirth = &dob
	s.Require().NoError(s.members.Update(s.ctx, s.m))

	card, err := s.svc.Resolve(s.ctx, s.m.QRToken, clinic)
	s.Require().NoError(err)
	s.Nil(card.DateOfBirth)
}

func (s *ServiceSuite) TestResolveUnknownToken() {
	_, err := s.svc.Resolve(s.ctx, "ffffffff-ffff-4fff-8fff-ffffffffffff", nil)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestResolveServesFromCacheUntilEvicted() {
	_, err := s.svc.Resolve(s.ctx, s.m.QRToken, nil)
	s.Require().NoError(err)

	// A store write without eviction is invisible to the cached read.
	s.m.NameEn = "Changed Name"
	s.Require().NoError(s.members.Update(s.ctx, s.m))

	card, err := s.svc.Resolve(s.ctx, s.m.QRToken, nil)
	s.Require().NoError(err)
	s.Equal("Omar Alharbi", card.NameEn)

	s.cache.Evict(s.m.QRToken)
	card, err = s.svc.Resolve(s.ctx, s.m.QRToken, nil)
	s.Require().NoError(err)
	s.Equal("Changed Name", card.NameEn)
}

func (s *ServiceSuite) TestResolveAlternateEncodingHitsSameCredential() {
	hyphenless := strings.ReplaceAll(s.m.QRToken, "-", "")
	card, err := s.svc.Resolve(s.ctx, hyphenless, nil)
	s.Require().NoError(err)
	s.Equal("VET-2025-00007", card.MemberNo)
	s.Equal("https://cards.vetcred.example/c/"+s.m.QRToken, card.Payload)
}

// findHook lets a test interleave a mutation between the store read and the
// cache fill.
type findHook struct {
	member.Store
	after func()
}

func (h *findHook) FindByToken(ctx context.Context, token string) (*member.Member, error) {
	m, err := h.Store.FindByToken(ctx, token)
	if h.after != nil {
		h.after()
	}
	return m, err
}

func (s *ServiceSuite) TestStaleLoadCannotRepopulateAfterEviction() {
	hooked := &findHook{Store: s.members}
	s.svc = NewService(hooked, s.cache, "https://cards.vetcred.example/c/", nil)
	hooked.after = func() {
		// Suspension commits and evicts while the first load is in flight.
		hooked.after = nil
		s.m.Status = member.StatusSuspended
		s.m.SuspensionReason = "license under review"
		s.Require().NoError(s.members.Update(s.ctx, s.m))
		s.cache.Evict(s.m.QRToken)
	}

	// The racing request read the record before the suspension landed.
	card, err := s.svc.Resolve(s.ctx, s.m.QRToken, nil)
	s.Require().NoError(err)
	s.Equal(member.EffectiveActive, card.Status)

	// Its pre-suspension record must not have survived the eviction.
	card, err = s.svc.Resolve(s.ctx, s.m.QRToken, nil)
	s.Require().NoError(err)
	s.Equal(member.EffectiveSuspended, card.Status)
}
