package card

import (
	"context"
	"errors"
	"time"

	"vetcred/internal/member"
	"vetcred/internal/platform/metrics"
	"vetcred/internal/qrtoken"
	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/requestcontext"
)

// Card is the credential view rendered for a scanned token. What it carries
// depends on the member's effective status and on who is looking: a
// suspended credential shows nothing but the fact of suspension, and only
// admins see the suspension reason and date of birth.
type Card struct {
	MemberNo   string                  `json:"member_no"`
	Status     member.EffectiveStatus  `json:"status"`
	Payload    string                  `json:"payload"`
	NameEn     string                  `json:"name_en,omitempty"`
	NameAr     string                  `json:"name_ar,omitempty"`
	TitleEn    string                  `json:"title_en,omitempty"`
	TitleAr    string                  `json:"title_ar,omitempty"`
	PhotoURL   string                  `json:"photo_url,omitempty"`
	IssueDate  *time.Time              `json:"issue_date,omitempty"`
	ExpiryDate *time.Time              `json:"expiry_date,omitempty"`

	// Admin-only fields.
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	SuspensionReason string     `json:"suspension_reason,omitempty"`
}

// Service resolves credential tokens into cards, fronted by the FIFO cache.
type Service struct {
	members       member.Store
	cache         *Cache
	payloadPrefix string
	metrics       *metrics.Metrics
}

func NewService(members member.Store, cache *Cache, payloadPrefix string, m *metrics.Metrics) *Service {
	return &Service{
		members:       members,
		cache:         cache,
		payloadPrefix: payloadPrefix,
		metrics:       m,
	}
}

// Resolve returns the card for a bound token. viewer is nil on the public
// path and set when an authenticated admin scans.
func (s *Service) Resolve(ctx context.Context, token string, viewer *domain.Principal) (*Card, error) {
	token, err := qrtoken.NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	m, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	status := m.Effective(now)
	card := &Card{
		MemberNo: m.MemberNo,
		Status:   status,
		Payload:  s.payloadPrefix + token,
	}

	admin := viewer != nil && viewer.Role.IsAdmin()
	if status == member.EffectiveSuspended && !admin {
		// The public sees that the credential is suspended and nothing else.
		return card, nil
	}

	card.NameEn = m.NameEn
	card.NameAr = m.NameAr
	card.TitleEn = m.TitleEn
	card.TitleAr = m.TitleAr
	card.PhotoURL = m.PhotoURL
	issue, expiry := m.IssueDate, m.ExpiryDate
	card.IssueDate = &issue
	card.ExpiryDate = &expiry

	if admin {
		card.DateOfBirth = m.DateOfBirth
		card.SuspensionReason = m.SuspensionReason
	}
	return card, nil
}

func (s *Service) load(ctx context.Context, token string) (*member.Member, error) {
	if m, ok := s.cache.Get(token); ok {
		if s.metrics != nil {
			s.metrics.CardCacheHits.Inc()
		}
		return m, nil
	}
	if s.metrics != nil {
		s.metrics.CardCacheMisses.Inc()
	}

	// Snapshot before the read: a suspend or renew that commits while the
	// store read is in flight evicts first, and the generation check keeps
	// the pre-mutation record from repopulating the cache.
	gen := s.cache.Generation()
	m, err := s.members.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no credential matches this token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	s.cache.PutIfCurrent(token, m, gen)
	return m, nil
}
