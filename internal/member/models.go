package member

import (
	"time"

	"vetcred/pkg/domain"
)

// StoredStatus is what persistence knows. Expiry is never stored as a
// status: `expired` is derived at read time so a lapsed credential can never
// be "un-expired" by a missed background job.
type StoredStatus string

const (
	StatusActive    StoredStatus = "active"
	StatusSuspended StoredStatus = "suspended"
)

// EffectiveStatus is what read paths surface.
type EffectiveStatus string

const (
	EffectiveActive    EffectiveStatus = "active"
	EffectiveSuspended EffectiveStatus = "suspended"
	EffectiveExpired   EffectiveStatus = "expired"
)

// ValidityPeriod is the credential term granted at approval and at each
// renewal.
const ValidityPeriod = 1 // years

// Member is the active credential record, created at most once per approved
// application.
type Member struct {
	ID               domain.MemberID      `json:"id"`
	MemberNo         string               `json:"member_no"`
	QRToken          string               `json:"qr_token"`
	ApplicationID    domain.ApplicationID `json:"application_id"`
	NameEn           string               `json:"name_en"`
	NameAr           string               `json:"name_ar"`
	TitleEn          string               `json:"title_en,omitempty"`
	TitleAr          string               `json:"title_ar,omitempty"`
	PhotoURL         string               `json:"photo_url,omitempty"`
	DateOfBirth      *time.Time           `json:"date_of_birth,omitempty"`
	CityID           domain.CityID        `json:"city_id"`
	IssueDate        time.Time            `json:"issue_date"`
	ExpiryDate       time.Time            `json:"expiry_date"`
	Status           StoredStatus         `json:"status"`
	SuspensionReason string               `json:"suspension_reason,omitempty"`
	UpdatedAt        time.Time            `json:"updated_at"`
	UpdatedBy        string               `json:"updated_by,omitempty"`
}

// Effective computes the displayed status. This is the single derivation
// point used by every read path (status lookup, ID card, public scan);
// suspension takes precedence over expiry for display.
func (m *Member) Effective(now time.Time) EffectiveStatus {
	if m.Status == StatusSuspended {
		return EffectiveSuspended
	}
	if now.After(m.ExpiryDate) {
		return EffectiveExpired
	}
	return EffectiveActive
}

// ApplySuspension records a suspension. Re-suspending simply re-sets the
// reason; last writer wins.
func (m *Member) ApplySuspension(reason, actor string, now time.Time) {
	m.Status = StatusSuspended
	m.SuspensionReason = reason
	m.UpdatedAt = now
	m.UpdatedBy = actor
}

// ApplyUnsuspension returns the member to active and clears the reason.
// Expiry is untouched: an unsuspended-but-lapsed member still reads as
// expired until renewed.
func (m *Member) ApplyUnsuspension(actor string, now time.Time) {
	m.Status = StatusActive
	m.SuspensionReason = ""
	m.UpdatedAt = now
	m.UpdatedBy = actor
}

// ApplyRenewal extends the credential term from the later of "now" and the
// current expiry: a still-valid credential is never shortened, an expired one
// is never back-dated. Renewal always reactivates.
func (m *Member) ApplyRenewal(actor string, now time.Time) {
	base := m.ExpiryDate
	if now.After(base) {
		base = now
	}
	m.ExpiryDate = base.AddDate(ValidityPeriod, 0, 0)
	m.IssueDate = now
	m.Status = StatusActive
	m.SuspensionReason = ""
	m.UpdatedAt = now
	m.UpdatedBy = actor
}
