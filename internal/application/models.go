package application

import (
	"strings"
	"time"

	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
)

// Status of an application. Transitions are one-way and terminal: an
// application leaves pending exactly once.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Application is a submitted request to become a member. The tracking token
// is the applicant's only capability for unauthenticated status lookup.
type Application struct {
	ID              domain.ApplicationID `json:"id"`
	NameEn          string               `json:"name_en"`
	NameAr          string               `json:"name_ar"`
	Email           string               `json:"email"`
	Phone           string               `json:"phone,omitempty"`
	CityID          domain.CityID        `json:"city_id"`
	TrackingToken   string               `json:"-"`
	Status          Status               `json:"status"`
	RejectionReason string               `json:"rejection_reason,omitempty"`
	ReviewedBy      string               `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time           `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// SubmitInput carries the applicant-provided fields.
type SubmitInput struct {
	NameEn string
	NameAr string
	Email  string
	Phone  string
	CityID domain.CityID
}

// New validates and constructs a pending application.
func New(id domain.ApplicationID, in SubmitInput, trackingToken string, now time.Time) (*Application, error) {
	in.NameEn = strings.TrimSpace(in.NameEn)
	in.NameAr = strings.TrimSpace(in.NameAr)
	in.Email = strings.TrimSpace(in.Email)
	if in.NameEn == "" || in.NameAr == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "both applicant names are required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email address is required")
	}
	if in.CityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "city is required")
	}
	return &Application{
		ID:            id,
		NameEn:        in.NameEn,
		NameAr:        in.NameAr,
		Email:         in.Email,
		Phone:         strings.TrimSpace(in.Phone),
		CityID:        in.CityID,
		TrackingToken: trackingToken,
		Status:        StatusPending,
		CreatedAt:     now,
	}, nil
}

// ApplyApproval records the reviewer's decision. Caller must have verified
// the application is still pending.
func (a *Application) ApplyApproval(reviewer string, now time.Time) {
	a.Status = StatusApproved
	a.ReviewedBy = reviewer
	a.ReviewedAt = &now
}

// ApplyRejection records the reviewer's decision and the mandatory reason.
func (a *Application) ApplyRejection(reviewer, reason string, now time.Time) {
	a.Status = StatusRejected
	a.RejectionReason = reason
	a.ReviewedBy = reviewer
	a.ReviewedAt = &now
}
