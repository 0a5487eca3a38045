package renewal

import (
	"time"

	"vetcred/pkg/domain"
)

// Status of a renewal request. Pending requests are the only mutable ones;
// approval and rejection are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is a member's petition for another validity term. At most one
// pending request exists per member at any time.
type Request struct {
	ID       domain.RenewalRequestID `json:"id"`
	MemberID domain.MemberID         `json:"member_id"`
	// CityID is copied from the member at submission so listings scope
	// without a join.
	CityID      domain.CityID `json:"city_id"`
	Notes       string        `json:"notes,omitempty"`
	Status      Status        `json:"status"`
	Decision    string        `json:"decision,omitempty"`
	ProcessedBy string        `json:"processed_by,omitempty"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (r *Request) ApplyApproval(processor string, now time.Time) {
	r.Status = StatusApproved
	r.ProcessedBy = processor
	r.ProcessedAt = &now
}

func (r *Request) ApplyRejection(processor, reason string, now time.Time) {
	r.Status = StatusRejected
	r.Decision = reason
	r.ProcessedBy = processor
	r.ProcessedAt = &now
}
