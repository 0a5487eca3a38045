package renewal

import (
	"context"

	"vetcred/pkg/domain"
)

// Store persists renewal requests.
//
// Create returns sentinel.ErrDuplicateKey when the member already has a
// pending request. Decide only lands while the stored row is still pending
// and returns sentinel.ErrConflict otherwise; that conditional write is what
// keeps two admins from processing the same request twice.
type Store interface {
	Create(ctx context.Context, r *Request) error
	FindByID(ctx context.Context, id domain.RenewalRequestID) (*Request, error)
	Decide(ctx context.Context, r *Request) error
	ListPending(ctx context.Context, scope []domain.CityID) ([]*Request, error)
	ListByMember(ctx context.Context, memberID domain.MemberID) ([]*Request, error)
}
