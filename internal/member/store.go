package member

import (
	"context"

	"vetcred/pkg/domain"
)

// Store abstracts member persistence.
//
// List's scope follows the access package convention: nil means
// unrestricted, an empty slice means no visibility (zero rows back).
type Store interface {
	Create(ctx context.Context, m *Member) error
	FindByID(ctx context.Context, id domain.MemberID) (*Member, error)
	FindByToken(ctx context.Context, qrToken string) (*Member, error)
	FindByApplication(ctx context.Context, appID domain.ApplicationID) (*Member, error)
	Update(ctx context.Context, m *Member) error
	List(ctx context.Context, scope []domain.CityID) ([]*Member, error)
	CountByCity(ctx context.Context, cityID domain.CityID) (int, error)
	// NextMemberNo allocates the next human-readable member number suffix.
	NextMemberNo(ctx context.Context) (int64, error)
}
