package application

import (
	"context"

	"vetcred/pkg/domain"
)

// Store abstracts application persistence.
//
// Decide persists a reviewer decision only if the stored status is still
// pending, returning sentinel.ErrConflict otherwise. That conditional write
// is what makes "an application leaves pending exactly once" hold under
// concurrent reviewers, not the service-level pre-check.
type Store interface {
	Create(ctx context.Context, a *Application) error
	FindByID(ctx context.Context, id domain.ApplicationID) (*Application, error)
	FindByTrackingToken(ctx context.Context, token string) (*Application, error)
	Decide(ctx context.Context, a *Application) error
	List(ctx context.Context, scope []domain.CityID, status Status) ([]*Application, error)
	CountByCity(ctx context.Context, cityID domain.CityID) (int, error)
}
