package city

import (
	"context"

	"vetcred/pkg/domain"
)

// Store abstracts city persistence. Create must surface
// sentinel.ErrDuplicateKey when the code is already taken.
type Store interface {
	Create(ctx context.Context, c *City) error
	FindByID(ctx context.Context, id domain.CityID) (*City, error)
	List(ctx context.Context) ([]*City, error)
	Update(ctx context.Context, c *City) error
	Delete(ctx context.Context, id domain.CityID) error
}
