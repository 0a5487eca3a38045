package auth

import (
	"context"

	"vetcred/pkg/domain"
)

// Store persists accounts. Emails are unique; Create returns
// sentinel.ErrDuplicateKey on a taken address.
type Store interface {
	Create(ctx context.Context, a *Account) error
	FindByID(ctx context.Context, id domain.AccountID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Update(ctx context.Context, a *Account) error
	List(ctx context.Context) ([]*Account, error)
}
