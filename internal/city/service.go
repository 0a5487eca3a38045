package city

import (
	"context"
	"errors"

	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/requestcontext"
)

// ReferenceCounter reports how many records still point at a city. The
// application and member stores both satisfy it.
type ReferenceCounter interface {
	CountByCity(ctx context.Context, cityID domain.CityID) (int, error)
}

// Service manages the city configuration table. Only admins touch it, and
// deletion is refused while any application or member still references the
// city (the postgres FK RESTRICT is the backstop).
type Service struct {
	store      Store
	references []ReferenceCounter
}

func NewService(store Store, references ...ReferenceCounter) *Service {
	return &Service{store: store, references: references}
}

// Track registers delete-guard counters after construction. The counting
// services themselves depend on this service for submission checks, so the
// reference wiring has to happen second.
func (s *Service) Track(references ...ReferenceCounter) {
	s.references = append(s.references, references...)
}

func (s *Service) Create(ctx context.Context, actor domain.Principal, nameEn, nameAr, code string) (*City, error) {
	if actor.Role != domain.RoleTopAdmin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the top admin manages cities")
	}
	c, err := New(domain.NewCityID(), nameEn, nameAr, code, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrDuplicateKey) {
			return nil, dErrors.New(dErrors.CodeConflict, "city code already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create city")
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id domain.CityID) (*City, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "city not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load city")
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]*City, error) {
	cities, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cities")
	}
	return cities, nil
}

// SetActive toggles a city's active flag. Inactive cities stop accepting new
// applications but existing members are untouched.
func (s *Service) SetActive(ctx context.Context, actor domain.Principal, id domain.CityID, active bool) (*City, error) {
	if actor.Role != domain.RoleTopAdmin {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the top admin manages cities")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Active = active
	c.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update city")
	}
	return c, nil
}

// IsAcceptingApplications reports whether the city exists and is active.
// A missing city counts as not accepting; the caller does not learn the
// difference.
func (s *Service) IsAcceptingApplications(ctx context.Context, id domain.CityID) (bool, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load city")
	}
	return c.Active, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Principal, id domain.CityID) error {
	if actor.Role != domain.RoleTopAdmin {
		return dErrors.New(dErrors.CodeUnauthorized, "only the top admin manages cities")
	}
	for _, ref := range s.references {
		n, err := ref.CountByCity(ctx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check city references")
		}
		if n > 0 {
			return dErrors.New(dErrors.CodeConflict, "city is still referenced and cannot be deleted")
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "city not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete city")
	}
	return nil
}
