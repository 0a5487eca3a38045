package city

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/requestcontext"
)

type fixedCounter int

func (c fixedCounter) CountByCity(context.Context, domain.CityID) (int, error) {
	return int(c), nil
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func topAdmin() domain.Principal {
	return domain.Principal{ID: domain.NewAccountID(), Role: domain.RoleTopAdmin}
}

func TestCreateValidatesCode(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := testCtx()

	_, err := svc.Create(ctx, topAdmin(), "Riyadh", "الرياض", "ruh")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.Create(ctx, topAdmin(), "Riyadh", "الرياض", "RUH")
	assert.NoError(t, err)
}

func TestCreateDuplicateCode(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := testCtx()

	_, err := svc.Create(ctx, topAdmin(), "Riyadh", "الرياض", "RUH")
	require.NoError(t, err)
	_, err = svc.Create(ctx, topAdmin(), "Riyadh Again", "الرياض", "RUH")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestMutationsRequireTopAdmin(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := testCtx()
	branch := domain.Principal{ID: domain.NewAccountID(), Role: domain.RoleBranchAdmin}

	_, err := svc.Create(ctx, branch, "Riyadh", "الرياض", "RUH")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	err = svc.Delete(ctx, branch, domain.NewCityID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	svc := NewService(NewInMemory(), fixedCounter(3))
	ctx := testCtx()

	c, err := svc.Create(ctx, topAdmin(), "Riyadh", "الرياض", "RUH")
	require.NoError(t, err)

	err = svc.Delete(ctx, topAdmin(), c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestTrackRegistersCountersAfterConstruction(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := testCtx()

	c, err := svc.Create(ctx, topAdmin(), "Riyadh", "الرياض", "RUH")
	require.NoError(t, err)

	svc.Track(fixedCounter(1))
	err = svc.Delete(ctx, topAdmin(), c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestDeleteUnreferenced(t *testing.T) {
	svc := NewService(NewInMemory(), fixedCounter(0))
	ctx := testCtx()

	c, err := svc.Create(ctx, topAdmin(), "Riyadh", "الرياض", "RUH")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, topAdmin(), c.ID))

	_, err = svc.Get(ctx, c.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestIsAcceptingApplications(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := testCtx()

	c, err := svc.Create(ctx, topAdmin(), "Riyadh", "الرياض", "RUH")
	require.NoError(t, err)

	ok, err := svc.IsAcceptingApplications(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.SetActive(ctx, topAdmin(), c.ID, false)
	require.NoError(t, err)
	ok, err = svc.IsAcceptingApplications(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown city reads the same as inactive.
	ok, err = svc.IsAcceptingApplications(ctx, domain.NewCityID())
	require.NoError(t, err)
	assert.False(t, ok)
}
