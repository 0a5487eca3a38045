package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
)

func TestAuthorize(t *testing.T) {
	cityA := domain.NewCityID()
	cityB := domain.NewCityID()

	tests := []struct {
		name      string
		principal domain.Principal
		city      domain.CityID
		wantErr   bool
	}{
		{
			name:      "top admin is allowed everywhere",
			principal: domain.Principal{ID: domain.NewAccountID(), Role: domain.RoleTopAdmin},
			city:      cityA,
		},
		{
			name: "branch admin allowed in assigned city",
			principal: domain.Principal{
				ID: domain.NewAccountID(), Role: domain.RoleBranchAdmin,
				Cities: []domain.CityID{cityA, cityB},
			},
			city: cityB,
		},
		{
			name: "branch admin denied outside assigned cities",
			principal: domain.Principal{
				ID: domain.NewAccountID(), Role: domain.RoleBranchAdmin,
				Cities: []domain.CityID{cityA},
			},
			city:    cityB,
			wantErr: true,
		},
		{
			name: "branch admin with empty scope denied everywhere",
			principal: domain.Principal{
				ID: domain.NewAccountID(), Role: domain.RoleBranchAdmin,
			},
			city:    cityA,
			wantErr: true,
		},
		{
			name:      "clinic denied administrative mutations",
			principal: domain.Principal{ID: domain.NewAccountID(), Role: domain.RoleClinic},
			city:      cityA,
			wantErr:   true,
		},
		{
			name:      "zero-value role denied",
			principal: domain.Principal{ID: domain.NewAccountID()},
			city:      cityA,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.principal, tt.city)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAuthorizeGlobal(t *testing.T) {
	require.NoError(t, AuthorizeGlobal(domain.Principal{Role: domain.RoleTopAdmin}))
	require.NoError(t, AuthorizeGlobal(domain.Principal{Role: domain.RoleBranchAdmin}))

	err := AuthorizeGlobal(domain.Principal{Role: domain.RoleClinic})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestScope(t *testing.T) {
	cityA := domain.NewCityID()

	t.Run("top admin scope is unrestricted", func(t *testing.T) {
		scope := Scope(domain.Principal{Role: domain.RoleTopAdmin})
		assert.Nil(t, scope)
	})

	t.Run("branch admin scope is the assigned set", func(t *testing.T) {
		scope := Scope(domain.Principal{Role: domain.RoleBranchAdmin, Cities: []domain.CityID{cityA}})
		assert.Equal(t, []domain.CityID{cityA}, scope)
	})

	t.Run("unassigned branch admin gets empty scope, not nil", func(t *testing.T) {
		scope := Scope(domain.Principal{Role: domain.RoleBranchAdmin})
		require.NotNil(t, scope)
		assert.Empty(t, scope)
	})
}
