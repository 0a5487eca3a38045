package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vetcred/pkg/domain-errors"
)

func TestIDJSONRoundTrip(t *testing.T) {
	id := NewCityID()
	raw, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(raw))

	var back CityID
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, id, back)
}

func TestParseRoundTrip(t *testing.T) {
	id := NewMemberID()
	parsed, err := ParseMemberID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, input := range []string{
		"",
		"not-a-uuid",
		"00000000-0000-0000-0000-000000000000",
	} {
		_, err := ParseCityID(input)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "input %q", input)
	}
}

func TestParseRole(t *testing.T) {
	for _, input := range []string{"top_admin", "branch_admin", "clinic"} {
		role, err := ParseRole(input)
		require.NoError(t, err)
		assert.Equal(t, input, role.String())
	}

	_, err := ParseRole("superuser")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestPrincipalCanSee(t *testing.T) {
	city := NewCityID()
	other := NewCityID()
	p := Principal{ID: NewAccountID(), Role: RoleBranchAdmin, Cities: []CityID{city}}

	assert.True(t, p.CanSee(city))
	assert.False(t, p.CanSee(other))
	assert.False(t, Principal{Role: RoleBranchAdmin}.CanSee(city))
}
