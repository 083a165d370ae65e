package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trellis-kanban/trellis-api/internal/domain"
)

func TestRoleOrdering(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.RoleAdmin.AtLeast(domain.RoleMember))
	assert.True(t, domain.RoleAdmin.AtLeast(domain.RoleAdmin))
	assert.True(t, domain.RoleMember.AtLeast(domain.RoleViewer))
	assert.False(t, domain.RoleViewer.AtLeast(domain.RoleMember))
	assert.False(t, domain.RoleMember.AtLeast(domain.RoleAdmin))
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]domain.Role{
		"viewer": domain.RoleViewer,
		"member": domain.RoleMember,
		"admin":  domain.RoleAdmin,
	} {
		got, err := domain.ParseRole(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := domain.ParseRole("owner")
	assert.ErrorIs(t, err, domain.ErrRoleInvalid)
}

func TestRoleJSONRoundTrip(t *testing.T) {
	t.Parallel()

	membership, err := domain.NewMembership(uuid.New(), uuid.New(), domain.RoleMember)
	require.NoError(t, err)

	data, err := json.Marshal(membership)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role":"member"`)

	var decoded domain.Membership
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, domain.RoleMember, decoded.Role)
}

func TestNewMembership(t *testing.T) {
	t.Parallel()

	t.Run("invalid role rejected", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewMembership(uuid.New(), uuid.New(), domain.Role(42))
		assert.ErrorIs(t, err, domain.ErrRoleInvalid)
	})

	t.Run("missing user rejected", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewMembership(uuid.New(), uuid.Nil, domain.RoleViewer)
		require.Error(t, err)
	})
}
