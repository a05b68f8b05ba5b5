package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backupflow/backend/internal/domain/shared"
)

func TestNewUser(t *testing.T) {
	t.Run("creates a user without portal binding", func(t *testing.T) {
		user, err := NewUser("Owner@Example.com", "starter")

		require.NoError(t, err)
		assert.Equal(t, "owner@example.com", user.Email)
		assert.Equal(t, "starter", user.PlanID)
		assert.False(t, user.HasPortalBinding())
	})

	t.Run("rejects empty email", func(t *testing.T) {
		_, err := NewUser("   ", "starter")

		assert.Error(t, err)
	})

	t.Run("rejects empty plan", func(t *testing.T) {
		_, err := NewUser("owner@example.com", "")

		assert.Error(t, err)
	})
}

func TestUser_BindPortal(t *testing.T) {
	user, err := NewUser("owner@example.com", "starter")
	require.NoError(t, err)

	require.NoError(t, user.BindPortal("portal-1"))
	assert.True(t, user.HasPortalBinding())
	assert.Equal(t, "portal-1", user.HubSpotPortalID)

	assert.ErrorIs(t, user.BindPortal(""), shared.ErrInvalidInput)
}

func TestUser_ChangePlan(t *testing.T) {
	user, err := NewUser("owner@example.com", "starter")
	require.NoError(t, err)

	require.NoError(t, user.ChangePlan("pro"))
	assert.Equal(t, "pro", user.PlanID)

	assert.ErrorIs(t, user.ChangePlan(""), shared.ErrInvalidInput)
}
