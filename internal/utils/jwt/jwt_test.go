package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GenerateAndValidate(t *testing.T) {
	manager := NewManager("test-secret", time.Hour)

	t.Run("Success", func(t *testing.T) {
		userID := int64(42)
		role := "user"

		token, err := manager.Generate(userID, role)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		gotID, gotRole, err := manager.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, userID, gotID)
		assert.Equal(t, role, gotRole)
	})

	t.Run("Admin role round trip", func(t *testing.T) {
		token, err := manager.Generate(1, "admin")
		require.NoError(t, err)

		_, gotRole, err := manager.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, "admin", gotRole)
	})

	t.Run("Invalid token", func(t *testing.T) {
		_, _, err := manager.Validate("not-a-token")
		assert.Error(t, err)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		otherManager := NewManager("other-secret", time.Hour)

		token, err := manager.Generate(42, "user")
		require.NoError(t, err)

		_, _, err = otherManager.Validate(token)
		assert.Error(t, err)
	})

	t.Run("Expired token", func(t *testing.T) {
		expiredManager := NewManager("test-secret", -time.Hour)

		token, err := expiredManager.Generate(42, "user")
		require.NoError(t, err)

		_, _, err = manager.Validate(token)
		assert.Error(t, err)
	})
}
