package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-tenant-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapSuperAdminHandler(t *testing.T) {
	msg := auth.BootstrapSuperAdminMessage{
		UID:         "op-uid-1",
		Email:       "ops@example.com",
		DisplayName: "Operator",
	}

	t.Run("creates the operator record", func(t *testing.T) {
		repo := newMemRepo()
		handler := auth.NewBootstrapSuperAdminHandler(repo).WithLogger(nopLogger{})

		var created *auth.User
		event := msg
		event.OnResponse = func(u *auth.User) { created = u }

		require.NoError(t, handler.Execute(context.Background(), event))
		require.NotNil(t, created)
		assert.Equal(t, auth.RoleSuperAdmin, created.Role)
		assert.Nil(t, created.OrgID)
		assert.True(t, created.IsSuperAdmin())
	})

	t.Run("is idempotent", func(t *testing.T) {
		repo := newMemRepo()
		handler := auth.NewBootstrapSuperAdminHandler(repo).WithLogger(nopLogger{})

		require.NoError(t, handler.Execute(context.Background(), msg))

		var again *auth.User
		event := msg
		event.OnResponse = func(u *auth.User) { again = u }
		require.NoError(t, handler.Execute(context.Background(), event))

		require.NotNil(t, again)
		assert.Len(t, repo.users, 1)
	})

	t.Run("conflicts when the uid is a regular member", func(t *testing.T) {
		repo := newMemRepo()
		org := seedOrg(repo)
		repo.addUser(&auth.User{
			ProviderUID: msg.UID,
			Email:       "member@example.com",
			OrgID:       &org.ID,
			Role:        auth.RoleUser,
		})
		handler := auth.NewBootstrapSuperAdminHandler(repo).WithLogger(nopLogger{})

		assert.Error(t, handler.Execute(context.Background(), msg))
	})

	t.Run("conflicts when another operator holds the email", func(t *testing.T) {
		repo := newMemRepo()
		repo.addUser(&auth.User{
			ID:          uuid.New(),
			ProviderUID: "other-op",
			Email:       msg.Email,
			Role:        auth.RoleSuperAdmin,
		})
		handler := auth.NewBootstrapSuperAdminHandler(repo).WithLogger(nopLogger{})

		assert.Error(t, handler.Execute(context.Background(), msg))
	})

	t.Run("validates the payload", func(t *testing.T) {
		repo := newMemRepo()
		handler := auth.NewBootstrapSuperAdminHandler(repo).WithLogger(nopLogger{})

		assert.Error(t, handler.Execute(context.Background(), auth.BootstrapSuperAdminMessage{Email: "ops@example.com"}))
		assert.Error(t, handler.Execute(context.Background(), auth.BootstrapSuperAdminMessage{UID: "op", Email: "not-an-email"}))
	})
}
