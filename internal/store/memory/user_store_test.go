package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
)

func TestUserStore_Create(t *testing.T) {
	t.Run("create new user", func(t *testing.T) {
		st := NewUserStore()
		ctx := context.Background()

		user := &models.User{Username: "alice", Name: "Alice", Role: models.RoleUser, DivisionID: 1}
		require.NoError(t, st.Create(ctx, user))
		require.NotZero(t, user.ID)

		retrieved, err := st.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, user.ID, retrieved.ID)
		require.Equal(t, models.RoleUser, retrieved.Role)
	})

	t.Run("create duplicate username returns error", func(t *testing.T) {
		st := NewUserStore()
		ctx := context.Background()

		require.NoError(t, st.Create(ctx, &models.User{Username: "alice"}))
		err := st.Create(ctx, &models.User{Username: "alice"})
		require.Equal(t, store.ErrUserAlreadyExists, err)
	})
}

func TestUserStore_GetByUsername_notFound(t *testing.T) {
	st := NewUserStore()

	user, err := st.GetByUsername(context.Background(), "nobody")
	require.Equal(t, store.ErrUserNotFound, err)
	require.Nil(t, user)
}

func TestUserStore_ListByDivision(t *testing.T) {
	st := NewUserStore()
	ctx := context.Background()

	require.NoError(t, st.Create(ctx, &models.User{Username: "zed", Name: "Zed", DivisionID: 1}))
	require.NoError(t, st.Create(ctx, &models.User{Username: "amy", Name: "Amy", DivisionID: 1}))
	require.NoError(t, st.Create(ctx, &models.User{Username: "bob", Name: "Bob", DivisionID: 2}))

	users, err := st.ListByDivision(ctx, 1)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "Amy", users[0].Name)
	require.Equal(t, "Zed", users[1].Name)

	users, err = st.ListByDivision(ctx, 3)
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestDivisionStore(t *testing.T) {
	st := NewDivisionStore()
	ctx := context.Background()

	finance := &models.Division{Name: "Finance"}
	require.NoError(t, st.Create(ctx, finance))
	require.NoError(t, st.Create(ctx, &models.Division{Name: "Engineering"}))

	again := &models.Division{Name: "Finance"}
	require.NoError(t, st.Create(ctx, again))
	require.Equal(t, finance.ID, again.ID)

	divisions, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, divisions, 2)
	require.Equal(t, "Engineering", divisions[0].Name)
	require.Equal(t, "Finance", divisions[1].Name)
}
