package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/repository/postgres"
	"github.com/dom/gauntlet/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	newUser := func(name string) *domain.User {
		return &domain.User{
			ID:           uuid.New(),
			DisplayName:  name,
			PasswordHash: "hashedpassword",
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
	}

	organizer := newUser("organizer")
	require.NoError(t, repo.Create(ctx, organizer))

	t.Run("duplicate display name", func(t *testing.T) {
		err := repo.Create(ctx, newUser("organizer"))
		assert.ErrorIs(t, err, domain.ErrDisplayNameExists)
	})

	t.Run("lookups", func(t *testing.T) {
		byID, err := repo.GetByID(ctx, organizer.ID)
		require.NoError(t, err)
		assert.Equal(t, "organizer", byID.DisplayName)

		byName, err := repo.GetByDisplayName(ctx, "organizer")
		require.NoError(t, err)
		assert.Equal(t, organizer.ID, byName.ID)

		_, err = repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.GetByDisplayName(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rename onto a taken name", func(t *testing.T) {
		other := newUser("scorekeeper")
		require.NoError(t, repo.Create(ctx, other))

		other.DisplayName = "organizer"
		assert.ErrorIs(t, repo.Update(ctx, other), domain.ErrDisplayNameExists)

		other.DisplayName = "head-judge"
		require.NoError(t, repo.Update(ctx, other))
		got, err := repo.GetByDisplayName(ctx, "head-judge")
		require.NoError(t, err)
		assert.Equal(t, other.ID, got.ID)
	})
}

func TestSessionRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewSessionRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	newSession := func(expires time.Time) *domain.UserSession {
		session := &domain.UserSession{
			ID:               uuid.New(),
			UserID:           user.ID,
			RefreshTokenHash: "hash",
			ExpiresAt:        expires,
			CreatedAt:        time.Now(),
		}
		require.NoError(t, repo.Create(ctx, session))
		return session
	}

	t.Run("delete consumes a session once", func(t *testing.T) {
		session := newSession(time.Now().Add(time.Hour))

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.UserID)

		require.NoError(t, repo.Delete(ctx, session.ID))
		assert.ErrorIs(t, repo.Delete(ctx, session.ID), domain.ErrNotFound)
		_, err = repo.GetByID(ctx, session.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		live := newSession(time.Now().Add(time.Hour))
		newSession(time.Now().Add(-time.Hour))
		newSession(time.Now().Add(-2 * time.Hour))

		n, err := repo.DeleteExpired(ctx, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = repo.GetByID(ctx, live.ID)
		assert.NoError(t, err)
	})

	t.Run("delete by user", func(t *testing.T) {
		session := newSession(time.Now().Add(time.Hour))
		require.NoError(t, repo.DeleteByUserID(ctx, user.ID))
		_, err := repo.GetByID(ctx, session.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
