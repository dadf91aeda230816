// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"sync"
	"testing"

	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	"codeberg.org/collegeblog/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := &models.User{Email: "ada@example.com", PasswordHash: "hash", IsActive: true}
	require.NoError(t, repo.CreateUser(ctx, user))

	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsVerified)
	assert.Nil(t, got.Username)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &models.User{Email: "ada@example.com", PasswordHash: "h"}))

	err := repo.CreateUser(ctx, &models.User{Email: "ada@example.com", PasswordHash: "h"})

	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEmailExists(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.NewTestUser(t, repo, "ada@example.com")

	exists, err := repo.EmailExists(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.EmailExists(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateUsername(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	ada := testutil.NewTestUser(t, repo, "ada@example.com")
	bob := testutil.NewTestUser(t, repo, "bob@example.com")

	updated, err := repo.UpdateUsername(ctx, ada.ID, ptr("ada"))
	require.NoError(t, err)
	require.NotNil(t, updated.Username)
	assert.Equal(t, "ada", *updated.Username)

	byID, err := repo.GetUserByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", *byID.Username)

	_, err = repo.UpdateUsername(ctx, bob.ID, ptr("ada"))
	require.ErrorIs(t, err, repository.ErrConflict)

	cleared, err := repo.UpdateUsername(ctx, ada.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.Username)

	_, err = repo.UpdateUsername(ctx, 999, ptr("ghost"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetUserActive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ada@example.com")

	require.NoError(t, repo.SetUserActive(ctx, user.ID, false))
	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, repo.SetUserActive(ctx, user.ID, true))
	got, err = repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	assert.ErrorIs(t, repo.SetUserActive(ctx, 999, false), repository.ErrNotFound)
}

func TestEnsureFederatedUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user, created, err := repo.EnsureFederatedUser(ctx, "fed@example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, user.IsVerified)
	assert.True(t, user.IsActive)
	assert.False(t, user.HasPassword())

	again, created, err := repo.EnsureFederatedUser(ctx, "fed@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}

func TestEnsureFederatedUser_KeepsExistingAccount(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	existing := testutil.NewTestUser(t, repo, "ada@example.com")

	user, created, err := repo.EnsureFederatedUser(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, existing.PasswordHash, user.PasswordHash)
}

func TestEnsureFederatedUser_Concurrent(t *testing.T) {
	db, repo := testutil.NewFileTestDB(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = make(map[int64]struct{})
		created int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, isNew, err := repo.EnsureFederatedUser(ctx, "race@example.com")
			assert.NoError(t, err)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[user.ID] = struct{}{}
			if isNew {
				created++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.Equal(t, 1, created)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM users WHERE email = ?`, "race@example.com"))
	assert.Equal(t, 1, count)
}

func TestGetUserDetailAndProfile(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	ada := testutil.NewTestUser(t, repo, "ada@example.com")
	bob := testutil.NewTestUser(t, repo, "bob@example.com")

	post := testutil.NewTestPost(t, repo, ada.ID, "Hello")
	testutil.NewTestPost(t, repo, bob.ID, "Bob's post")
	_, err := repo.CreateBookmark(ctx, ada.ID, post.ID)
	require.NoError(t, err)

	detail, err := repo.GetUserDetail(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, ada.Email, detail.Email)
	require.Len(t, detail.Posts, 1)
	assert.Equal(t, "Hello", detail.Posts[0].Title)
	require.Len(t, detail.Bookmarks, 1)
	require.NotNil(t, detail.Bookmarks[0].Post)
	assert.Equal(t, post.ID, detail.Bookmarks[0].Post.ID)

	profile, err := repo.GetUserProfile(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, profile.ID)
	require.Len(t, profile.Posts, 1)
	assert.Equal(t, "Bob's post", profile.Posts[0].Title)

	_, err = repo.GetUserProfile(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
