// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/collegeblog/backend/internal/repository"
	"codeberg.org/collegeblog/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookmark(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	owner := testutil.NewTestUser(t, repo, "ada@example.com")
	reader := testutil.NewTestUser(t, repo, "bob@example.com")
	post := testutil.NewTestPost(t, repo, owner.ID, "Hello")

	bookmark, err := repo.CreateBookmark(ctx, reader.ID, post.ID)

	require.NoError(t, err)
	assert.Equal(t, reader.ID, bookmark.UserID)
	assert.Equal(t, post.ID, bookmark.PostID)
	require.NotNil(t, bookmark.Post)
	assert.Equal(t, "Hello", bookmark.Post.Title)

	withBookmark, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, withBookmark.Bookmarks, 1)
	assert.Equal(t, bookmark.ID, withBookmark.Bookmarks[0].ID)
	assert.Nil(t, withBookmark.Bookmarks[0].Post)
}

func TestCreateBookmark_Duplicate(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ada@example.com")
	post := testutil.NewTestPost(t, repo, user.ID, "Hello")

	_, err := repo.CreateBookmark(ctx, user.ID, post.ID)
	require.NoError(t, err)

	_, err = repo.CreateBookmark(ctx, user.ID, post.ID)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestCreateBookmark_MissingPost(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	user := testutil.NewTestUser(t, repo, "ada@example.com")

	_, err := repo.CreateBookmark(context.Background(), user.ID, 404)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListAndDeleteBookmarks(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "ada@example.com")
	other := testutil.NewTestUser(t, repo, "bob@example.com")
	first := testutil.NewTestPost(t, repo, other.ID, "First")
	second := testutil.NewTestPost(t, repo, other.ID, "Second")

	b1, err := repo.CreateBookmark(ctx, user.ID, first.ID)
	require.NoError(t, err)
	_, err = repo.CreateBookmark(ctx, user.ID, second.ID)
	require.NoError(t, err)
	_, err = repo.CreateBookmark(ctx, other.ID, first.ID)
	require.NoError(t, err)

	bookmarks, err := repo.ListBookmarksByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, bookmarks, 2)
	for _, b := range bookmarks {
		assert.Equal(t, user.ID, b.UserID)
		assert.NotNil(t, b.Post)
	}

	require.NoError(t, repo.DeleteBookmark(ctx, b1.ID))
	assert.ErrorIs(t, repo.DeleteBookmark(ctx, b1.ID), repository.ErrNotFound)

	bookmarks, err = repo.ListBookmarksByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, bookmarks, 1)
}
