package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"photoalbum/internal/models"
)

// Runs against a real database when PHOTOALBUM_TEST_DATABASE_URL is set.
func newIntegrationStorage(t *testing.T) *Storage {
	t.Helper()
	dsn := os.Getenv("PHOTOALBUM_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PHOTOALBUM_TEST_DATABASE_URL not set")
	}
	s, err := NewStorage(context.Background(), dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func createTestUser(t *testing.T, s *Storage, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name + "_" + uuid.NewString()[:8], PasswordHash: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestPostgresAlbumLifecycle(t *testing.T) {
	s := newIntegrationStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	owner := createTestUser(t, s, "owner")
	editor := createTestUser(t, s, "editor")

	album := &models.Album{UserID: owner.ID, Title: "Trip"}
	require.NoError(t, s.CreateAlbum(ctx, album))
	require.NoError(t, s.AddEditor(ctx, album.ID, editor.ID))

	got, err := s.GetAlbum(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{editor.ID}, got.EditorIDs)

	shared, err := s.ListAlbums(ctx, editor.ID)
	require.NoError(t, err)
	require.Len(t, shared, 1)

	owned, err := s.ListOwnedAlbums(ctx, editor.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)

	photo := &models.Photo{AlbumID: album.ID, ImagePath: "user/a.jpg"}
	require.NoError(t, s.CreatePhoto(ctx, photo))
	assert.Equal(t, models.PhotoPending, photo.Status)

	claimed, err := s.ClaimPhoto(ctx, photo.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = s.ClaimPhoto(ctx, photo.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	fav, err := s.SetPhotoFavorite(ctx, photo.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.PhotoProcessing, fav.Status)

	require.NoError(t, s.FinishPhoto(ctx, photo.ID, models.PhotoDone, "user/a_thumb.jpg"))

	token, err := s.SharePhoto(ctx, photo.ID, uuid.New())
	require.NoError(t, err)
	again, err := s.SharePhoto(ctx, photo.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, token, again)

	byToken, err := s.GetPhotoByShareToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, byToken.IsFavorite)
	assert.Equal(t, models.PhotoDone, byToken.Status)
	assert.Equal(t, "user/a_thumb.jpg", byToken.ThumbnailPath)

	require.NoError(t, s.UnsharePhoto(ctx, photo.ID))
	_, err = s.GetPhotoByShareToken(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)

	collage := &models.Collage{AlbumID: album.ID, ImagePath: "user/c.jpg"}
	require.NoError(t, s.CreateCollage(ctx, collage))

	require.NoError(t, s.DeleteAlbum(ctx, album.ID))
	_, err = s.GetPhoto(ctx, photo.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetCollage(ctx, collage.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUsersAndBugReports(t *testing.T) {
	s := newIntegrationStorage(t)
	ctx := context.Background()

	u := createTestUser(t, s, "reporter")
	dup := &models.User{Username: u.Username, PasswordHash: "x"}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrConflict)

	version, err := s.SetPassword(ctx, u.ID, "y")
	require.NoError(t, err)
	assert.Equal(t, u.TokenVersion+1, version)

	profile, err := s.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	profile.Bio = "hello"
	require.NoError(t, s.UpdateProfile(ctx, profile))

	report := &models.BugReport{UserID: &u.ID, Title: "Broken", Description: "It broke"}
	require.NoError(t, s.CreateBugReport(ctx, report))

	mine, err := s.ListBugReports(ctx, &u.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, u.Username, mine[0].Username)
	assert.Equal(t, models.BugOpen, mine[0].Status)

	report.Status = models.BugClosed
	require.NoError(t, s.UpdateBugReport(ctx, report))
	require.NoError(t, s.DeleteBugReport(ctx, report.ID))
	assert.ErrorIs(t, s.DeleteBugReport(ctx, report.ID), ErrNotFound)
}
