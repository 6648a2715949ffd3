package media

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	album := uuid.MustParse("6f1c1c3e-0b43-4b34-9a4f-7b9f7a4e1a11")

	assert.Equal(t, "user_7/album_6f1c1c3e-0b43-4b34-9a4f-7b9f7a4e1a11", AlbumDir(7, album))

	key := PhotoKey(7, album, "Holiday.JPG")
	assert.True(t, strings.HasPrefix(key, "user_7/album_6f1c1c3e-0b43-4b34-9a4f-7b9f7a4e1a11/photos/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	assert.Equal(t, "user_7/album_6f1c1c3e-0b43-4b34-9a4f-7b9f7a4e1a11/thumbnails/12.jpg", ThumbnailKey(7, album, 12))

	key = CollageKey(7, album, "png")
	assert.True(t, strings.HasPrefix(key, "user_7/album_6f1c1c3e-0b43-4b34-9a4f-7b9f7a4e1a11/collages/collage_"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	key = AvatarKey(3, "me.exe")
	assert.True(t, strings.HasPrefix(key, "user_3/avatar/"))
	assert.Equal(t, "application/octet-stream", ContentType(key))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType("a/b.JPEG"))
	assert.Equal(t, "image/png", ContentType("a/b.png"))
	assert.Equal(t, "image/webp", ContentType("b.webp"))
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "user_1/album_x/photos/a.jpg", strings.NewReader("abc"), 3, "image/jpeg"))
	require.NoError(t, store.Put(ctx, "user_1/album_x/collages/c.jpg", strings.NewReader("def"), 3, "image/jpeg"))

	rc, err := store.Open(ctx, "user_1/album_x/photos/a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	require.NoError(t, store.Delete(ctx, "user_1/album_x/photos/a.jpg"))
	_, err = store.Open(ctx, "user_1/album_x/photos/a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "user_1/album_x/photos/a.jpg"), "deleting twice is not an error")

	require.NoError(t, store.DeletePrefix(ctx, "user_1/album_x"))
	_, err = store.Open(ctx, "user_1/album_x/collages/c.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../escape.jpg", strings.NewReader("x"), 1, "")
	assert.Error(t, err)

	_, err = store.Open(context.Background(), "")
	assert.Error(t, err)
}
