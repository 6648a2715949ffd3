package server

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoalbum/internal/auth"
	"photoalbum/internal/models"
	"photoalbum/internal/storage"
)

func (e *testEnv) session(t *testing.T, u *models.User) []*http.Cookie {
	t.Helper()
	pair, err := e.tokens.Issue(u)
	require.NoError(t, err)
	return []*http.Cookie{{Name: cookieAccess, Value: pair.AccessToken}}
}

func (e *testEnv) postMultipart(t *testing.T, path string, fields map[string]string, files map[string][]byte, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, data := range files {
		part, err := w.CreateFormFile("photos", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.serve(req)
}

func TestAlbumPage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, ownerToken := env.user(t, "owner", false)
	stranger, _ := env.user(t, "stranger", false)
	cookies := env.session(t, owner)

	id := env.createAlbum(t, ownerToken, "Summer", false)
	page := albumPage(id)

	rec := env.page("/", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="`+page+`"`)

	rec = env.page(page, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Summer")
	assert.Contains(t, rec.Body.String(), "This album has no photos yet.")

	rec = env.postForm(page+"/collage", nil, cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No photos in album to generate collage")

	rec = env.postMultipart(t, page+"/photos", nil, map[string][]byte{
		"a.png": pngBytes(t, 40, 20, color.White),
		"b.png": pngBytes(t, 40, 20, color.Black),
	}, cookies)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, page, rec.Header().Get("Location"))

	photos, err := env.store.ListPhotos(ctx, id)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	first := photos[0]

	rec = env.page(page, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`src="/photos/%d/thumbnail"`, first.ID))

	rec = env.page(fmt.Sprintf("/photos/%d/thumbnail", first.ID), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	favorite := fmt.Sprintf("%s/photos/%d/favorite", page, first.ID)
	rec = env.postForm(favorite, nil, cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	stored, err := env.store.GetPhoto(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsFavorite)
	rec = env.postForm(favorite, nil, cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	stored, err = env.store.GetPhoto(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsFavorite)

	rec = env.postForm(fmt.Sprintf("%s/photos/%d/share", page, first.ID), nil, cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	stored, err = env.store.GetPhoto(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ShareToken)
	rec = env.page(page, cookies)
	assert.Contains(t, rec.Body.String(), shareURL(*stored.ShareToken))

	rec = env.postForm(page+"/collage", nil, cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	collages, err := env.store.ListCollages(ctx, id)
	require.NoError(t, err)
	require.Len(t, collages, 1)
	rec = env.page(page, cookies)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`src="/collages/%d/image"`, collages[0].ID))

	strangerCookies := env.session(t, stranger)
	rec = env.page(page, strangerCookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.postForm(page+"/delete", nil, strangerCookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.page("/albums/not-a-uuid", cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	other := env.createAlbum(t, ownerToken, "Winter", false)
	rec = env.postForm(fmt.Sprintf("%s/photos/%d/favorite", albumPage(other), first.ID), nil, cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.postForm(page+"/delete", nil, cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	_, err = env.store.GetAlbum(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPublicAlbumPageIsReadOnlyForViewers(t *testing.T) {
	env := newTestEnv(t)
	_, ownerToken := env.user(t, "owner", false)
	viewer, _ := env.user(t, "viewer", false)
	id := env.createAlbum(t, ownerToken, "Open", true)
	photo := env.seedPhotos(t, ownerToken, id, color.White)[0]
	cookies := env.session(t, viewer)

	rec := env.page(albumPage(id), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, fmt.Sprintf(`src="/photos/%d/thumbnail"`, photo.ID))
	assert.NotContains(t, body, "Generate collage")
	assert.NotContains(t, body, "Delete album")

	rec = env.postForm(fmt.Sprintf("%s/photos/%d/favorite", albumPage(id), photo.ID), nil, cookies)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.postForm(albumPage(id)+"/delete", nil, cookies)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAlbumPageDiscardsAlbumWhenPhotosFail(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.user(t, "alice", false)
	cookies := env.session(t, u)
	env.failNthPut(2)

	rec := env.postMultipart(t, "/albums/new", map[string]string{"title": "Broken"}, map[string][]byte{
		"a.png": pngBytes(t, 8, 8, color.White),
		"b.png": pngBytes(t, 8, 8, color.Black),
	}, cookies)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not be saved")
	assert.Contains(t, rec.Body.String(), `value="Broken"`)

	albums, err := env.store.ListOwnedAlbums(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, albums)
}

func TestCreateAlbumPageCountsTitleCharacters(t *testing.T) {
	env := newTestEnv(t)
	u, _ := env.user(t, "alice", false)
	cookies := env.session(t, u)

	title := strings.Repeat("я", 200)
	rec := env.postMultipart(t, "/albums/new", map[string]string{"title": title}, nil, cookies)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())

	rec = env.postMultipart(t, "/albums/new", map[string]string{"title": strings.Repeat("я", 256)}, nil, cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	albums, err := env.store.ListOwnedAlbums(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, title, albums[0].Title)
}

func TestSessionCookiesFollowTokenLifetimes(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "alice", false)
	env.srv.tokens = auth.NewManager("test-secret", 5*time.Minute, 2*time.Hour, auth.NewMemoryRevoker())

	rec := env.postForm("/login", url.Values{"username": {"alice"}, "password": {"password123"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	ages := map[string]int{}
	for _, c := range rec.Result().Cookies() {
		ages[c.Name] = c.MaxAge
	}
	assert.Equal(t, 300, ages[cookieAccess])
	assert.Equal(t, 7200, ages[cookieRefresh])
}
