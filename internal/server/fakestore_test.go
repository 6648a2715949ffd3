package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"photoalbum/internal/models"
	"photoalbum/internal/storage"
)

// memStore is an in-memory Store. Reads return copies so handlers cannot
// change stored rows without calling an update method.
type memStore struct {
	mu       sync.Mutex
	seq      int64
	clock    time.Time
	users    map[int64]models.User
	profiles map[int64]models.UserProfile
	albums   map[uuid.UUID]models.Album
	photos   map[int64]models.Photo
	collages map[int64]models.Collage
	bugs     map[int64]models.BugReport

	// afterGetPhoto runs outside the lock once GetPhoto has read its row.
	afterGetPhoto func(id int64)
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		users:    map[int64]models.User{},
		profiles: map[int64]models.UserProfile{},
		albums:   map[uuid.UUID]models.Album{},
		photos:   map[int64]models.Photo{},
		collages: map[int64]models.Collage{},
		bugs:     map[int64]models.BugReport{},
	}
}

func (m *memStore) next() (int64, time.Time) {
	m.seq++
	return m.seq, m.clock.Add(time.Duration(m.seq) * time.Second)
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return storage.ErrConflict
		}
	}
	u.ID, u.CreatedAt = m.next()
	m.users[u.ID] = *u
	m.profiles[u.ID] = models.UserProfile{UserID: u.ID}
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) UpdateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[u.ID]
	if !ok {
		return storage.ErrNotFound
	}
	cur.Email, cur.FirstName, cur.LastName = u.Email, u.FirstName, u.LastName
	m.users[u.ID] = cur
	return nil
}

func (m *memStore) SetPassword(_ context.Context, userID int64, hash string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	u.PasswordHash = hash
	u.TokenVersion++
	m.users[userID] = u
	return u.TokenVersion, nil
}

func (m *memStore) GetProfile(_ context.Context, userID int64) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return nil, storage.ErrNotFound
	}
	p, ok := m.profiles[userID]
	if !ok {
		p = models.UserProfile{UserID: userID}
		m.profiles[userID] = p
	}
	return &p, nil
}

func (m *memStore) UpdateProfile(_ context.Context, p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = *p
	return nil
}

func copyAlbum(a models.Album) models.Album {
	a.EditorIDs = append([]int64{}, a.EditorIDs...)
	return a
}

func (m *memStore) CreateAlbum(_ context.Context, a *models.Album) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, now := m.next()
	a.ID = uuid.New()
	a.CreatedAt, a.UpdatedAt = now, now
	if a.EditorIDs == nil {
		a.EditorIDs = []int64{}
	}
	m.albums[a.ID] = copyAlbum(*a)
	return nil
}

func (m *memStore) GetAlbum(_ context.Context, id uuid.UUID) (*models.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.albums[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	a = copyAlbum(a)
	return &a, nil
}

func (m *memStore) listAlbums(keep func(models.Album) bool) []models.Album {
	out := []models.Album{}
	for _, a := range m.albums {
		if keep(a) {
			out = append(out, copyAlbum(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListAlbums(_ context.Context, userID int64) ([]models.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listAlbums(func(a models.Album) bool { return a.IsOwner(userID) || a.IsEditor(userID) }), nil
}

func (m *memStore) ListOwnedAlbums(_ context.Context, userID int64) ([]models.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listAlbums(func(a models.Album) bool { return a.IsOwner(userID) }), nil
}

func (m *memStore) ListAllAlbums(context.Context) ([]models.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listAlbums(func(models.Album) bool { return true }), nil
}

func (m *memStore) ListPublicAlbums(context.Context) ([]models.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listAlbums(func(a models.Album) bool { return a.IsPublic }), nil
}

func (m *memStore) UpdateAlbum(_ context.Context, a *models.Album) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.albums[a.ID]
	if !ok {
		return storage.ErrNotFound
	}
	cur.Title, cur.Description, cur.IsPublic = a.Title, a.Description, a.IsPublic
	m.albums[a.ID] = cur
	return nil
}

func (m *memStore) DeleteAlbum(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.albums[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.albums, id)
	for pid, p := range m.photos {
		if p.AlbumID == id {
			delete(m.photos, pid)
		}
	}
	for cid, c := range m.collages {
		if c.AlbumID == id {
			delete(m.collages, cid)
		}
	}
	return nil
}

func (m *memStore) AddEditor(_ context.Context, albumID uuid.UUID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.albums[albumID]
	if !ok {
		return storage.ErrNotFound
	}
	if _, ok := m.users[userID]; !ok {
		return storage.ErrNotFound
	}
	if !a.IsEditor(userID) {
		a.EditorIDs = append(a.EditorIDs, userID)
	}
	m.albums[albumID] = a
	return nil
}

func (m *memStore) RemoveEditor(_ context.Context, albumID uuid.UUID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.albums[albumID]
	if !ok {
		return storage.ErrNotFound
	}
	kept := []int64{}
	for _, id := range a.EditorIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	a.EditorIDs = kept
	m.albums[albumID] = a
	return nil
}

func (m *memStore) CreatePhoto(_ context.Context, p *models.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.albums[p.AlbumID]; !ok {
		return storage.ErrNotFound
	}
	p.ID, p.CreatedAt = m.next()
	if p.Status == "" {
		p.Status = models.PhotoPending
	}
	m.photos[p.ID] = *p
	return nil
}

func (m *memStore) GetPhoto(_ context.Context, id int64) (*models.Photo, error) {
	m.mu.Lock()
	p, ok := m.photos[id]
	hook := m.afterGetPhoto
	m.mu.Unlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	if hook != nil {
		hook(id)
	}
	return &p, nil
}

func (m *memStore) onGetPhoto(hook func(id int64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.afterGetPhoto = hook
}

func (m *memStore) GetPhotoByShareToken(_ context.Context, token uuid.UUID) (*models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.photos {
		if p.ShareToken != nil && *p.ShareToken == token {
			return &p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) sortedPhotos(keep func(models.Photo) bool) []models.Photo {
	out := []models.Photo{}
	for _, p := range m.photos {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListPhotos(_ context.Context, albumID uuid.UUID) ([]models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedPhotos(func(p models.Photo) bool { return p.AlbumID == albumID }), nil
}

func (m *memStore) ListUserPhotos(_ context.Context, userID int64) ([]models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedPhotos(func(p models.Photo) bool {
		a := m.albums[p.AlbumID]
		return a.IsOwner(userID) || a.IsEditor(userID)
	}), nil
}

func (m *memStore) SetPhotoFavorite(_ context.Context, id int64, favorite bool) (*models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p.IsFavorite = favorite
	m.photos[id] = p
	return &p, nil
}

func (m *memStore) SharePhoto(_ context.Context, id int64, token uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return uuid.Nil, storage.ErrNotFound
	}
	if p.ShareToken == nil {
		p.ShareToken = &token
		m.photos[id] = p
	}
	return *p.ShareToken, nil
}

func (m *memStore) UnsharePhoto(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.ShareToken = nil
	m.photos[id] = p
	return nil
}

func (m *memStore) ClaimPhoto(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok || p.Status != models.PhotoPending {
		return false, nil
	}
	p.Status = models.PhotoProcessing
	m.photos[id] = p
	return true, nil
}

func (m *memStore) FinishPhoto(_ context.Context, id int64, status, thumbnailPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Status, p.ThumbnailPath = status, thumbnailPath
	m.photos[id] = p
	return nil
}

func (m *memStore) DeletePhoto(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.photos[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.photos, id)
	return nil
}

func (m *memStore) CreateCollage(_ context.Context, c *models.Collage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID, c.CreatedAt = m.next()
	m.collages[c.ID] = *c
	return nil
}

func (m *memStore) GetCollage(_ context.Context, id int64) (*models.Collage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collages[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) ListCollages(_ context.Context, albumID uuid.UUID) ([]models.Collage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Collage{}
	for _, c := range m.collages {
		if c.AlbumID == albumID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) DeleteCollage(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collages[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.collages, id)
	return nil
}

func (m *memStore) CreateBugReport(_ context.Context, b *models.BugReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID, b.CreatedAt = m.next()
	m.bugs[b.ID] = *b
	return nil
}

func (m *memStore) GetBugReport(_ context.Context, id int64) (*models.BugReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bugs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

func (m *memStore) ListBugReports(_ context.Context, userID *int64) ([]models.BugReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.BugReport{}
	for _, b := range m.bugs {
		if userID == nil || (b.UserID != nil && *b.UserID == *userID) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateBugReport(_ context.Context, b *models.BugReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bugs[b.ID]; !ok {
		return storage.ErrNotFound
	}
	m.bugs[b.ID] = *b
	return nil
}

func (m *memStore) DeleteBugReport(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bugs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.bugs, id)
	return nil
}
