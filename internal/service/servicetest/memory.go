// Package servicetest provides in-memory stores, blobs and a queue for tests
// of the service layer and everything built on it.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"canvasquest/internal/models"
	"canvasquest/internal/repository"
	"canvasquest/internal/service"
)

// Memory backs all three stores with maps and honours the same unique
// constraints as the SQL schema. Ids start at 1.
type Memory struct {
	// txMu serialises InTx calls so a rollback cannot undo another
	// transaction's writes.
	txMu  sync.Mutex
	mu    sync.Mutex
	clock func() time.Time
	fail  error

	users       map[int64]models.User
	sessions    map[string]models.Session
	artworks    map[int64]models.Artwork
	nextUser    int64
	nextSession int64
	nextArtwork int64
}

func NewMemory(clock func() time.Time) *Memory {
	if clock == nil {
		clock = time.Now
	}
	return &Memory{
		clock:    clock,
		users:    map[int64]models.User{},
		sessions: map[string]models.Session{},
		artworks: map[int64]models.Artwork{},
	}
}

// Fail makes every store call return err until Fail(nil) is called.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Memory) Stores() service.Stores {
	return service.Stores{
		Users:    memUsers{m},
		Sessions: memSessions{m},
		Artworks: memArtworks{m},
	}
}

// InTx runs fn against the same maps and restores the previous contents if
// fn fails. Transactions run one at a time; store calls made outside InTx
// while one is open are not isolated from its rollback.
func (m *Memory) InTx(_ context.Context, fn func(service.Stores) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snap := m.snapshot()
	m.mu.Unlock()

	if err := fn(m.Stores()); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

// Counts returns the number of users, sessions and artworks held.
func (m *Memory) Counts() (users, sessions, artworks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), len(m.sessions), len(m.artworks)
}

// PutArtwork inserts an artwork directly, bypassing the upload pipeline.
func (m *Memory) PutArtwork(a models.Artwork) models.Artwork {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextArtwork++
	a.ID = m.nextArtwork
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.clock()
	}
	m.artworks[a.ID] = a
	return m.withArtist(a)
}

func (m *Memory) Artwork(id int64) (models.Artwork, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artworks[id]
	return a, ok
}

func (m *Memory) Session(token string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	return s, ok
}

type memSnapshot struct {
	users       map[int64]models.User
	sessions    map[string]models.Session
	artworks    map[int64]models.Artwork
	nextUser    int64
	nextSession int64
	nextArtwork int64
}

func (m *Memory) snapshot() memSnapshot {
	s := memSnapshot{
		users:       make(map[int64]models.User, len(m.users)),
		sessions:    make(map[string]models.Session, len(m.sessions)),
		artworks:    make(map[int64]models.Artwork, len(m.artworks)),
		nextUser:    m.nextUser,
		nextSession: m.nextSession,
		nextArtwork: m.nextArtwork,
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.sessions {
		s.sessions[k] = v
	}
	for k, v := range m.artworks {
		s.artworks[k] = v
	}
	return s
}

func (m *Memory) restore(s memSnapshot) {
	m.users = s.users
	m.sessions = s.sessions
	m.artworks = s.artworks
	m.nextUser = s.nextUser
	m.nextSession = s.nextSession
	m.nextArtwork = s.nextArtwork
}

func (m *Memory) withArtist(a models.Artwork) models.Artwork {
	a.Artist = m.users[a.ArtistID]
	return a
}

type memUsers struct{ m *Memory }

func (u memUsers) Create(_ context.Context, user models.User) (models.User, error) {
	m := u.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.User{}, m.fail
	}
	for _, existing := range m.users {
		if existing.DisplayName == user.DisplayName {
			return models.User{}, repository.ErrDuplicateDisplayName
		}
		if user.Email != nil && existing.Email != nil && *existing.Email == *user.Email {
			return models.User{}, repository.ErrDuplicateEmail
		}
	}
	m.nextUser++
	user.ID = m.nextUser
	user.CreatedAt = m.clock()
	m.users[user.ID] = user
	return user, nil
}

func (u memUsers) GetByID(_ context.Context, id int64) (models.User, error) {
	m := u.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.User{}, m.fail
	}
	user, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (u memUsers) FindByDisplayName(_ context.Context, displayName string) (models.User, error) {
	return u.find(func(user models.User) bool { return user.DisplayName == displayName })
}

func (u memUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	return u.find(func(user models.User) bool { return user.Email != nil && *user.Email == email })
}

func (u memUsers) find(match func(models.User) bool) (models.User, error) {
	m := u.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.User{}, m.fail
	}
	for _, user := range m.users {
		if match(user) {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (u memUsers) SetActive(_ context.Context, id int64, active bool) error {
	return u.update(id, func(user *models.User) { user.IsActive = active })
}

func (u memUsers) SetPasswordHash(_ context.Context, id int64, hash string) error {
	return u.update(id, func(user *models.User) { user.PasswordHash = &hash })
}

func (u memUsers) update(id int64, apply func(*models.User)) error {
	m := u.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	apply(&user)
	now := m.clock()
	user.UpdatedAt = &now
	m.users[id] = user
	return nil
}

func (u memUsers) Delete(_ context.Context, id int64) error {
	m := u.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	// ON DELETE CASCADE
	for token, s := range m.sessions {
		if s.UserID == id {
			delete(m.sessions, token)
		}
	}
	for aid, a := range m.artworks {
		if a.ArtistID == id {
			delete(m.artworks, aid)
		}
	}
	return nil
}

type memSessions struct{ m *Memory }

func (s memSessions) Record(_ context.Context, session models.Session) (models.Session, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.Session{}, m.fail
	}
	if _, ok := m.sessions[session.Token]; ok {
		return models.Session{}, repository.ErrDuplicateToken
	}
	m.nextSession++
	now := m.clock()
	session.ID = m.nextSession
	session.IsActive = true
	session.CreatedAt = now
	session.LastActivity = now
	m.sessions[session.Token] = session
	return session, nil
}

func (s memSessions) FindByToken(_ context.Context, token string) (models.Session, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.Session{}, m.fail
	}
	session, ok := m.sessions[token]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (s memSessions) Revoke(_ context.Context, token string) (bool, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return false, m.fail
	}
	session, ok := m.sessions[token]
	if !ok {
		return false, repository.ErrSessionNotFound
	}
	if !session.IsActive {
		return false, nil
	}
	session.IsActive = false
	session.LastActivity = m.clock()
	m.sessions[token] = session
	return true, nil
}

func (s memSessions) ListByUser(_ context.Context, userID int64) ([]models.Session, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]models.Session, 0)
	for _, session := range m.sessions {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s memSessions) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	m := s.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return 0, m.fail
	}
	var n int64
	for token, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

type memArtworks struct{ m *Memory }

func (a memArtworks) Create(_ context.Context, artwork models.Artwork) (models.Artwork, error) {
	m := a.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.Artwork{}, m.fail
	}
	m.nextArtwork++
	artwork.ID = m.nextArtwork
	artwork.CreatedAt = m.clock()
	artwork.Hearts, artwork.Views, artwork.IsFeatured = 0, 0, false
	m.artworks[artwork.ID] = artwork
	return artwork, nil
}

func (a memArtworks) GetByID(_ context.Context, id int64) (models.Artwork, error) {
	m := a.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.Artwork{}, m.fail
	}
	artwork, ok := m.artworks[id]
	if !ok {
		return models.Artwork{}, repository.ErrArtworkNotFound
	}
	return m.withArtist(artwork), nil
}

func (a memArtworks) IncrementViews(_ context.Context, id int64) error {
	return a.update(id, func(artwork *models.Artwork) { artwork.Views++ })
}

func (a memArtworks) IncrementHearts(_ context.Context, id int64) error {
	return a.update(id, func(artwork *models.Artwork) { artwork.Hearts++ })
}

func (a memArtworks) SetFeatured(_ context.Context, id int64, featured bool) error {
	return a.update(id, func(artwork *models.Artwork) { artwork.IsFeatured = featured })
}

// SetThumbnail matches the worker's write so tests can interleave it with
// service calls.
func (a memArtworks) SetThumbnail(_ context.Context, id int64, thumbnailPath string) error {
	return a.update(id, func(artwork *models.Artwork) { artwork.ThumbnailPath = &thumbnailPath })
}

func (a memArtworks) update(id int64, apply func(*models.Artwork)) error {
	m := a.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	artwork, ok := m.artworks[id]
	if !ok {
		return repository.ErrArtworkNotFound
	}
	apply(&artwork)
	m.artworks[id] = artwork
	return nil
}

func (a memArtworks) ListByArtist(_ context.Context, artistID int64, includePrivate bool, skip, limit int) ([]models.Artwork, error) {
	return a.list(skip, limit, func(artwork models.Artwork) bool {
		return artwork.ArtistID == artistID && (artwork.IsPublic || includePrivate)
	})
}

func (a memArtworks) ListPublic(_ context.Context, featuredOnly bool, skip, limit int) ([]models.Artwork, error) {
	return a.list(skip, limit, func(artwork models.Artwork) bool {
		return artwork.IsPublic && (artwork.IsFeatured || !featuredOnly)
	})
}

// list orders newest first, ties broken by id.
func (a memArtworks) list(skip, limit int, match func(models.Artwork) bool) ([]models.Artwork, error) {
	m := a.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	matched := make([]models.Artwork, 0)
	for _, artwork := range m.artworks {
		if match(artwork) {
			matched = append(matched, m.withArtist(artwork))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if skip >= len(matched) {
		return []models.Artwork{}, nil
	}
	matched = matched[skip:]
	if limit >= 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (a memArtworks) Delete(_ context.Context, id int64) (models.Artwork, error) {
	m := a.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.Artwork{}, m.fail
	}
	artwork, ok := m.artworks[id]
	if !ok {
		return models.Artwork{}, repository.ErrArtworkNotFound
	}
	delete(m.artworks, id)
	return artwork, nil
}

func (a memArtworks) DeleteByArtist(_ context.Context, artistID int64) ([]models.Artwork, error) {
	m := a.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var removed []models.Artwork
	for id, artwork := range m.artworks {
		if artwork.ArtistID == artistID {
			removed = append(removed, artwork)
			delete(m.artworks, id)
		}
	}
	return removed, nil
}
