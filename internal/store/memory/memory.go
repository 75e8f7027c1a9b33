// Package memory implements oauth2.Store in process memory. It backs tests
// and local development runs; production deployments use store/pg.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"authgrid.org/internal/oauth2"
)

// Store is a mutex-guarded in-memory credential store.
type Store struct {
	mu       sync.Mutex
	users    map[string]oauth2.User
	clients  map[string]oauth2.Client
	sessions map[string]oauth2.Session
	codes    map[string]oauth2.AuthorizationCode
	refresh  map[string]oauth2.RefreshToken
	now      func() time.Time
}

var _ oauth2.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]oauth2.User),
		clients:  make(map[string]oauth2.Client),
		sessions: make(map[string]oauth2.Session),
		codes:    make(map[string]oauth2.AuthorizationCode),
		refresh:  make(map[string]oauth2.RefreshToken),
		now:      time.Now,
	}
}

// SetClock overrides the time source (useful for tests).
func (s *Store) SetClock(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = fn
}

// AddUser seeds a user record.
func (s *Store) AddUser(u oauth2.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// AddClient seeds a client registration.
func (s *Store) AddClient(c oauth2.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ClientID] = c
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (oauth2.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email && u.IsActive {
			return u, nil
		}
	}
	return oauth2.User{}, oauth2.ErrNotFound
}

func (s *Store) FindUser(_ context.Context, id string) (oauth2.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return oauth2.User{}, oauth2.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindClient(_ context.Context, clientID string) (oauth2.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return oauth2.Client{}, oauth2.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreateSession(_ context.Context, sess oauth2.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return oauth2.ErrConflict
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) FindActiveSession(_ context.Context, id string) (oauth2.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || !sess.IsActive || !sess.ExpiresAt.After(s.now()) {
		return oauth2.Session{}, oauth2.ErrNotFound
	}
	return sess, nil
}

func (s *Store) ActiveSessionsForUser(_ context.Context, userID string) ([]oauth2.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []oauth2.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.IsActive {
			res = append(res, sess)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *Store) TerminateUserSessions(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			sess.IsActive = false
			sess.ExpiresAt = now
			s.sessions[id] = sess
		}
	}
	for val, t := range s.refresh {
		if t.UserID == userID {
			t.IsRevoked = true
			s.refresh[val] = t
		}
	}
	return nil
}

func (s *Store) CreateAuthorizationCode(_ context.Context, c oauth2.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[c.Code]; ok {
		return oauth2.ErrConflict
	}
	s.codes[c.Code] = c
	return nil
}

func (s *Store) RedeemAuthorizationCode(_ context.Context, code string, validate func(oauth2.AuthorizationCode) error) (oauth2.AuthorizationCode, oauth2.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, oauth2.ErrNotFound
	}
	if err := validate(c); err != nil {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, err
	}
	var (
		sess  oauth2.Session
		found bool
	)
	for _, candidate := range s.sessions {
		if candidate.UserID != c.UserID || !candidate.IsActive || !candidate.ExpiresAt.After(s.now()) {
			continue
		}
		if !found || candidate.CreatedAt.After(sess.CreatedAt) {
			sess = candidate
			found = true
		}
	}
	if !found {
		return oauth2.AuthorizationCode{}, oauth2.Session{}, oauth2.ErrNotFound
	}
	delete(s.codes, code)
	return c, sess, nil
}

func (s *Store) CreateRefreshToken(_ context.Context, t oauth2.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refresh[t.Token]; ok {
		return oauth2.ErrConflict
	}
	s.refresh[t.Token] = t
	return nil
}

func (s *Store) FindRefreshToken(_ context.Context, token string) (oauth2.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.refresh[token]
	if !ok || t.IsRevoked {
		return oauth2.RefreshToken{}, oauth2.ErrNotFound
	}
	return t, nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.refresh[token]; ok {
		t.IsRevoked = true
		s.refresh[token] = t
	}
	return nil
}
