package controller

import (
	"sync"
	"time"

	"binops/internal/store"
)

// Session is the authenticated user as seen by the controllers.
type Session struct {
	Token     string
	Email     string
	BaseURL   string
	CreatedAt time.Time
}

// Authenticated reports whether the session carries a token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Sessions persists the login in the local store and keeps the current one in
// memory. It is shared by Auth and Fleet.
type Sessions struct {
	store   *store.Store
	baseURL string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	current *Session
	loaded  bool
}

// NewSessions returns a session manager bound to one backend. A stored session
// for a different backend URL, or older than ttl (when ttl > 0), is ignored.
func NewSessions(st *store.Store, baseURL string, ttl time.Duration) *Sessions {
	return &Sessions{store: st, baseURL: baseURL, ttl: ttl, now: time.Now}
}

// Current returns the active session, or nil.
func (m *Sessions) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		stored, err := m.store.LoadSession()
		if err != nil {
			return nil, err
		}
		m.loaded = true
		if stored != nil && stored.BaseURL == m.baseURL {
			m.current = &Session{
				Token:     stored.Token,
				Email:     stored.Email,
				BaseURL:   stored.BaseURL,
				CreatedAt: stored.CreatedAt,
			}
		}
	}

	if m.current != nil && m.ttl > 0 && m.now().Sub(m.current.CreatedAt) > m.ttl {
		m.current = nil
	}
	if !m.current.Authenticated() {
		return nil, nil
	}
	cp := *m.current
	return &cp, nil
}

// Token returns the active token or ErrNoSession.
func (m *Sessions) Token() (string, error) {
	sess, err := m.Current()
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrNoSession
	}
	return sess.Token, nil
}

// Set stores a new session.
func (m *Sessions) Set(token, email string) (*Session, error) {
	sess := &Session{Token: token, Email: email, BaseURL: m.baseURL, CreatedAt: m.now()}
	if err := m.store.SaveSession(store.Session{
		Token:     sess.Token,
		Email:     sess.Email,
		BaseURL:   sess.BaseURL,
		CreatedAt: sess.CreatedAt,
	}); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.current = sess
	m.loaded = true
	m.mu.Unlock()

	cp := *sess
	return &cp, nil
}

// Clear forgets the session locally.
func (m *Sessions) Clear() error {
	m.mu.Lock()
	m.current = nil
	m.loaded = true
	m.mu.Unlock()
	return m.store.ClearSession()
}
