package httpx

import (
	"sort"
	"sync"
)

// CookieName is the cookie carrying a FairOS-dfs login session.
const CookieName = "fairOS-dfs"

// Session holds one session cookie per username.
type Session struct {
	mu      sync.RWMutex
	cookies map[string]string
}

// NewSession returns an empty cookie store.
func NewSession() *Session {
	return &Session{cookies: make(map[string]string)}
}

// Get returns the cookie stored for user.
func (s *Session) Get(user string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cookies[user]
	return v, ok
}

// Set stores cookie for user, replacing any previous one.
func (s *Session) Set(user, cookie string) {
	s.mu.Lock()
	s.cookies[user] = cookie
	s.mu.Unlock()
}

// Delete forgets the cookie held for user.
func (s *Session) Delete(user string) {
	s.mu.Lock()
	delete(s.cookies, user)
	s.mu.Unlock()
}

// Users lists the usernames holding a cookie, sorted.
func (s *Session) Users() []string {
	s.mu.RLock()
	users := make([]string, 0, len(s.cookies))
	for u := range s.cookies {
		users = append(users, u)
	}
	s.mu.RUnlock()
	sort.Strings(users)
	return users
}
