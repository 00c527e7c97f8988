package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"pkt.systems/codecanvas/internal/logx"
	"pkt.systems/codecanvas/schema"
)

// session binds a browser cookie to a playground session.
type session struct {
	id        string
	sessionID schema.SessionID
	expiresAt time.Time
}

type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	items    map[string]session
	onExpire func(schema.SessionID)
	now      func() time.Time
}

func newSessionStore(ttl time.Duration, onExpire func(schema.SessionID)) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		items:    make(map[string]session),
		onExpire: onExpire,
		now:      time.Now,
	}
}

func (s *sessionStore) create(sessionID schema.SessionID) (string, session) {
	token := randomToken(32)
	entry := session{
		id:        randomToken(12),
		sessionID: sessionID,
		expiresAt: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	s.items[token] = entry
	expired := s.sweepLocked()
	s.mu.Unlock()
	s.expire(expired)
	logx.WithSession(context.Background(), sessionID).With("http_session", entry.id).Info("session created", "expires", entry.expiresAt.Format(time.RFC3339))
	return token, entry
}

func (s *sessionStore) get(token string) (session, bool) {
	s.mu.Lock()
	entry, ok := s.items[token]
	if !ok {
		s.mu.Unlock()
		return session{}, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.items, token)
		s.mu.Unlock()
		s.expire([]session{entry})
		return session{}, false
	}
	s.mu.Unlock()
	return entry, true
}

func (s *sessionStore) delete(token string) {
	s.mu.Lock()
	entry, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	s.mu.Unlock()
	if ok {
		logx.WithSession(context.Background(), entry.sessionID).With("http_session", entry.id).Info("session deleted")
	}
}

func (s *sessionStore) sweepLocked() []session {
	now := s.now()
	var expired []session
	for token, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, token)
			expired = append(expired, entry)
		}
	}
	return expired
}

func (s *sessionStore) expire(entries []session) {
	for _, entry := range entries {
		logx.WithSession(context.Background(), entry.sessionID).With("http_session", entry.id).Info("session expired")
		if s.onExpire != nil {
			s.onExpire(entry.sessionID)
		}
	}
}

func randomToken(size int) string {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
