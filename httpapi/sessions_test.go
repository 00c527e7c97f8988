package httpapi

import (
	"testing"
	"time"

	"pkt.systems/codecanvas/schema"
)

func TestSessionStoreCreateGetDelete(t *testing.T) {
	store := newSessionStore(time.Hour, nil)
	token, sess := store.create("s1")
	if token == "" {
		t.Fatalf("expected token")
	}
	if sess.sessionID != "s1" {
		t.Fatalf("unexpected session id: %q", sess.sessionID)
	}
	got, ok := store.get(token)
	if !ok || got.id != sess.id {
		t.Fatalf("expected session to be found")
	}
	store.delete(token)
	if _, ok := store.get(token); ok {
		t.Fatalf("expected session to be deleted")
	}
}

func TestSessionStoreExpiration(t *testing.T) {
	var expired []schema.SessionID
	store := newSessionStore(time.Hour, func(id schema.SessionID) {
		expired = append(expired, id)
	})
	now := time.Now()
	store.now = func() time.Time { return now }
	token, _ := store.create("s1")
	now = now.Add(2 * time.Hour)
	if _, ok := store.get(token); ok {
		t.Fatalf("expected expired session")
	}
	if len(expired) != 1 || expired[0] != "s1" {
		t.Fatalf("expected s1 to expire, got %v", expired)
	}
}

func TestSessionStoreSweepsOnCreate(t *testing.T) {
	var expired []schema.SessionID
	store := newSessionStore(time.Hour, func(id schema.SessionID) {
		expired = append(expired, id)
	})
	now := time.Now()
	store.now = func() time.Time { return now }
	store.create("old")
	now = now.Add(2 * time.Hour)
	store.create("new")
	if len(expired) != 1 || expired[0] != "old" {
		t.Fatalf("expected old session to be swept, got %v", expired)
	}
	if len(store.items) != 1 {
		t.Fatalf("expected one live session, got %d", len(store.items))
	}
}
