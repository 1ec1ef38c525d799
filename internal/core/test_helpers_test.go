package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/whispr-im/whispr-server/internal/store"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v received", kind)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// fakeStore is an in-memory store.Store for core tests.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*store.User
	messages []*store.Message
	failNext bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*store.User)}
}

func (f *fakeStore) addUser(id, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &store.User{ID: id, Username: username}
}

func (f *fakeStore) CreateUser(_ context.Context, username, passwordHash string) (*store.User, error) {
	u := &store.User{ID: username, Username: username, PasswordHash: passwordHash}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SearchUsers(_ context.Context, _ string) ([]*store.User, error) {
	return nil, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, senderID, receiverID, content string) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, errDatabaseDown
	}
	m := &store.Message{
		ID:         "m" + time.Now().Format("150405.000000000"),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeStore) ListBetween(_ context.Context, _, _ string) ([]*store.Message, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}
