package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/whispr-im/whispr-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func TestCreateAndGetUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected server-assigned user ID")
	}

	byID, err := st.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Username != "alice" {
		t.Fatalf("unexpected username: %s", byID.Username)
	}

	byName, err := st.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != created.ID {
		t.Fatalf("id mismatch: %s vs %s", byName.ID, created.ID)
	}
}

func TestGetUserNotFound(t *testing.T) {
	st := newTestStore(t)

	if _, err := st.GetUserByID(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateUser(ctx, "alice", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := st.CreateUser(ctx, "alice", "hash2"); err == nil {
		t.Fatalf("expected unique constraint error")
	}
}

func TestSearchUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"alice", "alicia", "bob"} {
		if _, err := st.CreateUser(ctx, name, "hash"); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	users, err := st.SearchUsers(ctx, "ali")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(users))
	}

	// LIKE metacharacters must not act as wildcards.
	users, err = st.SearchUsers(ctx, "%")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected 0 matches for literal %%, got %d", len(users))
	}
}

func TestCreateMessageAssignsIDAndTimestamp(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	msg, err := st.CreateMessage(ctx, "u1", "u2", "hi")
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if msg.ID == "" {
		t.Fatalf("expected server-assigned message ID")
	}
	if msg.CreatedAt.IsZero() {
		t.Fatalf("expected server-assigned timestamp")
	}
}

func TestListBetweenOrdersOldestFirstBothDirections(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.CreateMessage(ctx, "u1", "u2", "hello")
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	second, err := st.CreateMessage(ctx, "u2", "u1", "hey back")
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	// Unrelated conversation must not leak in.
	if _, err := st.CreateMessage(ctx, "u1", "u3", "other"); err != nil {
		t.Fatalf("create message: %v", err)
	}

	msgs, err := st.ListBetween(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("list between: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != first.ID || msgs[1].ID != second.ID {
		t.Fatalf("unexpected order: %s, %s", msgs[0].ID, msgs[1].ID)
	}
}
