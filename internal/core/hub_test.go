package core

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestHubRegisterAcksAndBroadcastsPresence(t *testing.T) {
	hub := NewHub(testLogger())

	alice := NewClient("c1", Identity{UserID: "u1", Username: "alice"})
	hub.Register(alice)

	ack := mustEvent(t, alice.Events, EventConnected)
	if ack.Identity.UserID != "u1" || ack.Identity.Username != "alice" {
		t.Fatalf("unexpected ack identity: %+v", ack.Identity)
	}

	bob := NewClient("c2", Identity{UserID: "u2", Username: "bob"})
	hub.Register(bob)

	// Bob's connect is broadcast to everyone, Alice included.
	var snapshot []string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ev := mustEvent(t, alice.Events, EventOnlineUsers)
		snapshot = append([]string(nil), ev.UserIDs...)
		if len(snapshot) == 2 {
			break
		}
	}
	sort.Strings(snapshot)
	if len(snapshot) != 2 || snapshot[0] != "u1" || snapshot[1] != "u2" {
		t.Fatalf("unexpected snapshot: %v", snapshot)
	}
}

func TestHubUnregisterBroadcastsShrunkSnapshot(t *testing.T) {
	hub := NewHub(testLogger())

	alice := NewClient("c1", Identity{UserID: "u1", Username: "alice"})
	bob := NewClient("c2", Identity{UserID: "u2", Username: "bob"})
	hub.Register(alice)
	hub.Register(bob)

	// Drain until the two-user snapshot from bob's connect is seen, so the
	// next snapshot observed is unambiguously the disconnect broadcast.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ev := mustEvent(t, alice.Events, EventOnlineUsers); len(ev.UserIDs) == 2 {
			break
		}
	}

	hub.Unregister(bob)

	ev := mustEvent(t, alice.Events, EventOnlineUsers)
	if len(ev.UserIDs) != 1 || ev.UserIDs[0] != "u1" {
		t.Fatalf("unexpected snapshot after disconnect: %v", ev.UserIDs)
	}
}

func TestHubPresenceSnapshotsArriveInOrder(t *testing.T) {
	hub := NewHub(testLogger())

	// A wide buffer so no snapshot is dropped during the churn below.
	observer := &Client{
		ConnID:   "obs",
		Identity: Identity{UserID: "observer", Username: "observer"},
		Events:   make(chan *Event, 4096),
	}
	hub.Register(observer)

	const workers = 8
	const rounds = 20

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				id := fmt.Sprintf("u%d", w)
				c := NewClient(fmt.Sprintf("c%d-%d", w, r), Identity{UserID: id, Username: id})
				hub.Register(c)
				hub.Unregister(c)
			}
		}(w)
	}
	wg.Wait()

	// Snapshots are broadcast under the hub lock, so racing connects and
	// disconnects can never deliver them swapped: the last snapshot the
	// observer received must match the final presence state exactly.
	var last []string
	seen := false
	for drained := false; !drained; {
		select {
		case ev := <-observer.Events:
			if ev.Kind == EventOnlineUsers {
				last = ev.UserIDs
				seen = true
			}
		default:
			drained = true
		}
	}
	if !seen {
		t.Fatalf("observer received no presence snapshots")
	}

	want := hub.OnlineUsers()
	sort.Strings(last)
	sort.Strings(want)
	if !reflect.DeepEqual(last, want) {
		t.Fatalf("final snapshot %v does not match presence %v", last, want)
	}
}

func TestHubUnregisterIdempotent(t *testing.T) {
	hub := NewHub(testLogger())

	alice := NewClient("c1", Identity{UserID: "u1", Username: "alice"})
	bob := NewClient("c2", Identity{UserID: "u2", Username: "bob"})
	hub.Register(alice)
	hub.Register(bob)

	hub.Unregister(alice)
	hub.Unregister(alice) // must not panic or touch u2

	if !hub.presence.Online("u2") {
		t.Fatalf("unrelated user removed by repeated unregister")
	}
	snapshot := hub.OnlineUsers()
	if len(snapshot) != 1 || snapshot[0] != "u2" {
		t.Fatalf("unexpected snapshot: %v", snapshot)
	}
}

func TestHubEmitToUserReachesAllConnectionsOfUser(t *testing.T) {
	hub := NewHub(testLogger())

	phone := NewClient("c1", Identity{UserID: "u1", Username: "alice"})
	laptop := NewClient("c2", Identity{UserID: "u1", Username: "alice"})
	other := NewClient("c3", Identity{UserID: "u2", Username: "bob"})
	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(other)

	hub.EmitToUser("u1", &Event{Kind: EventDirectMessage, Message: &Message{ID: "m1"}})

	if ev := mustEvent(t, phone.Events, EventDirectMessage); ev.Message.ID != "m1" {
		t.Fatalf("unexpected message on phone: %+v", ev.Message)
	}
	if ev := mustEvent(t, laptop.Events, EventDirectMessage); ev.Message.ID != "m1" {
		t.Fatalf("unexpected message on laptop: %+v", ev.Message)
	}
	mustNoEvent(t, other.Events, EventDirectMessage, 100*time.Millisecond)
}

func TestHubEmitToOfflineUserDropsSilently(t *testing.T) {
	hub := NewHub(testLogger())

	// Must not panic and must not queue anything.
	hub.EmitToUser("ghost", &Event{Kind: EventDirectMessage, Message: &Message{ID: "m1"}})
}

func TestTypingRelayedOnlyToAddressedPeer(t *testing.T) {
	hub := NewHub(testLogger())

	alice := NewClient("c1", Identity{UserID: "u1", Username: "alice"})
	bob := NewClient("c2", Identity{UserID: "u2", Username: "bob"})
	carol := NewClient("c3", Identity{UserID: "u3", Username: "carol"})
	hub.Register(alice)
	hub.Register(bob)
	hub.Register(carol)

	hub.RelayTyping(alice.Identity, "u2", true)

	ev := mustEvent(t, bob.Events, EventPeerTyping)
	if ev.Typing.UserID != "u1" || ev.Typing.Username != "alice" || !ev.Typing.IsTyping {
		t.Fatalf("unexpected typing event: %+v", ev.Typing)
	}
	mustNoEvent(t, carol.Events, EventPeerTyping, 100*time.Millisecond)
	mustNoEvent(t, alice.Events, EventPeerTyping, 100*time.Millisecond)

	hub.RelayTyping(alice.Identity, "u2", false)
	stop := mustEvent(t, bob.Events, EventPeerTyping)
	if stop.Typing.IsTyping {
		t.Fatalf("expected stop-typing signal")
	}
}
