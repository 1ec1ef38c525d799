package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/whispr-im/whispr-server/internal/auth"
	"github.com/whispr-im/whispr-server/internal/config"
	"github.com/whispr-im/whispr-server/internal/core"
	"github.com/whispr-im/whispr-server/internal/proto"
	"github.com/whispr-im/whispr-server/internal/store/sqlite"
)

// startTestServer wires a full server over an in-memory SQLite store.
func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	disabledLogger := zerolog.New(nil)
	hub := core.NewHub(&disabledLogger)
	delivery := core.NewDelivery(st, st, hub, &disabledLogger)

	server := NewServer(hub, delivery, authService, st, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &disabledLogger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts
}

// contextWithTestTimeout returns a context bounded to a generous test deadline.
func contextWithTestTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// registerUser creates an account through the API and returns its token.
func registerUser(t *testing.T, ts *httptest.Server, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(RegisterRequest{Username: username, Password: password})
	resp, err := ts.Client().Post(ts.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 201 {
		t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	return authResp.Token
}

// userIDFromToken extracts the user ID from an issued token.
func userIDFromToken(t *testing.T, token string) string {
	t.Helper()

	claims, err := auth.ValidateToken(&auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
	}, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	return claims.UserID
}

// dialWS opens an authenticated WebSocket connection.
func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// rawOutbound mirrors proto.Outbound with the payload kept raw for decoding.
type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// waitForEvent reads frames until one matches the wanted event name.
func waitForEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) rawOutbound {
	t.Helper()

	for {
		var out rawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		if out.Type == proto.OutboundTypeEvent && out.Event == event {
			return out
		}
	}
}

// waitForError reads frames until an error envelope arrives.
func waitForError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var out rawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for error: %v", err)
		}
		if out.Type == proto.OutboundTypeError && out.Error != nil {
			return out.Error
		}
	}
}

// waitForSnapshot reads presence snapshots until one has the wanted size.
func waitForSnapshot(t *testing.T, ctx context.Context, conn *websocket.Conn, size int) []string {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		out := waitForEvent(t, ctx, conn, proto.EventOnlineUsers)
		var ids []string
		if err := json.Unmarshal(out.Data, &ids); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if len(ids) == size {
			return ids
		}
	}
	t.Fatalf("never observed a snapshot of size %d", size)
	return nil
}

func sendInbound(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}
