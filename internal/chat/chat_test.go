package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"
)

func testServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, err := websocket.Dial(wsURL, "", "http://localhost/")
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestEchoRoundtrip(t *testing.T) {
	_, wsURL := testServer(t)
	conn := dial(t, wsURL)

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)

	if err := enc.Encode(Frame{Type: "chat.send", Payload: mustJSON(SendPayload{Body: "hello"})}); err != nil {
		t.Fatalf("send: %v", err)
	}

	var reply Frame
	if err := dec.Decode(&reply); err != nil {
		t.Fatalf("recv: %v", err)
	}
	if reply.Type != "chat.echo" {
		t.Fatalf("reply type = %q, want chat.echo", reply.Type)
	}
	var payload EchoPayload
	if err := json.Unmarshal(reply.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Body != "hello" {
		t.Errorf("echoed body = %q", payload.Body)
	}
	if _, err := time.Parse(time.RFC3339, payload.ServerTime); err != nil {
		t.Errorf("server_time %q not RFC3339: %v", payload.ServerTime, err)
	}
}

func TestPingPong(t *testing.T) {
	_, wsURL := testServer(t)
	conn := dial(t, wsURL)

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)

	if err := enc.Encode(Frame{Type: "chat.ping"}); err != nil {
		t.Fatal(err)
	}
	var reply Frame
	if err := dec.Decode(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Type != "chat.pong" {
		t.Errorf("reply type = %q, want chat.pong", reply.Type)
	}
}

func TestUnsupportedFrameType(t *testing.T) {
	_, wsURL := testServer(t)
	conn := dial(t, wsURL)

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)

	if err := enc.Encode(Frame{Type: "chat.shout"}); err != nil {
		t.Fatal(err)
	}
	var reply Frame
	if err := dec.Decode(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Type != "chat.error" {
		t.Fatalf("reply type = %q, want chat.error", reply.Type)
	}
	var payload struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(reply.Payload, &payload)
	if payload.Code != "INVALID_ARGUMENT" {
		t.Errorf("code = %q", payload.Code)
	}
}

func TestInvalidJSONGetsErrorFrame(t *testing.T) {
	_, wsURL := testServer(t)
	conn := dial(t, wsURL)

	if _, err := conn.Write([]byte("this is not json\n")); err != nil {
		t.Fatal(err)
	}
	var reply Frame
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Type != "chat.error" {
		t.Errorf("reply type = %q, want chat.error", reply.Type)
	}
}

func TestOversizePayloadRejected(t *testing.T) {
	_, wsURL := testServer(t)
	conn := dial(t, wsURL)

	big := strings.Repeat("x", maxPayloadBytes+1)
	frame := Frame{Type: "chat.send", Payload: mustJSON(SendPayload{Body: big})}
	if err := json.NewEncoder(conn).Encode(frame); err != nil {
		t.Fatal(err)
	}
	var reply Frame
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Type != "chat.error" {
		t.Errorf("reply type = %q, want chat.error", reply.Type)
	}
}

func TestUpEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/up")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("up = %d, want 200", resp.StatusCode)
	}
}

func TestClientSendRecv(t *testing.T) {
	_, wsURL := testServer(t)

	c := NewClient(wsURL, 10*time.Millisecond, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer c.Close()

	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Send(ctx, "roundtrip"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	frame, err := c.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if frame.Type != "chat.echo" {
		t.Errorf("frame type = %q", frame.Type)
	}
}

func TestClientConnectGivesUpAfterMaxAttempts(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", time.Millisecond, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))

	start := time.Now()
	err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("expected connect error against closed port")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("connect took %v, should give up after 2 attempts", elapsed)
	}
}

func TestClientConnectHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("ws://127.0.0.1:1/ws", time.Hour, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := c.Connect(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestClientRecvWithoutConnect(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", time.Millisecond, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := c.Recv(); err == nil {
		t.Error("expected error from Recv before Connect")
	}
}
