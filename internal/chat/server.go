// Package chat implements the echo chat service: a websocket endpoint
// that reflects every message back to its sender, and a reconnecting
// client for it.
package chat

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/websocket"
)

const (
	maxPayloadBytes        = 4 << 10
	maxDecodeErrorsPerConn = 5
)

// Frame is the wire envelope for every chat message.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendPayload carries an outgoing chat line.
type SendPayload struct {
	Body string `json:"body"`
}

// EchoPayload carries the reflected line back to the sender.
type EchoPayload struct {
	Body       string `json:"body"`
	ServerTime string `json:"server_time"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewHandler returns the chat HTTP handler, serving the websocket echo
// endpoint at /ws and a liveness probe at /up.
func NewHandler(logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleConn(conn, logger)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func handleConn(conn *websocket.Conn, logger *slog.Logger) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)
	decodeErrors := 0

	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeError(encoder, "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				logger.Warn("chat: dropping connection after repeated decode errors",
					slog.String("remote", conn.Request().RemoteAddr))
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxPayloadBytes {
			_ = writeError(encoder, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		switch frame.Type {
		case "chat.send":
			var payload SendPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				_ = writeError(encoder, "INVALID_ARGUMENT", "invalid send payload")
				continue
			}
			_ = writeFrame(encoder, Frame{
				Type: "chat.echo",
				Payload: mustJSON(EchoPayload{
					Body:       payload.Body,
					ServerTime: time.Now().UTC().Format(time.RFC3339),
				}),
			})
		case "chat.ping":
			_ = writeFrame(encoder, Frame{Type: "chat.pong"})
		default:
			_ = writeError(encoder, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}

func writeFrame(encoder *json.Encoder, frame Frame) error {
	return encoder.Encode(frame)
}

func writeError(encoder *json.Encoder, code, message string) error {
	return writeFrame(encoder, Frame{
		Type:    "chat.error",
		Payload: mustJSON(errorPayload{Code: code, Message: message}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("chat: marshal frame payload failed", slog.String("error", err.Error()))
		return nil
	}
	return b
}
