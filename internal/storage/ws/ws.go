// Package ws delivers message records to a chat server over a websocket
// connection, waiting for the server's acknowledgment frame.
package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quill-chat/quill/internal/domain"
)

type Appender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

type appendFrame struct {
	Type    string         `json:"type"`
	Channel string         `json:"channel"`
	Message domain.Message `json:"message"`
}

type ackFrame struct {
	Type  string `json:"type"`
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

const defaultDeadline = 10 * time.Second

// Dial connects to the chat server's message endpoint, e.g.
// "ws://host:port/v1/stream".
func Dial(url string) (*Appender, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial chat server: %w", err)
	}
	return &Appender{conn: conn}, nil
}

// AppendRecord writes one append frame and blocks until the server
// acknowledges it. The connection is used serially; frames never interleave.
func (a *Appender) AppendRecord(ctx context.Context, channel domain.ChannelId, msg domain.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	deadline := time.Now().Add(defaultDeadline)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	if err := a.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	frame := appendFrame{Type: "append", Channel: channel, Message: msg}
	if err := a.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write append frame: %w", err)
	}

	if err := a.conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	var ack ackFrame
	if err := a.conn.ReadJSON(&ack); err != nil {
		return fmt.Errorf("read ack frame: %w", err)
	}
	if !ack.Ok {
		return fmt.Errorf("server rejected record: %s", ack.Error)
	}
	return nil
}

func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn.Close()
}
