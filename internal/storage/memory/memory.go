// Package memory is an in-process record store, the append fallback when no
// postgres nor chat server is configured. Useful for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quill-chat/quill/internal/domain"
)

// Record is a stored message with the append-side timestamp attached.
type Record struct {
	Channel   domain.ChannelId
	Message   domain.Message
	CreatedAt time.Time
}

type Appender struct {
	mu      sync.Mutex
	records []Record
}

func NewAppender() *Appender {
	return &Appender{}
}

func (a *Appender) AppendRecord(_ context.Context, channel domain.ChannelId, msg domain.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, Record{
		Channel:   channel,
		Message:   msg,
		CreatedAt: time.Now(),
	})
	return nil
}

// Records returns a copy of everything appended so far, in order.
func (a *Appender) Records() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Record(nil), a.records...)
}
