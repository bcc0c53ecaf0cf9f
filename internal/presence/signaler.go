// Package presence maintains the transient "is typing" marker other channel
// participants see while a draft is non-empty.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/quill-chat/quill/internal/domain"
	"github.com/quill-chat/quill/internal/logger"
)

// Store is the remote marker store. SetMarker is overwrite-safe and
// RemoveMarker is idempotent: removing an absent marker is not an error.
type Store interface {
	SetMarker(ctx context.Context, channel domain.ChannelId, user domain.UserId, displayName domain.DisplayName) error
	RemoveMarker(ctx context.Context, channel domain.ChannelId, user domain.UserId) error
}

const storeTimeout = 2 * time.Second

// Signaler tracks the typing marker for one (channel, user) pair. Writes are
// best-effort: failures are logged, never surfaced to the composer, and never
// block message delivery.
type Signaler struct {
	store       Store
	channel     domain.ChannelId
	user        domain.UserId
	displayName domain.DisplayName

	mu  sync.Mutex
	set bool
}

func NewSignaler(store Store, channel domain.ChannelId, user domain.UserId, displayName domain.DisplayName) *Signaler {
	return &Signaler{
		store:       store,
		channel:     channel,
		user:        user,
		displayName: displayName,
	}
}

// OnDraftChanged sets the marker when the draft has content and removes it
// when it does not. Repeated calls with the same value are no-ops.
func (s *Signaler) OnDraftChanged(hasContent bool) {
	s.mu.Lock()
	if s.set == hasContent {
		s.mu.Unlock()
		return
	}
	s.set = hasContent
	s.mu.Unlock()

	if hasContent {
		s.write(func(ctx context.Context) error {
			return s.store.SetMarker(ctx, s.channel, s.user, s.displayName)
		})
	} else {
		s.write(func(ctx context.Context) error {
			return s.store.RemoveMarker(ctx, s.channel, s.user)
		})
	}
}

// Clear removes the marker unconditionally. Called on successful send,
// composer teardown and upload cancellation, so a stale indicator never
// outlives the draft. Safe to call any number of times.
func (s *Signaler) Clear() {
	s.mu.Lock()
	s.set = false
	s.mu.Unlock()

	s.write(func(ctx context.Context) error {
		return s.store.RemoveMarker(ctx, s.channel, s.user)
	})
}

func (s *Signaler) write(op func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := op(ctx); err != nil {
		logger.Log.Warn("presence marker write failed",
			"channel", s.channel,
			"user", s.user,
			"error", err)
	}
}
