package presence

import (
	"context"
	"sync"

	"github.com/quill-chat/quill/internal/domain"
)

// MemoryStore keeps markers in process memory. Used for single-node runs and
// as the fallback when no redis address is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	markers map[domain.ChannelId]map[domain.UserId]domain.DisplayName
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markers: make(map[domain.ChannelId]map[domain.UserId]domain.DisplayName),
	}
}

func (m *MemoryStore) SetMarker(_ context.Context, channel domain.ChannelId, user domain.UserId, displayName domain.DisplayName) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byUser, ok := m.markers[channel]
	if !ok {
		byUser = make(map[domain.UserId]domain.DisplayName)
		m.markers[channel] = byUser
	}
	byUser[user] = displayName
	return nil
}

func (m *MemoryStore) RemoveMarker(_ context.Context, channel domain.ChannelId, user domain.UserId) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if byUser, ok := m.markers[channel]; ok {
		delete(byUser, user)
		if len(byUser) == 0 {
			delete(m.markers, channel)
		}
	}
	return nil
}

// Markers returns a copy of the markers currently set for a channel.
func (m *MemoryStore) Markers(channel domain.ChannelId) map[domain.UserId]domain.DisplayName {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[domain.UserId]domain.DisplayName, len(m.markers[channel]))
	for user, name := range m.markers[channel] {
		out[user] = name
	}
	return out
}
