package composer

import (
	"sync"

	"github.com/quill-chat/quill/internal/domain"
)

// Factory builds a composer bound to one channel, with its own upload slot
// and presence signaler.
type Factory func(channel domain.Channel) *Composer

// Registry keeps at most one live composer per channel. Re-opening a channel
// tears the previous instance down first, so a marker or transfer left by a
// prior instance never leaks into the new one.
type Registry struct {
	mu      sync.Mutex
	factory Factory
	open    map[domain.ChannelId]*Composer
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		open:    make(map[domain.ChannelId]*Composer),
	}
}

// Open returns the live composer for a channel, creating it on first use.
func (r *Registry) Open(ch domain.Channel) *Composer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.open[ch.Id]; ok {
		return c
	}
	c := r.factory(ch)
	r.open[ch.Id] = c
	return c
}

// Reopen replaces the channel's composer with a fresh instance, closing the
// old one. Models a host-side remount.
func (r *Registry) Reopen(ch domain.Channel) *Composer {
	r.mu.Lock()
	prev := r.open[ch.Id]
	delete(r.open, ch.Id)
	r.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return r.Open(ch)
}

// Close tears down and forgets the channel's composer, if any.
func (r *Registry) Close(id domain.ChannelId) {
	r.mu.Lock()
	c := r.open[id]
	delete(r.open, id)
	r.mu.Unlock()

	if c != nil {
		c.Close()
	}
}

func (r *Registry) Get(id domain.ChannelId) (*Composer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.open[id]
	return c, ok
}

// CloseAll tears down every open composer.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	composers := make([]*Composer, 0, len(r.open))
	for _, c := range r.open {
		composers = append(composers, c)
	}
	r.open = make(map[domain.ChannelId]*Composer)
	r.mu.Unlock()

	for _, c := range composers {
		c.Close()
	}
}
