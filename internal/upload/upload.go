// Package upload owns the lifecycle of a single in-flight binary transfer:
// start, progress stream, cancellation, and resolution to a durable location
// reference.
package upload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/quill-chat/quill/internal/domain"
)

// State of the controller's single upload slot.
type State int

const (
	Idle State = iota
	Uploading
	Done
	Error
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Done:
		return "done"
	case Error:
		return "error"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

var (
	ErrUploadInProgress = errors.New("an upload is already in progress")
	ErrNoActiveUpload   = errors.New("no active upload to cancel")
	ErrUploadCancelled  = errors.New("upload cancelled")
)

// ProgressEvent reports raw transfer progress from a backend.
type ProgressEvent struct {
	BytesTransferred int64
	TotalBytes       int64
}

// Metadata travels with the object to the backend.
type Metadata struct {
	ContentType string
}

// Transfer is one in-flight write on a backend. Progress is closed once the
// transfer is terminal; Err must only be read after that.
type Transfer interface {
	Progress() <-chan ProgressEvent
	Err() error
}

// Backend is the binary-object upload service. Resolving the durable
// location is a second, separate step after the transfer completes.
type Backend interface {
	StartTransfer(ctx context.Context, path string, data []byte, meta Metadata) (Transfer, error)
	LocationRef(ctx context.Context, t Transfer) (string, error)
}

// Percent converts raw progress into a rounded 0..100 value. A transfer with
// no bytes to move counts as complete.
func Percent(transferred, total int64) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(transferred) / float64(total) * 100))
}

// Controller enforces "at most one active upload" over a backend.
// Zero value is not usable; construct with New.
type Controller struct {
	backend Backend

	mu      sync.Mutex
	state   State
	percent int
	cancel  context.CancelFunc
}

func New(backend Backend) *Controller {
	return &Controller{backend: backend}
}

// Session is the caller-facing handle for one upload: a stream of
// non-decreasing percentages followed by exactly one terminal result.
type Session struct {
	progress chan int
	done     chan struct{}
	ref      string
	err      error
}

// Progress emits rounded percentages in non-decreasing order. The channel is
// closed strictly before the terminal result becomes available; duplicate
// identical values may appear.
func (s *Session) Progress() <-chan int {
	return s.progress
}

// Wait blocks until the upload is terminal and returns the resolved location
// reference, or ErrUploadCancelled, or the transfer/resolution failure.
func (s *Session) Wait() (string, error) {
	<-s.done
	return s.ref, s.err
}

// Start begins uploading an attachment to destPath. It fails with
// ErrUploadInProgress, without any state transition, while another upload is
// active. A backend refusal to start resets the slot to Idle.
func (c *Controller) Start(ctx context.Context, att domain.Attachment, destPath string) (*Session, error) {
	c.mu.Lock()
	if c.state == Uploading {
		c.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.state = Uploading
	c.percent = 0
	c.cancel = cancel
	c.mu.Unlock()

	t, err := c.backend.StartTransfer(runCtx, destPath, att.Data, Metadata{ContentType: att.MimeType})
	if err != nil {
		cancel()
		c.mu.Lock()
		c.state = Idle
		c.cancel = nil
		c.mu.Unlock()
		return nil, fmt.Errorf("start transfer: %w", err)
	}

	s := &Session{
		progress: make(chan int, 32),
		done:     make(chan struct{}),
	}
	go c.run(runCtx, s, t)
	return s, nil
}

// Cancel stops the active transfer and releases the slot so a new Start is
// permitted. Valid only while Uploading. No completion result is delivered
// beyond Wait returning ErrUploadCancelled.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	if c.state != Uploading {
		c.mu.Unlock()
		return ErrNoActiveUpload
	}
	c.state = Cancelled
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	return nil
}

// State returns the current slot state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PercentUploaded returns the latest observed percentage.
func (c *Controller) PercentUploaded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.percent
}

func (c *Controller) run(ctx context.Context, s *Session, t Transfer) {
	last := 0
	for ev := range t.Progress() {
		if c.State() == Cancelled {
			// Drain without forwarding: the consumer must observe nothing
			// after cancellation.
			continue
		}
		p := Percent(ev.BytesTransferred, ev.TotalBytes)
		if p < last {
			p = last
		}
		last = p

		c.mu.Lock()
		c.percent = p
		c.mu.Unlock()

		select {
		case s.progress <- p:
		default:
			// Slow consumer; the snapshot in PercentUploaded stays current.
		}
	}

	if err := t.Err(); err != nil {
		if c.resolveTerminal(Idle) == Cancelled {
			c.finish(s, "", ErrUploadCancelled)
			return
		}
		c.finish(s, "", fmt.Errorf("transfer failed: %w", err))
		return
	}

	if c.State() == Cancelled {
		// Cancellation raced transfer completion: honor the cancel, skip
		// reference resolution.
		c.finish(s, "", ErrUploadCancelled)
		return
	}

	ref, err := c.backend.LocationRef(ctx, t)
	if err != nil {
		if c.resolveTerminal(Idle) == Cancelled {
			c.finish(s, "", ErrUploadCancelled)
			return
		}
		c.finish(s, "", fmt.Errorf("resolve location: %w", err))
		return
	}

	if c.resolveTerminal(Done) == Cancelled {
		c.finish(s, "", ErrUploadCancelled)
		return
	}
	c.finish(s, ref, nil)
}

// resolveTerminal moves the slot to target unless a cancellation won the
// race, and returns the state the slot ended up in.
func (c *Controller) resolveTerminal(target State) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Cancelled {
		c.state = target
		c.cancel = nil
	}
	return c.state
}

func (c *Controller) finish(s *Session, ref string, err error) {
	s.ref = ref
	s.err = err
	close(s.progress)
	close(s.done)
}
