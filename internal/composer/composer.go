// Package composer owns the draft of one outgoing message per open channel
// session and drives it through validation, optional upload, and delivery.
package composer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/quill-chat/quill/internal/domain"
	"github.com/quill-chat/quill/internal/emoji"
	"github.com/quill-chat/quill/internal/logger"
	"github.com/quill-chat/quill/internal/metrics"
	"github.com/quill-chat/quill/internal/upload"
)

// Appender is the storage collaborator: an opaque append-to-channel
// operation whose acknowledgment assigns the record timestamp.
type Appender interface {
	AppendRecord(ctx context.Context, channel domain.ChannelId, msg domain.Message) error
}

// Gate decides whether a file may start an upload.
type Gate interface {
	IsAuthorized(fileName string) bool
}

// Presence receives draft transitions; failures never reach the composer.
type Presence interface {
	OnDraftChanged(hasContent bool)
	Clear()
}

var (
	ErrEmptyMessage           = errors.New("message is empty")
	ErrUnauthorizedAttachment = errors.New("attachment type not authorized")
	ErrComposerClosed         = errors.New("composer is closed")
)

// Composer coordinates one mutable draft against the injected collaborators.
// Methods are safe for concurrent use; the upload watcher re-enters through
// the same lock.
type Composer struct {
	appender Appender
	uploads  *upload.Controller
	presence Presence
	catalog  emoji.Catalog
	gate     Gate
	author   domain.User
	channel  domain.Channel

	mu      sync.Mutex
	draft   domain.Draft
	errs    []error
	loading bool
	closed  bool

	watchers sync.WaitGroup
}

func New(appender Appender, uploads *upload.Controller, presence Presence, catalog emoji.Catalog, gate Gate, author domain.User, channel domain.Channel) *Composer {
	return &Composer{
		appender: appender,
		uploads:  uploads,
		presence: presence,
		catalog:  catalog,
		gate:     gate,
		author:   author,
		channel:  channel,
	}
}

// Snapshot is the read-only state surfaced to the UI layer after each
// mutation.
type Snapshot struct {
	Text            string           `json:"text"`
	Errors          []string         `json:"errors"`
	Loading         bool             `json:"loading"`
	UploadState     string           `json:"upload_state"`
	PercentUploaded int              `json:"percent_uploaded"`
	EmojiPickerOpen bool             `json:"emoji_picker_open"`
	Author          domain.User      `json:"author"`
	Channel         domain.ChannelId `json:"channel"`
}

func (c *Composer) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := make([]string, len(c.errs))
	for i, err := range c.errs {
		errs[i] = err.Error()
	}
	return Snapshot{
		Text:            c.draft.Text,
		Errors:          errs,
		Loading:         c.loading,
		UploadState:     c.uploads.State().String(),
		PercentUploaded: c.uploads.PercentUploaded(),
		EmojiPickerOpen: c.draft.EmojiPickerOpen,
		Author:          c.author,
		Channel:         c.channel.Id,
	}
}

// OnInputChange replaces the draft text and re-evaluates typing presence.
// Called for every keystroke-equivalent update regardless of which
// submission path follows.
func (c *Composer) OnInputChange(text string) {
	c.mu.Lock()
	c.draft.Text = text
	c.mu.Unlock()

	c.presence.OnDraftChanged(text != "")
}

// ToggleEmojiPicker flips picker visibility; pure UI state.
func (c *Composer) ToggleEmojiPicker() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.EmojiPickerOpen = !c.draft.EmojiPickerOpen
	return c.draft.EmojiPickerOpen
}

// AddEmoji appends a shorthand token to the draft, expands it immediately,
// and closes the picker. Expansion happens here and on submit, never per
// keystroke.
func (c *Composer) AddEmoji(shorthand string) {
	c.mu.Lock()
	text := c.draft.Text
	if text == "" {
		text = shorthand
	} else {
		text = text + " " + shorthand
	}
	text = emoji.Expand(text, c.catalog)
	c.draft.Text = text
	c.draft.EmojiPickerOpen = false
	c.mu.Unlock()

	c.presence.OnDraftChanged(text != "")
}

// SubmitText validates and delivers the current draft as a text record.
// An empty or whitespace-only draft appends a validation error and issues no
// network call. On acknowledgment the draft, the error list, and the typing
// marker are cleared; on failure the draft survives so the user can retry.
func (c *Composer) SubmitText(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrComposerClosed
	}
	if strings.TrimSpace(c.draft.Text) == "" {
		c.errs = append(c.errs, &domain.ValidationError{Field: "message", Detail: "add a message"})
		c.mu.Unlock()
		return ErrEmptyMessage
	}
	c.errs = nil
	c.loading = true
	content := emoji.Expand(c.draft.Text, c.catalog)
	c.mu.Unlock()

	msg := domain.NewTextMessage(c.author, content)
	err := c.appender.AppendRecord(ctx, c.channel.Id, msg)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.errs = append(c.errs, fmt.Errorf("append record: %w", err))
		c.mu.Unlock()
		metrics.SendFailures.Inc()
		return err
	}
	c.draft.Text = ""
	c.errs = nil
	c.mu.Unlock()

	metrics.MessagesSent.WithLabelValues("text").Inc()
	c.presence.Clear()
	return nil
}

// Submit is the enter-key path; identical to SubmitText.
func (c *Composer) Submit(ctx context.Context) error {
	return c.SubmitText(ctx)
}

// SubmitAttachment gates the file and, if authorized, starts an upload and
// delivers an image record once the transfer resolves. Unauthorized files
// are dropped without touching the error list: the caller gets
// ErrUnauthorizedAttachment, the UI surface stays silent.
func (c *Composer) SubmitAttachment(ctx context.Context, att domain.Attachment) (*upload.Session, error) {
	// The lock is held through Start and the watcher registration: a Close
	// that interleaves must either run before the closed check or find the
	// upload already started and awaitable.
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrComposerClosed
	}

	if !c.gate.IsAuthorized(att.FileName) {
		logger.Log.Debug("attachment rejected by gate",
			"channel", c.channel.Id,
			"file", att.FileName)
		return nil, ErrUnauthorizedAttachment
	}

	session, err := c.uploads.Start(ctx, att, c.objectPath(att.FileName))
	if err != nil {
		c.errs = append(c.errs, err)
		return nil, err
	}

	c.watchers.Add(1)
	go c.watchUpload(ctx, session)
	return session, nil
}

// watchUpload turns the session's terminal result into either an appended
// image record or an accumulated error. Cancellation produces nothing.
func (c *Composer) watchUpload(ctx context.Context, s *upload.Session) {
	defer c.watchers.Done()

	ref, err := s.Wait()
	if err != nil {
		if errors.Is(err, upload.ErrUploadCancelled) {
			metrics.Uploads.WithLabelValues("cancelled").Inc()
			return
		}
		metrics.Uploads.WithLabelValues("error").Inc()
		c.mu.Lock()
		c.errs = append(c.errs, err)
		c.mu.Unlock()
		return
	}
	metrics.Uploads.WithLabelValues("done").Inc()

	msg := domain.NewImageMessage(c.author, ref)
	if err := c.appender.AppendRecord(ctx, c.channel.Id, msg); err != nil {
		metrics.SendFailures.Inc()
		c.mu.Lock()
		c.errs = append(c.errs, fmt.Errorf("append record: %w", err))
		c.mu.Unlock()
		return
	}
	metrics.MessagesSent.WithLabelValues("image").Inc()
}

// objectPath namespaces uploads by channel visibility and avoids collisions
// with a random suffix.
func (c *Composer) objectPath(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		ext = ".jpeg"
	}
	name := uuid.NewString() + ext
	if c.channel.Private {
		return path.Join("chat", "private", c.channel.Id, name)
	}
	return path.Join("chat", "public", name)
}

// Errors returns a copy of the accumulated error list in order.
func (c *Composer) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

// Close tears the composer down: an upload still in flight is cancelled
// synchronously before composer state is released, and the typing marker is
// removed so it cannot outlive this instance. Safe to call more than once.
func (c *Composer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.uploads.Cancel(); err != nil && !errors.Is(err, upload.ErrNoActiveUpload) {
		logger.Log.Warn("cancelling upload on teardown failed", "error", err)
	}
	c.presence.Clear()
	c.watchers.Wait()
}
