package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-chat/quill/internal/composer"
	"github.com/quill-chat/quill/internal/domain"
	"github.com/quill-chat/quill/internal/emoji"
	"github.com/quill-chat/quill/internal/presence"
	"github.com/quill-chat/quill/internal/upload"
	"github.com/quill-chat/quill/internal/validation"
)

type recordingAppender struct {
	mu       sync.Mutex
	appended []domain.Message
}

func (a *recordingAppender) AppendRecord(_ context.Context, _ domain.ChannelId, msg domain.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appended = append(a.appended, msg)
	return nil
}

func (a *recordingAppender) Appended() []domain.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Message(nil), a.appended...)
}

type instantTransfer struct {
	events chan upload.ProgressEvent
}

func (t *instantTransfer) Progress() <-chan upload.ProgressEvent { return t.events }
func (t *instantTransfer) Err() error                            { return nil }

type instantBackend struct{}

func (b *instantBackend) StartTransfer(_ context.Context, _ string, data []byte, _ upload.Metadata) (upload.Transfer, error) {
	t := &instantTransfer{events: make(chan upload.ProgressEvent, 1)}
	t.events <- upload.ProgressEvent{BytesTransferred: int64(len(data)), TotalBytes: int64(len(data))}
	close(t.events)
	return t, nil
}

func (b *instantBackend) LocationRef(context.Context, upload.Transfer) (string, error) {
	return "chat/public/abc.jpeg", nil
}

func newTestHandler(appender *recordingAppender) *Handler {
	store := presence.NewMemoryStore()
	author := domain.User{Id: "u1", Name: "Alice"}
	factory := func(ch domain.Channel) *composer.Composer {
		return composer.New(
			appender,
			upload.New(&instantBackend{}),
			presence.NewSignaler(store, ch.Id, author.Id, author.Name),
			emoji.Builtin(),
			validation.DefaultGate(),
			author,
			ch,
		)
	}
	return New(composer.NewRegistry(factory), 4000)
}

func doJSON(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("{}")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) composer.Snapshot {
	t.Helper()
	var snap composer.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func TestUpdateDraft(t *testing.T) {
	h := newTestHandler(&recordingAppender{})
	router := h.Routes()

	rec := doJSON(t, router, "PUT", "/v1/channels/general/draft", `{"text":"hello"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, rec)
	assert.Equal(t, "hello", snap.Text)
	assert.Equal(t, "general", snap.Channel)
}

func TestUpdateDraft_TooLong(t *testing.T) {
	h := newTestHandler(&recordingAppender{})
	router := h.Routes()

	long := strings.Repeat("a", 4001)
	rec := doJSON(t, router, "PUT", "/v1/channels/general/draft", `{"text":"`+long+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessage(t *testing.T) {
	t.Run("delivers and clears the draft", func(t *testing.T) {
		appender := &recordingAppender{}
		h := newTestHandler(appender)
		router := h.Routes()

		rec := doJSON(t, router, "POST", "/v1/channels/general/messages", `{"text":"hi :heart:"}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		snap := decodeSnapshot(t, rec)
		assert.Empty(t, snap.Text)

		appended := appender.Appended()
		require.Len(t, appended, 1)
		assert.Equal(t, "hi ❤️", appended[0].Content)
	})

	t.Run("empty draft is a validation failure", func(t *testing.T) {
		appender := &recordingAppender{}
		h := newTestHandler(appender)
		router := h.Routes()

		rec := doJSON(t, router, "POST", "/v1/channels/general/messages", `{}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		snap := decodeSnapshot(t, rec)
		require.Len(t, snap.Errors, 1)
		assert.Contains(t, snap.Errors[0], "message")
		assert.Empty(t, appender.Appended())
	})

	t.Run("malformed body", func(t *testing.T) {
		h := newTestHandler(&recordingAppender{})
		router := h.Routes()

		rec := doJSON(t, router, "POST", "/v1/channels/general/messages", `{"text": 12`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAddEmoji(t *testing.T) {
	t.Run("appends and expands", func(t *testing.T) {
		h := newTestHandler(&recordingAppender{})
		router := h.Routes()

		doJSON(t, router, "PUT", "/v1/channels/general/draft", `{"text":"hello"}`)
		rec := doJSON(t, router, "POST", "/v1/channels/general/emoji", `{"shorthand":":heart:"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		snap := decodeSnapshot(t, rec)
		assert.Equal(t, "hello ❤️", snap.Text)
	})

	t.Run("shorthand is required", func(t *testing.T) {
		h := newTestHandler(&recordingAppender{})
		router := h.Routes()

		rec := doJSON(t, router, "POST", "/v1/channels/general/emoji", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func multipartBody(t *testing.T, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestSendAttachment(t *testing.T) {
	t.Run("accepted image starts an upload and appends a record", func(t *testing.T) {
		appender := &recordingAppender{}
		h := newTestHandler(appender)
		router := h.Routes()

		body, contentType := multipartBody(t, "photo.png", []byte("png-bytes"))
		req := httptest.NewRequest("POST", "/v1/channels/general/attachments", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)

		require.Eventually(t, func() bool {
			return len(appender.Appended()) == 1
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, "chat/public/abc.jpeg", appender.Appended()[0].ImageRef)
	})

	t.Run("disallowed type is rejected at the transport", func(t *testing.T) {
		appender := &recordingAppender{}
		h := newTestHandler(appender)
		router := h.Routes()

		body, contentType := multipartBody(t, "setup.exe", []byte("MZ"))
		req := httptest.NewRequest("POST", "/v1/channels/general/attachments", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		assert.Empty(t, appender.Appended())

		// and the composer error surface stays silent
		state := doJSON(t, router, "GET", "/v1/channels/general/composer", "")
		snap := decodeSnapshot(t, state)
		assert.Empty(t, snap.Errors)
	})

	t.Run("missing file field", func(t *testing.T) {
		h := newTestHandler(&recordingAppender{})
		router := h.Routes()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest("POST", "/v1/channels/general/attachments", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCloseComposer(t *testing.T) {
	h := newTestHandler(&recordingAppender{})
	router := h.Routes()

	doJSON(t, router, "PUT", "/v1/channels/general/draft", `{"text":"draft"}`)
	rec := doJSON(t, router, "DELETE", "/v1/channels/general/composer", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// a fresh composer is created on next access
	state := doJSON(t, router, "GET", "/v1/channels/general/composer", "")
	snap := decodeSnapshot(t, state)
	assert.Empty(t, snap.Text)
}
