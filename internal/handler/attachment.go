package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/quill-chat/quill/internal/composer"
	internal_errors "github.com/quill-chat/quill/internal/errors"
	"github.com/quill-chat/quill/internal/upload"
	"github.com/quill-chat/quill/internal/validation"
)

const maxAttachmentBytes = 32 << 20

// SendAttachment accepts a multipart "file" field, gates it, and starts the
// upload. The response is immediate; upload progress is visible through the
// composer state endpoint.
func (h *Handler) SendAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		writeErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "invalid multipart body",
			StatusCode: http.StatusBadRequest,
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "missing file field",
			StatusCode: http.StatusBadRequest,
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	att := validation.Describe(header.Filename, data)
	c := h.openComposer(r)

	// The upload outlives this request; detach it from the request lifetime.
	_, err = c.SubmitAttachment(context.WithoutCancel(r.Context()), att)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, c.State())
	case errors.Is(err, composer.ErrUnauthorizedAttachment):
		// The composer stays silent about this; the transport still reports it.
		writeErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "file type not allowed",
			StatusCode: http.StatusUnsupportedMediaType,
		})
	case errors.Is(err, upload.ErrUploadInProgress):
		writeErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "an upload is already in progress",
			StatusCode: http.StatusConflict,
		})
	case errors.Is(err, composer.ErrComposerClosed):
		writeErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "composer is closed",
			StatusCode: http.StatusConflict,
		})
	default:
		writeErrorAndStatusCode(w, err)
	}
}
