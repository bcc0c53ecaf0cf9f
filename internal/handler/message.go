package handler

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/quill-chat/quill/internal/composer"
	internal_errors "github.com/quill-chat/quill/internal/errors"
)

func (h *Handler) GetComposerState(w http.ResponseWriter, r *http.Request) {
	c := h.openComposer(r)
	writeJSON(w, http.StatusOK, c.State())
}

func (h *Handler) CloseComposer(w http.ResponseWriter, r *http.Request) {
	h.registry.Close(channelFromRequest(r).Id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	type bodyJson struct {
		Text string `json:"text"`
	}
	var body bodyJson
	if err := h.loadAndValidate(r, &body); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}
	if utf8.RuneCountInString(body.Text) > h.maxMessageLength {
		writeErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "message is too long",
			StatusCode: http.StatusBadRequest,
		})
		return
	}

	c := h.openComposer(r)
	c.OnInputChange(body.Text)
	writeJSON(w, http.StatusOK, c.State())
}

func (h *Handler) AddEmoji(w http.ResponseWriter, r *http.Request) {
	type bodyJson struct {
		Shorthand string `json:"shorthand" validate:"required"`
	}
	var body bodyJson
	if err := h.loadAndValidate(r, &body); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	c := h.openComposer(r)
	c.AddEmoji(body.Shorthand)
	writeJSON(w, http.StatusOK, c.State())
}

// SendMessage optionally replaces the draft with the posted text, then runs
// the enter-key submission path.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	type bodyJson struct {
		Text string `json:"text"`
	}
	var body bodyJson
	if err := h.loadAndValidate(r, &body); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}
	if utf8.RuneCountInString(body.Text) > h.maxMessageLength {
		writeErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "message is too long",
			StatusCode: http.StatusBadRequest,
		})
		return
	}

	c := h.openComposer(r)
	if body.Text != "" {
		c.OnInputChange(body.Text)
	}

	err := c.Submit(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, c.State())
	case errors.Is(err, composer.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, c.State())
	case errors.Is(err, composer.ErrComposerClosed):
		writeErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "composer is closed",
			StatusCode: http.StatusConflict,
		})
	default:
		// delivery failure: the draft survives, the error list carries detail
		writeJSON(w, http.StatusBadGateway, c.State())
	}
}
