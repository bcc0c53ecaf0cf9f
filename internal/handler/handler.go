// Package handler exposes the composition core over HTTP for the host UI.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quill-chat/quill/internal/composer"
	"github.com/quill-chat/quill/internal/domain"
	internal_errors "github.com/quill-chat/quill/internal/errors"
	"github.com/quill-chat/quill/internal/logger"
	metricsmw "github.com/quill-chat/quill/internal/middleware/metrics"
)

type Handler struct {
	registry         *composer.Registry
	val              *validator.Validate
	maxMessageLength int
}

func New(registry *composer.Registry, maxMessageLength int) *Handler {
	return &Handler{
		registry:         registry,
		val:              validator.New(validator.WithRequiredStructEnabled()),
		maxMessageLength: maxMessageLength,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(metricsmw.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Route("/v1/channels/{channel}", func(r chi.Router) {
		r.Get("/composer", h.GetComposerState)
		r.Delete("/composer", h.CloseComposer)
		r.Put("/draft", h.UpdateDraft)
		r.Post("/emoji", h.AddEmoji)
		r.Post("/messages", h.SendMessage)
		r.Post("/attachments", h.SendAttachment)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// channelFromRequest resolves the target channel. Privacy is flagged by the
// caller; channel membership itself is the host's concern.
func channelFromRequest(r *http.Request) domain.Channel {
	return domain.Channel{
		Id:      chi.URLParam(r, "channel"),
		Private: r.URL.Query().Get("private") == "1",
	}
}

func (h *Handler) openComposer(r *http.Request) *composer.Composer {
	return h.registry.Open(channelFromRequest(r))
}

// loadAndValidate decodes the JSON body into dst and runs struct validation.
func (h *Handler) loadAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &internal_errors.ErrorWithStatusCode{Message: "invalid request body", StatusCode: http.StatusBadRequest}
	}
	if err := h.val.Struct(dst); err != nil {
		return &internal_errors.ErrorWithStatusCode{Message: err.Error(), StatusCode: http.StatusBadRequest}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Error("could not encode response body", "error", err)
	}
}

func writeErrorAndStatusCode(w http.ResponseWriter, err error) {
	if e, ok := err.(*internal_errors.ErrorWithStatusCode); ok {
		http.Error(w, e.Error(), e.StatusCode)
		return
	}
	// default error is 500
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
