// Package handlers exposes the admin application over HTTP as a small JSON
// API consumed by the admin frontend.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/apperrors"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/logger"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/models"
	"github.com/Windyyyyyyyyy/hpl-logistics-admin/internal/services"
)

// maxUploadBytes caps spreadsheet uploads at 10MB
const maxUploadBytes = 10 << 20

// Handlers holds the HTTP handlers and their collaborators
type Handlers struct {
	log      *logger.Logger
	ingestor *services.Ingestor
	inbox    *services.Inbox
	pageSize int
}

// New returns the handler set. pageSize is the inbox page size used when the
// client does not send one.
func New(log *logger.Logger, ingestor *services.Ingestor, inbox *services.Inbox, pageSize int) *Handlers {
	return &Handlers{log: log, ingestor: ingestor, inbox: inbox, pageSize: pageSize}
}

// Upload handles a spreadsheet upload and responds with the ingested dataset
// view. A remote persistence failure is reported inside the view as a
// notice, not as an HTTP error: the locally parsed grid is still served.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.clientError(w, http.StatusBadRequest, apperrors.Wrap(err, apperrors.ErrInvalidInput, "Error parsing upload form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.clientError(w, http.StatusBadRequest, apperrors.Wrap(err, apperrors.ErrInvalidInput, "Error retrieving uploaded file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.serverError(w, apperrors.Wrap(err, apperrors.ErrInternalServer, "Error reading uploaded file"))
		return
	}

	view, err := h.ingestor.Upload(r.Context(), header.Filename, data)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrParse) {
			h.clientError(w, http.StatusBadRequest, err)
			return
		}
		// Remote write failures do not block local display; the view
		// carries the notice
		h.log.Error(err)
	}

	h.writeJSON(w, http.StatusOK, view)
}

// Dataset serves the current pipeline output
func (h *Handlers) Dataset(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ingestor.View())
}

// Messages serves one page of the contact-message inbox
func (h *Handlers) Messages(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", h.pageSize)

	result, err := h.inbox.GetPage(r.Context(), page, pageSize)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidInput) {
			h.clientError(w, http.StatusBadRequest, err)
			return
		}
		h.serverError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// MessageDetail serves one message and marks it read. Opening the detail is
// the one mutation this application performs on a message.
func (h *Handlers) MessageDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	msg, err := h.inbox.Read(r.Context(), id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			h.clientError(w, http.StatusNotFound, err)
			return
		}
		h.serverError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, msg)
}

// CreateMessage stores a new inbound contact message
func (h *Handlers) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var msg models.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.clientError(w, http.StatusBadRequest, apperrors.Wrap(err, apperrors.ErrInvalidInput, "Error decoding message body"))
		return
	}

	if err := h.inbox.Submit(r.Context(), &msg); err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidInput) {
			h.clientError(w, http.StatusBadRequest, err)
			return
		}
		h.serverError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, msg)
}

// Health reports liveness
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("failed to encode response: %v", err)
	}
}

// clientError responds with the AppError's code and message as JSON
func (h *Handlers) clientError(w http.ResponseWriter, status int, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.ErrInvalidInput)
	}
	h.writeJSON(w, status, appErr)
}

// serverError logs the full error and responds with a generic 500 body
func (h *Handlers) serverError(w http.ResponseWriter, err error) {
	h.log.Error(err)
	h.writeJSON(w, http.StatusInternalServerError, apperrors.ErrInternalServer)
}
