// Package api exposes the slot store over HTTP with the same surface as
// the original gallery service: user creation, image upload/retrieval,
// listing and clear-all, all scoped under /users/{user_id}.
package api

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/image-slots/pkg/imageslots"
)

// Handler handles the slot store HTTP endpoints
type Handler struct {
	service imageslots.Service
}

// NewHandler creates a new HTTP handler around the service
func NewHandler(service imageslots.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for the slot store endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Post("/users/{user_id}", h.CreateUser)
	r.Post("/users/{user_id}/images", h.UploadImage)
	r.Get("/users/{user_id}/images/{index}", h.GetImage)
	r.Get("/users/{user_id}/images", h.ListImages)
	r.Delete("/users/{user_id}/images", h.ClearImages)
	return r
}

// CreateUser creates the user namespace. Idempotent.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	if err := h.service.CreateUser(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]bool{"ok": true})
}

// UploadImage stores one image from a multipart form. The file part is
// streamed straight into the blob store; the payload is never read whole.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	mr, err := r.MultipartReader()
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "multipart form required"})
		return
	}

	part, err := filePart(mr)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "file field required"})
		return
	}
	defer part.Close()

	result, err := h.service.Upload(r.Context(), imageslots.UploadRequest{
		UserID:      userID,
		Reader:      part,
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// GetImage serves the blob stored at the slot index.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid slot index"})
		return
	}

	rc, contentType, err := h.service.Download(r.Context(), userID, index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("failed to stream image", "user_id", userID, "index", index, "error", err)
	}
}

// ListImages lists the user's occupied slots, as JSON by default or as an
// HTML gallery page for browser requests.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	slots, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		h.renderGallery(w, userID, slots)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"user_id": userID,
		"images":  slots,
	})
}

// ClearImages removes all of the user's slots. Idempotent.
func (h *Handler) ClearImages(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	if err := h.service.Clear(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]bool{"ok": true})
}

// filePart advances the multipart stream to the "file" form field without
// draining any part bodies.
func filePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, imageslots.ErrInvalidUserID):
		status = http.StatusBadRequest
	case errors.Is(err, imageslots.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, imageslots.ErrUnsupportedMediaType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, imageslots.ErrSlotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, imageslots.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}
