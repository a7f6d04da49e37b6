package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/notesearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/logger"
)

type Handler struct {
	publisher *publisher.Publisher
	limits    validator.Limits
	logger    *slog.Logger
}

func New(pub *publisher.Publisher, limits validator.Limits) *Handler {
	if limits.MaxNameLength <= 0 {
		limits.MaxNameLength = validator.DefaultMaxNameLength
	}
	if limits.MaxContentLength <= 0 {
		limits.MaxContentLength = validator.DefaultMaxContentLength
	}
	return &Handler{
		publisher: pub,
		limits:    limits,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("PUT /api/v1/documents/{id}", h.Save)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.Delete)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	id := r.PathValue("id")

	var req ingestion.SaveRequest
	body := http.MaxBytesReader(w, r.Body, int64(h.limits.MaxContentLength)+64<<10)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateSave(id, &req, h.limits); err != nil {
		h.writeValidation(w, err)
		return
	}

	resp, err := h.publisher.Save(ctx, id, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("save failed", "doc_id", id, "error", err, "status_code", statusCode)
		h.writeError(w, statusCode, "save failed")
		return
	}
	log.Info("document saved", "doc_id", id, "status", resp.Status)
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	id := r.PathValue("id")

	if err := validator.ValidateID(id); err != nil {
		h.writeValidation(w, err)
		return
	}
	if err := h.publisher.Delete(ctx, id); err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		if statusCode >= http.StatusInternalServerError {
			log.Error("delete failed", "doc_id", id, "error", err)
		}
		h.writeError(w, statusCode, err.Error())
		return
	}
	log.Info("document deleted", "doc_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeValidation(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
