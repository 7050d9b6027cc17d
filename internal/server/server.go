package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/chatdetect/internal/engine"
	perrors "github.com/ivlev/chatdetect/internal/errors"
	"github.com/ivlev/chatdetect/internal/ocr"
	"github.com/ivlev/chatdetect/internal/source"
)

const maxUpload = 50 << 20

type Handler struct {
	pipeline *engine.Pipeline
	logger   logrus.FieldLogger
}

func NewHandler(pipeline *engine.Pipeline, logger logrus.FieldLogger) *Handler {
	return &Handler{pipeline: pipeline, logger: logger}
}

// Routes регистрирует обработчики в новом ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/detect", h.DetectHandler)
	mux.HandleFunc("/health", h.HealthHandler)
	return mux
}

// DetectHandler обрабатывает POST /detect: multipart "file" и необязательный "threshold".
func (h *Handler) DetectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	threshold := h.pipeline.Threshold
	if v := r.FormValue("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 1 {
			respondError(w, fmt.Sprintf("Invalid threshold: %s", v), http.StatusBadRequest)
			return
		}
		threshold = t
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	img, err := source.Decode(header.Filename, data)
	if err != nil {
		h.respondProcessingError(w, err)
		return
	}

	entry, err := h.pipeline.Process(r.Context(), ocr.Input{Name: header.Filename, Image: img})
	if err != nil {
		h.respondProcessingError(w, err)
		return
	}
	entry.SetDecision(threshold)

	respondJSON(w, entry, http.StatusOK)
}

// HealthHandler проверка здоровья сервиса
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *Handler) respondProcessingError(w http.ResponseWriter, err error) {
	h.logger.WithError(err).Warn("Detection failed")

	code, ok := perrors.CodeOf(err)
	if !ok {
		respondError(w, fmt.Sprintf("Detection failed: %v", err), http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch code {
	case perrors.ErrorDecodeFailed, perrors.ErrorUnsupportedFormat:
		status = http.StatusBadRequest
	case perrors.ErrorOCRFailed:
		status = http.StatusBadGateway
	case perrors.ErrorInvalidGeometry:
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, map[string]interface{}{
		"error":      err.Error(),
		"error_code": string(code),
	}, status)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
