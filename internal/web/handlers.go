package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/interfaces"
	"Trainer-Console/server/internal/models"
	"Trainer-Console/server/internal/store"
	"Trainer-Console/server/internal/views"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the console is served to a local browser
	},
}

const defaultActionLimit = 50

type Handlers struct {
	store      *store.ConfigStore
	hub        *ConfigHub
	backup     *views.BackupView
	data       *views.DataView
	embeddings *views.EmbeddingsView
	inference  *views.InferenceView
	models     *views.ModelsView
	actions    interfaces.ActionRecorder
	log        *logrus.Entry
}

// configResponse is the body of GET/PATCH /config
type configResponse struct {
	Revision uint64                `json:"revision"`
	Config   models.TrainingConfig `json:"config"`
}

// loraRequest is the body of POST /inference/loras
type loraRequest struct {
	Path   string  `json:"path"`
	Weight float64 `json:"weight"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps view and backend errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, views.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, views.ErrUnknownField),
		errors.Is(err, views.ErrInvalidTimeUnit),
		errors.Is(err, views.ErrInvalidValue),
		errors.Is(err, views.ErrInvalidModelEntry),
		errors.Is(err, views.ErrPromptRequired),
		errors.Is(err, views.ErrInitImageRequired),
		errors.Is(err, views.ErrMaskRequired):
		return http.StatusBadRequest
	case errors.Is(err, views.ErrLoadInProgress):
		return http.StatusConflict
	case errors.Is(err, views.ErrAssistUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// applyFields feeds a PATCH body to a per-field setter in key order
func applyFields(r *http.Request, set func(name string, raw interface{}) error) error {
	var fields map[string]interface{}
	if err := decodeBody(r, &fields); err != nil {
		return err
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := set(name, fields[name]); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"service":         "trainer-console",
		"config_revision": h.store.Revision(),
		"clients":         h.hub.GetClientCount(),
	})
}

// Config endpoints
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{Revision: h.store.Revision(), Config: h.store.Read()})
}

func (h *Handlers) PatchConfig(w http.ResponseWriter, r *http.Request) {
	var partial map[string]interface{}
	if err := decodeBody(r, &partial); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap := h.store.Update(partial)
	writeJSON(w, http.StatusOK, configResponse{Revision: snap.Revision, Config: snap.Config})
}

func (h *Handlers) ConfigStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	if _, err := h.hub.Attach(conn, store.Snapshot{Revision: h.store.Revision(), Config: h.store.Read()}); err != nil {
		h.log.WithError(err).Debug("config stream refused")
	}
}

// Backup endpoints
func (h *Handlers) GetBackup(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backup.State())
}

func (h *Handlers) PatchBackup(w http.ResponseWriter, r *http.Request) {
	if err := applyFields(r, h.backup.SetField); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.backup.State())
}

func (h *Handlers) BackupNow(w http.ResponseWriter, r *http.Request) {
	h.backup.BackupNow(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

func (h *Handlers) SaveNow(w http.ResponseWriter, r *http.Request) {
	h.backup.SaveNow(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

// Data endpoints
func (h *Handlers) GetData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.data.State())
}

func (h *Handlers) PatchData(w http.ResponseWriter, r *http.Request) {
	if err := applyFields(r, h.data.SetField); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.data.State())
}

// Embedding endpoints
func (h *Handlers) ListEmbeddings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.embeddings.List())
}

func (h *Handlers) AddEmbedding(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.embeddings.Add())
}

func (h *Handlers) UpdateEmbedding(w http.ResponseWriter, r *http.Request) {
	var patch models.EmbeddingPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.embeddings.Update(chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handlers) RemoveEmbedding(w http.ResponseWriter, r *http.Request) {
	if err := h.embeddings.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DisableAllEmbeddings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.embeddings.DisableAll())
}

// Inference endpoints
func (h *Handlers) GetInference(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.inference.State())
}

func (h *Handlers) PatchInference(w http.ResponseWriter, r *http.Request) {
	var fields map[string]interface{}
	if err := decodeBody(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.inference.SetParams(fields); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.inference.State())
}

// inferenceAction runs a view action and replies with the resulting state.
// The state carries the readable error; the status code tells the caller
// whether the action went through.
func (h *Handlers) inferenceAction(action func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		if err := action(r); err != nil {
			status = statusFor(err)
		}
		writeJSON(w, status, h.inference.State())
	}
}

func (h *Handlers) LoadModel(w http.ResponseWriter, r *http.Request) {
	h.inferenceAction(func(r *http.Request) error { return h.inference.LoadModel(r.Context()) })(w, r)
}

func (h *Handlers) UnloadModel(w http.ResponseWriter, r *http.Request) {
	h.inferenceAction(func(r *http.Request) error { return h.inference.UnloadModel(r.Context()) })(w, r)
}

func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	h.inferenceAction(func(r *http.Request) error { return h.inference.Generate(r.Context()) })(w, r)
}

func (h *Handlers) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	h.inferenceAction(func(r *http.Request) error { return h.inference.CancelGeneration(r.Context()) })(w, r)
}

func (h *Handlers) RefreshInference(w http.ResponseWriter, r *http.Request) {
	h.inferenceAction(func(r *http.Request) error {
		h.inference.Refresh(r.Context())
		return nil
	})(w, r)
}

func (h *Handlers) EnhancePrompt(w http.ResponseWriter, r *http.Request) {
	h.inferenceAction(func(r *http.Request) error {
		_, err := h.inference.EnhancePrompt(r.Context())
		return err
	})(w, r)
}

func (h *Handlers) ClearGallery(w http.ResponseWriter, r *http.Request) {
	h.inferenceAction(func(r *http.Request) error { return h.inference.ClearGallery(r.Context()) })(w, r)
}

func (h *Handlers) DeleteImage(w http.ResponseWriter, r *http.Request) {
	h.inferenceAction(func(r *http.Request) error {
		return h.inference.DeleteImage(r.Context(), chi.URLParam(r, "id"))
	})(w, r)
}

func (h *Handlers) ImageURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"url": h.inference.ImageURL(chi.URLParam(r, "id"))})
}

func (h *Handlers) AddLora(w http.ResponseWriter, r *http.Request) {
	var req loraRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, h.inference.AddLora(req.Path, req.Weight))
}

func (h *Handlers) UpdateLora(w http.ResponseWriter, r *http.Request) {
	var patch models.LoraPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, err := h.inference.UpdateLora(chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handlers) RemoveLora(w http.ResponseWriter, r *http.Request) {
	if err := h.inference.RemoveLora(chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Model registry endpoints
func (h *Handlers) GetModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.models.State())
}

func (h *Handlers) AddModel(w http.ResponseWriter, r *http.Request) {
	var entry models.ModelEntry
	if err := decodeBody(r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	added, err := h.models.Add(entry)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (h *Handlers) UpdateModel(w http.ResponseWriter, r *http.Request) {
	var patch models.ModelEntryPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.models.Update(chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) RemoveModel(w http.ResponseWriter, r *http.Request) {
	if err := h.models.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SaveModels(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if err := h.models.Save(r.Context()); err != nil {
		status = statusFor(err)
	}
	writeJSON(w, status, h.models.State())
}

func (h *Handlers) ResetModels(w http.ResponseWriter, r *http.Request) {
	h.models.ResetDefaults()
	writeJSON(w, http.StatusOK, h.models.State())
}

// Action log endpoint
func (h *Handlers) RecentActions(w http.ResponseWriter, r *http.Request) {
	if h.actions == nil {
		writeError(w, http.StatusServiceUnavailable, "action log is not configured")
		return
	}

	limit := defaultActionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.actions.RecentActions(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Warn("failed to read action log")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read action log: %v", err))
		return
	}
	if records == nil {
		records = []models.ActionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// requestLogger logs each request with its status and latency
func requestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start).String(),
			}).Debug("request")
		})
	}
}

// CORS middleware
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Max-Age", "300")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
