package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/logging"
	"Trainer-Console/server/internal/models"
	"Trainer-Console/server/internal/store"
	"Trainer-Console/server/internal/views"
)

type stubTrainer struct {
	mu      sync.Mutex
	backups int
	err     error
}

func (s *stubTrainer) Backup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups++
	return s.err
}

func (s *stubTrainer) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stubTrainer) GetModels(ctx context.Context) ([]models.ModelEntry, error) {
	return nil, nil
}

func (s *stubTrainer) SaveModels(ctx context.Context, entries []models.ModelEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stubTrainer) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubTrainer) backupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backups
}

type stubInference struct {
	mu        sync.Mutex
	generates int
}

func (s *stubInference) LoadModel(ctx context.Context, req *models.LoadModelRequest) error {
	return nil
}
func (s *stubInference) UnloadModel(ctx context.Context) error { return nil }
func (s *stubInference) GetStatus(ctx context.Context) (*models.InferenceStatus, error) {
	return &models.InferenceStatus{}, nil
}
func (s *stubInference) GetGallery(ctx context.Context, limit int) ([]models.GeneratedImage, error) {
	return nil, nil
}
func (s *stubInference) Generate(ctx context.Context, params *models.GenerateParams) (*models.GenerateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generates++
	return &models.GenerateResponse{}, nil
}
func (s *stubInference) CancelGeneration(ctx context.Context) error { return nil }
func (s *stubInference) DeleteImage(ctx context.Context, id string) error { return nil }
func (s *stubInference) ClearGallery(ctx context.Context) error { return nil }
func (s *stubInference) generateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generates
}
func (s *stubInference) ImageURL(id string) string {
	return "http://backend/api/inference/image/" + id
}

type testServer struct {
	*httptest.Server
	store     *store.ConfigStore
	trainer   *stubTrainer
	inference *stubInference
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logrus.NewEntry(logging.Discard())
	cs := store.New(nil, log)
	trainer := &stubTrainer{}
	inf := &stubInference{}

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewConfigHub(log)
	go hub.Run(ctx)
	go hub.Follow(ctx, cs)

	data := views.NewDataView(cs, log)
	inference := views.NewInferenceView(cs, inf, nil, nil, views.InferenceOptions{PollInterval: 10 * time.Millisecond}, log)

	router := NewRouter(Deps{
		Store:      cs,
		Hub:        hub,
		Backup:     views.NewBackupView(cs, trainer, nil, log),
		Data:       data,
		Embeddings: views.NewEmbeddingsView(cs, log),
		Inference:  inference,
		Models:     views.NewModelsView(trainer, nil, time.Second, log),
		Log:        log,
	})
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		srv.Close()
		inference.Close()
		data.Close()
		cancel()
	})
	return &testServer{Server: srv, store: cs, trainer: trainer, inference: inf}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.do(t, http.MethodGet, "/api/v1/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("Unexpected body %s", body)
	}
}

func TestPatchBackup(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPatch, "/api/v1/backup", map[string]interface{}{"backup_after_unit": "HOUR"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	var state views.BackupState
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if state.BackupAfterUnit != models.TimeUnitHour {
		t.Errorf("Expected HOUR, got %s", state.BackupAfterUnit)
	}
	if srv.store.Read().String(models.KeyBackupAfterUnit, "") != "HOUR" {
		t.Error("Store was not updated")
	}

	resp, _ = srv.do(t, http.MethodPatch, "/api/v1/backup", map[string]interface{}{"save_every_unit": "YEAR"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown unit, got %d", resp.StatusCode)
	}
}

func TestBackupNowAlwaysAccepted(t *testing.T) {
	srv := newTestServer(t)
	srv.trainer.fail(errors.New("trainer offline"))

	resp, _ := srv.do(t, http.MethodPost, "/api/v1/backup/now", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", resp.StatusCode)
	}
	if srv.trainer.backupCount() != 1 {
		t.Errorf("Expected one backup call, got %d", srv.trainer.backupCount())
	}
}

func TestPatchConfigAndData(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPatch, "/api/v1/config", map[string]interface{}{models.KeyBatchSize: 6})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}

	deadline := time.Now().Add(time.Second)
	for {
		_, body = srv.do(t, http.MethodGet, "/api/v1/data", nil)
		var state views.DataState
		_ = json.Unmarshal(body, &state)
		if state.BatchSize == 6 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Data view never saw the config change: %s", body)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEmbeddingRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPost, "/api/v1/embeddings", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var e models.Embedding
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("Failed to decode embedding: %v", err)
	}

	resp, _ = srv.do(t, http.MethodPatch, "/api/v1/embeddings/missing", map[string]interface{}{"train": false})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	resp, body = srv.do(t, http.MethodPost, "/api/v1/embeddings/disable-all", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"train":false`) {
		t.Errorf("Unexpected disable-all response %d %s", resp.StatusCode, body)
	}

	resp, _ = srv.do(t, http.MethodDelete, "/api/v1/embeddings/"+e.UUID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
}

func TestGenerateValidationStatus(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPost, "/api/v1/inference/generate", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
	var state views.InferenceState
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if state.Error != views.ErrPromptRequired.Error() {
		t.Errorf("Unexpected error slot %q", state.Error)
	}
	if srv.inference.generateCount() != 0 {
		t.Error("Backend must not be called")
	}

	srv.do(t, http.MethodPatch, "/api/v1/inference", map[string]interface{}{"prompt": "a harbour at dawn"})
	resp, _ = srv.do(t, http.MethodPost, "/api/v1/inference/generate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestImageURLRoute(t *testing.T) {
	srv := newTestServer(t)
	_, body := srv.do(t, http.MethodGet, "/api/v1/inference/gallery/abc/url", nil)
	if !strings.Contains(string(body), "http://backend/api/inference/image/abc") {
		t.Errorf("Unexpected body %s", body)
	}
}

func TestModelRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := srv.do(t, http.MethodPost, "/api/v1/models", map[string]interface{}{"name": "x", "storage": "ftp"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad storage, got %d", resp.StatusCode)
	}

	resp, body := srv.do(t, http.MethodPost, "/api/v1/models/save", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"kind":"success"`) {
		t.Errorf("Unexpected save response %d %s", resp.StatusCode, body)
	}

	srv.trainer.fail(errors.New("disk full"))
	resp, body = srv.do(t, http.MethodPost, "/api/v1/models/save", nil)
	if resp.StatusCode != http.StatusBadGateway || !strings.Contains(string(body), "disk full") {
		t.Errorf("Unexpected failed save response %d %s", resp.StatusCode, body)
	}
}

func TestActionsDisabled(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := srv.do(t, http.MethodGet, "/api/v1/actions", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}

func TestConfigStream(t *testing.T) {
	srv := newTestServer(t)
	srv.store.Update(map[string]interface{}{"resolution": "768"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/config/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first snapshotMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("Failed to read greeting: %v", err)
	}
	if first.Type != "snapshot" || first.Config["resolution"] != "768" {
		t.Errorf("Unexpected greeting %+v", first)
	}

	srv.do(t, http.MethodPatch, "/api/v1/config", map[string]interface{}{"batch_size": 2})

	// A broadcast of the first write may still be in flight; skip to revision 2.
	for {
		var next snapshotMessage
		if err := conn.ReadJSON(&next); err != nil {
			t.Fatalf("Failed to read update: %v", err)
		}
		if next.Revision < 2 {
			continue
		}
		if next.Type != "config" || next.Revision != 2 || len(next.Changed) != 1 || next.Changed[0] != "batch_size" {
			t.Errorf("Unexpected update %+v", next)
		}
		return
	}
}
