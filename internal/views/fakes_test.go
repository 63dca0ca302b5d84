package views

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/logging"
	"Trainer-Console/server/internal/models"
	"Trainer-Console/server/internal/store"
)

var errBackendDown = errors.New("connection refused")

func testLog() *logrus.Entry {
	return logrus.NewEntry(logging.Discard())
}

// recordingStore wraps a real store and keeps every partial update.
type recordingStore struct {
	*store.ConfigStore

	mu      sync.Mutex
	updates []map[string]interface{}
}

func newRecordingStore(initial models.TrainingConfig) *recordingStore {
	return &recordingStore{ConfigStore: store.New(initial, testLog())}
}

func (r *recordingStore) Update(partial map[string]interface{}) store.Snapshot {
	cp := make(map[string]interface{}, len(partial))
	for k, v := range partial {
		cp[k] = v
	}
	r.mu.Lock()
	r.updates = append(r.updates, cp)
	r.mu.Unlock()
	return r.ConfigStore.Update(partial)
}

func (r *recordingStore) Updates() []map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]interface{}(nil), r.updates...)
}

type fakeTrainer struct {
	mu          sync.Mutex
	backups     int
	saves       int
	getCalls    int
	saved       [][]models.ModelEntry
	stored      []models.ModelEntry
	err         error
	getModelErr error
}

func (f *fakeTrainer) Backup(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backups++
	return f.err
}

func (f *fakeTrainer) Save(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	return f.err
}

func (f *fakeTrainer) GetModels(ctx context.Context) ([]models.ModelEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getModelErr != nil {
		return nil, f.getModelErr
	}
	return append([]models.ModelEntry(nil), f.stored...), nil
}

func (f *fakeTrainer) SaveModels(ctx context.Context, entries []models.ModelEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, entries)
	return nil
}

type fakeInference struct {
	mu sync.Mutex

	status          models.InferenceStatus
	generatingPolls int
	gallery         []models.GeneratedImage

	loadErr     error
	loadDelay   time.Duration
	generateErr error
	statusErr   error

	loads        []*models.LoadModelRequest
	generates    []*models.GenerateParams
	statusCalls  int
	galleryCalls int
	galleryLimit int
	deleted      []string
	cleared      int
	cancelled    int
	unloaded     int
}

func (f *fakeInference) LoadModel(ctx context.Context, req *models.LoadModelRequest) error {
	f.mu.Lock()
	f.loads = append(f.loads, req)
	delay, loadErr := f.loadDelay, f.loadErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if loadErr != nil {
		return loadErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.status.ModelLoaded = true
	f.status.ModelPath = req.ModelPath
	return nil
}

func (f *fakeInference) UnloadModel(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloaded++
	f.status.ModelLoaded = false
	return nil
}

func (f *fakeInference) GetStatus(ctx context.Context) (*models.InferenceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	st := f.status
	if f.generatingPolls > 0 {
		f.generatingPolls--
		st.IsGenerating = true
	}
	return &st, nil
}

func (f *fakeInference) GetGallery(ctx context.Context, limit int) ([]models.GeneratedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.galleryCalls++
	f.galleryLimit = limit
	return append([]models.GeneratedImage(nil), f.gallery...), nil
}

func (f *fakeInference) Generate(ctx context.Context, params *models.GenerateParams) (*models.GenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generates = append(f.generates, params)
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	f.gallery = append(f.gallery, models.GeneratedImage{ID: "img-new", Prompt: params.Prompt, Mode: params.Mode})
	return &models.GenerateResponse{JobID: "job-1"}, nil
}

func (f *fakeInference) CancelGeneration(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
	f.generatingPolls = 0
	return nil
}

func (f *fakeInference) DeleteImage(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeInference) ClearGallery(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.gallery = nil
	return nil
}

func (f *fakeInference) ImageURL(id string) string {
	return "http://backend/api/inference/image/" + id
}

func (f *fakeInference) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeInference) generateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.generates)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.ActionRecord
}

func (f *fakeRecorder) RecordAction(ctx context.Context, rec *models.ActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeRecorder) RecentActions(ctx context.Context, limit int) ([]models.ActionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ActionRecord(nil), f.records...), nil
}

func (f *fakeRecorder) all() []models.ActionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ActionRecord(nil), f.records...)
}

type fakeAssistant struct {
	out string
	err error
}

func (f *fakeAssistant) EnhancePrompt(ctx context.Context, prompt string, mode models.GenerationMode) (string, error) {
	return f.out, f.err
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}
