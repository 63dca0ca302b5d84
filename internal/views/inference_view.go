package views

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/interfaces"
	"Trainer-Console/server/internal/models"
	"Trainer-Console/server/internal/store"
)

// Generate validation failures. They are reported before any network call.
var (
	ErrPromptRequired    = errors.New("Please enter a prompt")
	ErrInitImageRequired = errors.New("Please provide an init image path")
	ErrMaskRequired      = errors.New("Please provide a mask image path")
)

const (
	defaultSteps         = 20
	defaultGuidanceScale = 7.0
	defaultSize          = 512
	defaultSeed          = -1
	defaultBatchSize     = 1
	defaultStrength      = 0.75
	defaultNumFrames     = 16
	defaultFPS           = 8
	defaultGalleryLimit  = 50
	defaultLoraWeight    = 1.0
)

// InferenceParams are the playground form fields.
type InferenceParams struct {
	Prompt          string                `json:"prompt"`
	NegativePrompt  string                `json:"negative_prompt"`
	Sampler         string                `json:"sampler"`
	Scheduler       string                `json:"scheduler"`
	Steps           int                   `json:"steps"`
	GuidanceScale   float64               `json:"guidance_scale"`
	Width           int                   `json:"width"`
	Height          int                   `json:"height"`
	Seed            int64                 `json:"seed"`
	BatchSize       int                   `json:"batch_size"`
	Mode            models.GenerationMode `json:"mode"`
	InitImagePath   string                `json:"init_image_path"`
	MaskImagePath   string                `json:"mask_image_path"`
	Strength        float64               `json:"strength"`
	NumFrames       int                   `json:"num_frames"`
	FPS             int                   `json:"fps"`
	EditInstruction string                `json:"edit_instruction"`
	ModelPath       string                `json:"model_path"`
	ModelType       string                `json:"model_type"`
	GalleryLimit    int                   `json:"gallery_limit"`
}

// DefaultInferenceParams returns the form defaults.
func DefaultInferenceParams() InferenceParams {
	return InferenceParams{
		Steps:         defaultSteps,
		GuidanceScale: defaultGuidanceScale,
		Width:         defaultSize,
		Height:        defaultSize,
		Seed:          defaultSeed,
		BatchSize:     defaultBatchSize,
		Mode:          models.ModeTxt2Img,
		Strength:      defaultStrength,
		NumFrames:     defaultNumFrames,
		FPS:           defaultFPS,
		GalleryLimit:  defaultGalleryLimit,
	}
}

// Validate checks the fields Generate needs, in a fixed order.
func (p InferenceParams) Validate() error {
	if p.Mode != models.ModeEdit && strings.TrimSpace(p.Prompt) == "" {
		return ErrPromptRequired
	}
	if p.Mode.NeedsInitImage() && strings.TrimSpace(p.InitImagePath) == "" {
		return ErrInitImageRequired
	}
	if p.Mode == models.ModeInpainting && strings.TrimSpace(p.MaskImagePath) == "" {
		return ErrMaskRequired
	}
	return nil
}

// Request builds the backend payload, sending mode specific fields only
// for the modes that use them.
func (p InferenceParams) Request() *models.GenerateParams {
	req := &models.GenerateParams{
		Prompt:         p.Prompt,
		NegativePrompt: p.NegativePrompt,
		Width:          p.Width,
		Height:         p.Height,
		Steps:          p.Steps,
		GuidanceScale:  p.GuidanceScale,
		Seed:           p.Seed,
		BatchSize:      p.BatchSize,
		Sampler:        p.Sampler,
		Scheduler:      p.Scheduler,
		Mode:           p.Mode,
	}
	if p.Mode.NeedsInitImage() {
		req.InitImagePath = p.InitImagePath
	}
	switch p.Mode {
	case models.ModeImg2Img:
		req.Strength = p.Strength
	case models.ModeInpainting:
		req.Strength = p.Strength
		req.MaskImagePath = p.MaskImagePath
	case models.ModeEdit:
		req.EditInstruction = p.EditInstruction
	case models.ModeVideo:
		req.NumFrames = p.NumFrames
		req.FPS = p.FPS
	}
	return req
}

// InferenceState is what the playground renders.
type InferenceState struct {
	Params    InferenceParams         `json:"params"`
	Loras     []models.LoraEntry      `json:"loras"`
	Status    *models.InferenceStatus `json:"status"`
	Gallery   []models.GeneratedImage `json:"gallery"`
	IsLoading bool                    `json:"is_loading"`
	Polling   bool                    `json:"polling"`
	AutoLoad  AutoLoadState           `json:"auto_load"`
	Error     string                  `json:"error"`
}

// InferenceOptions tunes the playground.
type InferenceOptions struct {
	PollInterval time.Duration
	GalleryLimit int
	AutoLoad     bool
}

// InferenceView drives the inference playground against the backend.
type InferenceView struct {
	store     ConfigStore
	backend   interfaces.InferenceBackend
	assistant interfaces.PromptAssistant
	actions   actionLog
	opts      InferenceOptions
	log       *logrus.Entry

	mu      sync.RWMutex
	params  InferenceParams
	loras   []models.LoraEntry
	status  *models.InferenceStatus
	gallery []models.GeneratedImage
	loading bool
	errMsg  string

	guard  AutoLoadGuard
	poller *Poller

	ctx       context.Context
	stop      context.CancelFunc
	closed    bool
	bg        sync.WaitGroup
	watchDone chan struct{}
	mountOnce sync.Once
	closeOnce sync.Once
}

// NewInferenceView builds the view. assistant and recorder may be nil.
func NewInferenceView(cs ConfigStore, backend interfaces.InferenceBackend, assistant interfaces.PromptAssistant, recorder interfaces.ActionRecorder, opts InferenceOptions, log *logrus.Entry) *InferenceView {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	params := DefaultInferenceParams()
	if opts.GalleryLimit > 0 {
		params.GalleryLimit = opts.GalleryLimit
	}

	ctx, stop := context.WithCancel(context.Background())
	v := &InferenceView{
		store:     cs,
		backend:   backend,
		assistant: assistant,
		actions:   actionLog{recorder: recorder, log: log},
		opts:      opts,
		log:       log,
		params:    params,
		loras:     []models.LoraEntry{},
		gallery:   []models.GeneratedImage{},
		ctx:       ctx,
		stop:      stop,
	}
	v.poller = NewPoller(opts.PollInterval, v.pollTick)
	return v
}

// Mount pre-fills from the config, fetches status and gallery, and starts
// following config changes. Later calls do nothing.
func (v *InferenceView) Mount(ctx context.Context) {
	v.mountOnce.Do(func() {
		v.applyConfig(v.store.Read())
		v.Refresh(ctx)

		updates, cancel := v.store.Subscribe(4)
		v.watchDone = make(chan struct{})
		go v.watchConfig(updates, cancel)
	})
}

func (v *InferenceView) watchConfig(updates <-chan store.Snapshot, cancel func()) {
	defer close(v.watchDone)
	defer cancel()
	for {
		select {
		case <-v.ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			v.applyConfig(snap.Config)
			v.scheduleAutoLoad()
		}
	}
}

// applyConfig copies the base model into the form and appends the trained
// LoRA output when the config describes a LoRA run.
func (v *InferenceView) applyConfig(cfg models.TrainingConfig) {
	path := cfg.String(models.KeyBaseModelName, "")
	modelType := cfg.String(models.KeyModelType, "")
	method := cfg.String(models.KeyTrainingMethod, "")
	output := cfg.String(models.KeyOutputDestination, "")

	v.mu.Lock()
	defer v.mu.Unlock()

	if path != "" {
		v.params.ModelPath = path
	}
	if modelType != "" {
		v.params.ModelType = modelType
	}
	if strings.EqualFold(method, "LORA") && output != "" && !v.hasLoraPathLocked(output) {
		v.loras = append(v.loras, models.LoraEntry{
			ID:      newID(),
			Path:    output,
			Weight:  defaultLoraWeight,
			Enabled: true,
		})
	}
}

func (v *InferenceView) hasLoraPathLocked(path string) bool {
	for _, l := range v.loras {
		if l.Path == path {
			return true
		}
	}
	return false
}

// State returns a copy of the playground state.
func (v *InferenceView) State() InferenceState {
	v.mu.RLock()
	defer v.mu.RUnlock()

	st := InferenceState{
		Params:    v.params,
		Loras:     append([]models.LoraEntry(nil), v.loras...),
		Gallery:   append([]models.GeneratedImage(nil), v.gallery...),
		IsLoading: v.loading,
		Polling:   v.poller.Running(),
		AutoLoad:  v.guard.State(),
		Error:     v.errMsg,
	}
	if st.Loras == nil {
		st.Loras = []models.LoraEntry{}
	}
	if st.Gallery == nil {
		st.Gallery = []models.GeneratedImage{}
	}
	if v.status != nil {
		s := *v.status
		st.Status = &s
	}
	return st
}

// SetParam coerces one form field.
func (v *InferenceView) SetParam(name string, raw interface{}) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	p := &v.params
	switch name {
	case "prompt", "negative_prompt", "sampler", "scheduler", "init_image_path",
		"mask_image_path", "edit_instruction", "model_path", "model_type":
		s, err := parseString(raw)
		if err != nil {
			return err
		}
		*stringParam(p, name) = s
	case "steps":
		p.Steps = parseIntOr(raw, defaultSteps)
	case "guidance_scale":
		p.GuidanceScale = parseFloatOr(raw, defaultGuidanceScale)
	case "width":
		p.Width = parseIntOr(raw, defaultSize)
	case "height":
		p.Height = parseIntOr(raw, defaultSize)
	case "seed":
		p.Seed = int64(parseIntOr(raw, defaultSeed))
	case "batch_size":
		p.BatchSize = parseIntOr(raw, defaultBatchSize)
	case "strength":
		p.Strength = parseFloatOr(raw, defaultStrength)
	case "num_frames":
		p.NumFrames = parseIntOr(raw, defaultNumFrames)
	case "fps":
		p.FPS = parseIntOr(raw, defaultFPS)
	case "gallery_limit":
		p.GalleryLimit = parseIntOr(raw, defaultGalleryLimit)
	case "mode":
		s, _ := raw.(string)
		mode, err := models.ParseGenerationMode(strings.ToLower(strings.TrimSpace(s)))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		p.Mode = mode
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return nil
}

// SetParams applies several fields in name order and stops at the first error.
func (v *InferenceView) SetParams(fields map[string]interface{}) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := v.SetParam(name, fields[name]); err != nil {
			return err
		}
	}
	return nil
}

func stringParam(p *InferenceParams, name string) *string {
	switch name {
	case "prompt":
		return &p.Prompt
	case "negative_prompt":
		return &p.NegativePrompt
	case "sampler":
		return &p.Sampler
	case "scheduler":
		return &p.Scheduler
	case "init_image_path":
		return &p.InitImagePath
	case "mask_image_path":
		return &p.MaskImagePath
	case "edit_instruction":
		return &p.EditInstruction
	case "model_path":
		return &p.ModelPath
	}
	return &p.ModelType
}

// AddLora appends an enabled LoRA with the given path and weight (1.0 when zero).
func (v *InferenceView) AddLora(path string, weight float64) models.LoraEntry {
	if weight == 0 {
		weight = defaultLoraWeight
	}
	l := models.LoraEntry{ID: newID(), Path: path, Weight: weight, Enabled: true}

	v.mu.Lock()
	v.loras = append(v.loras, l)
	v.mu.Unlock()
	return l
}

func (v *InferenceView) UpdateLora(id string, patch models.LoraPatch) (models.LoraEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, l := range v.loras {
		if l.ID == id {
			v.loras[i] = patch.Apply(l)
			return v.loras[i], nil
		}
	}
	return models.LoraEntry{}, fmt.Errorf("lora %s: %w", id, ErrNotFound)
}

func (v *InferenceView) RemoveLora(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, l := range v.loras {
		if l.ID == id {
			v.loras = append(v.loras[:i:i], v.loras[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("lora %s: %w", id, ErrNotFound)
}

func (v *InferenceView) loadRequest() *models.LoadModelRequest {
	v.mu.RLock()
	defer v.mu.RUnlock()

	req := &models.LoadModelRequest{
		ModelPath: v.params.ModelPath,
		ModelType: v.params.ModelType,
	}
	for _, l := range v.loras {
		if !l.Enabled || strings.TrimSpace(l.Path) == "" {
			continue
		}
		req.LoraPaths = append(req.LoraPaths, l.Path)
		req.LoraWeights = append(req.LoraWeights, l.Weight)
	}
	return req
}

// LoadModel loads the form's model with the enabled LoRAs. It also uses up
// the automatic load so the two never overlap.
func (v *InferenceView) LoadModel(ctx context.Context) error {
	v.guard.TryAcquire()
	return v.load(ctx, "load")
}

func (v *InferenceView) load(ctx context.Context, action string) error {
	v.mu.Lock()
	if v.loading {
		v.mu.Unlock()
		return ErrLoadInProgress
	}
	v.loading = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.loading = false
		v.mu.Unlock()
	}()

	req := v.loadRequest()
	return v.run(ctx, action, req.ModelPath, "load model", func(ctx context.Context) error {
		return v.backend.LoadModel(ctx, req)
	})
}

// scheduleAutoLoad runs the automatic load in the background on the view's
// own context. A load can take minutes; the caller's deadline does not apply.
func (v *InferenceView) scheduleAutoLoad() {
	if !v.opts.AutoLoad || v.guard.State() != AutoLoadNotAttempted {
		return
	}
	if v.store.Read().String(models.KeyBaseModelName, "") == "" {
		return
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.bg.Add(1)
	v.mu.Unlock()

	go func() {
		defer v.bg.Done()
		v.maybeAutoLoad(v.ctx)
	}()
}

// maybeAutoLoad loads the configured base model once, when the backend has
// reported that nothing is loaded.
func (v *InferenceView) maybeAutoLoad(ctx context.Context) {
	if !v.opts.AutoLoad {
		return
	}
	if v.store.Read().String(models.KeyBaseModelName, "") == "" {
		return
	}

	v.mu.RLock()
	ready := v.status != nil && !v.status.ModelLoaded && !v.loading
	v.mu.RUnlock()
	if !ready || !v.guard.TryAcquire() {
		return
	}

	if v.log != nil {
		v.log.Info("auto-loading configured base model")
	}
	if err := v.load(ctx, "auto_load"); err != nil && v.log != nil {
		v.log.WithError(err).Warn("auto-load failed")
	}
}

func (v *InferenceView) UnloadModel(ctx context.Context) error {
	return v.run(ctx, "unload", "", "unload model", v.backend.UnloadModel)
}

// Generate validates the form, submits it and starts status polling.
func (v *InferenceView) Generate(ctx context.Context) error {
	v.mu.RLock()
	params := v.params
	v.mu.RUnlock()

	if err := params.Validate(); err != nil {
		v.setError(err.Error())
		return err
	}

	req := params.Request()
	err := v.run(ctx, "generate", string(params.Mode), "generate", func(ctx context.Context) error {
		resp, err := v.backend.Generate(ctx, req)
		if err == nil && resp != nil && resp.JobID != "" && v.log != nil {
			v.log.WithField("job_id", resp.JobID).Info("generation started")
		}
		return err
	})
	if err != nil {
		return err
	}
	v.poller.Start(v.ctx)
	return nil
}

func (v *InferenceView) CancelGeneration(ctx context.Context) error {
	return v.run(ctx, "cancel", "", "cancel generation", v.backend.CancelGeneration)
}

func (v *InferenceView) DeleteImage(ctx context.Context, id string) error {
	return v.run(ctx, "delete_image", id, "delete image", func(ctx context.Context) error {
		return v.backend.DeleteImage(ctx, id)
	})
}

func (v *InferenceView) ClearGallery(ctx context.Context) error {
	return v.run(ctx, "clear_gallery", "", "clear gallery", v.backend.ClearGallery)
}

// ImageURL returns the backend URL of a gallery image.
func (v *InferenceView) ImageURL(id string) string {
	return v.backend.ImageURL(id)
}

// EnhancePrompt rewrites the current prompt through the prompt assistant.
func (v *InferenceView) EnhancePrompt(ctx context.Context) (string, error) {
	if v.assistant == nil {
		return "", ErrAssistUnavailable
	}

	v.mu.RLock()
	prompt, mode := v.params.Prompt, v.params.Mode
	v.mu.RUnlock()
	if strings.TrimSpace(prompt) == "" {
		v.setError(ErrPromptRequired.Error())
		return "", ErrPromptRequired
	}

	v.setError("")
	start := time.Now()
	enhanced, err := v.assistant.EnhancePrompt(ctx, prompt, mode)
	v.actions.record(ctx, "enhance_prompt", string(mode), start, err)
	if err != nil {
		v.setError(fmt.Sprintf("Failed to enhance prompt: %v", err))
		return "", err
	}

	v.mu.Lock()
	v.params.Prompt = enhanced
	v.mu.Unlock()
	return enhanced, nil
}

// run is the shared action pattern: clear the error, call the backend, keep
// a readable error on failure, refresh status and gallery on success.
func (v *InferenceView) run(ctx context.Context, action, target, label string, call func(context.Context) error) error {
	v.setError("")
	start := time.Now()
	err := call(ctx)
	v.actions.record(ctx, action, target, start, err)
	if err != nil {
		if v.log != nil {
			v.log.WithError(err).WithField("action", action).Warn("backend action failed")
		}
		v.setError(fmt.Sprintf("Failed to %s: %v", label, err))
		return err
	}
	v.refreshStatus(ctx)
	v.refreshGallery(ctx)
	return nil
}

// Refresh fetches status and gallery, starts polling when a generation is
// running and gives the automatic load its chance. It does not wait for
// the load.
func (v *InferenceView) Refresh(ctx context.Context) {
	st, err := v.refreshStatus(ctx)
	v.refreshGallery(ctx)
	if err == nil && st.IsGenerating {
		v.poller.Start(v.ctx)
	}
	v.scheduleAutoLoad()
}

func (v *InferenceView) refreshStatus(ctx context.Context) (*models.InferenceStatus, error) {
	st, err := v.backend.GetStatus(ctx)
	if err != nil {
		if v.log != nil {
			v.log.WithError(err).Debug("status fetch failed")
		}
		v.setError(fmt.Sprintf("Failed to fetch status: %v", err))
		return nil, err
	}
	v.mu.Lock()
	v.status = st
	v.mu.Unlock()
	return st, nil
}

func (v *InferenceView) refreshGallery(ctx context.Context) {
	v.mu.RLock()
	limit := v.params.GalleryLimit
	v.mu.RUnlock()

	images, err := v.backend.GetGallery(ctx, limit)
	if err != nil {
		if v.log != nil {
			v.log.WithError(err).Debug("gallery fetch failed")
		}
		v.setError(fmt.Sprintf("Failed to fetch gallery: %v", err))
		return
	}
	if images == nil {
		images = []models.GeneratedImage{}
	}
	v.mu.Lock()
	v.gallery = images
	v.mu.Unlock()
}

// pollTick keeps polling while the backend is generating or unreachable.
func (v *InferenceView) pollTick(ctx context.Context) bool {
	st, err := v.refreshStatus(ctx)
	if err != nil {
		return true
	}
	if st.IsGenerating {
		return true
	}
	v.refreshGallery(ctx)
	return false
}

func (v *InferenceView) setError(msg string) {
	v.mu.Lock()
	v.errMsg = msg
	v.mu.Unlock()
}

// Close stops polling, the config watcher and any automatic load.
func (v *InferenceView) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		v.mu.Unlock()

		v.poller.Stop()
		v.stop()
		if v.watchDone != nil {
			<-v.watchDone
		}
		v.bg.Wait()
	})
}
