package models

import "fmt"

// ModelStorage says where a registered model lives.
type ModelStorage string

const (
	StorageLocal       ModelStorage = "local"
	StorageHuggingFace ModelStorage = "huggingface"
)

// ModelCategory groups registered models in the settings view.
type ModelCategory string

const (
	CategoryImage ModelCategory = "image"
	CategoryVideo ModelCategory = "video"
)

// ModelEntry is one row of the model-path registry persisted by the backend
// under /api/settings/models.
type ModelEntry struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Path      string        `json:"path"`
	Storage   ModelStorage  `json:"storage"`
	Category  ModelCategory `json:"category"`
	ModelType string        `json:"model_type"`
}

// Validate checks the two enumerated fields.
func (m ModelEntry) Validate() error {
	switch m.Storage {
	case StorageLocal, StorageHuggingFace:
	default:
		return fmt.Errorf("storage must be %q or %q, got %q", StorageLocal, StorageHuggingFace, m.Storage)
	}
	switch m.Category {
	case CategoryImage, CategoryVideo:
	default:
		return fmt.Errorf("category must be %q or %q, got %q", CategoryImage, CategoryVideo, m.Category)
	}
	return nil
}

// ModelEntryPatch carries a partial edit of a ModelEntry.
type ModelEntryPatch struct {
	Name      *string        `json:"name,omitempty"`
	Path      *string        `json:"path,omitempty"`
	Storage   *ModelStorage  `json:"storage,omitempty"`
	Category  *ModelCategory `json:"category,omitempty"`
	ModelType *string        `json:"model_type,omitempty"`
}

// Apply returns m with the patch applied.
func (p ModelEntryPatch) Apply(m ModelEntry) ModelEntry {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Path != nil {
		m.Path = *p.Path
	}
	if p.Storage != nil {
		m.Storage = *p.Storage
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.ModelType != nil {
		m.ModelType = *p.ModelType
	}
	return m
}

// DefaultModelEntries returns the built-in registry shown until the backend
// returns a saved list. Each call returns a fresh slice.
func DefaultModelEntries() []ModelEntry {
	return []ModelEntry{
		{ID: "default-sd15", Name: "Stable Diffusion 1.5", Path: "stable-diffusion-v1-5/stable-diffusion-v1-5", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "STABLE_DIFFUSION_15"},
		{ID: "default-sd15-inpainting", Name: "Stable Diffusion 1.5 Inpainting", Path: "stable-diffusion-v1-5/stable-diffusion-inpainting", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "STABLE_DIFFUSION_15_INPAINTING"},
		{ID: "default-sd21", Name: "Stable Diffusion 2.1", Path: "stabilityai/stable-diffusion-2-1", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "STABLE_DIFFUSION_21"},
		{ID: "default-sdxl", Name: "Stable Diffusion XL 1.0", Path: "stabilityai/stable-diffusion-xl-base-1.0", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "STABLE_DIFFUSION_XL_10_BASE"},
		{ID: "default-sdxl-inpainting", Name: "Stable Diffusion XL Inpainting", Path: "diffusers/stable-diffusion-xl-1.0-inpainting-0.1", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "STABLE_DIFFUSION_XL_10_BASE_INPAINTING"},
		{ID: "default-sd3", Name: "Stable Diffusion 3 Medium", Path: "stabilityai/stable-diffusion-3-medium-diffusers", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "STABLE_DIFFUSION_3"},
		{ID: "default-sd35", Name: "Stable Diffusion 3.5 Large", Path: "stabilityai/stable-diffusion-3.5-large", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "STABLE_DIFFUSION_35"},
		{ID: "default-flux-dev", Name: "FLUX.1 Dev", Path: "black-forest-labs/FLUX.1-dev", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "FLUX_DEV_1"},
		{ID: "default-flux-fill", Name: "FLUX.1 Fill Dev", Path: "black-forest-labs/FLUX.1-Fill-dev", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "FLUX_FILL_DEV_1"},
		{ID: "default-pixart-sigma", Name: "PixArt Sigma", Path: "PixArt-alpha/PixArt-Sigma-XL-2-1024-MS", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "PIXART_SIGMA"},
		{ID: "default-sana", Name: "Sana 1.6B", Path: "Efficient-Large-Model/Sana_1600M_1024px_diffusers", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "SANA"},
		{ID: "default-qwen-edit", Name: "Qwen Image Edit", Path: "Qwen/Qwen-Image-Edit", Storage: StorageHuggingFace, Category: CategoryImage, ModelType: "QWEN_IMAGE_EDIT"},
		{ID: "default-hunyuan-video", Name: "HunyuanVideo", Path: "hunyuanvideo-community/HunyuanVideo", Storage: StorageHuggingFace, Category: CategoryVideo, ModelType: "HUNYUAN_VIDEO"},
		{ID: "default-wan-t2v-1-3b", Name: "Wan 2.1 T2V 1.3B", Path: "Wan-AI/Wan2.1-T2V-1.3B-Diffusers", Storage: StorageHuggingFace, Category: CategoryVideo, ModelType: "WAN_T2V"},
		{ID: "default-wan-i2v-14b", Name: "Wan 2.1 I2V 14B", Path: "Wan-AI/Wan2.1-I2V-14B-480P-Diffusers", Storage: StorageHuggingFace, Category: CategoryVideo, ModelType: "WAN_I2V"},
		{ID: "default-ltx-video", Name: "LTX-Video", Path: "Lightricks/LTX-Video", Storage: StorageHuggingFace, Category: CategoryVideo, ModelType: "LTX_VIDEO"},
	}
}
