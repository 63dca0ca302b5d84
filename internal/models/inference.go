package models

import (
	"fmt"
	"time"
)

// GenerationMode selects the inference pipeline.
type GenerationMode string

const (
	ModeTxt2Img    GenerationMode = "txt2img"
	ModeImg2Img    GenerationMode = "img2img"
	ModeInpainting GenerationMode = "inpainting"
	ModeEdit       GenerationMode = "edit"
	ModeVideo      GenerationMode = "video"
)

// ParseGenerationMode validates a mode name.
func ParseGenerationMode(s string) (GenerationMode, error) {
	switch m := GenerationMode(s); m {
	case ModeTxt2Img, ModeImg2Img, ModeInpainting, ModeEdit, ModeVideo:
		return m, nil
	}
	return "", fmt.Errorf("unknown generation mode %q", s)
}

// NeedsInitImage reports whether the mode starts from an existing image.
func (m GenerationMode) NeedsInitImage() bool {
	return m == ModeImg2Img || m == ModeInpainting || m == ModeEdit
}

// GenerateParams is the request body of the backend generate call.
type GenerateParams struct {
	Prompt          string         `json:"prompt"`
	NegativePrompt  string         `json:"negative_prompt,omitempty"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	Steps           int            `json:"steps"`
	GuidanceScale   float64        `json:"guidance_scale"`
	Seed            int64          `json:"seed"`
	BatchSize       int            `json:"batch_size"`
	Sampler         string         `json:"sampler,omitempty"`
	Scheduler       string         `json:"scheduler,omitempty"`
	Mode            GenerationMode `json:"mode"`
	InitImagePath   string         `json:"init_image_path,omitempty"`
	MaskImagePath   string         `json:"mask_image_path,omitempty"`
	Strength        float64        `json:"strength,omitempty"`
	NumFrames       int            `json:"num_frames,omitempty"`
	FPS             int            `json:"fps,omitempty"`
	EditInstruction string         `json:"edit_instruction,omitempty"`
}

// GenerateResponse is returned by the backend once a generation is accepted.
type GenerateResponse struct {
	JobID    string   `json:"job_id,omitempty"`
	ImageIDs []string `json:"image_ids,omitempty"`
}

// InferenceStatus mirrors the backend's model and generation state.
type InferenceStatus struct {
	ModelLoaded  bool    `json:"model_loaded"`
	ModelPath    string  `json:"model_path,omitempty"`
	ModelType    string  `json:"model_type,omitempty"`
	IsGenerating bool    `json:"is_generating"`
	Progress     float64 `json:"progress"`
	CurrentStep  int     `json:"current_step"`
	TotalSteps   int     `json:"total_steps"`
	Error        string  `json:"error,omitempty"`
}

// GeneratedImage is a gallery entry held by the backend.
type GeneratedImage struct {
	ID        string         `json:"id"`
	Prompt    string         `json:"prompt"`
	Mode      GenerationMode `json:"mode"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Seed      int64          `json:"seed"`
	MediaType string         `json:"media_type,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// LoadModelRequest is the request body of the backend load call.
type LoadModelRequest struct {
	ModelPath   string    `json:"model_path"`
	ModelType   string    `json:"model_type"`
	LoraPaths   []string  `json:"lora_paths,omitempty"`
	LoraWeights []float64 `json:"lora_weights,omitempty"`
}
