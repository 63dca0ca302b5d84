package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"Trainer-Console/server/internal/models"
)

const inferencePrefix = "/api/inference"

// InferenceClient wraps the backend inference API (model load, generation, gallery).
type InferenceClient struct {
	restClient
}

type galleryEnvelope struct {
	Images []models.GeneratedImage `json:"images"`
}

// NewInferenceClient creates a client for the inference backend at baseURL.
func NewInferenceClient(baseURL string, timeout time.Duration, log *logrus.Entry) *InferenceClient {
	return &InferenceClient{restClient: newRESTClient(baseURL, timeout, log)}
}

// LoadModel loads a base model plus optional LoRAs.
func (c *InferenceClient) LoadModel(ctx context.Context, req *models.LoadModelRequest) error {
	return c.do(ctx, http.MethodPost, inferencePrefix+"/load", req, nil)
}

// UnloadModel frees the loaded model.
func (c *InferenceClient) UnloadModel(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, inferencePrefix+"/unload", nil, nil)
}

// GetStatus returns the backend's model and generation state.
func (c *InferenceClient) GetStatus(ctx context.Context) (*models.InferenceStatus, error) {
	var status models.InferenceStatus
	if err := c.do(ctx, http.MethodGet, inferencePrefix+"/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetGallery returns up to limit previously generated images, newest first.
func (c *InferenceClient) GetGallery(ctx context.Context, limit int) ([]models.GeneratedImage, error) {
	path := inferencePrefix + "/gallery"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var env galleryEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Images, nil
}

// Generate starts a generation with params.
func (c *InferenceClient) Generate(ctx context.Context, params *models.GenerateParams) (*models.GenerateResponse, error) {
	var resp models.GenerateResponse
	if err := c.do(ctx, http.MethodPost, inferencePrefix+"/generate", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelGeneration asks the backend to stop the running generation.
func (c *InferenceClient) CancelGeneration(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, inferencePrefix+"/cancel", nil, nil)
}

// DeleteImage removes one gallery entry.
func (c *InferenceClient) DeleteImage(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, inferencePrefix+"/gallery/"+url.PathEscape(id), nil, nil)
}

// ClearGallery removes every gallery entry.
func (c *InferenceClient) ClearGallery(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, inferencePrefix+"/gallery", nil, nil)
}

// ImageURL returns the URL serving the image with the given id.
func (c *InferenceClient) ImageURL(id string) string {
	return c.baseURL + inferencePrefix + "/image/" + url.PathEscape(id)
}
