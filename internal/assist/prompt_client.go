package assist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"Trainer-Console/server/internal/config"
	"Trainer-Console/server/internal/models"
)

// ErrEmptyPrompt is returned when there is nothing to enhance.
var ErrEmptyPrompt = errors.New("prompt is empty")

const systemPrompt = "You rewrite prompts for a diffusion model. " +
	"Keep the subject and intent of the user's prompt, add concrete visual detail " +
	"(composition, lighting, style, lens), and answer with the rewritten prompt only, " +
	"as a single line without quotes."

// PromptClient asks an OpenAI-compatible chat endpoint to expand playground prompts.
type PromptClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewPromptClient creates a client from the assist config section.
func NewPromptClient(cfg config.AssistConfig) *PromptClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &PromptClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// EnhancePrompt returns a fuller version of prompt suited to mode.
func (c *PromptClient) EnhancePrompt(ctx context.Context, prompt string, mode models.GenerationMode) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt + modeHint(mode)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("prompt assist failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("prompt assist returned no choices")
	}

	out := cleanCompletion(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("prompt assist returned an empty prompt")
	}
	return out, nil
}

func modeHint(mode models.GenerationMode) string {
	switch mode {
	case models.ModeVideo:
		return " The prompt drives a short video clip, so describe motion and camera movement."
	case models.ModeEdit:
		return " The prompt is an edit instruction for an existing image; phrase it as an instruction."
	case models.ModeInpainting:
		return " The prompt describes only the masked region to repaint."
	}
	return ""
}

// cleanCompletion strips quotes and keeps the first non-empty line.
func cleanCompletion(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.Trim(line, "\"'`")
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
