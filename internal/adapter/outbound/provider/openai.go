package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Maxborland/cutroom/internal/shared/config"
	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
	"github.com/Maxborland/cutroom/internal/shared/logger"
)

// OpenAIClient calls a chat-completions style API for text and inline
// image generation.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	policy  Policy
	log     *logger.Logger
}

// NewOpenAIClient creates a chat/image client from provider config.
func NewOpenAIClient(cfg *config.ProvidersConfig, log *logger.Logger) *OpenAIClient {
	return &OpenAIClient{
		baseURL: cfg.OpenAIBaseURL,
		apiKey:  cfg.OpenAIAPIKey,
		client:  &http.Client{},
		policy:  DefaultPolicy(cfg.RequestTimeout),
		log:     log,
	}
}

// ChatMessage is one conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multimodal user message.
type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

// UserImageMessage builds a user turn with image parts preceding the
// text instruction.
func UserImageMessage(text string, imageURLs ...string) ChatMessage {
	parts := make([]contentPart, 0, len(imageURLs)+1)
	for _, img := range imageURLs {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURLPart{URL: img}})
	}
	parts = append(parts, contentPart{Type: "text", Text: text})
	return ChatMessage{Role: "user", Content: parts}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Modalities  []string      `json:"modalities,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	Size        string        `json:"size,omitempty"`
	Quality     string        `json:"quality,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Images  []struct {
				ImageURL imageURLPart `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete runs a text completion and returns the assistant content.
func (c *OpenAIClient) Complete(ctx context.Context, model string, messages []ChatMessage, temperature *float64) (string, error) {
	if c.apiKey == "" {
		return "", apperrors.Configuration("openai api key is not configured")
	}

	var out string
	err := c.policy.Do(ctx, "chat completion", func(ctx context.Context) error {
		body, err := postJSON(ctx, c.client, c.baseURL+"/v1/chat/completions", c.headers(), &chatRequest{
			Model:       model,
			Messages:    messages,
			Temperature: temperature,
		}, c.policy.RetryableStatus)
		if err != nil {
			return err
		}

		var resp chatResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return apperrors.Transient("decode chat response", err)
		}
		if len(resp.Choices) == 0 {
			return apperrors.NoMedia("openai")
		}
		out = resp.Choices[0].Message.Content
		return nil
	})
	return out, err
}

// ImageGenRequest describes an inline image generation call.
type ImageGenRequest struct {
	Model  string
	Prompt string
	// ReferenceImages are base64 data-URLs embedded before the text
	// instruction.
	ReferenceImages []string
	Size            string
	Quality         string
}

// GenerateImage generates an image through the chat modality and
// returns it as a data-URL. The structured image array is read first;
// inline content is the fallback. Neither present is terminal.
func (c *OpenAIClient) GenerateImage(ctx context.Context, req *ImageGenRequest) (string, error) {
	if c.apiKey == "" {
		return "", apperrors.Configuration("openai api key is not configured")
	}

	parts := make([]contentPart, 0, len(req.ReferenceImages)+1)
	for _, img := range req.ReferenceImages {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURLPart{URL: img}})
	}
	parts = append(parts, contentPart{Type: "text", Text: req.Prompt})

	var out string
	err := c.policy.Do(ctx, "image generation", func(ctx context.Context) error {
		body, err := postJSON(ctx, c.client, c.baseURL+"/v1/chat/completions", c.headers(), &chatRequest{
			Model:      req.Model,
			Modalities: []string{"image", "text"},
			Messages:   []ChatMessage{{Role: "user", Content: parts}},
			Size:       req.Size,
			Quality:    req.Quality,
		}, c.policy.RetryableStatus)
		if err != nil {
			return err
		}

		var resp chatResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return apperrors.Transient("decode image response", err)
		}
		if len(resp.Choices) == 0 {
			return apperrors.NoMedia("openai")
		}
		msg := resp.Choices[0].Message
		if len(msg.Images) > 0 && msg.Images[0].ImageURL.URL != "" {
			out = msg.Images[0].ImageURL.URL
			return nil
		}
		if msg.Content != "" {
			out = msg.Content
			return nil
		}
		return apperrors.NoMedia("openai")
	})
	return out, err
}

func (c *OpenAIClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}
