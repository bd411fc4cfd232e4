package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Maxborland/cutroom/internal/module/catalog"
	"github.com/Maxborland/cutroom/internal/shared/config"
	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
	"github.com/Maxborland/cutroom/internal/shared/logger"
)

// defaultSourceImageParam is used when a video descriptor does not name
// its own source-image input key.
const defaultSourceImageParam = "image_url"

// FalClient invokes fal.ai endpoints synchronously.
type FalClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	policy  Policy
	log     *logger.Logger
}

// NewFalClient creates a fal.ai client from provider config.
func NewFalClient(cfg *config.ProvidersConfig, log *logger.Logger) *FalClient {
	return &FalClient{
		baseURL: cfg.FalBaseURL,
		apiKey:  cfg.FalAPIKey,
		client:  &http.Client{},
		policy:  DefaultPolicy(cfg.RequestTimeout),
		log:     log,
	}
}

// ImageCall describes an image endpoint invocation.
type ImageCall struct {
	Prompt          string
	ReferenceImages []string
	AspectRatio     string
}

// VideoCall describes a video endpoint invocation.
type VideoCall struct {
	Prompt          string
	SourceImageURL  string
	DurationSeconds int
	// QualityInput is the resolved quality key/value pair, if any.
	QualityInput map[string]any
	// Extra carries additional provider-native input fields.
	Extra map[string]any
}

// GenerateImage invokes an image endpoint and returns the artifact URL.
func (c *FalClient) GenerateImage(ctx context.Context, m *catalog.ImageModel, call *ImageCall) (string, error) {
	if c.apiKey == "" {
		return "", apperrors.Configuration("fal api key is not configured")
	}
	if m.RequiresImageInput && len(call.ReferenceImages) == 0 {
		return "", apperrors.Validation("model " + m.ID + " requires a reference image")
	}

	input := map[string]any{"prompt": call.Prompt}
	if len(call.ReferenceImages) > 0 && m.ImageInputParam != "" {
		if m.ImageInputIsArray {
			input[m.ImageInputParam] = call.ReferenceImages
		} else {
			input[m.ImageInputParam] = call.ReferenceImages[0]
		}
	}
	if call.AspectRatio != "" {
		input["aspect_ratio"] = call.AspectRatio
	}

	return c.invoke(ctx, "fal image generation", m.Endpoint, input)
}

// GenerateVideo invokes a video endpoint and returns the artifact URL.
func (c *FalClient) GenerateVideo(ctx context.Context, m *catalog.VideoModel, call *VideoCall) (string, error) {
	if c.apiKey == "" {
		return "", apperrors.Configuration("fal api key is not configured")
	}
	if m.RequiresImageInput && call.SourceImageURL == "" {
		return "", apperrors.Validation("model " + m.ID + " requires a source image")
	}

	input := map[string]any{"prompt": call.Prompt}
	if call.SourceImageURL != "" {
		param := m.SourceImageParam
		if param == "" {
			param = defaultSourceImageParam
		}
		input[param] = call.SourceImageURL
	}
	if m.SupportsDuration && call.DurationSeconds > 0 {
		input["duration"] = strconv.Itoa(call.DurationSeconds)
	}
	for k, v := range call.QualityInput {
		input[k] = v
	}
	for k, v := range call.Extra {
		input[k] = v
	}

	return c.invoke(ctx, "fal video generation", m.Endpoint, input)
}

// invoke posts the input to the named endpoint under the retry policy
// and extracts the first media URL from the response.
func (c *FalClient) invoke(ctx context.Context, operation, endpoint string, input map[string]any) (string, error) {
	var out string
	err := c.policy.Do(ctx, operation, func(ctx context.Context) error {
		body, err := postJSON(ctx, c.client, c.baseURL+"/"+endpoint, map[string]string{
			"Authorization": "Key " + c.apiKey,
		}, input, c.policy.RetryableStatus)
		if err != nil {
			return err
		}
		url, ok := extractFalMediaURL(body)
		if !ok {
			return apperrors.NoMedia("fal")
		}
		out = url
		return nil
	})
	return out, err
}

type falMediaRef struct {
	URL string `json:"url"`
}

type falResponse struct {
	Images []falMediaRef `json:"images"`
	Image  *falMediaRef  `json:"image"`
	Video  *falMediaRef  `json:"video"`
	URL    string        `json:"url"`
}

// extractFalMediaURL pulls the artifact URL out of the few response
// shapes fal endpoints use.
func extractFalMediaURL(body []byte) (string, bool) {
	var resp falResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}
	switch {
	case len(resp.Images) > 0 && resp.Images[0].URL != "":
		return resp.Images[0].URL, true
	case resp.Image != nil && resp.Image.URL != "":
		return resp.Image.URL, true
	case resp.Video != nil && resp.Video.URL != "":
		return resp.Video.URL, true
	case resp.URL != "":
		return resp.URL, true
	}
	return "", false
}
