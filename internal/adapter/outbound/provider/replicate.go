package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Maxborland/cutroom/internal/module/catalog"
	"github.com/Maxborland/cutroom/internal/shared/config"
	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
	"github.com/Maxborland/cutroom/internal/shared/logger"
)

// rejectionKeywords mark a 400/422 body as an input-schema rejection
// when they appear alongside one of our optional field names.
var rejectionKeywords = []string{
	"unknown", "unexpected", "invalid", "not allowed", "not permitted", "extra",
}

// ReplicateClient invokes Replicate models synchronously.
type ReplicateClient struct {
	baseURL string
	token   string
	client  *http.Client
	policy  Policy
	log     *logger.Logger
}

// NewReplicateClient creates a Replicate client from provider config.
func NewReplicateClient(cfg *config.ProvidersConfig, log *logger.Logger) *ReplicateClient {
	return &ReplicateClient{
		baseURL: cfg.ReplicateBaseURL,
		token:   cfg.ReplicateToken,
		client:  &http.Client{},
		policy:  DefaultPolicy(cfg.RequestTimeout),
		log:     log,
	}
}

// GenerateImage invokes an image model and returns the artifact URL.
func (c *ReplicateClient) GenerateImage(ctx context.Context, m *catalog.ImageModel, call *ImageCall) (string, error) {
	if c.token == "" {
		return "", apperrors.Configuration("replicate token is not configured")
	}
	if m.RequiresImageInput && len(call.ReferenceImages) == 0 {
		return "", apperrors.Validation("model " + m.ID + " requires a reference image")
	}

	input := map[string]any{"prompt": call.Prompt}
	if len(call.ReferenceImages) > 0 && m.ImageInputParam != "" {
		refs := make([]any, len(call.ReferenceImages))
		for i, ref := range call.ReferenceImages {
			refs[i] = imagePayload(ref)
		}
		if m.ImageInputIsArray {
			input[m.ImageInputParam] = refs
		} else {
			input[m.ImageInputParam] = refs[0]
		}
	}

	optional := map[string]any{}
	if call.AspectRatio != "" {
		optional["aspect_ratio"] = call.AspectRatio
	}

	return c.invoke(ctx, "replicate image generation", m.Endpoint, input, optional)
}

// GenerateVideo invokes a video model and returns the artifact URL.
func (c *ReplicateClient) GenerateVideo(ctx context.Context, m *catalog.VideoModel, call *VideoCall) (string, error) {
	if c.token == "" {
		return "", apperrors.Configuration("replicate token is not configured")
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
		input[param] = imagePayload(call.SourceImageURL)
	}

	// Optional fields are stripped and retried once if the model's
	// schema rejects them.
	optional := map[string]any{}
	if m.SupportsDuration && call.DurationSeconds > 0 {
		optional["duration"] = call.DurationSeconds
	}
	for k, v := range call.QualityInput {
		optional[k] = v
	}
	for k, v := range call.Extra {
		optional[k] = v
	}

	return c.invoke(ctx, "replicate video generation", m.Endpoint, input, optional)
}

// invoke runs a prediction under the retry policy, with a one-shot
// compatibility fallback: a schema rejection naming an optional field
// triggers a single retry without the optional fields.
func (c *ReplicateClient) invoke(ctx context.Context, operation, endpoint string, required, optional map[string]any) (string, error) {
	full := make(map[string]any, len(required)+len(optional))
	for k, v := range required {
		full[k] = v
	}
	for k, v := range optional {
		full[k] = v
	}

	out, err := c.predict(ctx, operation, endpoint, full)
	if err == nil || len(optional) == 0 {
		return out, err
	}
	if !isOptionalFieldRejection(err, optional) {
		return "", err
	}

	c.log.Warn("replicate rejected optional input, retrying without it",
		logger.String("endpoint", endpoint), logger.Err(err))
	return c.predict(ctx, operation, endpoint, required)
}

func (c *ReplicateClient) predict(ctx context.Context, operation, endpoint string, input map[string]any) (string, error) {
	var out string
	err := c.policy.Do(ctx, operation, func(ctx context.Context) error {
		body, err := postJSON(ctx, c.client, c.baseURL+"/v1/models/"+endpoint+"/predictions", map[string]string{
			"Authorization": "Bearer " + c.token,
			"Prefer":        "wait",
		}, map[string]any{"input": input}, c.policy.RetryableStatus)
		if err != nil {
			return err
		}

		var resp struct {
			Output json.RawMessage `json:"output"`
			Error  string          `json:"error"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return apperrors.Transient("decode prediction response", err)
		}
		if resp.Error != "" {
			return apperrors.Provider(resp.Error)
		}
		url, ok := extractReplicateOutput(resp.Output)
		if !ok {
			return apperrors.NoMedia("replicate")
		}
		out = url
		return nil
	})
	return out, err
}

// isOptionalFieldRejection reports whether err is a 400/422 whose body
// mentions one of the optional field names next to a rejection keyword.
func isOptionalFieldRejection(err error, optional map[string]any) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	if se.status != http.StatusBadRequest && se.status != http.StatusUnprocessableEntity {
		return false
	}
	body := strings.ToLower(se.body)
	mentionsField := false
	for name := range optional {
		if strings.Contains(body, strings.ToLower(name)) {
			mentionsField = true
			break
		}
	}
	if !mentionsField {
		return false
	}
	for _, kw := range rejectionKeywords {
		if strings.Contains(body, kw) {
			return true
		}
	}
	return false
}

// imagePayload decodes a data-URL source image to its raw bytes;
// plain URLs pass through unchanged.
func imagePayload(src string) any {
	if !strings.HasPrefix(src, "data:") {
		return src
	}
	_, b64, found := strings.Cut(src, ",")
	if !found {
		return src
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return src
	}
	return raw
}

// extractReplicateOutput accepts a bare string, the first element of a
// list (string or URL-bearing object), or a URL-bearing object.
func extractReplicateOutput(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", false
		}
		return extractReplicateOutput(list[0])
	}

	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
		return obj.URL, true
	}
	return "", false
}
