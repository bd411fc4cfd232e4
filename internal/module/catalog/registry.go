package catalog

import (
	"strings"

	apperrors "github.com/Maxborland/cutroom/internal/shared/errors"
)

// EndpointPrefix marks a model identifier that names a raw provider
// endpoint instead of a catalog entry: "endpoint:<provider>/<path>".
const EndpointPrefix = "endpoint:"

// Registry resolves model identifiers to descriptors.
type Registry struct {
	images map[string]*ImageModel
	videos map[string]*VideoModel

	imageOrder []string
	videoOrder []string
}

// NewRegistry creates a registry loaded with the static catalog.
func NewRegistry() *Registry {
	r := &Registry{
		images: make(map[string]*ImageModel),
		videos: make(map[string]*VideoModel),
	}
	for _, m := range staticImageModels {
		r.images[m.ID] = m
		r.imageOrder = append(r.imageOrder, m.ID)
	}
	for _, m := range staticVideoModels {
		r.videos[m.ID] = m
		r.videoOrder = append(r.videoOrder, m.ID)
	}
	return r
}

// ResolveImage resolves an image model identifier. Dynamic endpoint
// identifiers are synthesized on demand and never stored.
func (r *Registry) ResolveImage(id string) (*ImageModel, bool) {
	if m, ok := r.images[id]; ok {
		return m, true
	}
	provider, path, err := parseDynamic(id)
	if err != nil {
		return nil, false
	}
	return synthesizeImageModel(id, provider, path), true
}

// ResolveVideo resolves a video model identifier.
func (r *Registry) ResolveVideo(id string) (*VideoModel, bool) {
	if m, ok := r.videos[id]; ok {
		return m, true
	}
	provider, path, err := parseDynamic(id)
	if err != nil {
		return nil, false
	}
	return synthesizeVideoModel(id, provider, path), true
}

// ImageModels returns the static image catalog in declaration order.
func (r *Registry) ImageModels() []*ImageModel {
	out := make([]*ImageModel, 0, len(r.imageOrder))
	for _, id := range r.imageOrder {
		out = append(out, r.images[id])
	}
	return out
}

// VideoModels returns the static video catalog in declaration order.
func (r *Registry) VideoModels() []*VideoModel {
	out := make([]*VideoModel, 0, len(r.videoOrder))
	for _, id := range r.videoOrder {
		out = append(out, r.videos[id])
	}
	return out
}

// QualityOptions returns the selectable quality values for a model:
// explicit options first, then tier values, case-insensitively
// de-duplicated with first-seen order preserved.
func (r *Registry) QualityOptions(m *VideoModel) []string {
	if m.QualityParam == "" {
		return nil
	}
	var raw []string
	raw = append(raw, m.QualityOptions...)
	for _, tier := range []Tier{TierLow, TierMedium, TierHigh} {
		if v, ok := m.QualityTiers[tier]; ok {
			if s, ok := v.(string); ok {
				raw = append(raw, s)
			}
		}
	}
	return dedupeFold(raw)
}

// parseDynamic splits a dynamic identifier into provider and endpoint
// path. Identifiers without a path separator after the prefix are
// invalid.
func parseDynamic(id string) (Provider, string, error) {
	if !strings.HasPrefix(id, EndpointPrefix) {
		return "", "", apperrors.Validation("unknown model identifier: " + id)
	}
	rest := strings.TrimPrefix(id, EndpointPrefix)
	providerTag, path, found := strings.Cut(rest, "/")
	if !found || providerTag == "" || path == "" {
		return "", "", apperrors.Validation("malformed endpoint identifier: " + id)
	}
	switch Provider(providerTag) {
	case ProviderFal, ProviderReplicate:
		return Provider(providerTag), path, nil
	default:
		return "", "", apperrors.Validation("unsupported provider in identifier: " + providerTag)
	}
}

// synthesizeImageModel builds an image descriptor for a raw endpoint
// using substring heuristics.
func synthesizeImageModel(id string, provider Provider, endpoint string) *ImageModel {
	requiresImage := endpointRequiresImage(endpoint)
	m := &ImageModel{
		ID:                 id,
		Provider:           provider,
		Endpoint:           endpoint,
		Name:               endpoint,
		SupportsImageInput: true,
		RequiresImageInput: requiresImage,
	}
	if requiresImage {
		if provider == ProviderFal {
			m.ImageInputParam = "image_urls"
			m.ImageInputIsArray = true
		} else {
			m.ImageInputParam = "image_input"
			m.ImageInputIsArray = true
		}
	}
	return m
}

// synthesizeVideoModel builds a video descriptor for a raw endpoint
// using substring heuristics for image input and quality tiers.
func synthesizeVideoModel(id string, provider Provider, endpoint string) *VideoModel {
	m := &VideoModel{
		ID:                 id,
		Provider:           provider,
		Endpoint:           endpoint,
		Name:               endpoint,
		SupportsImageInput: true,
		RequiresImageInput: endpointRequiresImage(endpoint),
	}

	lower := strings.ToLower(endpoint)
	switch {
	case strings.Contains(lower, "minimax/hailuo"):
		m.QualityParam = "resolution"
		m.QualityTiers = map[Tier]any{TierLow: "512P", TierMedium: "768P", TierHigh: "768P"}
		m.SupportsDuration = true
	case strings.Contains(lower, "wan"):
		m.QualityParam = "resolution"
		m.QualityTiers = map[Tier]any{TierLow: "480p", TierMedium: "720p", TierHigh: "720p"}
		m.QualityOptions = []string{"480p", "720p"}
	case strings.Contains(lower, "veo3"):
		m.QualityParam = "resolution"
		m.QualityTiers = map[Tier]any{TierLow: "720p", TierMedium: "720p", TierHigh: "1080p"}
		m.SupportsDuration = true
	}
	return m
}

// endpointRequiresImage reports whether an endpoint path names an
// edit-style target that must receive a reference image.
func endpointRequiresImage(endpoint string) bool {
	lower := strings.ToLower(endpoint)
	return strings.Contains(lower, "edit") || strings.Contains(lower, "image-to-image")
}

// dedupeFold de-duplicates case-insensitively, preserving first-seen
// order and casing.
func dedupeFold(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// staticImageModels is the built-in image catalog.
var staticImageModels = []*ImageModel{
	{
		ID:                 "flux-dev",
		Provider:           ProviderFal,
		Endpoint:           "fal-ai/flux/dev",
		Name:               "FLUX.1 dev",
		SupportsImageInput: false,
	},
	{
		ID:                 "flux-kontext",
		Provider:           ProviderFal,
		Endpoint:           "fal-ai/flux-pro/kontext",
		Name:               "FLUX.1 Kontext (edit)",
		SupportsImageInput: true,
		RequiresImageInput: true,
		ImageInputParam:    "image_url",
	},
	{
		ID:                 "nano-banana-edit",
		Provider:           ProviderFal,
		Endpoint:           "fal-ai/nano-banana/edit",
		Name:               "Nano Banana (edit)",
		SupportsImageInput: true,
		RequiresImageInput: true,
		ImageInputParam:    "image_urls",
		ImageInputIsArray:  true,
	},
	{
		ID:                 "seedream",
		Provider:           ProviderReplicate,
		Endpoint:           "bytedance/seedream-4",
		Name:               "Seedream 4",
		SupportsImageInput: true,
		ImageInputParam:    "image_input",
		ImageInputIsArray:  true,
	},
}

// staticVideoModels is the built-in video catalog.
var staticVideoModels = []*VideoModel{
	{
		ID:                 "kling-standard",
		Provider:           ProviderFal,
		Endpoint:           "fal-ai/kling-video/v1.6/standard/image-to-video",
		Name:               "Kling 1.6 Standard",
		SupportsImageInput: true,
		RequiresImageInput: true,
		SourceImageParam:   "image_url",
		SupportsDuration:   true,
	},
	{
		ID:                 "hailuo-02",
		Provider:           ProviderFal,
		Endpoint:           "fal-ai/minimax/hailuo-02/standard/image-to-video",
		Name:               "MiniMax Hailuo 02",
		SupportsImageInput: true,
		RequiresImageInput: true,
		SourceImageParam:   "image_url",
		SupportsDuration:   true,
		QualityParam:       "resolution",
		QualityTiers:       map[Tier]any{TierLow: "512P", TierMedium: "768P", TierHigh: "768P"},
	},
	{
		ID:                 "veo3-fast",
		Provider:           ProviderFal,
		Endpoint:           "fal-ai/veo3/fast/image-to-video",
		Name:               "Veo 3 Fast",
		SupportsImageInput: true,
		RequiresImageInput: true,
		SourceImageParam:   "image_url",
		SupportsDuration:   true,
		QualityParam:       "resolution",
		QualityTiers:       map[Tier]any{TierLow: "720p", TierMedium: "720p", TierHigh: "1080p"},
	},
	{
		ID:                 "wan-i2v",
		Provider:           ProviderReplicate,
		Endpoint:           "wan-video/wan-2.2-i2v-fast",
		Name:               "Wan 2.2 image-to-video",
		SupportsImageInput: true,
		RequiresImageInput: true,
		SourceImageParam:   "image",
		QualityParam:       "resolution",
		QualityTiers:       map[Tier]any{TierLow: "480p", TierMedium: "720p", TierHigh: "720p"},
		QualityOptions:     []string{"480p", "720p"},
	},
}
