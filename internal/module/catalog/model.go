// Package catalog holds the static and dynamically-resolved catalog of
// image and video generation targets.
package catalog

// Provider identifies the vendor an endpoint is invoked through.
type Provider string

const (
	ProviderFal       Provider = "fal"
	ProviderReplicate Provider = "replicate"
)

// Tier is the quality abstraction over provider-native values.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// ImageModel describes an image generation target.
type ImageModel struct {
	ID       string   `json:"id"`
	Provider Provider `json:"provider"`
	Endpoint string   `json:"endpoint"`
	Name     string   `json:"name"`

	SupportsImageInput bool `json:"supports_image_input"`
	// RequiresImageInput marks edit-style endpoints that must never be
	// invoked without a reference image.
	RequiresImageInput bool `json:"requires_image_input"`

	ImageInputParam   string `json:"image_input_param,omitempty"`
	ImageInputIsArray bool   `json:"image_input_is_array,omitempty"`
}

// VideoModel describes a video generation target.
type VideoModel struct {
	ID       string   `json:"id"`
	Provider Provider `json:"provider"`
	Endpoint string   `json:"endpoint"`
	Name     string   `json:"name"`

	SupportsImageInput bool `json:"supports_image_input"`
	RequiresImageInput bool `json:"requires_image_input"`

	// SourceImageParam is the provider input key for the source frame.
	// Empty means the generic "image_url" key.
	SourceImageParam string `json:"source_image_param,omitempty"`
	SupportsDuration bool   `json:"supports_duration,omitempty"`

	// QualityParam is the provider input key the resolved quality value
	// is sent under. Empty means the model has no quality control.
	QualityParam string `json:"quality_param,omitempty"`
	// QualityTiers maps named tiers to provider-native values.
	QualityTiers map[Tier]any `json:"quality_tiers,omitempty"`
	// QualityOptions lists valid raw provider values, when known.
	QualityOptions []string `json:"quality_options,omitempty"`
}
