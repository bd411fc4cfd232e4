package shot

import "errors"

// Module errors.
var (
	ErrShotNotFound       = errors.New("shot not found")
	ErrInvalidTransition  = errors.New("invalid shot status transition")
	ErrGenerationInFlight = errors.New("shot already has a generation in flight")
	ErrNotGenerating      = errors.New("shot has no generation in flight")
	ErrNoGeneratedImage   = errors.New("shot has no generated image")
	ErrNoSourceImage      = errors.New("shot has no image to enhance")
	ErrUnknownModel       = errors.New("unknown generation model")
)
