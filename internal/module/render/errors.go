package render

import "errors"

// Module errors.
var (
	ErrJobNotFound    = errors.New("render job not found")
	ErrJobNotComplete = errors.New("render job is not complete")
	ErrEmptyTimeline  = errors.New("resolved timeline has no entries")
	ErrInvalidQuality = errors.New("invalid render quality")
)
