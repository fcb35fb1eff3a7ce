package analysis

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Gherucu/gloload/internal/logging"
)

// FallbackExtractor uses primary and switches to fallback when primary
// fails, for example when Python or librosa is not installed.
type FallbackExtractor struct {
	primary  FeatureExtractor
	fallback FeatureExtractor
	logger   zerolog.Logger
}

// NewFallbackExtractor chains primary and fallback
func NewFallbackExtractor(primary, fallback FeatureExtractor) *FallbackExtractor {
	return &FallbackExtractor{
		primary:  primary,
		fallback: fallback,
		logger:   logging.For("analysis"),
	}
}

// Extract implements FeatureExtractor. A cancelled context is not retried.
func (f *FallbackExtractor) Extract(ctx context.Context, path string) (*Features, error) {
	features, err := f.primary.Extract(ctx, path)
	if err == nil {
		return features, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	f.logger.Warn().Err(err).Str("path", path).Msg("primary extractor failed, using native estimator")
	features, fallbackErr := f.fallback.Extract(ctx, path)
	if fallbackErr != nil {
		return nil, errors.Join(err, fallbackErr)
	}
	return features, nil
}
