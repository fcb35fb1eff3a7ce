package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/Gherucu/gloload/internal/logging"
	"github.com/Gherucu/gloload/internal/model"
)

// Features are the raw measurements an extractor takes from one file
type Features struct {
	// TempoCandidates holds tempo estimates in BPM, best first
	TempoCandidates []float64
	// Chroma is indexed [bin][frame]
	Chroma     [][]float64
	SampleRate int
}

// FeatureExtractor computes Features for an audio file
type FeatureExtractor interface {
	Extract(ctx context.Context, path string) (*Features, error)
}

// Analyzer turns extracted features into an AnalysisResult
type Analyzer struct {
	extractor FeatureExtractor
	logger    zerolog.Logger
}

// NewAnalyzer creates an analyzer backed by extractor
func NewAnalyzer(extractor FeatureExtractor) *Analyzer {
	return &Analyzer{
		extractor: extractor,
		logger:    logging.For("analysis"),
	}
}

// Analyze estimates tempo and key for the file at path. All failures are
// returned as model.ErrAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*model.AnalysisResult, error) {
	features, err := a.extractor.Extract(ctx, path)
	if err != nil {
		return nil, model.NewError(model.KindAnalysis, "extract features", err)
	}

	tempo, err := canonicalTempo(features.TempoCandidates)
	if err != nil {
		return nil, model.NewError(model.KindAnalysis, "estimate tempo", err)
	}

	profile, err := MeanProfile(features.Chroma)
	if err != nil {
		return nil, model.NewError(model.KindAnalysis, "estimate key", err)
	}
	key, err := DetectKey(profile)
	if err != nil {
		return nil, model.NewError(model.KindAnalysis, "estimate key", err)
	}

	result := &model.AnalysisResult{
		Path:  path,
		Tempo: tempo,
		BPM:   int(tempo),
		Key:   key,
	}
	a.logger.Debug().
		Str("path", path).
		Float64("tempo", tempo).
		Floats64("profile", profile).
		Str("key", key).
		Msg("analysis finished")
	return result, nil
}

// canonicalTempo returns the first candidate, which must be a positive
// finite number
func canonicalTempo(candidates []float64) (float64, error) {
	if len(candidates) == 0 {
		return 0, fmt.Errorf("no tempo detected")
	}
	tempo := candidates[0]
	if math.IsNaN(tempo) || math.IsInf(tempo, 0) || tempo <= 0 {
		return 0, fmt.Errorf("invalid tempo estimate %v", tempo)
	}
	return tempo, nil
}
