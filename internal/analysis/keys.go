package analysis

import (
	"fmt"
	"math"
)

// PitchClasses is the number of chroma bins per octave
const PitchClasses = 12

// KeyLabels is the fixed key order used by DetectKey. A 12-bin profile
// indexes the major half only.
var KeyLabels = [2 * PitchClasses]string{
	"C Major", "C# Major", "D Major", "D# Major", "E Major", "F Major",
	"F# Major", "G Major", "G# Major", "A Major", "A# Major", "B Major",
	"C Minor", "C# Minor", "D Minor", "D# Minor", "E Minor", "F Minor",
	"F# Minor", "G Minor", "G# Minor", "A Minor", "A# Minor", "B Minor",
}

// MeanProfile averages a chroma matrix (bins × frames) across time
func MeanProfile(chroma [][]float64) ([]float64, error) {
	if len(chroma) == 0 {
		return nil, fmt.Errorf("empty chroma matrix")
	}
	profile := make([]float64, len(chroma))
	for bin, frames := range chroma {
		if len(frames) == 0 {
			return nil, fmt.Errorf("chroma bin %d has no frames", bin)
		}
		var sum float64
		for _, v := range frames {
			sum += v
		}
		profile[bin] = sum / float64(len(frames))
	}
	return profile, nil
}

// DetectKey returns the label of the strongest bin in profile. Ties go to
// the lower index. The profile must have 12 or 24 bins.
func DetectKey(profile []float64) (string, error) {
	if len(profile) != PitchClasses && len(profile) != len(KeyLabels) {
		return "", fmt.Errorf("chroma profile has %d bins, want %d or %d", len(profile), PitchClasses, len(KeyLabels))
	}

	best := -1
	for i, v := range profile {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > profile[best] {
			best = i
		}
	}
	if best < 0 {
		return "", fmt.Errorf("chroma profile has no usable values")
	}
	return KeyLabels[best], nil
}
