package analysis

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"sort"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// NativeExtractor defaults
const (
	DefaultFrameSize     = 4096
	DefaultHopSize       = 512
	DefaultMinTempo      = 30.0
	DefaultMaxTempo      = 300.0
	DefaultPriorTempo    = 120.0
	DefaultPriorOctaves  = 1.0
	DefaultMinChromaFreq = 65.0
	DefaultMaxChromaFreq = 5000.0
	MaxTempoCandidates   = 5
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	decodeChunkFrames   = 8192
	logCompression      = 1000.0
	referenceFreq       = 440.0
	referenceMidi       = 69
	cancelCheckInterval = 256
)

// NativeExtractor computes features from WAV files in process. Tempo comes
// from the autocorrelation of a spectral flux onset envelope weighted by a
// log-normal prior; chroma folds STFT power into 12 pitch classes.
type NativeExtractor struct {
	FrameSize     int
	HopSize       int
	MinTempo      float64
	MaxTempo      float64
	PriorTempo    float64
	PriorOctaves  float64
	MinChromaFreq float64
	MaxChromaFreq float64
}

// NewNativeExtractor returns an extractor with default settings
func NewNativeExtractor() *NativeExtractor {
	return &NativeExtractor{
		FrameSize:     DefaultFrameSize,
		HopSize:       DefaultHopSize,
		MinTempo:      DefaultMinTempo,
		MaxTempo:      DefaultMaxTempo,
		PriorTempo:    DefaultPriorTempo,
		PriorOctaves:  DefaultPriorOctaves,
		MinChromaFreq: DefaultMinChromaFreq,
		MaxChromaFreq: DefaultMaxChromaFreq,
	}
}

// Extract decodes the WAV file at path at its native sample rate and
// computes tempo candidates and a 12-bin chroma matrix
func (e *NativeExtractor) Extract(ctx context.Context, path string) (*Features, error) {
	samples, sampleRate, err := DecodeMono(path)
	if err != nil {
		return nil, err
	}

	chroma, onset, err := e.analyze(ctx, samples, sampleRate)
	if err != nil {
		return nil, err
	}

	frameRate := float64(sampleRate) / float64(e.HopSize)
	return &Features{
		TempoCandidates: e.tempoCandidates(onset, frameRate),
		Chroma:          chroma,
		SampleRate:      sampleRate,
	}, nil
}

// DecodeMono reads a PCM WAV file and mixes it down to one channel scaled
// to [-1, 1]
func DecodeMono(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%s is not a valid WAV file", path)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, 0, fmt.Errorf("unsupported WAV encoding %d", d.WavAudioFormat)
	}

	channels := int(d.NumChans)
	sampleRate := int(d.SampleRate)
	bitDepth := int(d.BitDepth)
	if channels <= 0 || sampleRate <= 0 || bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("invalid WAV header: %d channels, %d Hz, %d bit", channels, sampleRate, bitDepth)
	}
	scale := 1 / float64(int64(1)<<(bitDepth-1))

	buf := &audio.IntBuffer{
		Format: d.Format(),
		Data:   make([]int, decodeChunkFrames*channels),
	}
	var mono []float32
	for {
		n, err := d.PCMBuffer(buf)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to decode audio: %w", err)
		}
		if n == 0 {
			break
		}
		for i := 0; i+channels <= n; i += channels {
			var sum int
			for c := 0; c < channels; c++ {
				sum += buf.Data[i+c]
			}
			mono = append(mono, float32(float64(sum)/float64(channels)*scale))
		}
	}
	if len(mono) == 0 {
		return nil, 0, fmt.Errorf("%s contains no audio samples", path)
	}
	return mono, sampleRate, nil
}

// analyze runs the STFT and returns the chroma matrix and onset envelope
func (e *NativeExtractor) analyze(ctx context.Context, samples []float32, sampleRate int) ([][]float64, []float64, error) {
	n := e.FrameSize
	hop := e.HopSize
	if n <= 0 || hop <= 0 {
		return nil, nil, fmt.Errorf("invalid frame size %d or hop size %d", n, hop)
	}

	frames := 1
	if len(samples) > n {
		frames = 1 + (len(samples)-n)/hop
	}

	hann := make([]float64, n)
	for i := range hann {
		hann[i] = 1
	}
	hann = window.Hann(hann)

	pitchClass := e.pitchClasses(n, sampleRate)
	fft := fourier.NewFFT(n)

	chroma := make([][]float64, PitchClasses)
	for pc := range chroma {
		chroma[pc] = make([]float64, frames)
	}
	onset := make([]float64, frames)

	seq := make([]float64, n)
	coeffs := make([]complex128, n/2+1)
	prev := make([]float64, n/2+1)
	cur := make([]float64, n/2+1)

	for t := 0; t < frames; t++ {
		if t%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		start := t * hop
		for i := range seq {
			var v float64
			if idx := start + i; idx < len(samples) {
				v = float64(samples[idx])
			}
			seq[i] = v * hann[i]
		}
		coeffs = fft.Coefficients(coeffs, seq)

		var flux float64
		for k, c := range coeffs {
			mag := cmplx.Abs(c)
			cur[k] = math.Log1p(logCompression * mag)
			if t > 0 {
				if d := cur[k] - prev[k]; d > 0 {
					flux += d
				}
			}
			if pc := pitchClass[k]; pc >= 0 {
				chroma[pc][t] += mag * mag
			}
		}
		onset[t] = flux

		var peak float64
		for pc := range chroma {
			peak = math.Max(peak, chroma[pc][t])
		}
		if peak > 0 {
			for pc := range chroma {
				chroma[pc][t] /= peak
			}
		}

		prev, cur = cur, prev
	}

	return chroma, onset, nil
}

// pitchClasses maps each FFT bin to a pitch class (C = 0), or -1 for bins
// outside the chroma frequency range
func (e *NativeExtractor) pitchClasses(n, sampleRate int) []int {
	classes := make([]int, n/2+1)
	for k := range classes {
		freq := float64(k) * float64(sampleRate) / float64(n)
		if freq < e.MinChromaFreq || freq > e.MaxChromaFreq {
			classes[k] = -1
			continue
		}
		midi := int(math.Round(referenceMidi + PitchClasses*math.Log2(freq/referenceFreq)))
		classes[k] = ((midi % PitchClasses) + PitchClasses) % PitchClasses
	}
	return classes
}

type tempoPeak struct {
	bpm   float64
	score float64
}

// tempoCandidates autocorrelates the onset envelope over the lags of the
// allowed tempo range and returns the local maxima, strongest first
func (e *NativeExtractor) tempoCandidates(onset []float64, frameRate float64) []float64 {
	if len(onset) < 3 || frameRate <= 0 {
		return nil
	}

	var mean float64
	for _, v := range onset {
		mean += v
	}
	mean /= float64(len(onset))
	x := make([]float64, len(onset))
	for i, v := range onset {
		x[i] = v - mean
	}

	minLag := int(math.Floor(60 * frameRate / e.MaxTempo))
	if minLag < 1 {
		minLag = 1
	}
	maxLag := int(math.Ceil(60 * frameRate / e.MinTempo))
	if maxLag > len(x)-2 {
		maxLag = len(x) - 2
	}
	if maxLag <= minLag {
		return nil
	}

	score := make([]float64, maxLag+2)
	for lag := 1; lag < len(score); lag++ {
		var ac float64
		for i := 0; i+lag < len(x); i++ {
			ac += x[i] * x[i+lag]
		}
		score[lag] = ac * e.prior(60*frameRate/float64(lag))
	}

	var peaks []tempoPeak
	for lag := minLag; lag <= maxLag; lag++ {
		s := score[lag]
		if s <= 0 || s < score[lag-1] || s <= score[lag+1] {
			continue
		}
		refined := float64(lag) + parabolicOffset(score[lag-1], s, score[lag+1])
		peaks = append(peaks, tempoPeak{bpm: 60 * frameRate / refined, score: s})
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].score > peaks[j].score
	})
	if len(peaks) > MaxTempoCandidates {
		peaks = peaks[:MaxTempoCandidates]
	}

	candidates := make([]float64, len(peaks))
	for i, p := range peaks {
		candidates[i] = p.bpm
	}
	return candidates
}

// prior weights a tempo by a log-normal distribution around PriorTempo
func (e *NativeExtractor) prior(bpm float64) float64 {
	if bpm <= 0 || e.PriorOctaves <= 0 {
		return 1
	}
	z := math.Log2(bpm/e.PriorTempo) / e.PriorOctaves
	return math.Exp(-0.5 * z * z)
}

// parabolicOffset returns the sub-sample offset of the vertex of the
// parabola through three equally spaced points, limited to half a step
func parabolicOffset(left, center, right float64) float64 {
	denom := left - 2*center + right
	if denom == 0 {
		return 0
	}
	offset := 0.5 * (left - right) / denom
	return math.Max(-0.5, math.Min(0.5, offset))
}
