// Package voiceauth implements the voice authentication engine: feature
// extraction, liveness scoring and template matching over normalized PCM
// waveforms.
//
// # Architecture
//
// The engine exposes three pure operations:
//
//  1. Engine.Extract: 16 kHz mono waveform → 57-value FeatureVector
//  2. Engine.ScoreLiveness: waveform → LivenessScore in [0, 1]
//  3. Engine.Match: live vector vs enrolled template → MatchScore
//
// Engine.Authenticate runs the full decision policy: extraction, liveness
// and match are all computed, and access is granted only when the liveness
// and match scores both clear their thresholds. Liveness biases toward
// rejection: degenerate input (silence, saturated audio) scores 0, never
// an error.
//
// # Determinism and Concurrency
//
// All feature math is float64 regardless of the input sample width, and
// nothing is randomized: identical samples always produce identical
// vectors. An Engine is immutable after New. Every method is safe for
// concurrent use, performs no I/O and never blocks; callers wanting a
// timeout wrap the call externally.
package voiceauth

import (
	"fmt"

	"github.com/voicelock/voicelock/pkg/audio/mfcc"
)

// LivenessWeights sets the contribution of each liveness sub-score to the
// combined score. Weights should sum to 1.
type LivenessWeights struct {
	Flux         float64
	HighFreq     float64
	ZeroCross    float64
	DynamicRange float64
	NoiseFloor   float64
}

// Config collects every tunable of the engine. Use DefaultConfig as the
// starting point; the zero value is not a valid configuration.
type Config struct {
	// SampleRate is the only accepted waveform rate in Hz.
	SampleRate int

	// Analysis framing shared by the cepstral and pitch stages.
	WindowSize int // samples per frame (default 400 = 25 ms)
	HopSize    int // hop between frames (default 160 = 10 ms)

	// Cepstral front-end.
	FFTSize      int     // power of two >= WindowSize (default 512)
	NumFilters   int     // mel filters (default 26)
	NumCeps      int     // cepstral coefficients per frame (default 13)
	PreEmphasis  float64 // pre-emphasis coefficient (default 0.97)
	Lifter       int     // cepstral lifter parameter (default 22)
	AppendEnergy bool    // replace c0 with log frame energy (default true)

	// SilenceFloor is the peak amplitude below which a waveform counts
	// as silent.
	SilenceFloor float64

	// Pitch estimation.
	PitchMin         float64 // low edge of the voice band in Hz (default 80)
	PitchMax         float64 // high edge of the voice band in Hz (default 400)
	VoicingThreshold float64 // normalized autocorrelation floor for a voiced frame (default 0.3)

	// Liveness scoring.
	LivenessWindow int     // STFT frame length, power of two (default 256)
	LivenessHop    int     // STFT hop (default 128)
	HighFreqCutoff float64 // band split for the high-frequency ratio in Hz (default 4000)
	FluxScale      float64 // spectral flux normalization (default 0.01)
	HighFreqScale  float64 // high-frequency ratio gain (default 3)
	ZCRLow         float64 // low edge of the plausible speech zero-crossing band (default 0.02)
	ZCRHigh        float64 // high edge of the band (default 0.2)
	CrestScale     float64 // crest factor in dB earning full credit (default 15)
	SNRLow         float64 // loud/quiet frame energy gap in dB below which audio counts noisy (default 10)
	SNRHigh        float64 // gap above which audio counts implausibly clean (default 45)
	ClipLevel      float64 // |sample| at or above this counts as clipped (default 0.99)
	ClipFraction   float64 // clipped share that marks the signal saturated (default 0.1)
	Weights        LivenessWeights

	// Decision thresholds.
	LivenessThreshold float64 // minimum liveness score (default 0.5)
	MatchThreshold    float64 // minimum match score (default 0.7)
}

// DefaultConfig returns the reference policy: 16 kHz analysis, 13 cepstra
// over 26 mel filters, the 80–400 Hz pitch band, equally weighted liveness
// sub-scores and the 0.5 / 0.7 decision thresholds.
func DefaultConfig() Config {
	return Config{
		SampleRate:   16000,
		WindowSize:   400,
		HopSize:      160,
		FFTSize:      512,
		NumFilters:   26,
		NumCeps:      13,
		PreEmphasis:  0.97,
		Lifter:       22,
		AppendEnergy: true,

		SilenceFloor: 1e-5,

		PitchMin:         80,
		PitchMax:         400,
		VoicingThreshold: 0.3,

		LivenessWindow: 256,
		LivenessHop:    128,
		HighFreqCutoff: 4000,
		FluxScale:      0.01,
		HighFreqScale:  3,
		ZCRLow:         0.02,
		ZCRHigh:        0.2,
		CrestScale:     15,
		SNRLow:         10,
		SNRHigh:        45,
		ClipLevel:      0.99,
		ClipFraction:   0.1,
		Weights: LivenessWeights{
			Flux:         0.2,
			HighFreq:     0.2,
			ZeroCross:    0.2,
			DynamicRange: 0.2,
			NoiseFloor:   0.2,
		},

		LivenessThreshold: 0.5,
		MatchThreshold:    0.7,
	}
}

// Engine scores authentication attempts. It holds only read-only state
// derived from its Config.
type Engine struct {
	cfg       Config
	mfcc      *mfcc.Extractor
	livWindow []float64
}

// New creates an Engine from cfg. The configuration is validated once
// here; all later calls assume it is sound.
func New(cfg Config) (*Engine, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("voiceauth: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.WindowSize < 2 || cfg.HopSize < 1 {
		return nil, fmt.Errorf("voiceauth: invalid framing: window=%d hop=%d", cfg.WindowSize, cfg.HopSize)
	}
	if cfg.FFTSize < cfg.WindowSize || cfg.FFTSize&(cfg.FFTSize-1) != 0 {
		return nil, fmt.Errorf("voiceauth: fft size must be a power of two >= window size, got %d", cfg.FFTSize)
	}
	if cfg.NumFilters < 1 || cfg.NumCeps < 1 || cfg.NumCeps > cfg.NumFilters {
		return nil, fmt.Errorf("voiceauth: invalid filterbank: %d filters, %d cepstra", cfg.NumFilters, cfg.NumCeps)
	}
	if cfg.PitchMin <= 0 || cfg.PitchMax <= cfg.PitchMin || cfg.PitchMax > float64(cfg.SampleRate)/2 {
		return nil, fmt.Errorf("voiceauth: invalid pitch band %g–%g Hz", cfg.PitchMin, cfg.PitchMax)
	}
	if maxLag := int(float64(cfg.SampleRate) / cfg.PitchMin); maxLag >= cfg.WindowSize {
		return nil, fmt.Errorf("voiceauth: pitch band low edge %g Hz needs lag %d, window is only %d samples",
			cfg.PitchMin, maxLag, cfg.WindowSize)
	}
	if cfg.LivenessWindow < 2 || cfg.LivenessWindow&(cfg.LivenessWindow-1) != 0 || cfg.LivenessHop < 1 {
		return nil, fmt.Errorf("voiceauth: invalid liveness framing: window=%d hop=%d", cfg.LivenessWindow, cfg.LivenessHop)
	}
	if cfg.LivenessThreshold < 0 || cfg.LivenessThreshold > 1 || cfg.MatchThreshold < 0 || cfg.MatchThreshold > 1 {
		return nil, fmt.Errorf("voiceauth: thresholds must lie in [0,1]: liveness=%g match=%g",
			cfg.LivenessThreshold, cfg.MatchThreshold)
	}
	w := cfg.Weights
	if w.Flux < 0 || w.HighFreq < 0 || w.ZeroCross < 0 || w.DynamicRange < 0 || w.NoiseFloor < 0 ||
		w.Flux+w.HighFreq+w.ZeroCross+w.DynamicRange+w.NoiseFloor <= 0 {
		return nil, fmt.Errorf("voiceauth: liveness weights must be non-negative with a positive sum")
	}

	return &Engine{
		cfg: cfg,
		mfcc: mfcc.New(mfcc.Config{
			SampleRate:   cfg.SampleRate,
			WindowSize:   cfg.WindowSize,
			HopSize:      cfg.HopSize,
			FFTSize:      cfg.FFTSize,
			NumFilters:   cfg.NumFilters,
			NumCeps:      cfg.NumCeps,
			PreEmphasis:  cfg.PreEmphasis,
			Lifter:       cfg.Lifter,
			AppendEnergy: cfg.AppendEnergy,
		}),
		livWindow: mfcc.HammingWindow(cfg.LivenessWindow),
	}, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}
