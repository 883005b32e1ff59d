// Package mfcc computes mel-frequency cepstral coefficients from PCM audio.
//
// This is the classic front-end for speaker characterization: per frame,
// the power spectrum is mapped onto a mel filterbank, log-compressed and
// decorrelated with a DCT-II, keeping the first NumCeps coefficients.
//
// Default parameters match the common 16 kHz speech convention:
//
//	SampleRate:  16000
//	WindowSize:  400 (25 ms)
//	HopSize:     160 (10 ms)
//	FFTSize:     512
//	NumFilters:  26
//	NumCeps:     13
//	LowFreq:     0
//	HighFreq:    8000 (Nyquist)
//	PreEmphasis: 0.97
//	Lifter:      22
package mfcc

import (
	"math"
)

// logFloor guards log() against zero energies.
const logFloor = 1e-10

// Config controls cepstral extraction parameters.
type Config struct {
	SampleRate   int     // audio sample rate in Hz (default 16000)
	WindowSize   int     // window length in samples (default 400 = 25ms)
	HopSize      int     // hop length in samples (default 160 = 10ms)
	FFTSize      int     // FFT size (default 512)
	NumFilters   int     // number of mel filters (default 26)
	NumCeps      int     // cepstral coefficients kept per frame (default 13)
	LowFreq      float64 // lowest mel frequency (default 0)
	HighFreq     float64 // highest mel frequency (0 means Nyquist)
	PreEmphasis  float64 // pre-emphasis coefficient (default 0.97)
	Lifter       int     // cepstral lifter parameter (default 22, 0 disables)
	AppendEnergy bool    // replace c0 with log total frame energy
}

// DefaultConfig returns the standard 16 kHz speech configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:   16000,
		WindowSize:   400,
		HopSize:      160,
		FFTSize:      512,
		NumFilters:   26,
		NumCeps:      13,
		LowFreq:      0,
		HighFreq:     0,
		PreEmphasis:  0.97,
		Lifter:       22,
		AppendEnergy: true,
	}
}

// Extractor computes cepstral features from PCM samples.
type Extractor struct {
	cfg      Config
	window   []float64   // Hamming window
	melBank  [][]float64 // [NumFilters][halfFFT]
	dctBasis [][]float64 // [NumCeps][NumFilters], orthonormal DCT-II
	lifter   []float64
}

// New creates a new Extractor with the given config.
func New(cfg Config) *Extractor {
	if cfg.HighFreq <= 0 {
		cfg.HighFreq = float64(cfg.SampleRate) / 2
	}
	e := &Extractor{cfg: cfg}
	e.window = HammingWindow(cfg.WindowSize)
	e.melBank = melFilterBank(cfg.NumFilters, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq)
	e.dctBasis = dctBasis(cfg.NumCeps, cfg.NumFilters)
	e.lifter = lifterWeights(cfg.NumCeps, cfg.Lifter)
	return e
}

// NumCeps returns the number of coefficients per frame.
func (e *Extractor) NumCeps() int {
	return e.cfg.NumCeps
}

// Extract computes cepstral features from float64 samples in [-1, 1].
// Pre-emphasis is applied across the whole signal before framing.
// Output: [T][NumCeps] matrix where T = (len(samples) - WindowSize) / HopSize + 1.
// Returns nil when the input is shorter than one window.
func (e *Extractor) Extract(samples []float64) [][]float64 {
	cfg := e.cfg
	n := len(samples)
	if n < cfg.WindowSize {
		return nil
	}

	// Whole-signal pre-emphasis
	emphasized := make([]float64, n)
	emphasized[0] = samples[0]
	for i := 1; i < n; i++ {
		emphasized[i] = samples[i] - cfg.PreEmphasis*samples[i-1]
	}

	numFrames := (n-cfg.WindowSize)/cfg.HopSize + 1
	nfft := cfg.FFTSize
	halfFFT := nfft/2 + 1

	features := make([][]float64, numFrames)

	// Working buffers
	real := make([]float64, nfft)
	imag := make([]float64, nfft)
	power := make([]float64, halfFFT)
	logMel := make([]float64, cfg.NumFilters)

	for t := 0; t < numFrames; t++ {
		start := t * cfg.HopSize

		// Windowing + zero-padding
		for i := 0; i < cfg.WindowSize; i++ {
			real[i] = emphasized[start+i] * e.window[i]
		}
		for i := cfg.WindowSize; i < nfft; i++ {
			real[i] = 0
		}
		for i := range imag {
			imag[i] = 0
		}
		FFT(real, imag)

		// Power spectrum and total frame energy
		frameEnergy := 0.0
		for i := 0; i < halfFFT; i++ {
			power[i] = (real[i]*real[i] + imag[i]*imag[i]) / float64(nfft)
			frameEnergy += power[i]
		}

		// Log mel filterbank energies
		for m := 0; m < cfg.NumFilters; m++ {
			sum := 0.0
			for k, w := range e.melBank[m] {
				sum += w * power[k]
			}
			if sum < logFloor {
				sum = logFloor
			}
			logMel[m] = math.Log(sum)
		}

		// DCT-II with cepstral liftering
		ceps := make([]float64, cfg.NumCeps)
		for k := 0; k < cfg.NumCeps; k++ {
			sum := 0.0
			for m, b := range e.dctBasis[k] {
				sum += b * logMel[m]
			}
			ceps[k] = sum * e.lifter[k]
		}
		if cfg.AppendEnergy {
			if frameEnergy < logFloor {
				frameEnergy = logFloor
			}
			ceps[0] = math.Log(frameEnergy)
		}
		features[t] = ceps
	}

	return features
}

// dctBasis precomputes the orthonormal DCT-II basis matrix [numCeps][numFilters].
func dctBasis(numCeps, numFilters int) [][]float64 {
	basis := make([][]float64, numCeps)
	scale := math.Sqrt(2.0 / float64(numFilters))
	for k := range basis {
		row := make([]float64, numFilters)
		for m := range row {
			row[m] = scale * math.Cos(math.Pi*float64(k)*(2*float64(m)+1)/(2*float64(numFilters)))
		}
		if k == 0 {
			for m := range row {
				row[m] /= math.Sqrt2
			}
		}
		basis[k] = row
	}
	return basis
}

// lifterWeights precomputes cepstral lifter coefficients
// 1 + (L/2)*sin(pi*k/L). L <= 0 disables liftering.
func lifterWeights(numCeps, l int) []float64 {
	w := make([]float64, numCeps)
	for k := range w {
		if l > 0 {
			w[k] = 1 + float64(l)/2*math.Sin(math.Pi*float64(k)/float64(l))
		} else {
			w[k] = 1
		}
	}
	return w
}
