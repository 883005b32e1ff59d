package voiceauth

import (
	"math"
	"sort"

	"github.com/voicelock/voicelock/pkg/audio/mfcc"
)

// LivenessScore is the anti-replay verdict for one waveform: the combined
// score plus the five sub-scores behind it, each in [0, 1].
type LivenessScore struct {
	Score        float64
	Flux         float64
	HighFreq     float64
	ZeroCross    float64
	DynamicRange float64
	NoiseFloor   float64
}

// Pass reports whether the combined score clears threshold.
func (s LivenessScore) Pass(threshold float64) bool {
	return s.Score >= threshold
}

// ScoreLiveness rates how plausibly the waveform is a live human
// utterance rather than replayed or synthesized audio. It never fails:
// degenerate input (pure silence, saturated signal) scores 0 across the
// board, biasing the security gate toward rejection.
func (e *Engine) ScoreLiveness(w Waveform) LivenessScore {
	cfg := e.cfg
	n := len(w.Samples)
	if n == 0 {
		return LivenessScore{}
	}
	peak := peakAbs(w.Samples)
	if peak < cfg.SilenceFloor || e.saturated(w.Samples) {
		return LivenessScore{}
	}

	// Peak normalization, as in extraction.
	samples := make([]float64, n)
	scale := 1 / peak
	for i, s := range w.Samples {
		samples[i] = s * scale
	}

	spectra := e.livenessSpectra(samples)

	s := LivenessScore{
		Flux:         e.fluxScore(spectra),
		HighFreq:     e.highFreqScore(spectra),
		ZeroCross:    e.zcrScore(samples),
		DynamicRange: e.crestScore(samples),
		NoiseFloor:   e.noiseFloorScore(samples),
	}
	wts := cfg.Weights
	s.Score = clamp01(wts.Flux*s.Flux +
		wts.HighFreq*s.HighFreq +
		wts.ZeroCross*s.ZeroCross +
		wts.DynamicRange*s.DynamicRange +
		wts.NoiseFloor*s.NoiseFloor)
	return s
}

// saturated reports whether the clipped-sample share exceeds the limit.
func (e *Engine) saturated(samples []float64) bool {
	clipped := 0
	for _, s := range samples {
		if math.Abs(s) >= e.cfg.ClipLevel {
			clipped++
		}
	}
	return float64(clipped) >= e.cfg.ClipFraction*float64(len(samples))
}

// livenessSpectra computes windowed magnitude spectra over the liveness
// framing, normalized by the window sum.
func (e *Engine) livenessSpectra(samples []float64) [][]float64 {
	cfg := e.cfg
	size := cfg.LivenessWindow
	if len(samples) < size {
		return nil
	}
	var winSum float64
	for _, w := range e.livWindow {
		winSum += w
	}

	half := size/2 + 1
	numFrames := (len(samples)-size)/cfg.LivenessHop + 1
	spectra := make([][]float64, numFrames)

	real := make([]float64, size)
	imag := make([]float64, size)
	for t := 0; t < numFrames; t++ {
		start := t * cfg.LivenessHop
		for i := 0; i < size; i++ {
			real[i] = samples[start+i] * e.livWindow[i]
		}
		for i := range imag {
			imag[i] = 0
		}
		mfcc.FFT(real, imag)

		mags := make([]float64, half)
		for k := 0; k < half; k++ {
			mags[k] = math.Hypot(real[k], imag[k]) / winSum
		}
		spectra[t] = mags
	}
	return spectra
}

// fluxScore rates frame-to-frame spectral change. A static spectrum, the
// signature of looped or synthetic playback, scores low.
func (e *Engine) fluxScore(spectra [][]float64) float64 {
	if len(spectra) < 2 {
		return 0.5
	}
	var total float64
	for t := 1; t < len(spectra); t++ {
		var f float64
		for k := range spectra[t] {
			d := spectra[t][k] - spectra[t-1][k]
			f += d * d
		}
		total += f
	}
	avg := total / float64(len(spectra)-1)
	return clamp01(avg * e.cfg.FluxScale)
}

// highFreqScore rates the energy share above the cutoff frequency.
// Replay through lossy codecs or small speakers under-represents high
// frequencies relative to live capture.
func (e *Engine) highFreqScore(spectra [][]float64) float64 {
	cfg := e.cfg
	split := int(math.Round(cfg.HighFreqCutoff * float64(cfg.LivenessWindow) / float64(cfg.SampleRate)))

	var low, high float64
	for _, mags := range spectra {
		for k, m := range mags {
			p := m * m
			if k < split {
				low += p
			} else {
				high += p
			}
		}
	}
	if low+high == 0 {
		return 0
	}
	return clamp01(high / (low + high) * cfg.HighFreqScale)
}

// zcrScore checks that the zero-crossing rate falls in the band plausible
// for human speech; near-constant drones and noise-dominated signals land
// outside the band and score low.
func (e *Engine) zcrScore(samples []float64) float64 {
	z := zeroCrossingRate(samples)
	lo, hi := e.cfg.ZCRLow, e.cfg.ZCRHigh
	switch {
	case z <= 0:
		return 0
	case z < lo:
		return z / lo
	case z <= hi:
		return 1
	default:
		return math.Max(0, 1-(z-hi)/hi)
	}
}

// crestScore rates the peak-to-RMS ratio in dB. Compressed or loudness-
// normalized playback flattens the crest factor and scores low.
func (e *Engine) crestScore(samples []float64) float64 {
	rms := math.Sqrt(averagePower(samples))
	if rms <= 0 {
		return 0
	}
	crestDB := 20 * math.Log10(peakAbs(samples)/rms)
	if crestDB < 0 {
		crestDB = 0
	}
	return clamp01(crestDB / e.cfg.CrestScale)
}

// noiseFloorScore compares the loudest and quietest deciles of the frame
// energies. Natural speech shows a clear gap between voiced segments and
// pauses; a tiny gap means drone or steady noise, an enormous one means
// studio-processed audio with an implausibly clean floor.
func (e *Engine) noiseFloorScore(samples []float64) float64 {
	cfg := e.cfg
	size, hop := cfg.LivenessWindow, cfg.LivenessHop

	var energies []float64
	for start := 0; start+size <= len(samples); start += hop {
		energies = append(energies, averagePower(samples[start:start+size]))
	}
	if len(energies) < 10 {
		return 0.5
	}
	sort.Float64s(energies)

	k := len(energies) / 10
	var quiet, loud float64
	for i := 0; i < k; i++ {
		quiet += energies[i]
		loud += energies[len(energies)-1-i]
	}
	quiet /= float64(k)
	loud /= float64(k)

	snrDB := 10 * math.Log10(loud/(quiet+1e-10))
	lo, hi := cfg.SNRLow, cfg.SNRHigh
	switch {
	case snrDB <= 0:
		return 0
	case snrDB < lo:
		return snrDB / lo
	case snrDB <= hi:
		return 1
	default:
		return math.Max(0, 1-(snrDB-hi)/hi)
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
