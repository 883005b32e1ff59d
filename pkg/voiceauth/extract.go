package voiceauth

import (
	"fmt"
	"math"

	"github.com/voicelock/voicelock/pkg/audio/mfcc"
)

// Extract computes the feature vector for a waveform.
//
// The waveform is peak-normalized, split into overlapping frames and run
// through the cepstral front-end; per-coefficient mean, std, min and max
// across frames form the cepstral block. Pitch is estimated per frame by
// autocorrelation inside the configured voice band, with mean and std
// taken over voiced frames only; when no frame is voiced both values are
// zero and the vector carries QualityUnvoiced. Average power,
// zero-crossing rate and spectral centroid of the whole signal complete
// the vector.
func (e *Engine) Extract(w Waveform) (FeatureVector, error) {
	cfg := e.cfg
	if w.SampleRate != cfg.SampleRate {
		return FeatureVector{}, fmt.Errorf("%w: waveform is %d Hz, engine expects %d Hz",
			ErrInvalidSampleRate, w.SampleRate, cfg.SampleRate)
	}
	n := len(w.Samples)
	if n < cfg.WindowSize {
		return FeatureVector{}, fmt.Errorf("%w: %d samples, need at least %d (one analysis window)",
			ErrInsufficientSignal, n, cfg.WindowSize)
	}
	peak := peakAbs(w.Samples)
	if peak < cfg.SilenceFloor {
		return FeatureVector{}, fmt.Errorf("%w: peak amplitude %.3g below silence floor %.3g",
			ErrInsufficientSignal, peak, cfg.SilenceFloor)
	}

	// Peak normalization into a scratch copy; inputs are never mutated.
	samples := make([]float64, n)
	scale := 1 / peak
	for i, s := range w.Samples {
		samples[i] = s * scale
	}

	frames := e.mfcc.Extract(samples)

	var quality Quality
	pitchMean, pitchStd, voiced := e.pitchStats(samples)
	if !voiced {
		quality |= QualityUnvoiced
	}

	v := FeatureVector{
		Version:  LayoutVersion,
		Cepstral: cepstralStats(frames),
		Pitch:    []float64{pitchMean, pitchStd},
		Spectral: []float64{
			averagePower(samples),
			zeroCrossingRate(samples),
			e.spectralCentroid(samples),
		},
		Quality: quality,
	}
	if v.sanitize() {
		v.Quality |= QualityNonFinite
	}
	return v, nil
}

// cepstralStats reduces per-frame cepstra to per-coefficient summary
// statistics, laid out as [means][stds][mins][maxs].
func cepstralStats(frames [][]float64) []float64 {
	numCeps := len(frames[0])
	out := make([]float64, 4*numCeps)
	means := out[:numCeps]
	stds := out[numCeps : 2*numCeps]
	mins := out[2*numCeps : 3*numCeps]
	maxs := out[3*numCeps:]

	T := float64(len(frames))
	for k := 0; k < numCeps; k++ {
		sum := 0.0
		mn, mx := math.Inf(1), math.Inf(-1)
		for _, f := range frames {
			v := f[k]
			sum += v
			if v < mn {
				mn = v
			}
			if v > mx {
				mx = v
			}
		}
		mean := sum / T

		var varSum float64
		for _, f := range frames {
			d := f[k] - mean
			varSum += d * d
		}

		means[k] = mean
		stds[k] = math.Sqrt(varSum / T)
		mins[k] = mn
		maxs[k] = mx
	}
	return out
}

// pitchStats estimates the fundamental frequency per analysis frame and
// reduces the voiced frames to mean and std. voiced is false when no
// frame passed the voicing check.
func (e *Engine) pitchStats(samples []float64) (mean, std float64, voiced bool) {
	cfg := e.cfg
	minLag := int(float64(cfg.SampleRate) / cfg.PitchMax)
	maxLag := int(float64(cfg.SampleRate) / cfg.PitchMin)
	if minLag < 1 {
		minLag = 1
	}

	var pitches []float64
	for start := 0; start+cfg.WindowSize <= len(samples); start += cfg.HopSize {
		frame := samples[start : start+cfg.WindowSize]
		if f0, ok := e.framePitch(frame, minLag, maxLag); ok {
			pitches = append(pitches, f0)
		}
	}
	if len(pitches) == 0 {
		return 0, 0, false
	}

	var sum float64
	for _, p := range pitches {
		sum += p
	}
	mean = sum / float64(len(pitches))

	var varSum float64
	for _, p := range pitches {
		d := p - mean
		varSum += d * d
	}
	std = math.Sqrt(varSum / float64(len(pitches)))
	return mean, std, true
}

// framePitch scans the frame's autocorrelation for a peak inside the
// pitch lag band. The frame is voiced when the peak, normalized by the
// zero-lag energy, clears the voicing threshold.
func (e *Engine) framePitch(frame []float64, minLag, maxLag int) (float64, bool) {
	var r0 float64
	for _, s := range frame {
		r0 += s * s
	}
	if r0 <= 0 {
		return 0, false
	}

	bestLag := 0
	bestR := math.Inf(-1)
	for lag := minLag; lag < maxLag && lag < len(frame); lag++ {
		var r float64
		for i := 0; i+lag < len(frame); i++ {
			r += frame[i] * frame[i+lag]
		}
		if r > bestR {
			bestR = r
			bestLag = lag
		}
	}
	if bestLag == 0 || bestR/r0 < e.cfg.VoicingThreshold {
		return 0, false
	}
	return float64(e.cfg.SampleRate) / float64(bestLag), true
}

// spectralCentroid returns the magnitude-weighted mean frequency of the
// whole signal, via a zero-padded FFT. The signal is windowed first: the
// padding otherwise acts as a rectangular window whose sidelobes carry
// enough mass to skew the weighted mean for tonal input.
func (e *Engine) spectralCentroid(samples []float64) float64 {
	m := mfcc.NextPow2(len(samples))
	win := mfcc.HammingWindow(len(samples))
	real := make([]float64, m)
	imag := make([]float64, m)
	for i, s := range samples {
		real[i] = s * win[i]
	}
	mfcc.FFT(real, imag)

	binHz := float64(e.cfg.SampleRate) / float64(m)
	var num, den float64
	for k := 0; k <= m/2; k++ {
		mag := math.Hypot(real[k], imag[k])
		num += float64(k) * binHz * mag
		den += mag
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// averagePower returns the mean squared amplitude.
func averagePower(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return sum / float64(len(samples))
}

// zeroCrossingRate returns the sign-change rate over the signal.
func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	prev := sign(samples[0])
	for _, s := range samples[1:] {
		cur := sign(s)
		sum += math.Abs(cur - prev)
		prev = cur
	}
	return sum / (2 * float64(len(samples)))
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func peakAbs(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// sanitize replaces non-finite values with zeros in place and reports
// whether any were found.
func (v *FeatureVector) sanitize() bool {
	dirty := false
	for _, part := range [][]float64{v.Cepstral, v.Pitch, v.Spectral} {
		for i, x := range part {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				part[i] = 0
				dirty = true
			}
		}
	}
	return dirty
}
