package voiceauth

import (
	"fmt"
	"strings"
	"time"
)

// LayoutVersion identifies the feature extraction procedure. It is stored
// with every vector; vectors produced by different versions are never
// scored against each other.
const LayoutVersion = 1

// Waveform is a mono audio buffer with float64 samples in [-1, 1].
// Capture-side collaborators are responsible for converting recordings to
// the engine's configured sample rate before constructing one.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the play time of the waveform.
func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// Quality is a bitmask of non-fatal observations made during extraction.
type Quality uint8

const (
	// QualityUnvoiced marks a vector whose pitch statistics are zero
	// because no analysis frame passed the voicing check.
	QualityUnvoiced Quality = 1 << iota

	// QualityNonFinite marks a vector in which NaN or infinite values
	// were replaced with zeros after extraction.
	QualityNonFinite
)

// Has reports whether flag is set.
func (q Quality) Has(flag Quality) bool {
	return q&flag != 0
}

func (q Quality) String() string {
	if q == 0 {
		return "ok"
	}
	var parts []string
	if q.Has(QualityUnvoiced) {
		parts = append(parts, "unvoiced")
	}
	if q.Has(QualityNonFinite) {
		parts = append(parts, "nonfinite")
	}
	return strings.Join(parts, ",")
}

// FeatureVector is the fixed-layout voice signature extracted from one
// waveform. The three sub-ranges concatenate, in order, to the full
// vector:
//
//	Cepstral: per-coefficient mean, std, min, max over all frames
//	Pitch:    mean and std of the per-frame pitch over voiced frames (Hz)
//	Spectral: average power, zero-crossing rate, spectral centroid (Hz)
//
// With the default configuration that is 52 + 2 + 3 = 57 values.
type FeatureVector struct {
	Version  int
	Cepstral []float64
	Pitch    []float64
	Spectral []float64
	Quality  Quality
}

// Dim returns the total number of values in the vector.
func (v FeatureVector) Dim() int {
	return len(v.Cepstral) + len(v.Pitch) + len(v.Spectral)
}

// Values returns the flattened vector in the fixed
// [cepstral][pitch][spectral] order.
func (v FeatureVector) Values() []float64 {
	out := make([]float64, 0, v.Dim())
	out = append(out, v.Cepstral...)
	out = append(out, v.Pitch...)
	out = append(out, v.Spectral...)
	return out
}

func (v FeatureVector) layout() string {
	return fmt.Sprintf("v%d[%d+%d+%d]", v.Version, len(v.Cepstral), len(v.Pitch), len(v.Spectral))
}

// sameLayout reports whether two vectors may be scored against each other.
func sameLayout(a, b FeatureVector) bool {
	return a.Version == b.Version &&
		len(a.Cepstral) == len(b.Cepstral) &&
		len(a.Pitch) == len(b.Pitch) &&
		len(a.Spectral) == len(b.Spectral)
}
