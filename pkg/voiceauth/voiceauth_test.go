package voiceauth

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

const testRate = 16000

func wave(samples []float64) Waveform {
	return Waveform{Samples: samples, SampleRate: testRate}
}

func sineWave(freq, amp, seconds float64) []float64 {
	n := int(seconds * testRate)
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return out
}

// harmonicVoice builds a deterministic vowel-like signal: a stack of
// harmonics of f0 with the given relative amplitudes, under a slow
// amplitude modulation that mimics syllable energy, scaled to peak.
func harmonicVoice(f0 float64, amps []float64, seconds, peak float64) []float64 {
	n := int(seconds * testRate)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / testRate
		var s float64
		for h, a := range amps {
			s += a * math.Sin(2*math.Pi*f0*float64(h+1)*t)
		}
		out[i] = s * (0.75 + 0.25*math.Sin(2*math.Pi*2.5*t))
	}
	max := peakAbs(out)
	for i := range out {
		out[i] *= peak / max
	}
	return out
}

// speakerLow is a dark voice: 110 Hz fundamental, energy falling off
// fast with harmonic number, nothing above 660 Hz.
func speakerLow(seconds float64) []float64 {
	return harmonicVoice(110, []float64{1, 0.5, 0.25, 0.12, 0.06, 0.03}, seconds, 0.8)
}

// speakerHigh is a bright voice: 270 Hz fundamental with a steep upward
// spectral tilt, strongest near 3.8 kHz.
func speakerHigh(seconds float64) []float64 {
	amps := make([]float64, 14)
	for h := range amps {
		k := float64(h + 1)
		amps[h] = 0.1 * k * k
	}
	return harmonicVoice(270, amps, seconds, 0.8)
}

func whiteNoise(seconds float64) []float64 {
	rng := rand.New(rand.NewPCG(7, 1862))
	n := int(seconds * testRate)
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*1.6 - 0.8
	}
	return out
}

func newTestEngine(t testing.TB) *Engine {
	t.Helper()
	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestExtractVectorShape(t *testing.T) {
	e := newTestEngine(t)

	v, err := e.Extract(wave(speakerLow(3)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if v.Version != LayoutVersion {
		t.Errorf("version = %d, want %d", v.Version, LayoutVersion)
	}
	if len(v.Cepstral) != 52 || len(v.Pitch) != 2 || len(v.Spectral) != 3 {
		t.Fatalf("layout = %d+%d+%d, want 52+2+3",
			len(v.Cepstral), len(v.Pitch), len(v.Spectral))
	}
	if v.Dim() != 57 {
		t.Errorf("Dim = %d, want 57", v.Dim())
	}

	vals := v.Values()
	if len(vals) != 57 {
		t.Fatalf("Values length = %d, want 57", len(vals))
	}
	for i, x := range vals {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Fatalf("Values[%d] = %v, want finite", i, x)
		}
	}
	// Concatenation order is cepstral, pitch, spectral.
	if vals[52] != v.Pitch[0] || vals[54] != v.Spectral[0] || vals[56] != v.Spectral[2] {
		t.Error("Values does not concatenate cepstral, pitch, spectral in order")
	}
	if v.Quality.Has(QualityNonFinite) {
		t.Errorf("quality = %v, clean input should not be flagged non-finite", v.Quality)
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := newTestEngine(t)
	w := wave(speakerLow(2))

	a, err := e.Extract(w)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	b, err := e.Extract(w)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	av, bv := a.Values(), b.Values()
	for i := range av {
		if av[i] != bv[i] {
			t.Fatalf("Values[%d] differs between runs: %v vs %v", i, av[i], bv[i])
		}
	}
}

func TestExtractAmplitudeInvariance(t *testing.T) {
	e := newTestEngine(t)

	loud := speakerLow(2)
	quiet := make([]float64, len(loud))
	for i, s := range loud {
		quiet[i] = s * 0.5
	}

	a, err := e.Extract(wave(loud))
	if err != nil {
		t.Fatalf("Extract(loud) failed: %v", err)
	}
	b, err := e.Extract(wave(quiet))
	if err != nil {
		t.Fatalf("Extract(quiet) failed: %v", err)
	}
	av, bv := a.Values(), b.Values()
	for i := range av {
		if av[i] != bv[i] {
			t.Fatalf("Values[%d]: loud %v vs half-amplitude %v, peak normalization should cancel gain",
				i, av[i], bv[i])
		}
	}
}

func TestExtractPitch(t *testing.T) {
	e := newTestEngine(t)

	v, err := e.Extract(wave(speakerLow(3)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if v.Quality.Has(QualityUnvoiced) {
		t.Fatal("harmonic signal flagged unvoiced")
	}
	if mean := v.Pitch[0]; mean < 100 || mean > 125 {
		t.Errorf("pitch mean = %.1f Hz, want near 110", mean)
	}
	if std := v.Pitch[1]; std > 10 {
		t.Errorf("pitch std = %.1f Hz, want small for a steady fundamental", std)
	}

	tone, err := e.Extract(wave(sineWave(220, 0.8, 2)))
	if err != nil {
		t.Fatalf("Extract(tone) failed: %v", err)
	}
	if mean := tone.Pitch[0]; mean < 210 || mean > 230 {
		t.Errorf("tone pitch mean = %.1f Hz, want near 220", mean)
	}
}

func TestExtractNoiseUnvoiced(t *testing.T) {
	e := newTestEngine(t)

	v, err := e.Extract(wave(whiteNoise(2)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !v.Quality.Has(QualityUnvoiced) {
		t.Error("white noise not flagged unvoiced")
	}
	if v.Pitch[0] != 0 || v.Pitch[1] != 0 {
		t.Errorf("pitch stats = %v, want zeros when no frame is voiced", v.Pitch)
	}
}

func TestExtractSpectralFeatures(t *testing.T) {
	e := newTestEngine(t)

	low, err := e.Extract(wave(speakerLow(3)))
	if err != nil {
		t.Fatalf("Extract(low) failed: %v", err)
	}
	high, err := e.Extract(wave(speakerHigh(3)))
	if err != nil {
		t.Fatalf("Extract(high) failed: %v", err)
	}

	if p := low.Spectral[0]; p <= 0 || p > 1 {
		t.Errorf("average power = %v, want in (0,1] after peak normalization", p)
	}
	if z := low.Spectral[1]; z <= 0 || z >= 1 {
		t.Errorf("zero-crossing rate = %v, want in (0,1)", z)
	}

	lc, hc := low.Spectral[2], high.Spectral[2]
	t.Logf("spectral centroid: dark %.0f Hz, bright %.0f Hz", lc, hc)
	if lc < 100 || lc > 900 {
		t.Errorf("dark-voice centroid = %.0f Hz, want a few hundred", lc)
	}
	if hc < 1200 {
		t.Errorf("bright-voice centroid = %.0f Hz, want well above the dark voice", hc)
	}
	if hc <= lc {
		t.Errorf("centroids do not separate the voices: dark %.0f >= bright %.0f", lc, hc)
	}
}

func TestExtractErrors(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name string
		w    Waveform
		want error
	}{
		{"wrong sample rate", Waveform{Samples: sineWave(220, 0.8, 1), SampleRate: 44100}, ErrInvalidSampleRate},
		{"too short", wave(sineWave(220, 0.8, 0.01)), ErrInsufficientSignal},
		{"all zeros", wave(make([]float64, testRate)), ErrInsufficientSignal},
		{"below silence floor", wave(sineWave(220, 1e-7, 1)), ErrInsufficientSignal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Extract(tt.w); !errors.Is(err, tt.want) {
				t.Fatalf("Extract error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMatchSelf(t *testing.T) {
	e := newTestEngine(t)

	v, err := e.Extract(wave(speakerLow(3)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	m, err := e.Match(v, v)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if math.Abs(m.Score-1) > 1e-9 {
		t.Errorf("self-match score = %v, want 1", m.Score)
	}
}

func TestMatchSymmetryAndScale(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.Extract(wave(speakerLow(2)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	b, err := e.Extract(wave(speakerHigh(2)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	ab, err := e.Match(a, b)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	ba, err := e.Match(b, a)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if ab.Score != ba.Score {
		t.Errorf("match is asymmetric: %v vs %v", ab.Score, ba.Score)
	}

	// Cosine similarity ignores uniform gain on either side.
	scaled := FeatureVector{
		Version:  a.Version,
		Cepstral: scaleSlice(a.Cepstral, 2.5),
		Pitch:    scaleSlice(a.Pitch, 2.5),
		Spectral: scaleSlice(a.Spectral, 2.5),
	}
	m, err := e.Match(a, scaled)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if math.Abs(m.Score-1) > 1e-9 {
		t.Errorf("scaled self-match score = %v, want 1", m.Score)
	}
}

func scaleSlice(xs []float64, k float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x * k
	}
	return out
}

func TestMatchZeroTemplate(t *testing.T) {
	e := newTestEngine(t)

	v, err := e.Extract(wave(speakerLow(2)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	zero := FeatureVector{
		Version:  LayoutVersion,
		Cepstral: make([]float64, len(v.Cepstral)),
		Pitch:    make([]float64, len(v.Pitch)),
		Spectral: make([]float64, len(v.Spectral)),
	}
	m, err := e.Match(v, zero)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if m.Score != 0 {
		t.Errorf("match against zero template = %v, want 0", m.Score)
	}
}

func TestMatchLayoutMismatch(t *testing.T) {
	e := newTestEngine(t)

	v, err := e.Extract(wave(speakerLow(2)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*FeatureVector)
	}{
		{"version skew", func(f *FeatureVector) { f.Version++ }},
		{"truncated cepstra", func(f *FeatureVector) { f.Cepstral = f.Cepstral[:40] }},
		{"missing spectral", func(f *FeatureVector) { f.Spectral = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := v
			tt.mutate(&other)
			if _, err := e.Match(v, other); !errors.Is(err, ErrDimensionMismatch) {
				t.Fatalf("Match error = %v, want %v", err, ErrDimensionMismatch)
			}
		})
	}
}

func TestMatchDifferentSpeakers(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.Extract(wave(speakerLow(3)))
	if err != nil {
		t.Fatalf("Extract(low) failed: %v", err)
	}
	b, err := e.Extract(wave(speakerHigh(3)))
	if err != nil {
		t.Fatalf("Extract(high) failed: %v", err)
	}
	m, err := e.Match(a, b)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	threshold := e.Config().MatchThreshold
	t.Logf("cross-speaker match score = %.3f (threshold %.2f)", m.Score, threshold)
	if m.Score >= threshold {
		t.Errorf("different voices matched: score %.3f >= threshold %.2f", m.Score, threshold)
	}
}

func TestScoreLivenessBounds(t *testing.T) {
	e := newTestEngine(t)

	signals := map[string][]float64{
		"tone":   sineWave(220, 0.8, 2),
		"noise":  whiteNoise(2),
		"dark":   speakerLow(2),
		"bright": speakerHigh(2),
	}
	for name, samples := range signals {
		s := e.ScoreLiveness(wave(samples))
		for what, x := range map[string]float64{
			"combined": s.Score, "flux": s.Flux, "highfreq": s.HighFreq,
			"zerocross": s.ZeroCross, "dynamicrange": s.DynamicRange, "noisefloor": s.NoiseFloor,
		} {
			if x < 0 || x > 1 {
				t.Errorf("%s: %s score = %v, want in [0,1]", name, what, x)
			}
		}
	}
}

func TestScoreLivenessDegenerate(t *testing.T) {
	e := newTestEngine(t)

	square := make([]float64, testRate)
	for i := range square {
		if math.Sin(2*math.Pi*220*float64(i)/testRate) >= 0 {
			square[i] = 0.999
		} else {
			square[i] = -0.999
		}
	}

	tests := []struct {
		name    string
		samples []float64
	}{
		{"digital silence", make([]float64, testRate)},
		{"below silence floor", sineWave(220, 1e-7, 1)},
		{"saturated square", square},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s := e.ScoreLiveness(wave(tt.samples)); s != (LivenessScore{}) {
				t.Fatalf("liveness = %+v, want all zeros", s)
			}
		})
	}
}

func TestLivenessToneVsNoise(t *testing.T) {
	e := newTestEngine(t)

	tone := e.ScoreLiveness(wave(sineWave(220, 0.8, 2)))
	noise := e.ScoreLiveness(wave(whiteNoise(2)))
	t.Logf("tone liveness %.3f %+v", tone.Score, tone)
	t.Logf("noise liveness %.3f %+v", noise.Score, noise)

	// A pure tone has no high band and a speech-like crossing rate;
	// broadband noise is the exact opposite.
	if tone.HighFreq >= noise.HighFreq {
		t.Errorf("high-frequency score: tone %.3f >= noise %.3f", tone.HighFreq, noise.HighFreq)
	}
	if tone.ZeroCross <= noise.ZeroCross {
		t.Errorf("zero-crossing score: tone %.3f <= noise %.3f", tone.ZeroCross, noise.ZeroCross)
	}
	if math.Abs(tone.Score-noise.Score) < 0.015 {
		t.Errorf("combined scores indistinguishable: tone %.3f, noise %.3f", tone.Score, noise.Score)
	}
}

func TestZeroCrossScoreBands(t *testing.T) {
	e := newTestEngine(t)

	constant := make([]float64, testRate)
	for i := range constant {
		constant[i] = 0.5
	}
	alternating := make([]float64, testRate)
	for i := range alternating {
		if i%2 == 0 {
			alternating[i] = 0.5
		} else {
			alternating[i] = -0.5
		}
	}

	if s := e.zcrScore(constant); s != 0 {
		t.Errorf("constant signal zcr score = %v, want 0", s)
	}
	if s := e.zcrScore(sineWave(220, 0.8, 1)); s != 1 {
		t.Errorf("in-band tone zcr score = %v, want 1", s)
	}
	if s := e.zcrScore(alternating); s != 0 {
		t.Errorf("alternating signal zcr score = %v, want 0", s)
	}
}

func TestCrestScore(t *testing.T) {
	e := newTestEngine(t)

	flat := make([]float64, testRate)
	for i := range flat {
		flat[i] = 0.8
	}
	if s := e.crestScore(flat); s > 1e-6 {
		t.Errorf("flat signal crest score = %v, want 0", s)
	}

	// A sine crests 3 dB over its RMS.
	if s := e.crestScore(sineWave(220, 0.8, 1)); math.Abs(s-3.01/15) > 0.03 {
		t.Errorf("sine crest score = %v, want about %.3f", s, 3.01/15)
	}
}

func TestNoiseFloorScore(t *testing.T) {
	e := newTestEngine(t)

	steady := sineWave(220, 0.8, 1)
	if s := e.noiseFloorScore(steady); s > 0.1 {
		t.Errorf("steady tone noise-floor score = %v, want near 0", s)
	}

	// Loud burst then a quiet-but-nonzero tail: a natural energy gap.
	natural := append(sineWave(220, 0.8, 0.5), sineWave(220, 0.008, 0.5)...)
	if s := e.noiseFloorScore(natural); s != 1 {
		t.Errorf("natural gap noise-floor score = %v, want 1", s)
	}

	// Loud burst into digital silence: implausibly clean, penalized.
	clean := append(sineWave(220, 0.8, 0.5), make([]float64, testRate/2)...)
	if s := e.noiseFloorScore(clean); s != 0 {
		t.Errorf("digital-silence noise-floor score = %v, want 0", s)
	}
}

func TestAuthenticateReportsBothGates(t *testing.T) {
	e := newTestEngine(t)

	w := wave(speakerLow(3))
	template, err := e.Extract(w)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	d, err := e.Authenticate(w, template)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	t.Logf("decision: liveness %.3f (pass=%v) match %.3f (pass=%v) unlocked=%v",
		d.Liveness.Score, d.LivenessPass, d.Match.Score, d.MatchPass, d.Unlocked)

	if d.Match.Score < 0.999 {
		t.Errorf("self-authentication match score = %v, want about 1", d.Match.Score)
	}
	if !d.MatchPass {
		t.Error("self-authentication did not pass the match gate")
	}
	if d.Unlocked != (d.LivenessPass && d.MatchPass) {
		t.Errorf("unlocked = %v, want conjunction of gates (liveness %v, match %v)",
			d.Unlocked, d.LivenessPass, d.MatchPass)
	}
}

func TestAuthenticateExtractionFailure(t *testing.T) {
	e := newTestEngine(t)

	template, err := e.Extract(wave(speakerLow(2)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Loud but shorter than one analysis window: liveness is still
	// reported, extraction fails, nothing unlocks.
	short := wave(sineWave(220, 0.8, 0.015))
	d, err := e.Authenticate(short, template)
	if !errors.Is(err, ErrInsufficientSignal) {
		t.Fatalf("Authenticate error = %v, want %v", err, ErrInsufficientSignal)
	}
	if d.Unlocked {
		t.Error("unlocked despite extraction failure")
	}
	if d.Match.Score != 0 {
		t.Errorf("match score = %v, want 0 when extraction fails", d.Match.Score)
	}
	if d.Liveness.Score <= 0 {
		t.Error("liveness not reported alongside the extraction failure")
	}
}

func TestNewConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"zero hop", func(c *Config) { c.HopSize = 0 }},
		{"fft not a power of two", func(c *Config) { c.FFTSize = 500 }},
		{"fft smaller than window", func(c *Config) { c.FFTSize = 256 }},
		{"more cepstra than filters", func(c *Config) { c.NumCeps = 30 }},
		{"inverted pitch band", func(c *Config) { c.PitchMin, c.PitchMax = 400, 80 }},
		{"pitch lag beyond window", func(c *Config) { c.PitchMin = 20 }},
		{"liveness window not a power of two", func(c *Config) { c.LivenessWindow = 300 }},
		{"match threshold above one", func(c *Config) { c.MatchThreshold = 1.5 }},
		{"negative weight", func(c *Config) { c.Weights.Flux = -1 }},
		{"all-zero weights", func(c *Config) { c.Weights = LivenessWeights{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Fatal("New accepted an invalid config")
			}
		})
	}

	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New rejected the default config: %v", err)
	}
	if got := e.Config(); got.SampleRate != 16000 || got.MatchThreshold != 0.7 {
		t.Errorf("Config() = %+v, does not round-trip the defaults", got)
	}
}

func TestQualityString(t *testing.T) {
	tests := []struct {
		q    Quality
		want string
	}{
		{0, "ok"},
		{QualityUnvoiced, "unvoiced"},
		{QualityNonFinite, "nonfinite"},
		{QualityUnvoiced | QualityNonFinite, "unvoiced,nonfinite"},
	}
	for _, tt := range tests {
		if got := tt.q.String(); got != tt.want {
			t.Errorf("Quality(%d).String() = %q, want %q", tt.q, got, tt.want)
		}
	}
}

func TestWaveformDuration(t *testing.T) {
	w := wave(make([]float64, testRate/2))
	if d := w.Duration(); d != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", d)
	}
	if d := (Waveform{}).Duration(); d != 0 {
		t.Errorf("empty Duration = %v, want 0", d)
	}
}

func BenchmarkExtract(b *testing.B) {
	e := newTestEngine(b)
	w := wave(speakerLow(3))

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := e.Extract(w); err != nil {
			b.Fatalf("Extract failed: %v", err)
		}
	}
}

func BenchmarkAuthenticate(b *testing.B) {
	e := newTestEngine(b)
	w := wave(speakerLow(3))
	template, err := e.Extract(w)
	if err != nil {
		b.Fatalf("Extract failed: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := e.Authenticate(w, template); err != nil {
			b.Fatalf("Authenticate failed: %v", err)
		}
	}
}
