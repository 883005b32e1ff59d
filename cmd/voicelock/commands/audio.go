package commands

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/voicelock/voicelock/pkg/audio/pcm"
	"github.com/voicelock/voicelock/pkg/audio/resampler"
	"github.com/voicelock/voicelock/pkg/audio/wav"
	"github.com/voicelock/voicelock/pkg/cli"
	"github.com/voicelock/voicelock/pkg/voiceauth"
)

// recording is a decoded, analysis-ready waveform plus its provenance.
type recording struct {
	// Waveform is the recording converted to 16 kHz mono float64.
	Waveform voiceauth.Waveform

	// Raw holds the original file bytes, exactly as archived.
	Raw []byte

	// Path is where the recording was read from.
	Path string

	// Properties of the original file, for diagnostics.
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// loadRecording reads a WAV file and converts it to the engine's
// analysis format, enforcing the recording length policy on the
// original file.
func loadRecording(path string, minDur, maxDur time.Duration) (*recording, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	f, err := wav.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	dur := f.Duration()
	if dur < minDur {
		return nil, fmt.Errorf("%s holds %s of audio, need at least %s",
			path, cli.FormatDuration(dur), cli.FormatDuration(minDur))
	}
	if dur > maxDur {
		return nil, fmt.Errorf("%s holds %s of audio, over the %s limit",
			path, cli.FormatDuration(dur), cli.FormatDuration(maxDur))
	}

	mono, err := resampler.ToAnalysisFormat(f.Samples, f.SampleRate, f.Channels)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}

	return &recording{
		Waveform: voiceauth.Waveform{
			Samples:    pcm.Int16ToFloat64(mono),
			SampleRate: resampler.AnalysisFormat.SampleRate(),
		},
		Raw:        raw,
		Path:       path,
		SampleRate: f.SampleRate,
		Channels:   f.Channels,
		Duration:   dur,
	}, nil
}

// printQualityWarnings surfaces non-fatal extraction observations.
func printQualityWarnings(q voiceauth.Quality) {
	if q.Has(voiceauth.QualityUnvoiced) {
		cli.PrintWarning("no voiced frames found; pitch features are zero (is this speech?)")
	}
	if q.Has(voiceauth.QualityNonFinite) {
		cli.PrintWarning("non-finite feature values were scrubbed; the recording may be degenerate")
	}
}
