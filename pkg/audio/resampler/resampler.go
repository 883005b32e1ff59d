// Package resampler converts PCM recordings to the canonical analysis
// format: 16 kHz, mono, 16-bit signed integer samples.
//
// Sample rate conversion uses a pure Go resampler (no CGO/FFI
// dependencies) at its high quality preset. Multichannel input is downmixed
// by averaging channels before the rate conversion.
package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/voicelock/voicelock/pkg/audio/pcm"
)

// AnalysisFormat is the format every recording is converted to before
// feature extraction.
const AnalysisFormat = pcm.L16Mono16K

// ToAnalysisFormat converts interleaved 16-bit samples at srcRate with the
// given channel count into 16 kHz mono. Input already in the analysis
// format is returned as is.
func ToAnalysisFormat(samples []int16, srcRate, channels int) ([]int16, error) {
	if srcRate < 1 || channels < 1 {
		return nil, fmt.Errorf("resampler: invalid source format: rate=%d channels=%d", srcRate, channels)
	}

	mono := samples
	if channels > 1 {
		mono = Downmix(samples, channels)
	}
	if srcRate == AnalysisFormat.SampleRate() {
		return mono, nil
	}
	return Resample(mono, srcRate, AnalysisFormat.SampleRate())
}

// Downmix averages interleaved channels into mono. Trailing samples that do
// not fill a whole frame are dropped.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]int16, frames)
	for i := range frames {
		var sum int32
		for c := range channels {
			sum += int32(samples[i*channels+c])
		}
		mono[i] = int16(sum / int32(channels))
	}
	return mono
}

// Resample converts mono 16-bit samples from srcRate to dstRate. The whole
// recording is processed in a single pass.
func Resample(samples []int16, srcRate, dstRate int) ([]int16, error) {
	if srcRate == dstRate {
		return samples, nil
	}

	config := &resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	}
	rs, err := resampling.New(config)
	if err != nil {
		return nil, fmt.Errorf("resampler: create: %w", err)
	}

	output, err := rs.Process(pcm.Int16ToFloat64(samples))
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}
	return pcm.Float64ToInt16(output), nil
}
