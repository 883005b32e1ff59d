// Package audio provides audio processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - pcm: PCM sample formats and representation conversions
//   - wav: RIFF/WAVE container decoding and encoding
//   - resampler: sample rate and channel conversion
//   - mfcc: mel-frequency cepstral coefficient extraction
package audio
