package voiceauth

import "errors"

var (
	// ErrInvalidSampleRate is returned when a waveform's declared sample
	// rate differs from the rate the engine was configured for.
	ErrInvalidSampleRate = errors.New("voiceauth: sample rate mismatch")

	// ErrInsufficientSignal is returned when a waveform is shorter than
	// one analysis window or carries no signal above the silence floor.
	ErrInsufficientSignal = errors.New("voiceauth: insufficient signal")

	// ErrDimensionMismatch is returned when two feature vectors have
	// incompatible layouts or extraction versions and must not be scored
	// against each other.
	ErrDimensionMismatch = errors.New("voiceauth: feature vector layout mismatch")
)
