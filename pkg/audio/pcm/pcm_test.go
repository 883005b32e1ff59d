package pcm

import (
	"math"
	"testing"
	"time"
)

func TestFormatArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		rate     int
		byteRate int
	}{
		{"16k mono", L16Mono16K, 16000, 32000},
		{"24k mono", L16Mono24K, 24000, 48000},
		{"48k mono", L16Mono48K, 48000, 96000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.SampleRate(); got != tt.rate {
				t.Errorf("SampleRate() = %d, want %d", got, tt.rate)
			}
			if got := tt.format.BytesRate(); got != tt.byteRate {
				t.Errorf("BytesRate() = %d, want %d", got, tt.byteRate)
			}
			if got := tt.format.Channels(); got != 1 {
				t.Errorf("Channels() = %d, want 1", got)
			}
			if got := tt.format.Depth(); got != 16 {
				t.Errorf("Depth() = %d, want 16", got)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	f := L16Mono16K

	// One second of 16-bit mono at 16kHz is 32000 bytes.
	if got := f.BytesInDuration(time.Second); got != 32000 {
		t.Errorf("BytesInDuration(1s) = %d, want 32000", got)
	}
	if got := f.Duration(32000); got != time.Second {
		t.Errorf("Duration(32000) = %v, want 1s", got)
	}
	if got := f.SamplesInDuration(25 * time.Millisecond); got != 400 {
		t.Errorf("SamplesInDuration(25ms) = %d, want 400", got)
	}
	if got := f.Samples(800); got != 400 {
		t.Errorf("Samples(800) = %d, want 400", got)
	}
}

func TestBytesInt16RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 12345, -12345, 32767, -32768}
	data := Int16ToBytes(samples)
	if len(data) != len(samples)*2 {
		t.Fatalf("Int16ToBytes length = %d, want %d", len(data), len(samples)*2)
	}
	back := BytesToInt16(data)
	for i, s := range samples {
		if back[i] != s {
			t.Errorf("sample %d: got %d, want %d", i, back[i], s)
		}
	}
}

func TestBytesToInt16OddTrailingByte(t *testing.T) {
	data := []byte{0x34, 0x12, 0xff}
	samples := BytesToInt16(data)
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if samples[0] != 0x1234 {
		t.Errorf("sample = %#x, want 0x1234", samples[0])
	}
}

func TestInt16ToFloat64Range(t *testing.T) {
	samples := []int16{-32768, -1, 0, 1, 32767}
	out := Int16ToFloat64(samples)
	for i, v := range out {
		if v < -1.0 || v >= 1.0 {
			t.Errorf("sample %d: %v outside [-1, 1)", i, v)
		}
	}
	if out[0] != -1.0 {
		t.Errorf("min sample = %v, want -1.0", out[0])
	}
	if out[2] != 0.0 {
		t.Errorf("zero sample = %v, want 0.0", out[2])
	}
	if math.Abs(out[4]-32767.0/32768.0) > 1e-12 {
		t.Errorf("max sample = %v, want %v", out[4], 32767.0/32768.0)
	}
}

func TestFloat64ToInt16Clipping(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int16
	}{
		{"zero", 0, 0},
		{"positive", 0.5, 16383},
		{"negative", -0.5, -16383},
		{"over range", 1.5, 32767},
		{"under range", -1.5, -32768},
		{"exact one", 1.0, 32767},
		{"exact minus one", -1.0, -32768},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Float64ToInt16([]float64{tt.in})[0]
			if got != tt.want {
				t.Errorf("Float64ToInt16(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
