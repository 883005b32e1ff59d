package cli

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0ms"},
		{250 * time.Millisecond, "250ms"},
		{time.Second, "1.0s"},
		{3200 * time.Millisecond, "3.2s"},
		{59*time.Second + 900*time.Millisecond, "59.9s"},
		{90 * time.Second, "1m30.0s"},
		{2*time.Minute + 5*time.Second, "2m5.0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{5242880, "5.00 MB"},
		{1073741824, "1.00 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatBytes(tt.bytes); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "0.000"},
		{0.5, "0.500"},
		{0.1234, "0.123"},
		{0.9996, "1.000"},
		{1, "1.000"},
	}

	for _, tt := range tests {
		if got := FormatScore(tt.v); got != tt.want {
			t.Errorf("FormatScore(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
