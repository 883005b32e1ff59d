package resampler

import (
	"math"
	"testing"
)

func makeSine(freq float64, sampleRate, n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(12000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return samples
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestDownmix(t *testing.T) {
	tests := []struct {
		name     string
		in       []int16
		channels int
		want     []int16
	}{
		{"stereo average", []int16{100, 200, -100, -200}, 2, []int16{150, -150}},
		{"stereo cancel", []int16{1000, -1000}, 2, []int16{0}},
		{"three channels", []int16{300, 600, 900}, 3, []int16{600}},
		{"partial frame dropped", []int16{100, 200, 999}, 2, []int16{150}},
		{"mono passthrough", []int16{1, 2, 3}, 1, []int16{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Downmix(tt.in, tt.channels)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d samples, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d: got %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestToAnalysisFormatPassthrough(t *testing.T) {
	in := makeSine(440, 16000, 16000)
	out, err := ToAnalysisFormat(in, 16000, 1)
	if err != nil {
		t.Fatalf("ToAnalysisFormat failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d changed: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestToAnalysisFormatInvalid(t *testing.T) {
	if _, err := ToAnalysisFormat(nil, 0, 1); err == nil {
		t.Error("zero rate should fail")
	}
	if _, err := ToAnalysisFormat(nil, 16000, 0); err == nil {
		t.Error("zero channels should fail")
	}
}

func TestResampleRatio(t *testing.T) {
	tests := []struct {
		name    string
		srcRate int
		dstRate int
	}{
		{"48k down to 16k", 48000, 16000},
		{"44.1k down to 16k", 44100, 16000},
		{"8k up to 16k", 8000, 16000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := makeSine(440, tt.srcRate, tt.srcRate) // one second
			out, err := Resample(in, tt.srcRate, tt.dstRate)
			if err != nil {
				t.Fatalf("Resample failed: %v", err)
			}

			want := float64(len(in)) * float64(tt.dstRate) / float64(tt.srcRate)
			if math.Abs(float64(len(out))-want) > want*0.05 {
				t.Errorf("got %d samples, want about %.0f", len(out), want)
			}

			// A resampled sine keeps its amplitude.
			inRMS, outRMS := rms(in), rms(out)
			t.Logf("rms in=%.1f out=%.1f", inRMS, outRMS)
			if outRMS < inRMS*0.7 || outRMS > inRMS*1.3 {
				t.Errorf("rms %.1f too far from source rms %.1f", outRMS, inRMS)
			}
		})
	}
}

func TestResampleSameRate(t *testing.T) {
	in := makeSine(440, 16000, 1600)
	out, err := Resample(in, 16000, 16000)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
}

func TestToAnalysisFormatStereo48k(t *testing.T) {
	// Identical left and right channels at 48 kHz should survive the
	// downmix plus resample path with amplitude intact.
	mono := makeSine(440, 48000, 48000)
	stereo := make([]int16, len(mono)*2)
	for i, s := range mono {
		stereo[2*i] = s
		stereo[2*i+1] = s
	}

	out, err := ToAnalysisFormat(stereo, 48000, 2)
	if err != nil {
		t.Fatalf("ToAnalysisFormat failed: %v", err)
	}
	want := 16000.0
	if math.Abs(float64(len(out))-want) > want*0.05 {
		t.Errorf("got %d samples, want about %.0f", len(out), want)
	}
	if outRMS, inRMS := rms(out), rms(mono); outRMS < inRMS*0.7 {
		t.Errorf("rms %.1f collapsed from %.1f", outRMS, inRMS)
	}
}
