package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigWithPath_NewConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	if cfg.Path() != configPath {
		t.Errorf("Path = %q, want %q", cfg.Path(), configPath)
	}

	// Verify config file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file should be created")
	}
}

func TestLoadConfigWithPath_Existing(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	doc := `store_dir: /var/lib/voicelock
engine:
  match_threshold: 0.8
  liveness_threshold: 0.6
  liveness_weights: [0.1, 0.2, 0.3, 0.2, 0.2]
  min_seconds: 1
  max_seconds: 10
archive:
  backend: s3
  s3:
    bucket: vl-recordings
    prefix: prod
    region: eu-central-1
`
	if err := os.WriteFile(configPath, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}

	if cfg.StoreDir != "/var/lib/voicelock" {
		t.Errorf("StoreDir = %q", cfg.StoreDir)
	}
	if cfg.Engine.MatchThreshold != 0.8 {
		t.Errorf("MatchThreshold = %v, want 0.8", cfg.Engine.MatchThreshold)
	}
	if len(cfg.Engine.LivenessWeights) != 5 {
		t.Errorf("LivenessWeights = %v", cfg.Engine.LivenessWeights)
	}
	if cfg.Archive.Backend != "s3" {
		t.Errorf("Archive.Backend = %q", cfg.Archive.Backend)
	}
	if cfg.Archive.S3 == nil || cfg.Archive.S3.Bucket != "vl-recordings" {
		t.Errorf("Archive.S3 = %+v", cfg.Archive.S3)
	}
}

func TestLoadConfigWithPath_SaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}
	cfg.StoreDir = "/data/voicelock"
	cfg.Engine.MatchThreshold = 0.75
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if loaded.StoreDir != "/data/voicelock" {
		t.Errorf("StoreDir = %q after reload", loaded.StoreDir)
	}
	if loaded.Engine.MatchThreshold != 0.75 {
		t.Errorf("MatchThreshold = %v after reload", loaded.Engine.MatchThreshold)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"local backend", Config{Archive: ArchiveConfig{Backend: "local"}}, false},
		{"s3 with bucket", Config{Archive: ArchiveConfig{Backend: "s3", S3: &S3Config{Bucket: "b"}}}, false},
		{"s3 without bucket", Config{Archive: ArchiveConfig{Backend: "s3"}}, true},
		{"s3 empty bucket", Config{Archive: ArchiveConfig{Backend: "s3", S3: &S3Config{}}}, true},
		{"unknown backend", Config{Archive: ArchiveConfig{Backend: "gcs"}}, true},
		{"short weights", Config{Engine: EngineConfig{LivenessWeights: []float64{1, 2}}}, true},
		{"full weights", Config{Engine: EngineConfig{LivenessWeights: []float64{1, 1, 1, 1, 1}}}, false},
		{"min over max", Config{Engine: EngineConfig{MinSeconds: 10, MaxSeconds: 5}}, true},
		{"negative min", Config{Engine: EngineConfig{MinSeconds: -1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEngineConfig_Build_Defaults(t *testing.T) {
	eng, err := EngineConfig{}.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	def := eng.Config()
	if def.MatchThreshold != 0.7 || def.LivenessThreshold != 0.5 {
		t.Errorf("default thresholds = %v/%v", def.LivenessThreshold, def.MatchThreshold)
	}
}

func TestEngineConfig_Build_Overrides(t *testing.T) {
	e := EngineConfig{
		LivenessThreshold: 0.6,
		MatchThreshold:    0.85,
		LivenessWeights:   []float64{0.5, 0.5, 0, 0, 0},
	}
	eng, err := e.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	got := eng.Config()
	if got.LivenessThreshold != 0.6 {
		t.Errorf("LivenessThreshold = %v, want 0.6", got.LivenessThreshold)
	}
	if got.MatchThreshold != 0.85 {
		t.Errorf("MatchThreshold = %v, want 0.85", got.MatchThreshold)
	}
	if got.Weights.Flux != 0.5 || got.Weights.HighFreq != 0.5 || got.Weights.NoiseFloor != 0 {
		t.Errorf("Weights = %+v", got.Weights)
	}
}

func TestEngineConfig_Build_Invalid(t *testing.T) {
	if _, err := (EngineConfig{MatchThreshold: 1.5}).Build(); err == nil {
		t.Error("Build should reject a threshold above 1")
	}
}

func TestEngineConfig_Durations(t *testing.T) {
	min, max := EngineConfig{}.Durations()
	if min != 500*time.Millisecond {
		t.Errorf("default min = %v, want 500ms", min)
	}
	if max != 10*time.Second {
		t.Errorf("default max = %v, want 10s", max)
	}

	min, max = EngineConfig{MinSeconds: 1.5, MaxSeconds: 8}.Durations()
	if min != 1500*time.Millisecond {
		t.Errorf("min = %v, want 1.5s", min)
	}
	if max != 8*time.Second {
		t.Errorf("max = %v, want 8s", max)
	}
}
