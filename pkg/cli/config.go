package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/voicelock/voicelock/pkg/voiceauth"
)

// Recording length bounds applied when the config does not override
// them. Shorter clips do not carry enough voiced signal to extract a
// stable vector; longer ones are almost certainly not a passphrase.
const (
	DefaultMinSeconds = 0.5
	DefaultMaxSeconds = 10
)

// Config is the on-disk configuration for the voicelock CLI.
type Config struct {
	// StoreDir is the template/attempt store directory.
	// Empty means ~/.voicelock/store.
	StoreDir string `yaml:"store_dir,omitempty"`

	// Engine holds authentication engine overrides.
	Engine EngineConfig `yaml:"engine,omitempty"`

	// Archive configures the enrollment recording archive.
	Archive ArchiveConfig `yaml:"archive,omitempty"`

	// configPath is the path this config was loaded from.
	configPath string
}

// EngineConfig overrides selected engine parameters. Zero values mean
// "use the engine default".
type EngineConfig struct {
	// LivenessThreshold is the minimum liveness score to pass.
	LivenessThreshold float64 `yaml:"liveness_threshold,omitempty"`

	// MatchThreshold is the minimum cosine similarity to pass.
	MatchThreshold float64 `yaml:"match_threshold,omitempty"`

	// LivenessWeights reweights the five liveness sub-scores, in order:
	// flux, highfreq, zerocross, dynamicrange, noisefloor.
	LivenessWeights []float64 `yaml:"liveness_weights,omitempty"`

	// MinSeconds / MaxSeconds bound accepted recording lengths.
	MinSeconds float64 `yaml:"min_seconds,omitempty"`
	MaxSeconds float64 `yaml:"max_seconds,omitempty"`
}

// ArchiveConfig selects where raw enrollment recordings are kept.
type ArchiveConfig struct {
	// Disabled turns recording archival off entirely.
	Disabled bool `yaml:"disabled,omitempty"`

	// Backend is "local" or "s3". Empty means local.
	Backend string `yaml:"backend,omitempty"`

	// Dir is the local backend directory.
	// Empty means ~/.voicelock/recordings.
	Dir string `yaml:"dir,omitempty"`

	// S3 configures the s3 backend.
	S3 *S3Config `yaml:"s3,omitempty"`
}

// S3Config points the archive at an S3 bucket. Credentials come from
// the ambient AWS environment (env vars, shared config, IAM role).
type S3Config struct {
	// Bucket is the bucket name (required for the s3 backend).
	Bucket string `yaml:"bucket"`

	// Prefix is prepended to all object keys.
	Prefix string `yaml:"prefix,omitempty"`

	// Region overrides the ambient AWS region.
	Region string `yaml:"region,omitempty"`

	// Endpoint targets an S3-compatible store (MinIO, R2).
	Endpoint string `yaml:"endpoint,omitempty"`
}

// LoadConfig loads the configuration from the default location,
// creating an empty config file on first run.
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath("")
}

// LoadConfigWithPath loads configuration from a custom path; empty
// means ~/.voicelock/config.yaml.
func LoadConfigWithPath(customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		paths, err := NewPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		configPath = paths.ConfigFile()
	}

	// The store holds biometric templates, so the tree is owner-only.
	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{configPath: configPath}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.configPath = configPath

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path.
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// Validate checks the cross-field constraints the YAML schema cannot.
func (c *Config) Validate() error {
	if n := len(c.Engine.LivenessWeights); n != 0 && n != 5 {
		return fmt.Errorf("engine.liveness_weights needs 5 values (flux, highfreq, zerocross, dynamicrange, noisefloor), got %d", n)
	}
	if c.Engine.MinSeconds < 0 || c.Engine.MaxSeconds < 0 {
		return fmt.Errorf("engine.min_seconds/max_seconds must not be negative")
	}
	if c.Engine.MinSeconds > 0 && c.Engine.MaxSeconds > 0 && c.Engine.MinSeconds > c.Engine.MaxSeconds {
		return fmt.Errorf("engine.min_seconds %.3g exceeds max_seconds %.3g", c.Engine.MinSeconds, c.Engine.MaxSeconds)
	}
	switch c.Archive.Backend {
	case "", "local":
	case "s3":
		if c.Archive.S3 == nil || c.Archive.S3.Bucket == "" {
			return fmt.Errorf("archive.backend s3 requires archive.s3.bucket")
		}
	default:
		return fmt.Errorf("archive.backend must be local or s3, got %q", c.Archive.Backend)
	}
	return nil
}

// ResolveStoreDir returns the template store directory, applying the
// default when unset.
func (c *Config) ResolveStoreDir() (string, error) {
	if c.StoreDir != "" {
		return c.StoreDir, nil
	}
	paths, err := NewPaths()
	if err != nil {
		return "", err
	}
	return paths.StoreDir(), nil
}

// ResolveArchiveDir returns the local archive directory, applying the
// default when unset.
func (c *Config) ResolveArchiveDir() (string, error) {
	if c.Archive.Dir != "" {
		return c.Archive.Dir, nil
	}
	paths, err := NewPaths()
	if err != nil {
		return "", err
	}
	return paths.RecordingsDir(), nil
}

// Build constructs the authentication engine with the configured
// overrides applied on top of the engine defaults.
func (e EngineConfig) Build() (*voiceauth.Engine, error) {
	cfg := voiceauth.DefaultConfig()
	if e.LivenessThreshold > 0 {
		cfg.LivenessThreshold = e.LivenessThreshold
	}
	if e.MatchThreshold > 0 {
		cfg.MatchThreshold = e.MatchThreshold
	}
	if len(e.LivenessWeights) == 5 {
		cfg.Weights = voiceauth.LivenessWeights{
			Flux:         e.LivenessWeights[0],
			HighFreq:     e.LivenessWeights[1],
			ZeroCross:    e.LivenessWeights[2],
			DynamicRange: e.LivenessWeights[3],
			NoiseFloor:   e.LivenessWeights[4],
		}
	}
	return voiceauth.New(cfg)
}

// Durations returns the accepted recording length bounds.
func (e EngineConfig) Durations() (min, max time.Duration) {
	minSec, maxSec := e.MinSeconds, e.MaxSeconds
	if minSec == 0 {
		minSec = DefaultMinSeconds
	}
	if maxSec == 0 {
		maxSec = DefaultMaxSeconds
	}
	return time.Duration(minSec * float64(time.Second)), time.Duration(maxSec * float64(time.Second))
}
