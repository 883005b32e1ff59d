// Package cli provides common utilities for the voicelock command-line
// tool.
//
// This package includes:
//   - Configuration management (engine thresholds, store paths, archive)
//   - Output formatting (YAML, JSON, raw)
//   - Request file loading (YAML/JSON) for batch verification
//   - Styled terminal rendering for verdicts and score bars
//
// Configuration is stored in ~/.voicelock/config.yaml; the template
// store and recording archive default to directories next to it.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig()
//
//	engine, err := cfg.Engine.Build()
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
