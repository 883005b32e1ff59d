package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voicelock/voicelock/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage the voicelock configuration.

Configuration is stored in ~/.voicelock/config.yaml. Defaults apply
for anything unset; 'config show' displays the resolved values.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file and data directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}

		paths, err := cli.NewPaths()
		if err != nil {
			return err
		}
		if err := paths.EnsureStoreDir(); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
		if err := paths.EnsureRecordingsDir(); err != nil {
			return fmt.Errorf("create recordings directory: %w", err)
		}

		cli.PrintSuccess("Config ready at %s", cfg.Path())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}

		storeDir, err := cfg.ResolveStoreDir()
		if err != nil {
			return err
		}
		archiveDir, err := cfg.ResolveArchiveDir()
		if err != nil {
			return err
		}

		eng, err := cfg.Engine.Build()
		if err != nil {
			return err
		}
		engCfg := eng.Config()
		minDur, maxDur := cfg.Engine.Durations()

		backend := cfg.Archive.Backend
		if backend == "" {
			backend = "local"
		}
		location := archiveDir
		if backend == "s3" {
			location = "s3://" + cfg.Archive.S3.Bucket
			if cfg.Archive.S3.Prefix != "" {
				location += "/" + cfg.Archive.S3.Prefix
			}
		}

		if isStructured() {
			return outputResult(configView{
				ConfigFile:        cfg.Path(),
				StoreDir:          storeDir,
				ArchiveDisabled:   cfg.Archive.Disabled,
				ArchiveBackend:    backend,
				ArchiveLocation:   location,
				LivenessThreshold: engCfg.LivenessThreshold,
				MatchThreshold:    engCfg.MatchThreshold,
				MinSeconds:        minDur.Seconds(),
				MaxSeconds:        maxDur.Seconds(),
			})
		}

		fmt.Printf("Config file:  %s\n", cfg.Path())
		fmt.Printf("Store:        %s\n", storeDir)
		if cfg.Archive.Disabled {
			fmt.Printf("Archive:      disabled\n")
		} else {
			fmt.Printf("Archive:      %s (%s)\n", backend, location)
		}
		fmt.Printf("Thresholds:   liveness %s, match %s\n",
			cli.FormatScore(engCfg.LivenessThreshold), cli.FormatScore(engCfg.MatchThreshold))
		fmt.Printf("Durations:    %s to %s\n",
			cli.FormatDuration(minDur), cli.FormatDuration(maxDur))
		return nil
	},
}

type configView struct {
	ConfigFile        string  `json:"config_file" yaml:"config_file"`
	StoreDir          string  `json:"store_dir" yaml:"store_dir"`
	ArchiveDisabled   bool    `json:"archive_disabled" yaml:"archive_disabled"`
	ArchiveBackend    string  `json:"archive_backend" yaml:"archive_backend"`
	ArchiveLocation   string  `json:"archive_location" yaml:"archive_location"`
	LivenessThreshold float64 `json:"liveness_threshold" yaml:"liveness_threshold"`
	MatchThreshold    float64 `json:"match_threshold" yaml:"match_threshold"`
	MinSeconds        float64 `json:"min_seconds" yaml:"min_seconds"`
	MaxSeconds        float64 `json:"max_seconds" yaml:"max_seconds"`
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
