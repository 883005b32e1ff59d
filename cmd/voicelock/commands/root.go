package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/voicelock/voicelock/pkg/archive"
	"github.com/voicelock/voicelock/pkg/cli"
	"github.com/voicelock/voicelock/pkg/enroll"
	"github.com/voicelock/voicelock/pkg/voiceauth"
)

// ErrDenied marks a verification that completed but did not unlock.
// main translates it into a nonzero exit without an error banner; the
// verdict has already been printed.
var ErrDenied = errors.New("authentication denied")

var (
	// Global flags
	cfgFile    string
	outputFile string
	outputJSON bool
	outputYAML bool
	verbose    bool

	// Global configuration (loaded at init time)
	globalConfig *cli.Config

	// styles renders verdicts and score bars for human output.
	styles = cli.NewStyles(cli.DefaultTheme)
)

var rootCmd = &cobra.Command{
	Use:   "voicelock",
	Short: "Voice biometric authentication CLI",
	Long: `voicelock - enroll voices and authenticate recordings against them.

The engine extracts a compact spectral fingerprint from a short WAV
recording, scores it for liveness (replay/synthetic detection), and
matches it against an enrolled template. Both gates must pass to
unlock.

Templates, the attempt audit log, and archived enrollment recordings
are stored under ~/.voicelock/ unless redirected in config.yaml.

Examples:
  # Enroll a user from a recording
  voicelock enroll alice enrollment.wav

  # Verify a new recording; exit status 0 only when unlocked
  voicelock verify alice probe.wav

  # Who does this recording sound like?
  voicelock identify probe.wav --top 3

  # Machine-readable output for piping
  voicelock verify alice probe.wav --json | jq .unlocked`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging, initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.voicelock/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVar(&outputYAML, "yaml", false, "output as YAML")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// configLoadErr stores the error from config loading for deferred
// reporting, so commands that never touch config (version) still run.
var configLoadErr error

func initConfig() {
	cfg, err := cli.LoadConfigWithPath(cfgFile)
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// getConfig returns the global configuration.
func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config unavailable: %w", configLoadErr)
		}
		return nil, fmt.Errorf("config not initialized")
	}
	return globalConfig, nil
}

// buildEngine constructs the engine with config overrides applied.
func buildEngine() (*voiceauth.Engine, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Engine.Build()
}

// openStore opens the template/attempt store. Callers must Close it.
func openStore() (enroll.Store, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	dir, err := cfg.ResolveStoreDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return enroll.NewBadger(enroll.BadgerOptions{Dir: dir})
}

// buildArchive returns the configured recording archive, or nil when
// archival is disabled.
func buildArchive(ctx context.Context) (*archive.Archive, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Archive.Disabled {
		return nil, nil
	}
	switch cfg.Archive.Backend {
	case "", "local":
		dir, err := cfg.ResolveArchiveDir()
		if err != nil {
			return nil, err
		}
		backend, err := archive.NewLocal(dir)
		if err != nil {
			return nil, err
		}
		return archive.New(backend), nil
	case "s3":
		s3cfg := cfg.Archive.S3
		var opts []func(*awsconfig.LoadOptions) error
		if s3cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(s3cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if s3cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(s3cfg.Endpoint)
				// S3-compatible stores rarely support virtual-host buckets.
				o.UsePathStyle = true
			}
		})
		return archive.New(archive.NewS3(client, s3cfg.Bucket, s3cfg.Prefix)), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
}

// resolveFormat maps the --json/--yaml flags to an output format.
// Empty means human-readable terminal rendering.
func resolveFormat() cli.OutputFormat {
	switch {
	case outputJSON:
		return cli.FormatJSON
	case outputYAML:
		return cli.FormatYAML
	default:
		return ""
	}
}

// isStructured reports whether the user asked for machine output.
func isStructured() bool {
	return outputJSON || outputYAML || outputFile != ""
}

// outputResult writes a structured result honoring the global flags.
func outputResult(result any) error {
	format := resolveFormat()
	if format == "" {
		format = cli.FormatYAML
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputFile,
	})
}

// printVerbose prints verbose output if enabled.
func printVerbose(format string, args ...any) {
	cli.PrintVerbose(verbose, format, args...)
}
