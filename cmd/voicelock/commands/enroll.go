package commands

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicelock/voicelock/pkg/cli"
	"github.com/voicelock/voicelock/pkg/enroll"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <user> <audio-file>",
	Short: "Enroll a user from a WAV recording",
	Long: `Enroll extracts a voice template from a WAV recording and stores it
under the given user ID, replacing any previous template wholesale.

The raw recording is archived alongside (local disk or S3, per config)
so templates can be re-extracted after an engine upgrade. Use
--archive=false to skip archival for this run.

Example:
  voicelock enroll alice passphrase.wav
  voicelock enroll alice passphrase.wav --archive=false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, path := args[0], args[1]
		ctx := cmd.Context()

		wantArchive, err := cmd.Flags().GetBool("archive")
		if err != nil {
			return fmt.Errorf("failed to read 'archive' flag: %w", err)
		}

		cfg, err := getConfig()
		if err != nil {
			return err
		}
		eng, err := buildEngine()
		if err != nil {
			return err
		}

		minDur, maxDur := cfg.Engine.Durations()
		rec, err := loadRecording(path, minDur, maxDur)
		if err != nil {
			return err
		}
		printVerbose("decoded %s: %d Hz, %d ch, %s",
			path, rec.SampleRate, rec.Channels, cli.FormatDuration(rec.Duration))

		vec, err := eng.Extract(rec.Waveform)
		if err != nil {
			return fmt.Errorf("extract template: %w", err)
		}

		sum := sha256.Sum256(rec.Raw)
		digest := hex.EncodeToString(sum[:])

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		tpl := enroll.NewTemplateRecord(userID, vec, digest, time.Now())
		if err := store.PutTemplate(ctx, tpl); err != nil {
			return err
		}

		archived := false
		if wantArchive {
			arc, err := buildArchive(ctx)
			if err != nil {
				return fmt.Errorf("template enrolled, but archive setup failed: %w", err)
			}
			if arc != nil {
				if _, err := arc.Save(ctx, userID, bytes.NewReader(rec.Raw)); err != nil {
					return fmt.Errorf("template enrolled, but recording archival failed: %w", err)
				}
				archived = true
			}
		}

		if isStructured() {
			return outputResult(enrollResult{
				UserID:       userID,
				Version:      tpl.Version,
				Quality:      vec.Quality.String(),
				SourceSHA256: digest,
				Duration:     rec.Duration.Seconds(),
				Archived:     archived,
			})
		}

		printQualityWarnings(vec.Quality)
		cli.PrintSuccess("Enrolled %q from %s (%s of audio)", userID, path, cli.FormatDuration(rec.Duration))
		if archived {
			cli.PrintInfo("recording archived (sha256 %s…)", digest[:12])
		}
		return nil
	},
}

type enrollResult struct {
	UserID       string  `json:"user_id" yaml:"user_id"`
	Version      int     `json:"version" yaml:"version"`
	Quality      string  `json:"quality" yaml:"quality"`
	SourceSHA256 string  `json:"source_sha256" yaml:"source_sha256"`
	Duration     float64 `json:"duration_seconds" yaml:"duration_seconds"`
	Archived     bool    `json:"archived" yaml:"archived"`
}

func init() {
	enrollCmd.Flags().Bool("archive", true, "archive the raw recording for re-extraction")
	rootCmd.AddCommand(enrollCmd)
}
