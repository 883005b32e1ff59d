package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voicelock/voicelock/pkg/cli"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <audio-file>",
	Short: "Rank enrolled users against a recording",
	Long: `Identify extracts features from a recording and ranks every enrolled
template by similarity. This is a diagnostic: it answers "who does
this sound like?", it does not authenticate and it does not touch the
attempt log.

Example:
  voicelock identify probe.wav --top 3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		topK, err := cmd.Flags().GetInt("top")
		if err != nil {
			return fmt.Errorf("failed to read 'top' flag: %w", err)
		}

		cfg, err := getConfig()
		if err != nil {
			return err
		}
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		minDur, maxDur := cfg.Engine.Durations()
		rec, err := loadRecording(path, minDur, maxDur)
		if err != nil {
			return err
		}
		vec, err := eng.Extract(rec.Waveform)
		if err != nil {
			return fmt.Errorf("extract features: %w", err)
		}

		candidates, err := store.Identify(cmd.Context(), eng, vec, topK)
		if err != nil {
			return err
		}

		if isStructured() {
			return outputResult(candidates)
		}

		if len(candidates) == 0 {
			fmt.Println("No users enrolled")
			return nil
		}

		threshold := eng.Config().MatchThreshold
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tUSER\tSCORE\tMATCH")
		for i, c := range candidates {
			marker := ""
			if c.Score >= threshold {
				marker = "✓"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, c.UserID, cli.FormatScore(c.Score), marker)
		}
		return w.Flush()
	},
}

func init() {
	identifyCmd.Flags().Int("top", 3, "number of candidates to report (0 for all)")
	rootCmd.AddCommand(identifyCmd)
}
