package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voicelock/voicelock/pkg/cli"
)

var attemptsCmd = &cobra.Command{
	Use:   "attempts <user>",
	Short: "List the verification audit log for a user",
	Long: `Attempts lists a user's verification history, newest first. Every
verify run is recorded: unlocks, denials, and attempts that failed
before a full decision.

Example:
  voicelock attempts alice --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := args[0]

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return fmt.Errorf("failed to read 'limit' flag: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.Attempts(cmd.Context(), userID, limit)
		if err != nil {
			return err
		}

		if isStructured() {
			return outputResult(recs)
		}

		if len(recs) == 0 {
			fmt.Printf("No attempts recorded for %q\n", userID)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tLIVENESS\tMATCH\tRESULT")
		for _, rec := range recs {
			result := "denied"
			switch {
			case rec.Unlocked:
				result = "unlocked"
			case rec.Error != "":
				result = "error: " + rec.Error
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				rec.At.Local().Format("2006-01-02 15:04:05"),
				cli.FormatScore(rec.LivenessScore),
				cli.FormatScore(rec.MatchScore),
				result)
		}
		return w.Flush()
	},
}

func init() {
	attemptsCmd.Flags().Int("limit", 20, "maximum attempts to list (0 for all)")
	rootCmd.AddCommand(attemptsCmd)
}
