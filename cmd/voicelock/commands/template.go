package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicelock/voicelock/pkg/cli"
	"github.com/voicelock/voicelock/pkg/voiceauth"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Inspect and manage stored templates",
	Long: `Inspect and manage the enrolled voice templates.

Templates are derived data: deleting one does not touch the archived
enrollment recording unless --recording is given.`,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled users",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		users, err := store.Users(ctx)
		if err != nil {
			return err
		}

		summaries := make([]templateSummary, 0, len(users))
		for _, user := range users {
			tpl, err := store.GetTemplate(ctx, user)
			if err != nil {
				return fmt.Errorf("load template %q: %w", user, err)
			}
			summaries = append(summaries, templateSummary{
				UserID:       tpl.UserID,
				EnrolledAt:   tpl.EnrolledAt,
				Version:      tpl.Version,
				Quality:      qualityLabel(tpl.Quality),
				SourceSHA256: tpl.SourceSHA256,
			})
		}

		if isStructured() {
			return outputResult(summaries)
		}

		if len(summaries) == 0 {
			fmt.Println("No users enrolled")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USER\tENROLLED\tVERSION\tQUALITY\tSOURCE")
		for _, s := range summaries {
			source := "(none)"
			if s.SourceSHA256 != "" {
				source = s.SourceSHA256[:12] + "…"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				s.UserID, s.EnrolledAt.Local().Format("2006-01-02 15:04:05"),
				s.Version, s.Quality, source)
		}
		return w.Flush()
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Display a stored template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := args[0]

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		tpl, err := store.GetTemplate(cmd.Context(), userID)
		if err != nil {
			return err
		}

		if isStructured() {
			return outputResult(tpl)
		}

		fmt.Printf("User:      %s\n", tpl.UserID)
		fmt.Printf("Enrolled:  %s\n", tpl.EnrolledAt.Local().Format(time.RFC3339))
		fmt.Printf("Version:   %d\n", tpl.Version)
		fmt.Printf("Quality:   %s\n", qualityLabel(tpl.Quality))
		fmt.Printf("Sections:  cepstral %d, pitch %d, spectral %d\n",
			len(tpl.Cepstral), len(tpl.Pitch), len(tpl.Spectral))
		if tpl.SourceSHA256 != "" {
			fmt.Printf("Source:    sha256:%s\n", tpl.SourceSHA256)
		}
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <user>",
	Short: "Delete a stored template",
	Long: `Delete a user's template. The attempt log is kept for audit, and the
archived recording is kept unless --recording is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := args[0]
		ctx := cmd.Context()

		withRecording, err := cmd.Flags().GetBool("recording")
		if err != nil {
			return fmt.Errorf("failed to read 'recording' flag: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteTemplate(ctx, userID); err != nil {
			return err
		}

		if withRecording {
			arc, err := buildArchive(ctx)
			if err != nil {
				return fmt.Errorf("template deleted, but archive setup failed: %w", err)
			}
			if arc != nil {
				if err := arc.Delete(ctx, userID); err != nil {
					return fmt.Errorf("template deleted, but recording deletion failed: %w", err)
				}
			}
		}

		cli.PrintSuccess("Deleted template for %q", userID)
		return nil
	},
}

type templateSummary struct {
	UserID       string    `json:"user_id" yaml:"user_id"`
	EnrolledAt   time.Time `json:"enrolled_at" yaml:"enrolled_at"`
	Version      int       `json:"version" yaml:"version"`
	Quality      string    `json:"quality" yaml:"quality"`
	SourceSHA256 string    `json:"source_sha256,omitempty" yaml:"source_sha256,omitempty"`
}

// qualityLabel renders the stored quality bitmask.
func qualityLabel(q uint8) string {
	return voiceauth.Quality(q).String()
}

func init() {
	templateDeleteCmd.Flags().Bool("recording", false, "also delete the archived enrollment recording")

	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateDeleteCmd)
	rootCmd.AddCommand(templateCmd)
}
