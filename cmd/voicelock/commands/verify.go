package commands

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicelock/voicelock/pkg/cli"
	"github.com/voicelock/voicelock/pkg/enroll"
	"github.com/voicelock/voicelock/pkg/voiceauth"
)

const scoreBarWidth = 20

var verifyCmd = &cobra.Command{
	Use:   "verify <user> <audio-file>",
	Short: "Verify a recording against an enrolled template",
	Long: `Verify runs the full authentication decision for a recording: the
liveness gate (is this a live voice, not a replay or synthesis?) and
the match gate (does it sound like the enrolled user?). Both must pass
to unlock. Every verification is appended to the user's attempt log.

Exit status is 0 only when the recording unlocks.

With --batch, a YAML or JSON file of {user, audio} pairs is verified
concurrently; results are reported in input order and the exit status
is 0 only when every recording unlocks.

Example:
  voicelock verify alice probe.wav
  voicelock verify --batch checks.yaml --json`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		batchFile, err := cmd.Flags().GetString("batch")
		if err != nil {
			return fmt.Errorf("failed to read 'batch' flag: %w", err)
		}
		if batchFile == "" && len(args) != 2 {
			return fmt.Errorf("verify needs <user> <audio-file> (or --batch <file>)")
		}
		if batchFile != "" && len(args) != 0 {
			return fmt.Errorf("--batch replaces the <user> <audio-file> arguments")
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

		if batchFile != "" {
			return runBatch(cmd.Context(), eng, store, minDur, maxDur, batchFile)
		}

		res, err := verifyOne(cmd.Context(), eng, store, minDur, maxDur, args[0], args[1])
		if isStructured() {
			if outErr := outputResult(res); outErr != nil {
				return outErr
			}
		} else {
			renderDecision(res, eng.Config())
		}
		if err != nil {
			return err
		}
		if !res.Unlocked {
			return ErrDenied
		}
		return nil
	},
}

// verifyItem is one entry of a --batch request file.
type verifyItem struct {
	User  string `json:"user" yaml:"user"`
	Audio string `json:"audio" yaml:"audio"`
}

// verifyResult is the reportable outcome of one verification.
type verifyResult struct {
	UserID        string  `json:"user_id" yaml:"user_id"`
	Audio         string  `json:"audio,omitempty" yaml:"audio,omitempty"`
	Unlocked      bool    `json:"unlocked" yaml:"unlocked"`
	LivenessScore float64 `json:"liveness_score" yaml:"liveness_score"`
	LivenessPass  bool    `json:"liveness_pass" yaml:"liveness_pass"`
	MatchScore    float64 `json:"match_score" yaml:"match_score"`
	MatchPass     bool    `json:"match_pass" yaml:"match_pass"`

	Liveness subScores `json:"liveness_detail" yaml:"liveness_detail"`

	AttemptID string `json:"attempt_id,omitempty" yaml:"attempt_id,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// subScores breaks the liveness score into its components.
type subScores struct {
	Flux         float64 `json:"flux" yaml:"flux"`
	HighFreq     float64 `json:"highfreq" yaml:"highfreq"`
	ZeroCross    float64 `json:"zerocross" yaml:"zerocross"`
	DynamicRange float64 `json:"dynamicrange" yaml:"dynamicrange"`
	NoiseFloor   float64 `json:"noisefloor" yaml:"noisefloor"`
}

// verifyOne authenticates one recording against one user's template and
// appends the outcome to the attempt log. The returned result carries
// whatever was scored even when err is non-nil: the liveness score is
// still reported when extraction fails mid-decision.
func verifyOne(ctx context.Context, eng *voiceauth.Engine, store enroll.Store, minDur, maxDur time.Duration, userID, audioPath string) (verifyResult, error) {
	res := verifyResult{UserID: userID, Audio: audioPath}

	tpl, err := store.GetTemplate(ctx, userID)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	tplVec, err := tpl.Vector()
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	rec, err := loadRecording(audioPath, minDur, maxDur)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	d, authErr := eng.Authenticate(rec.Waveform, tplVec)
	res.Unlocked = d.Unlocked
	res.LivenessScore = d.Liveness.Score
	res.LivenessPass = d.LivenessPass
	res.MatchScore = d.Match.Score
	res.MatchPass = d.MatchPass
	res.Liveness = subScores{
		Flux:         d.Liveness.Flux,
		HighFreq:     d.Liveness.HighFreq,
		ZeroCross:    d.Liveness.ZeroCross,
		DynamicRange: d.Liveness.DynamicRange,
		NoiseFloor:   d.Liveness.NoiseFloor,
	}
	if authErr != nil {
		res.Error = authErr.Error()
	}

	// The decision ran, so it goes on the record, denials and partial
	// failures included.
	attempt := enroll.NewAttemptRecord(userID, d, authErr)
	if err := store.AppendAttempt(ctx, attempt); err != nil {
		return res, fmt.Errorf("append attempt record: %w", err)
	}
	res.AttemptID = attempt.ID

	return res, authErr
}

// renderDecision prints the human-readable scorecard.
func renderDecision(res verifyResult, cfg voiceauth.Config) {
	fmt.Println(styles.Verdict(res.Unlocked))
	fmt.Println(styles.ScoreBar("liveness", res.LivenessScore, cfg.LivenessThreshold, scoreBarWidth))
	fmt.Println(styles.ScoreBar("match", res.MatchScore, cfg.MatchThreshold, scoreBarWidth))
	fmt.Println(styles.SubScoreBar("  flux", res.Liveness.Flux, scoreBarWidth))
	fmt.Println(styles.SubScoreBar("  highfreq", res.Liveness.HighFreq, scoreBarWidth))
	fmt.Println(styles.SubScoreBar("  zerocross", res.Liveness.ZeroCross, scoreBarWidth))
	fmt.Println(styles.SubScoreBar("  dynrange", res.Liveness.DynamicRange, scoreBarWidth))
	fmt.Println(styles.SubScoreBar("  noisefloor", res.Liveness.NoiseFloor, scoreBarWidth))
	if res.Error != "" {
		cli.PrintWarning("decision incomplete: %s", res.Error)
	}
}

// runBatch verifies every entry of a request file concurrently and
// reports in input order.
func runBatch(ctx context.Context, eng *voiceauth.Engine, store enroll.Store, minDur, maxDur time.Duration, batchFile string) error {
	var items []verifyItem
	if err := cli.LoadRequest(batchFile, &items); err != nil {
		return fmt.Errorf("load batch file: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("batch file %s holds no requests", batchFile)
	}

	results, errs := verifyAll(ctx, eng, store, minDur, maxDur, items)

	if isStructured() {
		if err := outputResult(results); err != nil {
			return err
		}
	} else {
		unlocked := 0
		for _, res := range results {
			fmt.Printf("%s %-12s %-24s liveness %s  match %s\n",
				styles.Gate(res.Unlocked), res.UserID, res.Audio,
				cli.FormatScore(res.LivenessScore), cli.FormatScore(res.MatchScore))
			if res.Error != "" {
				cli.PrintWarning("%s: %s", res.UserID, res.Error)
			}
			if res.Unlocked {
				unlocked++
			}
		}
		fmt.Printf("%d/%d unlocked\n", unlocked, len(results))
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	for _, res := range results {
		if !res.Unlocked {
			return ErrDenied
		}
	}
	return nil
}

// verifyAll fans the batch out over a bounded worker pool. The engine
// is stateless after construction and the store serializes writes, so
// items only share read-only state.
func verifyAll(ctx context.Context, eng *voiceauth.Engine, store enroll.Store, minDur, maxDur time.Duration, items []verifyItem) ([]verifyResult, []error) {
	results := make([]verifyResult, len(items))
	errs := make([]error, len(items))

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item verifyItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = verifyOne(ctx, eng, store, minDur, maxDur, item.User, item.Audio)
		}(i, item)
	}
	wg.Wait()

	return results, errs
}

func init() {
	verifyCmd.Flags().String("batch", "", "verify a YAML/JSON file of {user, audio} pairs")
	rootCmd.AddCommand(verifyCmd)
}
