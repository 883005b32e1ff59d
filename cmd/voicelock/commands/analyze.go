package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voicelock/voicelock/pkg/cli"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <audio-file>",
	Short: "Show extraction and liveness diagnostics for a recording",
	Long: `Analyze runs the extraction pipeline on a recording without touching
any template: liveness sub-scores, pitch statistics, spectral shape,
and quality flags. Useful for debugging why an enrollment or
verification behaves unexpectedly.

Structured output (--json/--yaml) includes the full feature vector.

Example:
  voicelock analyze probe.wav
  voicelock analyze probe.wav --json | jq .liveness_detail`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

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

		liv := eng.ScoreLiveness(rec.Waveform)
		engCfg := eng.Config()

		res := analyzeResult{
			Audio:         path,
			SampleRate:    rec.SampleRate,
			Channels:      rec.Channels,
			Duration:      rec.Duration.Seconds(),
			SizeBytes:     int64(len(rec.Raw)),
			LivenessScore: liv.Score,
			LivenessPass:  liv.Pass(engCfg.LivenessThreshold),
			Liveness: subScores{
				Flux:         liv.Flux,
				HighFreq:     liv.HighFreq,
				ZeroCross:    liv.ZeroCross,
				DynamicRange: liv.DynamicRange,
				NoiseFloor:   liv.NoiseFloor,
			},
		}

		vec, extractErr := eng.Extract(rec.Waveform)
		if extractErr != nil {
			res.Error = extractErr.Error()
		} else {
			res.Quality = vec.Quality.String()
			res.PitchMeanHz = vec.Pitch[0]
			res.PitchStdHz = vec.Pitch[1]
			res.AveragePower = vec.Spectral[0]
			res.ZeroCrossRate = vec.Spectral[1]
			res.CentroidHz = vec.Spectral[2]
			res.Vector = vec.Values()
		}

		if isStructured() {
			if err := outputResult(res); err != nil {
				return err
			}
			return extractErr
		}

		fmt.Printf("%s  %d Hz, %d ch, %s, %s\n",
			path, rec.SampleRate, rec.Channels,
			cli.FormatDuration(rec.Duration), cli.FormatBytes(res.SizeBytes))
		fmt.Println(styles.ScoreBar("liveness", liv.Score, engCfg.LivenessThreshold, scoreBarWidth))
		fmt.Println(styles.SubScoreBar("  flux", liv.Flux, scoreBarWidth))
		fmt.Println(styles.SubScoreBar("  highfreq", liv.HighFreq, scoreBarWidth))
		fmt.Println(styles.SubScoreBar("  zerocross", liv.ZeroCross, scoreBarWidth))
		fmt.Println(styles.SubScoreBar("  dynrange", liv.DynamicRange, scoreBarWidth))
		fmt.Println(styles.SubScoreBar("  noisefloor", liv.NoiseFloor, scoreBarWidth))

		if extractErr != nil {
			cli.PrintWarning("extraction failed: %v", extractErr)
			return extractErr
		}

		if vec.Pitch[0] > 0 {
			fmt.Printf("pitch     %.1f Hz ± %.1f\n", res.PitchMeanHz, res.PitchStdHz)
		} else {
			fmt.Println("pitch     (unvoiced)")
		}
		fmt.Printf("spectral  power %.4f  zcr %.4f  centroid %.0f Hz\n",
			res.AveragePower, res.ZeroCrossRate, res.CentroidHz)
		printQualityWarnings(vec.Quality)
		return nil
	},
}

type analyzeResult struct {
	Audio      string  `json:"audio" yaml:"audio"`
	SampleRate int     `json:"sample_rate" yaml:"sample_rate"`
	Channels   int     `json:"channels" yaml:"channels"`
	Duration   float64 `json:"duration_seconds" yaml:"duration_seconds"`
	SizeBytes  int64   `json:"size_bytes" yaml:"size_bytes"`

	LivenessScore float64   `json:"liveness_score" yaml:"liveness_score"`
	LivenessPass  bool      `json:"liveness_pass" yaml:"liveness_pass"`
	Liveness      subScores `json:"liveness_detail" yaml:"liveness_detail"`

	Quality       string    `json:"quality,omitempty" yaml:"quality,omitempty"`
	PitchMeanHz   float64   `json:"pitch_mean_hz" yaml:"pitch_mean_hz"`
	PitchStdHz    float64   `json:"pitch_std_hz" yaml:"pitch_std_hz"`
	AveragePower  float64   `json:"average_power" yaml:"average_power"`
	ZeroCrossRate float64   `json:"zero_cross_rate" yaml:"zero_cross_rate"`
	CentroidHz    float64   `json:"spectral_centroid_hz" yaml:"spectral_centroid_hz"`
	Vector        []float64 `json:"vector,omitempty" yaml:"vector,omitempty"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
