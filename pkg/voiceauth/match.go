package voiceauth

import (
	"fmt"
	"math"
)

// MatchScore is the similarity between a live feature vector and an
// enrolled template, in [0, 1].
type MatchScore struct {
	Score float64
}

// Pass reports whether the score clears threshold.
func (s MatchScore) Pass(threshold float64) bool {
	return s.Score >= threshold
}

// Match computes the cosine similarity between the live vector and the
// template. Negative cosines clamp to 0: anti-correlated voices are not
// more suspicious than orthogonal ones, both are simply non-matches. A
// zero-magnitude vector on either side yields score 0 without error.
func (e *Engine) Match(live, template FeatureVector) (MatchScore, error) {
	if !sameLayout(live, template) {
		return MatchScore{}, fmt.Errorf("%w: live %s vs template %s",
			ErrDimensionMismatch, live.layout(), template.layout())
	}

	a := live.Values()
	b := template.Values()

	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return MatchScore{}, nil
	}

	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return MatchScore{Score: clamp01(cos)}, nil
}

// Decision is the outcome of a full authentication attempt.
type Decision struct {
	Liveness LivenessScore
	Match    MatchScore

	LivenessPass bool
	MatchPass    bool
	Unlocked     bool
}

// Authenticate runs the complete pipeline against one enrolled template:
// liveness scoring, feature extraction, and matching. Both gates are
// always evaluated so that callers can log and audit each independently;
// a liveness failure does not hide the match result or vice versa.
//
// If extraction fails the returned Decision still carries the liveness
// verdict alongside the error.
func (e *Engine) Authenticate(w Waveform, template FeatureVector) (Decision, error) {
	d := Decision{Liveness: e.ScoreLiveness(w)}
	d.LivenessPass = d.Liveness.Pass(e.cfg.LivenessThreshold)

	live, err := e.Extract(w)
	if err != nil {
		return d, fmt.Errorf("extract live features: %w", err)
	}

	d.Match, err = e.Match(live, template)
	if err != nil {
		return d, fmt.Errorf("match against template: %w", err)
	}
	d.MatchPass = d.Match.Pass(e.cfg.MatchThreshold)

	d.Unlocked = d.LivenessPass && d.MatchPass
	return d, nil
}
