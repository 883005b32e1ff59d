// Package enroll persists voice templates and the authentication audit
// log. It is the storage collaborator of the voiceauth engine: templates
// go in whole on enrollment, come out whole for matching, and every
// verification attempt is appended to a per-user log.
//
// Two backends are provided: Badger for production use and Memory for
// testing. Both speak msgpack on the wire and validate the feature
// layout at the storage boundary, so a template written by an older
// extractor build surfaces as voiceauth.ErrDimensionMismatch instead of
// being silently scored.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/voicelock/voicelock/pkg/voiceauth"
)

// Sentinel errors.
var (
	// ErrNoTemplate is returned when a user has no enrolled template.
	ErrNoTemplate = errors.New("enroll: no template enrolled")

	// ErrInvalidUser is returned for user IDs the store cannot keep:
	// empty, or containing key-layout or path characters.
	ErrInvalidUser = errors.New("enroll: invalid user id")
)

// TemplateRecord is the stored form of one user's enrolled voice
// template. The feature sections are kept apart, as the engine lays
// them out, so layout skew is detectable before any arithmetic.
type TemplateRecord struct {
	UserID   string    `json:"user_id" msgpack:"user_id"`
	Version  int       `json:"version" msgpack:"version"`
	Cepstral []float64 `json:"cepstral" msgpack:"cepstral"`
	Pitch    []float64 `json:"pitch" msgpack:"pitch"`
	Spectral []float64 `json:"spectral" msgpack:"spectral"`
	Quality  uint8     `json:"quality" msgpack:"quality"`

	// EnrolledAt is when the template was (re-)created.
	EnrolledAt time.Time `json:"enrolled_at" msgpack:"enrolled_at"`

	// SourceSHA256 is the hex digest of the enrollment recording, if the
	// caller archived one. It ties a template to its provenance.
	SourceSHA256 string `json:"source_sha256,omitempty" msgpack:"source_sha256,omitempty"`
}

// NewTemplateRecord builds a record from an extracted vector. The
// feature sections are copied; the record does not alias the vector.
func NewTemplateRecord(userID string, v voiceauth.FeatureVector, sourceSHA256 string, at time.Time) TemplateRecord {
	return TemplateRecord{
		UserID:       userID,
		Version:      v.Version,
		Cepstral:     append([]float64(nil), v.Cepstral...),
		Pitch:        append([]float64(nil), v.Pitch...),
		Spectral:     append([]float64(nil), v.Spectral...),
		Quality:      uint8(v.Quality),
		EnrolledAt:   at.UTC(),
		SourceSHA256: sourceSHA256,
	}
}

// Vector reconstructs the feature vector, validating the stored layout
// first. Skew comes back as voiceauth.ErrDimensionMismatch so callers
// can tell "re-enroll needed" from other storage failures.
func (r TemplateRecord) Vector() (voiceauth.FeatureVector, error) {
	if r.Version != voiceauth.LayoutVersion {
		return voiceauth.FeatureVector{}, fmt.Errorf("%w: template stored as layout v%d, current layout is v%d",
			voiceauth.ErrDimensionMismatch, r.Version, voiceauth.LayoutVersion)
	}
	if len(r.Cepstral) == 0 || len(r.Cepstral)%4 != 0 || len(r.Pitch) != 2 || len(r.Spectral) != 3 {
		return voiceauth.FeatureVector{}, fmt.Errorf("%w: template sections %d+%d+%d are malformed",
			voiceauth.ErrDimensionMismatch, len(r.Cepstral), len(r.Pitch), len(r.Spectral))
	}
	return voiceauth.FeatureVector{
		Version:  r.Version,
		Cepstral: append([]float64(nil), r.Cepstral...),
		Pitch:    append([]float64(nil), r.Pitch...),
		Spectral: append([]float64(nil), r.Spectral...),
		Quality:  voiceauth.Quality(r.Quality),
	}, nil
}

// AttemptRecord is one entry of the per-user authentication audit log.
type AttemptRecord struct {
	ID     string    `json:"id" msgpack:"id"`
	UserID string    `json:"user_id" msgpack:"user_id"`
	At     time.Time `json:"at" msgpack:"at"`

	LivenessScore float64 `json:"liveness_score" msgpack:"liveness_score"`
	MatchScore    float64 `json:"match_score" msgpack:"match_score"`
	LivenessPass  bool    `json:"liveness_pass" msgpack:"liveness_pass"`
	MatchPass     bool    `json:"match_pass" msgpack:"match_pass"`
	Unlocked      bool    `json:"unlocked" msgpack:"unlocked"`

	// Error records why an attempt never reached a decision, e.g. an
	// extraction failure. Empty for attempts that were fully scored.
	Error string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// NewAttemptRecord builds an audit entry from a decision. A non-nil err
// marks the attempt as failed before scoring completed; the partial
// decision is still recorded.
func NewAttemptRecord(userID string, d voiceauth.Decision, err error) AttemptRecord {
	rec := AttemptRecord{
		ID:            uuid.NewString(),
		UserID:        userID,
		At:            time.Now().UTC(),
		LivenessScore: d.Liveness.Score,
		MatchScore:    d.Match.Score,
		LivenessPass:  d.LivenessPass,
		MatchPass:     d.MatchPass,
		Unlocked:      d.Unlocked,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// Candidate is one ranked result of an identification query.
type Candidate struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

// Matcher scores a probe vector against a template. *voiceauth.Engine
// satisfies it; tests substitute simpler scorers.
type Matcher interface {
	Match(live, template voiceauth.FeatureVector) (voiceauth.MatchScore, error)
}

// Store is the persistence contract for templates and attempts.
type Store interface {
	// PutTemplate replaces the user's template wholesale. Re-enrollment
	// never mutates a stored template in place.
	PutTemplate(ctx context.Context, rec TemplateRecord) error

	// GetTemplate returns the user's template, or ErrNoTemplate.
	GetTemplate(ctx context.Context, userID string) (TemplateRecord, error)

	// DeleteTemplate removes the user's template. Attempts are kept:
	// the audit log outlives enrollment. No error if absent.
	DeleteTemplate(ctx context.Context, userID string) error

	// Users lists all enrolled user IDs in lexicographic order.
	Users(ctx context.Context) ([]string, error)

	// AppendAttempt adds one entry to the user's audit log.
	AppendAttempt(ctx context.Context, rec AttemptRecord) error

	// Attempts returns the user's audit log, newest first, at most
	// limit entries (all when limit <= 0).
	Attempts(ctx context.Context, userID string, limit int) ([]AttemptRecord, error)

	// Identify ranks every enrolled template against the probe vector
	// and returns the top k candidates (all when k <= 0), best first.
	// A stored template with a skewed layout fails the whole query:
	// stale templates must be re-enrolled, not silently skipped.
	Identify(ctx context.Context, m Matcher, probe voiceauth.FeatureVector, k int) ([]Candidate, error)

	// Close releases backend resources.
	Close() error
}

// validateUser rejects user IDs that would break the key layout or the
// archive's object paths.
func validateUser(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUser)
	}
	for _, r := range userID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-' || r == '@':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidUser, userID, r)
		}
	}
	return nil
}

// rank scores the records against the probe and returns the top k.
// Ties break on user ID so results are stable.
func rank(m Matcher, recs []TemplateRecord, probe voiceauth.FeatureVector, k int) ([]Candidate, error) {
	cands := make([]Candidate, 0, len(recs))
	for _, rec := range recs {
		tpl, err := rec.Vector()
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", rec.UserID, err)
		}
		score, err := m.Match(probe, tpl)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", rec.UserID, err)
		}
		cands = append(cands, Candidate{UserID: rec.UserID, Score: score.Score})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].UserID < cands[j].UserID
	})
	if k > 0 && len(cands) > k {
		cands = cands[:k]
	}
	return cands, nil
}
