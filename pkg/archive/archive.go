// Package archive keeps the raw enrollment recording for each user.
//
// Templates are derived data: when the feature layout changes, stored
// vectors become unusable and every user would need to re-record. The
// archive is the remedy: it holds the original WAV, so templates can
// be re-extracted offline after an extractor upgrade.
//
// Recordings are stored under {user}/enrollment.wav on a pluggable
// Backend: local disk for single-host setups, S3 for anything shared.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Backend is the minimal file-oriented storage an Archive needs. Paths
// are forward-slash separated and relative to the backend root.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Read opens the named file for reading. A missing file is an error
	// wrapping os.ErrNotExist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating any previous
	// content. The caller must close the writer to flush.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// Archive stores one enrollment recording per user.
type Archive struct {
	store Backend
}

// New creates an Archive over the given backend.
func New(store Backend) *Archive {
	return &Archive{store: store}
}

// recordingPath maps a user to their object path. User IDs are already
// constrained by the enrollment store; the checks here only keep a
// malformed ID from escaping the archive root.
func recordingPath(userID string) (string, error) {
	if userID == "" || strings.ContainsAny(userID, "/\\") || strings.Contains(userID, "..") {
		return "", fmt.Errorf("archive: invalid user id %q", userID)
	}
	return userID + "/enrollment.wav", nil
}

// Save streams the recording into the archive, replacing any previous
// one, and returns the hex SHA-256 of the stored bytes. The digest goes
// into the template record so a template can be traced to its source.
func (a *Archive) Save(ctx context.Context, userID string, r io.Reader) (string, error) {
	path, err := recordingPath(userID)
	if err != nil {
		return "", err
	}
	w, err := a.store.Write(ctx, path)
	if err != nil {
		return "", fmt.Errorf("archive: write %s: %w", path, err)
	}
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(w, h), r); err != nil {
		w.Close()
		return "", fmt.Errorf("archive: store %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("archive: store %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Open returns the user's enrollment recording for reading.
func (a *Archive) Open(ctx context.Context, userID string) (io.ReadCloser, error) {
	path, err := recordingPath(userID)
	if err != nil {
		return nil, err
	}
	return a.store.Read(ctx, path)
}

// Delete removes the user's recording. Idempotent.
func (a *Archive) Delete(ctx context.Context, userID string) error {
	path, err := recordingPath(userID)
	if err != nil {
		return err
	}
	return a.store.Delete(ctx, path)
}

// Exists reports whether a recording is archived for the user.
func (a *Archive) Exists(ctx context.Context, userID string) (bool, error) {
	path, err := recordingPath(userID)
	if err != nil {
		return false, err
	}
	return a.store.Exists(ctx, path)
}
