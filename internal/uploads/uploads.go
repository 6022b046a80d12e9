// Package uploads is a disk-backed blob store for post media. Files land
// under a per-user directory and are served statically by the HTTP server
// under the configured base URL.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devshare/devshare/pkg/config"
	"github.com/devshare/devshare/pkg/logging"
)

var (
	// ErrInvalidName is returned when the scrubbed filename is empty
	ErrInvalidName = errors.New("invalid file name")
	// ErrNoOwner is returned when no user id accompanies the call
	ErrNoOwner = errors.New("owner uid is required")
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Store writes uploads to disk and resolves their public URLs
type Store struct {
	root    string
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a store rooted at the configured directory
func New(cfg config.UploadsConfig) *Store {
	return &Store{
		root:    cfg.Root,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  logging.GetLogger().With(zap.String("service", "uploads")),
		now:     time.Now,
	}
}

// ScrubName replaces every character outside [a-zA-Z0-9._-] with an
// underscore and strips any path components
func ScrubName(name string) string {
	name = filepath.Base(name)
	return unsafeChars.ReplaceAllString(name, "_")
}

// Save writes the stream to <root>/<uid>/<prefix>_<unixms>_<name> and returns
// the public URL for the stored file. The timestamp keeps concurrent uploads
// of the same filename from colliding.
func (s *Store) Save(uid, prefix, filename string, r io.Reader) (string, error) {
	if uid == "" {
		return "", ErrNoOwner
	}
	name := ScrubName(filename)
	if name == "" || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	prefix = ScrubName(prefix)
	if prefix == "" || prefix == "." {
		prefix = "file"
	}

	dir := filepath.Join(s.root, ScrubName(uid))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}

	stored := fmt.Sprintf("%s_%d_%s", prefix, s.now().UnixMilli(), name)
	dst, err := os.Create(filepath.Join(dir, stored))
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("writing upload: %w", err)
	}

	url := s.baseURL + path.Join("/", ScrubName(uid), stored)
	s.logger.Info("upload stored", zap.String("uid", uid), zap.String("file", stored))
	return url, nil
}

// PurgeUser removes the user's upload directory. Best effort: the error is
// returned for logging but callers treat the purge as advisory.
func (s *Store) PurgeUser(uid string) error {
	if uid == "" {
		return ErrNoOwner
	}
	dir := filepath.Join(s.root, ScrubName(uid))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("purging uploads for %s: %w", uid, err)
	}
	return nil
}

// Root returns the directory uploads are stored under, for static serving
func (s *Store) Root() string {
	return s.root
}

// BaseURL returns the public prefix uploads are served from
func (s *Store) BaseURL() string {
	return s.baseURL
}
