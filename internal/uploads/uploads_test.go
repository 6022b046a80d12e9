package uploads

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devshare/devshare/pkg/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(config.UploadsConfig{Root: t.TempDir(), BaseURL: "/uploads"})
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestScrubName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.png", "photo.png"},
		{"my photo.png", "my_photo.png"},
		{"über cool!.jpg", "_ber_cool_.jpg"},
		{"../../etc/passwd", "passwd"},
		{"weird/..name", "..name"},
		{"a-b_c.d", "a-b_c.d"},
	}
	for _, tt := range tests {
		if got := ScrubName(tt.in); got != tt.want {
			t.Errorf("ScrubName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSaveWritesFileAndReturnsURL(t *testing.T) {
	s := newTestStore(t)

	url, err := s.Save("u1", "image", "cover photo.png", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/u1/image_1700000000000_cover_photo.png", url)

	data, err := os.ReadFile(filepath.Join(s.Root(), "u1", "image_1700000000000_cover_photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestSaveRejections(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("", "image", "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNoOwner)

	_, err = s.Save("u1", "image", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = s.Save("u1", "image", "..", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSaveScrubsOwnerPath(t *testing.T) {
	s := newTestStore(t)

	url, err := s.Save("../evil", "image", "a.png", strings.NewReader("x"))
	require.NoError(t, err)
	assert.NotContains(t, url, "..")

	// Nothing escaped the root
	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "evil", entries[0].Name())
}

func TestPurgeUser(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("u1", "image", "a.png", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = s.Save("u2", "image", "b.png", strings.NewReader("y"))
	require.NoError(t, err)

	require.NoError(t, s.PurgeUser("u1"))

	_, err = os.Stat(filepath.Join(s.Root(), "u1"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "u1 dir should be gone")
	_, err = os.Stat(filepath.Join(s.Root(), "u2"))
	assert.NoError(t, err, "other users untouched")

	// Purging an absent user is not an error
	assert.NoError(t, s.PurgeUser("u3"))
	assert.ErrorIs(t, s.PurgeUser(""), ErrNoOwner)
}
