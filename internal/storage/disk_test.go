package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/campusride/internal/domain"
	"github.com/pkordes/campusride/internal/storage"
)

func upload(body string) domain.Upload {
	return domain.Upload{ContentType: "image/png", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestDiskStore_Upload(t *testing.T) {
	root := t.TempDir()
	s, err := storage.NewDiskStore(root, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), "groups/abc/1700000000000.png", upload("png-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/groups/abc/1700000000000.png", url)

	got, err := os.ReadFile(filepath.Join(root, "groups", "abc", "1700000000000.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(got))
}

func TestDiskStore_Upload_RejectsEscapingKeys(t *testing.T) {
	s, err := storage.NewDiskStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../outside.png", "a/../../outside.png"} {
		_, err := s.Upload(context.Background(), key, upload("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidKey, "key %q", key)
	}
}

func TestDiskStore_Upload_CancelledContext(t *testing.T) {
	s, err := storage.NewDiskStore(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Upload(ctx, "groups/abc/1.png", upload("x"))

	assert.ErrorIs(t, err, context.Canceled)
}
