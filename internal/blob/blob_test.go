package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patwa/internal/config"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "audio/translated_wagwan.mp3", want: "audio/translated_wagwan.mp3"},
		{key: "/audio//a.mp3", want: "audio/a.mp3"},
		{key: `audio\a.mp3`, want: "audio/a.mp3"},
		{key: "audio/mi_soon..come.mp3", want: "audio/mi_soon..come.mp3"},
		{key: "../etc/passwd", wantErr: true},
		{key: "audio/../../x", wantErr: true},
		{key: "", wantErr: true},
		{key: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "media")
	s, err := NewLocalStore(root)
	require.NoError(t, err)

	key, err := s.Put(ctx, "audio/translated_wagwan?.mp3", strings.NewReader("ID3"), 3, "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "audio/translated_wagwan?.mp3", key)

	data, err := os.ReadFile(filepath.Join(root, "audio", "translated_wagwan?.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "ID3", string(data))

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "ID3", string(got))

	u, err := s.URL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "/media/audio/translated_wagwan%3F.mp3", u)

	_, err = s.Put(ctx, "../escape", strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = s.Open(ctx, "audio/missing.mp3")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "a.mp3", strings.NewReader("first"), -1, "")
	require.NoError(t, err)
	_, err = s.Put(ctx, "a.mp3", strings.NewReader("second"), -1, "")
	require.NoError(t, err)

	p, err := s.Path("a.mp3")
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalStoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(ctx, "a.mp3", strings.NewReader("data"), 4, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), config.StorageConfig{DataDir: dir}, zerolog.Nop())
	require.NoError(t, err)
	local, ok := s.(*LocalStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "media"), local.Root())
}

// TestMinIOStore runs against a real server when MINIO_TEST_ENDPOINT is set,
// for example a local `minio server` with the default credentials.
func TestMinIOStore(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set")
	}
	ctx := context.Background()
	cfg := config.MinIOConfig{
		Endpoint:  endpoint,
		AccessKey: envOr("MINIO_TEST_ACCESS_KEY", "minioadmin"),
		SecretKey: envOr("MINIO_TEST_SECRET_KEY", "minioadmin"),
		Bucket:    "patwa-test",
	}
	s, err := NewMinIOStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)

	key, err := s.Put(ctx, "audio/test.mp3", strings.NewReader("ID3"), 3, "audio/mpeg")
	require.NoError(t, err)

	rc, err := s.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "ID3", string(data))

	u, err := s.URL(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, u, "X-Amz-Signature")

	_, err = s.Open(ctx, "audio/missing.mp3")
	assert.Error(t, err)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
