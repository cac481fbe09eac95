package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func localModel(t *testing.T) options {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"generated_text":"I am coming soon"}]`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("LOCAL_MODEL_ENDPOINT", srv.URL)
	t.Setenv("TRANSLATION_REVIEW", "false")
	return options{
		configPath: filepath.Join(t.TempDir(), "missing.yaml"),
		provider:   "local",
	}
}

func TestRunPrintsJSON(t *testing.T) {
	opts := localModel(t)
	opts.asJSON = true

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, " Mi soon come ", opts))

	var got result
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "Mi soon come", got.Dialect)
	assert.Equal(t, "I am coming soon", got.Translated)
	assert.Nil(t, got.Review)
}

func TestRunReportsWriteErrors(t *testing.T) {
	for _, asJSON := range []bool{true, false} {
		opts := localModel(t)
		opts.asJSON = asJSON

		err := run(context.Background(), brokenWriter{}, "Mi soon come", opts)
		require.Error(t, err, "json=%v", asJSON)
		assert.Contains(t, err.Error(), "stdout closed")
	}
}

func TestRunUnknownProvider(t *testing.T) {
	opts := localModel(t)
	opts.provider = "carrier-pigeon"

	err := run(context.Background(), &bytes.Buffer{}, "Wagwan", opts)
	assert.ErrorContains(t, err, "unknown translation provider")
}
