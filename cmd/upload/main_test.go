package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"stockrelay/internal/apperr"
)

type recorder struct {
	hits   atomic.Int32
	status int
	body   string
	key    string
	path   string
	ctype  string
	upload string
	url    string
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec.hits.Add(1)
	rec.key, rec.path, rec.ctype = r.Header.Get("x-api-key"), r.URL.Path, r.Header.Get("Content-Type")
	b, _ := io.ReadAll(r.Body)
	rec.upload = string(b)
	w.WriteHeader(rec.status)
	_, _ = w.Write([]byte(rec.body))
}

// setup writes a config pointing at a fake Open Cloud server and a module file.
func setup(t *testing.T, rec *recorder) (configPath, filePath string) {
	t.Helper()
	for _, k := range []string{"CONFIG_FILE", "ROBLOX_API_KEY", "ROBLOX_ASSET_ID", "ROBLOX_UPLOAD_ENCODING", "REQUEST_TIMEOUT_SEC"} {
		t.Setenv(k, "")
	}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	rec.url = srv.URL

	dir := t.TempDir()
	filePath = filepath.Join(dir, "StockData.lua")
	require.NoError(t, os.WriteFile(filePath, []byte("return {\n}"), 0o644))
	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("roblox:\n  base_url: "+srv.URL+"\n  file_path: "+filePath+"\n"), 0o644))
	return configPath, filePath
}

func TestUpload_MissingKeyMakesNoRequest(t *testing.T) {
	rec := &recorder{status: http.StatusOK}
	configPath, _ := setup(t, rec)

	err := newCommand().Run(t.Context(), []string{"upload", "--config", configPath})

	require.ErrorIs(t, err, apperr.ErrConfig)
	require.Zero(t, rec.hits.Load())
}

func TestUpload_MissingFileMakesNoRequest(t *testing.T) {
	rec := &recorder{status: http.StatusOK}
	configPath, _ := setup(t, rec)
	t.Setenv("ROBLOX_API_KEY", "secret")

	err := newCommand().Run(t.Context(), []string{"upload", "--config", configPath, "--file", filepath.Join(t.TempDir(), "gone.lua")})

	require.ErrorIs(t, err, apperr.ErrConfig)
	require.Zero(t, rec.hits.Load())
}

func TestUpload_Raw(t *testing.T) {
	rec := &recorder{status: http.StatusOK, body: `{"done":true}`}
	configPath, _ := setup(t, rec)
	t.Setenv("ROBLOX_API_KEY", "secret")

	err := newCommand().Run(t.Context(), []string{"upload", "--config", configPath, "--encoding", "raw", "--asset-id", "555"})

	require.NoError(t, err)
	require.Equal(t, int32(1), rec.hits.Load())
	require.Equal(t, "secret", rec.key)
	require.Equal(t, "/assets/v1/assets/555", rec.path)
	require.Equal(t, "application/octet-stream", rec.ctype)
	require.Equal(t, "return {\n}", rec.upload)
}

func TestUpload_DefaultMultipart(t *testing.T) {
	rec := &recorder{status: http.StatusOK}
	configPath, _ := setup(t, rec)
	t.Setenv("ROBLOX_API_KEY", "secret")

	err := newCommand().Run(t.Context(), []string{"upload", "--config", configPath})

	require.NoError(t, err)
	require.Equal(t, "/assets/v1/assets/91072619691201", rec.path)
	require.Contains(t, rec.ctype, "multipart/form-data")
}

func TestUpload_RejectedIsError(t *testing.T) {
	rec := &recorder{status: http.StatusForbidden, body: `{"message":"forbidden"}`}
	configPath, _ := setup(t, rec)
	t.Setenv("ROBLOX_API_KEY", "secret")

	err := newCommand().Run(t.Context(), []string{"upload", "--config", configPath})

	require.ErrorIs(t, err, apperr.ErrUpload)
	require.Equal(t, http.StatusForbidden, apperr.StatusCode(err))
	require.Equal(t, int32(1), rec.hits.Load())
}

func TestUpload_IgnoresFetchOnlySettings(t *testing.T) {
	rec := &recorder{status: http.StatusOK}
	configPath, filePath := setup(t, rec)
	t.Setenv("ROBLOX_API_KEY", "secret")
	cfg := "stooq:\n  interval: hourly\n  base_url: \"\"\nfetch:\n  sets: [bonds]\n" +
		"roblox:\n  base_url: " + rec.url + "\n  file_path: " + filePath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))

	err := newCommand().Run(t.Context(), []string{"upload", "--config", configPath, "--encoding", "RAW"})

	require.NoError(t, err)
	require.Equal(t, int32(1), rec.hits.Load())
	require.Equal(t, "application/octet-stream", rec.ctype)
}
