package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stockrelay/internal/apperr"
)

var csvBySymbol = map[string]string{
	"rblx.us": "Date,Open,High,Low,Close,Volume\n2025-03-10,60.12,61.5,59.8,60.97,7123456\n2025-03-07,59,60,58,59.5,6000000\n",
	"aapl.us": "Date,Open,High,Low,Close,Volume\n2025-03-10,235,236.16,224.22,227.48,71451281\n",
	"msft.us": "Date,Open,High,Low,Close,Volume\n",
}

func stooqServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := csvBySymbol[strings.ToLower(r.URL.Query().Get("s"))]
		if !ok {
			http.Error(w, "unknown", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T) (dir string) {
	t.Helper()
	for _, k := range []string{"CONFIG_FILE", "FETCH_SETS", "RENDER_MODULE", "REQUEST_TIMEOUT_SEC"} {
		t.Setenv(k, "")
	}
	t.Setenv("STOOQ_BASE_URL", stooqServer(t).URL)
	return t.TempDir()
}

func TestFetch_WritesSnapshotAndModule(t *testing.T) {
	// Arrange
	dir := setup(t)
	jsonPath := filepath.Join(dir, "stock-prices.json")
	modulePath := filepath.Join(dir, "StockData.lua")

	// Act
	err := newCommand().Run(t.Context(), []string{"fetch",
		"--config", filepath.Join(dir, "absent.yaml"),
		"--json", jsonPath,
		"--module", modulePath,
	})

	// Assert
	require.NoError(t, err)

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var doc struct {
		LastUpdated string                     `json:"last_updated"`
		Stocks      map[string]json.RawMessage `json:"stocks"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.NotEmpty(t, doc.LastUpdated)
	// MSFT has no rows and is skipped
	require.Len(t, doc.Stocks, 2)
	require.Contains(t, doc.Stocks, "RBLX")
	require.Contains(t, doc.Stocks, "AAPL")
	require.Less(t, strings.Index(string(raw), `"RBLX"`), strings.Index(string(raw), `"AAPL"`))

	lua, err := os.ReadFile(modulePath)
	require.NoError(t, err)
	require.Contains(t, string(lua), "Name = \"Roblox\",\n\t\tSymbol = \"RBLX\",\n\t\tCurrentPrice = 60.97")
	require.Contains(t, string(lua), "Name = \"Apple\"")
	require.NotContains(t, string(lua), "MSFT")
}

func TestFetch_SymbolsFlagAndNoModule(t *testing.T) {
	dir := setup(t)
	jsonPath := filepath.Join(dir, "out.json")
	modulePath := filepath.Join(dir, "StockData.lua")

	err := newCommand().Run(t.Context(), []string{"fetch",
		"--config", filepath.Join(dir, "absent.yaml"),
		"--symbols", "AAPL.US, NOPE.US",
		"--json", jsonPath,
		"--module", modulePath,
		"--no-module",
	})

	require.NoError(t, err)
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"AAPL"`)
	require.NotContains(t, string(raw), `"RBLX"`)
	require.NoFileExists(t, modulePath)
}

func TestFetch_AllFailStillWritesEmptySnapshot(t *testing.T) {
	dir := setup(t)
	jsonPath := filepath.Join(dir, "out.json")

	err := newCommand().Run(t.Context(), []string{"fetch",
		"--config", filepath.Join(dir, "absent.yaml"),
		"--symbols", "NOPE.US",
		"--json", jsonPath,
		"--no-module",
	})

	require.NoError(t, err)
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"stocks": {}`)
}

func TestFetch_UnknownSet(t *testing.T) {
	dir := setup(t)

	err := newCommand().Run(t.Context(), []string{"fetch",
		"--config", filepath.Join(dir, "absent.yaml"),
		"--sets", "bonds",
		"--json", filepath.Join(dir, "out.json"),
	})

	require.ErrorIs(t, err, apperr.ErrConfig)
	require.NoFileExists(t, filepath.Join(dir, "out.json"))
}

func TestFetch_EmptyStripSuffixKeepsNames(t *testing.T) {
	// Arrange: stripping disabled in the config file
	dir := setup(t)
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("stooq:\n  strip_suffix: \"\"\n"), 0o644))
	jsonPath := filepath.Join(dir, "out.json")
	modulePath := filepath.Join(dir, "StockData.lua")

	// Act
	err := newCommand().Run(t.Context(), []string{"fetch",
		"--config", configPath,
		"--json", jsonPath,
		"--module", modulePath,
	})

	// Assert: keys keep the suffix and names still resolve
	require.NoError(t, err)
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"RBLX.US": {`)

	lua, err := os.ReadFile(modulePath)
	require.NoError(t, err)
	require.Contains(t, string(lua), "Name = \"Roblox\",\n\t\tSymbol = \"RBLX.US\",")
	require.Contains(t, string(lua), "Name = \"Apple\",\n\t\tSymbol = \"AAPL.US\",")
}
