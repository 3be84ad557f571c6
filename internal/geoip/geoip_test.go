package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDB_DownloadsMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("mmdb-bytes"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "country.mmdb")
	require.NoError(t, EnsureDB(context.Background(), srv.Client(), path, srv.URL, time.Hour))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mmdb-bytes", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestEnsureDB_SkipsFresh(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "country.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, EnsureDB(context.Background(), srv.Client(), path, srv.URL, time.Hour))
	assert.Zero(t, hits)
}

func TestEnsureDB_KeepsStaleOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "country.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	err := EnsureDB(context.Background(), srv.Client(), path, srv.URL, time.Hour)
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestProvider_NilIsSafe(t *testing.T) {
	var p *Provider
	assert.Empty(t, p.CountryCode("1.1.1.1"))
	assert.NoError(t, p.Close())
}

func TestOpen_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}
