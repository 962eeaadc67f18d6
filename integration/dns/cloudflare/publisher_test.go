package cloudflare

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCredential(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "creds.ini")
		require.NoError(t, os.WriteFile(path, []byte("dns_api_token = cf-secret\n"), 0o600))

		token, err := readCredential(path)
		require.NoError(t, err)
		assert.Equal(t, "cf-secret", token)
	})

	t.Run("missing key", func(t *testing.T) {
		path := filepath.Join(dir, "empty.ini")
		require.NoError(t, os.WriteFile(path, []byte("other = value\n"), 0o600))

		_, err := readCredential(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readCredential(filepath.Join(dir, "nope.ini"))
		assert.Error(t, err)
	})
}

func TestCreateAndDeleteTXT(t *testing.T) {
	var deleted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cf-secret", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/zones":
			assert.Equal(t, "acme.com", r.URL.Query().Get("name"))
			writeResult(w, []map[string]string{{"id": "zone-1", "name": "acme.com"}})
		case r.Method == http.MethodPost && r.URL.Path == "/zones/zone-1/dns_records":
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "TXT", payload["type"])
			assert.Equal(t, "_acme-challenge.jobs.acme.com", payload["name"])
			writeResult(w, map[string]string{"id": "rec-1"})
		case r.Method == http.MethodDelete && r.URL.Path == "/zones/zone-1/dns_records/rec-1":
			deleted = true
			writeResult(w, map[string]string{"id": "rec-1"})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL)
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	p := newWithToken("cf-secret", srv.URL)

	zoneID, err := p.zoneID("acme.com")
	require.NoError(t, err)
	require.Equal(t, "zone-1", zoneID)

	recordID, err := p.createTXT(zoneID, "_acme-challenge.jobs.acme.com", "challenge-value")
	require.NoError(t, err)
	require.Equal(t, "rec-1", recordID)

	require.NoError(t, p.deleteTXT(zoneID, recordID))
	assert.True(t, deleted)
}

func TestAPIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 9109, "message": "Invalid access token"}},
		})
	}))
	defer srv.Close()

	p := newWithToken("bad-token", srv.URL)

	_, err := p.zoneID("acme.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid access token")
}

func writeResult(w http.ResponseWriter, result any) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"errors":  []any{},
		"result":  result,
	})
}
