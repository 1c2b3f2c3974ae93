package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datsfilipe/datschain/pkg/config"
	"github.com/datsfilipe/datschain/pkg/node"
	"github.com/datsfilipe/datschain/pkg/persistence/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.MemoryStore) {
	t.Helper()

	store := memory.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		BlockInterval: time.Second,
		Backend:       config.BackendMemory,
	}
	n := node.New(cfg, store, zap.NewNop())

	return NewServer(n, "127.0.0.1:0", zap.NewNop()), store
}

func postConnect(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/connect", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.GetHandler().ServeHTTP(rec, req)
	return rec
}

func TestConnectAdmitsWallet(t *testing.T) {
	s, store := newTestServer(t)

	body := `{"private_key":"sk","public_key":"pk01020304050607080910111213141516171819AAA"}`
	rec := postConnect(t, s, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp connectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Message, "address: "))
	require.NotNil(t, resp.TxHash)

	raw, err := hex.DecodeString(*resp.TxHash)
	require.NoError(t, err)
	require.Len(t, raw, 32)

	// The persisted formatted entry has the documented wire shape.
	var key [32]byte
	copy(key[:], raw)
	stored, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found)

	pattern := regexp.MustCompile(`^\{"key":"[0-9a-f]{64}", "value":\{"Accounts":\{.*\}\}, "version":0\}$`)
	assert.Regexp(t, pattern, stored)
}

func TestConnectRejectsMalformedBody(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postConnect(t, s, "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp connectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Nil(t, resp.TxHash)
}

func TestConnectRejectsOversizeBody(t *testing.T) {
	s, _ := newTestServer(t)

	huge := `{"private_key":"` + strings.Repeat("x", maxBodyBytes) + `","public_key":"pk"}`
	rec := postConnect(t, s, huge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestConnectRejectsWrongMethod(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/connect", nil)
	rec := httptest.NewRecorder()
	s.GetHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestConnectPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/connect", nil)
	rec := httptest.NewRecorder()
	s.GetHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestConnectDuplicateWalletBumpsVersion(t *testing.T) {
	s, store := newTestServer(t)

	body := `{"private_key":"sk","public_key":"same-key-material"}`
	first := postConnect(t, s, body)
	require.Equal(t, http.StatusOK, first.Code)
	second := postConnect(t, s, body)
	require.Equal(t, http.StatusOK, second.Code)

	var resp connectResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	require.NotNil(t, resp.TxHash)

	raw, err := hex.DecodeString(*resp.TxHash)
	require.NoError(t, err)
	var key [32]byte
	copy(key[:], raw)

	stored, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, bytes.Contains([]byte(stored), []byte(`"version":1`)))
}
