package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sync/upload", r.URL.Path)
		var req UploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Changes, 1)

		resp := UploadResponse{Verdicts: []Verdict{{Status: VerdictApplied, NewServerVersion: 1}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, nil, time.Second)
	resp, err := c.Upload(t.Context(), UploadRequest{
		UserID: "u", SourceID: "s",
		Changes: []UploadItem{{ChangeID: 1, Table: "users", Op: OpInsert, PK: "u1"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Verdicts, 1)
	assert.Equal(t, VerdictApplied, resp.Verdicts[0].Status)
}

func TestHTTPClient_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("after"))
		resp := DownloadResponse{NextAfter: 5}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, nil, time.Second)
	resp, err := c.Download(t.Context(), 0, 100, false)
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.NextAfter)
}

func TestHTTPClient_AuthErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, nil, time.Second)
	_, err := c.Download(t.Context(), 0, 100, false)
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, 1, calls)
}

func TestHTTPClient_CancelledContextClassifiedDistinctly(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewHTTPClient(srv.URL, nil, 10*time.Second)
	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Download(ctx, 0, 100, false)
	require.Error(t, err)
	assert.True(t, IsCancelledError(err))
	assert.False(t, IsAuthError(err))
	assert.False(t, IsProtocolError(err))
}

func TestHTTPClient_BearerTokenSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(DownloadResponse{})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, func(_ context.Context) (string, error) { return "secret", nil }, time.Second)
	_, err := c.Download(t.Context(), 0, 10, false)
	require.NoError(t, err)
}
