package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/synthesize", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "hello", req["text"])
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("wav-bytes"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "wav-bytes", string(result.Audio))
	assert.Equal(t, "audio/wav", result.ContentType)
}

func TestClientSynthesizeRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "audio", string(result.Audio))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClientSynthesizeDefaultContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Suppress the sniffed Content-Type so the response carries none.
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", result.ContentType)
}

func TestClientSynthesizeUnconfigured(t *testing.T) {
	var client *Client
	_, err := client.Synthesize(context.Background(), "hello")
	require.Error(t, err)
}
