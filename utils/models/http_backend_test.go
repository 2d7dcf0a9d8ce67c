package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kris-hansen/tagup/utils/config"
	"github.com/kris-hansen/tagup/utils/vocab"
)

func TestHTTPBackendGenerate(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/generate":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(Output{Full: "full", New: "new", Raw: "raw"})
		case "/health":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	b := NewHTTPBackend(config.BackendConfig{Kind: "http", Endpoint: server.URL + "/"}, "dart-v2408", nil, nil)
	require.NoError(t, b.Ping(context.Background()))

	seed := 3
	out, err := b.Generate(context.Background(), Request{
		Text:     "a girl in the rain",
		Template: "<|bos|><copyright>",
		Params:   Greedy(64).WithSeed(&seed),
		Ban:      vocab.BanSpec{{4}, {5}},
		Stop:     TranslationEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, Output{Full: "full", New: "new", Raw: "raw"}, out)

	assert.Equal(t, "dart-v2408", got.Model)
	assert.Equal(t, "a girl in the rain", got.Text)
	assert.Equal(t, TranslationEnd, got.Stop)
	assert.Equal(t, vocab.BanSpec{{4}, {5}}, got.Ban)
	assert.False(t, got.Params.DoSample)
	require.NotNil(t, got.Params.Seed)
	assert.Equal(t, 3, *got.Params.Seed)
}

func TestHTTPBackendErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"CUDA out of memory"}`))
	}))
	defer server.Close()

	b := NewHTTPBackend(config.BackendConfig{Endpoint: server.URL, MaxRetries: 3}, "dart", nil, nil)
	_, err := b.Generate(context.Background(), Request{Template: "<|bos|>"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500: CUDA out of memory")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "500 is not retried")

	assert.Error(t, b.Ping(context.Background()))
}
