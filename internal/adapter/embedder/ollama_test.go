package embedder_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoprag/internal/adapter/embedder"
)

func TestEncode_BatchRoundTrip(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer server.Close()

	e := embedder.NewOllamaEmbedder(server.URL, "all-minilm", 5*time.Second)

	vectors, err := e.Encode(context.Background(), []string{"first review", "second review"})

	require.NoError(t, err)
	assert.Equal(t, "/api/embed", gotPath)
	assert.Equal(t, "all-minilm", gotBody["model"])
	require.Len(t, vectors, 2)
	assert.InDelta(t, 0.1, vectors[0][0], 1e-6)
	assert.InDelta(t, 0.4, vectors[1][1], 1e-6)
}

func TestEncode_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	e := embedder.NewOllamaEmbedder(server.URL, "all-minilm", 5*time.Second)

	_, err := e.Encode(context.Background(), []string{"text"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 500")
}

func TestEncode_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": [][]float32{{0.1, 0.2}},
		})
	}))
	defer server.Close()

	e := embedder.NewOllamaEmbedder(server.URL, "all-minilm", 5*time.Second)

	_, err := e.Encode(context.Background(), []string{"one", "two"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestEncode_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client going away.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	e := embedder.NewOllamaEmbedder(server.URL, "all-minilm", 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := e.Encode(ctx, []string{"text"})
	require.Error(t, err)
}

func TestVersion_ReportsModel(t *testing.T) {
	e := embedder.NewOllamaEmbedder("http://localhost:11434", "all-minilm", 0)
	assert.Equal(t, "all-minilm", e.Version())
}
