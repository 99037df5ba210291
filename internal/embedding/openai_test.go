package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingItem struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// newEmbeddingsServer serves /v1/embeddings, returning items in reverse order
// so index-based reordering is exercised.
func newEmbeddingsServer(t *testing.T, status int, seen *embeddingsRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req embeddingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = req
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		data := make([]embeddingItem, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, embeddingItem{Object: "embedding", Embedding: []float32{float32(i), 1}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	var seen embeddingsRequest
	srv := newEmbeddingsServer(t, http.StatusOK, &seen)
	e := NewOpenAIEmbedder("test-key", srv.URL+"/v1", "mistral-embed", srv.Client())

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "mistral-embed", seen.Model)
	assert.Equal(t, []string{"a", "b", "c"}, seen.Input)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Equal(t, float32(i), v[0])
	}
	assert.Equal(t, "mistral-embed", e.Model())
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	srv := newEmbeddingsServer(t, http.StatusOK, nil)
	e := NewOpenAIEmbedder("test-key", srv.URL+"/v1", "mistral-embed", nil)
	v, err := e.Embed(context.Background(), "What helps with sleep?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, v)
}

func TestOpenAIEmbedder_serviceError(t *testing.T) {
	srv := newEmbeddingsServer(t, http.StatusTooManyRequests, nil)
	e := NewOpenAIEmbedder("test-key", srv.URL+"/v1", "mistral-embed", nil)
	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding request")
}

func TestOpenAIEmbedder_emptyInput(t *testing.T) {
	e := NewOpenAIEmbedder("test-key", "http://127.0.0.1:0/v1", "mistral-embed", nil)
	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}
