package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, status int, choices []string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = req
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
			return
		}
		out := make([]map[string]any, 0, len(choices))
		for i, c := range choices {
			out = append(out, map[string]any{
				"index":         i,
				"message":       map[string]string{"role": "assistant", "content": c},
				"finish_reason": "stop",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   req.Model,
			"choices": out,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var seen chatRequest
	srv := newChatServer(t, http.StatusOK, []string{"Melatonin regulates sleep.", "ignored"}, &seen)
	g := NewOpenAIGenerator("test-key", srv.URL+"/v1", srv.Client())

	got, err := g.Generate(context.Background(), "the prompt", "mistral-medium")
	require.NoError(t, err)
	assert.Equal(t, "Melatonin regulates sleep.", got)
	assert.Equal(t, "mistral-medium", seen.Model)
	require.Len(t, seen.Messages, 1)
	assert.Equal(t, "user", seen.Messages[0].Role)
	assert.Equal(t, "the prompt", seen.Messages[0].Content)
}

func TestOpenAIGenerator_noChoices(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, nil, nil)
	g := NewOpenAIGenerator("test-key", srv.URL+"/v1", srv.Client())
	_, err := g.Generate(context.Background(), "p", "m")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIGenerator_blankContent(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, []string{" \n "}, nil)
	g := NewOpenAIGenerator("test-key", srv.URL+"/v1", srv.Client())
	_, err := g.Generate(context.Background(), "p", "m")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIGenerator_serviceError(t *testing.T) {
	srv := newChatServer(t, http.StatusServiceUnavailable, nil, nil)
	g := NewOpenAIGenerator("test-key", srv.URL+"/v1", srv.Client())
	_, err := g.Generate(context.Background(), "p", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestMockGenerator(t *testing.T) {
	prompt := "Context information is below.\n---------------------\nchunk one chunk two\n---------------------\nQuery: q"
	got, err := MockGenerator{}.Generate(context.Background(), prompt, "mock")
	require.NoError(t, err)
	assert.Equal(t, "[mock] Based on the context: chunk one chunk two", got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = MockGenerator{}.Generate(ctx, prompt, "mock")
	assert.ErrorIs(t, err, context.Canceled)
}
