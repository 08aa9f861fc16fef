package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	biwaErrors "github.com/harunnryd/biwa/internal/errors"
	"github.com/harunnryd/biwa/internal/model/contract"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, completionText string, healthy bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Contains(t, body["prompt"], "<|start_header_id|>assistant<|end_header_id|>")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "cmpl-1",
			"object": "text_completion",
			"choices": []map[string]interface{}{
				{"text": completionText, "index": 0, "finish_reason": "stop"},
			},
		})
	})

	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testOptions(baseURL string) Options {
	return Options{
		BaseURL:       baseURL + "/v1",
		Model:         "local",
		MaxTokens:     64,
		Temperature:   0.7,
		TopP:          0.9,
		RepeatPenalty: 1.1,
		Stop:          []string{"<|eot_id|>", "<|end_of_text|>"},
	}
}

func TestGenerate_PlainAnswer(t *testing.T) {
	srv := newTestServer(t, "  The answer is 42.  ", true)
	p := New(testOptions(srv.URL))

	resp, err := p.Generate(context.Background(), contract.CompletionRequest{
		Messages: []contract.Message{{Role: contract.RoleUser, Content: "what is 6*7?"}},
	})
	require.NoError(t, err)
	require.Equal(t, "The answer is 42.", resp.Content)
	require.Empty(t, resp.ToolCalls)
}

func TestGenerate_ParsesToolCalls(t *testing.T) {
	text := "```json\n{\"tool_calls\": [{\"name\": \"add_numbers\", \"arguments\": {\"a\": 1, \"b\": 2}}]}\n```"
	srv := newTestServer(t, text, true)
	p := New(testOptions(srv.URL))

	resp, err := p.Generate(context.Background(), contract.CompletionRequest{
		Messages: []contract.Message{{Role: contract.RoleUser, Content: "add 1 and 2"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	require.Equal(t, "add_numbers", resp.ToolCalls[0].Name)
	require.Equal(t, "add_numbers_0", resp.ToolCalls[0].ID)
	require.JSONEq(t, `{"a": 1, "b": 2}`, resp.ToolCalls[0].Input)
}

func TestEmbed(t *testing.T) {
	srv := newTestServer(t, "", true)
	p := New(testOptions(srv.URL))

	vec, err := p.Embed(context.Background(), "remember this")
	require.NoError(t, err)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestHealth(t *testing.T) {
	healthy := newTestServer(t, "", true)
	require.NoError(t, New(testOptions(healthy.URL)).Health(context.Background()))

	loading := newTestServer(t, "", false)
	err := New(testOptions(loading.URL)).Health(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, biwaErrors.ErrTransient)
}

func TestGenerate_UnreachableServerIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	p := New(testOptions(baseURL))
	_, err := p.Generate(context.Background(), contract.CompletionRequest{
		Messages: []contract.Message{{Role: contract.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, biwaErrors.ErrTransient)
}

func TestEmbed_UnreachableServerIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	_, err := New(testOptions(baseURL)).Embed(context.Background(), "x")
	require.Error(t, err)
	require.ErrorIs(t, err, biwaErrors.ErrTransient)
}
