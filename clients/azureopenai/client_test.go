package azureopenai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return New(Config{
		Endpoint:            serverURL,
		APIKey:              "test-key",
		ChatDeployment:      "chat-deployment",
		EmbeddingDeployment: "embedding-deployment",
	})
}

func TestEmbed(t *testing.T) {
	t.Run("successful embedding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/openai/deployments/embedding-deployment/embeddings", r.URL.Path)
			assert.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
			assert.Equal(t, "test-key", r.Header.Get("api-key"))

			var req embeddingsRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"what is the notice period"}, req.Input)

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"embedding": []float32{0.1, 0.2, 0.3}},
				},
			})
		}))
		defer server.Close()

		vector, err := newTestClient(server.URL).Embed(context.Background(), "what is the notice period")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
	})

	t.Run("empty data is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Embed(context.Background(), "text")
		assert.ErrorContains(t, err, "no data")
	})

	t.Run("backend error surfaces the API message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"code": "429", "message": "rate limited"},
			})
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Embed(context.Background(), "text")
		assert.ErrorContains(t, err, "429")
		assert.ErrorContains(t, err, "rate limited")
	})
}

func TestComplete(t *testing.T) {
	t.Run("returns first choice content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/openai/deployments/chat-deployment/chat/completions", r.URL.Path)

			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 1)
			assert.Equal(t, "user", req.Messages[0].Role)
			assert.Contains(t, req.Messages[0].Content, "Question:")

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": "Sixty days."}, "finish_reason": "stop"},
					{"message": map[string]string{"role": "assistant", "content": "ignored second choice"}, "finish_reason": "stop"},
				},
			})
		}))
		defer server.Close()

		answer, err := newTestClient(server.URL).Complete(context.Background(), "Context:\n...\n\nQuestion: notice period?")
		require.NoError(t, err)
		assert.Equal(t, "Sixty days.", answer)
	})

	t.Run("no choices is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Complete(context.Background(), "prompt")
		assert.ErrorContains(t, err, "no choices")
	})

	t.Run("canceled context propagates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestClient(server.URL).Complete(ctx, "prompt")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCredentialSelection(t *testing.T) {
	t.Run("bearer token used when no api key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("api-key"))
			assert.Equal(t, "Bearer ambient-token", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{{"embedding": []float32{0.5}}},
			})
		}))
		defer server.Close()

		client := New(Config{
			Endpoint:            server.URL,
			BearerToken:         "ambient-token",
			EmbeddingDeployment: "embedding-deployment",
			ChatDeployment:      "chat-deployment",
		})

		_, err := client.Embed(context.Background(), "text")
		require.NoError(t, err)
	})

	t.Run("api key wins over bearer token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "key", r.Header.Get("api-key"))
			assert.Empty(t, r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{{"embedding": []float32{0.5}}},
			})
		}))
		defer server.Close()

		client := New(Config{
			Endpoint:            server.URL,
			APIKey:              "key",
			BearerToken:         "ambient-token",
			EmbeddingDeployment: "embedding-deployment",
			ChatDeployment:      "chat-deployment",
		})

		_, err := client.Embed(context.Background(), "text")
		require.NoError(t, err)
	})
}
