// Package azureopenai is a minimal Azure OpenAI client covering the two
// operations the pipeline needs: embeddings and chat completions.
package azureopenai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds client configuration. Exactly one of APIKey or BearerToken
// must be set; APIKey wins when both are (key credential vs. ambient
// credential is a composition-time choice, not a pipeline concern).
type Config struct {
	Endpoint            string
	APIKey              string
	BearerToken         string
	APIVersion          string
	ChatDeployment      string
	EmbeddingDeployment string
	Timeout             time.Duration
}

// Client calls the Azure OpenAI REST API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Azure OpenAI client
func New(config Config) *Client {
	if config.APIVersion == "" {
		config.APIVersion = "2024-02-01"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	config.Endpoint = strings.TrimRight(config.Endpoint, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Embed generates an embedding vector for the given text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		c.config.Endpoint, c.config.EmbeddingDeployment, c.config.APIVersion)

	var resp embeddingsResponse
	err := c.post(ctx, url, embeddingsRequest{Input: []string{text}}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embeddings response contained no data")
	}
	return resp.Data[0].Embedding, nil
}

// Complete sends the prompt as a single user message and returns the first
// completion candidate's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.config.Endpoint, c.config.ChatDeployment, c.config.APIVersion)

	req := chatRequest{
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	var resp chatResponse
	if err := c.post(ctx, url, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// post executes a JSON POST and decodes the response into out.
func (c *Client) post(ctx context.Context, url string, body, out interface{}) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("api-key", c.config.APIKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// handleErrorResponse extracts the API error message from a non-200 body
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("azure openai returned %d: %s", statusCode, errResp.Error.Message)
	}
	return fmt.Errorf("azure openai returned %d", statusCode)
}

// Request/response types

type embeddingsRequest struct {
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
