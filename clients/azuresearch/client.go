// Package azuresearch is a minimal Azure AI Search client for vector queries
// against a single document index.
package azuresearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/legalrag/rag-service/rag"
)

const (
	// vectorField is the index field holding chunk embeddings.
	vectorField = "contentVector"
	// selectFields limits the payload to what the pipeline consumes.
	selectFields = "content,source"
)

// Config holds client configuration
type Config struct {
	Endpoint   string
	APIKey     string
	Index      string
	APIVersion string
	Timeout    time.Duration
}

// Client calls the Azure AI Search REST API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Azure AI Search client
func New(config Config) *Client {
	if config.APIVersion == "" {
		config.APIVersion = "2023-11-01"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	config.Endpoint = strings.TrimRight(config.Endpoint, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Search runs a nearest-neighbor vector query combined with the raw question
// text and returns chunks in relevance order.
func (c *Client) Search(ctx context.Context, query string, vector []float32, topK int) ([]rag.RetrievedChunk, error) {
	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		c.config.Endpoint, c.config.Index, c.config.APIVersion)

	searchReq := searchRequest{
		Search: query,
		Select: selectFields,
		Top:    topK,
		VectorQueries: []vectorQuery{
			{
				Kind:   "vector",
				Vector: vector,
				K:      topK,
				Fields: vectorField,
			},
		},
	}

	reqBody, err := json.Marshal(searchReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.config.APIKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("search returned %d: %s", httpResp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("search returned %d", httpResp.StatusCode)
	}

	var searchResp searchResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}

	chunks := make([]rag.RetrievedChunk, 0, len(searchResp.Value))
	for i, doc := range searchResp.Value {
		chunks = append(chunks, rag.RetrievedChunk{
			Content:  doc.Content,
			SourceID: doc.Source,
			Rank:     i,
		})
	}
	return chunks, nil
}

// Request/response types

type searchRequest struct {
	Search        string        `json:"search,omitempty"`
	Select        string        `json:"select"`
	Top           int           `json:"top,omitempty"`
	VectorQueries []vectorQuery `json:"vectorQueries"`
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
	Fields string    `json:"fields"`
}

type searchResponse struct {
	Value []searchDocument `json:"value"`
}

type searchDocument struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
