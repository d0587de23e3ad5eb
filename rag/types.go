// Package rag holds the retrieval-augmented generation domain: the
// collaborator interfaces for embedding, retrieval, and completion, and the
// pure context-assembly logic that sits between them.
package rag

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever fetches relevance-ranked chunks from a document index using the
// query text and its embedding.
type Retriever interface {
	Search(ctx context.Context, query string, vector []float32, topK int) ([]RetrievedChunk, error)
}

// Completer produces a completion for a fully constructed prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RetrievedChunk is one unit of retrieved text. Chunks arrive in relevance
// order; Rank 0 is the most relevant.
type RetrievedChunk struct {
	Content  string
	SourceID string
	Rank     int
}

// AssembledContext is the bounded context produced from a ranked chunk
// sequence. Immutable once returned.
type AssembledContext struct {
	// Text is the joined display fragments, never longer than the budget.
	Text string

	// IncludedSourceIDs are the distinct (case-insensitive) source
	// identifiers of chunks that made it into Text, in first-seen order
	// with first-seen casing.
	IncludedSourceIDs []string

	// SeenSourceIDs covers every chunk visited, budget-excluded ones
	// included. Telemetry only; never returned to callers.
	SeenSourceIDs []string

	// ChunkCount is the number of non-empty chunks visited.
	ChunkCount int
}

// Empty reports the "no relevant documents" condition.
func (a AssembledContext) Empty() bool {
	return a.Text == ""
}
