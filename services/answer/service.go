// Package answer implements the question-answering pipeline: embed the
// question, retrieve ranked chunks, assemble bounded context, and synthesize
// a grounded answer.
package answer

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/legalrag/rag-service/rag"
	"github.com/legalrag/rag-service/services"
)

// NoRelevantDocuments is the fixed short-circuit answer returned when
// retrieval produced no usable context. It is never used for errors.
const NoRelevantDocuments = "No relevant documents found."

// Result is the response payload for an answered question.
type Result struct {
	Answer  string
	Sources []string
}

// Service orchestrates the retrieval-assembly-synthesis pipeline. All fields
// are set at construction and read-only afterwards, so one Service instance
// serves concurrent requests without locking.
type Service struct {
	embedder        rag.Embedder
	retriever       rag.Retriever
	completer       rag.Completer
	topK            int
	maxContextChars int
	logger          *zap.Logger
}

// NewService creates a new answer Service
func NewService(embedder rag.Embedder, retriever rag.Retriever, completer rag.Completer, topK, maxContextChars int, logger *zap.Logger) *Service {
	return &Service{
		embedder:        embedder,
		retriever:       retriever,
		completer:       completer,
		topK:            topK,
		maxContextChars: maxContextChars,
		logger:          logger,
	}
}

// Ask answers a question from the document index. The three downstream calls
// run strictly in sequence (each output feeds the next) and all observe ctx,
// so an abandoned request stops consuming downstream capacity.
func (s *Service) Ask(ctx context.Context, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, services.ErrQuestionRequired
	}

	start := time.Now()
	// one operation id correlates all pipeline log lines for this question
	log := s.logger.With(zap.String("operation_id", uuid.NewString()))

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, downstream(log, "embedding", err)
	}

	chunks, err := s.retriever.Search(ctx, question, vector, s.topK)
	if err != nil {
		return nil, downstream(log, "retrieval", err)
	}

	assembled := rag.Assemble(chunks, s.maxContextChars)

	if assembled.Empty() {
		// Nothing to ground an answer in; skip the completion backend
		// rather than spend a model call on an ungrounded answer.
		emitTelemetry(log, question, assembled, time.Since(start), false)
		return &Result{Answer: NoRelevantDocuments, Sources: []string{}}, nil
	}

	prompt := rag.BuildPrompt(question, assembled.Text)

	answerText, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, downstream(log, "completion", err)
	}

	emitTelemetry(log, question, assembled, time.Since(start), true)

	return &Result{
		Answer:  answerText,
		Sources: sortedSources(assembled.IncludedSourceIDs),
	}, nil
}

// downstream classifies a failed backend call. Cancellation is surfaced
// distinctly; everything else is a generic downstream failure whose detail
// is logged, not echoed.
func downstream(log *zap.Logger, stage string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Info("request canceled mid-pipeline",
			zap.String("stage", stage))
		return services.WrapCanceled(err)
	}
	log.Error("downstream backend failed",
		zap.String("stage", stage),
		zap.Error(err))
	return services.WrapExternal(stage+" backend failed", err)
}

// emitTelemetry logs per-request pipeline metrics. Question content is never
// logged, only its length.
func emitTelemetry(log *zap.Logger, question string, assembled rag.AssembledContext, elapsed time.Duration, synthesized bool) {
	log.Info("question answered",
		zap.Int("question_length", len(question)),
		zap.Int("chunk_count", assembled.ChunkCount),
		zap.Int("distinct_source_count", len(assembled.SeenSourceIDs)),
		zap.Strings("sources", assembled.IncludedSourceIDs),
		zap.Int("context_length", len(assembled.Text)),
		zap.Bool("synthesized", synthesized),
		zap.Duration("duration", elapsed))
}

// sortedSources returns the source identifiers sorted ascending,
// case-insensitively. Input is already deduplicated by the assembler.
func sortedSources(ids []string) []string {
	sources := make([]string, len(ids))
	copy(sources, ids)
	sort.Slice(sources, func(i, j int) bool {
		a, b := strings.ToLower(sources[i]), strings.ToLower(sources[j])
		if a == b {
			return sources[i] < sources[j]
		}
		return a < b
	})
	return sources
}
