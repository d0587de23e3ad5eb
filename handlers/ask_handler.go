package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/legalrag/rag-service/middleware"
	"github.com/legalrag/rag-service/services/answer"
	"github.com/legalrag/rag-service/utils"
)

// AskRequest represents a question submitted to the retrieval pipeline
type AskRequest struct {
	Question string `json:"question" validate:"required"`
}

// AskResponse represents the synthesized answer and its source documents
type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// AnswerService defines the interface for the question answering pipeline
type AnswerService interface {
	Ask(ctx context.Context, question string) (*answer.Result, error)
}

// AskHandler handles question answering HTTP requests
type AskHandler struct {
	service AnswerService
	logger  *zap.Logger
}

// NewAskHandler creates a new AskHandler
func NewAskHandler(service AnswerService, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		service: service,
		logger:  logger,
	}
}

// HandleAsk handles POST /ask
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var askReq AskRequest
	if err := json.NewDecoder(r.Body).Decode(&askReq); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	// the whitespace-only case slips past the required tag
	if err := utils.ValidateStruct(&askReq); err != nil || strings.TrimSpace(askReq.Question) == "" {
		h.logger.Warn("empty question rejected",
			zap.String("request_id", requestID))
		_ = utils.WriteBadRequest(w, "Question is required.", nil)
		return
	}

	h.logger.Debug("processing question",
		zap.String("request_id", requestID),
		zap.Int("question_length", len(askReq.Question)))

	result, err := h.service.Ask(ctx, askReq.Question)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}

	response := AskResponse{
		Answer:  result.Answer,
		Sources: sources,
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
