package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/legalrag/rag-service/services"
	"github.com/legalrag/rag-service/utils"
)

// statusClientClosedRequest mirrors the nginx convention for requests the
// caller abandoned before a response was produced.
const statusClientClosedRequest = 499

// HandleServiceError maps domain errors to HTTP responses. Downstream and
// internal failure details stay in the logs; the response bodies are generic.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsValidationError(err):
		message := err.Error()
		var domainErr *services.DomainError
		if errors.As(err, &domainErr) {
			message = domainErr.Message
		}
		if err := utils.WriteBadRequest(w, message, details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsUnauthorizedError(err):
		if err := utils.WriteUnauthorized(w, "Authentication required"); err != nil {
			logger.Error("failed to write unauthorized response", zap.Error(err))
		}

	case services.IsForbiddenError(err):
		if err := utils.WriteForbidden(w, "Access forbidden"); err != nil {
			logger.Error("failed to write forbidden response", zap.Error(err))
		}

	case services.IsCanceledError(err):
		logger.Info("request canceled by client", zap.Error(err))
		if err := utils.WriteJSON(w, statusClientClosedRequest, utils.ErrorResponse{
			Error:   "client_closed_request",
			Message: "Request canceled",
		}); err != nil {
			logger.Error("failed to write canceled response", zap.Error(err))
		}

	case services.IsExternalError(err):
		logger.Error("upstream service failure", zap.Error(err))
		if err := utils.WriteBadGateway(w, "Upstream service error"); err != nil {
			logger.Error("failed to write bad gateway response", zap.Error(err))
		}

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}
