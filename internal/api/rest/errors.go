package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petalhub/ranking-engine/internal/domain"
	"github.com/petalhub/ranking-engine/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest  ErrorCode = "bad_request"
	errCodeNotFound    ErrorCode = "not_found"
	errCodeDuplicate   ErrorCode = "duplicate_vote"
	errCodeNotEligible ErrorCode = "product_not_eligible"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
	errCodeUnavailable   ErrorCode = "store_unavailable"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}
	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string) {
	respondWithError(c, http.StatusNotFound, errCodeNotFound, message)
}

// respondDomainError maps ledger and store errors onto actionable responses.
// Domain rule violations get a specific code so the UI can explain "already
// voted this week" distinctly from a server error; an exhausted retry budget
// maps to a generic try-again; anything else is logged and surfaced
// generically.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrDuplicateVote):
		respondWithError(c, http.StatusConflict, errCodeDuplicate,
			"You have already voted for this product this week")
	case errors.Is(err, domain.ErrProductNotEligible):
		respondWithError(c, http.StatusUnprocessableEntity, errCodeNotEligible,
			"Product does not exist or is not eligible for voting")
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.Error(err, zap.String("path", c.Request.URL.Path))
		respondWithError(c, http.StatusServiceUnavailable, errCodeUnavailable,
			"Service temporarily unavailable, please try again")
	default:
		logger.Error(err, zap.String("path", c.Request.URL.Path))
		respondWithError(c, http.StatusInternalServerError, errCodeInternalError,
			"Internal server error")
	}
}
