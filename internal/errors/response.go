package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error payload rendered as a toast by the client.
type ErrorResponse struct {
	Error   string `json:"error"`   // code (see codes.go)
	Message string `json:"message"` // user-facing message
}

// RespondWithError writes an error response.
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Veuillez vous connecter"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Accès refusé"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func Conflict(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusConflict, errorCode, message)
}

func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "Trop de tentatives. Veuillez patienter"
	}
	RespondWithError(c, http.StatusTooManyRequests, AuthzRateLimited, message)
}

func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "Service momentanément indisponible. Veuillez réessayer"
	}
	RespondWithError(c, http.StatusServiceUnavailable, StoreUnavailable, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Une erreur est survenue. Veuillez réessayer"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}

// ValidationError carries per-field messages.
type ValidationError struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, ValidationError{
		Error:   ValidationInvalidInput,
		Message: "Données invalides",
		Fields:  fields,
	})
}
