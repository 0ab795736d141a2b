package errors

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is the code/message pair sent to the client.
type ErrorInfo struct {
	Code    string // see codes.go
	Message string // user-facing message
}

var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"too many connections",
	"database is locked",
	"database is closed",
	"server closed the connection",
	"the database system is starting up",
	"the database system is shutting down",
}

// IsTransient reports whether err is a backend failure that may go away on retry,
// as opposed to a constraint or not-found condition.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errLower := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(errLower, marker) {
			return true
		}
	}
	return false
}

// IsDuplicateKey reports whether err is a unique constraint violation (postgres or sqlite).
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errLower := strings.ToLower(err.Error())
	return strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint")
}

// ParseError converts a store error into a user-facing code and message.
// Driver details never reach the client.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Une erreur est survenue",
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	if IsDuplicateKey(err) {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "Cet élément existe déjà",
		}
	}

	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "foreign key constraint") {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: "Un élément référencé est introuvable",
		}
	}

	if IsTransient(err) {
		return ErrorInfo{
			Code:    StoreUnavailable,
			Message: "Service momentanément indisponible. Veuillez réessayer",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "product"):
		return "Produit introuvable"
	case strings.Contains(contextLower, "recipe"):
		return "Panier recette introuvable"
	case strings.Contains(contextLower, "cart"):
		return "Article introuvable dans votre panier"
	case strings.Contains(contextLower, "order"):
		return "Commande introuvable"
	case strings.Contains(contextLower, "favorite"):
		return "Favori introuvable"
	}

	return "Élément introuvable"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create"), strings.Contains(contextLower, "add"):
		return "Impossible d'ajouter l'élément. Veuillez réessayer"
	case strings.Contains(contextLower, "update"):
		return "Impossible de mettre à jour l'élément. Veuillez réessayer"
	case strings.Contains(contextLower, "delete"), strings.Contains(contextLower, "remove"):
		return "Impossible de supprimer l'élément. Veuillez réessayer"
	}

	return "Une erreur est survenue. Veuillez réessayer"
}

// ParseAndRespond parses err and writes the JSON error response.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
