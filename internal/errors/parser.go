package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ErrorInfo is a response-ready error.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// Rule maps a sentinel error to the response it produces.
type Rule struct {
	Target error
	ErrorInfo
}

// Match returns the first rule whose target is in err's chain.
func Match(err error, rules []Rule) (ErrorInfo, bool) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			return rule.ErrorInfo, true
		}
	}
	return ErrorInfo{}, false
}

// ParseError turns a persistence error into something safe to show to the user.
// Constraint names and SQL never leak; context ("create checkout", "delete feedback") picks the
// fallback message.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "Internal server error",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Status:  http.StatusNotFound,
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	if IsDuplicateKey(err) {
		return parseDuplicateKeyError(errStrLower)
	}

	// PostgreSQL 23503
	if strings.Contains(errStrLower, "foreign key constraint") {
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    ResourceConflict,
			Message: "The record is referenced by other data",
		}
	}

	// PostgreSQL 23502
	if strings.Contains(errStrLower, "violates not-null constraint") || strings.Contains(errStrLower, "not null constraint") {
		return ErrorInfo{
			Status:  http.StatusBadRequest,
			Code:    ValidationRequired,
			Message: "A required field is missing",
		}
	}

	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalDatabaseError,
			Message: "Service temporarily unavailable, please try again",
		}
	}

	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

// IsDuplicateKey reports whether err is a unique constraint violation: PostgreSQL 23505, the
// sqlite equivalent, or gorm's translated ErrDuplicatedKey.
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

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "users") && strings.Contains(errLower, "email"):
		return ErrorInfo{Status: http.StatusConflict, Code: AuthEmailAlreadyExists, Message: "User with this email already exists"}
	case strings.Contains(errLower, "employees") && strings.Contains(errLower, "email"):
		return ErrorInfo{Status: http.StatusConflict, Code: AuthEmailAlreadyExists, Message: "Employee with this email already exists"}
	case strings.Contains(errLower, "order_id"):
		return ErrorInfo{Status: http.StatusConflict, Code: FeedbackAlreadyExists, Message: "Feedback already exists for this order"}
	}
	return ErrorInfo{
		Status:  http.StatusConflict,
		Code:    ResourceAlreadyExists,
		Message: "The record already exists",
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "feedback"):
		return "Feedback not found"
	case strings.Contains(contextLower, "checkout"), strings.Contains(contextLower, "order"):
		return "Order not found"
	case strings.Contains(contextLower, "cart"):
		return "Cart not found"
	case strings.Contains(contextLower, "product"):
		return "Product not found"
	case strings.Contains(contextLower, "user"):
		return "User not found"
	}
	return "The requested resource was not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create"), strings.Contains(contextLower, "add"):
		return "Failed to save, please try again"
	case strings.Contains(contextLower, "update"):
		return "Failed to update, please try again"
	case strings.Contains(contextLower, "delete"):
		return "Failed to delete, please try again"
	}
	return "Internal server error"
}

// Respond writes info as an error response.
func Respond(c *gin.Context, info ErrorInfo) {
	RespondWithError(c, info.Status, info.Code, info.Message)
}

// ParseAndRespond is ParseError followed by Respond.
func ParseAndRespond(c *gin.Context, err error, context string) {
	Respond(c, ParseError(err, context))
}
