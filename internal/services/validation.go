package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dinoventures/wallet-backend/internal/errors"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		if fieldErrs, ok := validationErr.(validator.ValidationErrors); ok {
			errorResp.Details = make(map[string]string)
			for _, err := range fieldErrs {
				errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
			}
		}
	}
	SendJSONResponse(w, statusCode, errorResp)
}

func SendJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// statusForLedgerError maps the ledger error taxonomy to response codes.
// Duplicate references answer 409 so clients can tell "already applied"
// apart from a rejection.
func statusForLedgerError(err error) int {
	switch {
	case errors.IsDuplicateReference(err):
		return http.StatusConflict
	case errors.IsAccountNotFound(err):
		return http.StatusNotFound
	case errors.IsInsufficientFunds(err), errors.IsUnbalanced(err):
		return http.StatusBadRequest
	case err == errors.ErrWalletNotFound:
		return http.StatusNotFound
	case err == errors.ErrSystemAccountNotFound:
		return http.StatusInternalServerError
	default:
		// Store failures are transient; nothing was applied.
		return http.StatusInternalServerError
	}
}
