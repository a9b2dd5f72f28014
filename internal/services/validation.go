package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/minibank/backend/internal/bankerr"
)

var (
	nameRegex     = regexp.MustCompile(`^[A-Za-z]+$`)
	panRegex      = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	usernameRegex = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// ValidateCustomerName accepts a single word of letters only.
func ValidateCustomerName(name string) error {
	if !nameRegex.MatchString(name) {
		return &bankerr.ValidationError{Field: "name", Msg: "name must contain letters only"}
	}
	return nil
}

// ValidatePAN checks the permanent account number format.
func ValidatePAN(pan string) error {
	if !panRegex.MatchString(pan) {
		return &bankerr.ValidationError{Field: "pan", Msg: "PAN must match AAAAA9999A"}
	}
	return nil
}

// ValidateUsername requires a leading capital followed by letters or digits.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return &bankerr.ValidationError{Field: "username", Msg: "username must start with a capital letter and contain only letters and digits"}
	}
	return nil
}

// ValidatePassword requires at least eight characters with at least one
// letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return &bankerr.ValidationError{Field: "password", Msg: "password must be at least 8 characters"}
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return &bankerr.ValidationError{Field: "password", Msg: "password must contain at least one letter and one digit"}
	}
	return nil
}

// ValidateDOB rejects birth dates in the future.
func ValidateDOB(dob, today time.Time) error {
	if dob.After(today) {
		return &bankerr.ValidationError{Field: "dob", Msg: "date of birth cannot be in the future"}
	}
	return nil
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	if validationErr != nil {
		errorResp.Details = make(map[string]string)
		for _, err := range validationErr.(validator.ValidationErrors) {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}
