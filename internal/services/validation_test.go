package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type TestStruct struct {
	Name  string `validate:"required,min=2"`
	Email string `validate:"required,email"`
	Age   int    `validate:"required,gte=18"`
}

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid struct", func(t *testing.T) {
		valid := TestStruct{
			Name:  "John Doe",
			Email: "john@example.com",
			Age:   25,
		}

		err := vh.ValidateStruct(&valid)
		assert.NoError(t, err)
	})

	t.Run("invalid struct - missing required fields", func(t *testing.T) {
		invalid := TestStruct{
			Name: "J", // Too short
			// Email missing
			Age: 16, // Too young
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 3) // Name, Email, Age errors
	})
}

func TestValidateCustomerName(t *testing.T) {
	assert.NoError(t, ValidateCustomerName("Priya"))
	assert.NoError(t, ValidateCustomerName("priya"))
	assert.Error(t, ValidateCustomerName(""))
	assert.Error(t, ValidateCustomerName("Priya42"))
	assert.Error(t, ValidateCustomerName("Priya Sharma"))
}

func TestValidatePAN(t *testing.T) {
	assert.NoError(t, ValidatePAN("ABCDE1234F"))
	assert.Error(t, ValidatePAN("abcde1234f"))
	assert.Error(t, ValidatePAN("ABCDE12345"))
	assert.Error(t, ValidatePAN("ABCDE1234"))
	assert.Error(t, ValidatePAN(""))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("Priya42"))
	assert.NoError(t, ValidateUsername("P"))
	assert.Error(t, ValidateUsername("priya42"))
	assert.Error(t, ValidateUsername("42Priya"))
	assert.Error(t, ValidateUsername("Priya_42"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Secret1234"))
	assert.Error(t, ValidatePassword("Short1"))
	assert.Error(t, ValidatePassword("OnlyLetters"))
	assert.Error(t, ValidatePassword("123456789"))
}

func TestValidateDOB(t *testing.T) {
	today := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, ValidateDOB(time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC), today))
	assert.Error(t, ValidateDOB(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), today))
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("error response without validation errors", func(t *testing.T) {
		w := httptest.NewRecorder()

		SendErrorResponse(w, "Something went wrong", http.StatusInternalServerError, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Something went wrong", response.Error)
		assert.Nil(t, response.Details)
	})

	t.Run("error response with validation errors", func(t *testing.T) {
		vh := NewValidationHelper()
		invalid := TestStruct{
			Name:  "J",
			Email: "invalid-email",
			Age:   16,
		}

		validationErr := vh.ValidateStruct(&invalid)
		assert.Error(t, validationErr)

		w := httptest.NewRecorder()
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response ErrorResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "Validation failed", response.Error)
		assert.NotNil(t, response.Details)
		assert.Contains(t, response.Details, "Name")
		assert.Contains(t, response.Details, "Email")
		assert.Contains(t, response.Details, "Age")
	})
}
