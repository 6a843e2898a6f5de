package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type searchPayload struct {
	Query string `validate:"required"`
	K     int    `validate:"gte=1,lte=50"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := searchPayload{
			Query: "I feel anxious before exams",
			K:     3,
		}

		err := ValidateStruct(&s)
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		s := searchPayload{
			K: 3,
		}

		err := ValidateStruct(&s)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Query")
		assert.Contains(t, fields["Query"], "required")
	})

	t.Run("k below minimum", func(t *testing.T) {
		s := searchPayload{
			Query: "hello",
			K:     0,
		}

		err := ValidateStruct(&s)
		assert.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "K")
		assert.Contains(t, fields["K"], "greater than or equal to 1")
	})

	t.Run("k above maximum", func(t *testing.T) {
		s := searchPayload{
			Query: "hello",
			K:     500,
		}

		err := ValidateStruct(&s)
		assert.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "K")
	})
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "Validation failed"}
	assert.Equal(t, "Validation failed", err.Error())
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Message: "bad"}))
	assert.False(t, IsValidationError(errors.New("regular")))
	assert.False(t, IsValidationError(nil))
}

func TestGetValidationFields(t *testing.T) {
	assert.Nil(t, GetValidationFields(errors.New("regular")))
}

func TestValidateRequired(t *testing.T) {
	assert.NoError(t, ValidateRequired("value", "field"))

	err := ValidateRequired("", "query")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}
