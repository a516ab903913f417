package dto

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberTextAcceptsStringsAndNumbers(t *testing.T) {
	var req LogHoursRequest
	require.NoError(t, json.Unmarshal([]byte(`{"hours":"2.5","minutes":30}`), &req))
	assert.Equal(t, NumberText("2.5"), req.Hours)
	assert.Equal(t, NumberText("30"), req.Minutes)

	require.NoError(t, json.Unmarshal([]byte(`{"hours":1.25,"minutes":null}`), &req))
	assert.Equal(t, NumberText("1.25"), req.Hours)
	assert.Equal(t, NumberText(""), req.Minutes)

	assert.Error(t, json.Unmarshal([]byte(`{"hours":true}`), &req))
}

func TestHandleValidationError(t *testing.T) {
	type form struct {
		Email string `validate:"required,email"`
		Hours int    `validate:"gt=0"`
	}
	err := validator.New().Struct(form{Email: "x"})
	require.Error(t, err)

	detail := HandleValidationError(err)
	assert.Equal(t, ErrorCodeValidationFailed, detail.Code)
	fields, ok := detail.Details.([]ErrorDetail)
	require.True(t, ok)
	assert.Len(t, fields, 2)
	assert.Equal(t, "email", fields[0].Field)
}

func TestHandleValidationErrorNonValidator(t *testing.T) {
	detail := HandleValidationError(assert.AnError)
	assert.Equal(t, ErrorCodeInvalidRequest, detail.Code)
}
