package core_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/somaedu/soma-backend/core"
)

func TestValidationError_FieldMap(t *testing.T) {
	err := core.NewValidationError(nil,
		core.FieldError{Field: "child_id", Error: "child_id is required"},
		core.FieldError{Field: "subject", Error: "unknown subject"},
	)

	vErr, ok := err.(*core.ValidationError)
	if assert.True(t, ok) {
		assert.Equal(t, map[string]string{
			"child_id": "child_id is required",
			"subject":  "unknown subject",
		}, vErr.FieldMap())
	}

	bare := core.NewValidationError(errors.New("invalid credentials")).(*core.ValidationError)
	assert.Nil(t, bare.FieldMap())
	assert.Equal(t, "invalid credentials", bare.Error())
}

func TestIsShutdown(t *testing.T) {
	err := core.NewShutdownError("integrity issue")
	assert.True(t, core.IsShutdown(err))
	assert.True(t, core.IsShutdown(errors.Wrap(err, "handling request")))
	assert.False(t, core.IsShutdown(errors.New("integrity issue")))
}
