package util

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := NewValidationError("invalid service")
	assert.False(t, err.HasErrors())
	assert.Equal(t, "validation error: invalid service", err.Error())

	err.AddField("service.name", "required")
	err.AddField("listen", "required")
	assert.True(t, err.HasErrors())
	assert.Equal(t, "validation error: invalid service (listen: required; service.name: required)", err.Error())

	wrapped := fmt.Errorf("load: %w", err)
	assert.ErrorIs(t, wrapped, ErrConfigInvalid)
	var target *ValidationError
	assert.ErrorAs(t, wrapped, &target)
}

func TestValidationError_AddFieldNilMap(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Message: "x"}
	err.AddField("a", "b")
	assert.Equal(t, "b", err.Fields["a"])
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	serverErr := &TransportError{Operation: "check", StatusCode: 503, Body: "down"}
	assert.Equal(t, "check failed with HTTP 503: down", serverErr.Error())
	assert.ErrorIs(t, serverErr, ErrBackendUnavail)

	clientErr := &TransportError{Operation: "report", StatusCode: 400}
	assert.NotErrorIs(t, clientErr, ErrBackendUnavail)
	assert.ErrorIs(t, clientErr, &TransportError{})
}

func TestContractViolation(t *testing.T) {
	t.Parallel()

	err := &ContractViolation{Contract: "check completed twice"}
	assert.Equal(t, "contract violation: check completed twice", err.Error())
}
