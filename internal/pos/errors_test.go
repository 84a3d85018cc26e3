package pos

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"not found", NotFoundf("transaction %d missing", 7), CodeNotFound},
		{"invalid state", InvalidStatef("not open"), CodeInvalidState},
		{"invalid input", InvalidInputf("bad quantity"), CodeInvalidInput},
		{"insufficient payment", InsufficientPaymentf("short by 2.00"), CodeInsufficientPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, CodeOf(tt.err))
		})
	}
}

func TestCodeOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("handler: %w", InvalidStatef("transaction is closed"))
	assert.Equal(t, CodeInvalidState, CodeOf(err))
	assert.True(t, IsInvalidState(err))
	assert.False(t, IsNotFound(err))
}

func TestCodeOf_NonDomainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("disk on fire")))
	assert.False(t, IsNotFound(fmt.Errorf("disk on fire")))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusOpen.Terminal())
	assert.True(t, StatusClosed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestErrorMessage(t *testing.T) {
	err := InsufficientPaymentf("paid 5.00 is less than total 8.00")
	assert.Equal(t, "INSUFFICIENT_PAYMENT: paid 5.00 is less than total 8.00", err.Error())
}
