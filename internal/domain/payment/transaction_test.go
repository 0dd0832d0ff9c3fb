package payment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPending(t *testing.T) {
	customerID := uuid.New()
	landlordID := uuid.New()

	tx := NewPending(customerID, landlordID, "254712345678", 1500, "HSE-12", "ws_CO_1", "mr_1")
	require.NotNil(t, tx)

	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, customerID, tx.CustomerID)
	assert.Equal(t, landlordID, tx.LandlordID)
	assert.Equal(t, "254712345678", tx.PhoneNumber)
	assert.Equal(t, int64(1500), tx.Amount)
	assert.Equal(t, "ws_CO_1", tx.CheckoutRequestID)
	assert.Equal(t, "mr_1", tx.MerchantRequestID)
	assert.Equal(t, StatusPending, tx.Status)
	assert.Nil(t, tx.ResultCode)
	assert.Nil(t, tx.CompletedAt)
	assert.WithinDuration(t, time.Now(), tx.CreatedAt, time.Second)
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestTerminalUpdate_Status(t *testing.T) {
	testCases := []struct {
		name       string
		resultCode int
		expected   Status
	}{
		{"Success", 0, StatusCompleted},
		{"Cancelled", 1032, StatusFailed},
		{"InsufficientBalance", 1, StatusFailed},
		{"Timeout", 1037, StatusFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			update := TerminalUpdate{ResultCode: tc.resultCode}
			assert.Equal(t, tc.expected, update.Status())
		})
	}
}
