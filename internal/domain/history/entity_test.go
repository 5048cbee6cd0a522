package history

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func paymentAt(userID uuid.UUID, amount int64, status PaymentStatus, hour int) Payment {
	return Payment{
		ID:        uuid.New(),
		PatientID: userID,
		Amount:    decimal.NewFromInt(amount),
		Status:    status,
		CreatedAt: time.Date(2025, 3, 5, hour, 0, 0, 0, time.UTC),
	}
}

func TestBuildTransactionPattern(t *testing.T) {
	userID := uuid.New()
	payments := []Payment{
		paymentAt(userID, 100, PaymentStatusCompleted, 9),
		paymentAt(userID, 200, PaymentStatusCompleted, 9),
		paymentAt(userID, 300, PaymentStatusCompleted, 18),
		// Non-completed payments do not feed the baseline
		paymentAt(userID, 9999, PaymentStatusPending, 9),
		paymentAt(userID, 9999, PaymentStatusFailed, 3),
	}

	pattern := BuildTransactionPattern(userID, payments)

	assert.Equal(t, userID, pattern.UserID)
	assert.Equal(t, 3, pattern.SampleSize)
	assert.True(t, pattern.AverageAmount.Equal(decimal.NewFromInt(200)),
		"got average %s", pattern.AverageAmount)
	assert.Equal(t, 2, pattern.HourFrequency(9))
	assert.Equal(t, 1, pattern.HourFrequency(18))
	assert.Equal(t, 0, pattern.HourFrequency(3))
}

func TestBuildTransactionPattern_Empty(t *testing.T) {
	pattern := BuildTransactionPattern(uuid.New(), nil)

	assert.Equal(t, 0, pattern.SampleSize)
	assert.True(t, pattern.AverageAmount.IsZero())
	assert.Zero(t, pattern.MeanHourlyFrequency())
}

func TestMeanHourlyFrequency(t *testing.T) {
	userID := uuid.New()
	payments := make([]Payment, 0, 24)
	for hour := 0; hour < 24; hour++ {
		payments = append(payments, paymentAt(userID, 50, PaymentStatusCompleted, hour))
	}

	pattern := BuildTransactionPattern(userID, payments)

	assert.Equal(t, 1.0, pattern.MeanHourlyFrequency())
}

func TestHourFrequency_OutOfRange(t *testing.T) {
	pattern := BuildTransactionPattern(uuid.New(), nil)

	assert.Equal(t, 0, pattern.HourFrequency(-1))
	assert.Equal(t, 0, pattern.HourFrequency(24))
}
