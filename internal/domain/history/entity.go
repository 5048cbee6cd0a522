package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the state of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment is a completed or in-flight payment as recorded in the payments table.
// Scoring only ever reads these; the payment flow owns the writes.
type Payment struct {
	ID        uuid.UUID       `json:"id"`
	PatientID uuid.UUID       `json:"patient_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    PaymentStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// UserSession is a recorded user session with the context attributes
// used for novelty checks (location, device fingerprint, IP).
type UserSession struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Location   string    `json:"location"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
}

// SecurityEventType categorizes security events
type SecurityEventType string

const (
	EventTypeLogin              SecurityEventType = "login"
	EventTypeLogout             SecurityEventType = "logout"
	EventTypePasswordChange     SecurityEventType = "password_change"
	EventTypeSuspiciousActivity SecurityEventType = "suspicious_activity"
)

// SecurityEvent is a row from the security_events table
type SecurityEvent struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"user_id"`
	Type      SecurityEventType `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
}

// TransactionPattern is a user's rolling 30-day statistical baseline:
// the mean payment amount and a 24-bucket histogram of payment hour-of-day
// counts. It is derived per scoring call and never persisted.
type TransactionPattern struct {
	UserID        uuid.UUID       `json:"user_id"`
	AverageAmount decimal.Decimal `json:"average_amount"`
	TimePattern   [24]int         `json:"time_pattern"`
	SampleSize    int             `json:"sample_size"`
	ComputedAt    time.Time       `json:"computed_at"`
}

// BuildTransactionPattern derives a pattern from a user's completed payments.
// An empty payment list yields a zero-average pattern with SampleSize 0.
func BuildTransactionPattern(userID uuid.UUID, payments []Payment) *TransactionPattern {
	pattern := &TransactionPattern{
		UserID:     userID,
		ComputedAt: time.Now(),
	}

	total := decimal.Zero
	for _, p := range payments {
		if p.Status != PaymentStatusCompleted {
			continue
		}
		total = total.Add(p.Amount)
		pattern.TimePattern[p.CreatedAt.Hour()]++
		pattern.SampleSize++
	}

	if pattern.SampleSize > 0 {
		pattern.AverageAmount = total.Div(decimal.NewFromInt(int64(pattern.SampleSize)))
	}

	return pattern
}

// MeanHourlyFrequency returns the mean of the hour-of-day histogram buckets.
func (p *TransactionPattern) MeanHourlyFrequency() float64 {
	total := 0
	for _, count := range p.TimePattern {
		total += count
	}
	return float64(total) / 24.0
}

// HourFrequency returns the histogram count for the given hour (0-23).
func (p *TransactionPattern) HourFrequency(hour int) int {
	if hour < 0 || hour > 23 {
		return 0
	}
	return p.TimePattern[hour]
}
