package risk

import (
	"context"
	"time"

	"github.com/google/uuid"

	"payment-fraud-risk/internal/domain/history"
)

// HistoryRepository provides the read-only views of user history the risk
// factors score against. Implementations must be safe for concurrent use.
type HistoryRepository interface {
	// CountPaymentsSince returns the number of payments the user made after
	// the given instant, regardless of status.
	CountPaymentsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)

	// ListCompletedPayments returns the user's completed payments after the
	// given instant, most recent first.
	ListCompletedPayments(ctx context.Context, userID uuid.UUID, since time.Time) ([]history.Payment, error)

	// ListRecentSessions returns the user's most recent sessions, newest first.
	ListRecentSessions(ctx context.Context, userID uuid.UUID, limit int) ([]history.UserSession, error)

	// ListSessionsSince returns the user's sessions created after the given
	// instant, newest first.
	ListSessionsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]history.UserSession, error)

	// ListSecurityEvents returns the user's security events after the given
	// instant, newest first.
	ListSecurityEvents(ctx context.Context, userID uuid.UUID, since time.Time) ([]history.SecurityEvent, error)

	// ListKnownIPs returns the user's distinct IP addresses ordered by most
	// recent sighting, newest first, capped at limit.
	ListKnownIPs(ctx context.Context, userID uuid.UUID, limit int) ([]string, error)
}

// AlertRepository manages persisted fraud alerts
type AlertRepository interface {
	// Create stores a new fraud alert
	Create(ctx context.Context, alert *FraudAlert) error

	// GetByID retrieves an alert by ID
	GetByID(ctx context.Context, alertID uuid.UUID) (*FraudAlert, error)

	// ListByUser retrieves alerts filed against a user, newest first
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*FraudAlert, error)

	// Update persists resolution mutations to an existing alert
	Update(ctx context.Context, alert *FraudAlert) error
}

// NotificationRepository emits user-facing security notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *SecurityNotification) error
}

// VelocityReader is an optional fast path for the velocity factor, backed by
// a cache. The scorer falls back to HistoryRepository when the reader errors.
type VelocityReader interface {
	CountRecentPayments(ctx context.Context, userID uuid.UUID, window time.Duration) (int64, error)
}

// ContextReader is an optional cache fast path for the location, device and
// IP factors. A positive answer short-circuits the database lookup; a miss
// is not authoritative and the scorer falls back to HistoryRepository.
type ContextReader interface {
	// IsKnownLocation reports whether the location is among the user's most
	// recently seen locations, capped at limit.
	IsKnownLocation(ctx context.Context, userID uuid.UUID, location string, limit int) (bool, error)

	// IsKnownDevice reports whether the device fingerprint was seen for the
	// user within the trailing window.
	IsKnownDevice(ctx context.Context, userID uuid.UUID, deviceInfo string, window time.Duration) (bool, error)

	// ListRecentIPs returns the user's most recently seen IPs, newest first,
	// capped at limit.
	ListRecentIPs(ctx context.Context, userID uuid.UUID, limit int) ([]string, error)
}
