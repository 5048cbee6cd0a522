package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"payment-fraud-risk/internal/domain/history"
	"payment-fraud-risk/internal/domain/risk"
)

// HistoryRepository implements risk.HistoryRepository over the payments,
// user_sessions and security_events tables.
type HistoryRepository struct {
	db *gorm.DB
}

var _ risk.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(client *Client) *HistoryRepository {
	return &HistoryRepository{db: client.DB()}
}

// CountPaymentsSince counts a user's payments after the given instant
func (r *HistoryRepository) CountPaymentsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&PaymentModel{}).
		Where("patient_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// ListCompletedPayments returns a user's completed payments after the given
// instant, most recent first.
func (r *HistoryRepository) ListCompletedPayments(ctx context.Context, userID uuid.UUID, since time.Time) ([]history.Payment, error) {
	var models []PaymentModel
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND status = ? AND created_at >= ?", userID, string(history.PaymentStatusCompleted), since).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	payments := make([]history.Payment, len(models))
	for i, m := range models {
		payments[i] = history.Payment{
			ID:        m.ID,
			PatientID: m.PatientID,
			Amount:    m.Amount,
			Status:    history.PaymentStatus(m.Status),
			CreatedAt: m.CreatedAt,
		}
	}
	return payments, nil
}

// ListRecentSessions returns a user's most recent sessions, newest first
func (r *HistoryRepository) ListRecentSessions(ctx context.Context, userID uuid.UUID, limit int) ([]history.UserSession, error) {
	var models []UserSessionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return sessionsToDomain(models), nil
}

// ListSessionsSince returns a user's sessions after the given instant
func (r *HistoryRepository) ListSessionsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]history.UserSession, error) {
	var models []UserSessionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return sessionsToDomain(models), nil
}

// ListSecurityEvents returns a user's security events after the given instant
func (r *HistoryRepository) ListSecurityEvents(ctx context.Context, userID uuid.UUID, since time.Time) ([]history.SecurityEvent, error) {
	var models []SecurityEventModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ?", userID, since).
		Order("timestamp DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	events := make([]history.SecurityEvent, len(models))
	for i, m := range models {
		events[i] = history.SecurityEvent{
			ID:        m.ID,
			UserID:    m.UserID,
			Type:      history.SecurityEventType(m.Type),
			Timestamp: m.Timestamp,
		}
	}
	return events, nil
}

// ListKnownIPs returns a user's distinct IPs ordered by when each was last
// seen, newest first, capped at limit. Ordering by last sighting keeps the
// window tracking the user's current addresses instead of historical ones.
func (r *HistoryRepository) ListKnownIPs(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	var ips []string
	err := r.db.WithContext(ctx).
		Model(&UserSessionModel{}).
		Where("user_id = ? AND ip_address <> ''", userID).
		Group("ip_address").
		Order("MAX(created_at) DESC").
		Limit(limit).
		Pluck("ip_address", &ips).Error
	if err != nil {
		return nil, err
	}
	return ips, nil
}

func sessionsToDomain(models []UserSessionModel) []history.UserSession {
	sessions := make([]history.UserSession, len(models))
	for i, m := range models {
		sessions[i] = history.UserSession{
			ID:         m.ID,
			UserID:     m.UserID,
			Location:   m.Location,
			DeviceInfo: m.DeviceInfo,
			IPAddress:  m.IPAddress,
			CreatedAt:  m.CreatedAt,
		}
	}
	return sessions
}
