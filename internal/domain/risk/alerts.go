package risk

import (
	"context"
	"time"

	"github.com/google/uuid"

	"payment-fraud-risk/internal/domain/history"
)

// AlertService handles the administrative side of fraud alerts: lookup and
// manual resolution. Alerts are never deleted.
type AlertService struct {
	alerts  AlertRepository
	history HistoryRepository
}

// NewAlertService creates a new alert service
func NewAlertService(alerts AlertRepository, historyRepo HistoryRepository) *AlertService {
	return &AlertService{
		alerts:  alerts,
		history: historyRepo,
	}
}

// GetAlert retrieves a fraud alert by ID
func (s *AlertService) GetAlert(ctx context.Context, alertID uuid.UUID) (*FraudAlert, error) {
	return s.alerts.GetByID(ctx, alertID)
}

// ListUserAlerts retrieves the alerts filed against a user, newest first
func (s *AlertService) ListUserAlerts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*FraudAlert, error) {
	return s.alerts.ListByUser(ctx, userID, limit, offset)
}

// ResolveAlert marks an alert as manually resolved with a resolution note
func (s *AlertService) ResolveAlert(ctx context.Context, alertID uuid.UUID, resolution string) (*FraudAlert, error) {
	alert, err := s.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if err := alert.Resolve(resolution); err != nil {
		return nil, err
	}

	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}

	return alert, nil
}

// GetUserPattern derives the user's current 30-day transaction pattern
func (s *AlertService) GetUserPattern(ctx context.Context, userID uuid.UUID) (*history.TransactionPattern, error) {
	since := time.Now().Add(-patternWindow)
	payments, err := s.history.ListCompletedPayments(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	return history.BuildTransactionPattern(userID, payments), nil
}
