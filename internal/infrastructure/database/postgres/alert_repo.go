package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"payment-fraud-risk/internal/domain/risk"
)

// AlertRepository implements risk.AlertRepository
type AlertRepository struct {
	db *gorm.DB
}

var _ risk.AlertRepository = (*AlertRepository)(nil)

// NewAlertRepository creates a new alert repository
func NewAlertRepository(client *Client) *AlertRepository {
	return &AlertRepository{db: client.DB()}
}

// Create stores a fraud alert
func (r *AlertRepository) Create(ctx context.Context, alert *risk.FraudAlert) error {
	return r.db.WithContext(ctx).Create(alertToModel(alert)).Error
}

// GetByID retrieves an alert by ID
func (r *AlertRepository) GetByID(ctx context.Context, alertID uuid.UUID) (*risk.FraudAlert, error) {
	var model FraudAlertModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, risk.ErrAlertNotFound
		}
		return nil, err
	}
	return modelToAlert(&model), nil
}

// ListByUser retrieves alerts filed against a user, newest first
func (r *AlertRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*risk.FraudAlert, error) {
	var models []FraudAlertModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	alerts := make([]*risk.FraudAlert, len(models))
	for i := range models {
		alerts[i] = modelToAlert(&models[i])
	}
	return alerts, nil
}

// Update persists resolution mutations to an existing alert
func (r *AlertRepository) Update(ctx context.Context, alert *risk.FraudAlert) error {
	result := r.db.WithContext(ctx).Model(&FraudAlertModel{}).
		Where("id = ?", alert.ID).
		Updates(map[string]interface{}{
			"resolved":    alert.Resolved,
			"resolution":  alert.Resolution,
			"resolved_at": alert.ResolvedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return risk.ErrAlertNotFound
	}
	return nil
}

// NotificationRepository implements risk.NotificationRepository
type NotificationRepository struct {
	db *gorm.DB
}

var _ risk.NotificationRepository = (*NotificationRepository)(nil)

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(client *Client) *NotificationRepository {
	return &NotificationRepository{db: client.DB()}
}

// Create stores a user-facing security notification
func (r *NotificationRepository) Create(ctx context.Context, notification *risk.SecurityNotification) error {
	model := &NotificationModel{
		ID:        notification.ID,
		UserID:    notification.UserID,
		AlertID:   notification.AlertID,
		Type:      notification.Type,
		Title:     notification.Title,
		Message:   notification.Message,
		CreatedAt: notification.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(model).Error
}

func alertToModel(alert *risk.FraudAlert) *FraudAlertModel {
	metadata, _ := json.Marshal(alert.Metadata)
	return &FraudAlertModel{
		ID:          alert.ID,
		UserID:      alert.UserID,
		Type:        string(alert.Type),
		Severity:    string(alert.Severity),
		Description: alert.Description,
		RiskScore:   alert.RiskScore,
		Metadata:    string(metadata),
		Resolved:    alert.Resolved,
		Resolution:  alert.Resolution,
		ResolvedAt:  alert.ResolvedAt,
		CreatedAt:   alert.CreatedAt,
	}
}

func modelToAlert(model *FraudAlertModel) *risk.FraudAlert {
	alert := &risk.FraudAlert{
		ID:          model.ID,
		UserID:      model.UserID,
		Type:        risk.AlertType(model.Type),
		Severity:    risk.RiskLevel(model.Severity),
		Description: model.Description,
		RiskScore:   model.RiskScore,
		Resolved:    model.Resolved,
		Resolution:  model.Resolution,
		ResolvedAt:  model.ResolvedAt,
		CreatedAt:   model.CreatedAt,
	}
	if model.Metadata != "" {
		if err := json.Unmarshal([]byte(model.Metadata), &alert.Metadata); err != nil {
			alert.Metadata = make(map[string]interface{})
		}
	}
	return alert
}
