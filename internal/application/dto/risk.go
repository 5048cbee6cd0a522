package dto

import (
	"time"

	"github.com/google/uuid"

	"payment-fraud-risk/internal/domain/history"
	"payment-fraud-risk/internal/domain/risk"
)

// AlertResponse represents a fraud alert in API responses
type AlertResponse struct {
	ID          uuid.UUID              `json:"id"`
	UserID      uuid.UUID              `json:"user_id"`
	Type        string                 `json:"type"`
	Severity    string                 `json:"severity"`
	Description string                 `json:"description"`
	RiskScore   int                    `json:"risk_score"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Resolved    bool                   `json:"resolved"`
	Resolution  string                 `json:"resolution,omitempty"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// FromAlert maps a domain alert to its API representation
func FromAlert(alert *risk.FraudAlert) *AlertResponse {
	return &AlertResponse{
		ID:          alert.ID,
		UserID:      alert.UserID,
		Type:        string(alert.Type),
		Severity:    string(alert.Severity),
		Description: alert.Description,
		RiskScore:   alert.RiskScore,
		Metadata:    alert.Metadata,
		Resolved:    alert.Resolved,
		Resolution:  alert.Resolution,
		ResolvedAt:  alert.ResolvedAt,
		CreatedAt:   alert.CreatedAt,
	}
}

// FromAlerts maps a list of domain alerts
func FromAlerts(alerts []*risk.FraudAlert) []*AlertResponse {
	responses := make([]*AlertResponse, len(alerts))
	for i, alert := range alerts {
		responses[i] = FromAlert(alert)
	}
	return responses
}

// ResolveAlertRequest is the API request for resolving an alert
type ResolveAlertRequest struct {
	Resolution string `json:"resolution" validate:"required,max=2000"`
}

// PatternResponse represents a user's derived transaction pattern
type PatternResponse struct {
	UserID        uuid.UUID `json:"user_id"`
	AverageAmount string    `json:"average_amount"`
	TimePattern   [24]int   `json:"time_pattern"`
	SampleSize    int       `json:"sample_size"`
	ComputedAt    time.Time `json:"computed_at"`
}

// FromPattern maps a derived pattern to its API representation
func FromPattern(pattern *history.TransactionPattern) *PatternResponse {
	return &PatternResponse{
		UserID:        pattern.UserID,
		AverageAmount: pattern.AverageAmount.String(),
		TimePattern:   pattern.TimePattern,
		SampleSize:    pattern.SampleSize,
		ComputedAt:    pattern.ComputedAt,
	}
}
