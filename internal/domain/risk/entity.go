package risk

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel represents the severity of fraud risk
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Score thresholds mapping an aggregate score to a risk level.
// These are fixed by the scoring model, not configuration.
const (
	CriticalThreshold = 80
	HighThreshold     = 60
	MediumThreshold   = 30
)

// LevelForScore maps a 0-100 score to a discrete risk level
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return RiskLevelCritical
	case score >= HighThreshold:
		return RiskLevelHigh
	case score >= MediumThreshold:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// AlertType tags the source heuristic of a fraud alert
type AlertType string

// AlertTypeMLPrediction is the single source tag the scoring pipeline files
// alerts under.
const AlertTypeMLPrediction AlertType = "ml_fraud_prediction"

// FraudRiskScore is the outcome of scoring a single payment attempt.
// It is returned to the payment flow and never persisted.
type FraudRiskScore struct {
	Score           int       `json:"score"` // 0-100
	Level           RiskLevel `json:"level"`
	Factors         []string  `json:"factors"`
	Recommendations []string  `json:"recommendations"`
}

// FactorResult is one independently computed suspicion signal
type FactorResult struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Suspicious bool    `json:"suspicious"`
	Reason     string  `json:"reason"`
}

// FraudAlert is a persisted record of a high or critical scoring outcome.
// Alerts are created by the scoring pipeline and later resolved manually;
// they are never deleted.
type FraudAlert struct {
	ID          uuid.UUID              `json:"id"`
	UserID      uuid.UUID              `json:"user_id"`
	Type        AlertType              `json:"type"`
	Severity    RiskLevel              `json:"severity"`
	Description string                 `json:"description"`
	RiskScore   int                    `json:"risk_score"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Resolved    bool                   `json:"resolved"`
	Resolution  string                 `json:"resolution,omitempty"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NewFraudAlert creates a new unresolved fraud alert for a scoring outcome
func NewFraudAlert(userID uuid.UUID, score *FraudRiskScore) *FraudAlert {
	return &FraudAlert{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        AlertTypeMLPrediction,
		Severity:    score.Level,
		Description: "Automated risk scoring flagged a payment attempt",
		RiskScore:   score.Score,
		Metadata: map[string]interface{}{
			"factors": score.Factors,
		},
		CreatedAt: time.Now(),
	}
}

// Resolve marks the alert as manually resolved
func (a *FraudAlert) Resolve(resolution string) error {
	if a.Resolved {
		return ErrAlertAlreadyResolved
	}
	now := time.Now()
	a.Resolved = true
	a.Resolution = resolution
	a.ResolvedAt = &now
	return nil
}

// SecurityNotification is the user-facing notification emitted alongside a
// fraud alert.
type SecurityNotification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	AlertID   uuid.UUID `json:"alert_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSecurityNotification creates a notification referencing a fraud alert
func NewSecurityNotification(alert *FraudAlert) *SecurityNotification {
	return &SecurityNotification{
		ID:        uuid.New(),
		UserID:    alert.UserID,
		AlertID:   alert.ID,
		Type:      "security",
		Title:     "Unusual payment activity detected",
		Message:   "A recent payment attempt on your account was flagged for review. If this was not you, contact support immediately.",
		CreatedAt: time.Now(),
	}
}
