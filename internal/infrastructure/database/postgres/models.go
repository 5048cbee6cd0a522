package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the database model for payment rows. The table is owned by
// the payment flow; this service only reads it.
type PaymentModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PatientID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Status    string          `gorm:"type:varchar(20);index;not null"`
	CreatedAt time.Time       `gorm:"index;not null"`
}

// TableName returns the table name for payments
func (PaymentModel) TableName() string {
	return "payments"
}

// UserSessionModel is the database model for user session rows
type UserSessionModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Location   string    `gorm:"type:varchar(255)"`
	DeviceInfo string    `gorm:"type:varchar(512)"`
	IPAddress  string    `gorm:"type:varchar(45)"`
	CreatedAt  time.Time `gorm:"index;not null"`
}

// TableName returns the table name for user sessions
func (UserSessionModel) TableName() string {
	return "user_sessions"
}

// SecurityEventModel is the database model for security event rows
type SecurityEventModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Type      string    `gorm:"type:varchar(50);not null"`
	Timestamp time.Time `gorm:"index;not null"`
}

// TableName returns the table name for security events
func (SecurityEventModel) TableName() string {
	return "security_events"
}

// FraudAlertModel is the database model for fraud alerts
type FraudAlertModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null"`
	Type        string    `gorm:"type:varchar(50);not null"`
	Severity    string    `gorm:"type:varchar(20);not null"`
	Description string    `gorm:"type:text"`
	RiskScore   int       `gorm:"not null"`
	Metadata    string    `gorm:"type:jsonb"`
	Resolved    bool      `gorm:"index;not null"`
	Resolution  string    `gorm:"type:text"`
	ResolvedAt  *time.Time
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for fraud alerts
func (FraudAlertModel) TableName() string {
	return "fraud_alerts"
}

// NotificationModel is the database model for user notifications
type NotificationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	AlertID   uuid.UUID `gorm:"type:uuid;index"`
	Type      string    `gorm:"type:varchar(50);not null"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Message   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for notifications
func (NotificationModel) TableName() string {
	return "notifications"
}
