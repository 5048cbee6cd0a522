package risk

import "errors"

var (
	// Scoring errors
	ErrMissingUserID    = errors.New("user id is required for risk analysis")
	ErrInvalidAmount    = errors.New("payment amount must be positive")
	ErrInsufficientData = errors.New("no risk factor could be evaluated")

	// Alert errors
	ErrAlertNotFound        = errors.New("fraud alert not found")
	ErrAlertAlreadyResolved = errors.New("fraud alert is already resolved")
)
