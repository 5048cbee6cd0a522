package risk

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"payment-fraud-risk/internal/domain/history"
	"payment-fraud-risk/internal/pkg/logger"
	"payment-fraud-risk/internal/pkg/metrics"
)

// Scoring model constants. These are fixed properties of the heuristic, not
// runtime configuration.
const (
	velocityWindow       = time.Hour
	velocityPerTxScore   = 5.0
	velocityMaxScore     = 30.0
	velocityTriggerCount = 5

	amountRatioTrigger = 10.0
	amountMaxScore     = 25.0

	locationScore       = 20.0
	locationSampleSize  = 10
	deviceScore         = 15.0
	deviceSessionWindow = 24 * time.Hour

	timeOfDayScore       = 10.0
	timeFrequencyTrigger = 0.10

	behaviorRatioTrigger = 0.30
	behaviorRatioWeight  = 50.0
	behaviorMaxScore     = 20.0

	ipNoveltyScore   = 10.0
	ipBlocklistScore = 30.0
	ipSampleSize     = 20

	patternWindow = 30 * 24 * time.Hour

	maxScore = 100

	// Neutral fallback returned when the whole evaluation fails: medium risk
	// forces a manual-review-equivalent state instead of silently approving
	// or silently blocking.
	fallbackRiskScore = 50
)

// AnalyzeInput carries the attributes of a payment attempt to be scored.
// Location, DeviceInfo and IPAddress are optional; factors that depend on a
// missing attribute are skipped.
type AnalyzeInput struct {
	UserID     uuid.UUID
	Amount     decimal.Decimal
	Location   string
	DeviceInfo string
	IPAddress  string
}

// Scorer evaluates the fraud risk of a payment attempt against the user's
// transaction, session and security-event history.
type Scorer struct {
	history       HistoryRepository
	alerts        AlertRepository
	notifications NotificationRepository

	velocity  VelocityReader // optional cache fast path
	contexts  ContextReader  // optional cache fast path
	blocklist map[string]struct{}

	now func() time.Time
}

// NewScorer creates a risk scorer. The cache fast paths and the IP blocklist
// are optional and set via SetVelocityReader, SetContextReader and
// SetIPBlocklist.
func NewScorer(
	historyRepo HistoryRepository,
	alertRepo AlertRepository,
	notificationRepo NotificationRepository,
) *Scorer {
	return &Scorer{
		history:       historyRepo,
		alerts:        alertRepo,
		notifications: notificationRepo,
		blocklist:     make(map[string]struct{}),
		now:           time.Now,
	}
}

// SetVelocityReader installs a cache-backed counter consulted before the
// database for the velocity factor.
func (s *Scorer) SetVelocityReader(reader VelocityReader) {
	s.velocity = reader
}

// SetContextReader installs a cache consulted before the database by the
// location, device and IP factors.
func (s *Scorer) SetContextReader(reader ContextReader) {
	s.contexts = reader
}

// SetIPBlocklist replaces the static IP blocklist
func (s *Scorer) SetIPBlocklist(ips []string) {
	blocklist := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		blocklist[ip] = struct{}{}
	}
	s.blocklist = blocklist
}

// AnalyzeTransaction scores a payment attempt. It never returns an error:
// individual factor failures degrade to a zero contribution, and a failure of
// the evaluation as a whole yields a fixed medium-risk fallback so that a
// scoring outage can neither silently approve nor silently block a payment.
func (s *Scorer) AnalyzeTransaction(ctx context.Context, input AnalyzeInput) *FraudRiskScore {
	score, err := s.analyze(ctx, input)
	if err != nil {
		logger.Error("risk analysis degraded to neutral fallback",
			zap.String("user_id", input.UserID.String()),
			zap.Error(err))
		metrics.Fallback()
		return fallbackScore()
	}
	return score
}

func (s *Scorer) analyze(ctx context.Context, input AnalyzeInput) (*FraudRiskScore, error) {
	if input.UserID == uuid.Nil {
		return nil, ErrMissingUserID
	}
	if input.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	// The 30-day pattern feeds both the amount and time-of-day factors, so it
	// is fetched once. A fetch failure fails those two factors open.
	pattern, patternErr := s.fetchPattern(ctx, input.UserID)

	var (
		results   []FactorResult
		attempted int
		failed    int
	)

	eval := func(name string, fn func() (FactorResult, error)) {
		attempted++
		result, err := fn()
		if err != nil {
			failed++
			metrics.FactorFailure(name)
			logger.Error("risk factor failed open",
				zap.String("factor", name),
				zap.String("user_id", input.UserID.String()),
				zap.Error(err))
			return
		}
		if result.Suspicious {
			results = append(results, result)
		}
	}

	eval("velocity", func() (FactorResult, error) {
		return s.velocityFactor(ctx, input)
	})
	eval("amount", func() (FactorResult, error) {
		if patternErr != nil {
			return FactorResult{}, patternErr
		}
		return s.amountFactor(input, pattern)
	})
	if input.Location != "" {
		eval("location", func() (FactorResult, error) {
			return s.locationFactor(ctx, input)
		})
	}
	if input.DeviceInfo != "" {
		eval("device", func() (FactorResult, error) {
			return s.deviceFactor(ctx, input)
		})
	}
	eval("time_of_day", func() (FactorResult, error) {
		if patternErr != nil {
			return FactorResult{}, patternErr
		}
		return s.timeOfDayFactor(pattern)
	})
	eval("behavior", func() (FactorResult, error) {
		return s.behaviorFactor(ctx, input)
	})
	if input.IPAddress != "" {
		eval("ip", func() (FactorResult, error) {
			return s.ipFactor(ctx, input)
		})
	}

	// A single unavailable data source degrades granularity; losing every
	// factor means the evaluation produced no signal at all.
	if attempted > 0 && failed == attempted {
		return nil, ErrInsufficientData
	}

	total := 0.0
	factors := make([]string, 0, len(results))
	for _, result := range results {
		total += result.Score
		factors = append(factors, result.Reason)
	}

	final := int(math.Round(math.Min(total, maxScore)))
	level := LevelForScore(final)

	score := &FraudRiskScore{
		Score:           final,
		Level:           level,
		Factors:         factors,
		Recommendations: buildRecommendations(level, factors),
	}

	if level == RiskLevelHigh || level == RiskLevelCritical {
		s.raiseAlert(ctx, input, score)
	}

	return score, nil
}

func (s *Scorer) fetchPattern(ctx context.Context, userID uuid.UUID) (*history.TransactionPattern, error) {
	since := s.now().Add(-patternWindow)
	payments, err := s.history.ListCompletedPayments(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("fetch completed payments: %w", err)
	}
	return history.BuildTransactionPattern(userID, payments), nil
}

// velocityFactor scores the number of payments in the trailing hour. The
// cache-backed reader is preferred; a cache miss or error falls back to the
// payments table before failing the factor open.
func (s *Scorer) velocityFactor(ctx context.Context, input AnalyzeInput) (FactorResult, error) {
	count, err := s.countRecentPayments(ctx, input.UserID)
	if err != nil {
		return FactorResult{}, err
	}

	result := FactorResult{Name: "velocity"}
	if count > velocityTriggerCount {
		result.Suspicious = true
		result.Score = math.Min(velocityMaxScore, float64(count)*velocityPerTxScore)
		result.Reason = fmt.Sprintf("High transaction velocity: %d payments in the last hour", count)
	}
	return result, nil
}

func (s *Scorer) countRecentPayments(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.velocity != nil {
		count, err := s.velocity.CountRecentPayments(ctx, userID, velocityWindow)
		if err == nil {
			return count, nil
		}
		logger.Warn("velocity cache unavailable, falling back to database",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
	return s.history.CountPaymentsSince(ctx, userID, s.now().Add(-velocityWindow))
}

// amountFactor scores the deviation of the current amount from the user's
// 30-day average.
func (s *Scorer) amountFactor(input AnalyzeInput, pattern *history.TransactionPattern) (FactorResult, error) {
	result := FactorResult{Name: "amount"}
	if pattern.SampleSize == 0 || pattern.AverageAmount.IsZero() {
		// No baseline to deviate from
		return result, nil
	}

	ratio := input.Amount.Div(pattern.AverageAmount).InexactFloat64()
	if ratio > amountRatioTrigger {
		result.Suspicious = true
		result.Score = math.Min(amountMaxScore, math.Log10(ratio)*10)
		result.Reason = fmt.Sprintf("Amount is %.1fx the 30-day average", ratio)
	}
	return result, nil
}

// locationFactor flags a location absent from the user's last 10 sessions.
// The cache holds the most recently seen locations, so a cache hit clears the
// factor without touching the sessions table; a miss is not authoritative and
// the sessions table decides.
func (s *Scorer) locationFactor(ctx context.Context, input AnalyzeInput) (FactorResult, error) {
	result := FactorResult{Name: "location"}

	if s.contexts != nil {
		known, err := s.contexts.IsKnownLocation(ctx, input.UserID, input.Location, locationSampleSize)
		if err != nil {
			logger.Warn("location cache unavailable, falling back to database",
				zap.String("user_id", input.UserID.String()),
				zap.Error(err))
		} else if known {
			return result, nil
		}
	}

	sessions, err := s.history.ListRecentSessions(ctx, input.UserID, locationSampleSize)
	if err != nil {
		return FactorResult{}, fmt.Errorf("fetch recent sessions: %w", err)
	}
	for _, session := range sessions {
		if session.Location == input.Location {
			return result, nil
		}
	}

	result.Suspicious = true
	result.Score = locationScore
	result.Reason = fmt.Sprintf("Payment from unrecognized location: %s", input.Location)
	return result, nil
}

// deviceFactor flags a device fingerprint absent from the trailing 24 hours
// of sessions. A user with no recent sessions at all is suspicious by
// default: there is no device history to verify against. A cache hit within
// the same window clears the factor without touching the sessions table.
func (s *Scorer) deviceFactor(ctx context.Context, input AnalyzeInput) (FactorResult, error) {
	result := FactorResult{Name: "device"}

	if s.contexts != nil {
		known, err := s.contexts.IsKnownDevice(ctx, input.UserID, input.DeviceInfo, deviceSessionWindow)
		if err != nil {
			logger.Warn("device cache unavailable, falling back to database",
				zap.String("user_id", input.UserID.String()),
				zap.Error(err))
		} else if known {
			return result, nil
		}
	}

	sessions, err := s.history.ListSessionsSince(ctx, input.UserID, s.now().Add(-deviceSessionWindow))
	if err != nil {
		return FactorResult{}, fmt.Errorf("fetch sessions for device check: %w", err)
	}
	if len(sessions) == 0 {
		result.Suspicious = true
		result.Score = deviceScore
		result.Reason = "No recent session history to verify device against"
		return result, nil
	}

	for _, session := range sessions {
		if session.DeviceInfo == input.DeviceInfo {
			return result, nil
		}
	}

	result.Suspicious = true
	result.Score = deviceScore
	result.Reason = "Unrecognized device fingerprint"
	return result, nil
}

// timeOfDayFactor flags payments at an hour the user rarely transacts in:
// the hour's historical frequency is under 10% of the user's mean hourly
// frequency.
func (s *Scorer) timeOfDayFactor(pattern *history.TransactionPattern) (FactorResult, error) {
	result := FactorResult{Name: "time_of_day"}

	mean := pattern.MeanHourlyFrequency()
	if mean <= 0 {
		return result, nil
	}

	hour := s.now().Hour()
	if float64(pattern.HourFrequency(hour)) < timeFrequencyTrigger*mean {
		result.Suspicious = true
		result.Score = timeOfDayScore
		result.Reason = fmt.Sprintf("Payment at an unusual hour (%02d:00) for this user", hour)
	}
	return result, nil
}

// behaviorFactor scores the share of the user's last-30-day security events
// that indicate account probing (suspicious_activity or login).
func (s *Scorer) behaviorFactor(ctx context.Context, input AnalyzeInput) (FactorResult, error) {
	events, err := s.history.ListSecurityEvents(ctx, input.UserID, s.now().Add(-patternWindow))
	if err != nil {
		return FactorResult{}, fmt.Errorf("fetch security events: %w", err)
	}

	result := FactorResult{Name: "behavior"}
	if len(events) == 0 {
		return result, nil
	}

	flagged := 0
	for _, event := range events {
		if event.Type == history.EventTypeSuspiciousActivity || event.Type == history.EventTypeLogin {
			flagged++
		}
	}

	ratio := float64(flagged) / float64(len(events))
	if ratio > behaviorRatioTrigger {
		result.Suspicious = true
		result.Score = math.Min(behaviorMaxScore, ratio*behaviorRatioWeight)
		result.Reason = fmt.Sprintf("Elevated security event activity: %.0f%% of recent events flagged", ratio*100)
	}
	return result, nil
}

// ipFactor scores IP novelty against the user's last 20 known IPs plus
// membership in the static blocklist. Both conditions can contribute. The
// cached IP list is consulted first; only a cache hit is trusted, an absent
// IP still gets checked against the sessions table.
func (s *Scorer) ipFactor(ctx context.Context, input AnalyzeInput) (FactorResult, error) {
	result := FactorResult{Name: "ip"}

	known := false
	if s.contexts != nil {
		recentIPs, err := s.contexts.ListRecentIPs(ctx, input.UserID, ipSampleSize)
		if err != nil {
			logger.Warn("ip cache unavailable, falling back to database",
				zap.String("user_id", input.UserID.String()),
				zap.Error(err))
		} else {
			for _, ip := range recentIPs {
				if ip == input.IPAddress {
					known = true
					break
				}
			}
		}
	}

	if !known {
		knownIPs, err := s.history.ListKnownIPs(ctx, input.UserID, ipSampleSize)
		if err != nil {
			return FactorResult{}, fmt.Errorf("fetch known IPs: %w", err)
		}
		for _, ip := range knownIPs {
			if ip == input.IPAddress {
				known = true
				break
			}
		}
	}
	_, blocked := s.blocklist[input.IPAddress]

	var reasons []string
	if !known {
		result.Score += ipNoveltyScore
		reasons = append(reasons, "Payment from a new IP address")
	}
	if blocked {
		result.Score += ipBlocklistScore
		reasons = append(reasons, "IP address is on the reputation blocklist")
	}
	if len(reasons) > 0 {
		result.Suspicious = true
		result.Reason = strings.Join(reasons, "; ")
	}
	return result, nil
}

// raiseAlert persists a fraud alert and emits a security notification for a
// high or critical outcome. Failures are logged and never alter the score
// already computed for the caller.
func (s *Scorer) raiseAlert(ctx context.Context, input AnalyzeInput, score *FraudRiskScore) {
	alert := NewFraudAlert(input.UserID, score)
	alert.Metadata["amount"] = input.Amount.String()
	if input.Location != "" {
		alert.Metadata["location"] = input.Location
	}
	if input.DeviceInfo != "" {
		alert.Metadata["device_info"] = input.DeviceInfo
	}
	if input.IPAddress != "" {
		alert.Metadata["ip_address"] = input.IPAddress
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		logger.Error("failed to persist fraud alert",
			zap.String("user_id", input.UserID.String()),
			zap.Int("risk_score", score.Score),
			zap.Error(err))
		return
	}
	metrics.AlertCreated()

	notification := NewSecurityNotification(alert)
	if err := s.notifications.Create(ctx, notification); err != nil {
		logger.Error("failed to emit security notification",
			zap.String("user_id", input.UserID.String()),
			zap.String("alert_id", alert.ID.String()),
			zap.Error(err))
	}
}

func fallbackScore() *FraudRiskScore {
	return &FraudRiskScore{
		Score:           fallbackRiskScore,
		Level:           RiskLevelMedium,
		Factors:         []string{"Risk analysis unavailable - manual review recommended"},
		Recommendations: buildRecommendations(RiskLevelMedium, nil),
	}
}

// buildRecommendations returns the advisory strings for a scoring outcome:
// a base set keyed off the level, plus factor-specific advice when velocity,
// location, or device factors fired.
func buildRecommendations(level RiskLevel, factors []string) []string {
	var recommendations []string

	switch level {
	case RiskLevelCritical:
		recommendations = append(recommendations,
			"Block the transaction pending manual verification",
			"Require identity verification before releasing the payment",
			"Contact the account holder by phone")
	case RiskLevelHigh:
		recommendations = append(recommendations,
			"Require additional authentication for this transaction",
			"Send a security alert to the account holder",
			"Monitor account activity for the next 24 hours")
	case RiskLevelMedium:
		recommendations = append(recommendations,
			"Notify the account holder of unusual activity",
			"Log the transaction for periodic review")
	default:
		recommendations = append(recommendations,
			"Continue routine monitoring")
	}

	joined := strings.ToLower(strings.Join(factors, " "))
	if strings.Contains(joined, "velocity") {
		recommendations = append(recommendations,
			"Temporarily limit transaction frequency on this account")
	}
	if strings.Contains(joined, "location") {
		recommendations = append(recommendations,
			"Verify the new location with the account holder")
	}
	if strings.Contains(joined, "device") {
		recommendations = append(recommendations,
			"Require device verification before further payments")
	}

	return recommendations
}
