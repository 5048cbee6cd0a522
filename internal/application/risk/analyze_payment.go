package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"payment-fraud-risk/internal/domain/risk"
	"payment-fraud-risk/internal/pkg/logger"
	"payment-fraud-risk/internal/pkg/metrics"
)

// batchConcurrency bounds how many analyses of one batch run at once
const batchConcurrency = 10

// HistoryRecorder records the observed context of a scored payment into the
// cache fast paths. All methods are best effort.
type HistoryRecorder interface {
	RecordPayment(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, at time.Time) error
	RecordDevice(ctx context.Context, userID uuid.UUID, deviceInfo string) error
	RecordLocation(ctx context.Context, userID uuid.UUID, location string) error
	RecordIP(ctx context.Context, userID uuid.UUID, ip string) error
}

// AnalyzePaymentInput contains the input for payment risk analysis
type AnalyzePaymentInput struct {
	UserID     uuid.UUID
	Amount     decimal.Decimal
	Location   string
	DeviceInfo string
	IPAddress  string
}

// AnalyzePaymentOutput contains the risk analysis result
type AnalyzePaymentOutput struct {
	UserID          uuid.UUID      `json:"user_id"`
	Score           int            `json:"score"`
	Level           risk.RiskLevel `json:"level"`
	Factors         []string       `json:"factors"`
	Recommendations []string       `json:"recommendations"`
	LatencyMs       int64          `json:"latency_ms"`
	ProcessedAt     time.Time      `json:"processed_at"`
}

// AnalyzePaymentUseCase scores payment attempts before the payment flow
// finalizes them.
type AnalyzePaymentUseCase struct {
	scorer   *risk.Scorer
	recorder HistoryRecorder // optional

	analysisTimeout time.Duration
}

// NewAnalyzePaymentUseCase creates the analyze payment use case
func NewAnalyzePaymentUseCase(scorer *risk.Scorer, recorder HistoryRecorder, analysisTimeout time.Duration) *AnalyzePaymentUseCase {
	return &AnalyzePaymentUseCase{
		scorer:          scorer,
		recorder:        recorder,
		analysisTimeout: analysisTimeout,
	}
}

// Execute scores a single payment attempt. The analysis is bounded by the
// configured timeout; a deadline expiry inside a factor fetch fails that
// factor open rather than failing the analysis.
func (uc *AnalyzePaymentUseCase) Execute(ctx context.Context, input AnalyzePaymentInput) (*AnalyzePaymentOutput, error) {
	if input.UserID == uuid.Nil {
		return nil, risk.ErrMissingUserID
	}

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, uc.analysisTimeout)
	defer cancel()

	score := uc.scorer.AnalyzeTransaction(ctx, risk.AnalyzeInput{
		UserID:     input.UserID,
		Amount:     input.Amount,
		Location:   input.Location,
		DeviceInfo: input.DeviceInfo,
		IPAddress:  input.IPAddress,
	})

	elapsed := time.Since(startTime)
	metrics.ObserveAnalysis(string(score.Level), elapsed)

	// Record the observed context for future novelty checks without holding
	// up the response.
	if uc.recorder != nil {
		go uc.recordContext(input, startTime)
	}

	return &AnalyzePaymentOutput{
		UserID:          input.UserID,
		Score:           score.Score,
		Level:           score.Level,
		Factors:         score.Factors,
		Recommendations: score.Recommendations,
		LatencyMs:       elapsed.Milliseconds(),
		ProcessedAt:     startTime,
	}, nil
}

func (uc *AnalyzePaymentUseCase) recordContext(input AnalyzePaymentInput, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := uc.recorder.RecordPayment(ctx, input.UserID, input.Amount, at); err != nil {
		logger.Warn("failed to record payment for velocity tracking",
			zap.String("user_id", input.UserID.String()), zap.Error(err))
	}
	if input.DeviceInfo != "" {
		if err := uc.recorder.RecordDevice(ctx, input.UserID, input.DeviceInfo); err != nil {
			logger.Warn("failed to record device", zap.String("user_id", input.UserID.String()), zap.Error(err))
		}
	}
	if input.Location != "" {
		if err := uc.recorder.RecordLocation(ctx, input.UserID, input.Location); err != nil {
			logger.Warn("failed to record location", zap.String("user_id", input.UserID.String()), zap.Error(err))
		}
	}
	if input.IPAddress != "" {
		if err := uc.recorder.RecordIP(ctx, input.UserID, input.IPAddress); err != nil {
			logger.Warn("failed to record ip", zap.String("user_id", input.UserID.String()), zap.Error(err))
		}
	}
}

// BatchAnalyzeInput contains multiple payments to analyze
type BatchAnalyzeInput struct {
	Payments []AnalyzePaymentInput
}

// BatchAnalyzeOutput contains the per-payment results in input order
type BatchAnalyzeOutput struct {
	Results []*AnalyzePaymentOutput `json:"results"`
}

// ExecuteBatch analyzes a batch of payments concurrently
func (uc *AnalyzePaymentUseCase) ExecuteBatch(ctx context.Context, input BatchAnalyzeInput) (*BatchAnalyzeOutput, error) {
	results := make([]*AnalyzePaymentOutput, len(input.Payments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, payment := range input.Payments {
		g.Go(func() error {
			output, err := uc.Execute(gctx, payment)
			if err != nil {
				return fmt.Errorf("payment %d: %w", i, err)
			}
			results[i] = output
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &BatchAnalyzeOutput{Results: results}, nil
}

// AnalyzePaymentRequest is the API request structure
type AnalyzePaymentRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid"`
	Amount     string `json:"amount" validate:"required"`
	Location   string `json:"location,omitempty" validate:"omitempty,max=255"`
	DeviceInfo string `json:"device_info,omitempty" validate:"omitempty,max=512"`
	IPAddress  string `json:"ip_address,omitempty" validate:"omitempty,ip"`
}

// ToInput converts the API request to use case input
func (r *AnalyzePaymentRequest) ToInput() (*AnalyzePaymentInput, error) {
	userID, err := uuid.Parse(r.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id: %w", err)
	}

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	if amount.IsNegative() {
		return nil, risk.ErrInvalidAmount
	}

	return &AnalyzePaymentInput{
		UserID:     userID,
		Amount:     amount,
		Location:   r.Location,
		DeviceInfo: r.DeviceInfo,
		IPAddress:  r.IPAddress,
	}, nil
}
