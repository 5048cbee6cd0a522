package risk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-fraud-risk/internal/domain/history"
	"payment-fraud-risk/internal/domain/risk"
)

// emptyHistory is a history repository for a user with no recorded activity
type emptyHistory struct{}

func (emptyHistory) CountPaymentsSince(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, nil
}
func (emptyHistory) ListCompletedPayments(context.Context, uuid.UUID, time.Time) ([]history.Payment, error) {
	return nil, nil
}
func (emptyHistory) ListRecentSessions(context.Context, uuid.UUID, int) ([]history.UserSession, error) {
	return nil, nil
}
func (emptyHistory) ListSessionsSince(context.Context, uuid.UUID, time.Time) ([]history.UserSession, error) {
	return nil, nil
}
func (emptyHistory) ListSecurityEvents(context.Context, uuid.UUID, time.Time) ([]history.SecurityEvent, error) {
	return nil, nil
}
func (emptyHistory) ListKnownIPs(context.Context, uuid.UUID, int) ([]string, error) {
	return nil, nil
}

type noopAlerts struct{}

func (noopAlerts) Create(context.Context, *risk.FraudAlert) error { return nil }
func (noopAlerts) GetByID(context.Context, uuid.UUID) (*risk.FraudAlert, error) {
	return nil, risk.ErrAlertNotFound
}
func (noopAlerts) ListByUser(context.Context, uuid.UUID, int, int) ([]*risk.FraudAlert, error) {
	return nil, nil
}
func (noopAlerts) Update(context.Context, *risk.FraudAlert) error { return nil }

type noopNotifications struct{}

func (noopNotifications) Create(context.Context, *risk.SecurityNotification) error { return nil }

// captureRecorder collects recorded context and signals when all four record
// calls for a payment have landed.
type captureRecorder struct {
	mu       sync.Mutex
	payments int
	devices  []string
	done     chan struct{}
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{done: make(chan struct{})}
}

func (r *captureRecorder) RecordPayment(_ context.Context, _ uuid.UUID, _ decimal.Decimal, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments++
	return nil
}

func (r *captureRecorder) RecordDevice(_ context.Context, _ uuid.UUID, deviceInfo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append(r.devices, deviceInfo)
	return nil
}

func (r *captureRecorder) RecordLocation(context.Context, uuid.UUID, string) error { return nil }

func (r *captureRecorder) RecordIP(context.Context, uuid.UUID, string) error {
	close(r.done)
	return nil
}

func newTestUseCase(recorder HistoryRecorder) *AnalyzePaymentUseCase {
	scorer := risk.NewScorer(emptyHistory{}, noopAlerts{}, noopNotifications{})
	return NewAnalyzePaymentUseCase(scorer, recorder, 5*time.Second)
}

func TestExecute_MissingUserID(t *testing.T) {
	uc := newTestUseCase(nil)

	_, err := uc.Execute(context.Background(), AnalyzePaymentInput{
		Amount: decimal.NewFromInt(100),
	})

	assert.ErrorIs(t, err, risk.ErrMissingUserID)
}

func TestExecute_ReturnsScoreAndRecordsContext(t *testing.T) {
	recorder := newCaptureRecorder()
	uc := newTestUseCase(recorder)

	userID := uuid.New()
	output, err := uc.Execute(context.Background(), AnalyzePaymentInput{
		UserID:     userID,
		Amount:     decimal.NewFromInt(100),
		DeviceInfo: "device-abc",
		IPAddress:  "203.0.113.10",
	})

	require.NoError(t, err)
	assert.Equal(t, userID, output.UserID)
	assert.GreaterOrEqual(t, output.Score, 0)
	assert.LessOrEqual(t, output.Score, 100)
	assert.NotEmpty(t, output.Recommendations)
	assert.False(t, output.ProcessedAt.IsZero())

	// Context recording happens off the request path
	select {
	case <-recorder.done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder was not invoked")
	}
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, 1, recorder.payments)
	assert.Equal(t, []string{"device-abc"}, recorder.devices)
}

func TestExecuteBatch_PreservesInputOrder(t *testing.T) {
	uc := newTestUseCase(nil)

	payments := make([]AnalyzePaymentInput, 25)
	userIDs := make([]uuid.UUID, 25)
	for i := range payments {
		userIDs[i] = uuid.New()
		payments[i] = AnalyzePaymentInput{
			UserID: userIDs[i],
			Amount: decimal.NewFromInt(int64(10 + i)),
		}
	}

	output, err := uc.ExecuteBatch(context.Background(), BatchAnalyzeInput{Payments: payments})

	require.NoError(t, err)
	require.Len(t, output.Results, 25)
	for i, result := range output.Results {
		assert.Equal(t, userIDs[i], result.UserID, "result %d out of order", i)
	}
}

func TestExecuteBatch_FailsOnMissingUserID(t *testing.T) {
	uc := newTestUseCase(nil)

	_, err := uc.ExecuteBatch(context.Background(), BatchAnalyzeInput{
		Payments: []AnalyzePaymentInput{
			{UserID: uuid.New(), Amount: decimal.NewFromInt(10)},
			{Amount: decimal.NewFromInt(20)},
		},
	})

	assert.ErrorIs(t, err, risk.ErrMissingUserID)
}

func TestAnalyzePaymentRequest_ToInput(t *testing.T) {
	userID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		req := AnalyzePaymentRequest{
			UserID:    userID.String(),
			Amount:    "149.99",
			Location:  "Austin, US",
			IPAddress: "203.0.113.10",
		}

		input, err := req.ToInput()

		require.NoError(t, err)
		assert.Equal(t, userID, input.UserID)
		assert.True(t, input.Amount.Equal(decimal.RequireFromString("149.99")))
		assert.Equal(t, "Austin, US", input.Location)
	})

	t.Run("invalid user id", func(t *testing.T) {
		req := AnalyzePaymentRequest{UserID: "not-a-uuid", Amount: "10"}
		_, err := req.ToInput()
		assert.Error(t, err)
	})

	t.Run("invalid amount", func(t *testing.T) {
		req := AnalyzePaymentRequest{UserID: userID.String(), Amount: "ten dollars"}
		_, err := req.ToInput()
		assert.Error(t, err)
	})

	t.Run("negative amount", func(t *testing.T) {
		req := AnalyzePaymentRequest{UserID: userID.String(), Amount: "-5"}
		_, err := req.ToInput()
		assert.ErrorIs(t, err, risk.ErrInvalidAmount)
	})
}
