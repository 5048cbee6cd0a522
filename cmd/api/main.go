package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	riskapp "payment-fraud-risk/internal/application/risk"
	"payment-fraud-risk/internal/domain/history"
	"payment-fraud-risk/internal/domain/risk"
	"payment-fraud-risk/internal/infrastructure/cache/redis"
	"payment-fraud-risk/internal/infrastructure/database/postgres"
	"payment-fraud-risk/internal/infrastructure/http/router"
	"payment-fraud-risk/internal/interfaces/http/handler"
	"payment-fraud-risk/internal/pkg/config"
	"payment-fraud-risk/internal/pkg/logger"
)

const version = "1.0.0"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load .env if present, then configuration
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting payment risk API",
		zap.String("version", version),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))

	// Database connection
	var dbClient *postgres.Client
	var historyRepo risk.HistoryRepository
	var alertRepo risk.AlertRepository
	var notificationRepo risk.NotificationRepository

	dbClient, err = postgres.NewClient(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Warn("database connection failed, running in standalone mode", zap.Error(err))
		dbClient = nil
		memory := NewMemoryStore()
		historyRepo = memory
		alertRepo = memory
		notificationRepo = memory.NotificationStore()
	} else {
		logger.Info("connected to PostgreSQL",
			zap.String("host", cfg.Database.Host), zap.Int("port", cfg.Database.Port))
		historyRepo = postgres.NewHistoryRepository(dbClient)
		alertRepo = postgres.NewAlertRepository(dbClient)
		notificationRepo = postgres.NewNotificationRepository(dbClient)
	}

	// Redis connection
	var redisClient *redis.Client
	var recorder riskapp.HistoryRecorder
	var velocityReader risk.VelocityReader
	var contextReader risk.ContextReader

	redisClient, err = redis.NewClient(redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Warn("redis connection failed, cache fast paths disabled", zap.Error(err))
		redisClient = nil
	} else {
		logger.Info("connected to Redis",
			zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
		historyRecorder := redis.NewHistoryRecorder(redisClient)
		recorder = historyRecorder
		velocityReader = historyRecorder.Velocity()
		contextReader = historyRecorder
	}

	// Initialize scorer and services
	scorer := risk.NewScorer(historyRepo, alertRepo, notificationRepo)
	scorer.SetIPBlocklist(cfg.Risk.IPBlocklist)
	if velocityReader != nil {
		scorer.SetVelocityReader(velocityReader)
	}
	if contextReader != nil {
		scorer.SetContextReader(contextReader)
	}

	alertService := risk.NewAlertService(alertRepo, historyRepo)

	analyzeUseCase := riskapp.NewAnalyzePaymentUseCase(scorer, recorder, cfg.Risk.AnalysisTimeout)

	// Initialize handlers
	riskHandler := handler.NewRiskHandler(analyzeUseCase, alertService, cfg.Risk.MaxBatchSize)

	var dbHealthChecker handler.HealthChecker
	var redisHealthChecker handler.HealthChecker
	if dbClient != nil {
		dbHealthChecker = dbClient
	}
	if redisClient != nil {
		redisHealthChecker = redisClient
	}
	healthHandler := handler.NewHealthHandler(dbHealthChecker, redisHealthChecker, version)

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = handler.MetricsHandler()
	}

	// Create router
	r := router.NewRouter(riskHandler, healthHandler, metricsHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	// Close connections
	if dbClient != nil {
		dbClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("server stopped")
}

// MemoryStore is an in-memory history, alert, and notification store for
// standalone mode (when the database is not available). New users start with
// no history: every lookup succeeds with an empty result, so the no-baseline
// factors stay quiet and early scores run low until context accumulates.
type MemoryStore struct {
	mu            sync.RWMutex
	payments      map[uuid.UUID][]history.Payment
	sessions      map[uuid.UUID][]history.UserSession
	events        map[uuid.UUID][]history.SecurityEvent
	alerts        map[uuid.UUID]*risk.FraudAlert
	notifications []*risk.SecurityNotification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments: make(map[uuid.UUID][]history.Payment),
		sessions: make(map[uuid.UUID][]history.UserSession),
		events:   make(map[uuid.UUID][]history.SecurityEvent),
		alerts:   make(map[uuid.UUID]*risk.FraudAlert),
	}
}

func (s *MemoryStore) CountPaymentsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, p := range s.payments[userID] {
		if p.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ListCompletedPayments(ctx context.Context, userID uuid.UUID, since time.Time) ([]history.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []history.Payment
	for _, p := range s.payments[userID] {
		if p.Status == history.PaymentStatusCompleted && p.CreatedAt.After(since) {
			results = append(results, p)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.After(results[j].CreatedAt) })
	return results, nil
}

func (s *MemoryStore) ListRecentSessions(ctx context.Context, userID uuid.UUID, limit int) ([]history.UserSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := append([]history.UserSession(nil), s.sessions[userID]...)
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.After(sessions[j].CreatedAt) })
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *MemoryStore) ListSessionsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]history.UserSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []history.UserSession
	for _, sess := range s.sessions[userID] {
		if sess.CreatedAt.After(since) {
			results = append(results, sess)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.After(results[j].CreatedAt) })
	return results, nil
}

func (s *MemoryStore) ListSecurityEvents(ctx context.Context, userID uuid.UUID, since time.Time) ([]history.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []history.SecurityEvent
	for _, e := range s.events[userID] {
		if e.Timestamp.After(since) {
			results = append(results, e)
		}
	}
	return results, nil
}

func (s *MemoryStore) ListKnownIPs(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var ips []string
	sessions := append([]history.UserSession(nil), s.sessions[userID]...)
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.After(sessions[j].CreatedAt) })
	for _, sess := range sessions {
		if sess.IPAddress == "" {
			continue
		}
		if _, ok := seen[sess.IPAddress]; ok {
			continue
		}
		seen[sess.IPAddress] = struct{}{}
		ips = append(ips, sess.IPAddress)
		if len(ips) >= limit {
			break
		}
	}
	return ips, nil
}

func (s *MemoryStore) Create(ctx context.Context, alert *risk.FraudAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = alert
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, alertID uuid.UUID) (*risk.FraudAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.alerts[alertID]; ok {
		return a, nil
	}
	return nil, risk.ErrAlertNotFound
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*risk.FraudAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []*risk.FraudAlert
	for _, a := range s.alerts {
		if a.UserID == userID {
			results = append(results, a)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.After(results[j].CreatedAt) })
	if offset >= len(results) {
		return nil, nil
	}
	results = results[offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) Update(ctx context.Context, alert *risk.FraudAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; !ok {
		return risk.ErrAlertNotFound
	}
	s.alerts[alert.ID] = alert
	return nil
}

// NotificationStore returns the notification view of the store. It is a
// separate type because its Create signature differs from the alert one.
func (s *MemoryStore) NotificationStore() risk.NotificationRepository {
	return &memoryNotificationStore{store: s}
}

type memoryNotificationStore struct {
	store *MemoryStore
}

func (n *memoryNotificationStore) Create(ctx context.Context, notification *risk.SecurityNotification) error {
	n.store.mu.Lock()
	defer n.store.mu.Unlock()
	n.store.notifications = append(n.store.notifications, notification)
	return nil
}
