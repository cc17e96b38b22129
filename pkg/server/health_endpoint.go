package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// HealthCheckerInterface проверки зависимостей, которые нужны HealthCheck
type HealthCheckerInterface interface {
	IsDatabaseHealthy(ctx context.Context) bool
	IsRedisHealthy(ctx context.Context) bool
	RedisEnabled() bool
}

const (
	statusUp       = "up"
	statusDown     = "down"
	statusDegraded = "degraded"
	statusDisabled = "disabled"
	statusUnknown  = "unknown"
)

// HealthCheck служебный HTTP сервер: /health, /health/live, /health/ready и /metrics
type HealthCheck struct {
	checker       HealthCheckerInterface
	logger        *zap.Logger
	server        *http.Server
	interval      time.Duration
	statusMutex   sync.RWMutex
	serviceStatus map[string]string
	version       string
	stop          chan struct{}
	stopOnce      sync.Once
}

// HealthResponse ответ /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
}

// NewHealthCheck создает сервис проверки здоровья
func NewHealthCheck(checker HealthCheckerInterface, logger *zap.Logger, version string, interval time.Duration) *HealthCheck {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	redisStatus := statusUnknown
	if !checker.RedisEnabled() {
		redisStatus = statusDisabled
	}

	return &HealthCheck{
		checker:  checker,
		logger:   logger,
		interval: interval,
		version:  version,
		stop:     make(chan struct{}),
		serviceStatus: map[string]string{
			"store": statusUnknown,
			"redis": redisStatus,
		},
	}
}

// Handler возвращает маршруты служебного сервера
func (h *HealthCheck) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", h.livenessHandler)
	mux.HandleFunc("/health/ready", h.readinessHandler)
	mux.HandleFunc("/health", h.healthHandler)
	mux.Handle("/metrics", MetricsHandler())
	return LoggingMiddleware(h.logger, mux)
}

// StartServer запускает HTTP сервер и фоновую проверку зависимостей
func (h *HealthCheck) StartServer(port int) {
	h.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		h.logger.Info("Starting health check server", zap.Int("port", port))
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("Health check server failed", zap.Error(err))
		}
	}()

	h.checkServicesHealth()
	go h.monitorHealth()
}

// Stop останавливает HTTP сервер и фоновую проверку
func (h *HealthCheck) Stop(ctx context.Context) error {
	var err error
	h.stopOnce.Do(func() {
		close(h.stop)
		if h.server != nil {
			err = h.server.Shutdown(ctx)
		}
	})
	return err
}

func (h *HealthCheck) livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": statusUp})
}

// readinessHandler: без хранилища сервис не готов, без кэша работает
func (h *HealthCheck) readinessHandler(w http.ResponseWriter, r *http.Request) {
	h.statusMutex.RLock()
	storeStatus := h.serviceStatus["store"]
	h.statusMutex.RUnlock()

	if storeStatus != statusUp {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  statusDown,
			"message": "store is not available",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": statusUp})
}

func (h *HealthCheck) healthHandler(w http.ResponseWriter, r *http.Request) {
	h.statusMutex.RLock()
	services := make(map[string]string, len(h.serviceStatus))
	for k, v := range h.serviceStatus {
		services[k] = v
	}
	h.statusMutex.RUnlock()

	status := statusUp
	code := http.StatusOK
	if services["store"] != statusUp {
		status = statusDown
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Services:  services,
		Timestamp: time.Now(),
		Version:   h.version,
	})
}

func (h *HealthCheck) monitorHealth() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.checkServicesHealth()
		case <-h.stop:
			return
		}
	}
}

// checkServicesHealth обновляет статусы зависимостей
func (h *HealthCheck) checkServicesHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	storeStatus := statusUp
	if !h.checker.IsDatabaseHealthy(ctx) {
		storeStatus = statusDown
		h.logger.Warn("Store health check failed")
	}

	redisStatus := statusDisabled
	if h.checker.RedisEnabled() {
		redisStatus = statusUp
		if !h.checker.IsRedisHealthy(ctx) {
			redisStatus = statusDegraded
			h.logger.Warn("Redis health check failed")
		}
	}

	h.statusMutex.Lock()
	h.serviceStatus["store"] = storeStatus
	h.serviceStatus["redis"] = redisStatus
	h.statusMutex.Unlock()
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
