package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen возвращается, когда circuit breaker отклоняет вызов
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState представляет состояние circuit breaker
type CircuitState int

const (
	// CircuitClosed нормальное состояние, вызовы проходят
	CircuitClosed CircuitState = iota
	// CircuitOpen вызовы отклоняются до истечения resetTimeout
	CircuitOpen
	// CircuitHalfOpen пропускается один пробный вызов
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// StateChangeFunc вызывается при каждой смене состояния
type StateChangeFunc func(name string, from, to CircuitState)

// CircuitBreaker защищает хранилище от лавины запросов при его отказе
type CircuitBreaker struct {
	name             string
	state            CircuitState
	failureCount     int
	failureThreshold int
	resetTimeout     time.Duration
	lastStateChange  time.Time
	probeInFlight    bool
	mutex            sync.Mutex
	logger           *zap.Logger
	ignoredErrors    []error
	onStateChange    StateChangeFunc
	now              func() time.Time
}

// NewCircuitBreaker создает circuit breaker. Ошибки из ignoredErrors
// (доменные отказы вроде NotFound) не считаются сбоями.
func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration, logger *zap.Logger, ignoredErrors ...error) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		name:             name,
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		lastStateChange:  time.Now(),
		logger:           logger.With(zap.String("circuit", name)),
		ignoredErrors:    ignoredErrors,
		now:              time.Now,
	}
}

// OnStateChange регистрирует обработчик смены состояния (например, для метрик)
func (cb *CircuitBreaker) OnStateChange(fn StateChangeFunc) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = fn
}

// Name возвращает имя circuit breaker
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute выполняет функцию с учетом состояния circuit breaker
func (cb *CircuitBreaker) Execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	probe, ok := cb.acquire(operation)
	if !ok {
		cb.logger.Warn("Circuit breaker preventing operation execution",
			zap.String("operation", operation),
			zap.Stringer("state", cb.GetState()))
		return ErrCircuitOpen
	}

	err := fn(ctx)
	cb.handleResult(operation, probe, err)
	return err
}

// acquire решает, пропускать ли вызов. probe=true для пробного вызова в HALF_OPEN.
func (cb *CircuitBreaker) acquire(operation string) (probe bool, ok bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == CircuitOpen && cb.now().Sub(cb.lastStateChange) >= cb.resetTimeout {
		cb.transition(operation, CircuitHalfOpen)
	}

	switch cb.state {
	case CircuitClosed:
		return false, true
	case CircuitHalfOpen:
		if cb.probeInFlight {
			return false, false
		}
		cb.probeInFlight = true
		return true, true
	default:
		return false, false
	}
}

func (cb *CircuitBreaker) handleResult(operation string, probe bool, err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if probe {
		cb.probeInFlight = false
	}

	if err != nil && cb.isIgnoredError(err) {
		cb.logger.Debug("Ignoring domain error for circuit breaker",
			zap.String("operation", operation),
			zap.Error(err))
		if probe {
			cb.transition(operation, CircuitClosed)
		}
		return
	}

	if err != nil {
		switch cb.state {
		case CircuitClosed:
			cb.failureCount++
			if cb.failureCount >= cb.failureThreshold {
				cb.transition(operation, CircuitOpen)
			}
		case CircuitHalfOpen:
			cb.transition(operation, CircuitOpen)
		}
		return
	}

	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0
	case CircuitHalfOpen:
		cb.transition(operation, CircuitClosed)
	}
}

func (cb *CircuitBreaker) isIgnoredError(err error) bool {
	for _, ignoredErr := range cb.ignoredErrors {
		if errors.Is(err, ignoredErr) {
			return true
		}
	}
	return false
}

// transition вызывается под mutex
func (cb *CircuitBreaker) transition(operation string, to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.lastStateChange = cb.now()

	switch to {
	case CircuitOpen:
		cb.logger.Warn("Circuit breaker opened",
			zap.String("operation", operation),
			zap.Int("failures", cb.failureCount),
			zap.Duration("reset_timeout", cb.resetTimeout))
	case CircuitHalfOpen:
		cb.logger.Info("Circuit breaker half-opened",
			zap.String("operation", operation))
	case CircuitClosed:
		cb.failureCount = 0
		cb.logger.Info("Circuit breaker closed",
			zap.String("operation", operation))
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

// GetState возвращает текущее состояние circuit breaker
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}
