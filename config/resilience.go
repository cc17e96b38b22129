package config

import (
	"time"

	"TruthMeterService/pkg/resilience"
)

// ResilienceConfig содержит настройки для механизмов отказоустойчивости
type ResilienceConfig struct {
	// CircuitBreaker содержит настройки для circuit breaker
	CircuitBreaker struct {
		// FailureThreshold количество ошибок, после которого circuit breaker откроется
		FailureThreshold int
		// ResetTimeout время, через которое circuit breaker перейдет в полуоткрытое состояние
		ResetTimeout time.Duration
	}

	// Startup содержит настройки повторных попыток подключения при старте
	Startup struct {
		MaxRetries     int
		InitialBackoff time.Duration
		MaxBackoff     time.Duration
		BackoffFactor  float64
		Jitter         float64
	}

	// Database содержит настройки отказоустойчивости для базы данных
	Database struct {
		// CommandTimeout таймаут для одной операции хранилища
		CommandTimeout time.Duration
	}

	// Redis содержит настройки отказоустойчивости для Redis
	Redis struct {
		// CommandTimeout таймаут для выполнения команд
		CommandTimeout time.Duration
	}
}

// DefaultResilienceConfig возвращает конфигурацию отказоустойчивости по умолчанию
func DefaultResilienceConfig() ResilienceConfig {
	config := ResilienceConfig{}

	config.CircuitBreaker.FailureThreshold = 5
	config.CircuitBreaker.ResetTimeout = 30 * time.Second

	// При старте база может подниматься дольше сервиса
	config.Startup.MaxRetries = 5
	config.Startup.InitialBackoff = 500 * time.Millisecond
	config.Startup.MaxBackoff = 5 * time.Second
	config.Startup.BackoffFactor = 2.0
	config.Startup.Jitter = 0.2

	config.Database.CommandTimeout = 5 * time.Second
	config.Redis.CommandTimeout = 1 * time.Second

	return config
}

// StartupRetryOptions возвращает настройки повторных попыток подключения
func (c ResilienceConfig) StartupRetryOptions() resilience.RetryOptions {
	return resilience.RetryOptions{
		MaxRetries:     c.Startup.MaxRetries,
		InitialBackoff: c.Startup.InitialBackoff,
		MaxBackoff:     c.Startup.MaxBackoff,
		BackoffFactor:  c.Startup.BackoffFactor,
		Jitter:         c.Startup.Jitter,
	}
}

// BreakerOptions возвращает порог и таймаут сброса circuit breaker
func (c ResilienceConfig) BreakerOptions() (int, time.Duration) {
	return c.CircuitBreaker.FailureThreshold, c.CircuitBreaker.ResetTimeout
}
