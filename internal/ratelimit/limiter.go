// Package ratelimit ограничивает частоту публикаций: не чаще одной за окно на пользователя.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"TruthMeterService/pkg/server"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultWindow минимальный интервал между публикациями одного пользователя
const DefaultWindow = 15 * time.Second

// Limiter хранит по одному rate.Limiter (1 событие за окно, burst 1) на пользователя.
// Состояние живет в памяти процесса.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	window   time.Duration
	clock    func() time.Time
	logger   *zap.Logger
}

// New создает ограничитель с окном window и часами clock (nil означает time.Now)
func New(window time.Duration, clock func() time.Time, logger *zap.Logger) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		window:   window,
		clock:    clock,
		logger:   logger,
	}
}

// Window возвращает длину окна
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Allow возвращает true, если с последней разрешенной публикации userID прошло
// не меньше окна, и в том же шаге фиксирует now. Отказ состояние не меняет.
func (l *Limiter) Allow(userID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.window), 1)
		l.limiters[userID] = limiter
	}
	return limiter.AllowN(now, 1)
}

// AllowNow проверяет пользователя по встроенным часам
func (l *Limiter) AllowNow(userID string) bool {
	return l.Allow(userID, l.clock())
}

// Sweep удаляет пользователей, у которых окно уже истекло: для них Allow
// и так вернет true. Возвращает число оставшихся записей.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	for userID, limiter := range l.limiters {
		if limiter.TokensAt(now) >= 1 {
			delete(l.limiters, userID)
		}
	}
	return len(l.limiters)
}

// Len число отслеживаемых пользователей
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Run периодически вызывает Sweep до отмены ctx
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			remaining := l.Sweep(l.clock())
			server.SetRateLimiterEntries(remaining)
			l.logger.Debug("Rate limiter swept", zap.Int("remaining", remaining))
		case <-ctx.Done():
			return
		}
	}
}
