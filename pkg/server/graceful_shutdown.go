package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type shutdownStep struct {
	name string
	fn   func(context.Context) error
}

// GracefulShutdown останавливает компоненты сервиса в обратном порядке регистрации
type GracefulShutdown struct {
	logger         *zap.Logger
	timeout        time.Duration
	mu             sync.Mutex
	steps          []shutdownStep
	shutdownSignal chan os.Signal
	trigger        chan struct{}
	triggerOnce    sync.Once
	done           chan struct{}
	once           sync.Once
}

// NewGracefulShutdown подписывается на SIGINT и SIGTERM
func NewGracefulShutdown(logger *zap.Logger, timeout time.Duration) *GracefulShutdown {
	gs := &GracefulShutdown{
		logger:         logger,
		timeout:        timeout,
		shutdownSignal: make(chan os.Signal, 1),
		trigger:        make(chan struct{}),
		done:           make(chan struct{}),
	}

	signal.Notify(gs.shutdownSignal, syscall.SIGINT, syscall.SIGTERM)

	return gs
}

// AddShutdownFunc регистрирует шаг остановки. Шаги выполняются LIFO.
func (gs *GracefulShutdown) AddShutdownFunc(name string, f func(context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.steps = append(gs.steps, shutdownStep{name: name, fn: f})
}

// Wait блокируется до сигнала, вызова Shutdown или отмены ctx и выполняет остановку
func (gs *GracefulShutdown) Wait(ctx context.Context) {
	select {
	case sig := <-gs.shutdownSignal:
		gs.logger.Info("Shutdown signal received", zap.Stringer("signal", sig))
	case <-gs.trigger:
		gs.logger.Info("Shutdown requested")
	case <-ctx.Done():
		gs.logger.Info("Context cancelled, initiating shutdown")
	}

	gs.once.Do(func() {
		signal.Stop(gs.shutdownSignal)
		gs.shutdown()
		close(gs.done)
	})
}

// Done закрывается после выполнения всех шагов
func (gs *GracefulShutdown) Done() <-chan struct{} {
	return gs.done
}

// Shutdown запускает остановку и ждет ее завершения. Требует запущенного Wait.
func (gs *GracefulShutdown) Shutdown() {
	gs.triggerOnce.Do(func() { close(gs.trigger) })
	<-gs.done
}

func (gs *GracefulShutdown) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	gs.mu.Lock()
	steps := make([]shutdownStep, len(gs.steps))
	copy(steps, gs.steps)
	gs.mu.Unlock()

	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i].fn(ctx); err != nil {
			gs.logger.Error("Error during shutdown",
				zap.String("step", steps[i].name),
				zap.Error(err))
		}
	}

	gs.logger.Info("Graceful shutdown completed")
}
