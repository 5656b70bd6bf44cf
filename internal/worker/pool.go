// Package worker содержит пул обработки outbox-задач начисления комиссии.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avc/referral-shop-backend/internal/domain"
	"github.com/avc/referral-shop-backend/internal/service"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Propagator распространяет комиссию заказа по реферальным цепочкам
type Propagator interface {
	Propagate(ctx context.Context, order *domain.Order) (*domain.PropagationResult, error)
}

// Pool представляет пул воркеров для обработки задач начисления комиссии
type Pool struct {
	workers        int
	queue          chan *domain.CommissionTask
	orderRepo      domain.OrderRepository
	commissionRepo domain.CommissionRepository
	propagator     Propagator
	logger         *zap.Logger
	wg             sync.WaitGroup
	scanInterval   time.Duration
	maxAttempts    int
}

// PoolConfig содержит настройки worker pool
type PoolConfig struct {
	Workers      int
	QueueSize    int
	ScanInterval time.Duration
	MaxAttempts  int
}

// NewPool создает новый worker pool
func NewPool(
	cfg PoolConfig,
	orderRepo domain.OrderRepository,
	commissionRepo domain.CommissionRepository,
	propagator Propagator,
	logger *zap.Logger,
) *Pool {
	return &Pool{
		workers:        cfg.Workers,
		queue:          make(chan *domain.CommissionTask, cfg.QueueSize),
		orderRepo:      orderRepo,
		commissionRepo: commissionRepo,
		propagator:     propagator,
		logger:         logger,
		scanInterval:   cfg.ScanInterval,
		maxAttempts:    cfg.MaxAttempts,
	}
}

// Start запускает worker pool
func (p *Pool) Start(ctx context.Context) {
	// Запускаем воркеры
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	// Запускаем сканер pending задач
	p.wg.Add(1)
	go p.scanner(ctx)
}

// Stop останавливает worker pool
func (p *Pool) Stop() {
	close(p.queue)
	p.wg.Wait()
}

// worker обрабатывает задачи из очереди
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Info("worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping", zap.Int("worker_id", id))
			return
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.processTask(ctx, task)
		}
	}
}

// scanner периодически сканирует pending задачи
func (p *Pool) scanner(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("scanner stopping")
			return
		case <-ticker.C:
			p.scanPendingTasks(ctx)
		}
	}
}

// scanPendingTasks сканирует и отправляет pending задачи в очередь
func (p *Pool) scanPendingTasks(ctx context.Context) {
	tasks, err := p.commissionRepo.PendingTasks(ctx, cap(p.queue))
	if err != nil {
		p.logger.Error("failed to get pending commission tasks", zap.Error(err))
		return
	}

	for _, task := range tasks {
		select {
		case p.queue <- task:
			// Успешно добавлено в очередь
		case <-ctx.Done():
			return
		default:
			// Очередь заполнена, задача будет подхвачена следующим сканом
			p.logger.Warn("queue is full, skipping task", zap.Int64("task", task.ID))
		}
	}
}

// processTask обрабатывает одну задачу: загружает заказ и распространяет
// комиссию с повторами по fibonacci backoff. Начисления идемпотентны,
// поэтому повтор после частичного прохода безопасен. Частичное
// распространение из-за цикла не лечится повтором и фиксируется сразу.
func (p *Pool) processTask(ctx context.Context, task *domain.CommissionTask) {
	p.logger.Debug("processing commission task",
		zap.Int64("task", task.ID),
		zap.String("order", task.OrderID),
	)

	order, err := p.orderRepo.GetOrderByID(ctx, task.OrderID)
	if err != nil {
		// Заказ пропал — задача не сможет выполниться никогда
		p.markFailed(ctx, task, fmt.Sprintf("order lookup: %s", err))
		return
	}

	backoff := retry.NewFibonacci(500 * time.Millisecond)
	backoff = retry.WithMaxRetries(uint64(p.maxAttempts-1), backoff)

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, propagateErr := p.propagator.Propagate(ctx, order)
		if propagateErr == nil {
			return nil
		}
		if errors.Is(propagateErr, service.ErrPartialPropagation) {
			return propagateErr
		}
		return retry.RetryableError(propagateErr)
	})
	if err != nil {
		p.markFailed(ctx, task, err.Error())
		return
	}

	if err := p.commissionRepo.MarkTaskDone(ctx, task.ID); err != nil {
		p.logger.Error("failed to mark task done",
			zap.Int64("task", task.ID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("commission task processed",
		zap.Int64("task", task.ID),
		zap.String("order", task.OrderID),
	)
}

func (p *Pool) markFailed(ctx context.Context, task *domain.CommissionTask, reason string) {
	p.logger.Error("commission task failed",
		zap.Int64("task", task.ID),
		zap.String("order", task.OrderID),
		zap.String("reason", reason),
	)
	if err := p.commissionRepo.MarkTaskFailed(ctx, task.ID, reason); err != nil {
		p.logger.Error("failed to mark task failed",
			zap.Int64("task", task.ID),
			zap.Error(err),
		)
	}
}
