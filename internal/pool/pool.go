package pool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harborai/beacon/internal/domain"
	"github.com/harborai/beacon/internal/metrics"
	"github.com/harborai/beacon/internal/usecase"
)

// WorkerPool manages a fixed-size pool of goroutines that process jobs.
type WorkerPool struct {
	size      int
	jobs      <-chan *domain.Delivery
	executeUC *usecase.ExecuteJobUsecase
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewWorkerPool creates a new fixed-size worker pool.
func NewWorkerPool(size int, jobs <-chan *domain.Delivery, executeUC *usecase.ExecuteJobUsecase, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:      size,
		jobs:      jobs,
		executeUC: executeUC,
		logger:    logger,
	}
}

// Start launches all worker goroutines. Call Stop to wait for them to finish.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("pool_size", p.size))

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for all workers to finish their current jobs and exit.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Worker panic recovered",
				zap.Int("worker_id", id),
				zap.Any("panic", r),
			)
		}
	}()

	p.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Worker shutting down", zap.Int("worker_id", id))
			return
		case d, ok := <-p.jobs:
			if !ok {
				p.logger.Debug("Job channel closed", zap.Int("worker_id", id))
				return
			}

			msg := d.Message

			p.logger.Info("Worker processing job",
				zap.Int("worker_id", id),
				zap.String("progress_key", string(msg.ProgressKey)),
				zap.String("type", msg.Type),
			)

			metrics.JobsActive.Inc()
			startTime := time.Now()

			err := p.executeUC.Execute(ctx, msg)
			elapsed := time.Since(startTime).Seconds()

			metrics.JobsActive.Dec()
			metrics.JobDuration.WithLabelValues(msg.Type).Observe(elapsed)

			if err != nil {
				p.logger.Error("Job execution failed",
					zap.Int("worker_id", id),
					zap.String("progress_key", string(msg.ProgressKey)),
					zap.Error(err),
				)

				// Nack without requeue — failed jobs go to DLQ.
				// Requeuing a deterministic failure would cause an infinite loop.
				if nackErr := d.Nack(false); nackErr != nil {
					p.logger.Error("Failed to NACK message",
						zap.String("progress_key", string(msg.ProgressKey)),
						zap.Error(nackErr),
					)
				}

				metrics.JobsTotal.WithLabelValues(msg.Type, "error").Inc()
				continue
			}

			// Terminal record written — ACK the message.
			if ackErr := d.Ack(); ackErr != nil {
				p.logger.Error("Failed to ACK message after execution",
					zap.String("progress_key", string(msg.ProgressKey)),
					zap.Error(ackErr),
				)
			}

			metrics.JobsTotal.WithLabelValues(msg.Type, "ok").Inc()
		}
	}
}
