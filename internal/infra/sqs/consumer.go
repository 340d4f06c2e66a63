package sqs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/superyhee/whisper-on-aws-jumpstart/internal/domain/entity"
	"github.com/superyhee/whisper-on-aws-jumpstart/internal/infra/metrics"
	"go.uber.org/zap"
)

// MessageHandler processes one delivery. Returning nil deletes the message;
// an error leaves it for redelivery once its visibility timeout lapses.
type MessageHandler func(ctx context.Context, d entity.Delivery) error

type Consumer struct {
	queue        *Queue
	maxMessages  int
	waitSeconds  int
	workerCount  int
	receiveDelay time.Duration
	handler      MessageHandler
	logger       *zap.Logger
	wg           sync.WaitGroup
}

type ConsumerConfig struct {
	MaxMessages     int
	WaitTimeSeconds int
	WorkerCount     int
	// ReceiveRetryDelay is the pause after a failed receive call.
	ReceiveRetryDelay time.Duration
}

func NewConsumer(queue *Queue, cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) *Consumer {
	workers := cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}
	delay := cfg.ReceiveRetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Consumer{
		queue:        queue,
		maxMessages:  cfg.MaxMessages,
		waitSeconds:  cfg.WaitTimeSeconds,
		workerCount:  workers,
		receiveDelay: delay,
		handler:      handler,
		logger:       logger,
	}
}

// Start runs the worker pool until ctx is cancelled. Each worker polls on its
// own, so concurrent workers never share a batch.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting worker pool",
		zap.Int("workers", c.workerCount),
		zap.Int("max_messages", c.maxMessages),
		zap.Int("wait_time_seconds", c.waitSeconds),
	)

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		if ctx.Err() != nil {
			log.Info("worker shutting down")
			return
		}

		deliveries, err := c.queue.Receive(ctx, c.maxMessages, c.waitSeconds)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker shutting down")
				return
			}
			metrics.ReceiveErrorsTotal.Inc()
			log.Error("receive failed", zap.Error(err), zap.Duration("retry_in", c.receiveDelay))
			select {
			case <-time.After(c.receiveDelay):
			case <-ctx.Done():
			}
			continue
		}

		for _, d := range deliveries {
			// Leave the rest of the batch to expire back onto the queue.
			if ctx.Err() != nil {
				break
			}
			c.processDelivery(ctx, d, log)
		}
	}
}

func (c *Consumer) processDelivery(ctx context.Context, d entity.Delivery, log *zap.Logger) {
	log = log.With(zap.String("message_id", d.MessageID), zap.Int("receive_count", d.ReceiveCount))

	// A message that has started runs to completion even during shutdown;
	// aborting would leave an extended lease with nobody working it.
	if err := c.handle(context.WithoutCancel(ctx), d); err != nil {
		log.Warn("message processing failed, leaving for redelivery", zap.Error(err))
		return
	}

	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.queue.Delete(delCtx, d.ReceiptHandle); err != nil {
		log.Error("failed to delete processed message", zap.Error(err))
		return
	}
	log.Debug("message deleted")
}

func (c *Consumer) handle(ctx context.Context, d entity.Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler(ctx, d)
}
