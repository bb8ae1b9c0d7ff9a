package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// popRetryDelay is the pause after a failed pop call.
const popRetryDelay = 500 * time.Millisecond

type Consumer interface {
	Consume(ctx context.Context) error
}

// mirrorConsumer replays the books changes published on the queue into a
// secondary storage, usually the local boltdb backup file.
type mirrorConsumer struct {
	logger *zap.Logger
	queue  Queuer
	repo   BookStorage
}

func NewMirrorConsumer(logger *zap.Logger, q Queuer, repo BookStorage) Consumer {
	return &mirrorConsumer{logger, q, repo}
}

// Consume pops books changes until the context is done.
func (mc *mirrorConsumer) Consume(ctx context.Context) error {
	for {
		change, err := mc.queue.Pop(ctx)
		if err != nil && ctx.Err() != nil {
			mc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			mc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(popRetryDelay):
			}
			continue
		}

		mc.apply(ctx, change)
	}
}

func (mc *mirrorConsumer) apply(ctx context.Context, change Change) {
	var err error
	book := change.Book
	switch change.Op {
	case OpCreate:
		if err = mc.repo.Add(ctx, book.ID, book); err != nil {
			mc.logger.Error("consumer: failed to create", zap.Any("book", book), zap.Error(err))
		}
	case OpUpdate:
		if _, err = mc.repo.Update(ctx, book.ID, book); err != nil {
			mc.logger.Error("consumer: failed to update", zap.Any("book", book), zap.Error(err))
		}
	case OpDelete:
		if err = mc.repo.Delete(ctx, book.ID); err != nil && !errors.Is(err, ErrBookNotFound) {
			mc.logger.Error("consumer: failed to delete", zap.String("book.id", book.ID), zap.Error(err))
		}
	case OpPurge:
		if err = mc.repo.DeleteAll(ctx); err != nil {
			mc.logger.Error("consumer: failed to purge", zap.Error(err))
		}
	default:
		mc.logger.Warn("consumer: received unknown change operation", zap.String("op", string(change.Op)), zap.Any("book", book))
	}
}
