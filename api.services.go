package main

import (
	"context"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	Add(ctx context.Context, id string, book Book) error
	GetOne(ctx context.Context, id string) (Book, error)
	AddComment(ctx context.Context, id string, comment string) (Book, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
	GetAll(ctx context.Context) ([]Book, error)
}

type BookService struct {
	logger  *zap.Logger
	config  *Config
	clock   Clocker
	storage BookStorage
	queue   Queuer
}

// NewBookService provides the books service. The queue is optional
// and only set when the mirroring of changes is enabled.
func NewBookService(logger *zap.Logger, config *Config, clock Clocker, storage BookStorage, queue Queuer) BookServiceProvider {
	return &BookService{
		logger:  logger,
		config:  config,
		clock:   clock,
		storage: storage,
		queue:   queue,
	}
}

// publish forwards a successful change to the mirror queue. Failures are only logged.
func (bs *BookService) publish(ctx context.Context, op ChangeOp, book Book) {
	if bs.queue == nil {
		return
	}
	if err := bs.queue.Push(ctx, Change{Op: op, Book: book}); err != nil {
		bs.logger.Error("service: failed to push change to queue", zap.String("op", string(op)), zap.String("book.id", book.ID), zap.Error(err))
	}
}

func (bs *BookService) Add(ctx context.Context, id string, book Book) error {
	now := bs.clock.Now().UTC().String()
	book.ID = id
	if book.Comments == nil {
		book.Comments = []string{}
	}
	book.CreatedAt = now
	book.UpdatedAt = now
	if err := bs.storage.Add(ctx, id, book); err != nil {
		return err
	}
	bs.publish(ctx, OpCreate, book)
	return nil
}

func (bs *BookService) GetOne(ctx context.Context, id string) (Book, error) {
	book, err := bs.storage.GetOne(ctx, id)
	return book, err
}

func (bs *BookService) AddComment(ctx context.Context, id, comment string) (Book, error) {
	book, err := bs.storage.AddComment(ctx, id, comment, bs.clock.Now().UTC().String())
	if err != nil {
		return book, err
	}
	bs.publish(ctx, OpUpdate, book)
	return book, nil
}

func (bs *BookService) Delete(ctx context.Context, id string) error {
	if err := bs.storage.Delete(ctx, id); err != nil {
		return err
	}
	bs.publish(ctx, OpDelete, Book{ID: id})
	return nil
}

func (bs *BookService) DeleteAll(ctx context.Context) error {
	if err := bs.storage.DeleteAll(ctx); err != nil {
		return err
	}
	bs.publish(ctx, OpPurge, Book{})
	return nil
}

func (bs *BookService) GetAll(ctx context.Context) ([]Book, error) {
	books, err := bs.storage.GetAll(ctx)
	return books, err
}
