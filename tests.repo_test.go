package main

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBookStorageTests checks the behaviors every storage driver must share.
// The store is expected to be empty.
func runBookStorageTests(t *testing.T, store BookStorage) {
	ctx := context.Background()
	testBook0ID, testBook1ID := "b:0", "b:1"
	testBook := Book{
		ID:        testBook0ID,
		Title:     "Test book title",
		Comments:  []string{},
		CreatedAt: "2023-07-01 20:19:10.7604632 +0000 UTC",
		UpdatedAt: "2023-07-01 20:19:10.7604632 +0000 UTC",
	}

	t.Run("Get All Books On Empty Store", func(t *testing.T) {
		books, err := store.GetAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	})

	t.Run("Add Book", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, testBook0ID, testBook))
	})

	t.Run("Get Existent Book", func(t *testing.T) {
		book, err := store.GetOne(ctx, testBook0ID)
		require.NoError(t, err)
		assert.Equal(t, testBook, book)
	})

	t.Run("Get NonExistent Book", func(t *testing.T) {
		book, err := store.GetOne(ctx, testBook1ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
		assert.Equal(t, Book{}, book)
	})

	t.Run("Add Comments", func(t *testing.T) {
		book, err := store.AddComment(ctx, testBook0ID, "first", "2023-07-02 00:00:00 +0000 UTC")
		require.NoError(t, err)
		assert.Equal(t, []string{"first"}, book.Comments)
		assert.Equal(t, "2023-07-02 00:00:00 +0000 UTC", book.UpdatedAt)
		assert.Equal(t, testBook.CreatedAt, book.CreatedAt)

		book, err = store.AddComment(ctx, testBook0ID, "second", "2023-07-03 00:00:00 +0000 UTC")
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, book.Comments)

		book, err = store.GetOne(ctx, testBook0ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, book.Comments)
	})

	t.Run("Add Comment To NonExistent Book", func(t *testing.T) {
		_, err := store.AddComment(ctx, testBook1ID, "lost", "2023-07-02 00:00:00 +0000 UTC")
		assert.ErrorIs(t, err, ErrBookNotFound)
		_, err = store.GetOne(ctx, testBook1ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Add Comments Concurrently", func(t *testing.T) {
		const writers = 10
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.AddComment(ctx, testBook0ID, fmt.Sprintf("c%d", i), "2023-07-04 00:00:00 +0000 UTC")
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}
		book, err := store.GetOne(ctx, testBook0ID)
		require.NoError(t, err)
		assert.Len(t, book.Comments, 2+writers)
	})

	t.Run("Update Book", func(t *testing.T) {
		updated := testBook
		updated.ID = testBook1ID
		updated.Comments = []string{"mirrored"}
		book, err := store.Update(ctx, testBook1ID, updated)
		require.NoError(t, err)
		assert.Equal(t, updated, book)
		book, err = store.GetOne(ctx, testBook1ID)
		require.NoError(t, err)
		assert.Equal(t, updated, book)
	})

	t.Run("Get All Books", func(t *testing.T) {
		books, err := store.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("Delete Existent Book", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, testBook0ID))
		_, err := store.GetOne(ctx, testBook0ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Delete NonExistent Book", func(t *testing.T) {
		assert.ErrorIs(t, store.Delete(ctx, testBook0ID), ErrBookNotFound)
	})

	t.Run("Delete All Books", func(t *testing.T) {
		require.NoError(t, store.Add(ctx, testBook0ID, testBook))
		require.NoError(t, store.DeleteAll(ctx))
		books, err := store.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, books)
		require.NoError(t, store.DeleteAll(ctx))
	})
}
