package main

import "context"

// Book represents a book document as persisted by the storage.
// The comments count is never stored, it is derived on read.
type Book struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Comments  []string `json:"comments"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// BookSummary is the list view of a book.
type BookSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CommentCount int    `json:"commentCount"`
}

// BookCreated is the view sent back once a book is created.
type BookCreated struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// BookDetail is the single book view with all its comments.
type BookDetail struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Comments []string `json:"comments"`
}

// Summary builds the list view. The comments count is computed here.
func (b Book) Summary() BookSummary {
	return BookSummary{ID: b.ID, Title: b.Title, CommentCount: len(b.Comments)}
}

// Detail builds the single book view and guarantees a non-null comments list.
func (b Book) Detail() BookDetail {
	comments := b.Comments
	if comments == nil {
		comments = []string{}
	}
	return BookDetail{ID: b.ID, Title: b.Title, Comments: comments}
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	Add(ctx context.Context, id string, book Book) error
	GetOne(ctx context.Context, id string) (Book, error)
	AddComment(ctx context.Context, id string, comment string, updatedAt string) (Book, error)
	Update(ctx context.Context, id string, book Book) (Book, error)
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]Book, error)
	DeleteAll(ctx context.Context) error
	Close() error
}
