package main

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Index serves the landing page of the catalog.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.ServeFile(w, r, filepath.Join(api.config.Server.ViewsFolder, "index.html"))
}

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	resp := StatusResponse{
		RequestID: requestID,
		Status:    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
		Message:   "Hello. Books catalog api is available. Enjoy :)",
	}
	if err := WriteJSONResponse(r.Context(), w, http.StatusOK, resp); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send status response", zap.Error(err))
	}
}

// sendText writes a plain text message and logs any failure.
func (api *APIHandler) sendText(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := WriteTextResponse(r.Context(), w, status, message); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send text response", zap.String("response.message", message), zap.Error(err))
	}
}

// sendJSON writes a json payload and logs any failure.
func (api *APIHandler) sendJSON(w http.ResponseWriter, r *http.Request, data interface{}) {
	if err := WriteJSONResponse(r.Context(), w, http.StatusOK, data); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send response", zap.Error(err))
	}
}

// CreateBook godoc
// @Summary Create a book
// @Description Create a book from its title. A missing title is reported as plain text.
// @Tags books
// @Accept json,x-www-form-urlencoded
// @Produce json,plain
// @Param title formData string true "Book title"
// @Success 200 {object} BookCreated
// @Router /books [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	title, err := GetRequestField(r, "title")
	if err != nil {
		logger.Error("failed to decode create book request", zap.Error(err))
	}
	if IsBlank(title) {
		logger.Info("create book request without title")
		api.sendText(w, r, http.StatusOK, MsgMissingTitle)
		return
	}

	book := Book{ID: api.idsHandler.Generate(BookIDPrefix), Title: title}
	err = api.bookService.Add(r.Context(), book.ID, book)
	if err != nil {
		logger.Error("failed to create book", zap.String("book.id", book.ID), zap.Error(err))
		api.sendText(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}
	logger.Info("success to create book", zap.String("book.id", book.ID))
	api.sendJSON(w, r, BookCreated{ID: book.ID, Title: book.Title})
}

// GetAllBooks godoc
// @Summary List books
// @Description List all books with their comments count.
// @Tags books
// @Produce json
// @Success 200 {array} BookSummary
// @Router /books [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	if api.config.Server.LongRequestWriteTimeout > 0 {
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(time.Now().Add(api.config.Server.LongRequestWriteTimeout)); err != nil {
			logger.Debug("http: failed to update the write deadline", zap.Error(err))
		}
	}

	books, err := api.bookService.GetAll(r.Context())
	if err != nil {
		logger.Error("failed to get all books", zap.Error(err))
		api.sendText(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}
	summaries := make([]BookSummary, 0, len(books))
	for _, book := range books {
		summaries = append(summaries, book.Summary())
	}
	logger.Info("success to get all books", zap.Int("books.total", len(summaries)))
	api.sendJSON(w, r, summaries)
}

// DeleteAllBooks godoc
// @Summary Delete all books
// @Tags books
// @Produce plain
// @Success 200 {string} string "complete delete successful"
// @Router /books [delete]
func (api *APIHandler) DeleteAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	if err := api.bookService.DeleteAll(r.Context()); err != nil {
		logger.Error("failed to delete all books", zap.Error(err))
		api.sendText(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}
	logger.Info("success to delete all books")
	api.sendText(w, r, http.StatusOK, MsgDeleteAll)
}

// GetOneBook godoc
// @Summary Get a book
// @Description Get a book with its comments. Unknown or malformed ids are reported as plain text.
// @Tags books
// @Produce json,plain
// @Param id path string true "Book ID"
// @Success 200 {object} BookDetail
// @Router /books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	logger := api.GetLoggerFromContext(r.Context()).With(zap.String("book.id", id))
	if ok := api.idsHandler.IsValid(id, BookIDPrefix); !ok {
		logger.Info("book id provided is not valid")
		api.sendText(w, r, http.StatusOK, MsgNoBook)
		return
	}

	book, err := api.bookService.GetOne(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		logger.Info("book does not exist")
		api.sendText(w, r, http.StatusOK, MsgNoBook)
		return
	}
	if err != nil {
		logger.Error("failed to get book", zap.Error(err))
		api.sendText(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}
	logger.Info("success to get book")
	api.sendJSON(w, r, book.Detail())
}

// AddComment godoc
// @Summary Comment a book
// @Description Append a comment to a book and return the book with all its comments.
// @Tags books
// @Accept json,x-www-form-urlencoded
// @Produce json,plain
// @Param id path string true "Book ID"
// @Param comment formData string true "Comment"
// @Success 200 {object} BookDetail
// @Router /books/{id} [post]
func (api *APIHandler) AddComment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	logger := api.GetLoggerFromContext(r.Context()).With(zap.String("book.id", id))
	comment, err := GetRequestField(r, "comment")
	if err != nil {
		logger.Error("failed to decode add comment request", zap.Error(err))
	}
	if IsBlank(comment) {
		logger.Info("add comment request without comment")
		api.sendText(w, r, http.StatusOK, MsgMissingComment)
		return
	}

	if ok := api.idsHandler.IsValid(id, BookIDPrefix); !ok {
		logger.Info("book id provided is not valid")
		api.sendText(w, r, http.StatusOK, MsgNoBook)
		return
	}

	book, err := api.bookService.AddComment(r.Context(), id, comment)
	if errors.Is(err, ErrBookNotFound) {
		logger.Info("book does not exist")
		api.sendText(w, r, http.StatusOK, MsgNoBook)
		return
	}
	if err != nil {
		logger.Error("failed to add comment", zap.Error(err))
		api.sendText(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}
	logger.Info("success to add comment", zap.Int("book.comments", len(book.Comments)))
	api.sendJSON(w, r, book.Detail())
}

// DeleteOneBook godoc
// @Summary Delete a book
// @Tags books
// @Produce plain
// @Param id path string true "Book ID"
// @Success 200 {string} string "delete successful"
// @Router /books/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	logger := api.GetLoggerFromContext(r.Context()).With(zap.String("book.id", id))
	if ok := api.idsHandler.IsValid(id, BookIDPrefix); !ok {
		logger.Info("book id provided is not valid")
		api.sendText(w, r, http.StatusOK, MsgNoBook)
		return
	}

	err := api.bookService.Delete(r.Context(), id)
	if errors.Is(err, ErrBookNotFound) {
		logger.Info("book does not exist")
		api.sendText(w, r, http.StatusOK, MsgNoBook)
		return
	}
	if err != nil {
		logger.Error("failed to delete book", zap.Error(err))
		api.sendText(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}
	logger.Info("success to delete book")
	api.sendText(w, r, http.StatusOK, MsgDeleteSucceeded)
}
