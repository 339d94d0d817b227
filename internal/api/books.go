package api

import (
	"errors"
	"net/http"

	"github.com/erazemk/knjiznica/internal/covers"
	"github.com/erazemk/knjiznica/internal/desk"
	"github.com/erazemk/knjiznica/internal/imaging"
	"github.com/erazemk/knjiznica/internal/model"
)

// BooksHandler handles catalog endpoints.
type BooksHandler struct {
	Library Library
	Covers  CoverShelf
}

type createBookRequest struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	Category string `json:"category"`
}

// List handles GET /api/books. The optional q parameter filters by title,
// author, ISBN or category.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Library.GetSnapshot(r.Context())
	if err != nil {
		storeError(w, err, "failed to list books")
		return
	}
	jsonResponse(w, http.StatusOK, desk.FilterBooks(snapshot.Books, r.URL.Query().Get("q")))
}

// Available handles GET /api/books/available.
func (h *BooksHandler) Available(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Library.GetSnapshot(r.Context())
	if err != nil {
		storeError(w, err, "failed to list books")
		return
	}
	jsonResponse(w, http.StatusOK, desk.AvailableBooks(snapshot.Books, snapshot.Loans))
}

// Create handles POST /api/books.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	book, err := h.Library.CreateBook(r.Context(), model.BookFields{
		Title:    req.Title,
		Author:   req.Author,
		ISBN:     req.ISBN,
		Category: req.Category,
	})
	if err != nil {
		storeError(w, err, "failed to create book")
		return
	}
	jsonResponse(w, http.StatusCreated, book)
}

// UploadCover handles PUT /api/books/{id}/cover. The body is the raw image.
func (h *BooksHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes)
	defer r.Body.Close()

	cover, err := h.Covers.Put(r.Context(), r.PathValue("id"), r.Body)
	var maxErr *http.MaxBytesError
	switch {
	case err == nil:
	case errors.Is(err, imaging.ErrTooLarge), errors.As(err, &maxErr):
		jsonError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	case errors.Is(err, imaging.ErrUnsupported):
		jsonError(w, http.StatusBadRequest, "image must be JPEG or PNG")
		return
	default:
		storeError(w, err, "failed to save cover")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"width":  cover.Width,
		"height": cover.Height,
		"bytes":  len(cover.Data),
	})
}

// GetCover handles GET /api/books/{id}/cover.
func (h *BooksHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	serveCover(w, r, h.Covers, r.PathValue("id"))
}

// serveCover writes the stored cover or a 404.
func serveCover(w http.ResponseWriter, r *http.Request, shelf CoverShelf, bookID string) {
	data, err := shelf.Get(r.Context(), bookID)
	if errors.Is(err, covers.ErrNoCover) {
		jsonError(w, http.StatusNotFound, "no cover")
		return
	}
	if err != nil {
		storeError(w, err, "failed to get cover")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// CoverHandler returns a handler serving the cover of the book named by the
// id path value. The web pages reuse it for their <img> tags.
func CoverHandler(shelf CoverShelf) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveCover(w, r, shelf, r.PathValue("id"))
	}
}
