// Package covers keeps one cover image per book next to the dataset.
package covers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/erazemk/knjiznica/internal/imaging"
	"github.com/erazemk/knjiznica/internal/kv"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// ErrNoCover is returned by Get when the book has no cover.
var ErrNoCover = errors.New("book has no cover")

// Catalog is the part of the store the shelf needs to check book ids.
type Catalog interface {
	GetSnapshot(ctx context.Context) (*model.Snapshot, error)
}

// Shelf stores processed covers under covers/<bookId>.
type Shelf struct {
	backend kv.Backend
	catalog Catalog
}

// NewShelf creates a Shelf over backend.
func NewShelf(backend kv.Backend, catalog Catalog) *Shelf {
	return &Shelf{backend: backend, catalog: catalog}
}

func key(bookID string) string { return "covers/" + bookID }

// Put processes the upload and stores it as the book's cover, replacing any
// previous one.
func (s *Shelf) Put(ctx context.Context, bookID string, r io.Reader) (*imaging.Cover, error) {
	snapshot, err := s.catalog.GetSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	found := false
	for _, b := range snapshot.Books {
		if b.ID == bookID {
			found = true
			break
		}
	}
	if !found {
		return nil, &store.Error{Kind: store.ErrNotFound, Message: "Book not found."}
	}

	cover, err := imaging.ProcessCover(r)
	if err != nil {
		return nil, err
	}
	if err := s.backend.Put(ctx, key(bookID), cover.Data); err != nil {
		return nil, fmt.Errorf("storing cover: %w", err)
	}

	slog.Info("cover stored", "book", bookID, "bytes", len(cover.Data), "width", cover.Width, "height", cover.Height)
	return cover, nil
}

// Get returns the stored JPEG for bookID.
func (s *Shelf) Get(ctx context.Context, bookID string) ([]byte, error) {
	data, err := s.backend.Get(ctx, key(bookID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNoCover
	}
	if err != nil {
		return nil, fmt.Errorf("reading cover: %w", err)
	}
	return data, nil
}
