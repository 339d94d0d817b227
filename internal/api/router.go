package api

import (
	"context"
	"io"
	"net/http"

	"github.com/erazemk/knjiznica/internal/imaging"
	"github.com/erazemk/knjiznica/internal/model"
)

// Library is the dataset contract the API exposes.
type Library interface {
	GetSnapshot(ctx context.Context) (*model.Snapshot, error)
	CreateBook(ctx context.Context, fields model.BookFields) (*model.Book, error)
	CreateMember(ctx context.Context, fields model.MemberFields) (*model.Member, error)
	CreateLoan(ctx context.Context, req model.LoanRequest) (*model.Loan, error)
	CompleteLoan(ctx context.Context, loanID string) (*model.Loan, error)
	ResetDemoState(ctx context.Context) (*model.Snapshot, error)
}

// CoverShelf stores book cover images.
type CoverShelf interface {
	Put(ctx context.Context, bookID string, r io.Reader) (*imaging.Cover, error)
	Get(ctx context.Context, bookID string) ([]byte, error)
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(lib Library, shelf CoverShelf) http.Handler {
	mux := http.NewServeMux()

	snapshotHandler := &SnapshotHandler{Library: lib}
	booksHandler := &BooksHandler{Library: lib, Covers: shelf}
	membersHandler := &MembersHandler{Library: lib}
	loansHandler := &LoansHandler{Library: lib}

	// Whole dataset.
	mux.HandleFunc("GET /api/snapshot", snapshotHandler.Get)
	mux.HandleFunc("POST /api/reset", snapshotHandler.Reset)

	// Books.
	mux.HandleFunc("GET /api/books", booksHandler.List)
	mux.HandleFunc("POST /api/books", booksHandler.Create)
	mux.HandleFunc("GET /api/books/available", booksHandler.Available)
	mux.HandleFunc("PUT /api/books/{id}/cover", booksHandler.UploadCover)
	mux.HandleFunc("GET /api/books/{id}/cover", booksHandler.GetCover)

	// Members.
	mux.HandleFunc("GET /api/members", membersHandler.List)
	mux.HandleFunc("POST /api/members", membersHandler.Create)

	// Loans.
	mux.HandleFunc("POST /api/loans", loansHandler.Create)
	mux.HandleFunc("POST /api/loans/{id}/return", loansHandler.Return)
	mux.HandleFunc("GET /api/loans/active", loansHandler.Active)
	mux.HandleFunc("GET /api/loans/overdue", loansHandler.Overdue)

	return mux
}
