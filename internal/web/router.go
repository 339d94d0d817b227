package web

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/erazemk/knjiznica/internal/api"
	"github.com/erazemk/knjiznica/internal/desk"
	"github.com/erazemk/knjiznica/internal/imaging"
	webembed "github.com/erazemk/knjiznica/web"
)

// CoverShelf stores book cover images.
type CoverShelf interface {
	Put(ctx context.Context, bookID string, r io.Reader) (*imaging.Cover, error)
	Get(ctx context.Context, bookID string) ([]byte, error)
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(desks *desk.Registry, shelf CoverShelf, secret string, sessionTTL time.Duration) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Desks:     desks,
		Covers:    shelf,
		Templates: templates,
	}

	mux := http.NewServeMux()
	sessions := SessionMiddleware(secret, sessionTTL)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))
	mux.HandleFunc("GET /books/{id}/cover", api.CoverHandler(shelf))

	mux.Handle("GET /{$}", http.RedirectHandler("/books", http.StatusSeeOther))

	mux.Handle("GET /books", sessions(http.HandlerFunc(s.BooksPage)))
	mux.Handle("POST /books", sessions(http.HandlerFunc(s.BookCreateSubmit)))
	mux.Handle("POST /books/{id}/cover", sessions(http.HandlerFunc(s.BookCoverSubmit)))

	mux.Handle("GET /members", sessions(http.HandlerFunc(s.MembersPage)))
	mux.Handle("POST /members", sessions(http.HandlerFunc(s.MemberCreateSubmit)))

	mux.Handle("GET /loans", sessions(http.HandlerFunc(s.LoansPage)))
	mux.Handle("POST /loans", sessions(http.HandlerFunc(s.LoanCreateSubmit)))
	mux.Handle("POST /loans/{id}/return", sessions(http.HandlerFunc(s.LoanReturnSubmit)))

	mux.Handle("POST /reset", sessions(http.HandlerFunc(s.ResetSubmit)))

	return mux, nil
}

// desk returns the desk of the request's session.
func (s *Server) desk(r *http.Request) *desk.Desk {
	return s.Desks.Get(r.Context(), GetSessionID(r.Context()))
}
