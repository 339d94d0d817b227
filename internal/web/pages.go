package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/knjiznica/internal/desk"
	"github.com/erazemk/knjiznica/internal/imaging"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// BooksPage handles GET /books. A q parameter replaces the catalog filter.
func (s *Server) BooksPage(w http.ResponseWriter, r *http.Request) {
	d := s.desk(r)
	d.SelectTab(desk.TabBooks)
	if q := r.URL.Query(); q.Has("q") {
		d.SetBookFilter(q.Get("q"))
	}
	s.Templates.Render(w, "books.html", &PageData{Title: "Catalog", View: d.View()})
}

// MembersPage handles GET /members. A q parameter replaces the member filter.
func (s *Server) MembersPage(w http.ResponseWriter, r *http.Request) {
	d := s.desk(r)
	d.SelectTab(desk.TabMembers)
	if q := r.URL.Query(); q.Has("q") {
		d.SetMemberFilter(q.Get("q"))
	}
	s.Templates.Render(w, "members.html", &PageData{Title: "Members", View: d.View()})
}

// LoansPage handles GET /loans.
func (s *Server) LoansPage(w http.ResponseWriter, r *http.Request) {
	d := s.desk(r)
	d.SelectTab(desk.TabLoans)
	s.Templates.Render(w, "loans.html", &PageData{Title: "Borrow & Return", View: d.View()})
}

// BookCreateSubmit handles POST /books.
func (s *Server) BookCreateSubmit(w http.ResponseWriter, r *http.Request) {
	err := s.desk(r).AddBook(r.Context(), model.BookFields{
		Title:    r.FormValue("title"),
		Author:   r.FormValue("author"),
		ISBN:     r.FormValue("isbn"),
		Category: r.FormValue("category"),
	})
	logAction("book", err)
	http.Redirect(w, r, "/books", http.StatusSeeOther)
}

// MemberCreateSubmit handles POST /members.
func (s *Server) MemberCreateSubmit(w http.ResponseWriter, r *http.Request) {
	err := s.desk(r).AddMember(r.Context(), model.MemberFields{
		Name:  r.FormValue("name"),
		Email: r.FormValue("email"),
		Phone: r.FormValue("phone"),
	})
	logAction("member", err)
	http.Redirect(w, r, "/members", http.StatusSeeOther)
}

// LoanCreateSubmit handles POST /loans.
func (s *Server) LoanCreateSubmit(w http.ResponseWriter, r *http.Request) {
	err := s.desk(r).CreateLoan(r.Context(), model.LoanRequest{
		BookID:   r.FormValue("book_id"),
		MemberID: r.FormValue("member_id"),
		DueDate:  model.Date(r.FormValue("due_date")),
	})
	logAction("loan", err)
	http.Redirect(w, r, "/loans", http.StatusSeeOther)
}

// LoanReturnSubmit handles POST /loans/{id}/return.
func (s *Server) LoanReturnSubmit(w http.ResponseWriter, r *http.Request) {
	err := s.desk(r).ReturnLoan(r.Context(), r.PathValue("id"))
	logAction("return", err)
	http.Redirect(w, r, "/loans", http.StatusSeeOther)
}

// ResetSubmit handles POST /reset and returns to the page it came from.
func (s *Server) ResetSubmit(w http.ResponseWriter, r *http.Request) {
	err := s.desk(r).Reset(r.Context())
	logAction("reset", err)
	http.Redirect(w, r, tabPath(desk.Tab(r.FormValue("tab"))), http.StatusSeeOther)
}

// BookCoverSubmit handles POST /books/{id}/cover.
func (s *Server) BookCoverSubmit(w http.ResponseWriter, r *http.Request) {
	d := s.desk(r)
	defer http.Redirect(w, r, "/books", http.StatusSeeOther)

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(64<<10))
	file, _, err := r.FormFile("cover")
	if err != nil {
		d.Notify(desk.BannerError, "Choose a JPEG or PNG image to upload.")
		return
	}
	defer file.Close()

	_, err = s.Covers.Put(r.Context(), r.PathValue("id"), file)
	var se *store.Error
	switch {
	case err == nil:
		d.Notify(desk.BannerSuccess, "Cover has been updated.")
	case errors.As(err, &se):
		d.Notify(desk.BannerError, se.Message)
	case errors.Is(err, imaging.ErrUnsupported):
		d.Notify(desk.BannerError, "Covers must be JPEG or PNG images.")
	case errors.Is(err, imaging.ErrTooLarge):
		d.Notify(desk.BannerError, "Cover image is too large.")
	default:
		slog.Error("failed to store cover", "error", err)
		d.Notify(desk.BannerError, "Unable to store the cover.")
	}
}

func tabPath(t desk.Tab) string {
	if !desk.ValidTab(t) {
		t = desk.TabBooks
	}
	return "/" + string(t)
}

// logAction records the outcome of a form submission. Store failures are
// logged by the desk itself.
func logAction(action string, err error) {
	switch {
	case err == nil:
		slog.Info("desk action", "action", action)
	case errors.Is(err, desk.ErrValidation), errors.Is(err, desk.ErrBusy):
		slog.Info("desk action rejected", "action", action, "reason", err)
	}
}
