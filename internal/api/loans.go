package api

import (
	"net/http"
	"time"

	"github.com/erazemk/knjiznica/internal/desk"
	"github.com/erazemk/knjiznica/internal/model"
)

// LoansHandler handles circulation endpoints.
type LoansHandler struct {
	Library Library
	// Now defaults to time.Now.
	Now func() time.Time
}

type createLoanRequest struct {
	BookID   string     `json:"bookId"`
	MemberID string     `json:"memberId"`
	DueDate  model.Date `json:"dueDate"`
}

// Create handles POST /api/loans. An omitted dueDate defaults to two weeks
// from today.
func (h *LoansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loan, err := h.Library.CreateLoan(r.Context(), model.LoanRequest{
		BookID:   req.BookID,
		MemberID: req.MemberID,
		DueDate:  req.DueDate,
	})
	if err != nil {
		storeError(w, err, "failed to create loan")
		return
	}
	jsonResponse(w, http.StatusCreated, loan)
}

// Return handles POST /api/loans/{id}/return. Returning a returned loan
// succeeds without changing it.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	loan, err := h.Library.CompleteLoan(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, err, "failed to complete loan")
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// Active handles GET /api/loans/active.
func (h *LoansHandler) Active(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Library.GetSnapshot(r.Context())
	if err != nil {
		storeError(w, err, "failed to list loans")
		return
	}
	jsonResponse(w, http.StatusOK, desk.ActiveLoans(snapshot.Loans))
}

// Overdue handles GET /api/loans/overdue.
func (h *LoansHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Library.GetSnapshot(r.Context())
	if err != nil {
		storeError(w, err, "failed to list loans")
		return
	}
	jsonResponse(w, http.StatusOK, desk.OverdueLoans(snapshot.Loans, h.now()))
}

func (h *LoansHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
