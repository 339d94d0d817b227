package desk

import (
	"math"
	"strings"
	"time"

	"github.com/erazemk/knjiznica/internal/model"
)

// ActiveLoans returns loans that have not been returned.
func ActiveLoans(loans []model.Loan) []model.Loan {
	active := make([]model.Loan, 0, len(loans))
	for _, l := range loans {
		if l.Active() {
			active = append(active, l)
		}
	}
	return active
}

// OverdueLoans returns active loans whose due date is before now.
func OverdueLoans(loans []model.Loan, now time.Time) []model.Loan {
	overdue := []model.Loan{}
	for _, l := range loans {
		if l.Overdue(now) {
			overdue = append(overdue, l)
		}
	}
	return overdue
}

// AvailableBooks returns books that are not on an active loan.
func AvailableBooks(books []model.Book, loans []model.Loan) []model.Book {
	lent := make(map[string]bool)
	for _, l := range loans {
		if l.Active() {
			lent[l.BookID] = true
		}
	}
	available := make([]model.Book, 0, len(books))
	for _, b := range books {
		if !lent[b.ID] {
			available = append(available, b)
		}
	}
	return available
}

// FilterBooks matches term against title, author, ISBN and category,
// ignoring case. A blank term returns books unchanged.
func FilterBooks(books []model.Book, term string) []model.Book {
	term = normalizeTerm(term)
	if term == "" {
		return books
	}
	matched := []model.Book{}
	for _, b := range books {
		if matches(term, b.Title, b.Author, b.ISBN, b.Category) {
			matched = append(matched, b)
		}
	}
	return matched
}

// FilterMembers matches term against name, email and phone, ignoring case.
// A blank term returns members unchanged.
func FilterMembers(members []model.Member, term string) []model.Member {
	term = normalizeTerm(term)
	if term == "" {
		return members
	}
	matched := []model.Member{}
	for _, m := range members {
		if matches(term, m.Name, m.Email, m.Phone) {
			matched = append(matched, m)
		}
	}
	return matched
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

func matches(term string, fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// IndexBooks maps book ids to books.
func IndexBooks(books []model.Book) map[string]model.Book {
	index := make(map[string]model.Book, len(books))
	for _, b := range books {
		index[b.ID] = b
	}
	return index
}

// IndexMembers maps member ids to members.
func IndexMembers(members []model.Member) map[string]model.Member {
	index := make(map[string]model.Member, len(members))
	for _, m := range members {
		index[m.ID] = m
	}
	return index
}

// KPI holds the headline figures shown above the tabs.
type KPI struct {
	TotalBooks   int
	TotalMembers int
	Borrowed     int
	Overdue      int
	Available    int
	// BorrowingPercent is active loans per member as a rounded percentage.
	BorrowingPercent int
}

// ComputeKPI derives the headline figures from the collections.
func ComputeKPI(books []model.Book, members []model.Member, loans []model.Loan, now time.Time) KPI {
	active := ActiveLoans(loans)
	k := KPI{
		TotalBooks:   len(books),
		TotalMembers: len(members),
		Borrowed:     len(active),
		Overdue:      len(OverdueLoans(active, now)),
		Available:    len(AvailableBooks(books, active)),
	}
	if k.TotalMembers > 0 {
		k.BorrowingPercent = int(math.Round(float64(k.Borrowed) / float64(k.TotalMembers) * 100))
	}
	return k
}
