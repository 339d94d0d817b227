package model

import "time"

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// LoanPeriod is the default time between checkout and due date.
const LoanPeriod = 14 * 24 * time.Hour

// Date is a calendar date in DateLayout. It is kept as text so that
// whatever the user entered round-trips unchanged.
type Date string

// Time parses the date as midnight UTC.
func (d Date) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(d))
}

// DefaultDueDate returns the due date of a loan made at now.
func DefaultDueDate(now time.Time) Date {
	return Date(now.Add(LoanPeriod).UTC().Format(DateLayout))
}

// Loan records a book lent to a member.
type Loan struct {
	ID         string     `json:"id"`
	BookID     string     `json:"bookId"`
	MemberID   string     `json:"memberId"`
	BorrowedOn time.Time  `json:"borrowedOn"`
	DueDate    Date       `json:"dueDate"`
	ReturnedOn *time.Time `json:"returnedOn"`
}

// Active reports whether the loan has not been returned yet.
func (l Loan) Active() bool {
	return l.ReturnedOn == nil
}

// Overdue reports whether the loan is active and its due date lies before now.
// Loans without a parseable due date are never overdue.
func (l Loan) Overdue(now time.Time) bool {
	if !l.Active() || l.DueDate == "" {
		return false
	}
	due, err := l.DueDate.Time()
	if err != nil {
		return false
	}
	return due.Before(now)
}

// LoanRequest holds the fields of a checkout.
type LoanRequest struct {
	BookID   string `json:"bookId"`
	MemberID string `json:"memberId"`
	DueDate  Date   `json:"dueDate"`
}
