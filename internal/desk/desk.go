// Package desk holds the circulation desk: the per-session view state over
// the store, the derived read views, and the dispatch of user actions.
package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

var (
	// ErrValidation is returned when a required form field is missing.
	// The store is not called.
	ErrValidation = errors.New("validation failed")

	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("action already pending")
)

// Store is the dataset contract the desk drives.
type Store interface {
	GetSnapshot(ctx context.Context) (*model.Snapshot, error)
	CreateBook(ctx context.Context, fields model.BookFields) (*model.Book, error)
	CreateMember(ctx context.Context, fields model.MemberFields) (*model.Member, error)
	CreateLoan(ctx context.Context, req model.LoanRequest) (*model.Loan, error)
	CompleteLoan(ctx context.Context, loanID string) (*model.Loan, error)
	ResetDemoState(ctx context.Context) (*model.Snapshot, error)
}

// Tab identifies a page of the desk.
type Tab string

const (
	TabBooks   Tab = "books"
	TabMembers Tab = "members"
	TabLoans   Tab = "loans"
)

// TabInfo pairs a tab with its label.
type TabInfo struct {
	ID    Tab
	Label string
}

// Tabs lists the desk pages in display order.
var Tabs = []TabInfo{
	{TabBooks, "Books"},
	{TabMembers, "Members"},
	{TabLoans, "Borrow & Return"},
}

// ValidTab reports whether t names a desk page.
func ValidTab(t Tab) bool {
	for _, info := range Tabs {
		if info.ID == t {
			return true
		}
	}
	return false
}

// Pending action keys. Returns are keyed per loan with ReturnKey.
const (
	ActionBook   = "book"
	ActionMember = "member"
	ActionLoan   = "loan"
	ActionReset  = "reset"
)

// ReturnKey is the pending key of the return action for loanID.
func ReturnKey(loanID string) string { return "return-" + loanID }

// BannerType is the tone of a banner.
type BannerType string

const (
	BannerSuccess BannerType = "success"
	BannerError   BannerType = "error"
)

// Banner is a transient message shown above the tabs.
type Banner struct {
	Type    BannerType
	Message string
	shownAt time.Time
}

// DefaultBannerTTL is how long a banner stays visible.
const DefaultBannerTTL = 3600 * time.Millisecond

const bootstrapFailed = "Unable to load the local library data. You can continue working in memory."

// Filters are the free-text search terms of the books and members tabs.
type Filters struct {
	Books   string
	Members string
}

// Desk is the view state of one session. Its methods are safe for
// concurrent use; the lock is never held during store calls.
type Desk struct {
	store     Store
	now       func() time.Time
	bannerTTL time.Duration

	mu         sync.Mutex
	books      []model.Book
	members    []model.Member
	loans      []model.Loan
	tab        Tab
	bookForm   model.BookFields
	memberForm model.MemberFields
	loanForm   model.LoanRequest
	filters    Filters
	banner     *Banner
	pending    map[string]bool
	loading    bool
}

// Option configures a Desk.
type Option func(*Desk)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Desk) { d.now = now }
}

// WithBannerTTL sets how long banners stay visible.
func WithBannerTTL(ttl time.Duration) Option {
	return func(d *Desk) { d.bannerTTL = ttl }
}

// New creates a desk over s. Call Bootstrap before use.
func New(s Store, opts ...Option) *Desk {
	d := &Desk{
		store:     s,
		now:       time.Now,
		bannerTTL: DefaultBannerTTL,
		tab:       TabBooks,
		pending:   make(map[string]bool),
		books:     []model.Book{},
		members:   []model.Member{},
		loans:     []model.Loan{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.loanForm = model.LoanRequest{DueDate: model.DefaultDueDate(d.now())}
	return d
}

// Bootstrap loads the dataset into the cache. On failure the cache is
// emptied and an error banner is shown; the desk stays usable.
func (d *Desk) Bootstrap(ctx context.Context) error {
	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	snapshot, err := d.store.GetSnapshot(context.WithoutCancel(ctx))

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false
	if err != nil {
		slog.Error("bootstrapping desk", "error", err)
		d.books, d.members, d.loans = []model.Book{}, []model.Member{}, []model.Loan{}
		d.setBanner(BannerError, failureMessage(err, bootstrapFailed))
		return err
	}
	d.replace(snapshot)
	return nil
}

// SelectTab switches the active tab. Unknown tabs are ignored.
func (d *Desk) SelectTab(tab Tab) {
	if !ValidTab(tab) {
		return
	}
	d.mu.Lock()
	d.tab = tab
	d.mu.Unlock()
}

// SetBookFilter sets the search term of the books tab.
func (d *Desk) SetBookFilter(term string) {
	d.mu.Lock()
	d.filters.Books = term
	d.mu.Unlock()
}

// SetMemberFilter sets the search term of the members tab.
func (d *Desk) SetMemberFilter(term string) {
	d.mu.Lock()
	d.filters.Members = term
	d.mu.Unlock()
}

// Notify shows a banner outside the action flow.
func (d *Desk) Notify(t BannerType, message string) {
	d.mu.Lock()
	d.setBanner(t, message)
	d.mu.Unlock()
}

// AddBook submits the book form. Title and author are required.
func (d *Desk) AddBook(ctx context.Context, fields model.BookFields) error {
	return d.dispatch(ctx, action{
		key:      ActionBook,
		fallback: "Unable to add the book.",
		validate: func() string {
			d.bookForm = fields
			if strings.TrimSpace(fields.Title) == "" || strings.TrimSpace(fields.Author) == "" {
				return "Title and author are required to add a book."
			}
			return ""
		},
		call: func(ctx context.Context) (func(), error) {
			book, err := d.store.CreateBook(ctx, fields)
			if err != nil {
				return nil, err
			}
			return func() {
				d.books = append(d.books, *book)
				d.bookForm = model.BookFields{}
				d.setBanner(BannerSuccess, `"`+book.Title+`" was added to the catalog.`)
			}, nil
		},
	})
}

// AddMember submits the member form. Name is required.
func (d *Desk) AddMember(ctx context.Context, fields model.MemberFields) error {
	return d.dispatch(ctx, action{
		key:      ActionMember,
		fallback: "Unable to add the member.",
		validate: func() string {
			d.memberForm = fields
			if strings.TrimSpace(fields.Name) == "" {
				return "Member name is required."
			}
			return ""
		},
		call: func(ctx context.Context) (func(), error) {
			member, err := d.store.CreateMember(ctx, fields)
			if err != nil {
				return nil, err
			}
			return func() {
				d.members = append(d.members, *member)
				d.memberForm = model.MemberFields{}
				d.setBanner(BannerSuccess, member.Name+" was added as a member.")
			}, nil
		},
	})
}

// CreateLoan submits the loan form. Book and member are required.
func (d *Desk) CreateLoan(ctx context.Context, req model.LoanRequest) error {
	return d.dispatch(ctx, action{
		key:      ActionLoan,
		fallback: "Unable to create the loan.",
		validate: func() string {
			d.loanForm = req
			if req.BookID == "" || req.MemberID == "" {
				return "Select both a book and a member to record a loan."
			}
			return ""
		},
		call: func(ctx context.Context) (func(), error) {
			loan, err := d.store.CreateLoan(ctx, req)
			if err != nil {
				return nil, err
			}
			return func() {
				d.loans = append(d.loans, *loan)
				d.loanForm = model.LoanRequest{DueDate: model.DefaultDueDate(d.now())}
				d.setBanner(BannerSuccess, "Loan has been recorded.")
			}, nil
		},
	})
}

// ReturnLoan marks a loan returned. Different loans may be returned
// concurrently.
func (d *Desk) ReturnLoan(ctx context.Context, loanID string) error {
	return d.dispatch(ctx, action{
		key:      ReturnKey(loanID),
		fallback: "Unable to complete the loan.",
		call: func(ctx context.Context) (func(), error) {
			updated, err := d.store.CompleteLoan(ctx, loanID)
			if err != nil {
				return nil, err
			}
			return func() {
				for i := range d.loans {
					if d.loans[i].ID == loanID {
						d.loans[i] = *updated
					}
				}
				d.setBanner(BannerSuccess, "Book marked as returned.")
			}, nil
		},
	})
}

// Reset restores the demo dataset.
func (d *Desk) Reset(ctx context.Context) error {
	return d.dispatch(ctx, action{
		key:      ActionReset,
		fallback: "Unable to reset the dataset.",
		call: func(ctx context.Context) (func(), error) {
			snapshot, err := d.store.ResetDemoState(ctx)
			if err != nil {
				return nil, err
			}
			return func() {
				d.replace(snapshot)
				d.setBanner(BannerSuccess, "Demo data has been restored.")
			}, nil
		},
	})
}

type action struct {
	key      string
	fallback string
	// validate runs under the lock and returns a message when the input is
	// incomplete.
	validate func() string
	// call runs without the lock. The returned func merges the result and
	// runs under the lock.
	call func(ctx context.Context) (func(), error)
}

func (d *Desk) dispatch(ctx context.Context, a action) error {
	d.mu.Lock()
	if d.pending[a.key] {
		d.mu.Unlock()
		return ErrBusy
	}
	if a.validate != nil {
		if msg := a.validate(); msg != "" {
			d.setBanner(BannerError, msg)
			d.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrValidation, msg)
		}
	}
	d.pending[a.key] = true
	d.mu.Unlock()

	// Dispatched actions always run to completion.
	merge, err := a.call(context.WithoutCancel(ctx))

	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, a.key)
	if err != nil {
		slog.Warn("desk action failed", "action", a.key, "error", err)
		d.setBanner(BannerError, failureMessage(err, a.fallback))
		return err
	}
	merge()
	return nil
}

// failureMessage returns the display message of store errors and fallback
// for everything else.
func failureMessage(err error, fallback string) string {
	var se *store.Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

func (d *Desk) replace(snapshot *model.Snapshot) {
	c := snapshot.Clone()
	d.books, d.members, d.loans = c.Books, c.Members, c.Loans
}

func (d *Desk) setBanner(t BannerType, message string) {
	d.banner = &Banner{Type: t, Message: message, shownAt: d.now()}
}

// View is a consistent read of the desk with every derived view computed.
type View struct {
	Tab        Tab
	Tabs       []TabInfo
	Loading    bool
	Banner     *Banner
	Filters    Filters
	BookForm   model.BookFields
	MemberForm model.MemberFields
	LoanForm   model.LoanRequest

	Books           []model.Book
	Members         []model.Member
	Loans           []model.Loan
	FilteredBooks   []model.Book
	FilteredMembers []model.Member
	ActiveLoans     []model.Loan
	OverdueLoans    []model.Loan
	AvailableBooks  []model.Book
	BookByID        map[string]model.Book
	MemberByID      map[string]model.Member
	KPI             KPI
	Now             time.Time

	pending map[string]bool
}

// View returns the current state. Expired banners are cleared.
func (d *Desk) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.banner != nil && now.Sub(d.banner.shownAt) >= d.bannerTTL {
		d.banner = nil
	}

	snapshot := (&model.Snapshot{Books: d.books, Members: d.members, Loans: d.loans}).Clone()
	pending := make(map[string]bool, len(d.pending))
	for k := range d.pending {
		pending[k] = true
	}
	var banner *Banner
	if d.banner != nil {
		b := *d.banner
		banner = &b
	}

	active := ActiveLoans(snapshot.Loans)
	return View{
		Tab:             d.tab,
		Tabs:            Tabs,
		Loading:         d.loading,
		Banner:          banner,
		Filters:         d.filters,
		BookForm:        d.bookForm,
		MemberForm:      d.memberForm,
		LoanForm:        d.loanForm,
		Books:           snapshot.Books,
		Members:         snapshot.Members,
		Loans:           snapshot.Loans,
		FilteredBooks:   FilterBooks(snapshot.Books, d.filters.Books),
		FilteredMembers: FilterMembers(snapshot.Members, d.filters.Members),
		ActiveLoans:     active,
		OverdueLoans:    OverdueLoans(active, now),
		AvailableBooks:  AvailableBooks(snapshot.Books, active),
		BookByID:        IndexBooks(snapshot.Books),
		MemberByID:      IndexMembers(snapshot.Members),
		KPI:             ComputeKPI(snapshot.Books, snapshot.Members, snapshot.Loans, now),
		Now:             now,
		pending:         pending,
	}
}

// IsPending reports whether the action with key is in flight.
func (v View) IsPending(key string) bool { return v.pending[key] }

// Borrowed reports whether bookID is on an active loan.
func (v View) Borrowed(bookID string) bool {
	for _, l := range v.ActiveLoans {
		if l.BookID == bookID {
			return true
		}
	}
	return false
}

// IsOverdue reports whether l is overdue at the time of the view.
func (v View) IsOverdue(l model.Loan) bool { return l.Overdue(v.Now) }
