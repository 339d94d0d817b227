package desk

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/kv"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

var deskNow = time.Date(2024, time.December, 1, 9, 0, 0, 0, time.UTC)

func newStore() *store.Store {
	return store.New(kv.NewMemory(),
		store.WithDelay(store.NoDelay),
		store.WithClock(func() time.Time { return deskNow }),
	)
}

func newDesk(t *testing.T, s Store, opts ...Option) *Desk {
	t.Helper()
	base := []Option{WithClock(func() time.Time { return deskNow })}
	d := New(s, append(base, opts...)...)
	require.NoError(t, d.Bootstrap(context.Background()))
	return d
}

// countingStore counts calls that reach the store.
type countingStore struct {
	*store.Store
	calls atomic.Int32
}

func (c *countingStore) CreateBook(ctx context.Context, f model.BookFields) (*model.Book, error) {
	c.calls.Add(1)
	return c.Store.CreateBook(ctx, f)
}

func (c *countingStore) CreateMember(ctx context.Context, f model.MemberFields) (*model.Member, error) {
	c.calls.Add(1)
	return c.Store.CreateMember(ctx, f)
}

func (c *countingStore) CreateLoan(ctx context.Context, r model.LoanRequest) (*model.Loan, error) {
	c.calls.Add(1)
	return c.Store.CreateLoan(ctx, r)
}

// gatedStore blocks CreateBook and CompleteLoan(gatedLoan) until release
// is closed.
type gatedStore struct {
	*store.Store
	gatedLoan string
	entered   chan string
	release   chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Store:     newStore(),
		gatedLoan: "ln-001",
		entered:   make(chan string, 4),
		release:   make(chan struct{}),
	}
}

func (g *gatedStore) CreateBook(ctx context.Context, f model.BookFields) (*model.Book, error) {
	g.entered <- ActionBook
	<-g.release
	return g.Store.CreateBook(ctx, f)
}

func (g *gatedStore) CompleteLoan(ctx context.Context, id string) (*model.Loan, error) {
	if id == g.gatedLoan {
		g.entered <- ReturnKey(id)
		<-g.release
	}
	return g.Store.CompleteLoan(ctx, id)
}

// brokenStore fails every call with an internal error.
type brokenStore struct{ *store.Store }

var errBroken = errors.New("backend unavailable")

func (brokenStore) GetSnapshot(context.Context) (*model.Snapshot, error) { return nil, errBroken }

func (brokenStore) CreateMember(context.Context, model.MemberFields) (*model.Member, error) {
	return nil, errBroken
}

func Test_Bootstrap(t *testing.T) {
	d := newDesk(t, newStore())
	v := d.View()

	assert.False(t, v.Loading)
	assert.Nil(t, v.Banner)
	assert.Equal(t, TabBooks, v.Tab)
	assert.Len(t, v.Books, 3)
	assert.Len(t, v.Members, 3)
	assert.Len(t, v.ActiveLoans, 1)
	assert.Len(t, v.AvailableBooks, 2)
	assert.Equal(t, model.Date("2024-12-15"), v.LoanForm.DueDate)
	assert.Equal(t, "Sara Winters", v.MemberByID["mb-sara"].Name)
}

func Test_Bootstrap_Failure(t *testing.T) {
	d := New(brokenStore{newStore()}, WithClock(func() time.Time { return deskNow }))

	err := d.Bootstrap(context.Background())
	require.ErrorIs(t, err, errBroken)

	v := d.View()
	assert.False(t, v.Loading)
	assert.Empty(t, v.Books)
	assert.Empty(t, v.Members)
	assert.Empty(t, v.Loans)
	require.NotNil(t, v.Banner)
	assert.Equal(t, BannerError, v.Banner.Type)
	assert.Equal(t, "Unable to load the local library data. You can continue working in memory.", v.Banner.Message)
}

func Test_Validation_NeverReachesStore(t *testing.T) {
	tests := []struct {
		name    string
		act     func(d *Desk) error
		message string
	}{
		{
			name:    "book without author",
			act:     func(d *Desk) error { return d.AddBook(context.Background(), model.BookFields{Title: "Refactoring"}) },
			message: "Title and author are required to add a book.",
		},
		{
			name: "book with blank title",
			act: func(d *Desk) error {
				return d.AddBook(context.Background(), model.BookFields{Title: "  ", Author: "Fowler"})
			},
			message: "Title and author are required to add a book.",
		},
		{
			name: "member without name",
			act: func(d *Desk) error {
				return d.AddMember(context.Background(), model.MemberFields{Email: "x@example.com"})
			},
			message: "Member name is required.",
		},
		{
			name: "loan without member",
			act: func(d *Desk) error {
				return d.CreateLoan(context.Background(), model.LoanRequest{BookID: "bk-clean-code"})
			},
			message: "Select both a book and a member to record a loan.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &countingStore{Store: newStore()}
			d := newDesk(t, s)

			err := tt.act(d)
			require.ErrorIs(t, err, ErrValidation)
			assert.Zero(t, s.calls.Load())

			v := d.View()
			require.NotNil(t, v.Banner)
			assert.Equal(t, BannerError, v.Banner.Type)
			assert.Equal(t, tt.message, v.Banner.Message)
			assert.Empty(t, v.pending)
		})
	}
}

func Test_Validation_KeepsFormInput(t *testing.T) {
	d := newDesk(t, newStore())

	_ = d.AddBook(context.Background(), model.BookFields{Title: "Refactoring", ISBN: "123"})

	assert.Equal(t, model.BookFields{Title: "Refactoring", ISBN: "123"}, d.View().BookForm)
}

func Test_AddBook(t *testing.T) {
	d := newDesk(t, newStore())

	err := d.AddBook(context.Background(), model.BookFields{Title: "Refactoring", Author: "Martin Fowler"})
	require.NoError(t, err)

	v := d.View()
	require.Len(t, v.Books, 4)
	assert.Equal(t, "Refactoring", v.Books[3].Title)
	assert.Equal(t, model.BookFields{}, v.BookForm)
	require.NotNil(t, v.Banner)
	assert.Equal(t, BannerSuccess, v.Banner.Type)
	assert.Equal(t, `"Refactoring" was added to the catalog.`, v.Banner.Message)
}

func Test_AddMember(t *testing.T) {
	d := newDesk(t, newStore())

	err := d.AddMember(context.Background(), model.MemberFields{Name: "Priya Singh"})
	require.NoError(t, err)

	v := d.View()
	require.Len(t, v.Members, 4)
	assert.Equal(t, "Priya Singh was added as a member.", v.Banner.Message)
}

func Test_AddMember_InternalErrorUsesFallback(t *testing.T) {
	s := brokenStore{newStore()}
	d := New(s)

	err := d.AddMember(context.Background(), model.MemberFields{Name: "Priya"})
	require.ErrorIs(t, err, errBroken)

	v := d.View()
	assert.Equal(t, "Unable to add the member.", v.Banner.Message)
	assert.Equal(t, model.MemberFields{Name: "Priya"}, v.MemberForm)
}

func Test_CreateLoan(t *testing.T) {
	d := newDesk(t, newStore())

	err := d.CreateLoan(context.Background(), model.LoanRequest{BookID: "bk-clean-code", MemberID: "mb-rahul", DueDate: "2024-12-20"})
	require.NoError(t, err)

	v := d.View()
	assert.Len(t, v.ActiveLoans, 2)
	assert.True(t, v.Borrowed("bk-clean-code"))
	assert.Len(t, v.AvailableBooks, 1)
	assert.Equal(t, model.LoanRequest{DueDate: "2024-12-15"}, v.LoanForm)
	assert.Equal(t, "Loan has been recorded.", v.Banner.Message)
}

func Test_CreateLoan_ConflictLeavesCache(t *testing.T) {
	d := newDesk(t, newStore())
	before := d.View()

	err := d.CreateLoan(context.Background(), model.LoanRequest{BookID: "bk-designing-data", MemberID: "mb-lina"})
	require.ErrorIs(t, err, store.ErrConflict)

	v := d.View()
	assert.Equal(t, before.Loans, v.Loans)
	assert.Equal(t, BannerError, v.Banner.Type)
	assert.Equal(t, "Book is already borrowed.", v.Banner.Message)
}

func Test_ReturnLoan(t *testing.T) {
	d := newDesk(t, newStore())

	require.NoError(t, d.ReturnLoan(context.Background(), "ln-001"))

	v := d.View()
	assert.Empty(t, v.ActiveLoans)
	assert.Len(t, v.Loans, 1)
	require.NotNil(t, v.Loans[0].ReturnedOn)
	assert.Len(t, v.AvailableBooks, 3)
	assert.Equal(t, "Book marked as returned.", v.Banner.Message)

	err := d.ReturnLoan(context.Background(), "ln-missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "Loan not found.", d.View().Banner.Message)
}

func Test_Reset(t *testing.T) {
	d := newDesk(t, newStore())
	ctx := context.Background()
	require.NoError(t, d.AddBook(ctx, model.BookFields{Title: "T", Author: "A"}))
	require.NoError(t, d.ReturnLoan(ctx, "ln-001"))

	require.NoError(t, d.Reset(ctx))

	v := d.View()
	assert.Equal(t, store.Seed().Books, v.Books)
	assert.Len(t, v.ActiveLoans, 1)
	assert.Equal(t, "Demo data has been restored.", v.Banner.Message)
}

func Test_BannerExpires(t *testing.T) {
	clock := deskNow
	d := New(newStore(), WithClock(func() time.Time { return clock }))
	require.NoError(t, d.Bootstrap(context.Background()))
	require.NoError(t, d.AddMember(context.Background(), model.MemberFields{Name: "Priya"}))

	clock = clock.Add(DefaultBannerTTL - time.Millisecond)
	assert.NotNil(t, d.View().Banner)

	clock = clock.Add(time.Millisecond)
	assert.Nil(t, d.View().Banner)
}

func Test_SelectTabAndFilters(t *testing.T) {
	d := newDesk(t, newStore())

	d.SelectTab(TabLoans)
	d.SelectTab("settings")
	d.SetBookFilter("data")
	d.SetMemberFilter("RAHUL")

	v := d.View()
	assert.Equal(t, TabLoans, v.Tab)
	assert.Equal(t, []string{"Designing Data-Intensive Applications"}, titles(v.FilteredBooks))
	require.Len(t, v.FilteredMembers, 1)
	assert.Equal(t, "mb-rahul", v.FilteredMembers[0].ID)
}

func Test_PendingActionRejectsDuplicate(t *testing.T) {
	s := newGatedStore()
	d := newDesk(t, s)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, d.AddBook(ctx, model.BookFields{Title: "Slow", Author: "Writer"}))
	}()
	require.Equal(t, ActionBook, <-s.entered)

	assert.True(t, d.View().IsPending(ActionBook))
	err := d.AddBook(ctx, model.BookFields{Title: "Again", Author: "Writer"})
	assert.ErrorIs(t, err, ErrBusy)

	// Other actions stay responsive.
	require.NoError(t, d.AddMember(ctx, model.MemberFields{Name: "Priya"}))

	close(s.release)
	wg.Wait()

	v := d.View()
	assert.False(t, v.IsPending(ActionBook))
	assert.Len(t, v.Books, 4)
}

func Test_ReturnsAreKeyedPerLoan(t *testing.T) {
	s := newGatedStore()
	d := newDesk(t, s)
	ctx := context.Background()
	require.NoError(t, d.CreateLoan(ctx, model.LoanRequest{BookID: "bk-clean-code", MemberID: "mb-lina"}))
	other := d.View().ActiveLoans[1].ID

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, d.ReturnLoan(ctx, "ln-001"))
	}()
	require.Equal(t, ReturnKey("ln-001"), <-s.entered)

	assert.ErrorIs(t, d.ReturnLoan(ctx, "ln-001"), ErrBusy)
	require.NoError(t, d.ReturnLoan(ctx, other))

	close(s.release)
	wg.Wait()
	assert.Empty(t, d.View().ActiveLoans)
}

func Test_DispatchOutlivesCancelledRequest(t *testing.T) {
	d := newDesk(t, newStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, d.AddMember(ctx, model.MemberFields{Name: "Priya"}))
	assert.Len(t, d.View().Members, 4)
}

func Test_ViewIsDecoupled(t *testing.T) {
	d := newDesk(t, newStore())

	v := d.View()
	v.Books[0].Title = "Scribbled"
	v.Loans[0].DueDate = "1999-01-01"

	again := d.View()
	assert.Equal(t, "Clean Code", again.Books[0].Title)
	assert.Equal(t, model.Date("2024-12-05"), again.Loans[0].DueDate)
}
