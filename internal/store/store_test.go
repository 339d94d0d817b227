package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/kv"
	"github.com/erazemk/knjiznica/internal/model"
)

var testNow = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) (*Store, *kv.Memory) {
	t.Helper()
	backend := kv.NewMemory()
	base := []Option{WithDelay(NoDelay), WithClock(func() time.Time { return testNow })}
	return New(backend, append(base, opts...)...), backend
}

func Test_GetSnapshot_SeedsMissingKey(t *testing.T) {
	s, backend := newTestStore(t)
	ctx := context.Background()

	snapshot, err := s.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, Seed(), snapshot)

	raw, err := backend.Get(ctx, DefaultKey)
	require.NoError(t, err, "seed should be persisted on first read")
	assert.NotEmpty(t, raw)
}

func Test_GetSnapshot_ReseedsCorruptPayload(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":   `{"books": [`,
		"wrong type": `{"books": 42}`,
	} {
		t.Run(name, func(t *testing.T) {
			s, backend := newTestStore(t)
			ctx := context.Background()
			require.NoError(t, backend.Put(ctx, DefaultKey, []byte(payload)))

			snapshot, err := s.GetSnapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, Seed(), snapshot)

			raw, err := backend.Get(ctx, DefaultKey)
			require.NoError(t, err)
			assert.NotEqual(t, payload, string(raw), "corrupt payload should be overwritten")
		})
	}
}

func Test_GetSnapshot_ReturnsDecoupledCopy(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.GetSnapshot(ctx)
	require.NoError(t, err)
	first.Books[0].Title = "Scribbled"
	first.Loans = nil

	second, err := s.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Clean Code", second.Books[0].Title)
	assert.Len(t, second.Loans, 1)
}

func Test_CreateBook(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	book, err := s.CreateBook(ctx, model.BookFields{Title: "X", Author: "Y"})
	require.NoError(t, err)
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, testNow, book.CreatedAt)

	snapshot, err := s.GetSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Books, 4)
	last := snapshot.Books[3]
	assert.Equal(t, book.ID, last.ID)
	assert.Equal(t, "X", last.Title)
	assert.Equal(t, "Y", last.Author)
	assert.True(t, last.CreatedAt.Equal(book.CreatedAt))
}

func Test_CreateBook_TrimsAndAcceptsEmptyFields(t *testing.T) {
	s, _ := newTestStore(t)

	book, err := s.CreateBook(context.Background(), model.BookFields{
		Title:    "  Refactoring \n",
		ISBN:     " 9780134757599 ",
		Category: "\tCraft",
	})
	require.NoError(t, err)
	assert.Equal(t, "Refactoring", book.Title)
	assert.Equal(t, "", book.Author)
	assert.Equal(t, "9780134757599", book.ISBN)
	assert.Equal(t, "Craft", book.Category)
}

func Test_CreateMember(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	member, err := s.CreateMember(ctx, model.MemberFields{Name: " Priya Singh ", Email: "priya@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Priya Singh", member.Name)
	assert.Equal(t, testNow, member.JoinedAt)

	snapshot, err := s.GetSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Members, 4)
	assert.Equal(t, member.ID, snapshot.Members[3].ID)
}

func Test_IDsAreUniquePerCollection(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for range 20 {
		book, err := s.CreateBook(ctx, model.BookFields{Title: "T", Author: "A"})
		require.NoError(t, err)
		assert.False(t, seen[book.ID], "duplicate id %s", book.ID)
		seen[book.ID] = true
	}
}

func Test_CreateLoan(t *testing.T) {
	tests := []struct {
		name    string
		dueDate model.Date
		want    model.Date
	}{
		{"given due date", "2025-02-01", "2025-02-01"},
		{"default due date", "", "2025-01-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			ctx := context.Background()

			loan, err := s.CreateLoan(ctx, model.LoanRequest{
				BookID:   "bk-clean-code",
				MemberID: "mb-rahul",
				DueDate:  tt.dueDate,
			})
			require.NoError(t, err)
			assert.Nil(t, loan.ReturnedOn)
			assert.Equal(t, tt.want, loan.DueDate)
			assert.Equal(t, testNow, loan.BorrowedOn)
			assert.Equal(t, "bk-clean-code", loan.BookID)
			assert.Equal(t, "mb-rahul", loan.MemberID)

			snapshot, err := s.GetSnapshot(ctx)
			require.NoError(t, err)
			require.Len(t, snapshot.Loans, 2)
			assert.Equal(t, loan.ID, snapshot.Loans[1].ID)
		})
	}
}

func Test_CreateLoan_ConflictOnActiveLoan(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	req := model.LoanRequest{BookID: "bk-clean-code", MemberID: "mb-lina"}

	_, err := s.CreateLoan(ctx, req)
	require.NoError(t, err)

	_, err = s.CreateLoan(ctx, model.LoanRequest{BookID: "bk-clean-code", MemberID: "mb-rahul"})
	require.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "Book is already borrowed.")

	// The seed loan keeps its book unavailable too.
	_, err = s.CreateLoan(ctx, model.LoanRequest{BookID: "bk-designing-data", MemberID: "mb-lina"})
	assert.ErrorIs(t, err, ErrConflict)
}

func Test_CreateLoan_AllowedAfterReturn(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CompleteLoan(ctx, "ln-001")
	require.NoError(t, err)

	loan, err := s.CreateLoan(ctx, model.LoanRequest{BookID: "bk-designing-data", MemberID: "mb-lina"})
	require.NoError(t, err)
	assert.Nil(t, loan.ReturnedOn)
}

func Test_NotFound_DoesNotMutate(t *testing.T) {
	tests := []struct {
		name    string
		op      func(s *Store) error
		message string
	}{
		{
			name: "unknown book",
			op: func(s *Store) error {
				_, err := s.CreateLoan(context.Background(), model.LoanRequest{BookID: "bk-missing", MemberID: "mb-sara"})
				return err
			},
			message: "Book not found.",
		},
		{
			name: "unknown member",
			op: func(s *Store) error {
				_, err := s.CreateLoan(context.Background(), model.LoanRequest{BookID: "bk-clean-code", MemberID: "mb-missing"})
				return err
			},
			message: "Member not found.",
		},
		{
			name: "unknown loan",
			op: func(s *Store) error {
				_, err := s.CompleteLoan(context.Background(), "ln-missing")
				return err
			},
			message: "Loan not found.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend := newTestStore(t)
			ctx := context.Background()

			_, err := s.GetSnapshot(ctx)
			require.NoError(t, err)
			before, err := backend.Get(ctx, DefaultKey)
			require.NoError(t, err)

			err = tt.op(s)
			require.ErrorIs(t, err, ErrNotFound)
			assert.EqualError(t, err, tt.message)

			after, err := backend.Get(ctx, DefaultKey)
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after))
		})
	}
}

func Test_CompleteLoan_IsIdempotent(t *testing.T) {
	clock := testNow
	s, _ := newTestStore(t, WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	first, err := s.CompleteLoan(ctx, "ln-001")
	require.NoError(t, err)
	require.NotNil(t, first.ReturnedOn)
	assert.Equal(t, testNow, *first.ReturnedOn)

	clock = clock.Add(time.Hour)
	second, err := s.CompleteLoan(ctx, "ln-001")
	require.NoError(t, err)
	require.NotNil(t, second.ReturnedOn)
	assert.True(t, first.ReturnedOn.Equal(*second.ReturnedOn))
}

func Test_ResetDemoState_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateBook(ctx, model.BookFields{Title: "Extra", Author: "Someone"})
	require.NoError(t, err)
	_, err = s.CompleteLoan(ctx, "ln-001")
	require.NoError(t, err)

	reset, err := s.ResetDemoState(ctx)
	require.NoError(t, err)
	assert.Equal(t, Seed(), reset)

	snapshot, err := s.GetSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Books, 3)
	require.Len(t, snapshot.Members, 3)
	require.Len(t, snapshot.Loans, 1)
	assert.Equal(t, "bk-designing-data", snapshot.Loans[0].BookID)
	assert.Equal(t, "mb-sara", snapshot.Loans[0].MemberID)
	assert.Nil(t, snapshot.Loans[0].ReturnedOn)
}

func Test_SQLiteBackend(t *testing.T) {
	backend, err := kv.NewSQL(db.NewTestDB(t), db.DriverSQLite)
	require.NoError(t, err)
	s := New(backend, WithDelay(NoDelay))
	ctx := context.Background()

	book, err := s.CreateBook(ctx, model.BookFields{Title: "The Pragmatic Programmer", Author: "Hunt & Thomas"})
	require.NoError(t, err)
	loan, err := s.CreateLoan(ctx, model.LoanRequest{BookID: book.ID, MemberID: "mb-lina", DueDate: "2030-01-01"})
	require.NoError(t, err)

	// A second store over the same database sees the writes.
	other := New(backend, WithDelay(NoDelay))
	snapshot, err := other.GetSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Loans, 2)
	assert.Equal(t, loan.ID, snapshot.Loans[1].ID)
	assert.Equal(t, model.Date("2030-01-01"), snapshot.Loans[1].DueDate)
}

func Test_NewInMemory_SharesDataset(t *testing.T) {
	ctx := context.Background()
	first := NewInMemory(WithDelay(NoDelay))
	_, err := first.ResetDemoState(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = first.ResetDemoState(ctx) })

	member, err := first.CreateMember(ctx, model.MemberFields{Name: "Shared"})
	require.NoError(t, err)

	second := NewInMemory(WithDelay(NoDelay))
	snapshot, err := second.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, member.ID, snapshot.Members[len(snapshot.Members)-1].ID)
}

func Test_ConcurrentCheckoutsOfOneBook(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateLoan(ctx, model.LoanRequest{BookID: "bk-clean-code", MemberID: "mb-lina"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, succeeded)
}

type recordedOp struct {
	op      string
	success bool
}

type fakeRecorder struct {
	mu  sync.Mutex
	ops []recordedOp
}

func (r *fakeRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	r.mu.Lock()
	r.ops = append(r.ops, recordedOp{op, success})
	r.mu.Unlock()
}

func Test_RecorderSeesOutcomes(t *testing.T) {
	rec := &fakeRecorder{}
	s, _ := newTestStore(t, WithRecorder(rec))
	ctx := context.Background()

	_, _ = s.GetSnapshot(ctx)
	_, _ = s.CompleteLoan(ctx, "ln-missing")

	assert.Equal(t, []recordedOp{
		{"get_snapshot", true},
		{"complete_loan", false},
	}, rec.ops)
}

func Test_DelayHonoursCancellation(t *testing.T) {
	s, backend := newTestStore(t, WithDelay(RandomDelay{Min: time.Hour, Max: time.Hour}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreateBook(ctx, model.BookFields{Title: "Never", Author: "Stored"})
	require.True(t, errors.Is(err, context.Canceled))

	_, err = backend.Get(context.Background(), DefaultKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func Test_RandomDelayStaysInRange(t *testing.T) {
	d := RandomDelay{Min: time.Millisecond, Max: 3 * time.Millisecond}
	start := time.Now()
	require.NoError(t, d.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
}
