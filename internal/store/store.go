// Package store owns the canonical library dataset: books, members and
// loans. The whole dataset lives under one backend key and is rewritten in
// a single Put after every successful mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/erazemk/knjiznica/internal/kv"
	"github.com/erazemk/knjiznica/internal/model"
)

// Recorder receives the outcome of every store operation.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Store exposes the six dataset operations. It is safe for concurrent use.
type Store struct {
	backend  kv.Backend
	key      string
	delay    Delayer
	newID    func(prefix string) string
	now      func() time.Time
	recorder Recorder
	mu       *sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithKey sets the backend key the dataset is stored under.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithDelay replaces the simulated latency.
func WithDelay(d Delayer) Option {
	return func(s *Store) { s.delay = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs replaces the id generator.
func WithIDs(newID func(prefix string) string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithRecorder reports operation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// New creates a Store over backend.
func New(backend kv.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		key:     DefaultKey,
		delay:   DefaultDelay,
		newID:   NewID,
		now:     time.Now,
		mu:      &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	fallbackOnce    sync.Once
	fallbackBackend *kv.Memory
	fallbackMu      sync.Mutex
)

// NewInMemory returns a Store over the process-wide in-memory dataset. The
// dataset is created on first use and survives until the process exits;
// only ResetDemoState restores it.
func NewInMemory(opts ...Option) *Store {
	fallbackOnce.Do(func() { fallbackBackend = kv.NewMemory() })
	s := New(fallbackBackend, opts...)
	s.mu = &fallbackMu
	return s
}

// Backend returns the medium the store persists to.
func (s *Store) Backend() kv.Backend { return s.backend }

// GetSnapshot returns a copy of the whole dataset.
func (s *Store) GetSnapshot(ctx context.Context) (*model.Snapshot, error) {
	var snapshot *model.Snapshot
	err := s.observe(ctx, "get_snapshot", func() error {
		if err := s.delay.Wait(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		state, err := s.readState(ctx)
		if err != nil {
			return err
		}
		snapshot = state.Clone()
		return nil
	})
	return snapshot, err
}

// CreateBook appends a book with trimmed fields. Empty fields are accepted.
func (s *Store) CreateBook(ctx context.Context, fields model.BookFields) (*model.Book, error) {
	var book model.Book
	err := s.mutate(ctx, "create_book", func(state *model.Snapshot) (bool, error) {
		book = model.Book{
			ID:        s.newID("book"),
			Title:     strings.TrimSpace(fields.Title),
			Author:    strings.TrimSpace(fields.Author),
			ISBN:      strings.TrimSpace(fields.ISBN),
			Category:  strings.TrimSpace(fields.Category),
			CreatedAt: s.timestamp(),
		}
		state.Books = append(state.Books, book)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// CreateMember appends a member with trimmed fields. Empty fields are accepted.
func (s *Store) CreateMember(ctx context.Context, fields model.MemberFields) (*model.Member, error) {
	var member model.Member
	err := s.mutate(ctx, "create_member", func(state *model.Snapshot) (bool, error) {
		member = model.Member{
			ID:       s.newID("member"),
			Name:     strings.TrimSpace(fields.Name),
			Email:    strings.TrimSpace(fields.Email),
			Phone:    strings.TrimSpace(fields.Phone),
			JoinedAt: s.timestamp(),
		}
		state.Members = append(state.Members, member)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// CreateLoan lends a book to a member. It fails with ErrNotFound for unknown
// ids and with ErrConflict when the book is already on an active loan.
func (s *Store) CreateLoan(ctx context.Context, req model.LoanRequest) (*model.Loan, error) {
	var loan model.Loan
	err := s.mutate(ctx, "create_loan", func(state *model.Snapshot) (bool, error) {
		if !hasBook(state, req.BookID) {
			return false, notFound("Book not found.")
		}
		if !hasMember(state, req.MemberID) {
			return false, notFound("Member not found.")
		}
		for _, l := range state.Loans {
			if l.BookID == req.BookID && l.Active() {
				return false, conflict("Book is already borrowed.")
			}
		}

		now := s.timestamp()
		due := req.DueDate
		if due == "" {
			due = model.DefaultDueDate(now)
		}
		loan = model.Loan{
			ID:         s.newID("loan"),
			BookID:     req.BookID,
			MemberID:   req.MemberID,
			BorrowedOn: now,
			DueDate:    due,
		}
		state.Loans = append(state.Loans, loan)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// CompleteLoan marks a loan returned. Completing a returned loan is a no-op
// that returns it unchanged.
func (s *Store) CompleteLoan(ctx context.Context, loanID string) (*model.Loan, error) {
	var loan model.Loan
	err := s.mutate(ctx, "complete_loan", func(state *model.Snapshot) (bool, error) {
		for i := range state.Loans {
			if state.Loans[i].ID != loanID {
				continue
			}
			if !state.Loans[i].Active() {
				loan = state.Loans[i]
				return false, nil
			}
			returned := s.timestamp()
			state.Loans[i].ReturnedOn = &returned
			loan = state.Loans[i]
			return true, nil
		}
		return false, notFound("Loan not found.")
	})
	if err != nil {
		return nil, err
	}
	if loan.ReturnedOn != nil {
		returned := *loan.ReturnedOn
		loan.ReturnedOn = &returned
	}
	return &loan, nil
}

// ResetDemoState overwrites the dataset with the seed and returns it.
func (s *Store) ResetDemoState(ctx context.Context) (*model.Snapshot, error) {
	var snapshot *model.Snapshot
	err := s.observe(ctx, "reset_demo_state", func() error {
		if err := s.delay.Wait(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.writeState(ctx, Seed()); err != nil {
			return err
		}
		state, err := s.readState(ctx)
		if err != nil {
			return err
		}
		snapshot = state.Clone()
		return nil
	})
	return snapshot, err
}

// mutate runs mutator on a fresh copy of the dataset and persists the result
// when mutator reports a change.
func (s *Store) mutate(ctx context.Context, op string, mutator func(*model.Snapshot) (bool, error)) error {
	return s.observe(ctx, op, func() error {
		if err := s.delay.Wait(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		state, err := s.readState(ctx)
		if err != nil {
			return err
		}
		changed, err := mutator(state)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return s.writeState(ctx, state)
	})
}

// readState loads the dataset, seeding the backend when the key is missing
// and re-seeding it when the payload is corrupt.
func (s *Store) readState(ctx context.Context) (*model.Snapshot, error) {
	raw, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return s.reseed(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	state, err := decodeSnapshot(raw)
	if errors.Is(err, ErrStorageCorrupt) {
		// TODO: keep a copy of the discarded payload under a side key so it can be inspected.
		slog.Warn("discarding corrupt dataset", "key", s.key, "driver", s.backend.Driver(), "error", err)
		if err := s.backend.Delete(ctx, s.key); err != nil {
			return nil, fmt.Errorf("removing corrupt dataset: %w", err)
		}
		return s.reseed(ctx)
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) reseed(ctx context.Context) (*model.Snapshot, error) {
	seed := Seed()
	if err := s.writeState(ctx, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

func (s *Store) writeState(ctx context.Context, state *model.Snapshot) error {
	data, err := encodeSnapshot(state)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	return nil
}

func (s *Store) observe(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	if s.recorder != nil {
		s.recorder.Observe(ctx, op, err == nil, time.Since(start))
	}
	return err
}

// timestamp returns the current time with the millisecond precision the
// dataset is stored at.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func hasBook(state *model.Snapshot, id string) bool {
	for _, b := range state.Books {
		if b.ID == id {
			return true
		}
	}
	return false
}

func hasMember(state *model.Snapshot, id string) bool {
	for _, m := range state.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}
