// Package memory is a process-local implementation of the inquiry storage
// and lease ports. It is meant for tests and single-instance development runs.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store holds all in-memory state. Use Inquiries and Events to obtain the
// repositories and RunInTx to group writes.
type Store struct {
	mu sync.RWMutex

	inquiries map[uuid.UUID]*inquiryRecord
	events    []eventRecord
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		inquiries: make(map[uuid.UUID]*inquiryRecord),
	}
}

type txKey struct{}

type txState struct {
	store *Store
	undo  []func()
}

func (s *Store) txFrom(ctx context.Context) *txState {
	st, ok := ctx.Value(txKey{}).(*txState)
	if !ok || st.store != s {
		return nil
	}
	return st
}

// RunInTx runs fn while holding the store's write lock. Writes made by fn are
// undone if it returns an error or panics. Nested calls join the outer one.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := &txState{store: s}
	defer func() {
		if r := recover(); r != nil {
			st.rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, st)); err != nil {
		st.rollback()
		return err
	}
	return nil
}

func (st *txState) rollback() {
	for i := len(st.undo) - 1; i >= 0; i-- {
		st.undo[i]()
	}
	st.undo = nil
}

// write locks the store unless ctx is inside RunInTx, and returns a function
// that registers an undo step plus the unlock.
func (s *Store) write(ctx context.Context) (onUndo func(func()), unlock func()) {
	if st := s.txFrom(ctx); st != nil {
		return func(u func()) { st.undo = append(st.undo, u) }, func() {}
	}
	s.mu.Lock()
	return func(func()) {}, s.mu.Unlock
}

func (s *Store) read(ctx context.Context) (unlock func()) {
	if s.txFrom(ctx) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}
