package service

import (
	"sync"

	"github.com/google/uuid"
)

// LoanLocks serialises work on a single loan inside this process. Database
// row locks cover other processes; this keeps same-process callers from
// queueing on the connection pool while holding a transaction.
type LoanLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*loanLock
}

type loanLock struct {
	mu   sync.Mutex
	refs int
}

func NewLoanLocks() *LoanLocks {
	return &LoanLocks{locks: make(map[uuid.UUID]*loanLock)}
}

// Lock blocks until the caller owns loanID and returns the unlock function.
func (l *LoanLocks) Lock(loanID uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[loanID]
	if !ok {
		lock = &loanLock{}
		l.locks[loanID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, loanID)
		}
		l.mu.Unlock()
	}
}
