package credits

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// DefaultUserID is used when a caller does not identify itself.
const DefaultUserID = "default"

// ErrInvalidAmount is returned when a credit or debit amount is not positive.
var ErrInvalidAmount = errors.New("credits: amount must be positive")

// Store is the ledger contract used by the orchestrator. Lack of funds is
// reported through boolean results, never as an error.
type Store interface {
	HasSufficientCredits(ctx context.Context, userID string, required int) (bool, error)
	// Debit decrements the balance only when it covers amount. The check and
	// the decrement happen in one critical section.
	Debit(ctx context.Context, userID string, amount int) (remaining int, ok bool, err error)
	Balance(ctx context.Context, userID string) (int, error)
	Credit(ctx context.Context, userID string, amount int) (int, error)
}

type account struct {
	mu      sync.Mutex
	balance int
}

// MemoryStore keeps balances in process memory. Accounts are created lazily
// with the default balance and live until the process exits.
type MemoryStore struct {
	mu             sync.RWMutex
	accounts       map[string]*account
	defaultBalance int
}

// Option customizes a MemoryStore.
type Option func(*MemoryStore)

// WithBalance seeds userID with an explicit starting balance.
func WithBalance(userID string, balance int) Option {
	return func(s *MemoryStore) {
		if balance < 0 {
			balance = 0
		}
		s.accounts[normalizeUserID(userID)] = &account{balance: balance}
	}
}

// NewMemoryStore returns a store whose unknown users start at defaultBalance.
func NewMemoryStore(defaultBalance int, opts ...Option) *MemoryStore {
	if defaultBalance < 0 {
		defaultBalance = 0
	}
	s := &MemoryStore{
		accounts:       make(map[string]*account),
		defaultBalance: defaultBalance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) HasSufficientCredits(ctx context.Context, userID string, required int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	acc := s.account(userID)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.balance >= required, nil
}

func (s *MemoryStore) Debit(ctx context.Context, userID string, amount int) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if amount <= 0 {
		return 0, false, ErrInvalidAmount
	}
	acc := s.account(userID)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	if acc.balance < amount {
		return acc.balance, false, nil
	}
	acc.balance -= amount
	return acc.balance, true, nil
}

func (s *MemoryStore) Balance(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	acc := s.account(userID)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.balance, nil
}

func (s *MemoryStore) Credit(ctx context.Context, userID string, amount int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	acc := s.account(userID)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.balance += amount
	return acc.balance, nil
}

func (s *MemoryStore) account(userID string) *account {
	id := normalizeUserID(userID)
	s.mu.RLock()
	acc, ok := s.accounts[id]
	s.mu.RUnlock()
	if ok {
		return acc
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok = s.accounts[id]; ok {
		return acc
	}
	acc = &account{balance: s.defaultBalance}
	s.accounts[id] = acc
	return acc
}

func normalizeUserID(userID string) string {
	if id := strings.TrimSpace(userID); id != "" {
		return id
	}
	return DefaultUserID
}

var _ Store = (*MemoryStore)(nil)
