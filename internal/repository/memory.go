package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/model"
)

// MemoryStore - хранилище в памяти для тестов и локального запуска.
// Все изменения выполняются под одним мьютексом, поэтому проверка предиката
// и изменение баланса в ConditionalUpdate атомарны.
// Наружу отдаются только копии, внутренние указатели не утекают.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[string]*model.Account
	transactions []model.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*model.Account)}
}

func (s *MemoryStore) CreateAccount(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.AccountNumber]; ok {
		return ErrDuplicateAccountNumber
	}
	cp := *account
	s.accounts[account.AccountNumber] = &cp
	return nil
}

func (s *MemoryStore) FindAccount(_ context.Context, accountNumber string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountNumber]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ListAccountsByHolder(_ context.Context, holderID uuid.UUID) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Account
	for _, a := range s.accounts {
		if a.AccountHolderID == holderID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ConditionalUpdate(_ context.Context, accountNumber string, upd BalanceUpdate) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountNumber]
	if !ok || !upd.Matches(a) {
		return nil, ErrConditionFailed
	}
	upd.Apply(a)
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ResetDailyStats(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.accounts {
		if !a.DailyStats.Deposit.IsZero() || !a.DailyStats.Withdrawal.IsZero() || !a.DailyStats.Transfer.IsZero() {
			n++
		}
		a.DailyStats = model.DailyStats{Deposit: decimal.Zero, Withdrawal: decimal.Zero, Transfer: decimal.Zero}
	}
	return n, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, accountNumber string, status model.AccountStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountNumber]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) InsertTransaction(_ context.Context, transaction *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, *transaction)
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, accountNumber string) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if t.AccountNumber == accountNumber || t.ToAccount == accountNumber {
			out = append(out, t)
		}
	}
	return out, nil
}

// Transactions возвращает все записи в порядке вставки
func (s *MemoryStore) Transactions() []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}
