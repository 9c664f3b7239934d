package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"banking-ledger/internal/config"
	"banking-ledger/internal/ledger"
	"banking-ledger/internal/model"
	"banking-ledger/internal/repository"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedAccount(t *testing.T, store *repository.MemoryStore, number string, holder uuid.UUID, balance string) {
	t.Helper()
	now := time.Now()
	err := store.CreateAccount(context.Background(), &model.Account{
		AccountNumber:   number,
		AccountHolderID: holder,
		AccountType:     model.AccountTypeChecking,
		Balance:         dec(balance),
		Status:          model.AccountStatusActive,
		CreatedBy:       holder,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", number, err)
	}
}

func eventEntries(hook *test.Hook, event string) []logrus.Entry {
	var out []logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Data["event"] == event {
			out = append(out, *e)
		}
	}
	return out
}

type alertRecord struct {
	event  string
	fields logrus.Fields
}

type fakeAlerter struct {
	ch chan alertRecord
}

func newFakeAlerter() *fakeAlerter {
	return &fakeAlerter{ch: make(chan alertRecord, 16)}
}

func (f *fakeAlerter) Alert(event string, fields logrus.Fields) error {
	f.ch <- alertRecord{event: event, fields: fields}
	return nil
}

func (f *fakeAlerter) wait(t *testing.T) alertRecord {
	t.Helper()
	select {
	case a := <-f.ch:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("alert was not sent")
		return alertRecord{}
	}
}

// ledgerStore позволяет подменить условное обновление для отдельных вызовов
type ledgerStore struct {
	*repository.MemoryStore
	intercept func(accountNumber string, upd repository.BalanceUpdate) error
}

func (s *ledgerStore) ConditionalUpdate(ctx context.Context, accountNumber string, upd repository.BalanceUpdate) (*model.Account, error) {
	if s.intercept != nil {
		if err := s.intercept(accountNumber, upd); err != nil {
			return nil, err
		}
	}
	return s.MemoryStore.ConditionalUpdate(ctx, accountNumber, upd)
}

// staleView отдает валидатору устаревшие снимки выбранных счетов
type staleView struct {
	*repository.MemoryStore
	mu        sync.Mutex
	overrides map[string]model.Account
}

func (v *staleView) FindAccount(ctx context.Context, accountNumber string) (*model.Account, error) {
	v.mu.Lock()
	a, ok := v.overrides[accountNumber]
	v.mu.Unlock()
	if ok {
		return &a, nil
	}
	return v.MemoryStore.FindAccount(ctx, accountNumber)
}

type failingTransactions struct {
	*repository.MemoryStore
}

func (failingTransactions) InsertTransaction(context.Context, *model.Transaction) error {
	return errors.New("audit table unavailable")
}

type fixture struct {
	store   *repository.MemoryStore
	ledger  *ledgerStore
	view    *staleView
	svc     *TransactionService
	hook    *test.Hook
	alerter *fakeAlerter
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	rules        config.Rules
	transactions TransactionStore
}

func withRules(r config.Rules) fixtureOption {
	return func(c *fixtureConfig) { c.rules = r }
}

func withTransactions(ts TransactionStore) fixtureOption {
	return func(c *fixtureConfig) { c.transactions = ts }
}

func newFixture(opts ...fixtureOption) *fixture {
	store := repository.NewMemoryStore()
	cfg := fixtureConfig{rules: config.DefaultRules(), transactions: store}
	for _, o := range opts {
		o(&cfg)
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	ls := &ledgerStore{MemoryStore: store}
	view := &staleView{MemoryStore: store, overrides: map[string]model.Account{}}
	alerter := newFakeAlerter()

	svc := NewTransactionService(
		NewTransactionValidator(view, cfg.rules),
		ledger.New(ls, cfg.rules, logger),
		NewRecorder(cfg.transactions, store, logger),
		alerter,
		logger,
	)
	return &fixture{store: store, ledger: ls, view: view, svc: svc, hook: hook, alerter: alerter}
}

func (f *fixture) balance(t *testing.T, number string) decimal.Decimal {
	t.Helper()
	a, err := f.store.FindAccount(context.Background(), number)
	if err != nil {
		t.Fatalf("find %s: %v", number, err)
	}
	return a.Balance
}
