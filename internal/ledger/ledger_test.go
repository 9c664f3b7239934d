package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"

	"banking-ledger/internal/config"
	"banking-ledger/internal/model"
	"banking-ledger/internal/repository"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T, store *repository.MemoryStore, number string, balance string) {
	t.Helper()
	err := store.CreateAccount(context.Background(), &model.Account{
		AccountNumber:   number,
		AccountHolderID: uuid.New(),
		AccountType:     model.AccountTypeChecking,
		Balance:         dec(balance),
		Status:          model.AccountStatusActive,
		CreatedBy:       uuid.New(),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", number, err)
	}
}

func newLedger(store Store) *Ledger {
	logger, _ := test.NewNullLogger()
	return New(store, config.DefaultRules(), logger)
}

func balanceOf(t *testing.T, l *Ledger, number string) decimal.Decimal {
	t.Helper()
	b, err := l.CheckBalance(context.Background(), number)
	if err != nil {
		t.Fatalf("check balance %s: %v", number, err)
	}
	return b
}

func TestWithdrawAndDeposit(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "A", "1000")
	l := newLedger(store)
	ctx := context.Background()

	acc, err := l.Withdraw(ctx, "A", dec("250.50"))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !acc.Balance.Equal(dec("749.50")) {
		t.Fatalf("balance = %s, want 749.50", acc.Balance)
	}
	if !acc.DailyStats.Withdrawal.Equal(dec("250.50")) {
		t.Fatalf("daily withdrawal = %s", acc.DailyStats.Withdrawal)
	}

	acc, err = l.Deposit(ctx, "A", dec("100"))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !acc.Balance.Equal(dec("849.50")) || !acc.DailyStats.Deposit.Equal(dec("100")) {
		t.Fatalf("unexpected account after deposit: %+v", acc)
	}
}

func TestWithdrawFailures(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seed(t, store, "A", "100")
	seed(t, store, "FROZEN", "1000")
	if err := store.SetStatus(ctx, "FROZEN", model.AccountStatusInactive); err != nil {
		t.Fatal(err)
	}
	l := newLedger(store)

	tests := []struct {
		name    string
		account string
		amount  string
		want    error
	}{
		{"insufficient", "A", "500", model.ErrInsufficientFunds},
		{"missing", "NOPE", "10", model.ErrAccountNotFound},
		{"inactive", "FROZEN", "10", model.ErrAccountNotActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Withdraw(ctx, tt.account, dec(tt.amount))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if model.Classify(err) != model.OutcomeRejected {
				t.Fatalf("outcome = %s, want rejected", model.Classify(err))
			}
		})
	}

	if got := balanceOf(t, l, "A"); !got.Equal(dec("100")) {
		t.Fatalf("balance changed after failed withdraw: %s", got)
	}
}

func TestDepositUpToMaxBalance(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "A", "1000")
	rules := config.DefaultRules()
	rules.Deposit.DailyLimit = dec("100000000")
	logger, _ := test.NewNullLogger()
	l := New(store, rules, logger)
	ctx := context.Background()

	acc, err := l.Deposit(ctx, "A", dec("49999000"))
	if err != nil {
		t.Fatalf("deposit to cap: %v", err)
	}
	if !acc.Balance.Equal(rules.MaxBalance) {
		t.Fatalf("balance = %s, want %s", acc.Balance, rules.MaxBalance)
	}

	if _, err := l.Deposit(ctx, "A", dec("1")); !errors.Is(err, model.ErrMaxBalanceExceeded) {
		t.Fatalf("err = %v, want max balance exceeded", err)
	}
}

func TestDepositDailyLimit(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "A", "0")
	rules := config.DefaultRules()
	rules.Deposit.DailyLimit = dec("300")
	logger, _ := test.NewNullLogger()
	l := New(store, rules, logger)
	ctx := context.Background()

	if _, err := l.Deposit(ctx, "A", dec("200")); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if _, err := l.Deposit(ctx, "A", dec("200")); !errors.Is(err, model.ErrDailyLimitExceeded) {
		t.Fatalf("err = %v, want daily limit", err)
	}

	n, err := l.ResetDailyStats(ctx)
	if err != nil || n != 1 {
		t.Fatalf("reset = %d, %v", n, err)
	}
	if _, err := l.Deposit(ctx, "A", dec("200")); err != nil {
		t.Fatalf("deposit after reset: %v", err)
	}
}

func TestTransferMovesFundsAndCounters(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "A", "1000")
	seed(t, store, "B", "1000")
	l := newLedger(store)

	res := l.Transfer(context.Background(), "A", "B", dec("500"))
	if !res.OK() {
		t.Fatalf("transfer failed: %v / %v", res.WithdrawErr, res.DepositErr)
	}
	if !res.Withdrawn.Balance.Equal(dec("500")) || !res.Deposited.Balance.Equal(dec("1500")) {
		t.Fatalf("balances = %s / %s", res.Withdrawn.Balance, res.Deposited.Balance)
	}
	if !res.Withdrawn.DailyStats.Transfer.Equal(dec("500")) {
		t.Fatalf("source transfer counter = %s", res.Withdrawn.DailyStats.Transfer)
	}
	if !res.Deposited.DailyStats.Deposit.Equal(dec("500")) {
		t.Fatalf("destination deposit counter = %s", res.Deposited.DailyStats.Deposit)
	}
}

func TestTransferSkipsDepositWhenWithdrawFails(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "A", "100")
	seed(t, store, "B", "1000")
	l := newLedger(store)

	res := l.Transfer(context.Background(), "A", "B", dec("500"))
	if !errors.Is(res.WithdrawErr, model.ErrInsufficientFunds) {
		t.Fatalf("withdraw err = %v", res.WithdrawErr)
	}
	if res.Deposited != nil || res.DepositErr != nil {
		t.Fatalf("deposit leg must not run: %+v", res)
	}
	if got := balanceOf(t, l, "B"); !got.Equal(dec("1000")) {
		t.Fatalf("destination balance = %s", got)
	}
}

func TestCompensateRestoresSource(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seed(t, store, "A", "1000")
	seed(t, store, "B", "49999800")
	l := newLedger(store)

	res := l.Transfer(ctx, "A", "B", dec("500"))
	if res.WithdrawErr != nil {
		t.Fatalf("withdraw: %v", res.WithdrawErr)
	}
	if !errors.Is(res.DepositErr, model.ErrMaxBalanceExceeded) {
		t.Fatalf("deposit err = %v", res.DepositErr)
	}

	// Счет источника успели заморозить, возврат все равно проходит
	if err := store.SetStatus(ctx, "A", model.AccountStatusInactive); err != nil {
		t.Fatal(err)
	}
	acc, err := l.Compensate(ctx, "A", dec("500"))
	if err != nil {
		t.Fatalf("compensate: %v", err)
	}
	if !acc.Balance.Equal(dec("1000")) {
		t.Fatalf("balance = %s, want 1000", acc.Balance)
	}
	if !acc.DailyStats.Transfer.IsZero() {
		t.Fatalf("transfer counter = %s, want 0", acc.DailyStats.Transfer)
	}
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "A", "1000")
	l := newLedger(store)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Withdraw(context.Background(), "A", dec("600"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, model.ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || rejected != 1 {
		t.Fatalf("succeeded=%d rejected=%d, want 1/1", succeeded, rejected)
	}
	if got := balanceOf(t, l, "A"); !got.Equal(dec("400")) {
		t.Fatalf("balance = %s, want 400", got)
	}
}

func TestConcurrentWithdrawalsBoundedByBalance(t *testing.T) {
	store := repository.NewMemoryStore()
	seed(t, store, "A", "1000")
	rules := config.DefaultRules()
	rules.Withdrawal.DailyLimit = dec("1000000")
	logger, _ := test.NewNullLogger()
	l := New(store, rules, logger)

	const workers = 50
	amount := dec("70")
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Withdraw(context.Background(), "A", amount); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// floor(1000/70) = 14
	if succeeded != 14 {
		t.Fatalf("succeeded = %d, want 14", succeeded)
	}
	got := balanceOf(t, l, "A")
	if got.IsNegative() || !got.Equal(dec("20")) {
		t.Fatalf("balance = %s, want 20", got)
	}
}

type failingStore struct {
	*repository.MemoryStore
	err error
}

func (s failingStore) ConditionalUpdate(context.Context, string, repository.BalanceUpdate) (*model.Account, error) {
	return nil, s.err
}

func TestStoreFaultIsNotRejection(t *testing.T) {
	store := failingStore{MemoryStore: repository.NewMemoryStore(), err: errors.New("connection reset")}
	seed(t, store.MemoryStore, "A", "1000")
	l := newLedger(store)

	_, err := l.Withdraw(context.Background(), "A", dec("10"))
	if model.Classify(err) != model.OutcomeFault {
		t.Fatalf("outcome = %s, want fault (err=%v)", model.Classify(err), err)
	}
}
