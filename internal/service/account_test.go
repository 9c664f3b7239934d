package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"

	"banking-ledger/internal/config"
	"banking-ledger/internal/model"
	"banking-ledger/internal/repository"
)

// sequenceGenerator выдает номера по списку, затем повторяет последний
type sequenceGenerator struct {
	numbers []string
	calls   int
}

func (g *sequenceGenerator) Generate() (string, error) {
	i := g.calls
	if i >= len(g.numbers) {
		i = len(g.numbers) - 1
	}
	g.calls++
	return g.numbers[i], nil
}

func newAccountService(store AccountStore, gen NumberGenerator) (*AccountService, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return NewAccountService(store, gen, config.DefaultRules(), logger), hook
}

func TestCreateAccountRetriesOnCollision(t *testing.T) {
	store := repository.NewMemoryStore()
	taken := []string{"9130000000000001", "9130000000000002", "9130000000000003", "9130000000000004"}
	for _, n := range taken {
		seedAccount(t, store, n, uuid.New(), "0")
	}
	gen := &sequenceGenerator{numbers: append(append([]string{}, taken...), "9130000000000005")}
	svc, hook := newAccountService(store, gen)

	holder := uuid.New()
	account, err := svc.CreateAccount(context.Background(), model.CreateAccountRequest{
		AccountHolderID: holder,
		AccountType:     model.AccountTypeSavings,
		Balance:         dec("250.00"),
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if account.AccountNumber != "9130000000000005" || gen.calls != 5 {
		t.Fatalf("number = %s after %d calls", account.AccountNumber, gen.calls)
	}
	if account.Status != model.AccountStatusActive || !account.Balance.Equal(dec("250")) {
		t.Fatalf("unexpected account: %+v", account)
	}
	if n := len(eventEntries(hook, EventAccountNumberDuplicate)); n != 4 {
		t.Fatalf("duplicate events = %d, want 4", n)
	}
}

func TestCreateAccountGenerationExhausted(t *testing.T) {
	store := repository.NewMemoryStore()
	seedAccount(t, store, "9130000000000001", uuid.New(), "0")
	gen := &sequenceGenerator{numbers: []string{"9130000000000001"}}
	svc, hook := newAccountService(store, gen)

	_, err := svc.CreateAccount(context.Background(), model.CreateAccountRequest{
		AccountHolderID: uuid.New(),
		AccountType:     model.AccountTypeChecking,
		Balance:         dec("0"),
	}, uuid.New())
	if !errors.Is(err, model.ErrAccountGenerationFailed) {
		t.Fatalf("err = %v, want generation failed", err)
	}
	if model.Classify(err) != model.OutcomeFault {
		t.Fatal("generation exhaustion must be a fault, not a rejection")
	}
	if gen.calls != 5 {
		t.Fatalf("attempts = %d, want 5", gen.calls)
	}
	if len(eventEntries(hook, EventAccountGenerationFailed)) != 1 {
		t.Fatal("expected ACCOUNT_GENERATION_FAILED event")
	}
}

func TestCreateAccountRespectsDeadline(t *testing.T) {
	store := repository.NewMemoryStore()
	gen := &sequenceGenerator{numbers: []string{"9130000000000001"}}
	svc, _ := newAccountService(store, gen)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := svc.CreateAccount(ctx, model.CreateAccountRequest{
		AccountHolderID: uuid.New(),
		AccountType:     model.AccountTypeChecking,
		Balance:         dec("0"),
	}, uuid.New())
	if !errors.Is(err, model.ErrAccountGenerationFailed) {
		t.Fatalf("err = %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times after deadline", gen.calls)
	}
}

func TestCreateAccountRejections(t *testing.T) {
	svc, _ := newAccountService(repository.NewMemoryStore(), &sequenceGenerator{numbers: []string{"9130000000000001"}})
	holder := uuid.New()

	tests := []struct {
		name      string
		req       model.CreateAccountRequest
		createdBy uuid.UUID
		want      *model.Rejection
	}{
		{"no holder", model.CreateAccountRequest{AccountType: model.AccountTypeSavings}, holder, model.RejectMissingAccountHolder},
		{"no creator", model.CreateAccountRequest{AccountHolderID: holder, AccountType: model.AccountTypeSavings}, uuid.Nil, model.RejectMissingAccountHolder},
		{"bad type", model.CreateAccountRequest{AccountHolderID: holder, AccountType: "Brokerage"}, holder, model.RejectInvalidAccountType},
		{"negative balance", model.CreateAccountRequest{AccountHolderID: holder, AccountType: model.AccountTypeSavings, Balance: dec("-1")}, holder, model.RejectInitialBalanceRange},
		{"over cap", model.CreateAccountRequest{AccountHolderID: holder, AccountType: model.AccountTypeSavings, Balance: dec("50000000.01")}, holder, model.RejectInitialBalanceRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAccount(context.Background(), tt.req, tt.createdBy)
			if rej, ok := model.AsRejection(err); !ok || rej != tt.want {
				t.Fatalf("err = %v, want %s", err, tt.want.Code)
			}
		})
	}
}

func TestGetAccountBalanceChecksOwner(t *testing.T) {
	store := repository.NewMemoryStore()
	alice := uuid.New()
	seedAccount(t, store, "A", alice, "123.45")
	svc, _ := newAccountService(store, NewAccountNumberGenerator(config.DefaultRules()))
	ctx := context.Background()

	b, err := svc.GetAccountBalance(ctx, "A", alice)
	if err != nil || !b.Equal(dec("123.45")) {
		t.Fatalf("balance = %s, %v", b, err)
	}
	if _, err := svc.GetAccountBalance(ctx, "A", uuid.New()); !errors.Is(err, model.RejectNotAccountHolder) {
		t.Fatalf("err = %v, want not holder", err)
	}
	if _, err := svc.GetAccountBalance(ctx, "NOPE", alice); !errors.Is(err, model.ErrAccountNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}

	accounts, err := svc.GetUserAccounts(ctx, alice)
	if err != nil || len(accounts) != 1 || accounts[0].AccountNumber != "A" {
		t.Fatalf("accounts = %+v, %v", accounts, err)
	}
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedAccount(t, store, "9130000000000001", uuid.New(), "100")
	svc, hook := newAccountService(store, &sequenceGenerator{numbers: []string{"unused"}})
	admin := uuid.New()

	account, err := svc.SetStatus(ctx, "9130000000000001", model.AccountStatusInactive, admin)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if account.Status != model.AccountStatusInactive || account.IsActive() {
		t.Fatalf("account = %+v", account)
	}
	stored, _ := store.FindAccount(ctx, "9130000000000001")
	if stored.Status != model.AccountStatusInactive {
		t.Fatalf("stored status = %s", stored.Status)
	}
	if entries := eventEntries(hook, EventAccountStatusChanged); len(entries) != 1 || entries[0].Data["updated_by"] != admin {
		t.Fatalf("status change not logged: %v", entries)
	}

	if _, err := svc.SetStatus(ctx, "9130000000000001", model.AccountStatus("Frozen"), admin); err != model.RejectInvalidAccountStatus {
		t.Fatalf("err = %v, want invalid status", err)
	}
	if _, err := svc.SetStatus(ctx, "0000000000000000", model.AccountStatusClosed, admin); !errors.Is(err, model.ErrAccountNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
