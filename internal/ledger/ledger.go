// Package ledger владеет балансами счетов. Любое изменение баланса - это одно
// условное обновление в хранилище: предикат (диапазон баланса, статус, дневной
// лимит) проверяется той же операцией, что и изменяет значение. Чтение с
// последующей записью здесь не используется нигде.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/config"
	"banking-ledger/internal/model"
	"banking-ledger/internal/repository"
)

// Store - операции хранилища, нужные леджеру
type Store interface {
	FindAccount(ctx context.Context, accountNumber string) (*model.Account, error)
	ConditionalUpdate(ctx context.Context, accountNumber string, upd repository.BalanceUpdate) (*model.Account, error)
	ResetDailyStats(ctx context.Context) (int64, error)
}

type Ledger struct {
	store  Store
	rules  config.Rules
	logger *logrus.Logger
}

func New(store Store, rules config.Rules, logger *logrus.Logger) *Ledger {
	return &Ledger{store: store, rules: rules, logger: logger}
}

// TransferResult - результат двух ног перевода.
// DepositErr имеет смысл только если WithdrawErr == nil.
type TransferResult struct {
	Withdrawn   *model.Account
	Deposited   *model.Account
	WithdrawErr error
	DepositErr  error
}

// OK сообщает, что обе ноги выполнены
func (r TransferResult) OK() bool {
	return r.WithdrawErr == nil && r.DepositErr == nil
}

func limit(d decimal.Decimal) *decimal.Decimal { return &d }

func (l *Ledger) withdrawUpdate(amount decimal.Decimal, counter model.DailyCounter, rule config.AmountRule) repository.BalanceUpdate {
	return repository.BalanceUpdate{
		Delta:         amount.Neg(),
		Floor:         l.rules.MinBalance,
		Ceiling:       l.rules.MaxBalance,
		RequireActive: true,
		Counter:       counter,
		CounterDelta:  amount,
		CounterLimit:  limit(rule.DailyLimit),
	}
}

func (l *Ledger) depositUpdate(amount decimal.Decimal) repository.BalanceUpdate {
	return repository.BalanceUpdate{
		Delta:         amount,
		Floor:         l.rules.MinBalance,
		Ceiling:       l.rules.MaxBalance,
		RequireActive: true,
		Counter:       model.CounterDeposit,
		CounterDelta:  amount,
		CounterLimit:  limit(l.rules.Deposit.DailyLimit),
	}
}

// Withdraw списывает сумму, если баланс достаточен
func (l *Ledger) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal) (*model.Account, error) {
	return l.apply(ctx, accountNumber, l.withdrawUpdate(amount, model.CounterWithdrawal, l.rules.Withdrawal))
}

// Deposit зачисляет сумму, если баланс не превысит максимум
func (l *Ledger) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (*model.Account, error) {
	return l.apply(ctx, accountNumber, l.depositUpdate(amount))
}

// Transfer списывает с источника и только после успешного списания зачисляет получателю.
// Ноги не образуют одну транзакцию хранилища; откат выполняет вызывающий через Compensate.
func (l *Ledger) Transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal) TransferResult {
	var res TransferResult

	res.Withdrawn, res.WithdrawErr = l.apply(ctx, fromAccount, l.withdrawUpdate(amount, model.CounterTransfer, l.rules.Transfer))
	if res.WithdrawErr != nil {
		return res
	}

	res.Deposited, res.DepositErr = l.apply(ctx, toAccount, l.depositUpdate(amount))
	return res
}

// Compensate возвращает сумму на счет источника после неудачной второй ноги перевода
// и уменьшает его дневной счетчик переводов. Статус и дневные лимиты не проверяются:
// возврат должен пройти даже если счет успели заморозить. Проверяется только потолок баланса.
func (l *Ledger) Compensate(ctx context.Context, fromAccount string, amount decimal.Decimal) (*model.Account, error) {
	return l.apply(ctx, fromAccount, repository.BalanceUpdate{
		Delta:        amount,
		Floor:        l.rules.MinBalance,
		Ceiling:      l.rules.MaxBalance,
		Counter:      model.CounterTransfer,
		CounterDelta: amount.Neg(),
	})
}

// CheckBalance возвращает текущий баланс счета
func (l *Ledger) CheckBalance(ctx context.Context, accountNumber string) (decimal.Decimal, error) {
	account, err := l.store.FindAccount(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, model.ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to check balance: %w", err)
	}
	return account.Balance, nil
}

// ResetDailyStats обнуляет дневные счетчики всех счетов
func (l *Ledger) ResetDailyStats(ctx context.Context) (int64, error) {
	return l.store.ResetDailyStats(ctx)
}

func (l *Ledger) apply(ctx context.Context, accountNumber string, upd repository.BalanceUpdate) (*model.Account, error) {
	account, err := l.store.ConditionalUpdate(ctx, accountNumber, upd)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrConditionFailed) {
		return nil, fmt.Errorf("ledger update %s: %w", accountNumber, err)
	}
	return nil, l.classify(ctx, accountNumber, upd)
}

// classify перечитывает счет, чтобы назвать причину несовпадения предиката.
// Снимок может уже отличаться от момента обновления, поэтому результат только диагностический.
func (l *Ledger) classify(ctx context.Context, accountNumber string, upd repository.BalanceUpdate) error {
	account, err := l.store.FindAccount(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.ErrAccountNotFound
		}
		return fmt.Errorf("ledger classify %s: %w", accountNumber, err)
	}

	next := account.Balance.Add(upd.Delta)
	switch {
	case upd.RequireActive && !account.IsActive():
		return model.ErrAccountNotActive
	case next.LessThan(upd.Floor):
		return model.ErrInsufficientFunds
	case next.GreaterThan(upd.Ceiling):
		return model.ErrMaxBalanceExceeded
	case upd.CounterLimit != nil &&
		account.DailyStats.Get(upd.Counter).Add(upd.CounterDelta).GreaterThan(*upd.CounterLimit):
		return model.ErrDailyLimitExceeded
	}

	l.logger.WithFields(logrus.Fields{
		"account_number": accountNumber,
		"delta":          upd.Delta.String(),
	}).Warn("Условное обновление не применено, причина не определена")
	return model.ErrConcurrentModified
}
