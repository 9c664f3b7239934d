package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/config"
	"banking-ledger/internal/model"
	"banking-ledger/internal/repository"
)

// TransactionValidator проверяет операцию до изменения балансов.
// Ничего не пишет: при неизменном состоянии повторный вызов дает тот же результат.
// Возвращает nil, *model.Rejection при отказе или любую другую ошибку при сбое хранилища.
// Проверки идут в фиксированном порядке, срабатывает первая не прошедшая.
type TransactionValidator struct {
	accounts AccountFinder
	rules    config.Rules
}

func NewTransactionValidator(accounts AccountFinder, rules config.Rules) *TransactionValidator {
	return &TransactionValidator{accounts: accounts, rules: rules}
}

func (v *TransactionValidator) Validate(ctx context.Context, req model.TransactionRequest) error {
	if err := v.checkStructure(req); err != nil {
		return err
	}

	source, err := v.find(ctx, req.AccountNumber)
	if err != nil {
		return err
	}
	if source == nil {
		return model.RejectSourceNotFound
	}
	if req.ActingUserID != uuid.Nil && source.AccountHolderID != req.ActingUserID {
		return model.RejectNotAccountHolder
	}

	switch req.Type {
	case model.TransactionTypeTransfer:
		return v.checkTransfer(ctx, source, req)
	case model.TransactionTypeWithdrawal:
		return v.checkWithdrawal(source, req.Amount)
	default:
		return v.checkDeposit(source, req.Amount)
	}
}

func (v *TransactionValidator) checkStructure(req model.TransactionRequest) error {
	if !req.Type.Valid() {
		return model.RejectInvalidType
	}
	if !req.Amount.IsPositive() || !hasCents(req.Amount) {
		return model.RejectInvalidAmount
	}

	switch req.Type {
	case model.TransactionTypeTransfer:
		if !v.rules.Transfer.InRange(req.Amount) {
			return model.RejectTransferAmountRange
		}
	case model.TransactionTypeDeposit:
		if !v.rules.Deposit.InRange(req.Amount) {
			return model.RejectDepositAmountRange
		}
	case model.TransactionTypeWithdrawal:
		if !v.rules.Withdrawal.InRange(req.Amount) {
			return model.RejectWithdrawalAmountRange
		}
	}

	if utf8.RuneCountInString(req.Description) > v.rules.DescriptionMaxLength {
		return model.RejectDescriptionTooLong
	}

	if req.Type == model.TransactionTypeTransfer && req.ToAccount == "" {
		return model.RejectMissingDestination
	}
	if req.Type != model.TransactionTypeTransfer && req.ToAccount != "" {
		return model.RejectUnexpectedDestination
	}
	return nil
}

func (v *TransactionValidator) checkTransfer(ctx context.Context, source *model.Account, req model.TransactionRequest) error {
	destination, err := v.find(ctx, req.ToAccount)
	if err != nil {
		return err
	}
	if destination == nil {
		return model.RejectDestinationNotFound
	}
	if source.AccountNumber == destination.AccountNumber {
		return model.RejectSameAccount
	}

	amount := req.Amount
	switch {
	case source.Balance.Sub(amount).LessThan(v.rules.MinBalance):
		return model.RejectInsufficientBalance
	case destination.Balance.Add(amount).GreaterThan(v.rules.MaxBalance):
		return model.RejectDestinationMaxBalance
	case !source.IsActive():
		return model.RejectSourceInactive
	case !destination.IsActive():
		return model.RejectDestinationInactive
	case exceeds(source.DailyStats.Transfer, amount, v.rules.Transfer.DailyLimit):
		return model.RejectTransferDailyLimit
	case exceeds(destination.DailyStats.Deposit, amount, v.rules.Deposit.DailyLimit):
		return model.RejectDestinationDepositDailyLimit
	case source.AccountHolderID == destination.AccountHolderID:
		return model.RejectSameHolder
	}
	return nil
}

func (v *TransactionValidator) checkWithdrawal(account *model.Account, amount decimal.Decimal) error {
	switch {
	case account.Balance.Sub(amount).LessThan(v.rules.MinBalance):
		return model.RejectInsufficientBalance
	case !account.IsActive():
		return model.RejectSourceInactive
	case exceeds(account.DailyStats.Withdrawal, amount, v.rules.Withdrawal.DailyLimit):
		return model.RejectWithdrawalDailyLimit
	}
	return nil
}

func (v *TransactionValidator) checkDeposit(account *model.Account, amount decimal.Decimal) error {
	switch {
	case account.Balance.Add(amount).GreaterThan(v.rules.MaxBalance):
		return model.RejectMaxBalance
	case !account.IsActive():
		return model.RejectSourceInactive
	case exceeds(account.DailyStats.Deposit, amount, v.rules.Deposit.DailyLimit):
		return model.RejectDepositDailyLimit
	}
	return nil
}

// find возвращает nil без ошибки, если счета нет
func (v *TransactionValidator) find(ctx context.Context, accountNumber string) (*model.Account, error) {
	account, err := v.accounts.FindAccount(ctx, accountNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("validator: failed to load account %s: %w", accountNumber, err)
	}
	return account, nil
}

func exceeds(counter, amount, limit decimal.Decimal) bool {
	return counter.Add(amount).GreaterThan(limit)
}
