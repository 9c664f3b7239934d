package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeSavings  AccountType = "Savings"  // сберегательный счет
	AccountTypeChecking AccountType = "Checking" // расчетный счет
)

func (t AccountType) Valid() bool {
	return t == AccountTypeSavings || t == AccountTypeChecking
}

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "Active"
	AccountStatusInactive AccountStatus = "Inactive"
	AccountStatusClosed   AccountStatus = "Closed"
)

func (s AccountStatus) Valid() bool {
	return s == AccountStatusActive || s == AccountStatusInactive || s == AccountStatusClosed
}

// DailyCounter указывает, какой из дневных счетчиков изменяется вместе с балансом
type DailyCounter string

const (
	CounterNone       DailyCounter = ""
	CounterDeposit    DailyCounter = "deposit"
	CounterWithdrawal DailyCounter = "withdrawal"
	CounterTransfer   DailyCounter = "transfer"
)

// DailyStats - суммы операций по счету за текущие сутки, обнуляются по расписанию
type DailyStats struct {
	Deposit    decimal.Decimal `json:"deposit" db:"daily_deposit"`
	Withdrawal decimal.Decimal `json:"withdrawal" db:"daily_withdrawal"`
	Transfer   decimal.Decimal `json:"transfer" db:"daily_transfer"`
}

// Get возвращает значение указанного счетчика
func (s DailyStats) Get(c DailyCounter) decimal.Decimal {
	switch c {
	case CounterDeposit:
		return s.Deposit
	case CounterWithdrawal:
		return s.Withdrawal
	case CounterTransfer:
		return s.Transfer
	}
	return decimal.Zero
}

// Add прибавляет delta к указанному счетчику
func (s *DailyStats) Add(c DailyCounter, delta decimal.Decimal) {
	switch c {
	case CounterDeposit:
		s.Deposit = s.Deposit.Add(delta)
	case CounterWithdrawal:
		s.Withdrawal = s.Withdrawal.Add(delta)
	case CounterTransfer:
		s.Transfer = s.Transfer.Add(delta)
	}
}

type Account struct {
	AccountNumber   string          `json:"account_number" db:"account_number"`
	AccountHolderID uuid.UUID       `json:"account_holder_id" db:"account_holder_id"`
	AccountType     AccountType     `json:"account_type" db:"account_type"`
	Balance         decimal.Decimal `json:"balance" db:"balance"`
	Status          AccountStatus   `json:"status" db:"status"`
	DailyStats      DailyStats      `json:"daily_stats"`
	CreatedBy       uuid.UUID       `json:"created_by" db:"created_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

type CreateAccountRequest struct {
	AccountHolderID uuid.UUID       `json:"account_holder_id" validate:"required"`
	AccountType     AccountType     `json:"account_type" validate:"required,oneof=Savings Checking"`
	Balance         decimal.Decimal `json:"balance"`
}

// UpdateAccountStatusRequest - заморозка, разморозка или закрытие счета администратором
type UpdateAccountStatusRequest struct {
	Status AccountStatus `json:"status" validate:"required,oneof=Active Inactive Closed"`
}

// AccountSummary - представление счета для владельца, без служебных полей
type AccountSummary struct {
	AccountNumber   string          `json:"account_number"`
	AccountHolderID uuid.UUID       `json:"account_holder_id"`
	AccountType     AccountType     `json:"account_type"`
	Balance         decimal.Decimal `json:"balance"`
	Status          AccountStatus   `json:"status"`
}

func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		AccountNumber:   a.AccountNumber,
		AccountHolderID: a.AccountHolderID,
		AccountType:     a.AccountType,
		Balance:         a.Balance,
		Status:          a.Status,
	}
}
