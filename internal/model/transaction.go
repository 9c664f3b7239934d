package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "transfer"   // перевод между счетами
	TransactionTypeDeposit    TransactionType = "deposit"    // пополнение счета
	TransactionTypeWithdrawal TransactionType = "withdrawal" // вывод средств со счета
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypeDeposit, TransactionTypeWithdrawal:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusSuccessful TransactionStatus = "successful"
	TransactionStatusFailed     TransactionStatus = "failed"
)

var ErrTransactionFinalized = errors.New("transaction status is already final")

// Transaction - запись о попытке операции. Сохраняется ровно один раз,
// и для успешных, и для неуспешных попыток.
type Transaction struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	AccountNumber   string            `json:"account_number" db:"account_number"`
	TransactionType TransactionType   `json:"transaction_type" db:"transaction_type"`
	Amount          decimal.Decimal   `json:"amount" db:"amount"`
	ToAccount       string            `json:"to_account,omitempty" db:"to_account"`
	Description     string            `json:"description,omitempty" db:"description"`
	Status          TransactionStatus `json:"status" db:"status"`
	SystemReason    string            `json:"-" db:"system_reason"`
	InitiatedBy     uuid.UUID         `json:"-" db:"initiated_by"`
	TransactionDate time.Time         `json:"transaction_date" db:"transaction_date"`
	Fingerprint     string            `json:"-" db:"fingerprint"`
}

// NewTransaction создает запись в статусе pending для входящего запроса
func NewTransaction(req TransactionRequest) *Transaction {
	return &Transaction{
		ID:              uuid.New(),
		AccountNumber:   req.AccountNumber,
		TransactionType: req.Type,
		Amount:          req.Amount,
		ToAccount:       req.ToAccount,
		Description:     req.Description,
		Status:          TransactionStatusPending,
		InitiatedBy:     req.ActingUserID,
	}
}

// Finalize переводит запись из pending в конечный статус.
// Повторная финализация запрещена.
func (t *Transaction) Finalize(status TransactionStatus, systemReason string) error {
	if t.Status != TransactionStatusPending && t.Status != "" {
		return fmt.Errorf("%w: %s", ErrTransactionFinalized, t.Status)
	}
	if status != TransactionStatusSuccessful && status != TransactionStatusFailed {
		return fmt.Errorf("invalid final status %q", status)
	}
	t.Status = status
	t.SystemReason = systemReason
	return nil
}

// TransactionRequest - намерение клиента выполнить операцию
type TransactionRequest struct {
	Type          TransactionType `json:"-"`
	AccountNumber string          `json:"account_number"`
	ToAccount     string          `json:"to_account,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	ActingUserID  uuid.UUID       `json:"-"`
}

// Result - итог обработки операции, возвращаемый вызывающему коду
type Result struct {
	TransactionID          uuid.UUID         `json:"transaction_id"`
	Status                 TransactionStatus `json:"status"`
	ClientMessage          string            `json:"message"`
	Unprocessable          bool              `json:"-"`
	ReconciliationRequired bool              `json:"-"`
	AuditGap               bool              `json:"-"`
}
