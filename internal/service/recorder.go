package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/model"
)

// TransactionStore - журнал попыток операций
type TransactionStore interface {
	InsertTransaction(ctx context.Context, transaction *model.Transaction) error
	ListTransactions(ctx context.Context, accountNumber string) ([]model.Transaction, error)
}

// Recorder сохраняет итог каждой попытки операции, успешной или нет
type Recorder struct {
	transactions TransactionStore
	accounts     AccountFinder
	logger       *logrus.Logger
	now          func() time.Time
}

func NewRecorder(transactions TransactionStore, accounts AccountFinder, logger *logrus.Logger) *Recorder {
	return &Recorder{
		transactions: transactions,
		accounts:     accounts,
		logger:       logger,
		now:          time.Now,
	}
}

// RecordTransaction фиксирует конечный статус, время записи и отпечаток, затем сохраняет запись.
// Запись, уже получившая конечный статус, повторно не сохраняется.
func (r *Recorder) RecordTransaction(ctx context.Context, tx *model.Transaction, status model.TransactionStatus, systemReason string) error {
	if err := tx.Finalize(status, systemReason); err != nil {
		return err
	}
	tx.TransactionDate = r.now().UTC()

	fingerprint, err := Fingerprint(tx)
	if err != nil {
		return err
	}
	tx.Fingerprint = fingerprint

	if err := r.transactions.InsertTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to record transaction %s: %w", tx.ID, err)
	}

	r.logger.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"status":         tx.Status,
	}).Debug("Транзакция записана в журнал")
	return nil
}

// fingerprintPayload - поля записи, входящие в отпечаток
type fingerprintPayload struct {
	ID              uuid.UUID `json:"id"`
	AccountNumber   string    `json:"account_number"`
	TransactionType string    `json:"transaction_type"`
	Amount          string    `json:"amount"`
	ToAccount       string    `json:"to_account"`
	Description     string    `json:"description"`
	Status          string    `json:"status"`
	SystemReason    string    `json:"system_reason"`
	InitiatedBy     uuid.UUID `json:"initiated_by"`
	TransactionDate string    `json:"transaction_date"`
}

// Fingerprint - SHA-256 от канонического JSON (RFC 8785) записи
func Fingerprint(tx *model.Transaction) (string, error) {
	raw, err := json.Marshal(fingerprintPayload{
		ID:              tx.ID,
		AccountNumber:   tx.AccountNumber,
		TransactionType: string(tx.TransactionType),
		Amount:          tx.Amount.StringFixed(2),
		ToAccount:       tx.ToAccount,
		Description:     tx.Description,
		Status:          string(tx.Status),
		SystemReason:    tx.SystemReason,
		InitiatedBy:     tx.InitiatedBy,
		TransactionDate: tx.TransactionDate.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize transaction: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// History возвращает операции по счету владельца, от новых к старым.
// Номера чужих счетов маскируются.
func (r *Recorder) History(ctx context.Context, accountNumber string, userID uuid.UUID) ([]model.Transaction, error) {
	if _, err := ownedAccount(ctx, r.accounts, accountNumber, userID); err != nil {
		return nil, err
	}

	transactions, err := r.transactions.ListTransactions(ctx, accountNumber)
	if err != nil {
		r.logger.WithError(err).WithField("account_number", accountNumber).Error("Ошибка получения истории операций")
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}

	for i := range transactions {
		if transactions[i].AccountNumber != accountNumber {
			transactions[i].AccountNumber = MaskAccountNumber(transactions[i].AccountNumber)
		}
		if transactions[i].ToAccount != accountNumber {
			transactions[i].ToAccount = MaskAccountNumber(transactions[i].ToAccount)
		}
	}
	return transactions, nil
}

// MaskAccountNumber оставляет видимыми последние четыре цифры
func MaskAccountNumber(number string) string {
	const visible = 4
	if len(number) <= visible {
		return number
	}
	return strings.Repeat("*", len(number)-visible) + number[len(number)-visible:]
}
