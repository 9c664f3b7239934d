package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"banking-ledger/internal/model"
)

type TransactionRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewTransactionRepository(db *sql.DB, logger *logrus.Logger) *TransactionRepository {
	return &TransactionRepository{db: db, logger: logger}
}

func (r *TransactionRepository) InsertTransaction(ctx context.Context, transaction *model.Transaction) error {
	r.logger.WithFields(logrus.Fields{
		"transaction_id": transaction.ID,
		"account_number": transaction.AccountNumber,
		"amount":         transaction.Amount,
		"type":           transaction.TransactionType,
		"status":         transaction.Status,
	}).Debug("Сохранение записи о транзакции")

	query := `
        INSERT INTO transactions (id, account_number, transaction_type, amount, to_account,
            description, status, system_reason, initiated_by, transaction_date, fingerprint)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9, $10, $11)
    `

	_, err := r.db.ExecContext(
		ctx,
		query,
		transaction.ID,
		transaction.AccountNumber,
		transaction.TransactionType,
		transaction.Amount.String(),
		transaction.ToAccount,
		transaction.Description,
		transaction.Status,
		transaction.SystemReason,
		transaction.InitiatedBy,
		transaction.TransactionDate,
		transaction.Fingerprint,
	)

	if err != nil {
		r.logger.WithError(err).Error("Ошибка при сохранении записи о транзакции")
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// ListTransactions возвращает операции, где счет является источником или получателем
func (r *TransactionRepository) ListTransactions(ctx context.Context, accountNumber string) ([]model.Transaction, error) {
	const query = `SELECT id, account_number, transaction_type, amount, COALESCE(to_account, ''),
                         COALESCE(description, ''), status, COALESCE(system_reason, ''),
                         initiated_by, transaction_date, fingerprint
                  FROM transactions
                  WHERE account_number = $1 OR to_account = $1
                  ORDER BY transaction_date DESC`

	rows, err := r.db.QueryContext(ctx, query, accountNumber)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"error":          err.Error(),
			"account_number": accountNumber,
		}).Error("Ошибка запроса транзакций")
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.AccountNumber,
			&tx.TransactionType,
			&tx.Amount,
			&tx.ToAccount,
			&tx.Description,
			&tx.Status,
			&tx.SystemReason,
			&tx.InitiatedBy,
			&tx.TransactionDate,
			&tx.Fingerprint,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	r.logger.WithField("count", len(transactions)).Debug("Транзакции успешно получены")
	return transactions, nil
}
