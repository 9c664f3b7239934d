package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/model"
)

const accountColumns = `account_number, account_holder_id, account_type, balance, status,
		daily_deposit, daily_withdrawal, daily_transfer, created_by, created_at, updated_at`

type AccountRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewAccountRepository(db *sql.DB, logger *logrus.Logger) *AccountRepository {
	return &AccountRepository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var account model.Account
	err := row.Scan(
		&account.AccountNumber,
		&account.AccountHolderID,
		&account.AccountType,
		&account.Balance,
		&account.Status,
		&account.DailyStats.Deposit,
		&account.DailyStats.Withdrawal,
		&account.DailyStats.Transfer,
		&account.CreatedBy,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) CreateAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (account_number, account_holder_id, account_type, balance, status,
			daily_deposit, daily_withdrawal, daily_transfer, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, 0, 0, 0, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		account.AccountNumber,
		account.AccountHolderID,
		account.AccountType,
		account.Balance,
		account.Status,
		account.CreatedBy,
		account.CreatedAt,
		account.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateAccountNumber
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func (r *AccountRepository) FindAccount(ctx context.Context, accountNumber string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, accountNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) ListAccountsByHolder(ctx context.Context, holderID uuid.UUID) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_holder_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, holderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// ConditionalUpdate изменяет баланс и дневной счетчик одним UPDATE с предикатом в WHERE.
// Между проверкой и записью нет окна: конкурирующие UPDATE по той же строке
// сериализуются блокировкой строки, и второй видит уже новый баланс.
func (r *AccountRepository) ConditionalUpdate(ctx context.Context, accountNumber string, upd BalanceUpdate) (*model.Account, error) {
	args := []any{accountNumber, upd.Delta, upd.Floor, upd.Ceiling}
	set := []string{"balance = balance + $2::numeric", "updated_at = NOW()"}
	where := []string{
		"account_number = $1",
		"balance + $2::numeric >= $3::numeric",
		"balance + $2::numeric <= $4::numeric",
	}
	if upd.RequireActive {
		args = append(args, model.AccountStatusActive)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if col, ok := counterColumns[upd.Counter]; ok {
		args = append(args, upd.CounterDelta)
		deltaArg := len(args)
		set = append(set, fmt.Sprintf("%s = GREATEST(%s + $%d::numeric, 0)", col, col, deltaArg))
		if upd.CounterLimit != nil {
			args = append(args, *upd.CounterLimit)
			where = append(where, fmt.Sprintf("%s + $%d::numeric <= $%d::numeric", col, deltaArg, len(args)))
		}
	}

	query := `UPDATE accounts SET ` + strings.Join(set, ", ") +
		` WHERE ` + strings.Join(where, " AND ") +
		` RETURNING ` + accountColumns

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConditionFailed
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "check_violation" {
			r.logger.WithFields(logrus.Fields{
				"account_number": accountNumber,
				"constraint":     pqErr.Constraint,
			}).Warn("Условное обновление отклонено ограничением таблицы")
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	return account, nil
}

// ResetDailyStats обнуляет дневные счетчики всех счетов
func (r *AccountRepository) ResetDailyStats(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET daily_deposit = 0, daily_withdrawal = 0, daily_transfer = 0, updated_at = NOW()
		WHERE daily_deposit <> 0 OR daily_withdrawal <> 0 OR daily_transfer <> 0
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset daily stats: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// SetStatus меняет статус счета; закрытие и заморозка выполняются администратором
func (r *AccountRepository) SetStatus(ctx context.Context, accountNumber string, status model.AccountStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET status = $1, updated_at = NOW() WHERE account_number = $2`,
		status, accountNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
