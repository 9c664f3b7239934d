package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"banking-ledger/internal/model"
)

// accountRow хранит суммы в копейках, чтобы арифметика в SQLite была целочисленной
type accountRow struct {
	AccountNumber   string `gorm:"primaryKey;size:32"`
	AccountHolderID string `gorm:"index;size:36;not null"`
	AccountType     string `gorm:"size:16;not null"`
	Balance         int64  `gorm:"not null;check:balance >= 0"`
	Status          string `gorm:"size:16;not null;default:Active"`
	DailyDeposit    int64  `gorm:"not null;default:0"`
	DailyWithdrawal int64  `gorm:"not null;default:0"`
	DailyTransfer   int64  `gorm:"not null;default:0"`
	CreatedBy       string `gorm:"size:36;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (accountRow) TableName() string { return "accounts" }

// transactionRow хранит сумму строкой: отклоненная попытка может нести
// сумму, которая не помещается в копейки int64
type transactionRow struct {
	ID              string `gorm:"primaryKey;size:36"`
	AccountNumber   string `gorm:"index;not null"`
	TransactionType string `gorm:"not null"`
	Amount          string `gorm:"not null"`
	ToAccount       string `gorm:"index"`
	Description     string
	Status          string `gorm:"size:16;not null"`
	SystemReason    string
	InitiatedBy     string    `gorm:"size:36"`
	TransactionDate time.Time `gorm:"index;not null"`
	Fingerprint     string    `gorm:"size:64;not null"`
}

func (transactionRow) TableName() string { return "transactions" }

func toMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func (r *accountRow) toModel() *model.Account {
	holder, _ := uuid.Parse(r.AccountHolderID)
	creator, _ := uuid.Parse(r.CreatedBy)
	return &model.Account{
		AccountNumber:   r.AccountNumber,
		AccountHolderID: holder,
		AccountType:     model.AccountType(r.AccountType),
		Balance:         fromMinor(r.Balance),
		Status:          model.AccountStatus(r.Status),
		DailyStats: model.DailyStats{
			Deposit:    fromMinor(r.DailyDeposit),
			Withdrawal: fromMinor(r.DailyWithdrawal),
			Transfer:   fromMinor(r.DailyTransfer),
		},
		CreatedBy: creator,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *transactionRow) toModel() (model.Transaction, error) {
	id, _ := uuid.Parse(r.ID)
	by, _ := uuid.Parse(r.InitiatedBy)
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("transaction %s: invalid amount %q: %w", r.ID, r.Amount, err)
	}
	return model.Transaction{
		ID:              id,
		AccountNumber:   r.AccountNumber,
		TransactionType: model.TransactionType(r.TransactionType),
		Amount:          amount,
		ToAccount:       r.ToAccount,
		Description:     r.Description,
		Status:          model.TransactionStatus(r.Status),
		SystemReason:    r.SystemReason,
		InitiatedBy:     by,
		TransactionDate: r.TransactionDate,
		Fingerprint:     r.Fingerprint,
	}, nil
}

// SQLiteStore - встраиваемое хранилище на gorm + SQLite.
// Одно соединение: SQLite все равно сериализует запись, а так не бывает "database is locked".
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&accountRow{}, &transactionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, account *model.Account) error {
	row := accountRow{
		AccountNumber:   account.AccountNumber,
		AccountHolderID: account.AccountHolderID.String(),
		AccountType:     string(account.AccountType),
		Balance:         toMinor(account.Balance),
		Status:          string(account.Status),
		CreatedBy:       account.CreatedBy.String(),
		CreatedAt:       account.CreatedAt,
		UpdatedAt:       account.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateAccountNumber
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindAccount(ctx context.Context, accountNumber string) (*model.Account, error) {
	var row accountRow
	err := s.db.WithContext(ctx).Where("account_number = ?", accountNumber).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return row.toModel(), nil
}

func (s *SQLiteStore) ListAccountsByHolder(ctx context.Context, holderID uuid.UUID) ([]model.Account, error) {
	var rows []accountRow
	err := s.db.WithContext(ctx).Where("account_holder_id = ?", holderID.String()).Order("created_at").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query user accounts: %w", err)
	}
	out := make([]model.Account, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toModel())
	}
	return out, nil
}

func (s *SQLiteStore) ConditionalUpdate(ctx context.Context, accountNumber string, upd BalanceUpdate) (*model.Account, error) {
	delta := toMinor(upd.Delta)
	var row accountRow

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&accountRow{}).
			Where("account_number = ?", accountNumber).
			Where("balance + ? >= ?", delta, toMinor(upd.Floor)).
			Where("balance + ? <= ?", delta, toMinor(upd.Ceiling))
		if upd.RequireActive {
			q = q.Where("status = ?", string(model.AccountStatusActive))
		}

		updates := map[string]any{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now(),
		}
		if col, ok := counterColumns[upd.Counter]; ok {
			counterDelta := toMinor(upd.CounterDelta)
			updates[col] = gorm.Expr("MAX("+col+" + ?, 0)", counterDelta)
			if upd.CounterLimit != nil {
				q = q.Where(col+" + ? <= ?", counterDelta, toMinor(*upd.CounterLimit))
			}
		}

		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConditionFailed
		}
		return tx.Where("account_number = ?", accountNumber).First(&row).Error
	})
	if err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return row.toModel(), nil
}

func (s *SQLiteStore) ResetDailyStats(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&accountRow{}).
		Where("daily_deposit <> 0 OR daily_withdrawal <> 0 OR daily_transfer <> 0").
		Updates(map[string]any{
			"daily_deposit":    0,
			"daily_withdrawal": 0,
			"daily_transfer":   0,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset daily stats: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *SQLiteStore) SetStatus(ctx context.Context, accountNumber string, status model.AccountStatus) error {
	res := s.db.WithContext(ctx).Model(&accountRow{}).
		Where("account_number = ?", accountNumber).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) InsertTransaction(ctx context.Context, transaction *model.Transaction) error {
	row := transactionRow{
		ID:              transaction.ID.String(),
		AccountNumber:   transaction.AccountNumber,
		TransactionType: string(transaction.TransactionType),
		Amount:          transaction.Amount.String(),
		ToAccount:       transaction.ToAccount,
		Description:     transaction.Description,
		Status:          string(transaction.Status),
		SystemReason:    transaction.SystemReason,
		InitiatedBy:     transaction.InitiatedBy.String(),
		TransactionDate: transaction.TransactionDate,
		Fingerprint:     transaction.Fingerprint,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, accountNumber string) ([]model.Transaction, error) {
	var rows []transactionRow
	err := s.db.WithContext(ctx).
		Where("account_number = ? OR to_account = ?", accountNumber, accountNumber).
		Order("transaction_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	out := make([]model.Transaction, 0, len(rows))
	for i := range rows {
		tx, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
