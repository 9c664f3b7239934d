package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/config"
	"banking-ledger/internal/model"
	"banking-ledger/internal/repository"
)

const (
	EventAccountNumberDuplicate  = "ACCOUNT_NUMBER_DUPLICATE"
	EventAccountGenerationFailed = "ACCOUNT_GENERATION_FAILED"
	EventAccountStatusChanged    = "ACCOUNT_STATUS_CHANGED"
)

// AccountFinder - чтение счета по номеру
type AccountFinder interface {
	FindAccount(ctx context.Context, accountNumber string) (*model.Account, error)
}

// AccountStore - операции хранилища для работы со счетами
type AccountStore interface {
	AccountFinder
	CreateAccount(ctx context.Context, account *model.Account) error
	ListAccountsByHolder(ctx context.Context, holderID uuid.UUID) ([]model.Account, error)
	SetStatus(ctx context.Context, accountNumber string, status model.AccountStatus) error
}

type AccountService struct {
	accounts  AccountStore
	generator NumberGenerator
	rules     config.Rules
	logger    *logrus.Logger
}

func NewAccountService(accounts AccountStore, generator NumberGenerator, rules config.Rules, logger *logrus.Logger) *AccountService {
	return &AccountService{
		accounts:  accounts,
		generator: generator,
		rules:     rules,
		logger:    logger,
	}
}

// CreateAccount открывает счет с начальным балансом. Номер генерируется заново
// при каждом совпадении с существующим, число попыток и общее время ограничены.
func (s *AccountService) CreateAccount(ctx context.Context, req model.CreateAccountRequest, createdBy uuid.UUID) (*model.Account, error) {
	if req.AccountHolderID == uuid.Nil || createdBy == uuid.Nil {
		return nil, model.RejectMissingAccountHolder
	}
	if !req.AccountType.Valid() {
		return nil, model.RejectInvalidAccountType
	}
	if !hasCents(req.Balance) ||
		req.Balance.LessThan(s.rules.MinBalance) || req.Balance.GreaterThan(s.rules.MaxBalance) {
		return nil, model.RejectInitialBalanceRange
	}

	if s.rules.AccountGenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.rules.AccountGenerationTimeout)
		defer cancel()
	}

	for attempt := 1; attempt <= s.rules.AccountNumberMaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			s.logger.WithFields(logrus.Fields{
				"event":    EventAccountGenerationFailed,
				"attempts": attempt - 1,
			}).WithError(err).Error("Превышено время генерации номера счета")
			return nil, fmt.Errorf("%w: %v", model.ErrAccountGenerationFailed, err)
		}

		number, err := s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("ошибка генерации номера счета: %w", err)
		}

		now := time.Now().UTC()
		account := &model.Account{
			AccountNumber:   number,
			AccountHolderID: req.AccountHolderID,
			AccountType:     req.AccountType,
			Balance:         req.Balance,
			Status:          model.AccountStatusActive,
			DailyStats:      model.DailyStats{Deposit: decimal.Zero, Withdrawal: decimal.Zero, Transfer: decimal.Zero},
			CreatedBy:       createdBy,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		err = s.accounts.CreateAccount(ctx, account)
		if err == nil {
			s.logger.WithFields(logrus.Fields{
				"account_number": number,
				"holder_id":      req.AccountHolderID,
				"attempt":        attempt,
			}).Info("Счет успешно создан")
			return account, nil
		}
		if !errors.Is(err, repository.ErrDuplicateAccountNumber) {
			s.logger.WithError(err).Error("Ошибка при создании счета")
			return nil, fmt.Errorf("ошибка создания счета: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"event":          EventAccountNumberDuplicate,
			"account_number": number,
			"attempt":        attempt,
		}).Warn("Сгенерированный номер счета уже существует, повтор")
	}

	s.logger.WithFields(logrus.Fields{
		"event":    EventAccountGenerationFailed,
		"attempts": s.rules.AccountNumberMaxRetries,
	}).Error("Не удалось сгенерировать уникальный номер счета")
	return nil, model.ErrAccountGenerationFailed
}

func (s *AccountService) GetUserAccounts(ctx context.Context, userID uuid.UUID) ([]model.Account, error) {
	s.logger.Debugf("Получение списка счетов пользователя %s", userID)
	accounts, err := s.accounts.ListAccountsByHolder(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Ошибка при получении счетов пользователя")
		return nil, fmt.Errorf("ошибка получения счетов: %w", err)
	}
	return accounts, nil
}

// SetStatus замораживает, размораживает или закрывает счет. Ledger проверяет
// статус в том же условном обновлении, поэтому смена действует на все операции после нее.
func (s *AccountService) SetStatus(ctx context.Context, accountNumber string, status model.AccountStatus, updatedBy uuid.UUID) (*model.Account, error) {
	if !status.Valid() {
		return nil, model.RejectInvalidAccountStatus
	}

	if err := s.accounts.SetStatus(ctx, accountNumber, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.ErrAccountNotFound
		}
		s.logger.WithError(err).Error("Ошибка при смене статуса счета")
		return nil, fmt.Errorf("ошибка смены статуса счета: %w", err)
	}

	account, err := s.accounts.FindAccount(ctx, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения счета: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"event":          EventAccountStatusChanged,
		"account_number": MaskAccountNumber(accountNumber),
		"status":         status,
		"updated_by":     updatedBy,
	}).Info("Статус счета изменен")
	return account, nil
}

// GetAccountBalance возвращает баланс счета, если им владеет userID
func (s *AccountService) GetAccountBalance(ctx context.Context, accountNumber string, userID uuid.UUID) (decimal.Decimal, error) {
	account, err := ownedAccount(ctx, s.accounts, accountNumber, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func ownedAccount(ctx context.Context, accounts AccountFinder, accountNumber string, userID uuid.UUID) (*model.Account, error) {
	account, err := accounts.FindAccount(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка получения счета: %w", err)
	}
	if account.AccountHolderID != userID {
		return nil, model.RejectNotAccountHolder
	}
	return account, nil
}

// hasCents сообщает, что в сумме не больше двух знаков после запятой
func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
