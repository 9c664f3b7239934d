package repository

import (
	"database/sql"

	"github.com/sirupsen/logrus"
)

// PostgresStore объединяет репозитории счетов и журнала операций над одним пулом соединений
type PostgresStore struct {
	*AccountRepository
	*TransactionRepository
}

func NewPostgresStore(db *sql.DB, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		AccountRepository:     NewAccountRepository(db, logger),
		TransactionRepository: NewTransactionRepository(db, logger),
	}
}
