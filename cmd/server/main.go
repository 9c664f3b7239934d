package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/config"
	"banking-ledger/internal/handler"
	"banking-ledger/internal/jobs"
	"banking-ledger/internal/ledger"
	"banking-ledger/internal/repository"
	"banking-ledger/internal/service"
)

// store - все, что сервисам нужно от хранилища
type store interface {
	ledger.Store
	service.AccountStore
	service.TransactionStore
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Загрузка конфигурации приложения
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Неизвестный уровень логирования %q, используется info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("Ошибка подключения к хранилищу: %v", err)
	}
	defer closeStore()

	// Инициализация сервисов
	logger.Info("Инициализация сервисов...")
	rules := cfg.Rules
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.TokenExpiry, logger)
	alerter := service.NewEmailAlerter(cfg.Alerts, logger)
	balanceLedger := ledger.New(st, rules, logger)
	recorder := service.NewRecorder(st, st, logger)
	accountService := service.NewAccountService(st, service.NewAccountNumberGenerator(rules), rules, logger)
	transactionService := service.NewTransactionService(
		service.NewTransactionValidator(st, rules),
		balanceLedger,
		recorder,
		alerter,
		logger,
	)

	// Инициализация HTTP обработчиков
	logger.Info("Инициализация обработчиков API...")
	router := handler.NewRouter(
		handler.NewAccountHandler(accountService, recorder, logger),
		handler.NewTransactionHandler(transactionService, logger),
		tokenService,
		logger,
	)

	// Сброс дневных лимитов по расписанию
	logger.Info("Настройка планировщика сброса дневных лимитов...")
	c := cron.New()
	if _, err := jobs.NewDailyReset(balanceLedger, logger).Schedule(c, cfg.ResetSpec); err != nil {
		logger.Fatalf("Ошибка настройки планировщика: %v", err)
	}
	c.Start()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Запуск сервера на %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Ошибка сервера: %v", err)
		}
	}()

	// Ожидание сигналов для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Завершение работы сервера...")
	<-c.Stop().Done()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Ошибка при завершении работы сервера: %v", err)
	}
	if err := transactionService.WaitAlerts(ctx); err != nil {
		logger.WithError(err).Error("Не все оповещения отправлены")
	}
	logger.Info("Сервер успешно остановлен")
}

func openStore(cfg *config.Config, logger *logrus.Logger) (store, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		logger.Infof("Хранилище: SQLite (%s)", cfg.SQLitePath)
		s, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case "postgres":
		logger.Info("Хранилище: PostgreSQL")
		db, err := sql.Open("postgres", cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		if cfg.DBMigrate {
			logger.Info("Применение миграций...")
			if err := repository.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return repository.NewPostgresStore(db, logger), func() { db.Close() }, nil

	case "memory":
		logger.Warn("Хранилище в памяти: данные не сохраняются между запусками")
		return repository.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, errors.New("unknown LEDGER_BACKEND " + cfg.Backend)
}
