package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Config содержит настройки приложения
type Config struct {
	HTTPAddr    string        // Адрес HTTP сервера
	LogLevel    string        // Уровень логирования
	Backend     string        // Хранилище: postgres или sqlite
	DBHost      string        // Хост базы данных
	DBPort      string        // Порт базы данных
	DBUser      string        // Пользователь базы данных
	DBPassword  string        // Пароль базы данных
	DBName      string        // Имя базы данных
	DBMigrate   bool          // Применять миграции при старте
	SQLitePath  string        // Путь к файлу SQLite
	JWTSecret   string        // Секрет для проверки JWT
	ResetSpec   string        // Расписание сброса дневных лимитов (cron)
	Alerts      AlertConfig   // Оповещения операторов
	Rules       Rules         // Бизнес-лимиты
	TokenExpiry time.Duration // Время жизни токена
}

// AlertConfig - SMTP для оповещений о расхождениях
type AlertConfig struct {
	Enabled            bool
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPass           string
	From               string
	To                 []string
	InsecureSkipVerify bool
}

// AmountRule - границы суммы одной операции и дневной лимит
type AmountRule struct {
	Min        decimal.Decimal
	Max        decimal.Decimal
	DailyLimit decimal.Decimal
}

// InRange проверяет, что сумма лежит в [Min, Max]
func (r AmountRule) InRange(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(r.Min) && amount.LessThanOrEqual(r.Max)
}

// Rules - неизменяемые числовые ограничения ядра
type Rules struct {
	MinBalance               decimal.Decimal
	MaxBalance               decimal.Decimal
	Deposit                  AmountRule
	Withdrawal               AmountRule
	Transfer                 AmountRule
	DescriptionMaxLength     int
	AccountNumberLength      int
	AccountNumberPrefixes    []string
	AccountNumberMaxRetries  int
	AccountGenerationTimeout time.Duration
}

// DefaultRules возвращает лимиты по умолчанию
func DefaultRules() Rules {
	return Rules{
		MinBalance: decimal.NewFromInt(0),
		MaxBalance: decimal.NewFromInt(50000000),
		Deposit: AmountRule{
			Min:        decimal.NewFromInt(20),
			Max:        decimal.NewFromInt(10000),
			DailyLimit: decimal.NewFromInt(500000),
		},
		Withdrawal: AmountRule{
			Min:        decimal.NewFromInt(10),
			Max:        decimal.NewFromInt(5000),
			DailyLimit: decimal.NewFromInt(100000),
		},
		Transfer: AmountRule{
			Min:        decimal.NewFromInt(5),
			Max:        decimal.NewFromInt(40000),
			DailyLimit: decimal.NewFromInt(500000),
		},
		DescriptionMaxLength:     25,
		AccountNumberLength:      16,
		AccountNumberPrefixes:    []string{"913", "712", "511", "310", "109"},
		AccountNumberMaxRetries:  5,
		AccountGenerationTimeout: 10 * time.Second,
	}
}

// Validate проверяет согласованность лимитов
func (r Rules) Validate() error {
	if r.MinBalance.IsNegative() || r.MaxBalance.LessThanOrEqual(r.MinBalance) {
		return fmt.Errorf("invalid balance range %s..%s", r.MinBalance, r.MaxBalance)
	}
	for name, rule := range map[string]AmountRule{"deposit": r.Deposit, "withdrawal": r.Withdrawal, "transfer": r.Transfer} {
		if !rule.Min.IsPositive() || rule.Max.LessThan(rule.Min) || rule.DailyLimit.LessThan(rule.Max) {
			return fmt.Errorf("invalid %s rule %s..%s daily %s", name, rule.Min, rule.Max, rule.DailyLimit)
		}
	}
	if len(r.AccountNumberPrefixes) == 0 {
		return fmt.Errorf("no account number prefixes configured")
	}
	for _, p := range r.AccountNumberPrefixes {
		if len(p) >= r.AccountNumberLength {
			return fmt.Errorf("account number prefix %q is not shorter than length %d", p, r.AccountNumberLength)
		}
	}
	if r.AccountNumberMaxRetries <= 0 {
		return fmt.Errorf("account number max retries must be positive")
	}
	return nil
}

// LoadConfig загружает конфигурацию из .env файла и переменных окружения
func LoadConfig() (*Config, error) {
	// Загружаем переменные окружения из .env файла
	if err := godotenv.Load(); err != nil {
		logrus.Warn("Файл .env не найден")
	}

	// Парсим время жизни токена
	expiry, err := time.ParseDuration(os.Getenv("TOKEN_EXPIRY"))
	if err != nil {
		expiry = 24 * time.Hour // По умолчанию 24 часа
	}

	rules, err := loadRules()
	if err != nil {
		return nil, err
	}

	smtpPort, err := getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}

	config := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Backend:     getEnv("LEDGER_BACKEND", "postgres"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "banking"),
		DBMigrate:   getEnv("DB_MIGRATE", "false") == "true",
		SQLitePath:  getEnv("SQLITE_PATH", "ledger.db"),
		JWTSecret:   getEnv("JWT_SECRET", "default-secret-key"),
		ResetSpec:   getEnv("DAILY_RESET_SCHEDULE", "0 0 * * *"),
		TokenExpiry: expiry,
		Rules:       rules,
		Alerts: AlertConfig{
			Enabled:            getEnv("ALERTS_ENABLED", "false") == "true",
			SMTPHost:           os.Getenv("SMTP_HOST"),
			SMTPPort:           smtpPort,
			SMTPUser:           os.Getenv("SMTP_USER"),
			SMTPPass:           os.Getenv("SMTP_PASS"),
			From:               getEnv("ALERTS_FROM", os.Getenv("SMTP_USER")),
			To:                 splitList(os.Getenv("ALERTS_TO")),
			InsecureSkipVerify: os.Getenv("INSECURE_SKIP_VERIFY") == "true",
		},
	}

	return config, nil
}

// DSN собирает строку подключения к PostgreSQL
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func loadRules() (Rules, error) {
	r := DefaultRules()
	var err error

	decimals := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"MINIMUM_ACCOUNT_BALANCE", &r.MinBalance},
		{"MAXIMUM_ACCOUNT_BALANCE", &r.MaxBalance},
		{"DEPOSIT_MIN", &r.Deposit.Min},
		{"DEPOSIT_MAX", &r.Deposit.Max},
		{"DEPOSIT_DAILY_LIMIT", &r.Deposit.DailyLimit},
		{"WITHDRAWAL_MIN", &r.Withdrawal.Min},
		{"WITHDRAWAL_MAX", &r.Withdrawal.Max},
		{"WITHDRAWAL_DAILY_LIMIT", &r.Withdrawal.DailyLimit},
		{"TRANSFER_MIN", &r.Transfer.Min},
		{"TRANSFER_MAX", &r.Transfer.Max},
		{"TRANSFER_DAILY_LIMIT", &r.Transfer.DailyLimit},
	}
	for _, d := range decimals {
		if *d.dst, err = getEnvDecimal(d.key, *d.dst); err != nil {
			return Rules{}, err
		}
	}

	if r.DescriptionMaxLength, err = getEnvInt("TRANSACTION_DESCRIPTION_MAX", r.DescriptionMaxLength); err != nil {
		return Rules{}, err
	}
	if r.AccountNumberLength, err = getEnvInt("ACCOUNT_NUMBER_LENGTH", r.AccountNumberLength); err != nil {
		return Rules{}, err
	}
	if r.AccountNumberMaxRetries, err = getEnvInt("ACCOUNT_NUMBER_MAX_RETRIES", r.AccountNumberMaxRetries); err != nil {
		return Rules{}, err
	}
	if v := os.Getenv("ACCOUNT_NUMBER_PREFIXES"); v != "" {
		r.AccountNumberPrefixes = splitList(v)
	}
	if v := os.Getenv("ACCOUNT_GENERATION_TIMEOUT"); v != "" {
		if r.AccountGenerationTimeout, err = time.ParseDuration(v); err != nil {
			return Rules{}, fmt.Errorf("ACCOUNT_GENERATION_TIMEOUT: %w", err)
		}
	}

	if err := r.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules: %w", err)
	}
	return r, nil
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
