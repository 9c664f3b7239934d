// Package jobs содержит фоновые задачи по расписанию
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	EventDailyLimitsReset       = "DAILY_LIMITS_RESET"
	EventDailyLimitsResetFailed = "DAILY_LIMITS_RESET_FAILED"
)

// Resetter обнуляет дневные счетчики всех счетов
type Resetter interface {
	ResetDailyStats(ctx context.Context) (int64, error)
}

// DailyReset обнуляет дневные лимиты, повторяя попытку при сбое хранилища
type DailyReset struct {
	resetter Resetter
	logger   *logrus.Logger
	attempts int
	delay    time.Duration
}

func NewDailyReset(resetter Resetter, logger *logrus.Logger) *DailyReset {
	return &DailyReset{
		resetter: resetter,
		logger:   logger,
		attempts: 3,
		delay:    2 * time.Second,
	}
}

// Run выполняет сброс. Возвращает последнюю ошибку, если все попытки неудачны.
func (j *DailyReset) Run(ctx context.Context) error {
	var lastErr error
retry:
	for attempt := 1; attempt <= j.attempts; attempt++ {
		n, err := j.resetter.ResetDailyStats(ctx)
		if err == nil {
			j.logger.WithFields(logrus.Fields{
				"event":    EventDailyLimitsReset,
				"accounts": n,
				"attempt":  attempt,
			}).Info("Дневные лимиты сброшены")
			return nil
		}
		lastErr = err
		j.logger.WithError(err).WithField("attempt", attempt).Warn("Ошибка сброса дневных лимитов")

		if attempt == j.attempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			break retry
		case <-time.After(j.delay):
		}
	}

	j.logger.WithFields(logrus.Fields{
		"event":    EventDailyLimitsResetFailed,
		"attempts": j.attempts,
	}).WithError(lastErr).Error("Не удалось сбросить дневные лимиты")
	return fmt.Errorf("daily limits reset failed: %w", lastErr)
}

// Schedule регистрирует задачу в планировщике
func (j *DailyReset) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		_ = j.Run(context.Background())
	})
}
