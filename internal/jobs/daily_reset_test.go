package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type flakyResetter struct {
	failures int
	calls    int
}

func (r *flakyResetter) ResetDailyStats(context.Context) (int64, error) {
	r.calls++
	if r.calls <= r.failures {
		return 0, errors.New("database is locked")
	}
	return 3, nil
}

func newJob(r Resetter) (*DailyReset, *test.Hook) {
	logger, hook := test.NewNullLogger()
	j := NewDailyReset(r, logger)
	j.delay = time.Millisecond
	return j, hook
}

func TestDailyResetRetries(t *testing.T) {
	r := &flakyResetter{failures: 2}
	j, hook := newJob(r)

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.calls != 3 {
		t.Fatalf("calls = %d, want 3", r.calls)
	}
	last := hook.LastEntry()
	if last.Data["event"] != EventDailyLimitsReset || last.Data["accounts"] != int64(3) {
		t.Fatalf("last entry = %+v", last.Data)
	}
}

func TestDailyResetGivesUp(t *testing.T) {
	r := &flakyResetter{failures: 10}
	j, hook := newJob(r)

	if err := j.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if r.calls != 3 {
		t.Fatalf("calls = %d, want 3", r.calls)
	}
	last := hook.LastEntry()
	if last.Level != logrus.ErrorLevel || last.Data["event"] != EventDailyLimitsResetFailed {
		t.Fatalf("last entry = %v %+v", last.Level, last.Data)
	}
}

func TestDailyResetStopsOnCancel(t *testing.T) {
	r := &flakyResetter{failures: 10}
	j, _ := newJob(r)
	j.delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := j.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if r.calls != 1 {
		t.Fatalf("calls = %d, want 1", r.calls)
	}
}

func TestDailyResetSchedule(t *testing.T) {
	j, _ := newJob(&flakyResetter{})
	c := cron.New()
	if _, err := j.Schedule(c, "0 0 * * *"); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Fatalf("entries = %d", len(c.Entries()))
	}
	if _, err := j.Schedule(c, "not a spec"); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}
