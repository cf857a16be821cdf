package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

func TestFollowUpJobRunsReminderScan(t *testing.T) {
	runner := &fakeFollowUpRunner{sent: 3}
	job := newFollowUpJob(t, runner)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if runner.called != 1 {
		t.Fatalf("expected one scan, got %d", runner.called)
	}
}

func TestFollowUpJobPropagatesErrors(t *testing.T) {
	runner := &fakeFollowUpRunner{err: errors.New("smtp down")}
	job := newFollowUpJob(t, runner)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFollowUpJobRequiresRunner(t *testing.T) {
	_, err := NewFollowUpJob(FollowUpJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	if err == nil {
		t.Fatal("expected error for missing reminder service")
	}
}

func newFollowUpJob(t *testing.T, runner *fakeFollowUpRunner) Job {
	t.Helper()
	job, err := NewFollowUpJob(FollowUpJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Reminders: runner,
	})
	if err != nil {
		t.Fatalf("NewFollowUpJob: %v", err)
	}
	return job
}

type fakeFollowUpRunner struct {
	sent   int
	err    error
	called int
}

func (f *fakeFollowUpRunner) Run(ctx context.Context) (int, error) {
	f.called++
	if f.err != nil {
		return 0, f.err
	}
	return f.sent, nil
}
