package cron

import (
	"context"
	"fmt"

	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

// FollowUpJobParams configures the scheduled reminder scan.
type FollowUpJobParams struct {
	Logger    *logger.Logger
	Reminders followUpRunner
}

type followUpRunner interface {
	Run(ctx context.Context) (int, error)
}

// NewFollowUpJob constructs the follow-up reminder cron job.
func NewFollowUpJob(params FollowUpJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reminders == nil {
		return nil, fmt.Errorf("reminder service required")
	}
	return &followUpJob{
		logg:      params.Logger,
		reminders: params.Reminders,
	}, nil
}

type followUpJob struct {
	logg      *logger.Logger
	reminders followUpRunner
}

func (j *followUpJob) Name() string { return "follow-up-reminders" }

func (j *followUpJob) Run(ctx context.Context) error {
	sent, err := j.reminders.Run(ctx)
	if err != nil {
		return fmt.Errorf("follow-up reminders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"emails_sent": sent})
	j.logg.Info(logCtx, "follow-up reminder scan complete")
	return nil
}
