package cron

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/quoteflow/quoteflow-backend/pkg/logger"
)

// Receipt uploads go to storage before the payment row is inserted, so a
// failed intake leaves the object behind. This job sweeps them up.

const (
	receiptScanPrefix  = "quotes/"
	receiptPathSegment = "/receipts/"
)

// ReceiptCleanupJobParams configures the orphaned receipt sweep.
type ReceiptCleanupJobParams struct {
	Logger   *logger.Logger
	Payments receiptLedger
	GCS      objectClient
	Bucket   string
}

type receiptLedger interface {
	ListReceiptKeys(ctx context.Context) ([]string, error)
}

type objectClient interface {
	ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// NewReceiptCleanupJob constructs the receipt cleanup cron job.
func NewReceiptCleanupJob(params ReceiptCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment ledger required")
	}
	if params.GCS == nil {
		return nil, fmt.Errorf("storage client required")
	}
	return &receiptCleanupJob{
		logg:     params.Logger,
		payments: params.Payments,
		gcs:      params.GCS,
		bucket:   params.Bucket,
	}, nil
}

type receiptCleanupJob struct {
	logg     *logger.Logger
	payments receiptLedger
	gcs      objectClient
	bucket   string
}

func (j *receiptCleanupJob) Name() string { return "receipt-cleanup" }

func (j *receiptCleanupJob) Run(ctx context.Context) error {
	keys, err := j.payments.ListReceiptKeys(ctx)
	if err != nil {
		return fmt.Errorf("load receipt references: %w", err)
	}
	objects, err := j.gcs.ListPrefix(ctx, j.bucket, receiptScanPrefix)
	if err != nil {
		return fmt.Errorf("list receipt objects: %w", err)
	}

	var errs error
	scanned, deleted := 0, 0
	for _, object := range objects {
		if !strings.Contains(object, receiptPathSegment) {
			continue
		}
		scanned++
		if referencedByLedger(keys, object) {
			continue
		}
		if err := j.gcs.DeleteObject(ctx, j.bucket, object); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", object, err))
			continue
		}
		deleted++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"receipts_scanned": scanned,
		"receipts_deleted": deleted,
	})
	j.logg.Info(logCtx, "receipt cleanup complete")
	return errs
}

// referencedByLedger matches both storage forms: rows that hold the raw
// object key and rows that hold a full URL embedding it.
func referencedByLedger(keys []string, object string) bool {
	for _, key := range keys {
		if key != "" && strings.Contains(key, object) {
			return true
		}
	}
	return false
}
