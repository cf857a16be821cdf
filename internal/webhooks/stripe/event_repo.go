package stripewebhook

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
)

// EventRepository persists the durable webhook dedup records.
type EventRepository interface {
	WithTx(tx *gorm.DB) EventRepository
	// Insert writes the event row. Returns false without error when the
	// event id was already recorded.
	Insert(ctx context.Context, event *models.WebhookEvent) (bool, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository returns an event repository bound to the provided database.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) WithTx(tx *gorm.DB) EventRepository {
	if tx == nil {
		return r
	}
	return &eventRepository{db: tx}
}

func (r *eventRepository) Insert(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
