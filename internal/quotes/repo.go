package quotes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	"github.com/quoteflow/quoteflow-backend/pkg/enums"
	"github.com/quoteflow/quoteflow-backend/pkg/pagination"
)

// Repository handles quote persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, quote *models.Quote) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	ListByContractor(ctx context.Context, contractorID uuid.UUID, params pagination.Params) ([]models.Quote, *pagination.Cursor, error)
	Update(ctx context.Context, quote *models.Quote) error
	UpdateStatusVersioned(ctx context.Context, id uuid.UUID, status enums.QuoteStatus, fromVersion int) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CreateSnapshot(ctx context.Context, snapshot *models.QuoteEditSnapshot) error
	ListSnapshots(ctx context.Context, quoteID uuid.UUID) ([]models.QuoteEditSnapshot, error)
	DeleteSnapshotsByQuote(ctx context.Context, quoteID uuid.UUID) error
	ListViewed(ctx context.Context) ([]models.Quote, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a quote repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, quote *models.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&quote).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &quote, nil
}

// FindByIDForUpdate locks the quote row for the duration of the surrounding
// transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&quote).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &quote, nil
}

func (r *repository) ListByContractor(ctx context.Context, contractorID uuid.UUID, params pagination.Params) ([]models.Quote, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("contractor_id = ?", contractorID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Quote
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

func (r *repository) Update(ctx context.Context, quote *models.Quote) error {
	return r.db.WithContext(ctx).Save(quote).Error
}

// UpdateStatusVersioned writes the status only when the caller still holds
// the version it read, bumping the version on success. Returns false when a
// concurrent writer got there first.
func (r *repository) UpdateStatusVersioned(ctx context.Context, id uuid.UUID, status enums.QuoteStatus, fromVersion int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ? AND version = ?", id, fromVersion).
		Updates(map[string]any{
			"status":  status,
			"version": fromVersion + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Quote{}).Error
}

func (r *repository) CreateSnapshot(ctx context.Context, snapshot *models.QuoteEditSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *repository) ListSnapshots(ctx context.Context, quoteID uuid.UUID) ([]models.QuoteEditSnapshot, error) {
	var snapshots []models.QuoteEditSnapshot
	if err := r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("edit_version ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *repository) DeleteSnapshotsByQuote(ctx context.Context, quoteID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("quote_id = ?", quoteID).Delete(&models.QuoteEditSnapshot{}).Error
}

// ListViewed returns quotes sitting in the viewed state with a recorded view
// time, the follow-up scheduler's working set.
func (r *repository) ListViewed(ctx context.Context) ([]models.Quote, error) {
	var rows []models.Quote
	if err := r.db.WithContext(ctx).
		Where("status = ? AND viewed_at IS NOT NULL", enums.QuoteStatusViewed).
		Order("viewed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
