package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	"github.com/quoteflow/quoteflow-backend/pkg/enums"
	"github.com/quoteflow/quoteflow-backend/pkg/types"
)

type fakeRepo struct {
	byID map[uuid.UUID]*models.Profile
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*models.Profile)}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, profile *models.Profile) error {
	f.byID[profile.ID] = profile
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return f.byID[id], nil
}

func (f *fakeRepo) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	for _, p := range f.byID {
		if p.StripeCustomerID != nil && *p.StripeCustomerID == customerID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) Update(ctx context.Context, profile *models.Profile) error {
	f.byID[profile.ID] = profile
	return nil
}

func (f *fakeRepo) UpdateSubscription(ctx context.Context, id uuid.UUID, tier enums.SubscriptionTier, subscriptionID *string, expiresAt *time.Time) error {
	if p, ok := f.byID[id]; ok {
		p.SubscriptionTier = tier
		p.StripeSubscriptionID = subscriptionID
		p.SubscriptionExpiresAt = expiresAt
	}
	return nil
}

func (f *fakeRepo) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	if p, ok := f.byID[id]; ok {
		p.StripeCustomerID = &customerID
	}
	return nil
}

func TestEnsureCreatesWithDefaultLadder(t *testing.T) {
	repo := newFakeRepo()
	svc, err := NewService(repo, []int{2, 7, 15})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	id := uuid.New()
	profile, err := svc.Ensure(context.Background(), id, "Owner@AcmeDecks.com", "Acme Decks")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if profile.Email != "owner@acmedecks.com" {
		t.Fatalf("email must be lowercased, got %s", profile.Email)
	}
	if len(profile.FollowUpIntervals) != 3 {
		t.Fatalf("expected 3 default intervals, got %d", len(profile.FollowUpIntervals))
	}
	if profile.FollowUpIntervals[0].ID != "2d" || profile.FollowUpIntervals[2].ID != "15d" {
		t.Fatalf("default intervals must carry day-offset ids, got %+v", profile.FollowUpIntervals)
	}

	again, err := svc.Ensure(context.Background(), id, "other@example.com", "Other")
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if again.Email != "owner@acmedecks.com" {
		t.Fatal("Ensure must not overwrite an existing profile")
	}
}

func TestUpdateIntervalsKeepsStableIDs(t *testing.T) {
	repo := newFakeRepo()
	svc, err := NewService(repo, []int{2, 7, 15})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	id := uuid.New()
	if _, err := svc.Ensure(context.Background(), id, "owner@acmedecks.com", "Acme Decks"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	intervals := types.FollowUpIntervals{
		{ID: "2d", Days: 3, Enabled: true},
		{Days: 30, Enabled: true},
	}
	updated, err := svc.Update(context.Background(), id, UpdateInput{FollowUpIntervals: &intervals})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.FollowUpIntervals[0].ID != "2d" {
		t.Fatalf("existing id must survive a day change, got %s", updated.FollowUpIntervals[0].ID)
	}
	if updated.FollowUpIntervals[1].ID == "" {
		t.Fatal("new interval must be assigned an id")
	}
}

func TestUpdateIntervalValidation(t *testing.T) {
	repo := newFakeRepo()
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	id := uuid.New()
	if _, err := svc.Ensure(context.Background(), id, "owner@acmedecks.com", "Acme Decks"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	zeroDays := types.FollowUpIntervals{{Days: 0, Enabled: true}}
	if _, err := svc.Update(context.Background(), id, UpdateInput{FollowUpIntervals: &zeroDays}); err == nil {
		t.Fatal("zero-day interval must be rejected")
	}

	dupDays := types.FollowUpIntervals{{Days: 5, Enabled: true}, {Days: 5, Enabled: false}}
	if _, err := svc.Update(context.Background(), id, UpdateInput{FollowUpIntervals: &dupDays}); err == nil {
		t.Fatal("duplicate days must be rejected")
	}
}

func TestEffectiveIntervalsFallsBack(t *testing.T) {
	svc, err := NewService(newFakeRepo(), []int{2, 7, 15})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	bare := &models.Profile{}
	if got := svc.EffectiveIntervals(bare); len(got) != 3 || got[1].Days != 7 {
		t.Fatalf("expected default ladder, got %+v", got)
	}

	custom := &models.Profile{FollowUpIntervals: types.FollowUpIntervals{{ID: "x", Days: 1, Enabled: true}}}
	if got := svc.EffectiveIntervals(custom); len(got) != 1 || got[0].ID != "x" {
		t.Fatalf("expected custom ladder, got %+v", got)
	}
}
