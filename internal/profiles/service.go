package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
	"github.com/quoteflow/quoteflow-backend/pkg/types"
)

const maxFollowUpIntervals = 10

// DefaultIntervals builds the built-in reminder ladder. The interval IDs are
// the day offsets themselves so the legacy per-quote booleans can be mapped
// onto them.
func DefaultIntervals(days []int) types.FollowUpIntervals {
	intervals := make(types.FollowUpIntervals, 0, len(days))
	for _, d := range days {
		intervals = append(intervals, types.FollowUpInterval{
			ID:      fmt.Sprintf("%dd", d),
			Days:    d,
			Enabled: true,
		})
	}
	return intervals
}

// Service owns the contractor profile, including follow-up configuration.
type Service struct {
	repo        Repository
	defaultDays []int
}

// NewService builds a profile service.
func NewService(repo Repository, defaultFollowUpDays []int) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "profile repo required")
	}
	if len(defaultFollowUpDays) == 0 {
		defaultFollowUpDays = []int{2, 7, 15}
	}
	return &Service{repo: repo, defaultDays: defaultFollowUpDays}, nil
}

// Ensure returns the profile for the authenticated subject, creating it on
// first contact with the defaults.
func (s *Service) Ensure(ctx context.Context, id uuid.UUID, emailAddr, businessName string) (*models.Profile, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile != nil {
		return profile, nil
	}

	if emailAddr == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if businessName == "" {
		businessName = emailAddr
	}
	profile = &models.Profile{
		ID:                id,
		BusinessName:      businessName,
		Email:             strings.ToLower(emailAddr),
		FollowUpIntervals: DefaultIntervals(s.defaultDays),
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
	}
	return profile, nil
}

// Get returns a profile by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return profile, nil
}

// EffectiveIntervals resolves the reminder ladder for a profile, falling back
// to the built-in defaults when the contractor never customized it.
func (s *Service) EffectiveIntervals(profile *models.Profile) types.FollowUpIntervals {
	if profile != nil && len(profile.FollowUpIntervals) > 0 {
		return profile.FollowUpIntervals
	}
	return DefaultIntervals(s.defaultDays)
}

// UpdateInput carries the editable profile fields. Nil means unchanged.
type UpdateInput struct {
	BusinessName      *string
	LogoURL           *string
	FollowUpSubject   *string
	FollowUpMessage   *string
	FollowUpIntervals *types.FollowUpIntervals
}

// Update applies partial profile changes. Follow-up intervals keep their IDs
// across edits; entries arriving without one get a fresh ID so already-sent
// markers on other intervals stay valid.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Profile, error) {
	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.BusinessName != nil {
		if strings.TrimSpace(*input.BusinessName) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "business name is required")
		}
		profile.BusinessName = strings.TrimSpace(*input.BusinessName)
	}
	if input.LogoURL != nil {
		profile.LogoURL = input.LogoURL
	}
	if input.FollowUpSubject != nil {
		profile.FollowUpSubject = input.FollowUpSubject
	}
	if input.FollowUpMessage != nil {
		profile.FollowUpMessage = input.FollowUpMessage
	}
	if input.FollowUpIntervals != nil {
		normalized, err := normalizeIntervals(*input.FollowUpIntervals)
		if err != nil {
			return nil, err
		}
		profile.FollowUpIntervals = normalized
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return profile, nil
}

func normalizeIntervals(intervals types.FollowUpIntervals) (types.FollowUpIntervals, error) {
	if len(intervals) > maxFollowUpIntervals {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many follow-up intervals")
	}
	seenDays := make(map[int]bool, len(intervals))
	seenIDs := make(map[string]bool, len(intervals))
	out := make(types.FollowUpIntervals, 0, len(intervals))
	for _, interval := range intervals {
		if interval.Days < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "interval days must be at least 1")
		}
		if seenDays[interval.Days] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate interval days")
		}
		seenDays[interval.Days] = true

		if interval.ID == "" {
			interval.ID = uuid.NewString()
		}
		if seenIDs[interval.ID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate interval id")
		}
		seenIDs[interval.ID] = true
		out = append(out, interval)
	}
	return out, nil
}
