package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/timehacker/api/internal/dto"
	apperrors "github.com/timehacker/api/internal/errors"
	"github.com/timehacker/api/internal/model"
	"github.com/timehacker/api/internal/repository"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
)

type ProfileService struct {
	store repository.Store
}

func NewProfileService(store repository.Store) *ProfileService {
	return &ProfileService{store: store}
}

func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "ProfileService.Get")

	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(profile), nil
}

// Update applies only the fields present in req. An empty string clears a
// field.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "ProfileService.Update")

	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		profile.Name = emptyToNil(req.Name)
	}
	if req.School != nil {
		profile.School = emptyToNil(req.School)
	}
	if req.Avatar != nil {
		profile.Avatar = emptyToNil(req.Avatar)
	}

	if err := s.store.Profiles().Save(ctx, profile); err != nil {
		return nil, internalError(ctx, "Failed to update profile", err)
	}

	logger.InfoWithContext(ctx, "Profile updated").Log()
	return toProfileResponse(profile), nil
}

// load returns the user's profile, creating the empty row for accounts
// that predate profile creation on registration.
func (s *ProfileService) load(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	profile, err := s.store.Profiles().Get(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, internalError(ctx, "Failed to load profile", err)
	}

	profile = &model.Profile{ID: userID}
	if err := s.store.Profiles().Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, internalError(ctx, "Failed to create missing profile", err)
	}
	logger.InfoWithContext(ctx, "Created missing profile").Log()
	return profile, nil
}

func emptyToNil(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	out := *v
	return &out
}

func toProfileResponse(p *model.Profile) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		ID:     p.ID,
		Name:   p.Name,
		School: p.School,
		Avatar: p.Avatar,
	}
}
