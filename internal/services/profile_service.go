package services

import (
	"context"

	"github.com/AnshRaj112/propertyhub-backend/internal/apperror"
	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
)

type ProfileService struct {
	tables provider.Tables
}

func NewProfileService(tables provider.Tables) *ProfileService {
	return &ProfileService{tables: tables}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (provider.Row, error) {
	rows, err := s.tables.Select(ctx, provider.TableProfiles, provider.ByID(userID))
	if err != nil {
		return nil, tableError(err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("Profile not found")
	}
	return rows[0], nil
}

// Update patches the caller's profile. The role is fixed at registration because login checks it.
func (s *ProfileService) Update(ctx context.Context, userID string, patch provider.Row) (provider.Row, error) {
	changes := without(patch, "id", "role")
	if len(changes) == 0 {
		return nil, apperror.Validation("No fields to update")
	}
	rows, err := s.tables.Update(ctx, provider.TableProfiles, provider.ByID(userID), changes)
	if err != nil {
		return nil, tableError(err)
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("Profile not found")
	}
	return rows[0], nil
}
