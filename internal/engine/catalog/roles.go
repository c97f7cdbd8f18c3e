package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"adminhub/internal/platform/models"
)

type RoleInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Hierarchy   *int   `json:"hierarchy"`
}

type RolePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Hierarchy   *int    `json:"hierarchy"`
}

// RoleKey derives the stable key of a role from its display name.
func RoleKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// ListRoles returns the roles the viewer may see in display order.
func (s *Service) ListRoles(ctx context.Context, viewer *models.Principal) ([]*models.GlobalRole, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	roles, err := s.roles.List(ctx, !seesHidden(viewer))
	if err != nil {
		return nil, storeErr("list roles", err)
	}
	SortRoles(roles)
	return roles, nil
}

func (s *Service) CreateRole(ctx context.Context, caller *models.Principal, in RoleInput) (*models.GlobalRole, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validation("name is required")
	}
	if in.Hierarchy != nil && *in.Hierarchy < 0 {
		return nil, validation("hierarchy cannot be negative")
	}

	role := &models.GlobalRole{
		ID:          uuid.NewString(),
		Key:         RoleKey(name),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Hierarchy:   in.Hierarchy,
		Visible:     true,
		Enabled:     true,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, storeErr("create role", err)
	}

	log.Info().Str("role_id", role.ID).Str("key", role.Key).Str("created_by", caller.ID).Msg("role created")
	return role, nil
}

// UpdateRole changes display fields. The key stays as created.
func (s *Service) UpdateRole(ctx context.Context, caller *models.Principal, id string, patch RolePatch) (*models.GlobalRole, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, validation("name cannot be empty")
	}
	if patch.Hierarchy != nil && *patch.Hierarchy < 0 {
		return nil, validation("hierarchy cannot be negative")
	}

	updated, err := s.roles.Update(ctx, id, func(role *models.GlobalRole) error {
		if patch.Name != nil {
			role.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			role.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Hierarchy != nil {
			role.Hierarchy = patch.Hierarchy
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("update role", err)
	}
	if updated == nil {
		return nil, notFound("role", id)
	}
	return updated, nil
}

func (s *Service) SetRoleFlags(ctx context.Context, caller *models.Principal, id string, flags Flags) (*models.GlobalRole, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	if flags.empty() {
		return nil, validation("visible or enabled is required")
	}

	updated, err := s.roles.Update(ctx, id, func(role *models.GlobalRole) error {
		if flags.Visible != nil {
			role.Visible = *flags.Visible
		}
		if flags.Enabled != nil {
			role.Enabled = *flags.Enabled
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("update role flags", err)
	}
	if updated == nil {
		return nil, notFound("role", id)
	}
	return updated, nil
}

// DeleteRole removes the role and every assignment of it.
func (s *Service) DeleteRole(ctx context.Context, caller *models.Principal, id string) error {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return err
	}
	ok, err := s.roles.Delete(ctx, id)
	if err != nil {
		return storeErr("delete role", err)
	}
	if !ok {
		return notFound("role", id)
	}
	log.Info().Str("role_id", id).Str("deleted_by", caller.ID).Msg("role deleted")
	return nil
}
