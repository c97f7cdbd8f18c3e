package catalog

import (
	"context"

	"github.com/rs/zerolog/log"

	"adminhub/internal/platform/models"
)

func (s *Service) AssignRole(ctx context.Context, caller *models.Principal, userID, roleID string) (*models.RoleAssignment, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	if roleID == "" {
		return nil, validation("roleId is required")
	}
	if err := s.requireProfile(ctx, userID); err != nil {
		return nil, err
	}
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, storeErr("load role", err)
	}
	if role == nil {
		return nil, notFound("role", roleID)
	}

	a := &models.RoleAssignment{UserID: userID, RoleID: roleID, Enabled: true, Visible: true, Role: role}
	if err := s.assignments.Assign(ctx, a); err != nil {
		return nil, storeErr("assign role", err)
	}

	log.Info().Str("user_id", userID).Str("role_id", roleID).Str("assigned_by", caller.ID).Msg("role assigned")
	return a, nil
}

// SetAssignmentFlags enables, disables, shows or hides one assignment.
func (s *Service) SetAssignmentFlags(ctx context.Context, caller *models.Principal, userID, roleID string, flags Flags) (*models.RoleAssignment, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	if flags.empty() {
		return nil, validation("visible or enabled is required")
	}

	updated, err := s.assignments.SetFlags(ctx, userID, roleID, flags.Enabled, flags.Visible)
	if err != nil {
		return nil, storeErr("update assignment", err)
	}
	if updated == nil {
		return nil, notFound("assignment", userID+"/"+roleID)
	}
	return updated, nil
}

func (s *Service) ListAssignments(ctx context.Context, caller *models.Principal, userID string) ([]*models.RoleAssignment, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListForUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list assignments", err)
	}
	return assignments, nil
}

// RolesFor returns the viewer's own enabled assignments. Hidden assignments
// and hidden roles are dropped unless the viewer is a system administrator.
func (s *Service) RolesFor(ctx context.Context, viewer *models.Principal) ([]*models.RoleAssignment, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	assignments, err := s.assignments.ListForUser(ctx, viewer.ID)
	if err != nil {
		return nil, storeErr("list assignments", err)
	}

	out := []*models.RoleAssignment{}
	for _, a := range assignments {
		if !a.Enabled {
			continue
		}
		if !seesHidden(viewer) && (!a.Visible || (a.Role != nil && !a.Role.Visible)) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
