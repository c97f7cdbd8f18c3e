package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"adminhub/internal/engine/authz"
	"adminhub/internal/platform/models"
)

type MemberInput struct {
	CompanyID string `json:"companyId"`
	Role      string `json:"role"`
}

func parseRoleOrDefault(role string) (models.CompanyRole, error) {
	if role == "" {
		return models.RoleUser, nil
	}
	return authz.ParseCompanyRole(role)
}

func (s *Service) requireProfile(ctx context.Context, id string) error {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return storeErr("load user", err)
	}
	if p == nil {
		return notFound("user", id)
	}
	return nil
}

// AddMember puts a user in a company. A previously removed membership is
// reactivated with the new role instead of duplicated.
func (s *Service) AddMember(ctx context.Context, caller *models.Principal, profileID string, in MemberInput) (*models.Membership, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	if in.CompanyID == "" {
		return nil, validation("companyId is required")
	}
	role, err := parseRoleOrDefault(in.Role)
	if err != nil {
		return nil, err
	}

	if err := s.requireProfile(ctx, profileID); err != nil {
		return nil, err
	}
	company, err := s.companies.GetByID(ctx, in.CompanyID)
	if err != nil {
		return nil, storeErr("load company", err)
	}
	if company == nil {
		return nil, notFound("company", in.CompanyID)
	}

	existing, err := s.memberships.ListForProfile(ctx, profileID, false)
	if err != nil {
		return nil, storeErr("list memberships", err)
	}
	for _, m := range existing {
		if m.CompanyID != in.CompanyID {
			continue
		}
		if m.IsActive {
			return nil, conflict("user %s already belongs to company %s", profileID, in.CompanyID)
		}
		updated, err := s.memberships.Update(ctx, m.ID, func(m *models.Membership) error {
			m.Role = role
			m.IsActive = true
			m.Visible = true
			m.Enabled = true
			return nil
		})
		if err != nil {
			return nil, storeErr("reactivate membership", err)
		}
		if updated == nil {
			return nil, notFound("membership", m.ID)
		}
		return updated, nil
	}

	m := &models.Membership{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		CompanyID: in.CompanyID,
		Role:      role,
		IsActive:  true,
		Visible:   true,
		Enabled:   true,
	}
	if err := s.memberships.Create(ctx, m); err != nil {
		return nil, storeErr("create membership", err)
	}

	log.Info().Str("user_id", profileID).Str("company_id", in.CompanyID).Str("role", string(role)).Msg("membership added")
	return m, nil
}

func (s *Service) ChangeMemberRole(ctx context.Context, caller *models.Principal, membershipID, role string) (*models.Membership, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	parsed, err := authz.ParseCompanyRole(role)
	if err != nil {
		return nil, err
	}

	updated, err := s.memberships.Update(ctx, membershipID, func(m *models.Membership) error {
		m.Role = parsed
		return nil
	})
	if err != nil {
		return nil, storeErr("update membership", err)
	}
	if updated == nil {
		return nil, notFound("membership", membershipID)
	}
	return updated, nil
}

// RemoveMember deactivates and hides the membership; the row is kept.
func (s *Service) RemoveMember(ctx context.Context, caller *models.Principal, membershipID string) (*models.Membership, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}

	updated, err := s.memberships.Update(ctx, membershipID, func(m *models.Membership) error {
		m.IsActive = false
		m.Visible = false
		return nil
	})
	if err != nil {
		return nil, storeErr("remove membership", err)
	}
	if updated == nil {
		return nil, notFound("membership", membershipID)
	}
	return updated, nil
}

// CompaniesFor lists the viewer's active memberships with their companies.
func (s *Service) CompaniesFor(ctx context.Context, viewer *models.Principal) ([]*models.Membership, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	memberships, err := s.memberships.ListForProfile(ctx, viewer.ID, true)
	if err != nil {
		return nil, storeErr("list memberships", err)
	}
	if seesHidden(viewer) {
		return memberships, nil
	}

	visible := memberships[:0]
	for _, m := range memberships {
		if m.Company == nil || m.Company.Visible {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// ListMemberships is the administrative view of a user's memberships,
// including removed ones.
func (s *Service) ListMemberships(ctx context.Context, caller *models.Principal, profileID string) ([]*models.Membership, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	memberships, err := s.memberships.ListForProfile(ctx, profileID, false)
	if err != nil {
		return nil, storeErr("list memberships", err)
	}
	return memberships, nil
}
