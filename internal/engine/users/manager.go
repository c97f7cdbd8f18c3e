// Package users implements the administrative user lifecycle: creation with
// compensation, field updates, deletion guards and password resets.
package users

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"adminhub/internal/engine/authz"
	"adminhub/internal/pkg/errors"
	"adminhub/internal/pkg/metrics"
	"adminhub/internal/pkg/validator"
	"adminhub/internal/platform/identity"
	"adminhub/internal/platform/models"
)

const DefaultProtectedEmail = "solve.seeker.dev@gmail.com"

// ProtectedAccount identifies the one account nobody may delete. Either
// field matching is enough.
type ProtectedAccount struct {
	ID    string
	Email string
}

func (p ProtectedAccount) Matches(profile *models.Profile) bool {
	if profile == nil {
		return false
	}
	if p.ID != "" && profile.ID == p.ID {
		return true
	}
	return p.Email != "" && strings.EqualFold(profile.Email, p.Email)
}

type Config struct {
	DefaultPassword   string
	MinPasswordLength int
	Protected         ProtectedAccount
}

type Authorizer interface {
	Authorize(ctx context.Context, principal *models.Principal) error
}

type IdentityAdmin interface {
	AdminCreate(ctx context.Context, params identity.CreateParams) (string, error)
	AdminDelete(ctx context.Context, id string) error
	AdminUpdatePassword(ctx context.Context, id, password string) error
}

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Create(ctx context.Context, p *models.Profile) error
	Update(ctx context.Context, id string, fn func(p *models.Profile) error) (*models.Profile, error)
}

type MembershipStore interface {
	Create(ctx context.Context, m *models.Membership) error
}

type AssignmentStore interface {
	Assign(ctx context.Context, a *models.RoleAssignment) error
}

type Manager struct {
	cfg         Config
	gate        Authorizer
	identities  IdentityAdmin
	profiles    ProfileStore
	memberships MembershipStore
	assignments AssignmentStore
}

func NewManager(cfg Config, gate Authorizer, identities IdentityAdmin, profiles ProfileStore, memberships MembershipStore, assignments AssignmentStore) *Manager {
	if cfg.DefaultPassword == "" {
		cfg.DefaultPassword = "CambiaTuClave"
	}
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = 6
	}
	if cfg.Protected.ID == "" && cfg.Protected.Email == "" {
		cfg.Protected.Email = DefaultProtectedEmail
	}
	return &Manager{
		cfg:         cfg,
		gate:        gate,
		identities:  identities,
		profiles:    profiles,
		memberships: memberships,
		assignments: assignments,
	}
}

type CreateRequest struct {
	Email        string
	FullName     string
	IsSysAdmin   bool
	CompanyID    string
	CompanyRole  string
	GlobalRoleID string
}

type CreatedUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

func (m *Manager) validateCreate(req *CreateRequest) (models.CompanyRole, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	if err := validator.Email(req.Email); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if err := validator.FullName(req.FullName); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	if req.CompanyID != "" && req.GlobalRoleID != "" {
		return "", fmt.Errorf("%w: choose either a company membership or a global role", errors.ErrValidation)
	}
	if req.CompanyID == "" {
		if req.CompanyRole != "" {
			return "", fmt.Errorf("%w: companyRole requires companyId", errors.ErrValidation)
		}
		return "", nil
	}

	if req.CompanyRole == "" {
		return models.RoleUser, nil
	}
	return authz.ParseCompanyRole(req.CompanyRole)
}

// Create provisions an identity, its profile and an optional initial role.
// Any failure after the identity exists deletes the identity again.
func (m *Manager) Create(ctx context.Context, caller *models.Principal, req CreateRequest) (*CreatedUser, error) {
	if err := m.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}

	role, err := m.validateCreate(&req)
	if err != nil {
		return nil, err
	}
	if req.IsSysAdmin {
		if err := m.requireSysAdmin(ctx, caller); err != nil {
			return nil, err
		}
	}

	id, err := m.identities.AdminCreate(ctx, identity.CreateParams{
		Email:          req.Email,
		Password:       m.cfg.DefaultPassword,
		EmailConfirmed: true,
		Metadata:       map[string]interface{}{"full_name": req.FullName},
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrConflict) {
			return nil, fmt.Errorf("%w: email %s is already registered", errors.ErrConflict, req.Email)
		}
		return nil, fmt.Errorf("%w: create identity: %v", errors.ErrDependency, err)
	}

	creator := caller.ID
	profile := &models.Profile{
		ID:                    id,
		Email:                 req.Email,
		FullName:              req.FullName,
		IsActive:              true,
		IsSystemAdministrator: req.IsSysAdmin,
		Creator:               &creator,
	}
	if err := m.profiles.Create(ctx, profile); err != nil {
		return nil, m.rollback(ctx, id, fmt.Errorf("%w: create profile: %v", errors.ErrDependency, err))
	}

	switch {
	case req.CompanyID != "":
		membership := &models.Membership{
			ID:        uuid.NewString(),
			ProfileID: id,
			CompanyID: req.CompanyID,
			Role:      role,
			IsActive:  true,
			Visible:   true,
			Enabled:   true,
		}
		if err := m.memberships.Create(ctx, membership); err != nil {
			return nil, m.rollback(ctx, id, fmt.Errorf("%w: create membership: %v", errors.ErrDependency, err))
		}
	case req.GlobalRoleID != "":
		assignment := &models.RoleAssignment{UserID: id, RoleID: req.GlobalRoleID, Enabled: true, Visible: true}
		if err := m.assignments.Assign(ctx, assignment); err != nil {
			return nil, m.rollback(ctx, id, fmt.Errorf("%w: assign role: %v", errors.ErrDependency, err))
		}
	}

	log.Info().Str("user_id", id).Str("creator", caller.ID).Msg("user created")
	return &CreatedUser{ID: id, Email: req.Email, FullName: req.FullName}, nil
}

// requireSysAdmin fails unless the caller's own profile is a system
// administrator.
func (m *Manager) requireSysAdmin(ctx context.Context, caller *models.Principal) error {
	profile, err := m.profiles.GetByID(ctx, caller.ID)
	if err != nil {
		return fmt.Errorf("%w: profile lookup: %v", errors.ErrAuthorizationCheckFailed, err)
	}
	if profile == nil || !profile.IsSystemAdministrator {
		log.Warn().Str("caller", caller.ID).Msg("non-administrator tried to create a system administrator")
		return fmt.Errorf("%w: only system administrators may create system administrators", errors.ErrForbidden)
	}
	return nil
}

func (m *Manager) rollback(ctx context.Context, id string, cause error) error {
	if err := m.identities.AdminDelete(ctx, id); err != nil {
		metrics.UserCreateRollbacks.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("user_id", id).Msg("rollback of identity failed, orphan left for reconciliation")
		return stderrors.Join(cause, fmt.Errorf("rollback identity %s: %w", id, err))
	}

	metrics.UserCreateRollbacks.WithLabelValues("ok").Inc()
	log.Warn().Err(cause).Str("user_id", id).Msg("user creation rolled back")
	return cause
}

type UpdateRequest struct {
	IsActive bool
	FullName *string
}

func (m *Manager) UpdateFields(ctx context.Context, caller *models.Principal, targetID string, req UpdateRequest) (*models.Profile, error) {
	if err := m.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if err := validator.FullName(name); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrValidation, err)
		}
		req.FullName = &name
	}

	profile, err := m.profiles.Update(ctx, targetID, func(p *models.Profile) error {
		p.IsActive = req.IsActive
		if req.FullName != nil {
			p.FullName = *req.FullName
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: update profile: %v", errors.ErrDependency, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: user %s", errors.ErrNotFound, targetID)
	}
	return profile, nil
}

// Delete removes the target's identity; the profile goes with it by cascade.
// Self-deletion and the protected account are refused before the gate runs.
func (m *Manager) Delete(ctx context.Context, caller *models.Principal, targetID string) error {
	if caller == nil || caller.ID == "" {
		return errors.ErrUnauthenticated
	}
	if caller.ID == targetID {
		return errors.ErrCannotDeleteSelf
	}

	target, err := m.profiles.GetByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("%w: load user: %v", errors.ErrDependency, err)
	}
	if m.cfg.Protected.Matches(target) || (target == nil && m.cfg.Protected.ID == targetID) {
		log.Warn().Str("caller", caller.ID).Str("target", targetID).Msg("attempt to delete protected account")
		return errors.ErrCannotDeleteProtectedAccount
	}

	if err := m.gate.Authorize(ctx, caller); err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("%w: user %s", errors.ErrNotFound, targetID)
	}

	if err := m.identities.AdminDelete(ctx, targetID); err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: delete identity: %v", errors.ErrDependency, err)
	}

	log.Info().Str("user_id", targetID).Str("deleted_by", caller.ID).Msg("user deleted")
	return nil
}

func (m *Manager) ChangePassword(ctx context.Context, caller *models.Principal, targetID, password string) error {
	if err := m.gate.Authorize(ctx, caller); err != nil {
		return err
	}

	if err := validator.Password(password, m.cfg.MinPasswordLength); err != nil {
		return fmt.Errorf("%w: password must be at least %d characters", errors.ErrValidation, m.cfg.MinPasswordLength)
	}

	if err := m.identities.AdminUpdatePassword(ctx, targetID, password); err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: update password: %v", errors.ErrDependency, err)
	}
	return nil
}
