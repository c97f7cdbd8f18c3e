// Package catalog manages companies, global roles, company memberships and
// global role assignments. Non-system-administrators only ever see visible
// rows; every mutation passes the privileged gate first.
package catalog

import (
	"context"
	stderrors "errors"
	"fmt"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/models"
	"adminhub/internal/platform/repositories"
)

type Authorizer interface {
	Authorize(ctx context.Context, principal *models.Principal) error
}

type CompanyStore interface {
	Create(ctx context.Context, c *models.Company) error
	GetByID(ctx context.Context, id string) (*models.Company, error)
	GetBySlug(ctx context.Context, slug string) (*models.Company, error)
	SlugTaken(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context, f repositories.CompanyFilter) ([]*models.Company, error)
	Update(ctx context.Context, id string, fn func(c *models.Company) error) (*models.Company, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type RoleStore interface {
	Create(ctx context.Context, role *models.GlobalRole) error
	GetByID(ctx context.Context, id string) (*models.GlobalRole, error)
	List(ctx context.Context, visibleOnly bool) ([]*models.GlobalRole, error)
	Update(ctx context.Context, id string, fn func(role *models.GlobalRole) error) (*models.GlobalRole, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type MembershipStore interface {
	Create(ctx context.Context, m *models.Membership) error
	ListForProfile(ctx context.Context, profileID string, activeOnly bool) ([]*models.Membership, error)
	Update(ctx context.Context, id string, fn func(m *models.Membership) error) (*models.Membership, error)
}

type AssignmentStore interface {
	Assign(ctx context.Context, a *models.RoleAssignment) error
	ListForUser(ctx context.Context, userID string) ([]*models.RoleAssignment, error)
	SetFlags(ctx context.Context, userID, roleID string, enabled, visible *bool) (*models.RoleAssignment, error)
}

type ProfileLookup interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// Flags toggles the visible/enabled pair of a row. Nil leaves a flag as is.
type Flags struct {
	Visible *bool `json:"visible"`
	Enabled *bool `json:"enabled"`
}

func (f Flags) empty() bool {
	return f.Visible == nil && f.Enabled == nil
}

type Service struct {
	gate        Authorizer
	companies   CompanyStore
	roles       RoleStore
	memberships MembershipStore
	assignments AssignmentStore
	profiles    ProfileLookup
}

func NewService(gate Authorizer, companies CompanyStore, roles RoleStore, memberships MembershipStore, assignments AssignmentStore, profiles ProfileLookup) *Service {
	return &Service{
		gate:        gate,
		companies:   companies,
		roles:       roles,
		memberships: memberships,
		assignments: assignments,
		profiles:    profiles,
	}
}

func seesHidden(viewer *models.Principal) bool {
	return viewer != nil && viewer.IsSystemAdministrator
}

func requireViewer(viewer *models.Principal) error {
	if viewer == nil || viewer.ID == "" {
		return errors.ErrUnauthenticated
	}
	return nil
}

// storeErr keeps caller-facing kinds and turns everything else into a
// dependency failure.
func storeErr(op string, err error) error {
	for _, kind := range []error{errors.ErrConflict, errors.ErrValidation, errors.ErrNotFound} {
		if stderrors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", errors.ErrDependency, op, err)
}

func validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errors.ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(what, id string) error {
	return fmt.Errorf("%w: %s %s", errors.ErrNotFound, what, id)
}

func conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errors.ErrConflict, fmt.Sprintf(format, args...))
}
