package authz

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/pkg/metrics"
	"adminhub/internal/platform/models"
)

type ProfileLookup interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

type AssignmentLookup interface {
	ListEnabled(ctx context.Context, userID string) ([]*models.RoleAssignment, error)
}

// Gate guards privileged operations. A caller passes if their profile is a
// system administrator or if they hold any enabled global role; which role
// it is does not matter.
type Gate struct {
	profiles    ProfileLookup
	assignments AssignmentLookup
}

func NewGate(profiles ProfileLookup, assignments AssignmentLookup) *Gate {
	return &Gate{profiles: profiles, assignments: assignments}
}

// Authorize returns nil when principal may perform privileged operations.
func (g *Gate) Authorize(ctx context.Context, principal *models.Principal) error {
	if principal == nil || principal.ID == "" {
		record("unauthenticated", "")
		return errors.ErrUnauthenticated
	}

	profile, err := g.profiles.GetByID(ctx, principal.ID)
	if err != nil {
		record("check_failed", principal.ID)
		return fmt.Errorf("%w: profile lookup: %v", errors.ErrAuthorizationCheckFailed, err)
	}
	if profile == nil {
		record("check_failed", principal.ID)
		return fmt.Errorf("%w: no profile for %s", errors.ErrAuthorizationCheckFailed, principal.ID)
	}

	if profile.IsSystemAdministrator {
		record("allow_sysadmin", principal.ID)
		return nil
	}

	assignments, err := g.assignments.ListEnabled(ctx, principal.ID)
	if err != nil {
		record("check_failed", principal.ID)
		return fmt.Errorf("%w: role lookup: %v", errors.ErrAuthorizationCheckFailed, err)
	}
	if len(assignments) > 0 {
		record("allow_role", principal.ID)
		return nil
	}

	record("deny", principal.ID)
	return errors.ErrForbidden
}

func record(outcome, userID string) {
	metrics.GateDecisions.WithLabelValues(outcome).Inc()
	log.Debug().Str("outcome", outcome).Str("user_id", userID).Msg("privileged gate decision")
}
