package authz

import (
	"context"
	"fmt"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/models"
)

type MembershipLookup interface {
	GetActive(ctx context.Context, profileID, companyID string) (*models.Membership, error)
}

// Evaluator answers company-scoped permission questions by resolving the
// user's membership role and applying the static matrix.
type Evaluator struct {
	memberships MembershipLookup
}

func NewEvaluator(memberships MembershipLookup) *Evaluator {
	return &Evaluator{memberships: memberships}
}

// RoleIn returns the user's role in the company. ok is false when there is no
// active, visible and enabled membership.
func (e *Evaluator) RoleIn(ctx context.Context, userID, companyID string) (role models.CompanyRole, ok bool, err error) {
	if userID == "" || companyID == "" {
		return "", false, nil
	}

	m, err := e.memberships.GetActive(ctx, userID, companyID)
	if err != nil {
		return "", false, fmt.Errorf("%w: membership lookup: %v", errors.ErrDependency, err)
	}
	if m == nil {
		return "", false, nil
	}
	return m.Role, true, nil
}

func (e *Evaluator) CanInCompany(ctx context.Context, userID, companyID string, action Action, resource Resource) (bool, error) {
	role, ok, err := e.RoleIn(ctx, userID, companyID)
	if err != nil || !ok {
		return false, err
	}
	return Can(role, action, resource), nil
}
