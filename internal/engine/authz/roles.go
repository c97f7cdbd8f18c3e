package authz

import (
	"fmt"
	"strings"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/models"
)

var roleRank = map[models.CompanyRole]int{
	models.RoleOwner:   5,
	models.RoleAdmin:   4,
	models.RoleManager: 3,
	models.RoleUser:    2,
	models.RoleViewer:  1,
}

// CompanyRoles lists the known roles from highest to lowest.
var CompanyRoles = []models.CompanyRole{
	models.RoleOwner,
	models.RoleAdmin,
	models.RoleManager,
	models.RoleUser,
	models.RoleViewer,
}

// Rank returns the role's position in the hierarchy; unknown roles rank 0.
func Rank(role models.CompanyRole) int {
	return roleRank[role]
}

func HasRoleOrHigher(actual, threshold models.CompanyRole) bool {
	return Rank(actual) >= Rank(threshold)
}

// HasRole reports whether role is one of roles.
func HasRole(role models.CompanyRole, roles ...models.CompanyRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func ParseCompanyRole(s string) (models.CompanyRole, error) {
	role := models.CompanyRole(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleRank[role]; !ok {
		return "", fmt.Errorf("%w: unknown company role %q", errors.ErrValidation, s)
	}
	return role, nil
}
