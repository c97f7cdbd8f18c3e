package catalog

import (
	"sort"

	"adminhub/internal/platform/models"
)

// SortRoles orders roles by hierarchy ascending with unranked roles last,
// then by name.
func SortRoles(roles []*models.GlobalRole) {
	sort.SliceStable(roles, func(i, j int) bool {
		a, b := roles[i].Hierarchy, roles[j].Hierarchy
		switch {
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		case a != nil && b != nil && *a != *b:
			return *a < *b
		}
		return roles[i].Name < roles[j].Name
	})
}
