package authz

import "adminhub/internal/platform/models"

type Action string

const (
	ActionCreate         Action = "create"
	ActionRead           Action = "read"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionManageUsers    Action = "manage_users"
	ActionManageSettings Action = "manage_settings"
	ActionViewReports    Action = "view_reports"
	ActionManageOrders   Action = "manage_orders"
	ActionManageProducts Action = "manage_products"
)

type Resource string

const (
	ResourceCompany  Resource = "company"
	ResourceUser     Resource = "user"
	ResourceOrder    Resource = "order"
	ResourceProduct  Resource = "product"
	ResourceCustomer Resource = "customer"
	ResourceSettings Resource = "settings"
	ResourceReport   Resource = "report"
)

var Resources = []Resource{
	ResourceCompany, ResourceUser, ResourceOrder, ResourceProduct,
	ResourceCustomer, ResourceSettings, ResourceReport,
}

var Actions = []Action{
	ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManageUsers,
	ActionManageSettings, ActionViewReports, ActionManageOrders, ActionManageProducts,
}

type actions []Action

// matrix has an entry, possibly empty, for every resource of every role.
var matrix = map[models.CompanyRole]map[Resource]actions{
	models.RoleOwner: {
		ResourceCompany:  {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManageSettings},
		ResourceUser:     {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManageUsers},
		ResourceOrder:    {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManageOrders},
		ResourceProduct:  {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManageProducts},
		ResourceCustomer: {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceSettings: {ActionRead, ActionUpdate, ActionManageSettings},
		ResourceReport:   {ActionRead, ActionViewReports},
	},
	models.RoleAdmin: {
		ResourceCompany:  {ActionRead, ActionUpdate, ActionManageSettings},
		ResourceUser:     {ActionCreate, ActionRead, ActionUpdate, ActionManageUsers},
		ResourceOrder:    {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManageOrders},
		ResourceProduct:  {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManageProducts},
		ResourceCustomer: {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceSettings: {ActionRead, ActionUpdate},
		ResourceReport:   {ActionRead, ActionViewReports},
	},
	models.RoleManager: {
		ResourceCompany:  {},
		ResourceUser:     {ActionRead},
		ResourceOrder:    {ActionCreate, ActionRead, ActionUpdate, ActionManageOrders},
		ResourceProduct:  {ActionCreate, ActionRead, ActionUpdate, ActionManageProducts},
		ResourceCustomer: {ActionCreate, ActionRead, ActionUpdate},
		ResourceSettings: {},
		ResourceReport:   {ActionRead, ActionViewReports},
	},
	models.RoleUser: {
		ResourceCompany:  {},
		ResourceUser:     {},
		ResourceOrder:    {ActionCreate, ActionRead},
		ResourceProduct:  {ActionRead},
		ResourceCustomer: {ActionRead},
		ResourceSettings: {},
		ResourceReport:   {},
	},
	models.RoleViewer: {
		ResourceCompany:  {},
		ResourceUser:     {},
		ResourceOrder:    {ActionRead},
		ResourceProduct:  {ActionRead},
		ResourceCustomer: {ActionRead},
		ResourceSettings: {},
		ResourceReport:   {ActionRead},
	},
}

// Can reports whether role may perform action on resource. Unknown roles,
// actions and resources are denied.
func Can(role models.CompanyRole, action Action, resource Resource) bool {
	for _, a := range matrix[role][resource] {
		if a == action {
			return true
		}
	}
	return false
}

func Cannot(role models.CompanyRole, action Action, resource Resource) bool {
	return !Can(role, action, resource)
}

// PermissionsFor returns a copy of the role's row of the matrix. Unknown
// roles get an empty entry for every resource.
func PermissionsFor(role models.CompanyRole) map[Resource][]Action {
	out := make(map[Resource][]Action, len(Resources))
	for _, res := range Resources {
		allowed := matrix[role][res]
		out[res] = append([]Action{}, allowed...)
	}
	return out
}
