package authz

// --- РОЛИ И ПРАВА ДОСТУПА ---

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleMaster   Role = "MASTER"
	RoleExecutor Role = "EXECUTOR"
)

type Permission string

const (
	// Заявки (Requests)
	RequestsViewAll Permission = "requests:view_all"
	RequestsProcess Permission = "requests:process"

	// Заказ-наряды (Work Orders)
	WorkOrdersViewAll      Permission = "work_orders:view_all"
	WorkOrdersViewOwn      Permission = "work_orders:view_own"
	WorkOrdersEditAll      Permission = "work_orders:edit_all"
	WorkOrdersEditAssigned Permission = "work_orders:edit_assigned"
	WorkOrdersViewFinance  Permission = "work_orders:view_finance"
	WorkOrdersChangeStatus Permission = "work_orders:change_status"
)

type PermissionSet map[Permission]bool

// rolePermissions — неизменяемая таблица роль→права, собирается один раз при старте.
var rolePermissions = map[Role]PermissionSet{
	RoleAdmin: {
		RequestsViewAll:        true,
		RequestsProcess:        true,
		WorkOrdersViewAll:      true,
		WorkOrdersViewOwn:      true,
		WorkOrdersEditAll:      true,
		WorkOrdersEditAssigned: true,
		WorkOrdersViewFinance:  true,
		WorkOrdersChangeStatus: true,
	},
	RoleManager: {
		RequestsViewAll:        true,
		RequestsProcess:        true,
		WorkOrdersViewAll:      true,
		WorkOrdersEditAll:      true,
		WorkOrdersViewFinance:  true,
		WorkOrdersChangeStatus: true,
	},
	RoleMaster: {
		WorkOrdersViewOwn:      true,
		WorkOrdersChangeStatus: true,
	},
	RoleExecutor: {
		WorkOrdersViewOwn:      true,
		WorkOrdersEditAssigned: true,
	},
}

// PermissionsFor возвращает набор прав роли. Неизвестная роль — пустой набор, не ошибка.
func PermissionsFor(role Role) PermissionSet {
	perms, ok := rolePermissions[role]
	if !ok {
		return PermissionSet{}
	}
	// Копия, чтобы вызывающий не мог изменить таблицу.
	out := make(PermissionSet, len(perms))
	for p := range perms {
		out[p] = true
	}
	return out
}

// IsSupervisor — надзорные роли, которым разрешены операции над чужими заказ-нарядами.
func IsSupervisor(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager:
		return true
	case RoleMaster, RoleExecutor:
		return false
	}
	return false
}
