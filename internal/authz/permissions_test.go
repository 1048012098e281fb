package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsFor_KnownRoles(t *testing.T) {
	t.Run("admin получает все права", func(t *testing.T) {
		perms := PermissionsFor(RoleAdmin)
		assert.True(t, perms[WorkOrdersViewAll])
		assert.True(t, perms[WorkOrdersViewFinance])
		assert.True(t, perms[RequestsProcess])
		assert.Len(t, perms, 8)
	})

	t.Run("executor видит только своё", func(t *testing.T) {
		perms := PermissionsFor(RoleExecutor)
		assert.True(t, perms[WorkOrdersViewOwn])
		assert.True(t, perms[WorkOrdersEditAssigned])
		assert.False(t, perms[WorkOrdersViewFinance])
		assert.False(t, perms[WorkOrdersViewAll])
	})

	t.Run("master может менять статус, но не видит финансы", func(t *testing.T) {
		perms := PermissionsFor(RoleMaster)
		assert.True(t, perms[WorkOrdersChangeStatus])
		assert.False(t, perms[WorkOrdersViewFinance])
	})
}

func TestPermissionsFor_UnknownRole(t *testing.T) {
	// Неизвестная роль — пустой набор, без ошибок.
	perms := PermissionsFor(Role("SUPPLIER"))
	require.NotNil(t, perms)
	assert.Empty(t, perms)

	perms = PermissionsFor(Role(""))
	assert.Empty(t, perms)
}

func TestPermissionsFor_ReturnsCopy(t *testing.T) {
	perms := PermissionsFor(RoleExecutor)
	perms[WorkOrdersViewFinance] = true

	again := PermissionsFor(RoleExecutor)
	assert.False(t, again[WorkOrdersViewFinance], "таблица прав не должна мутироваться снаружи")
}

func TestCurrentUser_HasPermission(t *testing.T) {
	user := CurrentUserFrom(7, RoleManager)
	assert.Equal(t, uint64(7), user.ID)
	assert.True(t, user.HasPermission(WorkOrdersViewAll))
	assert.False(t, user.HasPermission(WorkOrdersEditAssigned))

	// Пустой пользователь ничего не может.
	var empty CurrentUser
	assert.False(t, empty.HasPermission(WorkOrdersViewAll))
}
