package services

import (
	"testing"

	"workshop-system/internal/dto"
	"workshop-system/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uptr(v uint64) *uint64 { return &v }

func amountByType(assignments []entities.WorkOrderExecutor, wt entities.WorkType) (float64, bool) {
	for _, a := range assignments {
		if a.WorkType == wt {
			return a.Amount, true
		}
	}
	return 0, false
}

func TestExpandAssignments_Armatura(t *testing.T) {
	payload := AssignmentPayload{
		ArmaturaExecutors: &dto.ArmaturaExecutorsDTO{
			Dismantling: uptr(10),
			Disassembly: uptr(11),
			Assembly:    uptr(12),
			Mounting:    uptr(13),
		},
	}

	assignments := ExpandAssignments(1, payload, 100000)
	require.Len(t, assignments, 4)

	dism, _ := amountByType(assignments, entities.WorkTypeArmaturaDismantling)
	disasm, _ := amountByType(assignments, entities.WorkTypeArmaturaDisassembly)
	asm, _ := amountByType(assignments, entities.WorkTypeArmaturaAssembly)
	mount, _ := amountByType(assignments, entities.WorkTypeArmaturaMounting)

	assert.Equal(t, 7000.0, dism)
	assert.Equal(t, 3000.0, disasm)
	assert.Equal(t, 3000.0, asm)
	assert.Equal(t, 7000.0, mount)

	for _, a := range assignments {
		assert.Equal(t, entities.TaskStatusPending, a.Metadata.Status)
		assert.False(t, a.IsPaid)
		assert.Equal(t, uint64(1), a.WorkOrderID)
	}
}

func TestExpandAssignments_ArmaturaPartialSlots(t *testing.T) {
	// Заполнен один слот — одно назначение.
	payload := AssignmentPayload{
		ArmaturaExecutors: &dto.ArmaturaExecutorsDTO{Mounting: uptr(5)},
	}

	assignments := ExpandAssignments(1, payload, 50000)
	require.Len(t, assignments, 1)
	assert.Equal(t, entities.WorkTypeArmaturaMounting, assignments[0].WorkType)
	assert.Equal(t, uint64(5), assignments[0].ExecutorID)
	assert.Equal(t, 3500.0, assignments[0].Amount)
}

func TestExpandAssignments_FixedServices(t *testing.T) {
	payload := AssignmentPayload{
		FixedServices: &dto.FixedServicesDTO{
			BrakeCalipers: &dto.RemoveInstallDTO{RemovedBy: uptr(2), InstalledBy: uptr(3)},
			Wheels:        &dto.RemoveInstallDTO{RemovedBy: uptr(2)},
		},
	}

	assignments := ExpandAssignments(1, payload, 0)
	require.Len(t, assignments, 3)

	bcRemove, ok := amountByType(assignments, entities.WorkTypeFixedBrakeCalipersRemove)
	require.True(t, ok)
	assert.Equal(t, 2500.0, bcRemove)

	bcInstall, ok := amountByType(assignments, entities.WorkTypeFixedBrakeCalipersInstall)
	require.True(t, ok)
	assert.Equal(t, 2500.0, bcInstall)

	whRemove, ok := amountByType(assignments, entities.WorkTypeFixedWheelsRemove)
	require.True(t, ok)
	assert.Equal(t, 500.0, whRemove)

	_, ok = amountByType(assignments, entities.WorkTypeFixedWheelsInstall)
	assert.False(t, ok, "установка колёс не заказана")
}

func TestExpandAssignments_BodyParts(t *testing.T) {
	payload := AssignmentPayload{
		BodyPartsData: map[string]dto.BodyPartDTO{
			"передний бампер": {ExecutorID: 7, Quantity: 3},
			"капот":           {ExecutorID: 8, Quantity: 1},
		},
	}

	assignments := ExpandAssignments(1, payload, 0)
	require.Len(t, assignments, 2)

	for _, a := range assignments {
		assert.Equal(t, entities.WorkTypeBodyPart, a.WorkType)
		require.NotNil(t, a.ServiceType)
		require.NotNil(t, a.Description)
		switch *a.ServiceType {
		case "передний бампер":
			assert.Equal(t, 1200.0, a.Amount)
			assert.Equal(t, "передний бампер × 3", *a.Description)
		case "капот":
			assert.Equal(t, 400.0, a.Amount)
		default:
			t.Fatalf("неожиданный элемент: %s", *a.ServiceType)
		}
	}
}

func TestExpandAssignments_WheelPaintingTwoRows(t *testing.T) {
	payload := AssignmentPayload{
		ServicesData: &dto.ServicesDataDTO{
			WheelPainting: &dto.WheelPaintingDTO{
				ExecutorID:         4,
				Amount:             6000,
				MountingExecutorID: uptr(5),
				MountingAmount:     1500,
			},
		},
	}

	assignments := ExpandAssignments(1, payload, 0)
	require.Len(t, assignments, 2)

	painting, ok := amountByType(assignments, entities.WorkTypeServiceWheelPainting)
	require.True(t, ok)
	assert.Equal(t, 6000.0, painting)

	mounting, ok := amountByType(assignments, entities.WorkTypeServiceWheelPaintingMounting)
	require.True(t, ok)
	assert.Equal(t, 1500.0, mounting)
}

func TestExpandAssignments_AdditionalServices(t *testing.T) {
	payload := AssignmentPayload{
		AdditionalServices: []dto.AdditionalServiceDTO{
			{Name: "замена торпедо", ExecutorID: 9, Amount: 4000},
			{Name: "пропущен", ExecutorID: 0, Amount: 100},
		},
	}

	assignments := ExpandAssignments(1, payload, 0)
	require.Len(t, assignments, 1)
	assert.Equal(t, entities.WorkTypeArmaturaAdditional, assignments[0].WorkType)
	require.NotNil(t, assignments[0].ServiceType)
	assert.Equal(t, "замена торпедо", *assignments[0].ServiceType)
	assert.Equal(t, 4000.0, assignments[0].Amount)
}

func TestExpandAssignments_EmptyPayload(t *testing.T) {
	assignments := ExpandAssignments(1, AssignmentPayload{}, 100000)
	assert.Empty(t, assignments)
}

func TestInitialWorkOrderStatus(t *testing.T) {
	t.Run("назначения есть — сразу исполнителям", func(t *testing.T) {
		assert.Equal(t, entities.WorkOrderStatusAssignedToExecutor, InitialWorkOrderStatus(true, nil))
		// Назначения важнее мастера.
		assert.Equal(t, entities.WorkOrderStatusAssignedToExecutor, InitialWorkOrderStatus(true, uptr(3)))
	})

	t.Run("назначений нет, мастер есть", func(t *testing.T) {
		assert.Equal(t, entities.WorkOrderStatusAssignedToMaster, InitialWorkOrderStatus(false, uptr(3)))
	})

	t.Run("пустой заказ-наряд", func(t *testing.T) {
		assert.Equal(t, entities.WorkOrderStatusNew, InitialWorkOrderStatus(false, nil))
	})
}

func TestRecalculateArmaturaAmount(t *testing.T) {
	amount, ok := RecalculateArmaturaAmount(entities.WorkTypeArmaturaDismantling, 200000)
	require.True(t, ok)
	assert.Equal(t, 14000.0, amount)

	// Идемпотентность.
	again, _ := RecalculateArmaturaAmount(entities.WorkTypeArmaturaDismantling, 200000)
	assert.Equal(t, amount, again)

	// Не-арматурные типы не пересчитываются.
	_, ok = RecalculateArmaturaAmount(entities.WorkTypeFixedWheelsRemove, 200000)
	assert.False(t, ok)
	_, ok = RecalculateArmaturaAmount(entities.WorkTypeArmaturaAdditional, 200000)
	assert.False(t, ok, "дополнительные работы имеют договорную сумму")
}

func TestArmaturaAmountsRoundedToKopecks(t *testing.T) {
	// Процент в двоичном float даёт хвост (100000*0.07 = 7000.000000000001);
	// суммы приводятся к точности колонки NUMERIC(14,2).
	amount, ok := RecalculateArmaturaAmount(entities.WorkTypeArmaturaDismantling, 100000)
	require.True(t, ok)
	assert.Equal(t, 7000.0, amount)

	amount, _ = RecalculateArmaturaAmount(entities.WorkTypeArmaturaDismantling, 99999)
	assert.Equal(t, 6999.93, amount)

	amount, _ = RecalculateArmaturaAmount(entities.WorkTypeArmaturaDisassembly, 99999)
	assert.Equal(t, 2999.97, amount)

	payload := AssignmentPayload{
		ArmaturaExecutors: &dto.ArmaturaExecutorsDTO{Mounting: uptr(5)},
	}
	assignments := ExpandAssignments(1, payload, 100000)
	require.Len(t, assignments, 1)
	assert.Equal(t, 7000.0, assignments[0].Amount)
}
