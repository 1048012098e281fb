package services

import (
	"fmt"
	"math"

	"workshop-system/internal/dto"
	"workshop-system/internal/entities"
)

// roundMoney приводит сумму к копейкам: колонка amount — NUMERIC(14,2),
// сервисный слой считает в той же точности.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// AssignmentPayload — группы составного payload создания/обновления заказ-наряда.
// Каждая заполненная группа разворачивается в атомарные назначения исполнителей.
type AssignmentPayload struct {
	ArmaturaExecutors  *dto.ArmaturaExecutorsDTO
	FixedServices      *dto.FixedServicesDTO
	BodyPartsData      map[string]dto.BodyPartDTO
	ServicesData       *dto.ServicesDataDTO
	AdditionalServices []dto.AdditionalServiceDTO
}

func (p AssignmentPayload) IsEmpty() bool {
	return p.ArmaturaExecutors == nil && p.FixedServices == nil &&
		p.BodyPartsData == nil && p.ServicesData == nil && p.AdditionalServices == nil
}

// Типы работ каждой группы: при обновлении группы её неоплаченные назначения
// удаляются и создаются заново.
var (
	armaturaGroupTypes = []entities.WorkType{
		entities.WorkTypeArmaturaDismantling,
		entities.WorkTypeArmaturaDisassembly,
		entities.WorkTypeArmaturaAssembly,
		entities.WorkTypeArmaturaMounting,
	}
	fixedGroupTypes = []entities.WorkType{
		entities.WorkTypeFixedBrakeCalipersRemove,
		entities.WorkTypeFixedBrakeCalipersInstall,
		entities.WorkTypeFixedWheelsRemove,
		entities.WorkTypeFixedWheelsInstall,
	}
	bodyPartsGroupTypes = []entities.WorkType{entities.WorkTypeBodyPart}
	servicesGroupTypes  = []entities.WorkType{
		entities.WorkTypeServiceFilm,
		entities.WorkTypeServiceDryCleaning,
		entities.WorkTypeServicePolishing,
		entities.WorkTypeServiceWheelPainting,
		entities.WorkTypeServiceWheelPaintingMounting,
		entities.WorkTypeServiceCarbon,
		entities.WorkTypeServiceSoundproofing,
		entities.WorkTypeServiceBonus,
	}
	additionalGroupTypes = []entities.WorkType{entities.WorkTypeArmaturaAdditional}
)

func newAssignment(workOrderID, executorID uint64, workType entities.WorkType, amount float64) entities.WorkOrderExecutor {
	return entities.WorkOrderExecutor{
		WorkOrderID: workOrderID,
		ExecutorID:  executorID,
		WorkType:    workType,
		Amount:      amount,
		Metadata:    entities.TaskMetadata{Status: entities.TaskStatusPending},
	}
}

// ExpandAssignments разворачивает составной payload в плоский список назначений.
// Порядок строк значения не имеет — назначения независимы.
func ExpandAssignments(workOrderID uint64, payload AssignmentPayload, totalAmount float64) []entities.WorkOrderExecutor {
	assignments := make([]entities.WorkOrderExecutor, 0)

	if arm := payload.ArmaturaExecutors; arm != nil {
		slots := []struct {
			executorID *uint64
			workType   entities.WorkType
		}{
			{arm.Dismantling, entities.WorkTypeArmaturaDismantling},
			{arm.Disassembly, entities.WorkTypeArmaturaDisassembly},
			{arm.Assembly, entities.WorkTypeArmaturaAssembly},
			{arm.Mounting, entities.WorkTypeArmaturaMounting},
		}
		for _, slot := range slots {
			if slot.executorID == nil {
				continue
			}
			amount := roundMoney(totalAmount * entities.ArmaturaPercentages[slot.workType])
			assignments = append(assignments, newAssignment(workOrderID, *slot.executorID, slot.workType, amount))
		}
	}

	if fixed := payload.FixedServices; fixed != nil {
		if bc := fixed.BrakeCalipers; bc != nil {
			if bc.RemovedBy != nil {
				assignments = append(assignments, newAssignment(workOrderID, *bc.RemovedBy, entities.WorkTypeFixedBrakeCalipersRemove, entities.BrakeCalipersFee))
			}
			if bc.InstalledBy != nil {
				assignments = append(assignments, newAssignment(workOrderID, *bc.InstalledBy, entities.WorkTypeFixedBrakeCalipersInstall, entities.BrakeCalipersFee))
			}
		}
		if wh := fixed.Wheels; wh != nil {
			if wh.RemovedBy != nil {
				assignments = append(assignments, newAssignment(workOrderID, *wh.RemovedBy, entities.WorkTypeFixedWheelsRemove, entities.WheelsFee))
			}
			if wh.InstalledBy != nil {
				assignments = append(assignments, newAssignment(workOrderID, *wh.InstalledBy, entities.WorkTypeFixedWheelsInstall, entities.WheelsFee))
			}
		}
	}

	for partName, part := range payload.BodyPartsData {
		if part.ExecutorID == 0 || part.Quantity <= 0 {
			continue
		}
		a := newAssignment(workOrderID, part.ExecutorID, entities.WorkTypeBodyPart, float64(part.Quantity)*entities.BodyPartUnitFee)
		name := partName
		a.ServiceType = &name
		desc := fmt.Sprintf("%s × %d", partName, part.Quantity)
		a.Description = &desc
		assignments = append(assignments, a)
	}

	if svc := payload.ServicesData; svc != nil {
		simple := []struct {
			payload  *dto.ServiceExecutorDTO
			workType entities.WorkType
		}{
			{svc.Film, entities.WorkTypeServiceFilm},
			{svc.DryCleaning, entities.WorkTypeServiceDryCleaning},
			{svc.Polishing, entities.WorkTypeServicePolishing},
			{svc.Carbon, entities.WorkTypeServiceCarbon},
			{svc.Soundproofing, entities.WorkTypeServiceSoundproofing},
			{svc.Bonus, entities.WorkTypeServiceBonus},
		}
		for _, s := range simple {
			if s.payload == nil || s.payload.ExecutorID == 0 {
				continue
			}
			assignments = append(assignments, newAssignment(workOrderID, s.payload.ExecutorID, s.workType, s.payload.Amount))
		}

		if wp := svc.WheelPainting; wp != nil {
			if wp.ExecutorID != 0 {
				assignments = append(assignments, newAssignment(workOrderID, wp.ExecutorID, entities.WorkTypeServiceWheelPainting, wp.Amount))
			}
			if wp.MountingExecutorID != nil {
				assignments = append(assignments, newAssignment(workOrderID, *wp.MountingExecutorID, entities.WorkTypeServiceWheelPaintingMounting, wp.MountingAmount))
			}
		}
	}

	for _, extra := range payload.AdditionalServices {
		if extra.ExecutorID == 0 {
			continue
		}
		a := newAssignment(workOrderID, extra.ExecutorID, entities.WorkTypeArmaturaAdditional, extra.Amount)
		name := extra.Name
		a.ServiceType = &name
		assignments = append(assignments, a)
	}

	return assignments
}

// InitialWorkOrderStatus — правило выбора статуса при создании: есть назначения —
// ASSIGNED_TO_EXECUTOR, иначе назначен мастер — ASSIGNED_TO_MASTER, иначе NEW.
func InitialWorkOrderStatus(hasAssignments bool, masterID *uint64) entities.WorkOrderStatus {
	switch {
	case hasAssignments:
		return entities.WorkOrderStatusAssignedToExecutor
	case masterID != nil:
		return entities.WorkOrderStatusAssignedToMaster
	default:
		return entities.WorkOrderStatusNew
	}
}

// RecalculateArmaturaAmount — сумма арматурного назначения от новой общей суммы.
// Пересчёт идемпотентен: повторный вызов с тем же totalAmount даёт ту же сумму.
func RecalculateArmaturaAmount(workType entities.WorkType, totalAmount float64) (float64, bool) {
	pct, ok := entities.ArmaturaPercentages[workType]
	if !ok {
		return 0, false
	}
	return roundMoney(totalAmount * pct), true
}
