package services

import (
	"encoding/json"

	"workshop-system/internal/authz"
	"workshop-system/internal/dto"
	"workshop-system/internal/entities"
)

const timeLayout = "2006-01-02 15:04:05"

// --- ЗАЩИЩЁННЫЙ РАЗБОР JSON-БЛОБОВ ---

// executorRef — известные формы упоминания исполнителя внутри services_data /
// body_parts_data. Всё, что не совпало с известной формой, считается "не найдено".
type executorRef struct {
	ExecutorID         *uint64 `json:"executorId"`
	MountingExecutorID *uint64 `json:"mountingExecutorId"`
}

func (ref executorRef) matches(executorID uint64) bool {
	if ref.ExecutorID != nil && *ref.ExecutorID == executorID {
		return true
	}
	if ref.MountingExecutorID != nil && *ref.MountingExecutorID == executorID {
		return true
	}
	return false
}

func valueHasExecutor(raw json.RawMessage, executorID uint64) bool {
	// Форма 1: объект с executorId / mountingExecutorId.
	var single executorRef
	if err := json.Unmarshal(raw, &single); err == nil && single.matches(executorID) {
		return true
	}

	// Форма 2: массив таких объектов.
	var list []executorRef
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, ref := range list {
			if ref.matches(executorID) {
				return true
			}
		}
	}

	return false
}

// HasExecutorTaskInJSON проверяет, упомянут ли исполнитель внутри JSON-блобов
// заказ-наряда. Запасной путь видимости: часть старых payload-ов хранит ссылки
// на исполнителей только в JSON, без строк назначений.
func HasExecutorTaskInJSON(servicesData, bodyPartsData json.RawMessage, executorID uint64) bool {
	for _, blob := range []json.RawMessage{servicesData, bodyPartsData} {
		if len(blob) == 0 {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(blob, &fields); err != nil {
			continue
		}
		for _, raw := range fields {
			if valueHasExecutor(raw, executorID) {
				return true
			}
		}
	}
	return false
}

// --- ДЛИТЕЛЬНОСТИ ---

// AssignmentDuration — длительность задачи в секундах по таймерам метаданных,
// не меньше нуля.
func AssignmentDuration(metadata entities.TaskMetadata) int64 {
	if metadata.StartedAt == nil || metadata.FinishedAt == nil {
		return 0
	}
	seconds := int64(metadata.FinishedAt.Sub(*metadata.StartedAt).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}

// --- СБОРКА ДЕТАЛЬНОЙ ПРОЕКЦИИ ---

func buildAssignmentDTO(a entities.WorkOrderExecutor) dto.AssignmentDTO {
	amount := a.Amount
	isPaid := a.IsPaid
	paidAmount := a.PaidAmount
	return dto.AssignmentDTO{
		ID:              a.ID,
		ExecutorID:      a.ExecutorID,
		WorkType:        a.WorkType,
		ServiceType:     a.ServiceType,
		Description:     a.Description,
		Amount:          &amount,
		IsPaid:          &isPaid,
		PaidAmount:      &paidAmount,
		Status:          a.Metadata.Status,
		StartedAt:       a.Metadata.StartedAt,
		FinishedAt:      a.Metadata.FinishedAt,
		DurationSeconds: AssignmentDuration(a.Metadata),
	}
}

func buildWorkOrderDTO(order *entities.WorkOrder) dto.WorkOrderDTO {
	totalAmount := order.TotalAmount
	item := dto.WorkOrderDTO{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		RequestID:    order.RequestID,
		ManagerID:    order.ManagerID,
		MasterID:     order.MasterID,
		CustomerName: order.CustomerName,
		CarModel:     order.CarModel,
		TotalAmount:  &totalAmount,
		Status:       order.Status,
		CreatedAt:    order.CreatedAt.Local().Format(timeLayout),
	}
	if order.PaymentMethod != "" {
		pm := order.PaymentMethod
		item.PaymentMethod = &pm
	}
	if order.StartedAt != nil {
		s := order.StartedAt.Local().Format(timeLayout)
		item.StartedAt = &s
	}
	if order.CompletedAt != nil {
		s := order.CompletedAt.Local().Format(timeLayout)
		item.CompletedAt = &s
	}
	return item
}

// BuildWorkOrderDetail собирает детальную проекцию: плоские назначения
// регруппируются обратно в формы payload-а создания (armaturaExecutors,
// fixedServices, additionalServices) для симметрии API.
func BuildWorkOrderDetail(order *entities.WorkOrder, assignments []entities.WorkOrderExecutor) *dto.WorkOrderDetailDTO {
	detail := &dto.WorkOrderDetailDTO{
		WorkOrderDTO:   buildWorkOrderDTO(order),
		CustomerPhone:  order.CustomerPhone,
		CarCondition:   order.CarCondition,
		ServicesData:   order.ServicesData,
		BodyPartsData:  order.BodyPartsData,
		PhotosBefore:   orEmpty(order.PhotosBefore),
		PhotosAfter:    orEmpty(order.PhotosAfter),
		Assignments:    make([]dto.AssignmentDTO, 0, len(assignments)),
		ExecutorTimers: make(map[uint64]int64),
	}

	var armatura dto.ArmaturaExecutorsViewDTO
	var hasArmatura bool
	var fixed dto.FixedServicesDTO
	var hasFixed bool

	for _, a := range assignments {
		detail.Assignments = append(detail.Assignments, buildAssignmentDTO(a))
		detail.ExecutorTimers[a.ExecutorID] += AssignmentDuration(a.Metadata)

		switch a.WorkType {
		case entities.WorkTypeArmaturaDismantling:
			armatura.Dismantling = armaturaSlot(a)
			hasArmatura = true
		case entities.WorkTypeArmaturaDisassembly:
			armatura.Disassembly = armaturaSlot(a)
			hasArmatura = true
		case entities.WorkTypeArmaturaAssembly:
			armatura.Assembly = armaturaSlot(a)
			hasArmatura = true
		case entities.WorkTypeArmaturaMounting:
			armatura.Mounting = armaturaSlot(a)
			hasArmatura = true

		case entities.WorkTypeFixedBrakeCalipersRemove:
			ensureRemoveInstall(&fixed.BrakeCalipers).RemovedBy = uint64Ptr(a.ExecutorID)
			hasFixed = true
		case entities.WorkTypeFixedBrakeCalipersInstall:
			ensureRemoveInstall(&fixed.BrakeCalipers).InstalledBy = uint64Ptr(a.ExecutorID)
			hasFixed = true
		case entities.WorkTypeFixedWheelsRemove:
			ensureRemoveInstall(&fixed.Wheels).RemovedBy = uint64Ptr(a.ExecutorID)
			hasFixed = true
		case entities.WorkTypeFixedWheelsInstall:
			ensureRemoveInstall(&fixed.Wheels).InstalledBy = uint64Ptr(a.ExecutorID)
			hasFixed = true

		case entities.WorkTypeArmaturaAdditional:
			name := ""
			if a.ServiceType != nil {
				name = *a.ServiceType
			}
			amount := a.Amount
			detail.AdditionalServices = append(detail.AdditionalServices, dto.AdditionalServiceViewDTO{
				Name:       name,
				ExecutorID: a.ExecutorID,
				Amount:     &amount,
			})
		}
	}

	if hasArmatura {
		detail.ArmaturaExecutors = &armatura
	}
	if hasFixed {
		detail.FixedServices = &fixed
	}

	return detail
}

func armaturaSlot(a entities.WorkOrderExecutor) *dto.ArmaturaSlotViewDTO {
	amount := a.Amount
	return &dto.ArmaturaSlotViewDTO{ExecutorID: a.ExecutorID, Amount: &amount}
}

func ensureRemoveInstall(target **dto.RemoveInstallDTO) *dto.RemoveInstallDTO {
	if *target == nil {
		*target = &dto.RemoveInstallDTO{}
	}
	return *target
}

func uint64Ptr(v uint64) *uint64 { return &v }

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// --- ФИНАНСОВАЯ РЕДАКЦИЯ ---

// RedactWorkOrderListItem убирает финансовые поля из списочной проекции
// для вызывающих без права work_orders:view_finance.
func RedactWorkOrderListItem(item *dto.WorkOrderDTO, actor authz.CurrentUser) {
	if actor.HasPermission(authz.WorkOrdersViewFinance) {
		return
	}
	item.TotalAmount = nil
	item.PaymentMethod = nil
}

// RedactWorkOrderDetail применяет правила видимости финансов к детальной проекции.
// Без права view_finance: totalAmount/paymentMethod и все суммы назначений и
// восстановленных подформ скрываются. EXECUTOR дополнительно видит только
// собственные назначения; MASTER без финансов видит все назначения, но без сумм.
func RedactWorkOrderDetail(detail *dto.WorkOrderDetailDTO, actor authz.CurrentUser) {
	if actor.HasPermission(authz.WorkOrdersViewFinance) {
		return
	}

	if actor.Role == authz.RoleExecutor {
		own := make([]dto.AssignmentDTO, 0, len(detail.Assignments))
		for _, a := range detail.Assignments {
			if a.ExecutorID == actor.ID {
				own = append(own, a)
			}
		}
		detail.Assignments = own
	}

	detail.TotalAmount = nil
	detail.PaymentMethod = nil

	for i := range detail.Assignments {
		detail.Assignments[i].Amount = nil
		detail.Assignments[i].IsPaid = nil
		detail.Assignments[i].PaidAmount = nil
	}

	if arm := detail.ArmaturaExecutors; arm != nil {
		for _, slot := range []*dto.ArmaturaSlotViewDTO{arm.Dismantling, arm.Disassembly, arm.Assembly, arm.Mounting} {
			if slot != nil {
				slot.Amount = nil
			}
		}
	}

	for i := range detail.AdditionalServices {
		detail.AdditionalServices[i].Amount = nil
	}
}
