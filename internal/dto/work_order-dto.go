package dto

import (
	"encoding/json"
	"time"

	"workshop-system/internal/entities"
)

// --- СОСТАВНОЙ PAYLOAD СОЗДАНИЯ/ОБНОВЛЕНИЯ ---

// ArmaturaExecutorsDTO — до четырёх именованных слотов, в каждом ID исполнителя.
// Оплата слота — фиксированный процент от суммы заказ-наряда.
type ArmaturaExecutorsDTO struct {
	Dismantling *uint64 `json:"dismantling,omitempty"`
	Disassembly *uint64 `json:"disassembly,omitempty"`
	Assembly    *uint64 `json:"assembly,omitempty"`
	Mounting    *uint64 `json:"mounting,omitempty"`
}

type RemoveInstallDTO struct {
	RemovedBy   *uint64 `json:"removedBy,omitempty"`
	InstalledBy *uint64 `json:"installedBy,omitempty"`
}

type FixedServicesDTO struct {
	BrakeCalipers *RemoveInstallDTO `json:"brakeCalipers,omitempty"`
	Wheels        *RemoveInstallDTO `json:"wheels,omitempty"`
}

type BodyPartDTO struct {
	ExecutorID uint64 `json:"executorId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gte=1"`
}

type ServiceExecutorDTO struct {
	ExecutorID uint64  `json:"executorId" validate:"required"`
	Amount     float64 `json:"amount" validate:"gte=0"`
}

// WheelPaintingDTO — покраска дисков: снятие/покраска и отдельная установка.
type WheelPaintingDTO struct {
	ExecutorID         uint64  `json:"executorId" validate:"required"`
	Amount             float64 `json:"amount" validate:"gte=0"`
	MountingExecutorID *uint64 `json:"mountingExecutorId,omitempty"`
	MountingAmount     float64 `json:"mountingAmount" validate:"gte=0"`
}

type ServicesDataDTO struct {
	Film          *ServiceExecutorDTO `json:"film,omitempty"`
	DryCleaning   *ServiceExecutorDTO `json:"dryCleaning,omitempty"`
	Polishing     *ServiceExecutorDTO `json:"polishing,omitempty"`
	WheelPainting *WheelPaintingDTO   `json:"wheelPainting,omitempty"`
	Carbon        *ServiceExecutorDTO `json:"carbon,omitempty"`
	Soundproofing *ServiceExecutorDTO `json:"soundproofing,omitempty"`
	Bonus         *ServiceExecutorDTO `json:"bonus,omitempty"`
}

type AdditionalServiceDTO struct {
	Name       string  `json:"name" validate:"required"`
	ExecutorID uint64  `json:"executorId" validate:"required"`
	Amount     float64 `json:"amount" validate:"gte=0"`
}

type CreateWorkOrderDTO struct {
	RequestID     *uint64 `json:"requestId,omitempty"`
	ManagerID     *uint64 `json:"managerId,omitempty"`
	MasterID      *uint64 `json:"masterId,omitempty"`
	CustomerName  string  `json:"customerName" validate:"required,max=255"`
	CustomerPhone string  `json:"customerPhone" validate:"omitempty,e164_RU"`
	CarModel      string  `json:"carModel" validate:"max=255"`
	CarCondition  string  `json:"carCondition"`
	TotalAmount   float64 `json:"totalAmount" validate:"gte=0"`
	PaymentMethod string  `json:"paymentMethod" validate:"max=50"`

	ArmaturaExecutors  *ArmaturaExecutorsDTO  `json:"armaturaExecutors,omitempty"`
	FixedServices      *FixedServicesDTO      `json:"fixedServices,omitempty"`
	BodyPartsData      map[string]BodyPartDTO `json:"bodyPartsData,omitempty"`
	ServicesData       *ServicesDataDTO       `json:"servicesData,omitempty"`
	AdditionalServices []AdditionalServiceDTO `json:"additionalServices,omitempty"`

	PhotosBefore []string `json:"photosBefore,omitempty"`
	PhotosAfter  []string `json:"photosAfter,omitempty"`
}

// UpdateWorkOrderDTO — частичное обновление: присутствующая группа пересобирает
// свои неоплаченные назначения; одиночное изменение totalAmount пересчитывает
// арматурные суммы на месте.
type UpdateWorkOrderDTO struct {
	MasterID      *uint64  `json:"masterId,omitempty"`
	CustomerName  *string  `json:"customerName,omitempty"`
	CustomerPhone *string  `json:"customerPhone,omitempty"`
	CarModel      *string  `json:"carModel,omitempty"`
	CarCondition  *string  `json:"carCondition,omitempty"`
	TotalAmount   *float64 `json:"totalAmount,omitempty" validate:"omitempty,gte=0"`
	PaymentMethod *string  `json:"paymentMethod,omitempty"`

	ArmaturaExecutors  *ArmaturaExecutorsDTO  `json:"armaturaExecutors,omitempty"`
	FixedServices      *FixedServicesDTO      `json:"fixedServices,omitempty"`
	BodyPartsData      map[string]BodyPartDTO `json:"bodyPartsData,omitempty"`
	ServicesData       *ServicesDataDTO       `json:"servicesData,omitempty"`
	AdditionalServices []AdditionalServiceDTO `json:"additionalServices,omitempty"`
}

// --- ОПЕРАЦИИ СТАТУСОВ ---

type CompleteWorkOrderDTO struct {
	FinalStage string `json:"finalStage" validate:"required,oneof=ASSEMBLED SENT ISSUED"`
}

type UpdateTaskStatusDTO struct {
	Status string `json:"status" validate:"required,oneof=PENDING IN_PROGRESS DONE"`
}

type AddPhotosDTO struct {
	Kind   string   `json:"kind" validate:"required,oneof=before after"`
	Photos []string `json:"photos" validate:"required,min=1,dive,url"`
}

// --- ПРОЕКЦИИ ---

type AssignmentDTO struct {
	ID              uint64              `json:"id"`
	ExecutorID      uint64              `json:"executorId"`
	WorkType        entities.WorkType   `json:"workType"`
	ServiceType     *string             `json:"serviceType,omitempty"`
	Description     *string             `json:"description,omitempty"`
	Amount          *float64            `json:"amount,omitempty"`
	IsPaid          *bool               `json:"isPaid,omitempty"`
	PaidAmount      *float64            `json:"paidAmount,omitempty"`
	Status          entities.TaskStatus `json:"status"`
	StartedAt       *time.Time          `json:"startedAt,omitempty"`
	FinishedAt      *time.Time          `json:"finishedAt,omitempty"`
	DurationSeconds int64               `json:"durationSeconds"`
}

type ArmaturaSlotViewDTO struct {
	ExecutorID uint64   `json:"executorId"`
	Amount     *float64 `json:"amount,omitempty"`
}

type ArmaturaExecutorsViewDTO struct {
	Dismantling *ArmaturaSlotViewDTO `json:"dismantling,omitempty"`
	Disassembly *ArmaturaSlotViewDTO `json:"disassembly,omitempty"`
	Assembly    *ArmaturaSlotViewDTO `json:"assembly,omitempty"`
	Mounting    *ArmaturaSlotViewDTO `json:"mounting,omitempty"`
}

type AdditionalServiceViewDTO struct {
	Name       string   `json:"name"`
	ExecutorID uint64   `json:"executorId"`
	Amount     *float64 `json:"amount,omitempty"`
}

type WorkOrderDTO struct {
	ID           uint64  `json:"id"`
	OrderNumber  string  `json:"orderNumber"`
	RequestID    *uint64 `json:"requestId,omitempty"`
	ManagerID    uint64  `json:"managerId"`
	MasterID     *uint64 `json:"masterId,omitempty"`
	CustomerName string  `json:"customerName"`
	CarModel     string  `json:"carModel,omitempty"`

	// Финансовые поля присутствуют только при праве work_orders:view_finance.
	TotalAmount   *float64 `json:"totalAmount,omitempty"`
	PaymentMethod *string  `json:"paymentMethod,omitempty"`

	Status      entities.WorkOrderStatus `json:"status"`
	CreatedAt   string                   `json:"createdAt"`
	StartedAt   *string                  `json:"startedAt,omitempty"`
	CompletedAt *string                  `json:"completedAt,omitempty"`
}

type WorkOrderDetailDTO struct {
	WorkOrderDTO

	CustomerPhone string          `json:"customerPhone,omitempty"`
	CarCondition  string          `json:"carCondition,omitempty"`
	ServicesData  json.RawMessage `json:"servicesData,omitempty"`
	BodyPartsData json.RawMessage `json:"bodyPartsData,omitempty"`
	PhotosBefore  []string        `json:"photosBefore"`
	PhotosAfter   []string        `json:"photosAfter"`

	Assignments        []AssignmentDTO            `json:"assignments"`
	ArmaturaExecutors  *ArmaturaExecutorsViewDTO  `json:"armaturaExecutors,omitempty"`
	FixedServices      *FixedServicesDTO          `json:"fixedServices,omitempty"`
	AdditionalServices []AdditionalServiceViewDTO `json:"additionalServices,omitempty"`

	// Суммарное время по каждому исполнителю, в секундах.
	ExecutorTimers map[uint64]int64 `json:"executorTimers"`
}
