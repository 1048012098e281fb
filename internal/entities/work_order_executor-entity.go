package entities

import "time"

type WorkType string

const (
	// Арматурные работы — процент от суммы заказ-наряда.
	WorkTypeArmaturaDismantling WorkType = "ARMATURA_DISMANTLING"
	WorkTypeArmaturaDisassembly WorkType = "ARMATURA_DISASSEMBLY"
	WorkTypeArmaturaAssembly    WorkType = "ARMATURA_ASSEMBLY"
	WorkTypeArmaturaMounting    WorkType = "ARMATURA_MOUNTING"
	WorkTypeArmaturaAdditional  WorkType = "ARMATURA_ADDITIONAL"

	// Фиксированные работы.
	WorkTypeFixedBrakeCalipersRemove  WorkType = "FIXED_BRAKE_CALIPERS_REMOVE"
	WorkTypeFixedBrakeCalipersInstall WorkType = "FIXED_BRAKE_CALIPERS_INSTALL"
	WorkTypeFixedWheelsRemove         WorkType = "FIXED_WHEELS_REMOVE"
	WorkTypeFixedWheelsInstall        WorkType = "FIXED_WHEELS_INSTALL"

	// Работы по кузовным элементам.
	WorkTypeBodyPart WorkType = "BODY_PART"

	// Услуги.
	WorkTypeServiceFilm                  WorkType = "SERVICE_FILM"
	WorkTypeServiceDryCleaning           WorkType = "SERVICE_DRY_CLEANING"
	WorkTypeServicePolishing             WorkType = "SERVICE_POLISHING"
	WorkTypeServiceWheelPainting         WorkType = "SERVICE_WHEEL_PAINTING"
	WorkTypeServiceWheelPaintingMounting WorkType = "SERVICE_WHEEL_PAINTING_MOUNTING"
	WorkTypeServiceCarbon                WorkType = "SERVICE_CARBON"
	WorkTypeServiceSoundproofing         WorkType = "SERVICE_SOUNDPROOFING"
	WorkTypeServiceBonus                 WorkType = "SERVICE_BONUS"
)

// ArmaturaPercentages — доли арматурных работ от общей суммы заказ-наряда.
// amount таких назначений пересчитывается при каждом изменении total_amount.
var ArmaturaPercentages = map[WorkType]float64{
	WorkTypeArmaturaDismantling: 0.07,
	WorkTypeArmaturaDisassembly: 0.03,
	WorkTypeArmaturaAssembly:    0.03,
	WorkTypeArmaturaMounting:    0.07,
}

// Фиксированные ставки.
const (
	BrakeCalipersFee = 2500.0
	WheelsFee        = 500.0
	BodyPartUnitFee  = 400.0
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskMetadata — статус и таймер задачи, хранится в JSONB-колонке metadata.
type TaskMetadata struct {
	Status     TaskStatus `json:"status"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// WorkOrderExecutor — атомарная оплачиваемая задача исполнителя в заказ-наряде.
type WorkOrderExecutor struct {
	ID          uint64
	WorkOrderID uint64
	ExecutorID  uint64
	WorkType    WorkType
	ServiceType *string
	Amount      float64
	IsPaid      bool
	PaidAmount  float64
	Description *string
	Metadata    TaskMetadata
	CreatedAt   time.Time
}

// IsArmatura — арматурная ли это работа с процентной ставкой.
func (e WorkOrderExecutor) IsArmatura() bool {
	_, ok := ArmaturaPercentages[e.WorkType]
	return ok
}
