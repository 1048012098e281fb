package entities

import (
	"encoding/json"
	"time"
)

type WorkOrderStatus string

const (
	WorkOrderStatusNew                WorkOrderStatus = "NEW"
	WorkOrderStatusAssignedToMaster   WorkOrderStatus = "ASSIGNED_TO_MASTER"
	WorkOrderStatusAssignedToExecutor WorkOrderStatus = "ASSIGNED_TO_EXECUTOR"
	WorkOrderStatusInProgress         WorkOrderStatus = "IN_PROGRESS"
	WorkOrderStatusAssembled          WorkOrderStatus = "ASSEMBLED"
	WorkOrderStatusSent               WorkOrderStatus = "SENT"
	WorkOrderStatusIssued             WorkOrderStatus = "ISSUED"
	WorkOrderStatusCompleted          WorkOrderStatus = "COMPLETED"
)

// IsTerminalStage — финальные стадии, которые проставляет закрывающий.
func (s WorkOrderStatus) IsTerminalStage() bool {
	switch s {
	case WorkOrderStatusAssembled, WorkOrderStatusSent, WorkOrderStatusIssued:
		return true
	}
	return false
}

// WorkOrder — заказ-наряд. Номер формата "ЗН-ГГГГ-NNN" (сквозной за год).
// services_data и body_parts_data хранятся как есть: их структура задаётся
// фронтом и разбирается защищённым парсером только там, где это нужно.
type WorkOrder struct {
	ID            uint64
	OrderNumber   string
	RequestID     *uint64
	ManagerID     uint64
	MasterID      *uint64
	ExecutorID    *uint64
	CustomerName  string
	CustomerPhone string
	CarModel      string
	CarCondition  string
	TotalAmount   float64
	PaymentMethod string
	ServicesData  json.RawMessage
	BodyPartsData json.RawMessage
	PhotosBefore  []string
	PhotosAfter   []string
	Status        WorkOrderStatus
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}
