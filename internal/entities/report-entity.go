package entities

import (
	"database/sql"
	"time"
)

type ReportFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Statuses []string
	Page     int
	PerPage  int
}

// ReportItem — строка финансового отчёта по заказ-нарядам: агрегаты по
// назначениям подтягиваются одним запросом.
type ReportItem struct {
	OrderID       uint64
	OrderNumber   string
	CustomerName  string
	CarModel      sql.NullString
	ManagerFio    sql.NullString
	MasterFio     sql.NullString
	Status        WorkOrderStatus
	TotalAmount   float64
	PaymentMethod sql.NullString
	WorksAmount   sql.NullFloat64
	PaidAmount    sql.NullFloat64
	TasksTotal    int64
	TasksDone     int64
	CreatedAt     time.Time
	CompletedAt   sql.NullTime
}
