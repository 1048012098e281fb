package dto

import (
	"github.com/aarondl/null/v8"
)

// CreateRequestDTO — публичная форма с сайта.
type CreateRequestDTO struct {
	Name               string   `json:"name" validate:"required,min=2,max=255"`
	Phone              string   `json:"phone" validate:"required,e164_RU"`
	CarModel           string   `json:"carModel" validate:"max=255"`
	MainService        string   `json:"mainService" validate:"required,max=255"`
	AdditionalServices []string `json:"additionalServices"`
	Discount           float64  `json:"discount" validate:"gte=0,lte=100"`
}

// ChangeRequestStatusDTO — обработка заявки менеджером.
// Для SDELKA обязательны комментарий и дата приезда, для OTKLONENO — комментарий.
type ChangeRequestStatusDTO struct {
	Status         string    `json:"status" validate:"required"`
	ManagerComment string    `json:"managerComment"`
	ArrivalDate    null.Time `json:"arrivalDate"`
}

type RequestDTO struct {
	ID                 uint64   `json:"id"`
	RequestNumber      string   `json:"requestNumber"`
	Name               string   `json:"name"`
	Phone              string   `json:"phone"`
	CarModel           string   `json:"carModel,omitempty"`
	MainService        string   `json:"mainService"`
	AdditionalServices []string `json:"additionalServices"`
	Discount           float64  `json:"discount"`
	Status             string   `json:"status"`
	ManagerID          *uint64  `json:"managerId,omitempty"`
	ManagerComment     *string  `json:"managerComment,omitempty"`
	ArrivalDate        *string  `json:"arrivalDate,omitempty"`
	CreatedAt          string   `json:"createdAt"`
	StartedAt          *string  `json:"startedAt,omitempty"`
	CompletedAt        *string  `json:"completedAt,omitempty"`
}
