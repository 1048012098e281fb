package entities

import "time"

type RequestStatus string

const (
	RequestStatusNova       RequestStatus = "NOVA"
	RequestStatusSdelka     RequestStatus = "SDELKA"
	RequestStatusOtkloneno  RequestStatus = "OTKLONENO"
	RequestStatusZavershena RequestStatus = "ZAVERSHENA"
)

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusNova, RequestStatusSdelka, RequestStatusOtkloneno, RequestStatusZavershena:
		return true
	}
	return false
}

// Request — входящая заявка с сайта. Номер формата "Д/М-N" (N — порядковый за день).
type Request struct {
	ID                 uint64
	RequestNumber      string
	Name               string
	Phone              string
	CarModel           string
	MainService        string
	AdditionalServices []string
	Discount           float64
	Status             RequestStatus
	ManagerID          *uint64
	ManagerComment     *string
	ArrivalDate        *time.Time
	CreatedAt          time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
}
