package dto

type ReportItemDTO struct {
	OrderID       uint64  `json:"orderId"`
	OrderNumber   string  `json:"orderNumber"`
	CustomerName  string  `json:"customerName"`
	CarModel      string  `json:"carModel,omitempty"`
	ManagerFio    string  `json:"managerFio,omitempty"`
	MasterFio     string  `json:"masterFio,omitempty"`
	Status        string  `json:"status"`
	TotalAmount   float64 `json:"totalAmount"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
	WorksAmount   float64 `json:"worksAmount"`
	PaidAmount    float64 `json:"paidAmount"`
	TasksTotal    int64   `json:"tasksTotal"`
	TasksDone     int64   `json:"tasksDone"`
	CreatedAt     string  `json:"createdAt"`
	CompletedAt   string  `json:"completedAt,omitempty"`
}
