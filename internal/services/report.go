package services

import (
	"context"
	"database/sql"
	"time"

	"workshop-system/internal/authz"
	"workshop-system/internal/dto"
	"workshop-system/internal/entities"
	"workshop-system/internal/repositories"
	apperrors "workshop-system/pkg/errors"

	"go.uber.org/zap"
)

type ReportServiceInterface interface {
	GetFinanceReport(ctx context.Context, actor authz.CurrentUser, filter entities.ReportFilter) ([]entities.ReportItem, uint64, error)
	GetFinanceReportDTOs(ctx context.Context, actor authz.CurrentUser, filter entities.ReportFilter) ([]dto.ReportItemDTO, uint64, error)
}

type ReportService struct {
	reportRepo repositories.ReportRepositoryInterface
	logger     *zap.Logger
}

func NewReportService(reportRepo repositories.ReportRepositoryInterface, logger *zap.Logger) ReportServiceInterface {
	return &ReportService{reportRepo: reportRepo, logger: logger}
}

func (s *ReportService) GetFinanceReport(ctx context.Context, actor authz.CurrentUser, filter entities.ReportFilter) ([]entities.ReportItem, uint64, error) {
	if !actor.HasPermission(authz.WorkOrdersViewFinance) {
		s.logger.Warn("попытка доступа к финансовому отчёту без права view_finance",
			zap.Uint64("userId", actor.ID), zap.String("role", string(actor.Role)))
		return nil, 0, apperrors.ErrForbidden
	}
	return s.reportRepo.GetFinanceReport(ctx, filter)
}

func (s *ReportService) GetFinanceReportDTOs(ctx context.Context, actor authz.CurrentUser, filter entities.ReportFilter) ([]dto.ReportItemDTO, uint64, error) {
	items, total, err := s.GetFinanceReport(ctx, actor, filter)
	if err != nil {
		return nil, 0, err
	}

	nullStr := func(v sql.NullString) string {
		if v.Valid {
			return v.String
		}
		return ""
	}
	nullFloat := func(v sql.NullFloat64) float64 {
		if v.Valid {
			return v.Float64
		}
		return 0
	}

	dtos := make([]dto.ReportItemDTO, len(items))
	for i, item := range items {
		var completedAt string
		if item.CompletedAt.Valid {
			completedAt = item.CompletedAt.Time.Format(time.RFC3339)
		}
		dtos[i] = dto.ReportItemDTO{
			OrderID:       item.OrderID,
			OrderNumber:   item.OrderNumber,
			CustomerName:  item.CustomerName,
			CarModel:      nullStr(item.CarModel),
			ManagerFio:    nullStr(item.ManagerFio),
			MasterFio:     nullStr(item.MasterFio),
			Status:        string(item.Status),
			TotalAmount:   item.TotalAmount,
			PaymentMethod: nullStr(item.PaymentMethod),
			WorksAmount:   nullFloat(item.WorksAmount),
			PaidAmount:    nullFloat(item.PaidAmount),
			TasksTotal:    item.TasksTotal,
			TasksDone:     item.TasksDone,
			CreatedAt:     item.CreatedAt.Format(time.RFC3339),
			CompletedAt:   completedAt,
		}
	}
	return dtos, total, nil
}
