package repositories

import (
	"context"
	"fmt"

	"workshop-system/internal/entities"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ReportRepositoryInterface interface {
	GetFinanceReport(ctx context.Context, filter entities.ReportFilter) ([]entities.ReportItem, uint64, error)
}

type ReportRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewReportRepository(storage *pgxpool.Pool, logger *zap.Logger) ReportRepositoryInterface {
	return &ReportRepository{storage: storage, logger: logger}
}

// GetFinanceReport собирает по заказ-нарядам финансовые агрегаты назначений:
// начисленное, выплаченное и прогресс задач.
func (r *ReportRepository) GetFinanceReport(ctx context.Context, filter entities.ReportFilter) ([]entities.ReportItem, uint64, error) {
	base := psql.Select().
		From("work_orders w").
		LeftJoin("users m ON m.id = w.manager_id").
		LeftJoin("users ms ON ms.id = w.master_id").
		LeftJoin("work_order_executors e ON e.work_order_id = w.id")

	base = applyReportFilter(base, filter)

	countQuery, countArgs, err := base.Column("COUNT(DISTINCT w.id)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса подсчёта отчёта: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта строк отчёта: %w", err)
	}

	builder := base.Columns(
		"w.id", "w.order_number", "w.customer_name", "w.car_model",
		"m.fio", "ms.fio",
		"w.status", "w.total_amount", "w.payment_method",
		"SUM(e.amount)",
		"SUM(e.paid_amount) FILTER (WHERE e.is_paid)",
		"COUNT(e.id)",
		"COUNT(e.id) FILTER (WHERE e.metadata->>'status' = 'DONE')",
		"w.created_at", "w.completed_at",
	).
		GroupBy("w.id", "m.fio", "ms.fio").
		OrderBy("w.created_at DESC")

	if filter.PerPage > 0 {
		builder = builder.Limit(uint64(filter.PerPage))
		if filter.Page > 1 {
			builder = builder.Offset(uint64((filter.Page - 1) * filter.PerPage))
		}
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса отчёта: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка выполнения запроса отчёта: %w", err)
	}
	defer rows.Close()

	items := make([]entities.ReportItem, 0)
	for rows.Next() {
		var item entities.ReportItem
		var status string
		err := rows.Scan(
			&item.OrderID, &item.OrderNumber, &item.CustomerName, &item.CarModel,
			&item.ManagerFio, &item.MasterFio,
			&status, &item.TotalAmount, &item.PaymentMethod,
			&item.WorksAmount, &item.PaidAmount,
			&item.TasksTotal, &item.TasksDone,
			&item.CreatedAt, &item.CompletedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования строки отчёта: %w", err)
		}
		item.Status = entities.WorkOrderStatus(status)
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func applyReportFilter(builder sq.SelectBuilder, filter entities.ReportFilter) sq.SelectBuilder {
	if filter.DateFrom != nil {
		builder = builder.Where(sq.GtOrEq{"w.created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		builder = builder.Where(sq.LtOrEq{"w.created_at": *filter.DateTo})
	}
	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"w.status": filter.Statuses})
	}
	return builder
}
