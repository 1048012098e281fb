package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"workshop-system/internal/entities"
	apperrors "workshop-system/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type WorkOrderExecutorRepositoryInterface interface {
	BulkInsertInTx(ctx context.Context, tx pgx.Tx, assignments []entities.WorkOrderExecutor) error
	DeleteUnpaidByWorkTypesInTx(ctx context.Context, tx pgx.Tx, workOrderID uint64, workTypes []entities.WorkType) error
	ListByWorkOrder(ctx context.Context, workOrderID uint64) ([]entities.WorkOrderExecutor, error)
	FindByID(ctx context.Context, id uint64) (*entities.WorkOrderExecutor, error)
	UpdateMetadata(ctx context.Context, id uint64, metadata entities.TaskMetadata) error
	UpdateAmountInTx(ctx context.Context, tx pgx.Tx, id uint64, amount float64) error
	ListExecutorOrderIDs(ctx context.Context, executorID uint64) (map[uint64]bool, error)
}

type WorkOrderExecutorRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewWorkOrderExecutorRepository(storage *pgxpool.Pool, logger *zap.Logger) WorkOrderExecutorRepositoryInterface {
	return &WorkOrderExecutorRepository{storage: storage, logger: logger}
}

const executorColumns = `
	e.id, e.work_order_id, e.executor_id, e.work_type, e.service_type,
	e.amount, e.is_paid, e.paid_amount, e.description, e.metadata, e.created_at`

func (r *WorkOrderExecutorRepository) scanAssignment(row pgx.Row) (*entities.WorkOrderExecutor, error) {
	var a entities.WorkOrderExecutor
	var workType string
	var metadataRaw []byte

	err := row.Scan(
		&a.ID, &a.WorkOrderID, &a.ExecutorID, &workType, &a.ServiceType,
		&a.Amount, &a.IsPaid, &a.PaidAmount, &a.Description, &metadataRaw, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования назначения: %w", err)
	}

	a.WorkType = entities.WorkType(workType)
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &a.Metadata); err != nil {
			r.logger.Warn("повреждённые метаданные назначения",
				zap.Uint64("id", a.ID), zap.Error(err))
		}
	}
	if a.Metadata.Status == "" {
		a.Metadata.Status = entities.TaskStatusPending
	}
	return &a, nil
}

func (r *WorkOrderExecutorRepository) BulkInsertInTx(ctx context.Context, tx pgx.Tx, assignments []entities.WorkOrderExecutor) error {
	if len(assignments) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range assignments {
		metadataRaw, err := json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("ошибка сериализации метаданных назначения: %w", err)
		}
		batch.Queue(`
			INSERT INTO work_order_executors
				(work_order_id, executor_id, work_type, service_type, amount, is_paid, paid_amount, description, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			a.WorkOrderID, a.ExecutorID, string(a.WorkType), a.ServiceType,
			a.Amount, a.IsPaid, a.PaidAmount, a.Description, metadataRaw,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range assignments {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("ошибка массовой вставки назначений: %w", err)
		}
	}
	return nil
}

// DeleteUnpaidByWorkTypesInTx удаляет неоплаченные назначения указанных типов.
// Оплаченные строки — финансовая история, они никогда не удаляются.
func (r *WorkOrderExecutorRepository) DeleteUnpaidByWorkTypesInTx(ctx context.Context, tx pgx.Tx, workOrderID uint64, workTypes []entities.WorkType) error {
	if len(workTypes) == 0 {
		return nil
	}

	types := make([]string, 0, len(workTypes))
	for _, wt := range workTypes {
		types = append(types, string(wt))
	}

	_, err := tx.Exec(ctx, `
		DELETE FROM work_order_executors
		WHERE work_order_id = $1 AND work_type = ANY($2) AND is_paid = FALSE`,
		workOrderID, types,
	)
	if err != nil {
		return fmt.Errorf("ошибка удаления неоплаченных назначений: %w", err)
	}
	return nil
}

func (r *WorkOrderExecutorRepository) ListByWorkOrder(ctx context.Context, workOrderID uint64) ([]entities.WorkOrderExecutor, error) {
	rows, err := r.storage.Query(ctx,
		`SELECT `+executorColumns+` FROM work_order_executors e WHERE e.work_order_id = $1 ORDER BY e.id`,
		workOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения назначений заказ-наряда: %w", err)
	}
	defer rows.Close()

	assignments := make([]entities.WorkOrderExecutor, 0)
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

func (r *WorkOrderExecutorRepository) FindByID(ctx context.Context, id uint64) (*entities.WorkOrderExecutor, error) {
	row := r.storage.QueryRow(ctx,
		`SELECT `+executorColumns+` FROM work_order_executors e WHERE e.id = $1`, id)
	return r.scanAssignment(row)
}

func (r *WorkOrderExecutorRepository) UpdateMetadata(ctx context.Context, id uint64, metadata entities.TaskMetadata) error {
	metadataRaw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	tag, err := r.storage.Exec(ctx,
		`UPDATE work_order_executors SET metadata = $2 WHERE id = $1`, id, metadataRaw)
	if err != nil {
		return fmt.Errorf("ошибка обновления метаданных назначения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *WorkOrderExecutorRepository) UpdateAmountInTx(ctx context.Context, tx pgx.Tx, id uint64, amount float64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE work_order_executors SET amount = $2 WHERE id = $1`, id, amount)
	if err != nil {
		return fmt.Errorf("ошибка пересчёта суммы назначения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListExecutorOrderIDs — ID заказ-нарядов, где у исполнителя есть хотя бы одно назначение.
func (r *WorkOrderExecutorRepository) ListExecutorOrderIDs(ctx context.Context, executorID uint64) (map[uint64]bool, error) {
	rows, err := r.storage.Query(ctx,
		`SELECT DISTINCT work_order_id FROM work_order_executors WHERE executor_id = $1`, executorID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки заказ-нарядов исполнителя: %w", err)
	}
	defer rows.Close()

	ids := make(map[uint64]bool)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ID заказ-наряда: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}
