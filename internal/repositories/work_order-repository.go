package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"workshop-system/internal/entities"
	apperrors "workshop-system/pkg/errors"
	"workshop-system/pkg/types"
	"workshop-system/pkg/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type WorkOrderRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, order entities.WorkOrder) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*entities.WorkOrder, error)
	List(ctx context.Context, filter types.Filter) ([]entities.WorkOrder, uint64, error)
	UpdateFieldsInTx(ctx context.Context, tx pgx.Tx, order *entities.WorkOrder) error
	UpdateStatus(ctx context.Context, id uint64, status entities.WorkOrderStatus, startedAt, completedAt *time.Time) error
	AppendPhotos(ctx context.Context, id uint64, kind string, photos []string) error
}

type WorkOrderRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewWorkOrderRepository(storage *pgxpool.Pool, logger *zap.Logger) WorkOrderRepositoryInterface {
	return &WorkOrderRepository{storage: storage, logger: logger}
}

var workOrderListColumns = map[string]string{
	"status":    "w.status",
	"managerId": "w.manager_id",
	"masterId":  "w.master_id",
	"requestId": "w.request_id",
	"createdAt": "w.created_at",
}

const workOrderColumns = `
	w.id, w.order_number, w.request_id, w.manager_id, w.master_id, w.executor_id,
	w.customer_name, COALESCE(w.customer_phone, ''), COALESCE(w.car_model, ''),
	COALESCE(w.car_condition, ''), w.total_amount, COALESCE(w.payment_method, ''),
	w.services_data, w.body_parts_data, w.photos_before, w.photos_after,
	w.status, w.created_at, w.started_at, w.completed_at`

func scanWorkOrder(row pgx.Row) (*entities.WorkOrder, error) {
	var w entities.WorkOrder
	var requestID, masterID, executorID *int64
	var photosBefore, photosAfter []byte
	var status string

	err := row.Scan(
		&w.ID, &w.OrderNumber, &requestID, &w.ManagerID, &masterID, &executorID,
		&w.CustomerName, &w.CustomerPhone, &w.CarModel,
		&w.CarCondition, &w.TotalAmount, &w.PaymentMethod,
		&w.ServicesData, &w.BodyPartsData, &photosBefore, &photosAfter,
		&status, &w.CreatedAt, &w.StartedAt, &w.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования заказ-наряда: %w", err)
	}

	w.Status = entities.WorkOrderStatus(status)
	if requestID != nil {
		w.RequestID = utils.Uint64Ptr(uint64(*requestID))
	}
	if masterID != nil {
		w.MasterID = utils.Uint64Ptr(uint64(*masterID))
	}
	if executorID != nil {
		w.ExecutorID = utils.Uint64Ptr(uint64(*executorID))
	}
	_ = json.Unmarshal(photosBefore, &w.PhotosBefore)
	_ = json.Unmarshal(photosAfter, &w.PhotosAfter)
	return &w, nil
}

func (r *WorkOrderRepository) CreateInTx(ctx context.Context, tx pgx.Tx, order entities.WorkOrder) (uint64, error) {
	photosBefore, _ := json.Marshal(orEmptySlice(order.PhotosBefore))
	photosAfter, _ := json.Marshal(orEmptySlice(order.PhotosAfter))

	servicesData := order.ServicesData
	if len(servicesData) == 0 {
		servicesData = json.RawMessage(`{}`)
	}
	bodyPartsData := order.BodyPartsData
	if len(bodyPartsData) == 0 {
		bodyPartsData = json.RawMessage(`{}`)
	}

	var id uint64
	err := tx.QueryRow(ctx, `
		INSERT INTO work_orders (
			order_number, request_id, manager_id, master_id, executor_id,
			customer_name, customer_phone, car_model, car_condition,
			total_amount, payment_method, services_data, body_parts_data,
			photos_before, photos_after, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		order.OrderNumber, order.RequestID, order.ManagerID, order.MasterID, order.ExecutorID,
		order.CustomerName, order.CustomerPhone, order.CarModel, order.CarCondition,
		order.TotalAmount, order.PaymentMethod, servicesData, bodyPartsData,
		photosBefore, photosAfter, string(order.Status),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: номер заказ-наряда %s уже существует", apperrors.ErrConflict, order.OrderNumber)
		}
		return 0, fmt.Errorf("ошибка создания заказ-наряда: %w", err)
	}
	return id, nil
}

func (r *WorkOrderRepository) FindByID(ctx context.Context, id uint64) (*entities.WorkOrder, error) {
	row := r.storage.QueryRow(ctx, `SELECT `+workOrderColumns+` FROM work_orders w WHERE w.id = $1`, id)
	return scanWorkOrder(row)
}

func (r *WorkOrderRepository) List(ctx context.Context, filter types.Filter) ([]entities.WorkOrder, uint64, error) {
	countBuilder := psql.Select("COUNT(*)").From("work_orders w")
	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil
	countBuilder = ApplyListParams(countBuilder, countFilter, workOrderListColumns)

	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса подсчёта заказ-нарядов: %w", err)
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта заказ-нарядов: %w", err)
	}

	builder := psql.Select(workOrderColumns).From("work_orders w")
	if len(filter.Sort) == 0 {
		builder = builder.OrderBy("w.created_at DESC")
	}
	builder = ApplyListParams(builder, filter, workOrderListColumns)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса списка заказ-нарядов: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка заказ-нарядов: %w", err)
	}
	defer rows.Close()

	orders := make([]entities.WorkOrder, 0)
	for rows.Next() {
		order, err := scanWorkOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *order)
	}
	return orders, total, rows.Err()
}

// UpdateFieldsInTx перезаписывает изменяемые поля заказ-наряда (last writer wins).
func (r *WorkOrderRepository) UpdateFieldsInTx(ctx context.Context, tx pgx.Tx, order *entities.WorkOrder) error {
	servicesData := order.ServicesData
	if len(servicesData) == 0 {
		servicesData = json.RawMessage(`{}`)
	}
	bodyPartsData := order.BodyPartsData
	if len(bodyPartsData) == 0 {
		bodyPartsData = json.RawMessage(`{}`)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE work_orders
		SET master_id = $2, customer_name = $3, customer_phone = $4, car_model = $5,
		    car_condition = $6, total_amount = $7, payment_method = $8,
		    services_data = $9, body_parts_data = $10, status = $11
		WHERE id = $1`,
		order.ID, order.MasterID, order.CustomerName, order.CustomerPhone, order.CarModel,
		order.CarCondition, order.TotalAmount, order.PaymentMethod,
		servicesData, bodyPartsData, string(order.Status),
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления заказ-наряда: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *WorkOrderRepository) UpdateStatus(ctx context.Context, id uint64, status entities.WorkOrderStatus, startedAt, completedAt *time.Time) error {
	tag, err := r.storage.Exec(ctx, `
		UPDATE work_orders
		SET status = $2,
		    started_at = COALESCE($3, started_at),
		    completed_at = COALESCE($4, completed_at)
		WHERE id = $1`,
		id, string(status), startedAt, completedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка смены статуса заказ-наряда: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AppendPhotos дописывает ссылки на фото к массиву "до" или "после".
func (r *WorkOrderRepository) AppendPhotos(ctx context.Context, id uint64, kind string, photos []string) error {
	column := "photos_before"
	if kind == "after" {
		column = "photos_after"
	}

	raw, err := json.Marshal(photos)
	if err != nil {
		return fmt.Errorf("ошибка сериализации фото: %w", err)
	}

	tag, err := r.storage.Exec(ctx,
		fmt.Sprintf(`UPDATE work_orders SET %s = %s || $2::jsonb WHERE id = $1`, column, column),
		id, raw,
	)
	if err != nil {
		return fmt.Errorf("ошибка добавления фото: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func orEmptySlice(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
