package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"workshop-system/internal/entities"
	apperrors "workshop-system/pkg/errors"
	"workshop-system/pkg/types"
	"workshop-system/pkg/utils"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type RequestRepositoryInterface interface {
	CreateInTx(ctx context.Context, tx pgx.Tx, req entities.Request) (uint64, error)
	FindByID(ctx context.Context, id uint64) (*entities.Request, error)
	List(ctx context.Context, filter types.Filter) ([]entities.Request, uint64, error)
	ListSdelkaByArrival(ctx context.Context, filter types.Filter) ([]entities.Request, uint64, error)
	UpdateProcessing(ctx context.Context, req *entities.Request) error
}

type RequestRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewRequestRepository(storage *pgxpool.Pool, logger *zap.Logger) RequestRepositoryInterface {
	return &RequestRepository{storage: storage, logger: logger}
}

// requestListColumns — белый список фильтров/сортировок списочного запроса.
var requestListColumns = map[string]string{
	"status":    "r.status",
	"managerId": "r.manager_id",
	"phone":     "r.phone",
	"createdAt": "r.created_at",
}

const requestColumns = `
	r.id, r.request_number, r.name, r.phone, COALESCE(r.car_model, ''),
	COALESCE(r.main_service, ''), r.additional_services, r.discount, r.status,
	r.manager_id, r.manager_comment, r.arrival_date,
	r.created_at, r.started_at, r.completed_at`

func scanRequest(row pgx.Row) (*entities.Request, error) {
	var req entities.Request
	var additionalRaw []byte
	var status string
	var managerID *int64

	err := row.Scan(
		&req.ID, &req.RequestNumber, &req.Name, &req.Phone, &req.CarModel,
		&req.MainService, &additionalRaw, &req.Discount, &status,
		&managerID, &req.ManagerComment, &req.ArrivalDate,
		&req.CreatedAt, &req.StartedAt, &req.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
	}

	req.Status = entities.RequestStatus(status)
	if managerID != nil {
		req.ManagerID = utils.Uint64Ptr(uint64(*managerID))
	}
	if len(additionalRaw) > 0 {
		if err := json.Unmarshal(additionalRaw, &req.AdditionalServices); err != nil {
			req.AdditionalServices = nil
		}
	}
	return &req, nil
}

func (r *RequestRepository) CreateInTx(ctx context.Context, tx pgx.Tx, req entities.Request) (uint64, error) {
	additionalRaw, err := json.Marshal(req.AdditionalServices)
	if err != nil {
		return 0, fmt.Errorf("ошибка сериализации дополнительных услуг: %w", err)
	}

	var id uint64
	err = tx.QueryRow(ctx, `
		INSERT INTO requests (request_number, name, phone, car_model, main_service, additional_services, discount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		req.RequestNumber, req.Name, req.Phone, req.CarModel, req.MainService,
		additionalRaw, req.Discount, string(req.Status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return id, nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id uint64) (*entities.Request, error) {
	row := r.storage.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests r WHERE r.id = $1`, id)
	return scanRequest(row)
}

func (r *RequestRepository) List(ctx context.Context, filter types.Filter) ([]entities.Request, uint64, error) {
	countBuilder := psql.Select("COUNT(*)").From("requests r")
	countFilter := filter
	countFilter.WithPagination = false
	countFilter.Sort = nil
	countBuilder = ApplyListParams(countBuilder, countFilter, requestListColumns)

	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса подсчёта заявок: %w", err)
	}

	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта заявок: %w", err)
	}

	builder := psql.Select(requestColumns).From("requests r")
	if len(filter.Sort) == 0 {
		builder = builder.OrderBy("r.created_at DESC")
	}
	builder = ApplyListParams(builder, filter, requestListColumns)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса списка заявок: %w", err)
	}

	return r.queryRequests(ctx, query, args, total)
}

// ListSdelkaByArrival — операционная очередь мастера: только SDELKA,
// ближайший приезд первым.
func (r *RequestRepository) ListSdelkaByArrival(ctx context.Context, filter types.Filter) ([]entities.Request, uint64, error) {
	var total uint64
	if err := r.storage.QueryRow(ctx,
		`SELECT COUNT(*) FROM requests r WHERE r.status = $1`,
		string(entities.RequestStatusSdelka),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта заявок мастера: %w", err)
	}

	builder := psql.Select(requestColumns).
		From("requests r").
		Where(sq.Eq{"r.status": string(entities.RequestStatusSdelka)}).
		OrderBy("r.arrival_date ASC NULLS LAST")
	if filter.WithPagination && filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса очереди мастера: %w", err)
	}

	return r.queryRequests(ctx, query, args, total)
}

func (r *RequestRepository) queryRequests(ctx context.Context, query string, args []interface{}, total uint64) ([]entities.Request, uint64, error) {
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка заявок: %w", err)
	}
	defer rows.Close()

	requests := make([]entities.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *req)
	}
	return requests, total, rows.Err()
}

func (r *RequestRepository) UpdateProcessing(ctx context.Context, req *entities.Request) error {
	tag, err := r.storage.Exec(ctx, `
		UPDATE requests
		SET status = $2, manager_id = $3, manager_comment = $4, arrival_date = $5,
		    started_at = $6, completed_at = $7
		WHERE id = $1`,
		req.ID, string(req.Status), req.ManagerID, req.ManagerComment, req.ArrivalDate,
		req.StartedAt, req.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
