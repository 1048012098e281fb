package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workshop-system/internal/authz"
	"workshop-system/internal/dto"
	"workshop-system/internal/entities"
	"workshop-system/internal/repositories"
	apperrors "workshop-system/pkg/errors"
	"workshop-system/pkg/telegram"
	"workshop-system/pkg/types"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type RequestServiceInterface interface {
	Create(ctx context.Context, payload dto.CreateRequestDTO) (*dto.RequestDTO, error)
	ChangeStatus(ctx context.Context, id uint64, actor authz.CurrentUser, payload dto.ChangeRequestStatusDTO) (*dto.RequestDTO, error)
	FindAll(ctx context.Context, actor authz.CurrentUser, filter types.Filter) ([]dto.RequestDTO, uint64, error)
	FindOne(ctx context.Context, actor authz.CurrentUser, id uint64) (*dto.RequestDTO, error)
}

type RequestService struct {
	txManager     repositories.TxManagerInterface
	requestRepo   repositories.RequestRepositoryInterface
	numberingRepo repositories.NumberingRepositoryInterface
	notifier      telegram.ServiceInterface
	notifyChatID  int64
	logger        *zap.Logger
	now           func() time.Time
}

func NewRequestService(
	txManager repositories.TxManagerInterface,
	requestRepo repositories.RequestRepositoryInterface,
	numberingRepo repositories.NumberingRepositoryInterface,
	notifier telegram.ServiceInterface,
	notifyChatID int64,
	logger *zap.Logger,
) RequestServiceInterface {
	return &RequestService{
		txManager:     txManager,
		requestRepo:   requestRepo,
		numberingRepo: numberingRepo,
		notifier:      notifier,
		notifyChatID:  notifyChatID,
		logger:        logger,
		now:           time.Now,
	}
}

// Create сохраняет заявку с публичной формы и шлёт best-effort уведомление.
// Нумерация и вставка идут в одной транзакции, дубликаты номеров невозможны.
func (s *RequestService) Create(ctx context.Context, payload dto.CreateRequestDTO) (*dto.RequestDTO, error) {
	now := s.now()
	req := entities.Request{
		Name:               payload.Name,
		Phone:              payload.Phone,
		CarModel:           payload.CarModel,
		MainService:        payload.MainService,
		AdditionalServices: payload.AdditionalServices,
		Discount:           payload.Discount,
		Status:             entities.RequestStatusNova,
		CreatedAt:          now,
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		seq, err := s.numberingRepo.NextSequenceInTx(ctx, tx, RequestNumberScope(now))
		if err != nil {
			return err
		}
		req.RequestNumber = FormatRequestNumber(now, seq)

		id, err := s.requestRepo.CreateInTx(ctx, tx, req)
		if err != nil {
			return err
		}
		req.ID = id
		return nil
	})
	if err != nil {
		s.logger.Error("ошибка создания заявки", zap.Error(err))
		return nil, err
	}

	// Заявка уже надёжно сохранена: сбой уведомления логируется и не
	// возвращается вызывающему.
	go s.sendNewRequestNotification(req)

	return mapRequestToDTO(&req), nil
}

func (s *RequestService) sendNewRequestNotification(req entities.Request) {
	if s.notifier == nil || s.notifyChatID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	text := fmt.Sprintf(
		"🔔 Новая заявка %s\nИмя: %s\nТелефон: %s\nАвто: %s\nУслуга: %s",
		req.RequestNumber, req.Name, req.Phone, req.CarModel, req.MainService,
	)
	if err := s.notifier.SendMessage(ctx, s.notifyChatID, text); err != nil {
		s.logger.Error("не удалось отправить уведомление о заявке",
			zap.String("requestNumber", req.RequestNumber), zap.Error(err))
	}
}

// ChangeStatus — обработка заявки менеджером: SDELKA требует комментарий и дату
// приезда, OTKLONENO — комментарий.
func (s *RequestService) ChangeStatus(ctx context.Context, id uint64, actor authz.CurrentUser, payload dto.ChangeRequestStatusDTO) (*dto.RequestDTO, error) {
	if !actor.HasPermission(authz.RequestsProcess) {
		return nil, apperrors.ErrForbidden
	}

	status := entities.RequestStatus(payload.Status)
	if !status.IsValid() {
		return nil, apperrors.NewInvalidInputError("недопустимый статус заявки: %q", payload.Status)
	}

	comment := strings.TrimSpace(payload.ManagerComment)
	switch status {
	case entities.RequestStatusSdelka:
		if comment == "" {
			return nil, apperrors.NewInvalidInputError("для статуса SDELKA обязателен managerComment")
		}
		if !payload.ArrivalDate.Valid {
			return nil, apperrors.NewInvalidInputError("для статуса SDELKA обязательна arrivalDate")
		}
	case entities.RequestStatusOtkloneno:
		if comment == "" {
			return nil, apperrors.NewInvalidInputError("для статуса OTKLONENO обязателен managerComment")
		}
	}

	req, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req.Status = status
	req.ManagerID = &actor.ID
	req.StartedAt = &now
	if comment != "" {
		req.ManagerComment = &comment
	}
	if payload.ArrivalDate.Valid {
		arrival := payload.ArrivalDate.Time
		req.ArrivalDate = &arrival
	}
	if status == entities.RequestStatusZavershena {
		req.CompletedAt = &now
	}

	if err := s.requestRepo.UpdateProcessing(ctx, req); err != nil {
		s.logger.Error("ошибка обновления статуса заявки", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	return mapRequestToDTO(req), nil
}

// FindAll — выдача по правам: полный поиск для requests:view_all, операционная
// очередь SDELKA для мастера, остальным — запрещено.
func (s *RequestService) FindAll(ctx context.Context, actor authz.CurrentUser, filter types.Filter) ([]dto.RequestDTO, uint64, error) {
	var (
		requests []entities.Request
		total    uint64
		err      error
	)

	switch {
	case actor.HasPermission(authz.RequestsViewAll):
		requests, total, err = s.requestRepo.List(ctx, filter)
	case actor.Role == authz.RoleMaster:
		requests, total, err = s.requestRepo.ListSdelkaByArrival(ctx, filter)
	default:
		return nil, 0, apperrors.ErrForbidden
	}
	if err != nil {
		return nil, 0, err
	}

	result := make([]dto.RequestDTO, 0, len(requests))
	for i := range requests {
		result = append(result, *mapRequestToDTO(&requests[i]))
	}
	return result, total, nil
}

func (s *RequestService) FindOne(ctx context.Context, actor authz.CurrentUser, id uint64) (*dto.RequestDTO, error) {
	if !actor.HasPermission(authz.RequestsViewAll) && actor.Role != authz.RoleMaster {
		return nil, apperrors.ErrForbidden
	}

	req, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Мастер видит только заявки-сделки.
	if !actor.HasPermission(authz.RequestsViewAll) && req.Status != entities.RequestStatusSdelka {
		return nil, apperrors.ErrNotFound
	}

	return mapRequestToDTO(req), nil
}

func mapRequestToDTO(req *entities.Request) *dto.RequestDTO {
	out := &dto.RequestDTO{
		ID:                 req.ID,
		RequestNumber:      req.RequestNumber,
		Name:               req.Name,
		Phone:              req.Phone,
		CarModel:           req.CarModel,
		MainService:        req.MainService,
		AdditionalServices: req.AdditionalServices,
		Discount:           req.Discount,
		Status:             string(req.Status),
		ManagerID:          req.ManagerID,
		ManagerComment:     req.ManagerComment,
		CreatedAt:          req.CreatedAt.Local().Format(timeLayout),
	}
	if out.AdditionalServices == nil {
		out.AdditionalServices = []string{}
	}
	if req.ArrivalDate != nil {
		s := req.ArrivalDate.Local().Format(timeLayout)
		out.ArrivalDate = &s
	}
	if req.StartedAt != nil {
		s := req.StartedAt.Local().Format(timeLayout)
		out.StartedAt = &s
	}
	if req.CompletedAt != nil {
		s := req.CompletedAt.Local().Format(timeLayout)
		out.CompletedAt = &s
	}
	return out
}
