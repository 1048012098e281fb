package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"workshop-system/internal/authz"
	"workshop-system/internal/dto"
	"workshop-system/internal/entities"
	"workshop-system/internal/repositories"
	apperrors "workshop-system/pkg/errors"
	"workshop-system/pkg/types"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type WorkOrderServiceInterface interface {
	Create(ctx context.Context, actor authz.CurrentUser, payload dto.CreateWorkOrderDTO) (*dto.WorkOrderDetailDTO, error)
	Update(ctx context.Context, actor authz.CurrentUser, id uint64, payload dto.UpdateWorkOrderDTO) (*dto.WorkOrderDetailDTO, error)
	FindAll(ctx context.Context, actor authz.CurrentUser, filter types.Filter, onlyMine bool) ([]dto.WorkOrderDTO, uint64, error)
	FindOne(ctx context.Context, actor authz.CurrentUser, id uint64) (*dto.WorkOrderDetailDTO, error)
	StartWork(ctx context.Context, actor authz.CurrentUser, id uint64) error
	SubmitForReview(ctx context.Context, actor authz.CurrentUser, id uint64) error
	UpdateTaskStatus(ctx context.Context, actor authz.CurrentUser, orderID, taskID uint64, payload dto.UpdateTaskStatusDTO) error
	Complete(ctx context.Context, actor authz.CurrentUser, id uint64, payload dto.CompleteWorkOrderDTO) error
	Approve(ctx context.Context, actor authz.CurrentUser, id uint64) error
	RequestRevision(ctx context.Context, actor authz.CurrentUser, id uint64) error
	AddPhotos(ctx context.Context, actor authz.CurrentUser, id uint64, payload dto.AddPhotosDTO) error
}

type WorkOrderService struct {
	txManager     repositories.TxManagerInterface
	orderRepo     repositories.WorkOrderRepositoryInterface
	executorRepo  repositories.WorkOrderExecutorRepositoryInterface
	numberingRepo repositories.NumberingRepositoryInterface
	requestRepo   repositories.RequestRepositoryInterface
	userRepo      repositories.UserRepositoryInterface
	logger        *zap.Logger
	now           func() time.Time
}

func NewWorkOrderService(
	txManager repositories.TxManagerInterface,
	orderRepo repositories.WorkOrderRepositoryInterface,
	executorRepo repositories.WorkOrderExecutorRepositoryInterface,
	numberingRepo repositories.NumberingRepositoryInterface,
	requestRepo repositories.RequestRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	logger *zap.Logger,
) WorkOrderServiceInterface {
	return &WorkOrderService{
		txManager:     txManager,
		orderRepo:     orderRepo,
		executorRepo:  executorRepo,
		numberingRepo: numberingRepo,
		requestRepo:   requestRepo,
		userRepo:      userRepo,
		logger:        logger,
		now:           time.Now,
	}
}

// --- СОЗДАНИЕ ---

func (s *WorkOrderService) Create(ctx context.Context, actor authz.CurrentUser, payload dto.CreateWorkOrderDTO) (*dto.WorkOrderDetailDTO, error) {
	if !actor.HasPermission(authz.WorkOrdersEditAll) {
		return nil, apperrors.ErrForbidden
	}

	managerID := payload.ManagerID

	if payload.RequestID != nil {
		req, err := s.requestRepo.FindByID(ctx, *payload.RequestID)
		if err != nil {
			return nil, fmt.Errorf("%w: requestId", apperrors.ErrNotFound)
		}
		// Менеджер наследуется из заявки, если не задан явно.
		if managerID == nil {
			managerID = req.ManagerID
		}
	}

	if managerID == nil {
		return nil, apperrors.NewInvalidInputError("не удалось определить managerId: укажите его явно или привяжите заявку с менеджером")
	}
	if _, err := s.userRepo.FindByID(ctx, *managerID); err != nil {
		return nil, fmt.Errorf("%w: managerId", apperrors.ErrNotFound)
	}
	if payload.MasterID != nil {
		if _, err := s.userRepo.FindByID(ctx, *payload.MasterID); err != nil {
			return nil, fmt.Errorf("%w: masterId", apperrors.ErrNotFound)
		}
	}

	servicesData, bodyPartsData, err := marshalPayloadBlobs(payload.ServicesData, payload.BodyPartsData)
	if err != nil {
		return nil, err
	}

	assignmentPayload := AssignmentPayload{
		ArmaturaExecutors:  payload.ArmaturaExecutors,
		FixedServices:      payload.FixedServices,
		BodyPartsData:      payload.BodyPartsData,
		ServicesData:       payload.ServicesData,
		AdditionalServices: payload.AdditionalServices,
	}

	now := s.now()
	order := entities.WorkOrder{
		RequestID:     payload.RequestID,
		ManagerID:     *managerID,
		MasterID:      payload.MasterID,
		CustomerName:  payload.CustomerName,
		CustomerPhone: payload.CustomerPhone,
		CarModel:      payload.CarModel,
		CarCondition:  payload.CarCondition,
		TotalAmount:   payload.TotalAmount,
		PaymentMethod: payload.PaymentMethod,
		ServicesData:  servicesData,
		BodyPartsData: bodyPartsData,
		PhotosBefore:  payload.PhotosBefore,
		PhotosAfter:   payload.PhotosAfter,
		CreatedAt:     now,
	}

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		seq, err := s.numberingRepo.NextSequenceInTx(ctx, tx, OrderNumberScope(now))
		if err != nil {
			return err
		}
		order.OrderNumber = FormatOrderNumber(now, seq)

		assignments := ExpandAssignments(0, assignmentPayload, order.TotalAmount)
		order.Status = InitialWorkOrderStatus(len(assignments) > 0, order.MasterID)

		id, err := s.orderRepo.CreateInTx(ctx, tx, order)
		if err != nil {
			return err
		}
		order.ID = id

		for i := range assignments {
			assignments[i].WorkOrderID = id
		}
		return s.executorRepo.BulkInsertInTx(ctx, tx, assignments)
	})
	if err != nil {
		s.logger.Error("ошибка создания заказ-наряда", zap.Error(err))
		return nil, err
	}

	return s.FindOne(ctx, actor, order.ID)
}

// --- ОБНОВЛЕНИЕ ---

// Update пересобирает неоплаченные назначения каждой присутствующей в payload
// группы. Изменение одного totalAmount пересчитывает арматурные суммы на месте,
// сохраняя статус и таймеры задач.
func (s *WorkOrderService) Update(ctx context.Context, actor authz.CurrentUser, id uint64, payload dto.UpdateWorkOrderDTO) (*dto.WorkOrderDetailDTO, error) {
	if !actor.HasPermission(authz.WorkOrdersEditAll) {
		return nil, apperrors.ErrForbidden
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.executorRepo.ListByWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	applyWorkOrderChanges(order, payload)

	servicesData, bodyPartsData, err := marshalPayloadBlobs(payload.ServicesData, payload.BodyPartsData)
	if err != nil {
		return nil, err
	}
	if payload.ServicesData != nil {
		order.ServicesData = servicesData
	}
	if payload.BodyPartsData != nil {
		order.BodyPartsData = bodyPartsData
	}

	assignmentPayload := AssignmentPayload{
		ArmaturaExecutors:  payload.ArmaturaExecutors,
		FixedServices:      payload.FixedServices,
		BodyPartsData:      payload.BodyPartsData,
		ServicesData:       payload.ServicesData,
		AdditionalServices: payload.AdditionalServices,
	}

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		remaining := existing

		if !assignmentPayload.IsEmpty() {
			groups := presentGroupTypes(assignmentPayload)
			if err := s.executorRepo.DeleteUnpaidByWorkTypesInTx(ctx, tx, id, groups); err != nil {
				return err
			}

			newAssignments := ExpandAssignments(id, assignmentPayload, order.TotalAmount)
			if err := s.executorRepo.BulkInsertInTx(ctx, tx, newAssignments); err != nil {
				return err
			}

			remaining = simulateRecreation(existing, groups, newAssignments)

			// Изменение totalAmount вместе с другими группами: арматурные
			// строки, пережившие пересборку, обязаны отражать новую сумму.
			// Только что вставленные строки уже посчитаны от неё.
			if payload.TotalAmount != nil {
				if err := s.recalculateArmaturaInTx(ctx, tx, remaining, order.TotalAmount); err != nil {
					return err
				}
			}
		} else if payload.TotalAmount != nil {
			// Пересчёт на месте: статусы и таймеры арматурных задач не трогаем.
			if err := s.recalculateArmaturaInTx(ctx, tx, existing, order.TotalAmount); err != nil {
				return err
			}
		}

		// Статус передвигается правилом назначения только до начала работ.
		switch order.Status {
		case entities.WorkOrderStatusNew,
			entities.WorkOrderStatusAssignedToMaster,
			entities.WorkOrderStatusAssignedToExecutor:
			order.Status = InitialWorkOrderStatus(len(remaining) > 0, order.MasterID)
		}

		return s.orderRepo.UpdateFieldsInTx(ctx, tx, order)
	})
	if err != nil {
		s.logger.Error("ошибка обновления заказ-наряда", zap.Uint64("id", id), zap.Error(err))
		return nil, err
	}

	return s.FindOne(ctx, actor, id)
}

func (s *WorkOrderService) recalculateArmaturaInTx(ctx context.Context, tx pgx.Tx, rows []entities.WorkOrderExecutor, totalAmount float64) error {
	for _, a := range rows {
		if a.ID == 0 {
			continue
		}
		amount, ok := RecalculateArmaturaAmount(a.WorkType, totalAmount)
		if !ok {
			continue
		}
		if err := s.executorRepo.UpdateAmountInTx(ctx, tx, a.ID, amount); err != nil {
			return err
		}
	}
	return nil
}

func applyWorkOrderChanges(order *entities.WorkOrder, payload dto.UpdateWorkOrderDTO) {
	if payload.MasterID != nil {
		order.MasterID = payload.MasterID
	}
	if payload.CustomerName != nil {
		order.CustomerName = *payload.CustomerName
	}
	if payload.CustomerPhone != nil {
		order.CustomerPhone = *payload.CustomerPhone
	}
	if payload.CarModel != nil {
		order.CarModel = *payload.CarModel
	}
	if payload.CarCondition != nil {
		order.CarCondition = *payload.CarCondition
	}
	if payload.TotalAmount != nil {
		order.TotalAmount = *payload.TotalAmount
	}
	if payload.PaymentMethod != nil {
		order.PaymentMethod = *payload.PaymentMethod
	}
}

func presentGroupTypes(payload AssignmentPayload) []entities.WorkType {
	groups := make([]entities.WorkType, 0)
	if payload.ArmaturaExecutors != nil {
		groups = append(groups, armaturaGroupTypes...)
	}
	if payload.FixedServices != nil {
		groups = append(groups, fixedGroupTypes...)
	}
	if payload.BodyPartsData != nil {
		groups = append(groups, bodyPartsGroupTypes...)
	}
	if payload.ServicesData != nil {
		groups = append(groups, servicesGroupTypes...)
	}
	if payload.AdditionalServices != nil {
		groups = append(groups, additionalGroupTypes...)
	}
	return groups
}

// simulateRecreation повторяет в памяти эффект delete-unpaid + insert,
// чтобы выбрать статус без чтения незакоммиченных строк.
func simulateRecreation(existing []entities.WorkOrderExecutor, deletedTypes []entities.WorkType, inserted []entities.WorkOrderExecutor) []entities.WorkOrderExecutor {
	deleted := make(map[entities.WorkType]bool, len(deletedTypes))
	for _, wt := range deletedTypes {
		deleted[wt] = true
	}

	remaining := make([]entities.WorkOrderExecutor, 0, len(existing)+len(inserted))
	for _, a := range existing {
		if deleted[a.WorkType] && !a.IsPaid {
			continue
		}
		remaining = append(remaining, a)
	}
	return append(remaining, inserted...)
}

func marshalPayloadBlobs(servicesData *dto.ServicesDataDTO, bodyPartsData map[string]dto.BodyPartDTO) (json.RawMessage, json.RawMessage, error) {
	var servicesRaw, bodyPartsRaw json.RawMessage

	if servicesData != nil {
		raw, err := json.Marshal(servicesData)
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка сериализации servicesData: %w", err)
		}
		servicesRaw = raw
	}
	if bodyPartsData != nil {
		raw, err := json.Marshal(bodyPartsData)
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка сериализации bodyPartsData: %w", err)
		}
		bodyPartsRaw = raw
	}
	return servicesRaw, bodyPartsRaw, nil
}

// --- ВИДИМОСТЬ ---

func (s *WorkOrderService) FindAll(ctx context.Context, actor authz.CurrentUser, filter types.Filter, onlyMine bool) ([]dto.WorkOrderDTO, uint64, error) {
	if filter.Filter == nil {
		filter.Filter = make(map[string]interface{})
	}

	var (
		orders []entities.WorkOrder
		total  uint64
		err    error
	)

	switch {
	case actor.HasPermission(authz.WorkOrdersViewAll):
		if onlyMine {
			filter.Filter["managerId"] = actor.ID
		}
		orders, total, err = s.orderRepo.List(ctx, filter)

	case actor.HasPermission(authz.WorkOrdersViewOwn):
		switch actor.Role {
		case authz.RoleMaster:
			filter.Filter["masterId"] = actor.ID
			orders, total, err = s.orderRepo.List(ctx, filter)
		case authz.RoleExecutor:
			orders, total, err = s.listForExecutor(ctx, actor.ID, filter)
		default:
			filter.Filter["managerId"] = actor.ID
			orders, total, err = s.orderRepo.List(ctx, filter)
		}

	default:
		return nil, 0, apperrors.ErrForbidden
	}
	if err != nil {
		return nil, 0, err
	}

	result := make([]dto.WorkOrderDTO, 0, len(orders))
	for i := range orders {
		item := buildWorkOrderDTO(&orders[i])
		RedactWorkOrderListItem(&item, actor)
		result = append(result, item)
	}
	return result, total, nil
}

// listForExecutor — видимость исполнителя: строка назначения, либо упоминание
// в JSON-блобах (запасной путь для legacy-payload-ов).
func (s *WorkOrderService) listForExecutor(ctx context.Context, executorID uint64, filter types.Filter) ([]entities.WorkOrder, uint64, error) {
	assignedIDs, err := s.executorRepo.ListExecutorOrderIDs(ctx, executorID)
	if err != nil {
		return nil, 0, err
	}

	// Страница нарезается после фильтра видимости: пагинация в SQL обрезала бы
	// выборку до проверки назначений, а total считался бы по странице.
	unpaged := filter
	unpaged.WithPagination = false
	orders, _, err := s.orderRepo.List(ctx, unpaged)
	if err != nil {
		return nil, 0, err
	}

	visible := make([]entities.WorkOrder, 0)
	for _, order := range orders {
		if assignedIDs[order.ID] || HasExecutorTaskInJSON(order.ServicesData, order.BodyPartsData, executorID) {
			visible = append(visible, order)
		}
	}

	total := uint64(len(visible))
	if filter.WithPagination && filter.Limit > 0 {
		start := filter.Offset
		if start < 0 {
			start = 0
		}
		if start >= len(visible) {
			return []entities.WorkOrder{}, total, nil
		}
		end := start + filter.Limit
		if end > len(visible) {
			end = len(visible)
		}
		visible = visible[start:end]
	}
	return visible, total, nil
}

func (s *WorkOrderService) canView(actor authz.CurrentUser, order *entities.WorkOrder, assignments []entities.WorkOrderExecutor) bool {
	if actor.HasPermission(authz.WorkOrdersViewAll) {
		return true
	}
	if !actor.HasPermission(authz.WorkOrdersViewOwn) {
		return false
	}

	switch actor.Role {
	case authz.RoleMaster:
		return order.MasterID != nil && *order.MasterID == actor.ID
	case authz.RoleExecutor:
		for _, a := range assignments {
			if a.ExecutorID == actor.ID {
				return true
			}
		}
		return HasExecutorTaskInJSON(order.ServicesData, order.BodyPartsData, actor.ID)
	default:
		return order.ManagerID == actor.ID
	}
}

func (s *WorkOrderService) FindOne(ctx context.Context, actor authz.CurrentUser, id uint64) (*dto.WorkOrderDetailDTO, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	assignments, err := s.executorRepo.ListByWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	// Отсутствие доступа неотличимо от отсутствия записи.
	if !s.canView(actor, order, assignments) {
		return nil, apperrors.ErrNotFound
	}

	detail := BuildWorkOrderDetail(order, assignments)
	RedactWorkOrderDetail(detail, actor)
	return detail, nil
}

// --- МАШИНА СОСТОЯНИЙ ---

func (s *WorkOrderService) StartWork(ctx context.Context, actor authz.CurrentUser, id uint64) error {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()

	if authz.IsSupervisor(actor.Role) {
		return s.orderRepo.UpdateStatus(ctx, order.ID, entities.WorkOrderStatusInProgress, &now, nil)
	}

	if actor.Role != authz.RoleExecutor {
		return apperrors.ErrForbidden
	}

	assignments, err := s.executorRepo.ListByWorkOrder(ctx, id)
	if err != nil {
		return err
	}

	own := 0
	for _, a := range assignments {
		if a.ExecutorID != actor.ID {
			continue
		}
		own++
		if a.Metadata.Status == entities.TaskStatusDone || a.Metadata.StartedAt != nil {
			continue
		}
		metadata := a.Metadata
		started := now
		metadata.StartedAt = &started
		if err := s.executorRepo.UpdateMetadata(ctx, a.ID, metadata); err != nil {
			return err
		}
	}
	if own == 0 {
		return apperrors.ErrForbidden
	}

	return s.orderRepo.UpdateStatus(ctx, order.ID, entities.WorkOrderStatusInProgress, &now, nil)
}

// SubmitForReview — намеренный pass-through: завершённость считается по задачам,
// сам статус заказ-наряда здесь не меняется. Эндпоинт оставлен для симметрии
// workflow и совместимости.
func (s *WorkOrderService) SubmitForReview(ctx context.Context, actor authz.CurrentUser, id uint64) error {
	if actor.Role != authz.RoleExecutor {
		return apperrors.ErrForbidden
	}

	_, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	assignments, err := s.executorRepo.ListByWorkOrder(ctx, id)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if a.ExecutorID == actor.ID {
			return nil
		}
	}
	return apperrors.ErrForbidden
}

func (s *WorkOrderService) UpdateTaskStatus(ctx context.Context, actor authz.CurrentUser, orderID, taskID uint64, payload dto.UpdateTaskStatusDTO) error {
	task, err := s.executorRepo.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.WorkOrderID != orderID {
		return apperrors.ErrNotFound
	}

	isOwner := task.ExecutorID == actor.ID && actor.HasPermission(authz.WorkOrdersEditAssigned)
	if !isOwner && !actor.HasPermission(authz.WorkOrdersEditAll) {
		return apperrors.ErrForbidden
	}

	newStatus := entities.TaskStatus(payload.Status)
	if !newStatus.IsValid() {
		return apperrors.NewInvalidInputError("недопустимый статус задачи: %q", payload.Status)
	}

	now := s.now()
	metadata := task.Metadata
	metadata.Status = newStatus
	switch newStatus {
	case entities.TaskStatusInProgress:
		if metadata.StartedAt == nil {
			metadata.StartedAt = &now
		}
	case entities.TaskStatusDone:
		if metadata.FinishedAt == nil {
			metadata.FinishedAt = &now
		}
	}

	if err := s.executorRepo.UpdateMetadata(ctx, taskID, metadata); err != nil {
		return err
	}

	return s.propagateTaskCompletion(ctx, orderID)
}

// propagateTaskCompletion — единственный автоматический переход: когда все
// задачи DONE, заказ-наряд возвращается мастеру. Повторный вывод "все готово"
// снова даёт ASSIGNED_TO_MASTER, а не ошибку.
func (s *WorkOrderService) propagateTaskCompletion(ctx context.Context, orderID uint64) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	// Завершённый заказ-наряд автопереход не трогает.
	if order.Status.IsTerminalStage() || order.Status == entities.WorkOrderStatusCompleted {
		return nil
	}

	assignments, err := s.executorRepo.ListByWorkOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}
	for _, a := range assignments {
		if a.Metadata.Status != entities.TaskStatusDone {
			return nil
		}
	}
	return s.orderRepo.UpdateStatus(ctx, orderID, entities.WorkOrderStatusAssignedToMaster, nil, nil)
}

func (s *WorkOrderService) Complete(ctx context.Context, actor authz.CurrentUser, id uint64, payload dto.CompleteWorkOrderDTO) error {
	if !actor.HasPermission(authz.WorkOrdersChangeStatus) {
		return apperrors.ErrForbidden
	}

	finalStage := entities.WorkOrderStatus(payload.FinalStage)
	if !finalStage.IsTerminalStage() {
		return apperrors.NewInvalidInputError("недопустимая финальная стадия: %q", payload.FinalStage)
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !authz.IsSupervisor(actor.Role) {
		if actor.Role != authz.RoleMaster {
			return apperrors.ErrForbidden
		}
		if order.MasterID == nil || *order.MasterID != actor.ID {
			return apperrors.ErrForbidden
		}
		if order.Status != entities.WorkOrderStatusAssignedToMaster {
			return apperrors.NewInvalidInputError("мастер может завершить заказ-наряд только со стадии ASSIGNED_TO_MASTER")
		}
	}

	now := s.now()
	return s.orderRepo.UpdateStatus(ctx, order.ID, finalStage, nil, &now)
}

// Approve и RequestRevision отключены: этап согласования убран из процесса,
// эндпоинты оставлены заглушками для обратной совместимости.

func (s *WorkOrderService) Approve(ctx context.Context, actor authz.CurrentUser, id uint64) error {
	return apperrors.NewHttpError(http.StatusGone, "этап согласования отключён", nil)
}

func (s *WorkOrderService) RequestRevision(ctx context.Context, actor authz.CurrentUser, id uint64) error {
	return apperrors.NewHttpError(http.StatusGone, "этап согласования отключён", nil)
}

// --- ФОТО ---

func (s *WorkOrderService) AddPhotos(ctx context.Context, actor authz.CurrentUser, id uint64, payload dto.AddPhotosDTO) error {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	allowed := actor.HasPermission(authz.WorkOrdersEditAll) ||
		(actor.Role == authz.RoleMaster && order.MasterID != nil && *order.MasterID == actor.ID)
	if !allowed {
		return apperrors.ErrForbidden
	}

	return s.orderRepo.AppendPhotos(ctx, order.ID, payload.Kind, payload.Photos)
}
