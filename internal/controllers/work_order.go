package controllers

import (
	"context"
	"net/http"
	"strconv"

	"workshop-system/internal/authz"
	"workshop-system/internal/dto"
	"workshop-system/internal/services"
	apperrors "workshop-system/pkg/errors"
	"workshop-system/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type WorkOrderController struct {
	workOrderService services.WorkOrderServiceInterface
	logger           *zap.Logger
}

func NewWorkOrderController(workOrderService services.WorkOrderServiceInterface, logger *zap.Logger) *WorkOrderController {
	return &WorkOrderController{workOrderService: workOrderService, logger: logger}
}

func parseIDParam(ctx echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID", err)
	}
	return id, nil
}

func (c *WorkOrderController) CreateWorkOrder(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	actor, err := utils.GetCurrentUserFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.CreateWorkOrderDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	created, err := c.workOrderService.Create(reqCtx, actor, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, created, "Заказ-наряд успешно создан", http.StatusCreated)
}

func (c *WorkOrderController) GetWorkOrders(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	actor, err := utils.GetCurrentUserFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())
	onlyMine := ctx.QueryParam("mine") == "true"

	list, total, err := c.workOrderService.FindAll(reqCtx, actor, filter, onlyMine)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, list, "Список заказ-нарядов успешно получен", http.StatusOK, total)
}

func (c *WorkOrderController) FindWorkOrder(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	actor, err := utils.GetCurrentUserFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.workOrderService.FindOne(reqCtx, actor, id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, res, "Заказ-наряд успешно найден", http.StatusOK)
}

func (c *WorkOrderController) UpdateWorkOrder(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	actor, err := utils.GetCurrentUserFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UpdateWorkOrderDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	updated, err := c.workOrderService.Update(reqCtx, actor, id, payload)
	if err != nil {
		c.logger.Error("ошибка обновления заказ-наряда", zap.Uint64("id", id), zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, updated, "Заказ-наряд успешно обновлён", http.StatusOK)
}

func (c *WorkOrderController) StartWork(ctx echo.Context) error {
	return c.simpleStatusAction(ctx, c.workOrderService.StartWork, "Работы по заказ-наряду начаты")
}

func (c *WorkOrderController) SubmitForReview(ctx echo.Context) error {
	return c.simpleStatusAction(ctx, c.workOrderService.SubmitForReview, "Заказ-наряд передан на проверку")
}

func (c *WorkOrderController) ApproveWorkOrder(ctx echo.Context) error {
	return c.simpleStatusAction(ctx, c.workOrderService.Approve, "Заказ-наряд согласован")
}

func (c *WorkOrderController) RequestRevision(ctx echo.Context) error {
	return c.simpleStatusAction(ctx, c.workOrderService.RequestRevision, "Заказ-наряд отправлен на доработку")
}

func (c *WorkOrderController) simpleStatusAction(
	ctx echo.Context,
	action func(reqCtx context.Context, actor authz.CurrentUser, id uint64) error,
	message string,
) error {
	reqCtx := ctx.Request().Context()

	actor, err := utils.GetCurrentUserFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := action(reqCtx, actor, id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, message, http.StatusOK)
}

func (c *WorkOrderController) CompleteWorkOrder(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	actor, err := utils.GetCurrentUserFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.CompleteWorkOrderDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.workOrderService.Complete(reqCtx, actor, id, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Заказ-наряд успешно завершён", http.StatusOK)
}

func (c *WorkOrderController) UpdateTaskStatus(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	actor, err := utils.GetCurrentUserFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	orderID, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	taskID, err := parseIDParam(ctx, "taskId")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UpdateTaskStatusDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.workOrderService.UpdateTaskStatus(reqCtx, actor, orderID, taskID, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Статус задачи успешно изменён", http.StatusOK)
}

func (c *WorkOrderController) AddPhotos(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	actor, err := utils.GetCurrentUserFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.AddPhotosDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Неверное тело запроса", err),
			c.logger,
		)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.workOrderService.AddPhotos(reqCtx, actor, id, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Фотографии успешно добавлены", http.StatusOK)
}
