package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"workshop-system/internal/entities"
	"workshop-system/internal/services"
	"workshop-system/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type ReportController struct {
	reportService services.ReportServiceInterface
	logger        *zap.Logger
}

func NewReportController(reportService services.ReportServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{reportService: reportService, logger: logger}
}

// GetWorkOrdersReport — финансовый отчёт по заказ-нарядам.
// ?format=xlsx выгружает его файлом, иначе — JSON с пагинацией.
func (c *ReportController) GetWorkOrdersReport(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	actor, err := utils.GetCurrentUserFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	filter, format := c.parseFilters(ctx)

	if format == "xlsx" {
		items, _, err := c.reportService.GetFinanceReport(reqCtx, actor, filter)
		if err != nil {
			return utils.ErrorResponse(ctx, err, c.logger)
		}
		return c.respondWithXLSX(ctx, items)
	}

	dtos, total, err := c.reportService.GetFinanceReportDTOs(reqCtx, actor, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, dtos, "Отчёт успешно сформирован", http.StatusOK, total)
}

func (c *ReportController) parseFilters(ctx echo.Context) (entities.ReportFilter, string) {
	stdFilter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())
	filter := entities.ReportFilter{
		Page:    stdFilter.Page,
		PerPage: stdFilter.Limit,
	}
	format := strings.ToLower(ctx.QueryParam("format"))

	if format == "xlsx" {
		// В файл выгружается весь отчёт, без пагинации.
		filter.Page = 1
		filter.PerPage = 100000
	}

	if df := ctx.QueryParam("date_from"); df != "" {
		if t, err := time.Parse(time.RFC3339, df); err == nil {
			filter.DateFrom = &t
		}
	}
	if dt := ctx.QueryParam("date_to"); dt != "" {
		if t, err := time.Parse(time.RFC3339, dt); err == nil {
			filter.DateTo = &t
		}
	}
	if statuses := ctx.QueryParam("statuses"); statuses != "" {
		filter.Statuses = strings.Split(statuses, ",")
	}

	return filter, format
}

var reportHeaders = []string{
	"№ заказ-наряда", "Клиент", "Автомобиль", "Менеджер", "Мастер", "Статус",
	"Сумма заказа", "Способ оплаты", "Начислено исполнителям", "Выплачено",
	"Задач всего", "Задач выполнено", "Дата создания", "Дата завершения",
}

func reportRowToSlice(item entities.ReportItem) []interface{} {
	dateFmt := "02.01.2006"
	var completedAt string
	if item.CompletedAt.Valid {
		completedAt = item.CompletedAt.Time.Format(dateFmt)
	}

	return []interface{}{
		item.OrderNumber, item.CustomerName, item.CarModel.String,
		item.ManagerFio.String, item.MasterFio.String, string(item.Status),
		item.TotalAmount, item.PaymentMethod.String,
		item.WorksAmount.Float64, item.PaidAmount.Float64,
		item.TasksTotal, item.TasksDone,
		item.CreatedAt.Format(dateFmt), completedAt,
	}
}

func (c *ReportController) respondWithXLSX(ctx echo.Context, items []entities.ReportItem) error {
	f := excelize.NewFile()
	sheet := "Отчёт по заказ-нарядам"
	f.SetSheetName("Sheet1", sheet)
	f.SetSheetRow(sheet, "A1", &reportHeaders)
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "N1", style)

	for i, item := range items {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := reportRowToSlice(item)
		f.SetSheetRow(sheet, cell, &row)
	}
	f.SetColWidth(sheet, "A", "A", 18)
	f.SetColWidth(sheet, "B", "F", 25)
	f.SetColWidth(sheet, "G", "J", 20)
	f.SetColWidth(sheet, "M", "N", 18)

	fileName := fmt.Sprintf("work_orders_report_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
