package routes

import (
	"github.com/labstack/echo/v4"

	"workshop-system/internal/controllers"
)

func runWorkOrderRouter(secureGroup *echo.Group, ctrl *controllers.WorkOrderController) {
	{
		secureGroup.GET("/work-orders", ctrl.GetWorkOrders)
		secureGroup.POST("/work-orders", ctrl.CreateWorkOrder)
		secureGroup.GET("/work-orders/:id", ctrl.FindWorkOrder)
		secureGroup.PUT("/work-orders/:id", ctrl.UpdateWorkOrder)

		secureGroup.POST("/work-orders/:id/start", ctrl.StartWork)
		secureGroup.POST("/work-orders/:id/submit-for-review", ctrl.SubmitForReview)
		secureGroup.POST("/work-orders/:id/complete", ctrl.CompleteWorkOrder)
		secureGroup.POST("/work-orders/:id/approve", ctrl.ApproveWorkOrder)
		secureGroup.POST("/work-orders/:id/request-revision", ctrl.RequestRevision)

		secureGroup.PATCH("/work-orders/:id/tasks/:taskId/status", ctrl.UpdateTaskStatus)
		secureGroup.POST("/work-orders/:id/photos", ctrl.AddPhotos)
	}
}
