package routes

import (
	"github.com/labstack/echo/v4"

	"workshop-system/internal/controllers"
)

func runRequestRouter(api *echo.Group, secureGroup *echo.Group, ctrl *controllers.RequestController) {
	// Публичный приём заявок с сайта.
	api.POST("/requests", ctrl.CreateRequest)

	{
		secureGroup.GET("/requests", ctrl.GetRequests)
		secureGroup.GET("/requests/:id", ctrl.FindRequest)
		secureGroup.PATCH("/requests/:id/status", ctrl.ChangeRequestStatus)
	}
}
