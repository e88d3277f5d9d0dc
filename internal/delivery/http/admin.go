package http

import (
	"net/http"
	"stock-forecast/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupAdmin(admin *echo.Group) {
	admin.GET("/companies", h.listCompanies)
	admin.POST("/companies", h.createCompany)
	admin.PUT("/companies/:symbol", h.updateCompany)
	admin.GET("/predictions", h.listPredictions)
}

func (h *HttpAPIHandler) createCompany(c echo.Context) error {
	req := new(dto.CompanyRequest)
	if ok, err := h.bind(c, req); !ok {
		return err
	}

	company, err := h.service.CompanyService.Create(c.Request().Context(), *req)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "Company created", company))
}

func (h *HttpAPIHandler) updateCompany(c echo.Context) error {
	req := new(dto.UpdateCompanyRequest)
	if ok, err := h.bind(c, req); !ok {
		return err
	}

	company, err := h.service.CompanyService.Update(c.Request().Context(), c.Param("symbol"), *req)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Company updated", company))
}

func (h *HttpAPIHandler) listPredictions(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(http.StatusBadRequest, codeInvalidArgument, err.Error()))
	}

	rows, err := h.service.ForecastService.All(c.Request().Context(), limit)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", rows))
}
