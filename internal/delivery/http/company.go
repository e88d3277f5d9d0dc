package http

import (
	"net/http"
	"stock-forecast/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupDashboard(g *echo.Group) {
	g.GET("/dashboard", h.dashboard)
}

func (h *HttpAPIHandler) SetupCompanies(g *echo.Group) {
	companies := g.Group("/companies")
	companies.GET("", h.listCompanies)
	companies.GET("/:symbol", h.companyDetail)
	companies.GET("/:symbol/reviews", h.listReviews)
	companies.PUT("/:symbol/reviews", h.upsertReview)
}

func (h *HttpAPIHandler) dashboard(c echo.Context) error {
	resp, err := h.service.DashboardService.Get(c.Request().Context(), h.userID(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", resp))
}

func (h *HttpAPIHandler) listCompanies(c echo.Context) error {
	companies, err := h.service.CompanyService.List(c.Request().Context())
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", companies))
}

func (h *HttpAPIHandler) companyDetail(c echo.Context) error {
	detail, err := h.service.CompanyService.Detail(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", detail))
}

func (h *HttpAPIHandler) listReviews(c echo.Context) error {
	reviews, err := h.service.ReviewService.List(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", reviews))
}

func (h *HttpAPIHandler) upsertReview(c echo.Context) error {
	req := new(dto.ReviewRequest)
	if ok, err := h.bind(c, req); !ok {
		return err
	}

	review, err := h.service.ReviewService.Upsert(c.Request().Context(), h.userID(c), c.Param("symbol"), *req)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Review saved", review))
}
