package http

import (
	"bytes"
	"fmt"
	"net/http"
	"stock-forecast/internal/chart"
	"stock-forecast/internal/dto"
	"stock-forecast/internal/service"
	"strconv"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupForecasts(g *echo.Group) {
	forecast := g.Group("/companies/:symbol/forecast")
	forecast.POST("", h.forecast)
	forecast.GET("", h.storedForecast)
	forecast.GET("/chart", h.forecastChart)
}

func (h *HttpAPIHandler) forecast(c echo.Context) error {
	req := new(dto.ForecastRequest)
	if ok, err := h.bind(c, req); !ok {
		return err
	}

	resp, err := h.service.ForecastService.Forecast(c.Request().Context(), service.ForecastInput{
		UserID:    h.userID(c),
		Symbol:    req.Symbol,
		StartDate: req.StartDate,
		Period:    req.Period,
		Frequency: req.Frequency,
	})
	if err != nil {
		return h.handleError(c, err)
	}

	message := "Forecast generated"
	if resp.Notice != "" {
		message = resp.Notice
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(message, resp))
}

func queryLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return limit, nil
}

func (h *HttpAPIHandler) storedForecast(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(http.StatusBadRequest, codeInvalidArgument, err.Error()))
	}

	resp, err := h.service.ForecastService.Stored(c.Request().Context(), h.userID(c), c.Param("symbol"), limit)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", resp))
}

func (h *HttpAPIHandler) forecastChart(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, newErrorResponse(http.StatusBadRequest, codeInvalidArgument, err.Error()))
	}

	resp, err := h.service.ForecastService.Stored(c.Request().Context(), h.userID(c), c.Param("symbol"), limit)
	if err != nil {
		return h.handleError(c, err)
	}

	var buf bytes.Buffer
	title := fmt.Sprintf("%s (%s) forecast", resp.CompanyName, resp.CompanySymbol)
	if err := chart.RenderHTML(&buf, title, resp.Chart); err != nil {
		return h.handleError(c, err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
