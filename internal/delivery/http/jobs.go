package http

import (
	"net/http"
	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"

	"github.com/labstack/echo/v4"
)

const jobHistoryLimit = 5

func (h *HttpAPIHandler) SetupJobs(admin *echo.Group) {
	jobs := admin.Group("/jobs")
	{
		jobs.GET("", h.listJobs)
		jobs.POST("/run", h.runJobs)
		jobs.POST("/:name/run", h.runJob)
	}
}

func (h *HttpAPIHandler) listJobs(c echo.Context) error {
	jobs, err := h.service.SchedulerService.GetJobSchedule(c.Request().Context(), model.GetJobParam{
		HistoryLimit: utils.ToPointer(jobHistoryLimit),
	})
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", jobs))
}

// runJobs runs every due schedule, the same pass the cron tick makes.
func (h *HttpAPIHandler) runJobs(c echo.Context) error {
	response := dto.NewBaseResponse(http.StatusOK, "Start running jobs", nil)
	if err := h.service.SchedulerService.Execute(c.Request().Context()); err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(response.Code, response)
}

func (h *HttpAPIHandler) runJob(c echo.Context) error {
	req := new(dto.RunJobRequest)
	if ok, err := h.bind(c, req); !ok {
		return err
	}

	history, err := h.service.SchedulerService.RunJobByName(c.Request().Context(), req.Name)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusAccepted, dto.NewBaseResponse(http.StatusAccepted, "Job started", history))
}
