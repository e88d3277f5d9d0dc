package http

import (
	"context"
	"net/http"
	"stock-forecast/config"
	"stock-forecast/internal/service"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/middleware"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

type HttpAPIHandler struct {
	ctx       context.Context
	cfg       *config.Config
	log       *logger.Logger
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
}

func NewHttpAPIHandler(ctx context.Context, cfg *config.Config, log *logger.Logger, echo *echo.Echo, validator *goValidator.Validate, service *service.Service) *HttpAPIHandler {
	return &HttpAPIHandler{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		echo:      echo,
		validator: validator,
		service:   service,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.echo.HideBanner = true
	h.echo.Use(echoMiddleware.Recover())
	h.echo.Use(middleware.RequestLogger(h.log))
	if h.cfg.API.RateLimit > 0 {
		h.echo.Use(middleware.NewRateLimiterMiddleware(h.cfg.API.RateLimit, h.cfg.API.RateLimitBurst))
	}

	h.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	base := h.echo.Group("/api")
	v1 := base.Group("/v1")
	h.SetupAuth(v1)

	authed := v1.Group("", middleware.JWTAuth(h.cfg.API.JWTSecret))
	h.SetupDashboard(authed)
	h.SetupCompanies(authed)
	h.SetupForecasts(authed)

	admin := v1.Group("/admin", middleware.JWTAuth(h.cfg.API.JWTSecret), middleware.RequireSuperuser(h.service.AuthService.IsSuperuser))
	h.SetupAdmin(admin)
	h.SetupJobs(admin)
}

// bind decodes and validates req, writing a 400 response on failure. It
// reports whether the handler should continue.
func (h *HttpAPIHandler) bind(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, newErrorResponse(http.StatusBadRequest, codeInvalidArgument, "invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, newErrorResponse(http.StatusBadRequest, codeInvalidArgument, validationMessage(err)))
	}
	return true, nil
}

func (h *HttpAPIHandler) userID(c echo.Context) uint {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return 0
	}
	return claims.UserID
}
