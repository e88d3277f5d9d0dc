package http

import (
	"net/http"
	"stock-forecast/internal/dto"
	"stock-forecast/internal/service"
	"stock-forecast/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupAuth(v1 *echo.Group) {
	auth := v1.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)

	v1.GET("/me", h.me, middleware.JWTAuth(h.cfg.API.JWTSecret))
}

func (h *HttpAPIHandler) register(c echo.Context) error {
	req := new(dto.RegisterRequest)
	if ok, err := h.bind(c, req); !ok {
		return err
	}

	user, err := h.service.AuthService.Register(c.Request().Context(), *req)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "Registration successful", service.ToUserResponse(user)))
}

func (h *HttpAPIHandler) login(c echo.Context) error {
	req := new(dto.LoginRequest)
	if ok, err := h.bind(c, req); !ok {
		return err
	}

	token, err := h.service.AuthService.Login(c.Request().Context(), *req)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Login successful", token))
}

func (h *HttpAPIHandler) me(c echo.Context) error {
	user, err := h.service.AuthService.GetUser(c.Request().Context(), h.userID(c))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("OK", service.ToUserResponse(user)))
}
