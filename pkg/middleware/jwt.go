package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const claimsContextKey = "auth_claims"

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims identifies the caller. Handlers read it from the echo context and
// pass the ids on explicitly.
type Claims struct {
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	IsSuperuser bool   `json:"is_superuser"`
	jwt.RegisteredClaims
}

// GenerateJWT signs an HS256 token for the user valid for ttl.
func GenerateJWT(secret string, ttl time.Duration, userID uint, username string, isSuperuser bool) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID:      userID,
		Username:    username,
		IsSuperuser: isSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func ParseJWT(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JWTAuth rejects requests without a valid bearer token.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, Response{
					Code:    http.StatusUnauthorized,
					Error:   "unauthorized",
					Message: "Missing or invalid Authorization header",
				})
			}

			claims, err := ParseJWT(secret, strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, Response{
					Code:    http.StatusUnauthorized,
					Error:   "unauthorized",
					Message: err.Error(),
				})
			}

			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// SuperuserLookup reports whether the user currently holds administrator rights.
type SuperuserLookup func(ctx context.Context, userID uint) (bool, error)

// RequireSuperuser must run after JWTAuth. The token claim is confirmed with
// lookup on every request, so revoked rights apply before the token expires.
func RequireSuperuser(lookup SuperuserLookup) echo.MiddlewareFunc {
	forbidden := func(c echo.Context) error {
		return c.JSON(http.StatusForbidden, Response{
			Code:    http.StatusForbidden,
			Error:   "forbidden",
			Message: "Administrator access required",
		})
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFromContext(c)
			if !ok || !claims.IsSuperuser {
				return forbidden(c)
			}
			isSuperuser, err := lookup(c.Request().Context(), claims.UserID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, Response{
					Code:    http.StatusInternalServerError,
					Error:   "internal_error",
					Message: "Failed to verify account",
				})
			}
			if !isSuperuser {
				return forbidden(c)
			}
			return next(c)
		}
	}
}

func ClaimsFromContext(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}
