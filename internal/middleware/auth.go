package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tradepost/storefront/internal/models"
)

const merchantContextKey = "merchant"

type Auth struct {
	DB        *gorm.DB
	JWTSecret []byte
}

// RequireMerchant validates the bearer token, loads the merchant it names
// and rejects unconfirmed accounts.
func (a *Auth) RequireMerchant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return echo.NewHTTPError(http.StatusUnauthorized, "Login required")
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.JWTSecret, nil
		})
		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "Login required")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
		}
		subRaw, ok := claims["sub"].(float64)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
		}

		var merchant models.Merchant
		if err := a.DB.First(&merchant, uint(subRaw)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Login required")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		if !merchant.Confirmed {
			return echo.NewHTTPError(http.StatusUnauthorized, "Account has not been confirmed")
		}

		c.Set(merchantContextKey, &merchant)
		return next(c)
	}
}

// CurrentMerchant returns the merchant stashed by RequireMerchant, or nil
// on unauthenticated routes.
func CurrentMerchant(c echo.Context) *models.Merchant {
	if m, ok := c.Get(merchantContextKey).(*models.Merchant); ok {
		return m
	}
	return nil
}

// SetMerchant is used by tests to run handlers without the full middleware
// chain.
func SetMerchant(c echo.Context, m *models.Merchant) {
	c.Set(merchantContextKey, m)
}
