package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tradepost/storefront/internal/hash"
	"github.com/tradepost/storefront/internal/models"
)

const tokenTTL = 7 * 24 * time.Hour

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
}

func CreateCookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) Signin(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var merchant models.Merchant
	if err := h.DB.Where("email = ?", req.Email).First(&merchant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "User not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	if !hash.CheckPassword(merchant.PasswordHash, req.Password) {
		return errorJSON(c, http.StatusUnauthorized, "Invalid Login Credentials")
	}

	expires := time.Now().Add(tokenTTL)
	claims := jwt.MapClaims{
		"sub": merchant.ID,
		"exp": expires.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.JWTSecret)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "could not create token")
	}

	c.SetCookie(CreateCookie("mc", token, "/", expires))

	return c.JSON(http.StatusOK, echo.Map{
		"user":  merchant,
		"token": token,
	})
}

func (h *AuthHandler) Signout(c echo.Context) error {
	c.SetCookie(CreateCookie("mc", "", "/", time.Now().Add(-time.Hour)))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "signed out successfully",
	})
}
