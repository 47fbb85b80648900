package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tradepost/storefront/internal/events"
	"github.com/tradepost/storefront/internal/hash"
	"github.com/tradepost/storefront/internal/mail"
	"github.com/tradepost/storefront/internal/middleware"
	"github.com/tradepost/storefront/internal/models"
)

type MerchantHandler struct {
	DB     *gorm.DB
	Mailer mail.Mailer
	Events events.Publisher
	AppURL string
}

type createMerchantRequest struct {
	FirstName   string `json:"first_name"   validate:"required,min=3,max=30"`
	LastName    string `json:"last_name"    validate:"required,min=3,max=30"`
	Email       string `json:"email"        validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required,len=14"`
	Password    string `json:"password"     validate:"required,min=3,max=30,alphanum"`
}

// merchantUpdate is the allow-list for PATCH /api/users. Password changes go
// through ChangePassword only.
type merchantUpdate struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Image       *string `json:"image,omitempty"`
}

func (h *MerchantHandler) CreateMerchant(c echo.Context) error {
	var req createMerchantRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	merchant := models.Merchant{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: passwordHash,
	}
	if err := h.DB.Create(&merchant).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	subject, body := mail.AccountConfirmation(h.AppURL, merchant.FirstName, merchant.ID)
	sendMail(c, h.Mailer, merchant.Email, subject, body)

	publish(c, h.Events, events.TopicMerchantEvents, fmt.Sprint(merchant.ID), map[string]interface{}{
		"type":       "merchant_created",
		"merchantID": merchant.ID,
		"email":      merchant.Email,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "user signup successful",
	})
}

func (h *MerchantHandler) ConfirmMerchant(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}

	var merchant models.Merchant
	if err := h.DB.First(&merchant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	merchant.Confirmed = true
	if err := h.DB.Save(&merchant).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "user account confirmed successfully",
	})
}

func (h *MerchantHandler) GetMerchant(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.CurrentMerchant(c))
}

// GetMerchantByID is the public profile lookup: no password hash is
// serialized and the email is the only contact detail exposed.
func (h *MerchantHandler) GetMerchantByID(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}

	var merchant models.Merchant
	if err := h.DB.First(&merchant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "User not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, merchant)
}

func (h *MerchantHandler) UpdateMerchant(c echo.Context) error {
	merchant := middleware.CurrentMerchant(c)

	var update merchantUpdate
	if err := bindStrict(c, &update); err != nil {
		return err
	}

	if update.FirstName != nil {
		merchant.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		merchant.LastName = *update.LastName
	}
	if update.Email != nil {
		merchant.Email = *update.Email
	}
	if update.PhoneNumber != nil {
		merchant.PhoneNumber = *update.PhoneNumber
	}
	if update.Image != nil {
		merchant.Image = *update.Image
	}

	if err := h.DB.Save(merchant).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, merchant)
}

func (h *MerchantHandler) DeleteMerchant(c echo.Context) error {
	merchant := middleware.CurrentMerchant(c)

	if err := h.DB.Delete(&models.Merchant{}, merchant.ID).Error; err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Events, events.TopicMerchantEvents, fmt.Sprint(merchant.ID), map[string]interface{}{
		"type":       "merchant_deleted",
		"merchantID": merchant.ID,
	})

	return c.JSON(http.StatusOK, merchant)
}

func (h *MerchantHandler) ChangePassword(c echo.Context) error {
	merchant := middleware.CurrentMerchant(c)

	var req struct {
		OldPassword       string `json:"old_password"`
		NewPassword       string `json:"new_password"`
		ConfirmedPassword string `json:"confirmed_password"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	if !hash.CheckPassword(merchant.PasswordHash, req.OldPassword) {
		return errorJSON(c, http.StatusUnauthorized, "wrong old password")
	}
	if req.NewPassword != req.ConfirmedPassword {
		return errorJSON(c, http.StatusUnauthorized, "your new password and confirmed password must be the same")
	}

	passwordHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	merchant.PasswordHash = passwordHash
	if err := h.DB.Save(merchant).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "password changed successfully",
	})
}

// UploadImage records the uploaded profile image URL. Storage itself is
// handled by the upload provider.
func (h *MerchantHandler) UploadImage(c echo.Context) error {
	merchant := middleware.CurrentMerchant(c)

	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	merchant.Image = req.URL
	if err := h.DB.Save(merchant).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "user profile image uploaded",
	})
}
