package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tradepost/storefront/internal/events"
	"github.com/tradepost/storefront/internal/middleware"
	"github.com/tradepost/storefront/internal/models"
	"github.com/tradepost/storefront/internal/util"
)

type StoreHandler struct {
	DB     *gorm.DB
	Events events.Publisher
}

type createStoreRequest struct {
	Name     string `json:"name"     validate:"required,min=3"`
	Bio      string `json:"bio"`
	Category string `json:"category" validate:"required"`
}

type storeUpdate struct {
	Name     *string `json:"name,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Category *string `json:"category,omitempty"`
	Image    *string `json:"image,omitempty"`
}

// findOwnStore loads a store and checks the requesting merchant owns it.
func (h *StoreHandler) findOwnStore(c echo.Context, id uint, action string) (*models.Store, error) {
	var store models.Store
	if err := h.DB.First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorJSON(c, http.StatusNotFound, "Store not found")
		}
		return nil, errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	merchant := middleware.CurrentMerchant(c)
	if store.MerchantID != merchant.ID {
		return nil, errorJSON(c, http.StatusForbidden,
			fmt.Sprintf("Merchant is not authorized to %s this store", action))
	}
	return &store, nil
}

func (h *StoreHandler) CreateStore(c echo.Context) error {
	var req createStoreRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if !models.StoreCategories[req.Category] {
		return errorJSON(c, http.StatusBadRequest, "category must be one of the supported store categories")
	}

	merchant := middleware.CurrentMerchant(c)
	store := models.Store{
		Name:       req.Name,
		Bio:        req.Bio,
		Category:   req.Category,
		MerchantID: merchant.ID,
	}
	if err := h.DB.Create(&store).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	publish(c, h.Events, events.TopicStoreEvents, fmt.Sprint(store.ID), map[string]interface{}{
		"type":       "store_created",
		"storeID":    store.ID,
		"merchantID": merchant.ID,
		"name":       store.Name,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "store created successfully",
	})
}

func (h *StoreHandler) GetStoresByMerchant(c echo.Context) error {
	merchant := middleware.CurrentMerchant(c)
	skip := util.Skip(c.QueryParam("skip"))

	var stores []models.Store
	if err := h.DB.
		Where("merchant_id = ?", merchant.ID).
		Order("created_at DESC").
		Limit(util.PageSize).
		Offset(skip).
		Find(&stores).Error; err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, stores)
}

func (h *StoreHandler) GetStoreByID(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid store id")
	}

	store, err := h.findOwnStore(c, uint(id), "view")
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, store)
}

func (h *StoreHandler) UpdateStore(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid store id")
	}

	var update storeUpdate
	if err := bindStrict(c, &update); err != nil {
		return err
	}
	if update == (storeUpdate{}) {
		return errorJSON(c, http.StatusBadRequest, "At least one field must be updated")
	}

	store, err := h.findOwnStore(c, uint(id), "update")
	if err != nil {
		return err
	}

	if update.Name != nil {
		store.Name = *update.Name
	}
	if update.Bio != nil {
		store.Bio = *update.Bio
	}
	if update.Category != nil {
		if !models.StoreCategories[*update.Category] {
			return errorJSON(c, http.StatusBadRequest, "category must be one of the supported store categories")
		}
		store.Category = *update.Category
	}
	if update.Image != nil {
		store.Image = *update.Image
	}

	if err := h.DB.Save(store).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, store)
}

// RemoveStore deletes the store and its products in one transaction.
func (h *StoreHandler) RemoveStore(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid store id")
	}

	store, err := h.findOwnStore(c, uint(id), "remove")
	if err != nil {
		return err
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store_id = ?", store.ID).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Store{}, store.ID).Error
	})
	if txErr != nil {
		return errorJSON(c, http.StatusInternalServerError, txErr.Error())
	}

	publish(c, h.Events, events.TopicStoreEvents, fmt.Sprint(store.ID), map[string]interface{}{
		"type":    "store_deleted",
		"storeID": store.ID,
	})

	return c.JSON(http.StatusOK, store)
}

func (h *StoreHandler) UploadStoreImage(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("storeId"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid store id")
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	store, err := h.findOwnStore(c, uint(id), "upload images for")
	if err != nil {
		return err
	}

	store.Image = req.URL
	if err := h.DB.Save(store).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "store image uploaded",
	})
}
