package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tradepost/storefront/internal/events"
	"github.com/tradepost/storefront/internal/middleware"
	"github.com/tradepost/storefront/internal/models"
	"github.com/tradepost/storefront/internal/search"
	"github.com/tradepost/storefront/internal/util"
)

type ProductHandler struct {
	DB     *gorm.DB
	Events events.Publisher
	ES     *elasticsearch.Client
}

type createProductRequest struct {
	Name        string   `json:"name"        validate:"required,min=3"`
	Description string   `json:"description"`
	Quantity    *int     `json:"quantity"    validate:"required,gte=0"`
	Price       *float64 `json:"price"       validate:"required,gte=0"`
	Limit       int      `json:"limit"       validate:"gte=0"`
}

type productUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Quantity    *int     `json:"quantity,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Limit       *int     `json:"limit,omitempty"`
	Image       *string  `json:"image,omitempty"`
}

func (h *ProductHandler) findOwnProduct(c echo.Context, id uint, action string) (*models.Product, error) {
	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorJSON(c, http.StatusNotFound, "Product not found")
		}
		return nil, errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	merchant := middleware.CurrentMerchant(c)
	if product.MerchantID != merchant.ID {
		return nil, errorJSON(c, http.StatusForbidden,
			fmt.Sprintf("Merchant is not authorized to %s this product", action))
	}
	return &product, nil
}

// indexProduct mirrors the product into elasticsearch, best effort.
func (h *ProductHandler) indexProduct(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	if err := search.IndexProduct(c.Request().Context(), h.ES, p); err != nil {
		c.Logger().Errorf("product index error: %v", err)
	}
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	storeID, err := strconv.Atoi(c.Param("storeId"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid store id")
	}

	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	merchant := middleware.CurrentMerchant(c)

	var store models.Store
	if err := h.DB.First(&store, storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Store not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	if store.MerchantID != merchant.ID {
		return errorJSON(c, http.StatusForbidden, "Merchant is not authorized to add products to this store")
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Quantity:    *req.Quantity,
		Price:       *req.Price,
		StockLimit:  req.Limit,
		StoreID:     store.ID,
		MerchantID:  merchant.ID,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	h.indexProduct(c, &product)
	publish(c, h.Events, events.TopicProductEvents, fmt.Sprint(product.ID), map[string]interface{}{
		"type":      "product_created",
		"productID": product.ID,
		"storeID":   store.ID,
		"name":      product.Name,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "product created successfully",
	})
}

func (h *ProductHandler) GetProductsByStore(c echo.Context) error {
	storeID, err := strconv.Atoi(c.Param("storeId"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid store id")
	}
	skip := util.Skip(c.QueryParam("skip"))

	var products []models.Product
	if err := h.DB.
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(util.PageSize).
		Offset(skip).
		Find(&products).Error; err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProductByID(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Product not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid product id")
	}

	var update productUpdate
	if err := bindStrict(c, &update); err != nil {
		return err
	}
	if update == (productUpdate{}) {
		return errorJSON(c, http.StatusBadRequest, "At least one field must be updated")
	}

	product, err := h.findOwnProduct(c, uint(id), "update")
	if err != nil {
		return err
	}

	if update.Name != nil {
		product.Name = *update.Name
	}
	if update.Description != nil {
		product.Description = *update.Description
	}
	if update.Quantity != nil {
		if *update.Quantity < 0 {
			return errorJSON(c, http.StatusBadRequest, "quantity must not be negative")
		}
		product.Quantity = *update.Quantity
	}
	if update.Price != nil {
		product.Price = *update.Price
	}
	if update.Limit != nil {
		product.StockLimit = *update.Limit
	}
	if update.Image != nil {
		product.Image = *update.Image
	}

	if err := h.DB.Save(product).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	h.indexProduct(c, product)
	publish(c, h.Events, events.TopicProductEvents, fmt.Sprint(product.ID), map[string]interface{}{
		"type":      "product_updated",
		"productID": product.ID,
		"name":      product.Name,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Product updated successfully",
	})
}

func (h *ProductHandler) RemoveProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid product id")
	}

	product, err := h.findOwnProduct(c, uint(id), "remove")
	if err != nil {
		return err
	}

	if err := h.DB.Delete(&models.Product{}, product.ID).Error; err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	if h.ES != nil {
		if err := search.DeleteProduct(c.Request().Context(), h.ES, product.ID); err != nil {
			c.Logger().Errorf("product index delete error: %v", err)
		}
	}
	publish(c, h.Events, events.TopicProductEvents, fmt.Sprint(product.ID), map[string]interface{}{
		"type":      "product_deleted",
		"productID": product.ID,
	})

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) UploadProductImage(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	product, err := h.findOwnProduct(c, uint(id), "upload images for")
	if err != nil {
		return err
	}

	product.Image = req.URL
	if err := h.DB.Save(product).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	h.indexProduct(c, product)

	return c.JSON(http.StatusOK, echo.Map{
		"message": "product image uploaded",
	})
}

// SearchProducts is the public fuzzy search over the product index.
func (h *ProductHandler) SearchProducts(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return errorJSON(c, http.StatusBadRequest, "query is required")
	}
	if h.ES == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "search is not available")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	storeID, _ := strconv.Atoi(c.QueryParam("store"))

	total, products, err := search.Products(c.Request().Context(), h.ES, q, uint(storeID), from, size)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total":    total,
		"products": products,
	})
}
