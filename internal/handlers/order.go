package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tradepost/storefront/internal/events"
	"github.com/tradepost/storefront/internal/inventory"
	"github.com/tradepost/storefront/internal/mail"
	"github.com/tradepost/storefront/internal/middleware"
	"github.com/tradepost/storefront/internal/models"
	"github.com/tradepost/storefront/internal/util"
)

const trackingIDLength = 8

type OrderHandler struct {
	DB     *gorm.DB
	Mailer mail.Mailer
	Events events.Publisher
	AppURL string
}

type createOrderRequest struct {
	Name          string            `json:"name"           validate:"required,min=3,max=30"`
	Email         string            `json:"email"          validate:"required,email"`
	PhoneNumber   string            `json:"phone_number"   validate:"required,len=14"`
	Address       string            `json:"address"        validate:"required"`
	OrderItems    []models.LineItem `json:"order_items"    validate:"required,min=1,dive"`
	OrderTotal    *float64          `json:"order_total"    validate:"required,gte=0"`
	MerchantEmail string            `json:"merchant_email" validate:"omitempty,email"`
}

// CreateOrder runs the whole reconciliation flow in one transaction:
// resolve or create the customer, append the order to their history, add
// them to the store's membership set, decrement inventory and persist the
// order. Any failure rolls the lot back. Notifications go out after commit.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	storeID, err := strconv.Atoi(c.Param("storeId"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid store id")
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var store models.Store
	if err := h.DB.First(&store, storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Store not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	var (
		order    models.Order
		lowStock []models.Product
	)

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		customerID, err := h.recordCustomerOrder(tx, &req, store.ID)
		if err != nil {
			return err
		}

		membership := models.StoreCustomer{StoreID: store.ID, CustomerID: customerID}
		if err := tx.Where(membership).FirstOrCreate(&membership).Error; err != nil {
			return err
		}

		lowStock, err = inventory.Decrease(tx, req.OrderItems)
		if err != nil {
			return err
		}

		tid, err := newUniqueTrackingID(tx)
		if err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(req.OrderItems))
		for _, it := range req.OrderItems {
			items = append(items, models.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
		}

		order = models.Order{
			StoreID:       store.ID,
			Status:        models.StatusNotProcessed,
			Name:          req.Name,
			Email:         req.Email,
			PhoneNumber:   req.PhoneNumber,
			Address:       req.Address,
			TrackingID:    tid,
			OrderTotal:    *req.OrderTotal,
			MerchantEmail: req.MerchantEmail,
			Items:         items,
		}
		return tx.Create(&order).Error
	})

	if txErr != nil {
		var stockErr *inventory.InsufficientStockError
		switch {
		case errors.As(txErr, &stockErr):
			return errorJSON(c, http.StatusBadRequest, stockErr.Error())
		case errors.Is(txErr, inventory.ErrProductNotFound):
			return errorJSON(c, http.StatusBadRequest, "product not found")
		default:
			return errorJSON(c, http.StatusBadRequest, txErr.Error())
		}
	}

	for _, p := range lowStock {
		subject, body := mail.LowStockAlert(p.Name, p.Quantity)
		sendMail(c, h.Mailer, req.MerchantEmail, subject, body)
	}

	subject, body := mail.NewOrderAlert(h.AppURL, order.ID, store.Name)
	sendMail(c, h.Mailer, req.MerchantEmail, subject, body)

	subject, body = mail.OrderConfirmation(order.Name, order.TrackingID)
	sendMail(c, h.Mailer, order.Email, subject, body)

	publish(c, h.Events, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
		"type":    "order_created",
		"orderID": order.ID,
		"storeID": store.ID,
		"tid":     order.TrackingID,
	})

	return c.JSON(http.StatusCreated, order)
}

// recordCustomerOrder resolves the customer by email, creating them on
// first contact, and appends this order to their history. Returns the
// customer id.
func (h *OrderHandler) recordCustomerOrder(tx *gorm.DB, req *createOrderRequest, storeID uint) (uint, error) {
	var customer models.Customer
	err := tx.Where("email = ?", req.Email).First(&customer).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		customer = models.Customer{
			Name:        req.Name,
			Email:       req.Email,
			PhoneNumber: req.PhoneNumber,
			Address:     req.Address,
		}
		if err := tx.Create(&customer).Error; err != nil {
			return 0, err
		}
	}

	entry := models.CustomerOrder{
		CustomerID: customer.ID,
		StoreID:    storeID,
		Items:      req.OrderItems,
		Date:       time.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, err
	}

	return customer.ID, nil
}

// newUniqueTrackingID regenerates on the rare collision with an existing
// order's code.
func newUniqueTrackingID(tx *gorm.DB) (string, error) {
	for range 5 {
		tid := util.NewTrackingID(trackingIDLength)
		var count int64
		if err := tx.Model(&models.Order{}).Where("tracking_id = ?", tid).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return tid, nil
		}
	}
	return "", errors.New("could not generate a unique tracking id")
}

func (h *OrderHandler) GetOrdersByStore(c echo.Context) error {
	storeID, err := strconv.Atoi(c.Param("storeId"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid store id")
	}
	if err := h.requireStoreOwner(c, uint(storeID)); err != nil {
		return err
	}
	skip := util.Skip(c.QueryParam("skip"))

	var orders []models.Order
	if err := h.DB.
		Preload("Items.Product").
		Where("store_id = ?", storeID).
		Order("created_at ASC").
		Limit(util.PageSize).
		Offset(skip).
		Find(&orders).Error; err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrderByID(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.DB.Preload("Items.Product").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Order not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, order)
}

// GetOrderByTrackingID is the public lookup customers use with the code
// from their confirmation email.
func (h *OrderHandler) GetOrderByTrackingID(c echo.Context) error {
	var req struct {
		TID string `json:"tid"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	tid := req.TID
	if tid == "" {
		tid = c.Param("tid")
	}

	var order models.Order
	if err := h.DB.
		Preload("Items.Product").
		Preload("Store").
		Where("tracking_id = ?", tid).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Order not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetLatestOrderByCustomerEmail(c echo.Context) error {
	storeID, err := strconv.Atoi(c.Param("storeId"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid store id")
	}
	if err := h.requireStoreOwner(c, uint(storeID)); err != nil {
		return err
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var order models.Order
	if err := h.DB.
		Preload("Items.Product").
		Where("email = ? AND store_id = ?", req.Email, storeID).
		Order("created_at DESC").
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Order not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrdersByStatus(c echo.Context) error {
	storeID, err := strconv.Atoi(c.Param("storeId"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid store id")
	}
	if err := h.requireStoreOwner(c, uint(storeID)); err != nil {
		return err
	}
	skip := util.Skip(c.QueryParam("skip"))

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if !models.OrderStatuses[req.Status] {
		return errorJSON(c, http.StatusBadRequest, "invalid order status")
	}

	var orders []models.Order
	if err := h.DB.
		Preload("Items.Product").
		Where("status = ? AND store_id = ?", req.Status, storeID).
		Order("created_at ASC").
		Limit(util.PageSize).
		Offset(skip).
		Find(&orders).Error; err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid order id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if !models.OrderStatuses[req.Status] {
		return errorJSON(c, http.StatusBadRequest, "invalid order status")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Order not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	order.Status = req.Status
	if err := h.DB.Save(&order).Error; err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	publish(c, h.Events, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
		"type":    "order_status_updated",
		"orderID": order.ID,
		"status":  order.Status,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Order Status updated successfully",
	})
}

// CancelOrder deletes the order and restores its line items to stock in
// one transaction. Store membership is not revoked.
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	tid := c.Param("tid")

	var order models.Order
	if err := h.DB.Preload("Items").Where("tracking_id = ?", tid).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Order not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Order{}, order.ID).Error; err != nil {
			return err
		}
		return inventory.Increase(tx, order.Items)
	})
	if txErr != nil {
		return errorJSON(c, http.StatusBadRequest, txErr.Error())
	}

	publish(c, h.Events, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
		"type":    "order_cancelled",
		"orderID": order.ID,
		"tid":     order.TrackingID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": "order deleted successfully",
	})
}

// requireStoreOwner gates the merchant-facing order reads on store
// ownership.
func (h *OrderHandler) requireStoreOwner(c echo.Context, storeID uint) error {
	var store models.Store
	if err := h.DB.First(&store, storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, http.StatusNotFound, "Store not found")
		}
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	merchant := middleware.CurrentMerchant(c)
	if store.MerchantID != merchant.ID {
		return errorJSON(c, http.StatusForbidden, "Merchant is not authorized to view orders for this store")
	}
	return nil
}
