package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/tradepost/storefront/internal/models"
)

func placeOrder(t *testing.T, env *testEnv, storeID uint, payload map[string]interface{}) (*http.Response, models.Order) {
	t.Helper()
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders/"+fmt.Sprint(storeID), payload)
	c.SetParamNames("storeId")
	c.SetParamValues(fmt.Sprint(storeID))
	require.NoError(t, env.Order.CreateOrder(c))

	var order models.Order
	if rec.Code == http.StatusCreated {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	}
	return rec.Result(), order
}

func TestCreateOrderCommitsEverything(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 10, 2)

	payload := orderPayload(lineItems([2]int{int(product.ID), 9}), merchant.Email)
	resp, order := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, order.TrackingID)
	require.Equal(t, models.StatusNotProcessed, order.Status)

	var got models.Product
	require.NoError(t, env.DB.First(&got, product.ID).Error)
	require.Equal(t, 1, got.Quantity)

	var customer models.Customer
	require.NoError(t, env.DB.Preload("Orders").Where("email = ?", "jane@example.com").First(&customer).Error)
	require.Len(t, customer.Orders, 1)
	require.Equal(t, store.ID, customer.Orders[0].StoreID)
	require.Equal(t, product.ID, customer.Orders[0].Items[0].ProductID)

	var membership int64
	env.DB.Model(&models.StoreCustomer{}).
		Where("store_id = ? AND customer_id = ?", store.ID, customer.ID).
		Count(&membership)
	require.EqualValues(t, 1, membership)
}

func TestCreateOrderSendsNotifications(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 10, 2)

	payload := orderPayload(lineItems([2]int{int(product.ID), 9}), merchant.Email)
	resp, order := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// quantity dropped to 1, below the limit of 2: low-stock alert plus
	// the merchant alert and the customer confirmation.
	require.Len(t, env.Mail.Sent, 3)

	lowStock := env.Mail.Sent[0]
	require.Equal(t, merchant.Email, lowStock.To)
	require.Contains(t, lowStock.Body, "Only 1 items left")

	alert := env.Mail.Sent[1]
	require.Equal(t, merchant.Email, alert.To)
	require.Contains(t, alert.Body, fmt.Sprintf("/orders/%d", order.ID))

	confirmation := env.Mail.Sent[2]
	require.Equal(t, "jane@example.com", confirmation.To)
	require.Contains(t, confirmation.Body, order.TrackingID)
	require.Contains(t, strings.ToLower(confirmation.Body), "do not share")
}

func TestCreateOrderNoLowStockAboveLimit(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 10, 2)

	payload := orderPayload(lineItems([2]int{int(product.ID), 3}), merchant.Email)
	resp, _ := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// merchant alert + confirmation only
	require.Len(t, env.Mail.Sent, 2)
}

func TestCreateOrderExactQuantityLeavesZero(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 5, 0)

	payload := orderPayload(lineItems([2]int{int(product.ID), 5}), merchant.Email)
	resp, _ := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got models.Product
	require.NoError(t, env.DB.First(&got, product.ID).Error)
	require.Equal(t, 0, got.Quantity)
}

func TestCreateOrderZeroTotalAccepted(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 10, 0)

	// a fully discounted order carries a total of 0
	payload := orderPayload(lineItems([2]int{int(product.ID), 1}), merchant.Email)
	payload["order_total"] = 0

	resp, order := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, float64(0), order.OrderTotal)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 1, 0)

	payload := orderPayload(lineItems([2]int{int(product.ID), 2}), merchant.Email)
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders/"+fmt.Sprint(store.ID), payload)
	c.SetParamNames("storeId")
	c.SetParamValues(fmt.Sprint(store.ID))
	require.NoError(t, env.Order.CreateOrder(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Only 1 items left")

	// the rejection rolls the whole flow back
	var got models.Product
	require.NoError(t, env.DB.First(&got, product.ID).Error)
	require.Equal(t, 1, got.Quantity)

	var orders, customers, memberships int64
	env.DB.Model(&models.Order{}).Count(&orders)
	env.DB.Model(&models.Customer{}).Count(&customers)
	env.DB.Model(&models.StoreCustomer{}).Count(&memberships)
	require.Zero(t, orders)
	require.Zero(t, customers)
	require.Zero(t, memberships)
	require.Empty(t, env.Mail.Sent)
}

func TestCreateOrderRollsBackEarlierDecrements(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	first := env.seedProduct(store, "headphones", 10, 0)
	second := env.seedProduct(store, "speakers", 1, 0)

	payload := orderPayload(lineItems(
		[2]int{int(first.ID), 4},
		[2]int{int(second.ID), 3},
	), merchant.Email)
	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders/"+fmt.Sprint(store.ID), payload)
	c.SetParamNames("storeId")
	c.SetParamValues(fmt.Sprint(store.ID))
	require.NoError(t, env.Order.CreateOrder(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var got models.Product
	require.NoError(t, env.DB.First(&got, first.ID).Error)
	require.Equal(t, 10, got.Quantity)
	var gotSecond models.Product
	require.NoError(t, env.DB.First(&gotSecond, second.ID).Error)
	require.Equal(t, 1, gotSecond.Quantity)
}

func TestCreateOrderExistingCustomerDedupedMembership(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 10, 0)

	payload := orderPayload(lineItems([2]int{int(product.ID), 1}), merchant.Email)
	resp, _ := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var customers, memberships, history int64
	env.DB.Model(&models.Customer{}).Count(&customers)
	env.DB.Model(&models.StoreCustomer{}).Count(&memberships)
	env.DB.Model(&models.CustomerOrder{}).Count(&history)
	require.EqualValues(t, 1, customers)
	require.EqualValues(t, 1, memberships)
	require.EqualValues(t, 2, history)
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 10, 0)

	payload := orderPayload(lineItems([2]int{int(product.ID), 1}), merchant.Email)
	payload["name"] = "jo"

	_, c := env.doJSONRequest(http.MethodPost, "/api/orders/"+fmt.Sprint(store.ID), payload)
	c.SetParamNames("storeId")
	c.SetParamValues(fmt.Sprint(store.ID))

	err := env.Order.CreateOrder(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)

	var orders int64
	env.DB.Model(&models.Order{}).Count(&orders)
	require.Zero(t, orders)

	var got models.Product
	require.NoError(t, env.DB.First(&got, product.ID).Error)
	require.Equal(t, 10, got.Quantity)
}

func TestTrackingLookup(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 10, 0)

	payload := orderPayload(lineItems([2]int{int(product.ID), 2}), merchant.Email)
	resp, order := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders/tid/"+order.TrackingID, map[string]string{"tid": order.TrackingID})
	c.SetParamNames("tid")
	c.SetParamValues(order.TrackingID)
	require.NoError(t, env.Order.GetOrderByTrackingID(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, order.ID, got.ID)
	require.NotNil(t, got.Store)
	require.Equal(t, store.Name, got.Store.Name)
	require.Len(t, got.Items, 1)
	require.NotNil(t, got.Items[0].Product)
	require.Equal(t, product.Name, got.Items[0].Product.Name)
}

func TestCancelOrderRestoresInventory(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 10, 0)

	payload := orderPayload(lineItems([2]int{int(product.ID), 4}), merchant.Email)
	resp, order := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/orders/"+order.TrackingID, nil)
	c.SetParamNames("tid")
	c.SetParamValues(order.TrackingID)
	require.NoError(t, env.Order.CancelOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	require.NoError(t, env.DB.First(&got, product.ID).Error)
	require.Equal(t, 10, got.Quantity)

	// tracking lookups 404 afterwards
	rec, c = env.doJSONRequest(http.MethodPost, "/api/orders/tid/"+order.TrackingID, map[string]string{"tid": order.TrackingID})
	c.SetParamNames("tid")
	c.SetParamValues(order.TrackingID)
	require.NoError(t, env.Order.GetOrderByTrackingID(c))
	require.Equal(t, http.StatusNotFound, rec.Code)

	// membership survives cancellation
	var memberships int64
	env.DB.Model(&models.StoreCustomer{}).Count(&memberships)
	require.EqualValues(t, 1, memberships)
}

func TestCancelOrderUnknownTracking(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 10, 0)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/orders/nope1234", nil)
	c.SetParamNames("tid")
	c.SetParamValues("nope1234")
	require.NoError(t, env.Order.CancelOrder(c))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var got models.Product
	require.NoError(t, env.DB.First(&got, product.ID).Error)
	require.Equal(t, 10, got.Quantity)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 10, 0)

	payload := orderPayload(lineItems([2]int{int(product.ID), 1}), merchant.Email)
	resp, order := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	rec, c := env.doJSONRequest(http.MethodPatch, "/api/orders/"+fmt.Sprint(order.ID), map[string]string{"status": models.StatusShipped})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	asMerchant(c, merchant)
	require.NoError(t, env.Order.UpdateOrderStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, env.DB.First(&got, order.ID).Error)
	require.Equal(t, models.StatusShipped, got.Status)

	rec, c = env.doJSONRequest(http.MethodPatch, "/api/orders/"+fmt.Sprint(order.ID), map[string]string{"status": "teleported"})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(order.ID))
	asMerchant(c, merchant)
	require.NoError(t, env.Order.UpdateOrderStatus(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrdersByStoreOwnershipAndPaging(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	intruder := env.seedMerchant("intruder@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 100, 0)

	for i := 0; i < 12; i++ {
		payload := orderPayload(lineItems([2]int{int(product.ID), 1}), merchant.Email)
		resp, _ := placeOrder(t, env, store.ID, payload)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	rec, c := env.doJSONRequest(http.MethodGet, "/api/orders/store/"+fmt.Sprint(store.ID), nil)
	c.SetParamNames("storeId")
	c.SetParamValues(fmt.Sprint(store.ID))
	asMerchant(c, merchant)
	require.NoError(t, env.Order.GetOrdersByStore(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var page []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page, 10)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/orders/store/"+fmt.Sprint(store.ID)+"?skip=10", nil)
	c.SetParamNames("storeId")
	c.SetParamValues(fmt.Sprint(store.ID))
	asMerchant(c, merchant)
	require.NoError(t, env.Order.GetOrdersByStore(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page, 2)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/orders/store/"+fmt.Sprint(store.ID), nil)
	c.SetParamNames("storeId")
	c.SetParamValues(fmt.Sprint(store.ID))
	asMerchant(c, intruder)
	require.NoError(t, env.Order.GetOrdersByStore(c))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetOrdersByStatus(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 100, 0)

	payload := orderPayload(lineItems([2]int{int(product.ID), 1}), merchant.Email)
	resp, shipped := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NoError(t, env.DB.Model(&models.Order{}).Where("id = ?", shipped.ID).Update("status", models.StatusShipped).Error)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders/status/"+fmt.Sprint(store.ID), map[string]string{"status": models.StatusShipped})
	c.SetParamNames("storeId")
	c.SetParamValues(fmt.Sprint(store.ID))
	asMerchant(c, merchant)
	require.NoError(t, env.Order.GetOrdersByStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var page []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page, 1)
	require.Equal(t, shipped.ID, page[0].ID)

	rec, c = env.doJSONRequest(http.MethodPost, "/api/orders/status/"+fmt.Sprint(store.ID), map[string]string{"status": "teleported"})
	c.SetParamNames("storeId")
	c.SetParamValues(fmt.Sprint(store.ID))
	asMerchant(c, merchant)
	require.NoError(t, env.Order.GetOrdersByStatus(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLatestOrderByCustomerEmail(t *testing.T) {
	env := newTestEnv(t)
	merchant := env.seedMerchant("owner@example.com")
	store := env.seedStore(merchant, "gadget store")
	product := env.seedProduct(store, "headphones", 100, 0)

	payload := orderPayload(lineItems([2]int{int(product.ID), 1}), merchant.Email)
	resp, _ := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	payload = orderPayload(lineItems([2]int{int(product.ID), 2}), merchant.Email)
	resp, latest := placeOrder(t, env, store.ID, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/orders/customer/"+fmt.Sprint(store.ID), map[string]string{"email": "jane@example.com"})
	c.SetParamNames("storeId")
	c.SetParamValues(fmt.Sprint(store.ID))
	asMerchant(c, merchant)
	require.NoError(t, env.Order.GetLatestOrderByCustomerEmail(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, latest.ID, got.ID)
}
