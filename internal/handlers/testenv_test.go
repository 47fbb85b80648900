package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tradepost/storefront/internal/config"
	"github.com/tradepost/storefront/internal/hash"
	"github.com/tradepost/storefront/internal/middleware"
	"github.com/tradepost/storefront/internal/models"
	"github.com/tradepost/storefront/internal/validation"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// mailRecorder collects messages rather than sending them.
type mailRecorder struct {
	Sent []sentMail
}

func (m *mailRecorder) Send(to, subject, body string) error {
	m.Sent = append(m.Sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type recordedEvent struct {
	Topic string
	Key   string
	Event interface{}
}

type eventRecorder struct {
	Published []recordedEvent
}

func (p *eventRecorder) PublishEvent(_ context.Context, topic, key string, event interface{}) error {
	p.Published = append(p.Published, recordedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	Mail   *mailRecorder
	Events *eventRecorder

	Auth     *AuthHandler
	Merchant *MerchantHandler
	Store    *StoreHandler
	Product  *ProductHandler
	Order    *OrderHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	e := echo.New()
	e.Validator = validation.New()

	mailer := &mailRecorder{}
	producer := &eventRecorder{}
	jwtSecret := []byte("test_secret")

	return &testEnv{
		T:      t,
		E:      e,
		DB:     db,
		Mail:   mailer,
		Events: producer,
		Auth:   &AuthHandler{DB: db, JWTSecret: jwtSecret},
		Merchant: &MerchantHandler{
			DB:     db,
			Mailer: mailer,
			Events: producer,
			AppURL: "http://localhost:8080",
		},
		Store:   &StoreHandler{DB: db, Events: producer},
		Product: &ProductHandler{DB: db, Events: producer},
		Order: &OrderHandler{
			DB:     db,
			Mailer: mailer,
			Events: producer,
			AppURL: "http://localhost:8080",
		},
	}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) seedMerchant(email string) *models.Merchant {
	env.T.Helper()
	passwordHash, err := hash.HashPassword("password")
	require.NoError(env.T, err)
	merchant := &models.Merchant{
		FirstName:    "Test",
		LastName:     "Merchant",
		Email:        email,
		PhoneNumber:  "+2348000000000",
		PasswordHash: passwordHash,
		Confirmed:    true,
	}
	require.NoError(env.T, env.DB.Create(merchant).Error)
	return merchant
}

func (env *testEnv) seedStore(merchant *models.Merchant, name string) *models.Store {
	env.T.Helper()
	store := &models.Store{
		Name:       name,
		Category:   "Electronics",
		MerchantID: merchant.ID,
	}
	require.NoError(env.T, env.DB.Create(store).Error)
	return store
}

func (env *testEnv) seedProduct(store *models.Store, name string, quantity, limit int) *models.Product {
	env.T.Helper()
	product := &models.Product{
		Name:       name,
		Quantity:   quantity,
		Price:      25,
		StockLimit: limit,
		StoreID:    store.ID,
		MerchantID: store.MerchantID,
	}
	require.NoError(env.T, env.DB.Create(product).Error)
	return product
}

func asMerchant(c echo.Context, m *models.Merchant) {
	middleware.SetMerchant(c, m)
}

func orderPayload(items []map[string]interface{}, merchantEmail string) map[string]interface{} {
	return map[string]interface{}{
		"name":           "jane doe",
		"email":          "jane@example.com",
		"phone_number":   "+2348012345678",
		"address":        "12 Marina Road, Lagos",
		"order_items":    items,
		"order_total":    50,
		"merchant_email": merchantEmail,
	}
}

func lineItems(entries ...[2]int) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]interface{}{
			"product":  e[0],
			"quantity": e[1],
		})
	}
	return items
}
