package models

import (
	"time"
)

// Order statuses. An order starts as "not processed" and is moved forward
// by the merchant; cancellation deletes the order outright.
const (
	StatusNotProcessed = "not processed"
	StatusProcessing   = "processing"
	StatusShipped      = "shipped"
	StatusDelivered    = "delivered"
	StatusCancelled    = "cancelled"
)

var OrderStatuses = map[string]bool{
	StatusNotProcessed: true,
	StatusProcessing:   true,
	StatusShipped:      true,
	StatusDelivered:    true,
	StatusCancelled:    true,
}

var StoreCategories = map[string]bool{
	"Fashion and Accessories": true,
	"Food and Drinks":         true,
	"Electronics":             true,
	"Books":                   true,
	"Art":                     true,
}

type Merchant struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName    string    `gorm:"not null"                 json:"first_name"`
	LastName     string    `gorm:"not null"                 json:"last_name"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PhoneNumber  string    `gorm:"not null"                 json:"phone_number"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Image        string    `json:"image,omitempty"`
	Confirmed    bool      `gorm:"default:false"            json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Store struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"unique;not null"          json:"name"`
	Bio        string    `json:"bio,omitempty"`
	Category   string    `gorm:"not null"                 json:"category"`
	Image      string    `json:"image,omitempty"`
	MerchantID uint      `gorm:"index;not null"           json:"merchant_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StoreCustomer records that a customer has ordered from a store at least
// once. The composite unique index makes membership a set.
type StoreCustomer struct {
	ID         uint `gorm:"primaryKey"                              json:"id"`
	StoreID    uint `gorm:"uniqueIndex:idx_store_customer;not null" json:"store_id"`
	CustomerID uint `gorm:"uniqueIndex:idx_store_customer;not null" json:"customer_id"`
}

type Product struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	Name        string    `gorm:"unique;not null"              json:"name"`
	Description string    `json:"description,omitempty"`
	Quantity    int       `gorm:"not null;check:quantity >= 0" json:"quantity"`
	Price       float64   `gorm:"not null"                     json:"price"`
	StockLimit  int       `gorm:"default:0"                    json:"limit"`
	Image       string    `json:"image,omitempty"`
	StoreID     uint      `gorm:"index;not null"               json:"store_id"`
	MerchantID  uint      `gorm:"index;not null"               json:"merchant_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Customer struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"not null"                 json:"name"`
	Email       string          `gorm:"unique;not null"          json:"email"`
	PhoneNumber string          `gorm:"not null"                 json:"phone_number"`
	Address     string          `gorm:"not null"                 json:"address"`
	Orders      []CustomerOrder `json:"orders,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LineItem is a product reference plus a quantity. It is both the request
// shape for order items and the serialized form kept in a customer's
// history, so history survives order deletion on cancellation.
type LineItem struct {
	ProductID uint `json:"product"  validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

// CustomerOrder is one entry in a customer's order history.
type CustomerOrder struct {
	ID         uint       `gorm:"primaryKey"      json:"id"`
	CustomerID uint       `gorm:"index;not null"  json:"customer_id"`
	StoreID    uint       `gorm:"not null"        json:"store_id"`
	Items      []LineItem `gorm:"serializer:json" json:"items"`
	Date       time.Time  `json:"date"`
}

type Order struct {
	ID            uint        `gorm:"primaryKey;autoIncrement"         json:"id"`
	StoreID       uint        `gorm:"index;not null"                   json:"store_id"`
	Store         *Store      `json:"store,omitempty"`
	Status        string      `gorm:"not null;default:'not processed'" json:"status"`
	Name          string      `gorm:"not null"                         json:"name"`
	Email         string      `gorm:"index;not null"                   json:"email"`
	PhoneNumber   string      `gorm:"not null"                         json:"phone_number"`
	Address       string      `gorm:"not null"                         json:"address"`
	TrackingID    string      `gorm:"uniqueIndex;not null"             json:"tid"`
	OrderTotal    float64     `gorm:"not null"                         json:"order_total"`
	MerchantEmail string      `json:"merchant_email,omitempty"`
	Items         []OrderItem `gorm:"constraint:OnDelete:CASCADE"      json:"order_items"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID        uint     `gorm:"primaryKey"     json:"id"`
	OrderID   uint     `gorm:"index;not null" json:"order_id"`
	ProductID uint     `gorm:"not null"       json:"product_id"`
	Product   *Product `json:"product,omitempty"`
	Quantity  int      `gorm:"not null"       json:"quantity"`
}
