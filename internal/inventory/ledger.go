// Package inventory applies stock increase and decrease operations to
// products. Decrements are conditional updates at the storage layer, so two
// concurrent orders racing on the same product cannot both take the last
// unit.
package inventory

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tradepost/storefront/internal/models"
)

// InsufficientStockError reports which product ran short and how many units
// remain.
type InsufficientStockError struct {
	ProductID uint
	Name      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Only %d items left", e.Available)
}

// ErrProductNotFound is returned when a line item references an unknown
// product.
var ErrProductNotFound = errors.New("product not found")

// Decrease subtracts each line item's quantity from its product. The caller
// is expected to run it inside a transaction: the first failing item aborts
// with an error and the enclosing transaction rolls the earlier decrements
// back. Products whose quantity fell strictly below their configured limit
// are returned so the caller can alert the merchant after commit.
func Decrease(tx *gorm.DB, items []models.LineItem) ([]models.Product, error) {
	var lowStock []models.Product

	for _, item := range items {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", item.ProductID, item.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", item.Quantity))
		if res.Error != nil {
			return nil, res.Error
		}

		var product models.Product
		if err := tx.First(&product, item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}

		if res.RowsAffected == 0 {
			return nil, &InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Available: product.Quantity,
			}
		}

		if product.Quantity < product.StockLimit {
			lowStock = append(lowStock, product)
		}
	}

	return lowStock, nil
}

// Increase adds each line item's quantity back to its product, used when an
// order is cancelled. Unknown products are skipped: the product may have
// been removed since the order was placed.
func Increase(tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		res := tx.Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", item.Quantity))
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}
