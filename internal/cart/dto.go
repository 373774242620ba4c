package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	product "github.com/angelmondragon/storefront-core/internal/products"
)

// Item is a server cart line enriched with current catalog data. UnitPrice is
// the price captured at sync time; Price is the catalog price now.
type Item struct {
	ProductID  uuid.UUID       `json:"productId"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ImageURL   *string         `json:"imageUrl,omitempty"`
	CategoryID *uuid.UUID      `json:"categoryId,omitempty"`
}

func toItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal, snap product.Snapshot) Item {
	return Item{
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		Name:       snap.Name,
		Price:      snap.Price,
		ImageURL:   snap.ImageURL,
		CategoryID: snap.CategoryID,
	}
}
