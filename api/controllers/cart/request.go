package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/angelmondragon/storefront-core/internal/cart"
)

type SyncItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=1000"`
}

// SyncCartRequest replaces the server cart. An empty list clears it.
type SyncCartRequest struct {
	Items []SyncItemRequest `json:"items" validate:"required,max=200,dive"`
}

func (r SyncCartRequest) localCart() cartsvc.LocalCart {
	items := make([]cartsvc.LocalItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, cartsvc.LocalItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return cartsvc.LocalCart{Items: items}
}

type MergeItemRequest struct {
	ProductID  uuid.UUID       `json:"productId" validate:"required"`
	Quantity   int             `json:"quantity" validate:"required,min=1,max=1000"`
	UnitPrice  decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	Attachment *string         `json:"attachment,omitempty" validate:"omitempty,max=2048"`
}

// MergeCartRequest is the device cart to reconcile with the server copy.
type MergeCartRequest struct {
	Items []MergeItemRequest `json:"items" validate:"required,max=200,dive"`
}

func (r MergeCartRequest) localCart() cartsvc.LocalCart {
	items := make([]cartsvc.LocalItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, cartsvc.LocalItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Attachment: item.Attachment,
		})
	}
	return cartsvc.LocalCart{Items: items}
}
