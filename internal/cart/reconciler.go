package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LocalItem is one line of the client-held cart. Attachment references an
// upload the client has not pushed yet; it never reaches the server.
type LocalItem struct {
	ProductID  uuid.UUID       `json:"productId"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Attachment *string         `json:"attachment,omitempty"`
}

// LocalCart is the client cart passed explicitly into merge and sync.
type LocalCart struct {
	Items []LocalItem `json:"items"`
}

// Merge reconciles a client cart with the server cart. Server lines come
// first and win on shared product ids. Local-only lines survive only when
// they carry an unsynced attachment, in their local order.
func Merge(local LocalCart, server []Item) LocalCart {
	merged := make([]LocalItem, 0, len(server)+len(local.Items))
	onServer := make(map[uuid.UUID]struct{}, len(server))
	for _, item := range server {
		onServer[item.ProductID] = struct{}{}
		merged = append(merged, LocalItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	for _, item := range local.Items {
		if _, ok := onServer[item.ProductID]; ok {
			continue
		}
		if item.Attachment == nil || *item.Attachment == "" {
			continue
		}
		merged = append(merged, item)
	}
	return LocalCart{Items: merged}
}

type line struct {
	productID uuid.UUID
	quantity  int
}

// collapse sums quantities of repeated product ids, keeping first-seen order.
func collapse(items []LocalItem) []line {
	out := make([]line, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			out[i].quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, line{productID: item.ProductID, quantity: item.Quantity})
	}
	return out
}
