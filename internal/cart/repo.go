package cart

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-core/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
)

// ItemRepository manages persisted cart lines.
type ItemRepository struct {
	db *gorm.DB
}

// NewItemRepository binds the repository to the provided DB handle.
func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *ItemRepository) WithTx(tx *gorm.DB) *ItemRepository {
	if tx == nil {
		return r
	}
	return &ItemRepository{db: tx}
}

// ReplaceForIdentity deletes the identity's lines and inserts items. Run it
// inside a transaction so readers never see a half written cart.
func (r *ItemRepository) ReplaceForIdentity(ctx context.Context, identity string, items []models.CartItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("identity = ?", identity).Delete(&models.CartItem{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].Identity = identity
		items[i].Position = i
	}
	if err := db.Create(&items).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write cart")
	}
	return nil
}

// ListForIdentity returns the identity's lines in the order they were synced.
func (r *ItemRepository) ListForIdentity(ctx context.Context, identity string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("identity = ?", identity).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return items, nil
}
