package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-core/internal/products"
	"github.com/angelmondragon/storefront-core/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-core/pkg/errors"
	"github.com/angelmondragon/storefront-core/pkg/logger"
)

const maxCartLines = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service syncs the client cart to the server and reads it back.
type Service interface {
	Sync(ctx context.Context, identity string, local LocalCart) ([]Item, error)
	Load(ctx context.Context, identity string) ([]Item, error)
}

type ServiceParams struct {
	Repo    *ItemRepository
	Catalog product.Catalog
	Tx      txRunner
	Logger  *logger.Logger
}

type service struct {
	repo    *ItemRepository
	catalog product.Catalog
	tx      txRunner
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		catalog: params.Catalog,
		tx:      params.Tx,
		logg:    params.Logger,
	}, nil
}

// Sync replaces the identity's server cart with local. Last write wins.
// Repeated product ids are summed; prices are snapshotted from the catalog.
func (s *service) Sync(ctx context.Context, identity string, local LocalCart) ([]Item, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to sync your cart")
	}
	for i, item := range local.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].productId is required", i)
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d].quantity must be at least 1", i)
		}
	}

	lines := collapse(local.Items)
	if len(lines) > maxCartLines {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "cart cannot hold more than %d products", maxCartLines)
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.productID)
	}
	snapshots, err := s.catalog.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}
	if missing := product.Missing(ids, snapshots); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "one or more products are unavailable").
			WithDetails(map[string]any{"invalidProductIds": missing})
	}

	rows := make([]models.CartItem, 0, len(lines))
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		snap := snapshots[l.productID]
		rows = append(rows, models.CartItem{
			ProductID: l.productID,
			Quantity:  l.quantity,
			UnitPrice: snap.Price,
		})
		items = append(items, toItem(l.productID, l.quantity, snap.Price, snap))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceForIdentity(ctx, identity, rows)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithIdentity(ctx, identity), map[string]any{
		"item_count": len(items),
	}), "cart.synced")
	return items, nil
}

// Load returns the identity's cart with catalog data. Lines whose product is
// no longer in the catalog are left out. Anonymous callers get an empty cart.
func (s *service) Load(ctx context.Context, identity string) ([]Item, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return []Item{}, nil
	}

	rows, err := s.repo.ListForIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []Item{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	snapshots, err := s.catalog.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		snap, ok := snapshots[row.ProductID]
		if !ok {
			dropped++
			continue
		}
		items = append(items, toItem(row.ProductID, row.Quantity, row.UnitPrice, snap))
	}
	if dropped > 0 {
		s.logg.Warn(s.logg.WithFields(s.logg.WithIdentity(ctx, identity), map[string]any{
			"dropped": dropped,
		}), "cart.unavailable_products_skipped")
	}
	return items, nil
}
