package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-core/pkg/db/models"
)

// Snapshot is the catalog data checkout and cart reads depend on.
type Snapshot struct {
	ID         uuid.UUID
	Name       string
	Price      decimal.Decimal
	CategoryID *uuid.UUID
	ImageURL   *string
}

type reader interface {
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Catalog is the read-only lookup collaborator used by orders and cart.
type Catalog interface {
	Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Snapshot, error)
}

type catalog struct {
	repo reader
}

func NewCatalog(repo reader) (Catalog, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &catalog{repo: repo}, nil
}

// Lookup resolves ids to snapshots keyed by product id. Unknown or inactive
// products are left out; callers decide whether that is an error.
func (c *catalog) Lookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Snapshot, error) {
	out := make(map[uuid.UUID]Snapshot, len(ids))
	unique := dedupe(ids)
	if len(unique) == 0 {
		return out, nil
	}

	rows, err := c.repo.FindActiveByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = Snapshot{
			ID:         row.ID,
			Name:       row.Name,
			Price:      row.Price,
			CategoryID: row.CategoryID,
			ImageURL:   row.ImageURL,
		}
	}
	return out, nil
}

// Missing returns the ids with no entry in found, in input order without repeats.
func Missing(ids []uuid.UUID, found map[uuid.UUID]Snapshot) []uuid.UUID {
	var missing []uuid.UUID
	for _, id := range dedupe(ids) {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
