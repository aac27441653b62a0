// Package catalog is the read-only view of menu prices used by the cart.
package catalog

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/InfiniteGosi/YolmaFoodApp/pkg/errors"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/models"
	"github.com/InfiniteGosi/YolmaFoodApp/pkg/repository"
	"github.com/shopspring/decimal"
)

// Item is the catalog's answer for one menu item. Price is meaningful only
// when Exists is true.
type Item struct {
	ID     uint
	Name   string
	Price  decimal.Decimal
	Exists bool
}

type Lookup interface {
	GetMenuItem(ctx context.Context, menuItemID uint) (Item, error)
}

// MenuSource is satisfied by repository.Store.
type MenuSource interface {
	GetMenuItem(ctx context.Context, id uint) (*models.MenuItem, error)
}

// StoreLookup reads menu items from the shared database, bounded by a
// per-call timeout.
type StoreLookup struct {
	source  MenuSource
	timeout time.Duration
}

func NewStoreLookup(source MenuSource, timeout time.Duration) *StoreLookup {
	return &StoreLookup{source: source, timeout: timeout}
}

func (l *StoreLookup) GetMenuItem(ctx context.Context, menuItemID uint) (Item, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	m, err := l.source.GetMenuItem(ctx, menuItemID)
	switch {
	case err == nil:
		return Item{ID: m.ID, Name: m.Name, Price: m.Price, Exists: true}, nil
	case errors.Is(err, repository.ErrNotFound):
		return Item{ID: menuItemID}, nil
	case errors.Is(err, context.DeadlineExceeded):
		return Item{}, apperrors.Unavailable("catalog lookup timed out", err)
	default:
		return Item{}, apperrors.Unavailable("catalog lookup failed", err)
	}
}
