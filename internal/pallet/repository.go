package pallet

import (
	"context"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

// Repository is the source of the initial pallet snapshot.
type Repository interface {
	LoadPallets(ctx context.Context) ([]model.Pallet, error)
}

// SnapshotWriter persists the current pallet state.
type SnapshotWriter interface {
	SavePallets(ctx context.Context, pallets []model.Pallet) error
}
