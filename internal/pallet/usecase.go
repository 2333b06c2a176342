package pallet

import (
	"context"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/kpi"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/dto"
)

type UseCase interface {
	// Read side
	Pallets() []model.Pallet
	FilteredPallets() []model.Pallet
	GetPallet(id string) (model.Pallet, bool)
	Events(filters *dto.EventFilters) []model.PalletEvent
	EventsForPallet(id string) []model.PalletEvent
	KPIs() kpi.Summary

	// View state
	ApplyFilter(f model.Filter) dto.ViewState
	ResetFilter() dto.ViewState
	ViewState() dto.ViewState
	SetHovered(id *string)
	SetSelected(id *string)

	// Mutations
	ApplyAction(ctx context.Context, palletID string, action model.Action, ov dto.Overrides) (dto.ActionResult, error)
	ApplyBulkAction(ctx context.Context, action model.Action, f model.Filter, maxTargets int, ov dto.Overrides) (dto.BulkResult, error)

	// Undo support
	Snapshot(ids []string) []model.Pallet
	Restore(ctx context.Context, pallets []model.Pallet, dropEventIDs []string) []string
	Reapply(ctx context.Context, pallets []model.Pallet, events []model.PalletEvent) []string

	// Simulation driver
	SimulateTick(ctx context.Context) (dto.ActionResult, error)
	StartSimulation(ctx context.Context) bool
	StopSimulation() bool
	SetSimulationPeriod(d time.Duration) error
	SimulationRunning() bool
}

// EventPublisher forwards appended events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events []model.PalletEvent) error
}
