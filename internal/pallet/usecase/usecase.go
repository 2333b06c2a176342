package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/event"
	"github.com/fekuna/spaceflow-wms-service/internal/filter"
	"github.com/fekuna/spaceflow-wms-service/internal/kpi"
	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/metrics"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/dto"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/resolver"
	"go.uber.org/zap"
)

const DefaultSimulationPeriod = 2500 * time.Millisecond

type Option func(*palletUseCase)

func WithClock(now func() time.Time) Option {
	return func(uc *palletUseCase) { uc.now = now }
}

// WithRand sets the source used by SimulateTick.
func WithRand(rng *rand.Rand) Option {
	return func(uc *palletUseCase) { uc.rng = rng }
}

func WithPublisher(p pallet.EventPublisher) Option {
	return func(uc *palletUseCase) { uc.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *palletUseCase) { uc.metrics = m }
}

func WithSimulationPeriod(d time.Duration) Option {
	return func(uc *palletUseCase) {
		if d > 0 {
			uc.sim.period = d
		}
	}
}

// palletUseCase is the inventory store. Every mutation runs under mu on a
// working copy which then replaces pallets, so readers never observe a
// half-applied action.
type palletUseCase struct {
	mu             sync.RWMutex
	pallets        []model.Pallet
	filtered       []model.Pallet
	events         []model.PalletEvent
	activeFilter   *model.Filter
	highlight      *string
	hovered        *string
	selected       *string
	filterRevision uint64

	grid      *location.Grid
	resolver  *resolver.Resolver
	publisher pallet.EventPublisher
	metrics   *metrics.Metrics
	logger    logger.ZapLogger
	now       func() time.Time
	rng       *rand.Rand

	sim *simulation
}

// NewPalletUseCase loads the initial snapshot from repo and synthesizes the
// backstory event log for it.
func NewPalletUseCase(ctx context.Context, repo pallet.Repository, grid *location.Grid, log logger.ZapLogger, opts ...Option) (pallet.UseCase, error) {
	uc := &palletUseCase{
		grid:   grid,
		logger: log,
		now:    time.Now,
		sim:    &simulation{period: DefaultSimulationPeriod},
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.rng == nil {
		uc.rng = rand.New(rand.NewSource(uc.now().UnixNano()))
	}
	uc.resolver = resolver.New(grid, log, resolver.WithClock(uc.now))

	pallets, err := repo.LoadPallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pallets: %w", err)
	}
	if err := uc.checkSnapshot(pallets); err != nil {
		return nil, err
	}

	uc.pallets = pallets
	uc.filtered = pallets
	uc.events = event.BuildPalletEvents(pallets)
	uc.metrics.SetPallets(len(pallets), len(pallets))

	log.Info("Pallet store loaded",
		zap.Int("pallets", len(pallets)),
		zap.Int("events", len(uc.events)),
	)
	return uc, nil
}

// checkSnapshot canonicalizes slot ids and rejects snapshots where two
// pallets share a slot. Zones outside the layout are only reported.
func (uc *palletUseCase) checkSnapshot(pallets []model.Pallet) error {
	seen := make(map[string]string, len(pallets))
	for i := range pallets {
		p := &pallets[i]
		loc := &p.LogicalAddress
		loc.ID = location.SlotID(loc.Zone, loc.Aisle, loc.Bay, loc.Level)
		if other, dup := seen[loc.ID]; dup {
			return fmt.Errorf("pallets %s and %s share slot %s", other, p.ID, loc.ID)
		}
		seen[loc.ID] = p.ID
		if !uc.grid.HasZone(loc.Zone) {
			uc.logger.Warn("Pallet stored outside the layout",
				zap.String("pallet_id", p.ID),
				zap.String("zone", loc.Zone),
			)
		}
	}
	return nil
}

func (uc *palletUseCase) Pallets() []model.Pallet {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return model.ClonePallets(uc.pallets)
}

func (uc *palletUseCase) FilteredPallets() []model.Pallet {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return model.ClonePallets(uc.filtered)
}

func (uc *palletUseCase) GetPallet(id string) (model.Pallet, bool) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	if idx := indexOf(uc.pallets, id); idx >= 0 {
		return uc.pallets[idx], true
	}
	return model.Pallet{}, false
}

func (uc *palletUseCase) Events(filters *dto.EventFilters) []model.PalletEvent {
	uc.mu.RLock()
	out := make([]model.PalletEvent, 0, len(uc.events))
	for _, e := range uc.events {
		if filters != nil {
			if filters.PalletID != "" && e.PalletID != filters.PalletID {
				continue
			}
			if filters.Type != "" && e.Type != filters.Type {
				continue
			}
			if filters.Since != nil && e.At.Before(*filters.Since) {
				continue
			}
		}
		out = append(out, e)
	}
	uc.mu.RUnlock()

	event.SortNewestFirst(out)
	if filters != nil && filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out
}

func (uc *palletUseCase) EventsForPallet(id string) []model.PalletEvent {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return event.ForPallet(uc.events, id)
}

func (uc *palletUseCase) KPIs() kpi.Summary {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return kpi.Calculate(uc.pallets, uc.events, uc.now())
}

func (uc *palletUseCase) ApplyFilter(f model.Filter) dto.ViewState {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	f = f.Clone()
	uc.activeFilter = &f
	uc.highlight = copyID(f.HighlightColor)
	uc.resetFocus()
	uc.refilter()
	return uc.viewState()
}

func (uc *palletUseCase) ResetFilter() dto.ViewState {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.activeFilter = nil
	uc.highlight = nil
	uc.resetFocus()
	uc.refilter()
	return uc.viewState()
}

func (uc *palletUseCase) ViewState() dto.ViewState {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.viewState()
}

func (uc *palletUseCase) SetHovered(id *string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.hovered = copyID(id)
}

func (uc *palletUseCase) SetSelected(id *string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.selected = copyID(id)
}

// resetFocus clears hover and selection and bumps the revision so views
// know to refit. Callers hold mu.
func (uc *palletUseCase) resetFocus() {
	uc.hovered = nil
	uc.selected = nil
	uc.filterRevision++
}

// refilter recomputes the derived collection. Callers hold mu.
func (uc *palletUseCase) refilter() {
	if uc.activeFilter == nil {
		uc.filtered = uc.pallets
	} else {
		uc.filtered = filter.Pallets(uc.pallets, *uc.activeFilter)
	}
	uc.metrics.SetPallets(len(uc.pallets), len(uc.filtered))
}

func (uc *palletUseCase) viewState() dto.ViewState {
	vs := dto.ViewState{
		HighlightColor:   copyID(uc.highlight),
		HoveredPalletID:  copyID(uc.hovered),
		SelectedPalletID: copyID(uc.selected),
		FilterRevision:   uc.filterRevision,
		Total:            len(uc.pallets),
		Visible:          len(uc.filtered),
	}
	if uc.activeFilter != nil {
		f := uc.activeFilter.Clone()
		vs.ActiveFilter = &f
	}
	return vs
}

func (uc *palletUseCase) ApplyAction(ctx context.Context, palletID string, action model.Action, ov dto.Overrides) (dto.ActionResult, error) {
	uc.mu.Lock()
	res, events, err := uc.applyLocked(palletID, action, ov)
	uc.mu.Unlock()

	if err != nil {
		uc.logger.Error("Failed to apply action",
			zap.String("pallet_id", palletID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		return res, err
	}
	uc.publish(ctx, events)
	return res, nil
}

func (uc *palletUseCase) applyLocked(palletID string, action model.Action, ov dto.Overrides) (dto.ActionResult, []model.PalletEvent, error) {
	working := model.ClonePallets(uc.pallets)
	res, events, err := uc.resolver.Apply(working, palletID, action, ov)
	uc.metrics.ObserveAction(string(action), string(res.Outcome), 1)
	if err != nil || !res.Applied {
		return res, nil, err
	}
	uc.commit(working, events)
	return res, events, nil
}

func (uc *palletUseCase) ApplyBulkAction(ctx context.Context, action model.Action, f model.Filter, maxTargets int, ov dto.Overrides) (dto.BulkResult, error) {
	uc.mu.Lock()
	working := model.ClonePallets(uc.pallets)
	res, events, err := uc.resolver.ApplyBulk(working, action, f, maxTargets, ov)
	uc.metrics.ObserveAction(string(action), string(res.Outcome), res.AffectedCount)
	if err == nil && res.AffectedCount > 0 {
		uc.commit(working, events)
	}
	uc.mu.Unlock()

	if err != nil {
		uc.logger.Error("Failed to apply bulk action", zap.String("action", string(action)), zap.Error(err))
		return res, err
	}
	uc.logger.Debug("Bulk action applied",
		zap.String("action", string(action)),
		zap.Int("matched", res.Matched),
		zap.Int("affected", res.AffectedCount),
	)
	uc.publish(ctx, events)
	return res, nil
}

// commit republishes the working copy and appends events. Callers hold mu.
func (uc *palletUseCase) commit(working []model.Pallet, events []model.PalletEvent) {
	uc.pallets = working
	uc.events = append(uc.events, events...)
	uc.refilter()
	for _, e := range events {
		uc.metrics.ObserveEvent(string(e.Type))
	}
}

func (uc *palletUseCase) publish(ctx context.Context, events []model.PalletEvent) {
	if uc.publisher == nil || len(events) == 0 {
		return
	}
	if err := uc.publisher.Publish(ctx, events); err != nil {
		uc.logger.Warn("Failed to publish pallet events", zap.Int("count", len(events)), zap.Error(err))
	}
}

func (uc *palletUseCase) Snapshot(ids []string) []model.Pallet {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	out := make([]model.Pallet, 0, len(ids))
	for _, id := range ids {
		if idx := indexOf(uc.pallets, id); idx >= 0 {
			out = append(out, uc.pallets[idx])
		}
	}
	return out
}

// Restore puts the given pallet values back and drops the listed events.
// It returns the ids of pallets whose old slot was taken in the meantime;
// those keep a current address instead.
func (uc *palletUseCase) Restore(ctx context.Context, pallets []model.Pallet, dropEventIDs []string) []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	working := model.ClonePallets(uc.pallets)
	conflicts := uc.place(working, pallets)

	drop := make(map[string]struct{}, len(dropEventIDs))
	for _, id := range dropEventIDs {
		drop[id] = struct{}{}
	}
	kept := make([]model.PalletEvent, 0, len(uc.events))
	for _, e := range uc.events {
		if _, ok := drop[e.ID]; !ok {
			kept = append(kept, e)
		}
	}

	uc.pallets = working
	uc.events = kept
	uc.refilter()
	return conflicts
}

// Reapply is the inverse of Restore: it puts after-values back and appends
// the events again. Events already in the log are not duplicated.
func (uc *palletUseCase) Reapply(ctx context.Context, pallets []model.Pallet, events []model.PalletEvent) []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	working := model.ClonePallets(uc.pallets)
	conflicts := uc.place(working, pallets)

	present := make(map[string]struct{}, len(uc.events))
	for _, e := range uc.events {
		present[e.ID] = struct{}{}
	}
	var fresh []model.PalletEvent
	for _, e := range events {
		if _, ok := present[e.ID]; !ok {
			fresh = append(fresh, e)
		}
	}
	uc.commit(working, fresh)
	return conflicts
}

// place writes target values into working without breaking slot
// uniqueness. Pallets whose slot is held by a pallet outside target keep
// their current address, or move to the next free slot if that is taken too.
func (uc *palletUseCase) place(working []model.Pallet, target []model.Pallet) []string {
	placing := make(map[string]struct{}, len(target))
	for _, p := range target {
		placing[p.ID] = struct{}{}
	}
	occ := make(map[string]struct{}, len(working))
	for _, p := range working {
		if _, ok := placing[p.ID]; !ok {
			occ[p.LogicalAddress.ID] = struct{}{}
		}
	}

	var deferred []model.Pallet
	for _, p := range target {
		idx := indexOf(working, p.ID)
		if idx < 0 {
			uc.logger.Warn("Cannot restore unknown pallet", zap.String("pallet_id", p.ID))
			continue
		}
		if _, taken := occ[p.LogicalAddress.ID]; taken {
			deferred = append(deferred, p)
			continue
		}
		occ[p.LogicalAddress.ID] = struct{}{}
		working[idx] = p
	}

	conflicts := make([]string, 0, len(deferred))
	for _, p := range deferred {
		idx := indexOf(working, p.ID)
		addr := working[idx].LogicalAddress
		if _, taken := occ[addr.ID]; taken {
			if slot, ok := uc.grid.NextFreeSlot(addr, occ); ok {
				addr = slot
			}
		}
		uc.logger.Warn("Slot taken since snapshot, keeping current address",
			zap.String("pallet_id", p.ID),
			zap.String("wanted_slot", p.LogicalAddress.ID),
			zap.String("slot", addr.ID),
		)
		occ[addr.ID] = struct{}{}
		p.LogicalAddress = addr
		working[idx] = p
		conflicts = append(conflicts, p.ID)
	}
	return conflicts
}

// SimulateTick applies one random, status-appropriate action to one random
// pallet. Picking and applying happen under the same lock.
func (uc *palletUseCase) SimulateTick(ctx context.Context) (dto.ActionResult, error) {
	uc.mu.Lock()
	if len(uc.pallets) == 0 {
		uc.mu.Unlock()
		return dto.ActionResult{Outcome: dto.OutcomeNotFound}, nil
	}
	p := uc.pallets[uc.rng.Intn(len(uc.pallets))]
	pool, err := actionPool(p.Status)
	if err != nil {
		uc.mu.Unlock()
		return dto.ActionResult{PalletID: p.ID, Outcome: dto.OutcomeInvalidRequest}, err
	}
	action := pool[uc.rng.Intn(len(pool))]
	res, events, err := uc.applyLocked(p.ID, action, dto.Overrides{})
	uc.mu.Unlock()

	uc.metrics.IncSimulationTick()
	if err != nil {
		return res, err
	}
	uc.publish(ctx, events)
	return res, nil
}

func actionPool(st model.Status) ([]model.Action, error) {
	switch st {
	case model.StatusStored:
		return []model.Action{model.ActionScan, model.ActionRelocate, model.ActionPick, model.ActionDelay}, nil
	case model.StatusTransit:
		return []model.Action{model.ActionScan, model.ActionLoad, model.ActionDelay}, nil
	case model.StatusDelayed:
		return []model.Action{model.ActionScan, model.ActionPutaway, model.ActionPick, model.ActionReceive}, nil
	}
	return nil, fmt.Errorf("no simulation actions for status %q", st)
}

func indexOf(pallets []model.Pallet, id string) int {
	for i := range pallets {
		if pallets[i].ID == id {
			return i
		}
	}
	return -1
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
