// Package resolver is the mutation engine: it resolves action targets inside
// a working copy of the pallet collection, applies the per-action state
// transition and produces the matching events. It keeps no state between
// calls; undo is built by callers on top of the Before/After snapshots it
// returns.
package resolver

import (
	"fmt"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/event"
	"github.com/fekuna/spaceflow-wms-service/internal/filter"
	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/dto"
	"go.uber.org/zap"
)

type Resolver struct {
	grid   *location.Grid
	now    func() time.Time
	logger logger.ZapLogger
}

type Option func(*Resolver)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func New(grid *location.Grid, log logger.ZapLogger, opts ...Option) *Resolver {
	r := &Resolver{grid: grid, now: time.Now, logger: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply mutates the pallet with palletID inside pallets. A missing pallet is
// reported through the result, not as an error; errors are reserved for
// requests the transition table cannot serve.
func (r *Resolver) Apply(pallets []model.Pallet, palletID string, action model.Action, ov dto.Overrides) (dto.ActionResult, []model.PalletEvent, error) {
	res := dto.ActionResult{PalletID: palletID, Outcome: dto.OutcomeNotFound}

	idx := indexOf(pallets, palletID)
	if idx < 0 {
		return res, nil, nil
	}

	occ := occupancy(pallets)
	before := pallets[idx]
	res.Before = &before

	outcome, err := r.transition(&pallets[idx], action, ov, occ, r.now())
	if err != nil {
		res.Outcome = dto.OutcomeInvalidRequest
		return res, nil, err
	}
	res.Outcome = outcome
	if outcome != dto.OutcomeApplied {
		return res, nil, nil
	}

	ev, err := event.MakeActionEvent(pallets[idx], action, r.now())
	if err != nil {
		pallets[idx] = before
		res.Outcome = dto.OutcomeInvalidRequest
		return res, nil, err
	}
	after := pallets[idx]
	res.Applied = true
	res.After = &after
	res.EventID = ev.ID
	res.Event = &ev
	return res, []model.PalletEvent{ev}, nil
}

// ApplyBulk applies action to the pallets matching f, capped at
// model.ClampTargets(maxTargets) in collection order.
func (r *Resolver) ApplyBulk(pallets []model.Pallet, action model.Action, f model.Filter, maxTargets int, ov dto.Overrides) (dto.BulkResult, []model.PalletEvent, error) {
	if err := checkAction(action, ov); err != nil {
		return dto.BulkResult{Outcome: dto.OutcomeInvalidRequest}, nil, err
	}

	candidates := filter.Pallets(pallets, f)
	res := dto.BulkResult{Matched: len(candidates), Outcome: dto.OutcomeNoMatch}
	if len(candidates) == 0 {
		return res, nil, nil
	}
	limit := model.ClampTargets(maxTargets)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	occ := occupancy(pallets)
	events := make([]model.PalletEvent, 0, len(candidates))
	for _, c := range candidates {
		idx := indexOf(pallets, c.ID)
		before := pallets[idx]

		outcome, err := r.transition(&pallets[idx], action, ov, occ, r.now())
		if err != nil {
			return res, nil, err
		}
		if outcome != dto.OutcomeApplied {
			res.Skipped = append(res.Skipped, c.ID)
			continue
		}
		ev, err := event.MakeActionEvent(pallets[idx], action, r.now())
		if err != nil {
			pallets[idx] = before
			return res, nil, err
		}
		events = append(events, ev)
		res.Before = append(res.Before, before)
		res.After = append(res.After, pallets[idx])
		res.EventIDs = append(res.EventIDs, ev.ID)
	}

	res.AffectedCount = len(events)
	res.Events = events
	switch {
	case res.AffectedCount > 0:
		res.Outcome = dto.OutcomeApplied
	case action == model.ActionRelocate:
		res.Outcome = dto.OutcomeNoCapacity
	}
	return res, events, nil
}

// transition is the per-pallet state machine. Status moves are driven by
// the action; urgency and address are side attributes.
func (r *Resolver) transition(p *model.Pallet, action model.Action, ov dto.Overrides, occ map[string]struct{}, now time.Time) (dto.Outcome, error) {
	if err := checkAction(action, ov); err != nil {
		return dto.OutcomeInvalidRequest, err
	}

	switch action {
	case model.ActionReceive, model.ActionPutaway:
		p.Status = model.StatusStored
	case model.ActionPick, model.ActionLoad:
		p.Status = model.StatusTransit
	case model.ActionDelay:
		p.Status = model.StatusDelayed
		p.Urgency = model.UrgencyHigh
	case model.ActionScan:
	case model.ActionSetStatus:
		p.Status = *ov.TargetStatus
	case model.ActionSetDestination:
		p.Destination = *ov.TargetDestination
	case model.ActionRelocate:
		if ov.TargetZone != nil && !r.grid.HasZone(*ov.TargetZone) {
			return dto.OutcomeInvalidRequest, fmt.Errorf("zone %q is not part of the layout", *ov.TargetZone)
		}
		return r.relocate(p, ov, occ), nil
	}

	p.LastScannedAt = now
	return dto.OutcomeApplied, nil
}

// relocate moves p to a free slot and keeps occ in sync. The address is the
// only field it touches.
func (r *Resolver) relocate(p *model.Pallet, ov dto.Overrides, occ map[string]struct{}) dto.Outcome {
	cur := p.LogicalAddress
	delete(occ, cur.ID)

	var (
		slot model.StorageLocation
		ok   bool
	)
	if ov.TargetZone != nil && *ov.TargetZone != cur.Zone {
		slot, ok = r.grid.FirstFreeSlot(*ov.TargetZone, occ)
	} else {
		slot, ok = r.grid.NextFreeSlot(cur, occ)
	}

	if !ok || slot.ID == cur.ID {
		occ[cur.ID] = struct{}{}
		zone := cur.Zone
		if ov.TargetZone != nil {
			zone = *ov.TargetZone
		}
		r.logger.Warn("relocation skipped, no free slot",
			zap.String("pallet_id", p.ID),
			zap.String("zone", zone),
			zap.String("current_slot", cur.ID),
		)
		return dto.OutcomeNoCapacity
	}

	occ[slot.ID] = struct{}{}
	p.LogicalAddress = slot
	return dto.OutcomeApplied
}

// checkAction rejects requests the transition table has no rule for.
func checkAction(action model.Action, ov dto.Overrides) error {
	switch action {
	case model.ActionReceive, model.ActionPutaway, model.ActionPick, model.ActionLoad,
		model.ActionDelay, model.ActionScan, model.ActionRelocate:
		return nil
	case model.ActionSetStatus:
		if ov.TargetStatus == nil || !ov.TargetStatus.Valid() {
			return fmt.Errorf("set_status requires a valid target status")
		}
		return nil
	case model.ActionSetDestination:
		if ov.TargetDestination == nil || *ov.TargetDestination == "" {
			return fmt.Errorf("set_destination requires a target destination")
		}
		return nil
	}
	return fmt.Errorf("no transition rule for action %q", action)
}

func indexOf(pallets []model.Pallet, id string) int {
	for i := range pallets {
		if pallets[i].ID == id {
			return i
		}
	}
	return -1
}

func occupancy(pallets []model.Pallet) map[string]struct{} {
	occ := make(map[string]struct{}, len(pallets))
	for _, p := range pallets {
		occ[p.LogicalAddress.ID] = struct{}{}
	}
	return occ
}
