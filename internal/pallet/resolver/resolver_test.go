package resolver

import (
	"fmt"
	"testing"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/dto"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newResolver(t *testing.T, layout location.Layout) *Resolver {
	t.Helper()
	grid, err := location.NewGrid(layout)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return New(grid, logger.NewNop(), WithClock(func() time.Time { return fixedNow }))
}

func pallet(id string, st model.Status, loc model.StorageLocation) model.Pallet {
	return model.Pallet{
		ID:             id,
		Destination:    "Zürich",
		Status:         st,
		Urgency:        model.UrgencyLow,
		WeightKg:       420,
		LastScannedAt:  fixedNow.Add(-48 * time.Hour),
		LogicalAddress: loc,
	}
}

func strPtr(s string) *string { return &s }

func statusPtr(s model.Status) *model.Status { return &s }

func TestApplyDelayStoredPallet(t *testing.T) {
	r := newResolver(t, location.DefaultLayout())
	pallets := []model.Pallet{pallet("PAL-00001", model.StatusStored, location.NewLocation("A", 1, 1, 1))}

	res, events, err := r.Apply(pallets, "PAL-00001", model.ActionDelay, dto.Overrides{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Applied || res.Outcome != dto.OutcomeApplied {
		t.Fatalf("unexpected result: %+v", res)
	}
	got := pallets[0]
	if got.Status != model.StatusDelayed || got.Urgency != model.UrgencyHigh {
		t.Errorf("pallet = %s/%s, want delayed/high", got.Status, got.Urgency)
	}
	if !got.LastScannedAt.Equal(fixedNow) {
		t.Errorf("lastScannedAt = %v", got.LastScannedAt)
	}
	if len(events) != 1 || events[0].Type != model.EventDelayFlagged || events[0].PalletID != "PAL-00001" {
		t.Fatalf("events = %+v", events)
	}
	if res.EventID != events[0].ID {
		t.Errorf("result event id %q does not match %q", res.EventID, events[0].ID)
	}
	if res.Before.Status != model.StatusStored || res.After.Status != model.StatusDelayed {
		t.Errorf("before/after snapshots wrong: %+v -> %+v", res.Before, res.After)
	}
}

func TestApplyUnknownPallet(t *testing.T) {
	r := newResolver(t, location.DefaultLayout())
	pallets := []model.Pallet{pallet("PAL-00001", model.StatusStored, location.NewLocation("A", 1, 1, 1))}

	res, events, err := r.Apply(pallets, "PAL-99999", model.ActionPick, dto.Overrides{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Applied || res.Outcome != dto.OutcomeNotFound || len(events) != 0 {
		t.Fatalf("unexpected result: %+v %v", res, events)
	}
	if pallets[0].Status != model.StatusStored {
		t.Error("collection must be untouched")
	}
}

func TestTransitionTableCoversVocabulary(t *testing.T) {
	want := map[model.Action]model.Status{
		model.ActionReceive:        model.StatusStored,
		model.ActionPutaway:        model.StatusStored,
		model.ActionScan:           model.StatusTransit,
		model.ActionRelocate:       model.StatusTransit,
		model.ActionPick:           model.StatusTransit,
		model.ActionLoad:           model.StatusTransit,
		model.ActionDelay:          model.StatusDelayed,
		model.ActionSetStatus:      model.StatusStored,
		model.ActionSetDestination: model.StatusTransit,
	}
	ov := dto.Overrides{
		TargetStatus:      statusPtr(model.StatusStored),
		TargetDestination: strPtr("Bern"),
	}

	for _, a := range model.Actions {
		t.Run(string(a), func(t *testing.T) {
			st, ok := want[a]
			if !ok {
				t.Fatalf("action %s has no expected transition", a)
			}
			r := newResolver(t, location.DefaultLayout())
			pallets := []model.Pallet{pallet("PAL-1", model.StatusTransit, location.NewLocation("B", 2, 3, 1))}
			action := a
			aov := dto.Overrides{}
			switch action {
			case model.ActionSetStatus:
				aov.TargetStatus = ov.TargetStatus
			case model.ActionSetDestination:
				aov.TargetDestination = ov.TargetDestination
			}

			res, events, err := r.Apply(pallets, "PAL-1", action, aov)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if !res.Applied || len(events) != 1 {
				t.Fatalf("expected one applied mutation, got %+v / %d events", res, len(events))
			}
			if pallets[0].Status != st {
				t.Errorf("status = %s, want %s", pallets[0].Status, st)
			}
		})
	}
}

func TestApplyRejectsUnknownAction(t *testing.T) {
	r := newResolver(t, location.DefaultLayout())
	pallets := []model.Pallet{pallet("PAL-1", model.StatusStored, location.NewLocation("A", 1, 1, 1))}
	orig := pallets[0]

	_, events, err := r.Apply(pallets, "PAL-1", model.Action("teleport"), dto.Overrides{})
	if err == nil {
		t.Fatal("expected an error for an action without a rule")
	}
	if len(events) != 0 || pallets[0] != orig {
		t.Fatal("failed request must not mutate")
	}
}

func TestSetStatusAndDestination(t *testing.T) {
	r := newResolver(t, location.DefaultLayout())
	pallets := []model.Pallet{pallet("PAL-2", model.StatusStored, location.NewLocation("A", 1, 1, 2))}

	if _, _, err := r.Apply(pallets, "PAL-2", model.ActionSetStatus, dto.Overrides{}); err == nil {
		t.Fatal("set_status without target must fail")
	}

	_, events, err := r.Apply(pallets, "PAL-2", model.ActionSetStatus, dto.Overrides{TargetStatus: statusPtr(model.StatusDelayed)})
	if err != nil {
		t.Fatal(err)
	}
	if pallets[0].Status != model.StatusDelayed || events[0].Type != model.EventDelayFlagged {
		t.Errorf("set_status: %s / %s", pallets[0].Status, events[0].Type)
	}
	if pallets[0].Urgency != model.UrgencyLow {
		t.Error("set_status must not touch urgency")
	}

	_, events, err = r.Apply(pallets, "PAL-2", model.ActionSetDestination, dto.Overrides{TargetDestination: strPtr("Bern")})
	if err != nil {
		t.Fatal(err)
	}
	if pallets[0].Destination != "Bern" || events[0].Note != "Destination changed to Bern" {
		t.Errorf("set_destination: %q / %q", pallets[0].Destination, events[0].Note)
	}
}

func TestRelocateMovesToNextFreeSlot(t *testing.T) {
	r := newResolver(t, location.DefaultLayout())
	pallets := []model.Pallet{
		pallet("PAL-1", model.StatusStored, location.NewLocation("A", 1, 1, 1)),
		pallet("PAL-2", model.StatusStored, location.NewLocation("A", 1, 1, 2)),
	}

	res, events, err := r.Apply(pallets, "PAL-1", model.ActionRelocate, dto.Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Applied {
		t.Fatalf("relocate not applied: %+v", res)
	}
	want := location.SlotID("A", 1, 1, 3)
	if pallets[0].LogicalAddress.ID != want {
		t.Errorf("slot = %s, want %s", pallets[0].LogicalAddress.ID, want)
	}
	if events[0].Type != model.EventRelocated || events[0].Note != "Moved to "+want {
		t.Errorf("event = %+v", events[0])
	}
	if !pallets[0].LastScannedAt.Equal(fixedNow.Add(-48 * time.Hour)) {
		t.Error("relocate does not count as a scan")
	}
}

func TestRelocateIntoTargetZone(t *testing.T) {
	r := newResolver(t, location.DefaultLayout())
	pallets := []model.Pallet{
		pallet("PAL-1", model.StatusStored, location.NewLocation("A", 4, 4, 4)),
		pallet("PAL-2", model.StatusStored, location.NewLocation("C", 1, 1, 1)),
	}

	_, _, err := r.Apply(pallets, "PAL-1", model.ActionRelocate, dto.Overrides{TargetZone: strPtr("C")})
	if err != nil {
		t.Fatal(err)
	}
	if got := pallets[0].LogicalAddress.ID; got != location.SlotID("C", 1, 1, 2) {
		t.Errorf("slot = %s", got)
	}

	if _, _, err := r.Apply(pallets, "PAL-1", model.ActionRelocate, dto.Overrides{TargetZone: strPtr("Q")}); err == nil {
		t.Error("zone outside the layout must be rejected")
	}
}

func TestRelocateWithoutCapacityIsNoop(t *testing.T) {
	tiny := location.DefaultLayout()
	tiny.Zones = []string{"A"}
	tiny.AislesPerZone, tiny.BaysPerAisle, tiny.LevelsPerBay = 1, 1, 2
	r := newResolver(t, tiny)

	pallets := []model.Pallet{
		pallet("PAL-1", model.StatusStored, location.NewLocation("A", 1, 1, 1)),
		pallet("PAL-2", model.StatusStored, location.NewLocation("A", 1, 1, 2)),
	}
	orig := model.ClonePallets(pallets)

	res, events, err := r.Apply(pallets, "PAL-1", model.ActionRelocate, dto.Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied || res.Outcome != dto.OutcomeNoCapacity {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(events) != 0 {
		t.Fatalf("no-op relocation must not emit events, got %d", len(events))
	}
	for i := range pallets {
		if pallets[i] != orig[i] {
			t.Errorf("pallet %s changed: %+v", pallets[i].ID, pallets[i])
		}
	}
}

func TestRelocateOnlyOwnSlotLeft(t *testing.T) {
	tiny := location.DefaultLayout()
	tiny.Zones = []string{"A"}
	tiny.AislesPerZone, tiny.BaysPerAisle, tiny.LevelsPerBay = 1, 1, 1
	r := newResolver(t, tiny)

	pallets := []model.Pallet{pallet("PAL-1", model.StatusStored, location.NewLocation("A", 1, 1, 1))}
	res, events, err := r.Apply(pallets, "PAL-1", model.ActionRelocate, dto.Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != dto.OutcomeNoCapacity || len(events) != 0 {
		t.Fatalf("got %+v with %d events", res, len(events))
	}
}

func TestApplyBulkRespectsMaxTargets(t *testing.T) {
	r := newResolver(t, location.DefaultLayout())
	var pallets []model.Pallet
	for i := 1; i <= 12; i++ {
		p := pallet(fmt.Sprintf("PAL-%05d", i), model.StatusDelayed, location.NewLocation("A", 1, i, 1))
		p.Destination = "Bern"
		pallets = append(pallets, p)
	}
	pallets = append(pallets, pallet("PAL-00099", model.StatusStored, location.NewLocation("B", 1, 1, 1)))

	f := model.Filter{Status: string(model.StatusDelayed), UrgencyLevel: model.FilterAll, Destination: strPtr("bern")}
	res, events, err := r.ApplyBulk(pallets, model.ActionPick, f, 5, dto.Overrides{})
	if err != nil {
		t.Fatalf("ApplyBulk: %v", err)
	}
	if res.Matched != 12 || res.AffectedCount != 5 || len(events) != 5 || len(res.EventIDs) != 5 {
		t.Fatalf("matched=%d affected=%d events=%d", res.Matched, res.AffectedCount, len(events))
	}

	picked := 0
	for i, p := range pallets {
		if p.Status == model.StatusTransit {
			picked++
			if i >= 5 {
				t.Errorf("targets must be taken in collection order, %s was picked", p.ID)
			}
		}
	}
	if picked != 5 {
		t.Errorf("picked = %d, want 5", picked)
	}
	if pallets[12].Status != model.StatusStored {
		t.Error("non-matching pallet mutated")
	}
}

func TestApplyBulkNoMatch(t *testing.T) {
	r := newResolver(t, location.DefaultLayout())
	pallets := []model.Pallet{pallet("PAL-1", model.StatusStored, location.NewLocation("A", 1, 1, 1))}

	res, events, err := r.ApplyBulk(pallets, model.ActionLoad, model.Filter{Status: "delayed", UrgencyLevel: "all"}, 10, dto.Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != dto.OutcomeNoMatch || res.AffectedCount != 0 || len(events) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestApplyBulkRelocateKeepsSlotsUnique(t *testing.T) {
	small := location.DefaultLayout()
	small.Zones = []string{"A"}
	small.AislesPerZone, small.BaysPerAisle, small.LevelsPerBay = 2, 2, 2
	r := newResolver(t, small)

	pallets := []model.Pallet{
		pallet("PAL-1", model.StatusStored, location.NewLocation("A", 1, 1, 1)),
		pallet("PAL-2", model.StatusStored, location.NewLocation("A", 1, 1, 2)),
		pallet("PAL-3", model.StatusStored, location.NewLocation("A", 1, 2, 1)),
		pallet("PAL-4", model.StatusStored, location.NewLocation("A", 2, 1, 1)),
		pallet("PAL-5", model.StatusStored, location.NewLocation("A", 2, 2, 2)),
	}

	for round := 0; round < 20; round++ {
		if _, _, err := r.ApplyBulk(pallets, model.ActionRelocate, model.AllFilter(), 50, dto.Overrides{}); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		seen := make(map[string]string)
		for _, p := range pallets {
			if other, dup := seen[p.LogicalAddress.ID]; dup {
				t.Fatalf("round %d: %s and %s share %s", round, other, p.ID, p.LogicalAddress.ID)
			}
			seen[p.LogicalAddress.ID] = p.ID
		}
	}
}

func TestApplyBulkRelocateFullZone(t *testing.T) {
	tiny := location.DefaultLayout()
	tiny.Zones = []string{"A"}
	tiny.AislesPerZone, tiny.BaysPerAisle, tiny.LevelsPerBay = 1, 1, 2
	r := newResolver(t, tiny)

	pallets := []model.Pallet{
		pallet("PAL-1", model.StatusStored, location.NewLocation("A", 1, 1, 1)),
		pallet("PAL-2", model.StatusStored, location.NewLocation("A", 1, 1, 2)),
	}
	res, events, err := r.ApplyBulk(pallets, model.ActionRelocate, model.AllFilter(), 10, dto.Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != dto.OutcomeNoCapacity || res.AffectedCount != 0 || len(events) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Skipped) != 2 {
		t.Errorf("skipped = %v", res.Skipped)
	}
}
