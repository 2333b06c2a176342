package event

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

var actorPool = []string{"Dock-01", "Ops-Lead", "Forklift-07", "Scanner-03"}

const consoleActor = "Ops-Console"

// actionSeq disambiguates ids of events created within the same millisecond.
var actionSeq uint64

// BuildPalletEvents synthesizes a backstory for every pallet anchored at its
// last scan. Output is sorted newest-first.
func BuildPalletEvents(pallets []model.Pallet) []model.PalletEvent {
	events := make([]model.PalletEvent, 0, len(pallets)*4)

	for i, p := range pallets {
		last := p.LastScannedAt
		stagger := time.Duration(i)
		receivedAt := last.Add(-36*time.Hour - stagger*10*time.Minute)
		putawayAt := last.Add(-30*time.Hour - stagger*8*time.Minute)

		events = append(events,
			synth(p.ID, model.EventReceived, receivedAt, actorPool[i%len(actorPool)], model.SourceScanner, ""),
			synth(p.ID, model.EventPutaway, putawayAt, actorPool[(i+1)%len(actorPool)], model.SourceOperator, ""),
			synth(p.ID, model.EventScan, last, actorPool[(i+2)%len(actorPool)], model.SourceScanner, ""),
		)

		if i%3 == 0 {
			events = append(events, synth(p.ID, model.EventRelocated, last.Add(-18*time.Hour),
				actorPool[(i+3)%len(actorPool)], model.SourceOperator, "Re-slotted for outbound wave"))
		}

		switch p.Status {
		case model.StatusTransit:
			events = append(events,
				synth(p.ID, model.EventPicked, last.Add(-6*time.Hour), "Wave-Picker", model.SourceOperator, ""),
				synth(p.ID, model.EventLoaded, last.Add(30*time.Minute), "Dock-02", model.SourceScanner, ""),
			)
		case model.StatusDelayed:
			events = append(events, synth(p.ID, model.EventDelayFlagged, last.Add(15*time.Minute),
				"Rule-Engine", model.SourceSystem, "Carrier cutoff missed"))
		}
	}

	SortNewestFirst(events)
	return events
}

func synth(palletID string, typ model.EventType, at time.Time, actor string, src model.EventSource, note string) model.PalletEvent {
	return model.PalletEvent{
		ID:       fmt.Sprintf("%s-%s-%d", palletID, typ, at.UnixMilli()),
		PalletID: palletID,
		Type:     typ,
		At:       at,
		Actor:    actor,
		Source:   src,
		Note:     note,
	}
}

// MakeActionEvent maps an executed action onto exactly one event. after is
// the pallet as it looks once the transition has been applied.
func MakeActionEvent(after model.Pallet, action model.Action, at time.Time) (model.PalletEvent, error) {
	var (
		typ   model.EventType
		actor string
		src   model.EventSource
		note  string
	)

	switch action {
	case model.ActionReceive:
		typ, actor, src = model.EventReceived, "Dock-01", model.SourceScanner
	case model.ActionPutaway:
		typ, actor, src = model.EventPutaway, "Forklift-07", model.SourceOperator
	case model.ActionScan:
		typ, actor, src = model.EventScan, "Scanner-03", model.SourceScanner
	case model.ActionRelocate:
		typ, actor, src = model.EventRelocated, "Forklift-07", model.SourceOperator
		note = "Moved to " + after.LogicalAddress.ID
	case model.ActionPick:
		typ, actor, src = model.EventPicked, "Wave-Picker", model.SourceOperator
	case model.ActionLoad:
		typ, actor, src = model.EventLoaded, "Dock-02", model.SourceScanner
	case model.ActionDelay:
		typ, actor, src = model.EventDelayFlagged, consoleActor, model.SourceOperator
		note = "Flagged as delayed"
	case model.ActionSetStatus:
		actor, src = consoleActor, model.SourceOperator
		note = "Status set to " + string(after.Status)
		switch after.Status {
		case model.StatusTransit:
			typ = model.EventPicked
		case model.StatusDelayed:
			typ = model.EventDelayFlagged
		default:
			typ = model.EventPutaway
		}
	case model.ActionSetDestination:
		typ, actor, src = model.EventScan, consoleActor, model.SourceOperator
		note = "Destination changed to " + after.Destination
	default:
		return model.PalletEvent{}, fmt.Errorf("no event mapping for action %q", action)
	}

	seq := atomic.AddUint64(&actionSeq, 1)
	return model.PalletEvent{
		ID:       fmt.Sprintf("%s-%s-%d-%d", after.ID, typ, at.UnixMilli(), seq),
		PalletID: after.ID,
		Type:     typ,
		At:       at,
		Actor:    actor,
		Source:   src,
		Note:     note,
	}, nil
}

// SortNewestFirst orders by At descending; equal timestamps keep their
// relative order.
func SortNewestFirst(events []model.PalletEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.After(events[j].At)
	})
}

// ForPallet returns the events of one pallet, newest first.
func ForPallet(events []model.PalletEvent, palletID string) []model.PalletEvent {
	out := make([]model.PalletEvent, 0, 8)
	for _, e := range events {
		if e.PalletID == palletID {
			out = append(out, e)
		}
	}
	SortNewestFirst(out)
	return out
}

// GroupByPallet buckets events per pallet, each bucket newest first.
func GroupByPallet(events []model.PalletEvent) map[string][]model.PalletEvent {
	out := make(map[string][]model.PalletEvent)
	for _, e := range events {
		out[e.PalletID] = append(out[e.PalletID], e)
	}
	for _, bucket := range out {
		SortNewestFirst(bucket)
	}
	return out
}
