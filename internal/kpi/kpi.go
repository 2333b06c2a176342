// Package kpi derives the operational figures shown next to the pallet table.
package kpi

import (
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/event"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

const staleAfter = 24 * time.Hour

type Summary struct {
	OnTimeHandlingRate float64 `json:"onTimeHandlingRate"`
	AvgDwellHours      float64 `json:"avgDwellHours"`
	StaleScans24h      int     `json:"staleScans24h"`
}

// Calculate computes the summary at now. Dwell runs from the newest
// "received" event (or the last scan) to the newest "loaded" event (or now).
func Calculate(pallets []model.Pallet, events []model.PalletEvent, now time.Time) Summary {
	if len(pallets) == 0 {
		return Summary{OnTimeHandlingRate: 100}
	}

	byPallet := event.GroupByPallet(events)

	var (
		delayed int
		stale   int
		dwell   float64
	)
	for _, p := range pallets {
		if p.Status == model.StatusDelayed {
			delayed++
		}
		if now.Sub(p.LastScannedAt) > staleAfter {
			stale++
		}

		start, end := p.LastScannedAt, now
		if e, ok := newest(byPallet[p.ID], model.EventReceived); ok {
			start = e.At
		}
		if e, ok := newest(byPallet[p.ID], model.EventLoaded); ok {
			end = e.At
		}
		if d := end.Sub(start); d > 0 {
			dwell += d.Hours()
		}
	}

	n := float64(len(pallets))
	return Summary{
		OnTimeHandlingRate: float64(len(pallets)-delayed) / n * 100,
		AvgDwellHours:      dwell / n,
		StaleScans24h:      stale,
	}
}

// newest expects events sorted newest first.
func newest(events []model.PalletEvent, typ model.EventType) (model.PalletEvent, bool) {
	for _, e := range events {
		if e.Type == typ {
			return e, true
		}
	}
	return model.PalletEvent{}, false
}
