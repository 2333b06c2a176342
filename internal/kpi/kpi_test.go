package kpi

import (
	"testing"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestCalculate(t *testing.T) {
	pallets := []model.Pallet{
		{ID: "PAL-1", Status: model.StatusStored, LastScannedAt: mustTime(t, "2026-02-22T10:00:00Z")},
		{ID: "PAL-2", Status: model.StatusDelayed, LastScannedAt: mustTime(t, "2026-02-20T08:00:00Z")},
	}
	events := []model.PalletEvent{
		{ID: "1", PalletID: "PAL-1", Type: model.EventReceived, At: mustTime(t, "2026-02-22T06:00:00Z")},
		{ID: "2", PalletID: "PAL-2", Type: model.EventReceived, At: mustTime(t, "2026-02-19T08:00:00Z")},
	}

	got := Calculate(pallets, events, mustTime(t, "2026-02-22T12:00:00Z"))
	if got.OnTimeHandlingRate != 50 {
		t.Errorf("onTimeHandlingRate = %v, want 50", got.OnTimeHandlingRate)
	}
	if got.AvgDwellHours != 41 {
		t.Errorf("avgDwellHours = %v, want 41", got.AvgDwellHours)
	}
	if got.StaleScans24h != 1 {
		t.Errorf("staleScans24h = %d, want 1", got.StaleScans24h)
	}
}

func TestCalculateEmpty(t *testing.T) {
	got := Calculate(nil, nil, time.Now())
	if got != (Summary{OnTimeHandlingRate: 100}) {
		t.Fatalf("got %+v", got)
	}
}

func TestCalculateUsesLoadedAndClampsNegative(t *testing.T) {
	now := mustTime(t, "2026-02-22T12:00:00Z")
	pallets := []model.Pallet{
		{ID: "PAL-1", Status: model.StatusTransit, LastScannedAt: now},
		{ID: "PAL-2", Status: model.StatusTransit, LastScannedAt: now.Add(2 * time.Hour)},
	}
	events := []model.PalletEvent{
		{PalletID: "PAL-1", Type: model.EventReceived, At: now.Add(-10 * time.Hour)},
		{PalletID: "PAL-1", Type: model.EventLoaded, At: now.Add(-4 * time.Hour)},
	}

	got := Calculate(pallets, events, now)
	// PAL-1 dwelled 6h, PAL-2 has a scan in the future and counts as 0
	if got.AvgDwellHours != 3 {
		t.Errorf("avgDwellHours = %v, want 3", got.AvgDwellHours)
	}
	if got.OnTimeHandlingRate != 100 || got.StaleScans24h != 0 {
		t.Errorf("got %+v", got)
	}
}
