package repository

import (
	"testing"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

func TestRowMapping(t *testing.T) {
	zurich := time.FixedZone("CET", 3600)
	p := model.Pallet{
		ID:             "PAL-00009",
		Destination:    "Luzern",
		Status:         model.StatusTransit,
		Urgency:        model.UrgencyMedium,
		WeightKg:       512.5,
		LastScannedAt:  time.Date(2026, 3, 1, 13, 0, 0, 0, zurich),
		LogicalAddress: location.NewLocation("C", 9, 12, 4),
	}
	row := toRow(p)
	if row.Status != "transit" || row.ID != p.ID || row.StorageLocation.ID != "LOC-C-09-12-04" {
		t.Errorf("row = %+v", row)
	}
	if row.LastScannedAt.Location() != time.UTC || !row.LastScannedAt.Equal(p.LastScannedAt) {
		t.Errorf("timestamp = %v", row.LastScannedAt)
	}

	ev := model.PalletEvent{
		ID: "PAL-00009-picked-1", PalletID: p.ID, Type: model.EventPicked,
		At: p.LastScannedAt, Actor: "Picker 2", Source: model.SourceOperator,
	}
	er := toEventRow(ev)
	if er.Type != "picked" || er.Source != "operator" || er.At.Location() != time.UTC {
		t.Errorf("event row = %+v", er)
	}
}
