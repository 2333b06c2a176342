package repository

import (
	"fmt"
	"strings"

	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

// normalize validates one stored record. The slot id is always rebuilt
// from the coordinates since it is the collision key.
func normalize(p *model.Pallet) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return fmt.Errorf("pallet without id")
	}
	if !p.Status.Valid() {
		return fmt.Errorf("pallet %s: unknown status %q", p.ID, p.Status)
	}
	if _, err := model.ParseUrgency(string(p.Urgency)); err != nil {
		return fmt.Errorf("pallet %s: %w", p.ID, err)
	}
	if p.WeightKg < 0 {
		return fmt.Errorf("pallet %s: negative weight %v", p.ID, p.WeightKg)
	}

	loc := &p.LogicalAddress
	loc.Zone = strings.ToUpper(strings.TrimSpace(loc.Zone))
	if loc.Zone == "" {
		return fmt.Errorf("pallet %s: address without zone", p.ID)
	}
	loc.ID = location.SlotID(loc.Zone, loc.Aisle, loc.Bay, loc.Level)
	return nil
}

func normalizeAll(pallets []model.Pallet) error {
	seen := make(map[string]struct{}, len(pallets))
	for i := range pallets {
		if err := normalize(&pallets[i]); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[pallets[i].ID]; dup {
			return fmt.Errorf("record %d: duplicate pallet id %s", i, pallets[i].ID)
		}
		seen[pallets[i].ID] = struct{}{}
	}
	return nil
}
