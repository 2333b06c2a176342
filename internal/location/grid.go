// Package location maps logical storage addresses onto slot ids, a linear
// per-zone order used for free-slot search, and 3D positions for the
// spatial view.
package location

import (
	"fmt"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

// Layout describes the bounded address space of the warehouse.
type Layout struct {
	Zones         []string `yaml:"zones"`
	AislesPerZone int      `yaml:"aisles_per_zone"`
	BaysPerAisle  int      `yaml:"bays_per_aisle"`
	LevelsPerBay  int      `yaml:"levels_per_bay"`
	Spacing       Spacing  `yaml:"spacing"`
}

// Spacing holds the scene units used by Position.
type Spacing struct {
	AisleWidth  float64 `yaml:"aisle_width"`
	BayWidth    float64 `yaml:"bay_width"`
	LevelHeight float64 `yaml:"level_height"`
	ShelfDepth  float64 `yaml:"shelf_depth"`
	StartOffset Vec3    `yaml:"start_offset"`
}

type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

func DefaultLayout() Layout {
	return Layout{
		Zones:         append([]string(nil), model.Zones...),
		AislesPerZone: 10,
		BaysPerAisle:  12,
		LevelsPerBay:  4,
		Spacing: Spacing{
			AisleWidth:  4.0,
			BayWidth:    1.2,
			LevelHeight: 1.4,
			ShelfDepth:  1.0,
			StartOffset: Vec3{X: -25, Y: 0.7, Z: -25},
		},
	}
}

func (l Layout) Validate() error {
	if len(l.Zones) == 0 {
		return fmt.Errorf("layout: at least one zone required")
	}
	if l.AislesPerZone < 1 || l.BaysPerAisle < 1 || l.LevelsPerBay < 1 {
		return fmt.Errorf("layout: aisles, bays and levels must be >= 1 (got %d/%d/%d)",
			l.AislesPerZone, l.BaysPerAisle, l.LevelsPerBay)
	}
	return nil
}

// SlotID is the canonical collision key for a slot, e.g. LOC-A-01-02-03.
func SlotID(zone string, aisle, bay, level int) string {
	return fmt.Sprintf("LOC-%s-%02d-%02d-%02d", zone, aisle, bay, level)
}

// NewLocation builds a StorageLocation with its derived id filled in.
func NewLocation(zone string, aisle, bay, level int) model.StorageLocation {
	return model.StorageLocation{
		ID:    SlotID(zone, aisle, bay, level),
		Zone:  zone,
		Aisle: aisle,
		Bay:   bay,
		Level: level,
	}
}

type Grid struct {
	layout Layout
}

func NewGrid(layout Layout) (*Grid, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Grid{layout: layout}, nil
}

func (g *Grid) Layout() Layout {
	return g.layout
}

// SlotsPerZone is the number of probes a full zone scan takes.
func (g *Grid) SlotsPerZone() int {
	return g.layout.AislesPerZone * g.layout.BaysPerAisle * g.layout.LevelsPerBay
}

// HasZone reports whether zone is part of the layout.
func (g *Grid) HasZone(zone string) bool {
	return g.zoneIndex(zone) >= 0
}

// index linearizes aisle-major, then bay, then level. Locations outside the
// layout bounds return -1.
func (g *Grid) index(loc model.StorageLocation) int {
	l := g.layout
	if loc.Aisle < 1 || loc.Aisle > l.AislesPerZone ||
		loc.Bay < 1 || loc.Bay > l.BaysPerAisle ||
		loc.Level < 1 || loc.Level > l.LevelsPerBay {
		return -1
	}
	return ((loc.Aisle-1)*l.BaysPerAisle+(loc.Bay-1))*l.LevelsPerBay + (loc.Level - 1)
}

func (g *Grid) at(zone string, idx int) model.StorageLocation {
	l := g.layout
	level := idx%l.LevelsPerBay + 1
	idx /= l.LevelsPerBay
	bay := idx%l.BaysPerAisle + 1
	aisle := idx/l.BaysPerAisle + 1
	return NewLocation(zone, aisle, bay, level)
}

// NextFreeSlot walks the zone of current in linear order starting just after
// current, wrapping around, and returns the first slot whose id is not in
// occupied. The walk is bounded by SlotsPerZone probes. If occupied does not
// contain current, the walk can end on current itself; callers treat that as
// "no other slot available".
func (g *Grid) NextFreeSlot(current model.StorageLocation, occupied map[string]struct{}) (model.StorageLocation, bool) {
	total := g.SlotsPerZone()
	start := g.index(current) + 1
	for probe := 0; probe < total; probe++ {
		cand := g.at(current.Zone, (start+probe)%total)
		if _, taken := occupied[cand.ID]; !taken {
			return cand, true
		}
	}
	return model.StorageLocation{}, false
}

// FirstFreeSlot scans zone from its first slot.
func (g *Grid) FirstFreeSlot(zone string, occupied map[string]struct{}) (model.StorageLocation, bool) {
	total := g.SlotsPerZone()
	for idx := 0; idx < total; idx++ {
		cand := g.at(zone, idx)
		if _, taken := occupied[cand.ID]; !taken {
			return cand, true
		}
	}
	return model.StorageLocation{}, false
}

func (g *Grid) zoneIndex(zone string) int {
	for i, z := range g.layout.Zones {
		if z == zone {
			return i
		}
	}
	return -1
}

// Position maps a slot into scene coordinates. Zones are laid out side by
// side along X; unknown zones fall back to the first zone column.
func (g *Grid) Position(loc model.StorageLocation) Vec3 {
	s := g.layout.Spacing
	zi := g.zoneIndex(loc.Zone)
	if zi < 0 {
		zi = 0
	}
	pitch := s.AisleWidth + s.ShelfDepth
	zoneSpan := float64(g.layout.AislesPerZone+1)*pitch + 4
	return Vec3{
		X: s.StartOffset.X + float64(zi)*zoneSpan + float64(loc.Aisle)*pitch,
		// lifted slightly so pallets sit on the floor plane
		Y: s.StartOffset.Y + float64(loc.Level-1)*s.LevelHeight + 0.1,
		Z: s.StartOffset.Z + float64(loc.Bay)*s.BayWidth,
	}
}
