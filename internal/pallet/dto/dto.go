package dto

import (
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeNotFound       Outcome = "pallet_not_found"
	OutcomeNoCapacity     Outcome = "no_free_slot"
	OutcomeNoMatch        Outcome = "no_matching_pallets"
	OutcomeInvalidRequest Outcome = "invalid_request"
)

// ActionResult is returned for single-pallet mutations. Before is the
// pre-mutation copy of the pallet, set whenever the pallet existed.
type ActionResult struct {
	Applied  bool
	Outcome  Outcome
	PalletID string
	EventID  string
	Event    *model.PalletEvent
	Before   *model.Pallet
	After    *model.Pallet
}

// BulkResult is returned for filter-targeted mutations. Before and After
// only hold pallets that were actually changed.
type BulkResult struct {
	Outcome       Outcome
	Matched       int
	AffectedCount int
	EventIDs      []string
	Events        []model.PalletEvent
	Skipped       []string
	Before        []model.Pallet
	After         []model.Pallet
}

// ViewState is what the table and spatial views read besides the pallets.
type ViewState struct {
	ActiveFilter     *model.Filter
	HighlightColor   *string
	HoveredPalletID  *string
	SelectedPalletID *string
	FilterRevision   uint64
	Total            int
	Visible          int
}

type EventFilters struct {
	PalletID string
	Type     model.EventType
	Since    *time.Time
	Limit    int
}
