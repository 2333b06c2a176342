package filter

import (
	"strings"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

// Matches reports whether p satisfies every specified field of f. Unset
// pointers and the "all" value do not constrain. HighlightColor is display
// only and never filters.
func Matches(p model.Pallet, f model.Filter) bool {
	if f.PalletID != nil && p.ID != *f.PalletID {
		return false
	}
	if f.Destination != nil && *f.Destination != "" &&
		!strings.Contains(strings.ToLower(p.Destination), strings.ToLower(*f.Destination)) {
		return false
	}
	if f.Status != "" && f.Status != model.FilterAll && string(p.Status) != f.Status {
		return false
	}
	if f.UrgencyLevel != "" && f.UrgencyLevel != model.FilterAll && string(p.Urgency) != f.UrgencyLevel {
		return false
	}
	if f.WeightMinKg != nil && p.WeightKg < *f.WeightMinKg {
		return false
	}
	if f.WeightMaxKg != nil && p.WeightKg > *f.WeightMaxKg {
		return false
	}
	return true
}

// Pallets returns the matching pallets in their original order. The result
// is a fresh slice; the input is never modified.
func Pallets(pallets []model.Pallet, f model.Filter) []model.Pallet {
	out := make([]model.Pallet, 0, len(pallets))
	for _, p := range pallets {
		if Matches(p, f) {
			out = append(out, p)
		}
	}
	return out
}
