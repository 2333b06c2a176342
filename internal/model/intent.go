package model

import "fmt"

type Action string

const (
	ActionReceive        Action = "receive"
	ActionPutaway        Action = "putaway"
	ActionScan           Action = "scan"
	ActionRelocate       Action = "relocate"
	ActionPick           Action = "pick"
	ActionLoad           Action = "load"
	ActionDelay          Action = "delay"
	ActionSetStatus      Action = "set_status"
	ActionSetDestination Action = "set_destination"
)

// Actions is the full vocabulary understood by the mutation engine.
var Actions = []Action{
	ActionReceive,
	ActionPutaway,
	ActionScan,
	ActionRelocate,
	ActionPick,
	ActionLoad,
	ActionDelay,
	ActionSetStatus,
	ActionSetDestination,
}

func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

type IntentType string

const (
	IntentFilter IntentType = "filter"
	IntentAction IntentType = "action"
)

// FilterAll is the "not specified" value for status and urgency filters.
const FilterAll = "all"

var Zones = []string{"A", "B", "C"}

type Filter struct {
	PalletID       *string  `json:"palletId"`
	Destination    *string  `json:"destination"`
	Status         string   `json:"status"`
	UrgencyLevel   string   `json:"urgencyLevel"`
	WeightMinKg    *float64 `json:"weightMinKg"`
	WeightMaxKg    *float64 `json:"weightMaxKg"`
	HighlightColor *string  `json:"highlightColor"`
}

// AllFilter matches every pallet.
func AllFilter() Filter {
	return Filter{Status: FilterAll, UrgencyLevel: FilterAll}
}

// Clone returns a copy that shares no pointers with f.
func (f Filter) Clone() Filter {
	f.PalletID = clonePtr(f.PalletID)
	f.Destination = clonePtr(f.Destination)
	f.WeightMinKg = clonePtr(f.WeightMinKg)
	f.WeightMaxKg = clonePtr(f.WeightMaxKg)
	f.HighlightColor = clonePtr(f.HighlightColor)
	return f
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

const (
	DefaultMaxTargets = 10
	MaxTargetsLimit   = 50
)

type Intent struct {
	IntentType        IntentType `json:"intentType"`
	Filter            Filter     `json:"filter"`
	Action            *Action    `json:"action"`
	MaxTargets        int        `json:"maxTargets"`
	TargetPalletID    *string    `json:"targetPalletId"`
	TargetZone        *string    `json:"targetZone"`
	TargetStatus      *Status    `json:"targetStatus"`
	TargetDestination *string    `json:"targetDestination"`
}

// ClampTargets bounds a requested bulk size to [1, MaxTargetsLimit].
func ClampTargets(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxTargetsLimit {
		return MaxTargetsLimit
	}
	return n
}
