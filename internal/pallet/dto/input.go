package dto

import "github.com/fekuna/spaceflow-wms-service/internal/model"

// Overrides carries the action-specific targeting of an intent. The intent
// validator guarantees that only the field belonging to the action is set.
type Overrides struct {
	TargetZone        *string       // relocate
	TargetStatus      *model.Status // set_status
	TargetDestination *string       // set_destination
}

// OverridesFromIntent extracts the targeting fields of a validated intent.
func OverridesFromIntent(in *model.Intent) Overrides {
	return Overrides{
		TargetZone:        in.TargetZone,
		TargetStatus:      in.TargetStatus,
		TargetDestination: in.TargetDestination,
	}
}

// ScannerMessage is what handheld scanners publish on the scanner topic.
type ScannerMessage struct {
	PalletID  string `json:"pallet_id"`
	Action    string `json:"action"`
	DeviceID  string `json:"device_id"`
	ScannedAt string `json:"scanned_at"`
}
