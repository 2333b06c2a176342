package model

import "time"

type EventType string

const (
	EventReceived     EventType = "received"
	EventPutaway      EventType = "putaway"
	EventScan         EventType = "scan"
	EventRelocated    EventType = "relocated"
	EventPicked       EventType = "picked"
	EventLoaded       EventType = "loaded"
	EventDelayFlagged EventType = "delay_flagged"
)

type EventSource string

const (
	SourceScanner  EventSource = "scanner"
	SourceOperator EventSource = "operator"
	SourceSystem   EventSource = "system"
)

// PalletEvent is append-only. PalletID references a pallet, it does not own it.
type PalletEvent struct {
	ID       string      `json:"id"`
	PalletID string      `json:"palletId"`
	Type     EventType   `json:"type"`
	At       time.Time   `json:"at"`
	Actor    string      `json:"actor"`
	Source   EventSource `json:"source"`
	Note     string      `json:"note,omitempty"`
}
