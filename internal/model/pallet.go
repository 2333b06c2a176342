package model

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusStored  Status = "stored"
	StatusTransit Status = "transit"
	StatusDelayed Status = "delayed"
)

var statuses = []Status{StatusStored, StatusTransit, StatusDelayed}

func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown pallet status %q", s)
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func ParseUrgency(s string) (Urgency, error) {
	switch Urgency(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return Urgency(s), nil
	}
	return "", fmt.Errorf("unknown urgency %q", s)
}

// StorageLocation is one physical slot. ID is derived from the other four
// fields and is the only key used for collision checks.
type StorageLocation struct {
	ID    string `db:"location_id" json:"id"`
	Zone  string `db:"zone" json:"zone"`
	Aisle int    `db:"aisle" json:"aisle"`
	Bay   int    `db:"bay" json:"bay"`
	Level int    `db:"level" json:"level"`
}

type Pallet struct {
	ID             string          `json:"id"`
	Destination    string          `json:"destination"`
	Status         Status          `json:"status"`
	Urgency        Urgency         `json:"urgency"`
	WeightKg       float64         `json:"weightKg"`
	LastScannedAt  time.Time       `json:"lastScannedAt"`
	LogicalAddress StorageLocation `json:"logicalAddress"`
}

// ClonePallets returns an independent copy. Pallet holds no reference
// fields, so a value copy per element is a deep copy.
func ClonePallets(in []Pallet) []Pallet {
	if in == nil {
		return nil
	}
	out := make([]Pallet, len(in))
	copy(out, in)
	return out
}
