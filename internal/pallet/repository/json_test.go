package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = `[
  {"id": "PAL-00001", "destination": "Zürich", "status": "stored", "urgency": "low", "weightKg": 420.5,
   "lastScannedAt": "2026-02-22T10:00:00.000Z",
   "logicalAddress": {"id": "LOC-A-01-01-01", "zone": "A", "aisle": 1, "bay": 1, "level": 1}},
  {"id": "PAL-00002", "destination": "Basel", "status": "delayed", "urgency": "high", "weightKg": 350,
   "lastScannedAt": "2026-02-20T08:00:00Z",
   "logicalAddress": {"zone": "b", "aisle": 2, "bay": 3, "level": 4}}
]`

func TestJSONRepositoryLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pallets.json")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}

	pallets, err := NewJSONRepository(path).LoadPallets(context.Background())
	if err != nil {
		t.Fatalf("LoadPallets: %v", err)
	}
	if len(pallets) != 2 {
		t.Fatalf("len = %d", len(pallets))
	}
	if want := time.Date(2026, 2, 22, 10, 0, 0, 0, time.UTC); !pallets[0].LastScannedAt.Equal(want) {
		t.Errorf("lastScannedAt = %v", pallets[0].LastScannedAt)
	}
	loc := pallets[1].LogicalAddress
	if loc.Zone != "B" || loc.ID != "LOC-B-02-03-04" {
		t.Errorf("derived address = %+v", loc)
	}
}

func TestJSONRepositoryMissingFile(t *testing.T) {
	_, err := NewJSONRepository(filepath.Join(t.TempDir(), "nope.json")).LoadPallets(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestDecodePalletsRejectsBadRecords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"not an array", `{"id": "x"}`, "decode pallets"},
		{"bad status", `[{"id":"P1","status":"lost","urgency":"low","logicalAddress":{"zone":"A"}}]`, "unknown status"},
		{"bad urgency", `[{"id":"P1","status":"stored","urgency":"asap","logicalAddress":{"zone":"A"}}]`, "unknown urgency"},
		{"no zone", `[{"id":"P1","status":"stored","urgency":"low","logicalAddress":{}}]`, "without zone"},
		{"no id", `[{"status":"stored","urgency":"low","logicalAddress":{"zone":"A"}}]`, "without id"},
		{"duplicate id", `[{"id":"P1","status":"stored","urgency":"low","logicalAddress":{"zone":"A"}},
		                   {"id":"P1","status":"stored","urgency":"low","logicalAddress":{"zone":"A","level":2}}]`, "duplicate pallet id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePallets([]byte(tt.raw))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestDecodePalletsRebuildsSlotID(t *testing.T) {
	raw := `[
	  {"id":"P1","status":"stored","urgency":"low","logicalAddress":{"id":"A-1","zone":"A","aisle":1,"bay":1,"level":1}},
	  {"id":"P2","status":"stored","urgency":"low","logicalAddress":{"id":"LOC-A-01-01-02","zone":"a","aisle":1,"bay":1,"level":2}}
	]`
	pallets, err := DecodePallets([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"LOC-A-01-01-01", "LOC-A-01-01-02"}
	for i, p := range pallets {
		if p.LogicalAddress.ID != want[i] {
			t.Errorf("%s slot id = %s, want %s", p.ID, p.LogicalAddress.ID, want[i])
		}
	}
}

func TestJSONRepositorySaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pallets.json")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	repo := NewJSONRepository(path)
	ctx := context.Background()

	pallets, err := repo.LoadPallets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pallets[0].Destination = "Lugano"
	if err := repo.SavePallets(ctx, pallets); err != nil {
		t.Fatalf("SavePallets: %v", err)
	}

	again, err := repo.LoadPallets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again[0] != pallets[0] || again[1] != pallets[1] {
		t.Errorf("reloaded = %+v", again)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}
