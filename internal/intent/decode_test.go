package intent

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

const validFilterJSON = `{
  "intentType": "filter",
  "filter": {"palletId": null, "destination": "Zürich", "status": "delayed", "urgencyLevel": "all",
             "weightMinKg": null, "weightMaxKg": 500, "highlightColor": "#ef4444"},
  "action": null, "maxTargets": 10,
  "targetPalletId": null, "targetZone": null, "targetStatus": null, "targetDestination": null
}`

func TestDecodeFilterIntent(t *testing.T) {
	in, err := Decode([]byte(validFilterJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.IntentType != model.IntentFilter || in.Action != nil {
		t.Errorf("unexpected intent: %+v", in)
	}
	if in.Filter.Destination == nil || *in.Filter.Destination != "Zürich" {
		t.Errorf("destination = %v", in.Filter.Destination)
	}
	if in.Filter.WeightMaxKg == nil || *in.Filter.WeightMaxKg != 500 || in.Filter.WeightMinKg != nil {
		t.Errorf("weights = %v/%v", in.Filter.WeightMinKg, in.Filter.WeightMaxKg)
	}
	if in.MaxTargets != 10 {
		t.Errorf("maxTargets = %d", in.MaxTargets)
	}
}

func TestDecodeActionIntent(t *testing.T) {
	raw := `{"intentType":"action","filter":{"status":"all","urgencyLevel":"all"},
	         "action":"relocate","targetPalletId":"PAL-00001","targetZone":"c"}`
	in, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.Action == nil || *in.Action != model.ActionRelocate {
		t.Fatalf("action = %v", in.Action)
	}
	if in.TargetZone == nil || *in.TargetZone != "C" {
		t.Errorf("zone should be upper-cased, got %v", in.TargetZone)
	}
	if in.MaxTargets != model.DefaultMaxTargets {
		t.Errorf("missing maxTargets should default, got %d", in.MaxTargets)
	}
}

func TestDecodeReasons(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Reason
	}{
		{"empty", "  ", ReasonNoContent},
		{"not json", "{intent", ReasonInvalidJSON},
		{"wrong type", `{"intentType": 5}`, ReasonSchemaValidation},
		{"missing intentType", `{"filter":{"status":"all","urgencyLevel":"all"}}`, ReasonSchemaValidation},
		{"bad intentType", `{"intentType":"delete","filter":{"status":"all","urgencyLevel":"all"}}`, ReasonSchemaValidation},
		{"missing filter", `{"intentType":"filter"}`, ReasonSchemaValidation},
		{"bad status", `{"intentType":"filter","filter":{"status":"lost","urgencyLevel":"all"}}`, ReasonSchemaValidation},
		{"missing urgency", `{"intentType":"filter","filter":{"status":"all"}}`, ReasonSchemaValidation},
		{"unknown action", `{"intentType":"action","action":"teleport","filter":{"status":"all","urgencyLevel":"all"}}`, ReasonSchemaValidation},
		{"maxTargets too high", `{"intentType":"action","action":"scan","maxTargets":51,"filter":{"status":"all","urgencyLevel":"all"}}`, ReasonSchemaValidation},
		{"maxTargets fractional", `{"intentType":"action","action":"scan","maxTargets":2.5,"filter":{"status":"all","urgencyLevel":"all"}}`, ReasonSchemaValidation},
		{"inverted weights", `{"intentType":"filter","filter":{"status":"all","urgencyLevel":"all","weightMinKg":10,"weightMaxKg":5}}`, ReasonSchemaValidation},
		{"bad target status", `{"intentType":"action","action":"set_status","targetStatus":"gone","filter":{"status":"all","urgencyLevel":"all"}}`, ReasonSchemaValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Decode([]byte(tt.raw))
			if err == nil {
				t.Fatalf("expected error, got %+v", in)
			}
			if in != nil {
				t.Error("partial intent must not be returned")
			}
			if got := ReasonOf(err); got != tt.want {
				t.Errorf("reason = %s, want %s (%v)", got, tt.want, err)
			}
		})
	}
}

func TestSchemaIsValidJSON(t *testing.T) {
	var v map[string]any
	if err := json.Unmarshal(Schema, &v); err != nil {
		t.Fatalf("schema does not parse: %v", err)
	}
	if v["type"] != "object" {
		t.Errorf("schema root type = %v", v["type"])
	}
}

func TestReasonOfForeignError(t *testing.T) {
	if ReasonOf(errors.New("boom")) != ReasonInternal {
		t.Fatal("foreign errors map to internal_error")
	}
	wrapped := errors.Join(errors.New("ctx"), Errorf(ReasonPromptTooLong, "too long"))
	if ReasonOf(wrapped) != ReasonPromptTooLong {
		t.Fatal("wrapped coded errors keep their reason")
	}
}
