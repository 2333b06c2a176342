package intent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

// wire mirrors the JSON schema handed to the translator. Every field is a
// pointer so that missing and null can be told apart from zero values.
type wire struct {
	IntentType        *string     `json:"intentType"`
	Filter            *wireFilter `json:"filter"`
	Action            *string     `json:"action"`
	MaxTargets        *float64    `json:"maxTargets"`
	TargetPalletID    *string     `json:"targetPalletId"`
	TargetZone        *string     `json:"targetZone"`
	TargetStatus      *string     `json:"targetStatus"`
	TargetDestination *string     `json:"targetDestination"`
}

type wireFilter struct {
	PalletID       *string  `json:"palletId"`
	Destination    *string  `json:"destination"`
	Status         *string  `json:"status"`
	UrgencyLevel   *string  `json:"urgencyLevel"`
	WeightMinKg    *float64 `json:"weightMinKg"`
	WeightMaxKg    *float64 `json:"weightMaxKg"`
	HighlightColor *string  `json:"highlightColor"`
}

// Decode parses the translator output and checks it against the intent
// schema. It never returns a partially populated intent.
func Decode(content []byte) (*model.Intent, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, newError(ReasonNoContent, fmt.Errorf("empty response"))
	}
	var w wire
	if err := json.Unmarshal(content, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, newError(ReasonSchemaValidation, err)
		}
		return nil, newError(ReasonInvalidJSON, err)
	}
	in, err := w.toIntent()
	if err != nil {
		return nil, newError(ReasonSchemaValidation, err)
	}
	return in, nil
}

func (w *wire) toIntent() (*model.Intent, error) {
	if w.IntentType == nil {
		return nil, fmt.Errorf("intentType is required")
	}
	in := &model.Intent{MaxTargets: model.DefaultMaxTargets}
	switch model.IntentType(*w.IntentType) {
	case model.IntentFilter, model.IntentAction:
		in.IntentType = model.IntentType(*w.IntentType)
	default:
		return nil, fmt.Errorf("intentType %q is not one of filter, action", *w.IntentType)
	}

	if w.Filter == nil {
		return nil, fmt.Errorf("filter is required")
	}
	f, err := w.Filter.toFilter()
	if err != nil {
		return nil, err
	}
	in.Filter = f

	if w.Action != nil {
		a, err := model.ParseAction(*w.Action)
		if err != nil {
			return nil, err
		}
		in.Action = &a
	}

	if w.MaxTargets != nil {
		n := *w.MaxTargets
		if n != math.Trunc(n) || n < 1 || n > model.MaxTargetsLimit {
			return nil, fmt.Errorf("maxTargets must be an integer in [1, %d], got %v", model.MaxTargetsLimit, n)
		}
		in.MaxTargets = int(n)
	}

	in.TargetPalletID = nonEmpty(w.TargetPalletID)
	in.TargetDestination = nonEmpty(w.TargetDestination)

	if z := nonEmpty(w.TargetZone); z != nil {
		zone := strings.ToUpper(*z)
		in.TargetZone = &zone
	}
	if s := nonEmpty(w.TargetStatus); s != nil {
		st, err := model.ParseStatus(*s)
		if err != nil {
			return nil, err
		}
		in.TargetStatus = &st
	}
	return in, nil
}

func (wf *wireFilter) toFilter() (model.Filter, error) {
	f := model.Filter{
		PalletID:       nonEmpty(wf.PalletID),
		Destination:    nonEmpty(wf.Destination),
		WeightMinKg:    wf.WeightMinKg,
		WeightMaxKg:    wf.WeightMaxKg,
		HighlightColor: nonEmpty(wf.HighlightColor),
	}
	if wf.Status == nil {
		return f, fmt.Errorf("filter.status is required")
	}
	switch *wf.Status {
	case model.FilterAll, string(model.StatusStored), string(model.StatusTransit), string(model.StatusDelayed):
		f.Status = *wf.Status
	default:
		return f, fmt.Errorf("filter.status %q is not allowed", *wf.Status)
	}
	if wf.UrgencyLevel == nil {
		return f, fmt.Errorf("filter.urgencyLevel is required")
	}
	switch *wf.UrgencyLevel {
	case model.FilterAll, string(model.UrgencyLow), string(model.UrgencyMedium), string(model.UrgencyHigh):
		f.UrgencyLevel = *wf.UrgencyLevel
	default:
		return f, fmt.Errorf("filter.urgencyLevel %q is not allowed", *wf.UrgencyLevel)
	}
	if f.WeightMinKg != nil && f.WeightMaxKg != nil && *f.WeightMinKg > *f.WeightMaxKg {
		return f, fmt.Errorf("filter.weightMinKg %v exceeds weightMaxKg %v", *f.WeightMinKg, *f.WeightMaxKg)
	}
	return f, nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
