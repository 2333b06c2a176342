package intent

import (
	"regexp"
	"strings"

	"github.com/fekuna/spaceflow-wms-service/internal/model"
)

// keyword matches any of the alternatives as a whole word. Go's \b only
// knows ASCII word characters, which would miss umlaut-led words such as
// "überfällig", so the boundary is spelled out with Unicode classes.
func keyword(alts ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(alts, "|") + `)(?:$|[^\p{L}\p{N}_])`)
}

type cue struct {
	re    *regexp.Regexp
	value string
}

// Order matters: the first matching cue wins.
var (
	urgencyCues = []cue{
		{keyword(`high\s+urgency`, `urgent`, `hoch`, `dringend`), string(model.UrgencyHigh)},
		{keyword(`medium\s+urgency`, `mittel`), string(model.UrgencyMedium)},
		{keyword(`low\s+urgency`, `niedrig`), string(model.UrgencyLow)},
	}
	statusCues = []cue{
		{keyword(`delayed`, `overdue`, `überfällig`), string(model.StatusDelayed)},
		{keyword(`stored`, `lager`), string(model.StatusStored)},
		{keyword(`transit`, `in\s+transit`), string(model.StatusTransit)},
	}
	scanCue = keyword(`scan`, `scanne`)
)

// allowedOverrides lists which targeting fields each action may carry.
var allowedOverrides = map[model.Action]struct{ zone, status, destination bool }{
	model.ActionRelocate:       {zone: true},
	model.ActionSetStatus:      {status: true},
	model.ActionSetDestination: {destination: true},
}

type Options struct {
	// Zones accepted as relocation targets. Defaults to model.Zones.
	Zones []string
	// LegacyVocabulary rejects set_status coming from upstream; status
	// updates then only arrive through the set_destination safety net.
	LegacyVocabulary bool
}

type Validator struct {
	zones  map[string]struct{}
	legacy bool
}

func NewValidator(opts Options) *Validator {
	zones := opts.Zones
	if len(zones) == 0 {
		zones = model.Zones
	}
	set := make(map[string]struct{}, len(zones))
	for _, z := range zones {
		set[z] = struct{}{}
	}
	return &Validator{zones: set, legacy: opts.LegacyVocabulary}
}

// Validate checks the cross-field invariants of an intent and applies the
// deterministic corrections driven by the raw prompt. The input is not
// modified. prompt may be empty for intents that did not come from text.
func (v *Validator) Validate(in *model.Intent, prompt string) (*model.Intent, error) {
	if in == nil {
		return nil, newError(ReasonSchemaValidation, nil)
	}
	out := clone(in)

	if err := v.checkShape(out); err != nil {
		return nil, err
	}

	text := strings.ToLower(prompt)
	applyKeywordFallbacks(out, text)
	normalizeStatusDestination(out)

	if out.IntentType == model.IntentAction {
		if scanCue.MatchString(text) {
			scan := model.ActionScan
			out.Action = &scan
		}
		// a scan carries no secondary targeting
		if *out.Action == model.ActionScan {
			out.TargetZone = nil
			out.TargetStatus = nil
			out.TargetDestination = nil
		}
		if err := v.checkOverrides(out); err != nil {
			return nil, err
		}
	}

	if out.MaxTargets == 0 {
		out.MaxTargets = model.DefaultMaxTargets
	}
	out.MaxTargets = model.ClampTargets(out.MaxTargets)
	return out, nil
}

func (v *Validator) checkShape(in *model.Intent) error {
	switch in.IntentType {
	case model.IntentAction:
		if in.Action == nil {
			return violation(RuleActionRequired, "action intent must include an action")
		}
	case model.IntentFilter:
		if in.Action != nil {
			return violation(RuleFilterWithoutAction, "filter intent must not include an action (got %s)", *in.Action)
		}
		if in.TargetPalletID != nil || in.TargetZone != nil || in.TargetStatus != nil || in.TargetDestination != nil {
			return violation(RuleFilterWithoutTargeting, "filter intent must not include action targeting fields")
		}
		return nil
	default:
		return newError(ReasonSchemaValidation, nil)
	}

	action := *in.Action
	if v.legacy && action == model.ActionSetStatus {
		return violation(RuleActionNotInVocabulary, "set_status is not part of the legacy vocabulary")
	}
	if action == model.ActionSetStatus && in.TargetStatus == nil {
		return violation(RuleStatusRequired, "status action requires targetStatus")
	}
	if action == model.ActionSetDestination && in.TargetDestination == nil {
		return violation(RuleDestinationRequired, "destination action requires targetDestination")
	}
	return nil
}

// checkOverrides runs once the prompt corrections are in, so it sees the
// action that will actually be executed.
func (v *Validator) checkOverrides(in *model.Intent) error {
	action := *in.Action
	allowed := allowedOverrides[action]
	switch {
	case in.TargetZone != nil && !allowed.zone:
		return violation(RuleOverrideNotAllowed, "targetZone is not valid for %s", action)
	case in.TargetStatus != nil && !allowed.status:
		return violation(RuleOverrideNotAllowed, "targetStatus is not valid for %s", action)
	case in.TargetDestination != nil && !allowed.destination:
		return violation(RuleOverrideNotAllowed, "targetDestination is not valid for %s", action)
	}
	if in.TargetZone != nil {
		if _, ok := v.zones[*in.TargetZone]; !ok {
			return violation(RuleTargetZoneUnknown, "zone %q does not exist", *in.TargetZone)
		}
	}
	return nil
}

// applyKeywordFallbacks only narrows filter fields still at "all".
func applyKeywordFallbacks(in *model.Intent, text string) {
	if text == "" {
		return
	}
	if in.Filter.UrgencyLevel == "" || in.Filter.UrgencyLevel == model.FilterAll {
		if v, ok := firstCue(urgencyCues, text); ok {
			in.Filter.UrgencyLevel = v
		}
	}
	if in.Filter.Status == "" || in.Filter.Status == model.FilterAll {
		if v, ok := firstCue(statusCues, text); ok {
			in.Filter.Status = v
		}
	}
}

func firstCue(cues []cue, text string) (string, bool) {
	for _, c := range cues {
		if c.re.MatchString(text) {
			return c.value, true
		}
	}
	return "", false
}

// normalizeStatusDestination turns "set destination to stored" into the
// status update the operator meant.
func normalizeStatusDestination(in *model.Intent) {
	if in.Action == nil || *in.Action != model.ActionSetDestination || in.TargetDestination == nil {
		return
	}
	st, err := model.ParseStatus(strings.ToLower(strings.TrimSpace(*in.TargetDestination)))
	if err != nil {
		return
	}
	action := model.ActionSetStatus
	in.Action = &action
	in.TargetStatus = &st
	in.TargetDestination = nil
}

func clone(in *model.Intent) *model.Intent {
	out := *in
	out.Filter = in.Filter.Clone()
	out.Action = copyPtr(in.Action)
	out.TargetPalletID = copyPtr(in.TargetPalletID)
	out.TargetZone = copyPtr(in.TargetZone)
	out.TargetStatus = copyPtr(in.TargetStatus)
	out.TargetDestination = copyPtr(in.TargetDestination)
	return &out
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
