package intent

import (
	"errors"
	"fmt"
)

// Reason is the diagnostic code attached to every rejected command.
type Reason string

const (
	ReasonPayloadTooLarge   Reason = "payload_too_large"
	ReasonPromptMissing     Reason = "prompt_missing"
	ReasonPromptTooLong     Reason = "prompt_too_long"
	ReasonNoContent         Reason = "upstream_no_content"
	ReasonInvalidJSON       Reason = "upstream_invalid_json"
	ReasonSchemaValidation  Reason = "schema_validation_failed"
	ReasonInvariantViolated Reason = "intent_invariant_violated"
	ReasonInternal          Reason = "internal_error"
)

// Rules named by ReasonInvariantViolated errors.
const (
	RuleActionRequired         = "action_intent_requires_action"
	RuleFilterWithoutAction    = "filter_intent_must_not_carry_action"
	RuleFilterWithoutTargeting = "filter_intent_must_not_carry_targeting"
	RuleStatusRequired         = "set_status_requires_target_status"
	RuleDestinationRequired    = "set_destination_requires_target_destination"
	RuleOverrideNotAllowed     = "override_not_allowed_for_action"
	RuleActionNotInVocabulary  = "action_not_in_vocabulary"
	RuleTargetZoneUnknown      = "target_zone_unknown"
)

type Error struct {
	Reason Reason
	Rule   string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Reason)
	if e.Rule != "" {
		msg += " (" + e.Rule + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(reason Reason, err error) *Error {
	return &Error{Reason: reason, Err: err}
}

func violation(rule string, format string, args ...any) *Error {
	return &Error{Reason: ReasonInvariantViolated, Rule: rule, Err: fmt.Errorf(format, args...)}
}

// ReasonOf extracts the reason code of err, defaulting to ReasonInternal.
func ReasonOf(err error) Reason {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Reason
	}
	return ReasonInternal
}

// Errorf is used by collaborators (translator, prompt gate) to raise coded
// errors without reaching into the struct.
func Errorf(reason Reason, format string, args ...any) error {
	return newError(reason, fmt.Errorf(format, args...))
}
