// Package command runs operator requests end to end: prompt gate,
// translation, validation and execution against the pallet store, plus the
// undo and redo history of executed actions.
package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/intent"
	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/metrics"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/dto"
	"github.com/fekuna/spaceflow-wms-service/internal/translator"
	"github.com/google/uuid"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
)

// Command-level reason codes, next to the intent.Reason set and the
// dto.Outcome values.
const (
	ReasonInFlight      = "request_in_flight"
	ReasonStale         = "stale_response"
	ReasonNothingToUndo = "nothing_to_undo"
	ReasonNothingToRedo = "nothing_to_redo"
)

const maxHistory = 50

type Kind string

const (
	KindFilter     Kind = "filter"
	KindAction     Kind = "action"
	KindBulkAction Kind = "bulk_action"
	KindUndo       Kind = "undo"
	KindRedo       Kind = "redo"
	KindClear      Kind = "clear"
	KindRejected   Kind = "rejected"
)

// Result is what an operator sees for one request. Reason is empty when
// the request was applied.
type Result struct {
	RequestID string
	Kind      Kind
	Applied   bool
	Reason    string
	Rule      string
	Message   string
	Intent    *model.Intent
	View      *dto.ViewState
	Action    *dto.ActionResult
	Bulk      *dto.BulkResult
	Conflicts []string
}

type entry struct {
	action model.Action
	before []model.Pallet
	after  []model.Pallet
	events []model.PalletEvent
}

type Config struct {
	Zones            []string
	LegacyVocabulary bool
	Locale           string
}

type Service struct {
	store      pallet.UseCase
	translator translator.Translator
	validator  *intent.Validator
	localizer  *i18n.Localizer
	metrics    *metrics.Metrics
	logger     logger.ZapLogger

	mu         sync.Mutex
	inFlight   bool
	generation uint64
	undo       []entry
	redo       []entry
}

func NewService(store pallet.UseCase, tr translator.Translator, cfg Config, m *metrics.Metrics, log logger.ZapLogger) (*Service, error) {
	loc, err := newLocalizer(cfg.Locale)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:      store,
		translator: tr,
		validator:  intent.NewValidator(intent.Options{Zones: cfg.Zones, LegacyVocabulary: cfg.LegacyVocabulary}),
		localizer:  loc,
		metrics:    m,
		logger:     log,
	}, nil
}

// Submit translates prompt and executes the resulting intent. Only one
// submission may be outstanding; a response that arrives after Clear is
// discarded.
func (s *Service) Submit(ctx context.Context, prompt string) *Result {
	requestID := uuid.NewString()

	trimmed, err := translator.CheckPrompt(prompt)
	if err != nil {
		return s.rejectIntent(requestID, err)
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return s.reject(requestID, ReasonInFlight, "RequestInFlight")
	}
	s.inFlight = true
	gen := s.generation
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	start := time.Now()
	in, err := s.translator.Translate(ctx, trimmed)
	if err != nil {
		s.metrics.ObserveTranslation(string(intent.ReasonOf(err)), time.Since(start))
		s.logger.Error("Translation failed",
			zap.String("request_id", requestID),
			zap.String("reason", string(intent.ReasonOf(err))),
			zap.Error(err),
		)
		return s.rejectIntent(requestID, err)
	}
	s.metrics.ObserveTranslation("ok", time.Since(start))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Info("Discarding stale translation", zap.String("request_id", requestID))
		return s.reject(requestID, ReasonStale, "StaleResponse")
	}
	return s.executeLocked(ctx, requestID, in, trimmed)
}

// Execute validates and runs an already decoded intent. prompt is used for
// keyword fallbacks and may be empty.
func (s *Service) Execute(ctx context.Context, in *model.Intent, prompt string) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executeLocked(ctx, uuid.NewString(), in, prompt)
}

func (s *Service) executeLocked(ctx context.Context, requestID string, raw *model.Intent, prompt string) *Result {
	in, err := s.validator.Validate(raw, prompt)
	if err != nil {
		s.logger.Warn("Intent rejected",
			zap.String("request_id", requestID),
			zap.String("reason", string(intent.ReasonOf(err))),
			zap.Error(err),
		)
		return s.rejectIntent(requestID, err)
	}

	if in.IntentType == model.IntentFilter {
		view := s.store.ApplyFilter(in.Filter)
		return &Result{
			RequestID: requestID,
			Kind:      KindFilter,
			Applied:   true,
			Intent:    in,
			View:      &view,
			Message:   s.message("FilterApplied", map[string]any{"Visible": view.Visible, "Total": view.Total}),
		}
	}

	action := *in.Action
	ov := dto.OverridesFromIntent(in)
	if in.TargetPalletID != nil {
		return s.applySingle(ctx, requestID, in, action, *in.TargetPalletID, ov)
	}
	return s.applyBulk(ctx, requestID, in, action, ov)
}

func (s *Service) applySingle(ctx context.Context, requestID string, in *model.Intent, action model.Action, palletID string, ov dto.Overrides) *Result {
	res, err := s.store.ApplyAction(ctx, palletID, action, ov)
	out := &Result{RequestID: requestID, Kind: KindAction, Intent: in, Action: &res}
	if err != nil {
		out.Reason = string(dto.OutcomeInvalidRequest)
		out.Message = s.message("InvalidRequest", nil)
		return out
	}

	switch res.Outcome {
	case dto.OutcomeApplied:
		s.push(entry{
			action: action,
			before: []model.Pallet{*res.Before},
			after:  []model.Pallet{*res.After},
			events: []model.PalletEvent{*res.Event},
		})
		out.Applied = true
		out.Message = s.message("ActionApplied", map[string]any{"Action": action, "PalletID": palletID})
	case dto.OutcomeNotFound:
		out.Reason = string(res.Outcome)
		out.Message = s.message("PalletNotFound", map[string]any{"PalletID": palletID})
	case dto.OutcomeNoCapacity:
		out.Reason = string(res.Outcome)
		out.Message = s.message("NoFreeSlot", nil)
	default:
		out.Reason = string(res.Outcome)
		out.Message = s.message("InvalidRequest", nil)
	}
	return out
}

func (s *Service) applyBulk(ctx context.Context, requestID string, in *model.Intent, action model.Action, ov dto.Overrides) *Result {
	res, err := s.store.ApplyBulkAction(ctx, action, in.Filter, in.MaxTargets, ov)
	out := &Result{RequestID: requestID, Kind: KindBulkAction, Intent: in, Bulk: &res}
	if err != nil {
		out.Reason = string(dto.OutcomeInvalidRequest)
		out.Message = s.message("InvalidRequest", nil)
		return out
	}

	switch res.Outcome {
	case dto.OutcomeApplied:
		s.push(entry{action: action, before: res.Before, after: res.After, events: res.Events})
		out.Applied = true
		out.Message = s.message("BulkApplied", map[string]any{
			"Action":   action,
			"Affected": res.AffectedCount,
			"Matched":  res.Matched,
		})
	case dto.OutcomeNoMatch:
		out.Reason = string(res.Outcome)
		out.Message = s.message("NoMatchingPallets", nil)
	case dto.OutcomeNoCapacity:
		out.Reason = string(res.Outcome)
		out.Message = s.message("NoFreeSlot", nil)
	default:
		out.Reason = string(res.Outcome)
		out.Message = s.message("InvalidRequest", nil)
	}
	return out
}

// push records an executed action. A new action invalidates the redo
// history. Callers hold mu.
func (s *Service) push(e entry) {
	s.undo = append(s.undo, e)
	if len(s.undo) > maxHistory {
		s.undo = s.undo[len(s.undo)-maxHistory:]
	}
	s.redo = nil
}

func (s *Service) Undo(ctx context.Context) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	requestID := uuid.NewString()
	if len(s.undo) == 0 {
		return s.reject(requestID, ReasonNothingToUndo, "NothingToUndo")
	}
	e := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]

	ids := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		ids = append(ids, ev.ID)
	}
	conflicts := s.store.Restore(ctx, e.before, ids)
	s.redo = append(s.redo, e)

	return s.historyResult(requestID, KindUndo, "Undone", e, conflicts)
}

func (s *Service) Redo(ctx context.Context) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	requestID := uuid.NewString()
	if len(s.redo) == 0 {
		return s.reject(requestID, ReasonNothingToRedo, "NothingToRedo")
	}
	e := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]

	conflicts := s.store.Reapply(ctx, e.after, e.events)
	s.undo = append(s.undo, e)

	return s.historyResult(requestID, KindRedo, "Redone", e, conflicts)
}

func (s *Service) historyResult(requestID string, kind Kind, msgID string, e entry, conflicts []string) *Result {
	msg := s.message(msgID, map[string]any{"Action": e.action, "Count": len(e.before)})
	if len(conflicts) > 0 {
		msg += " " + s.message("SlotConflict", map[string]any{"Count": len(conflicts)})
	}
	view := s.store.ViewState()
	return &Result{
		RequestID: requestID,
		Kind:      kind,
		Applied:   true,
		Message:   msg,
		View:      &view,
		Conflicts: conflicts,
	}
}

// Clear resets the view and supersedes any outstanding submission.
func (s *Service) Clear() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	view := s.store.ResetFilter()
	return &Result{
		RequestID: uuid.NewString(),
		Kind:      KindClear,
		Applied:   true,
		View:      &view,
		Message:   s.message("Cleared", nil),
	}
}

func (s *Service) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo) > 0
}

func (s *Service) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

func (s *Service) reject(requestID, reason, msgID string) *Result {
	return &Result{
		RequestID: requestID,
		Kind:      KindRejected,
		Reason:    reason,
		Message:   s.message(msgID, nil),
	}
}

// rejectIntent turns a pipeline error into one user-facing message.
// Upstream and schema failures share a message; details stay in the log.
func (s *Service) rejectIntent(requestID string, err error) *Result {
	reason := intent.ReasonOf(err)
	out := s.reject(requestID, string(reason), messageFor(reason))

	var ie *intent.Error
	if errors.As(err, &ie) {
		out.Rule = ie.Rule
	}
	return out
}

func messageFor(reason intent.Reason) string {
	switch reason {
	case intent.ReasonPayloadTooLarge:
		return "PayloadTooLarge"
	case intent.ReasonPromptMissing:
		return "PromptMissing"
	case intent.ReasonPromptTooLong:
		return "PromptTooLong"
	case intent.ReasonNoContent, intent.ReasonInvalidJSON, intent.ReasonSchemaValidation:
		return "UpstreamFailed"
	case intent.ReasonInvariantViolated:
		return "InvariantViolated"
	}
	return "InternalError"
}
