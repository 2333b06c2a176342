package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/auth"
	"github.com/fekuna/spaceflow-wms-service/internal/command"
	"github.com/fekuna/spaceflow-wms-service/internal/intent"
	"github.com/fekuna/spaceflow-wms-service/internal/kpi"
	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/dto"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Commander is the command layer as seen by the transport.
type Commander interface {
	Submit(ctx context.Context, prompt string) *command.Result
	Execute(ctx context.Context, in *model.Intent, prompt string) *command.Result
	Undo(ctx context.Context) *command.Result
	Redo(ctx context.Context) *command.Result
	Clear() *command.Result
	CanUndo() bool
	CanRedo() bool
}

type PalletHandler struct {
	commands Commander
	uc       pallet.UseCase
	grid     *location.Grid
	logger   logger.ZapLogger
}

func NewPalletHandler(commands Commander, uc pallet.UseCase, grid *location.Grid, log logger.ZapLogger) *PalletHandler {
	return &PalletHandler{
		commands: commands,
		uc:       uc,
		grid:     grid,
		logger:   log,
	}
}

func (h *PalletHandler) SubmitCommand(ctx context.Context, req *SubmitCommandRequest) (*CommandResponse, error) {
	h.logger.Info("Operator command",
		zap.String("operator_id", auth.GetOperatorID(ctx)),
		zap.Int("prompt_bytes", len(req.Prompt)),
	)
	return h.respond(ctx, h.commands.Submit(ctx, req.Prompt))
}

func (h *PalletHandler) ExecuteIntent(ctx context.Context, req *ExecuteIntentRequest) (*CommandResponse, error) {
	in, err := intent.Decode(req.Intent)
	if err != nil {
		setReason(ctx, string(intent.ReasonOf(err)))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return h.respond(ctx, h.commands.Execute(ctx, in, req.Prompt))
}

func (h *PalletHandler) Undo(ctx context.Context, _ *Empty) (*CommandResponse, error) {
	return h.respond(ctx, h.commands.Undo(ctx))
}

func (h *PalletHandler) Redo(ctx context.Context, _ *Empty) (*CommandResponse, error) {
	return h.respond(ctx, h.commands.Redo(ctx))
}

func (h *PalletHandler) Clear(ctx context.Context, _ *Empty) (*CommandResponse, error) {
	return h.respond(ctx, h.commands.Clear())
}

// ApplyFilter goes through the same decoding and validation as a
// translated filter. Omitted status and urgency mean "all".
func (h *PalletHandler) ApplyFilter(ctx context.Context, req *ApplyFilterRequest) (*CommandResponse, error) {
	f := req.Filter
	if f.Status == "" {
		f.Status = model.FilterAll
	}
	if f.UrgencyLevel == "" {
		f.UrgencyLevel = model.FilterAll
	}
	raw, err := json.Marshal(model.Intent{
		IntentType: model.IntentFilter,
		Filter:     f,
		MaxTargets: model.DefaultMaxTargets,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	in, err := intent.Decode(raw)
	if err != nil {
		setReason(ctx, string(intent.ReasonOf(err)))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return h.respond(ctx, h.commands.Execute(ctx, in, ""))
}

func (h *PalletHandler) ResetFilter(ctx context.Context, _ *Empty) (*ViewState, error) {
	vs := toViewState(h.uc.ResetFilter())
	return &vs, nil
}

func (h *PalletHandler) SetFocus(ctx context.Context, req *SetFocusRequest) (*ViewState, error) {
	for _, id := range []*string{req.HoveredPalletID, req.SelectedPalletID} {
		if id == nil {
			continue
		}
		if _, ok := h.uc.GetPallet(*id); !ok {
			return nil, status.Errorf(codes.NotFound, "pallet %s not found", *id)
		}
	}
	h.uc.SetHovered(req.HoveredPalletID)
	h.uc.SetSelected(req.SelectedPalletID)
	vs := toViewState(h.uc.ViewState())
	return &vs, nil
}

func (h *PalletHandler) ListPallets(ctx context.Context, req *ListPalletsRequest) (*ListPalletsResponse, error) {
	pallets := h.uc.FilteredPallets()
	if req.All {
		pallets = h.uc.Pallets()
	}

	views := make([]PalletView, len(pallets))
	for i, p := range pallets {
		views[i] = h.palletView(p)
	}
	return &ListPalletsResponse{
		Pallets: views,
		View:    toViewState(h.uc.ViewState()),
	}, nil
}

func (h *PalletHandler) GetPallet(ctx context.Context, req *GetPalletRequest) (*GetPalletResponse, error) {
	p, ok := h.uc.GetPallet(req.ID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "pallet %s not found", req.ID)
	}
	return &GetPalletResponse{
		Pallet: h.palletView(p),
		Events: h.uc.EventsForPallet(p.ID),
	}, nil
}

func (h *PalletHandler) ListPalletEvents(ctx context.Context, req *ListEventsRequest) (*ListEventsResponse, error) {
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}
	events := h.uc.Events(&dto.EventFilters{
		PalletID: req.PalletID,
		Type:     model.EventType(req.Type),
		Since:    req.Since,
		Limit:    req.Limit,
	})
	return &ListEventsResponse{Events: events}, nil
}

func (h *PalletHandler) GetKPIs(ctx context.Context, _ *Empty) (*kpi.Summary, error) {
	s := h.uc.KPIs()
	return &s, nil
}

// SetSimulation changes the tick period and then starts or stops the
// driver. The driver outlives the request, so it is started on a context
// that is not cancelled with it.
func (h *PalletHandler) SetSimulation(ctx context.Context, req *SetSimulationRequest) (*SimulationState, error) {
	if req.PeriodMs < 0 {
		return nil, status.Error(codes.InvalidArgument, "periodMs must be positive")
	}
	if req.PeriodMs > 0 {
		if err := h.uc.SetSimulationPeriod(time.Duration(req.PeriodMs) * time.Millisecond); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}
	if req.Running != nil {
		if *req.Running {
			h.uc.StartSimulation(context.WithoutCancel(ctx))
		} else {
			h.uc.StopSimulation()
		}
		h.logger.Info("Simulation toggled",
			zap.String("operator_id", auth.GetOperatorID(ctx)),
			zap.Bool("running", *req.Running),
		)
	}
	return &SimulationState{Running: h.uc.SimulationRunning()}, nil
}

func (h *PalletHandler) palletView(p model.Pallet) PalletView {
	return PalletView{Pallet: p, Position: h.grid.Position(p.LogicalAddress)}
}

// respond turns a command result into a response. Engine outcomes such as
// a missing pallet come back as an unapplied response; rejections become a
// status error carrying the localized message.
func (h *PalletHandler) respond(ctx context.Context, res *command.Result) (*CommandResponse, error) {
	if !res.Applied {
		setReason(ctx, res.Reason)
		h.logger.Debug("Command not applied",
			zap.String("request_id", res.RequestID),
			zap.String("reason", res.Reason),
			zap.String("rule", res.Rule),
		)
		if !isOutcome(res.Reason) {
			return nil, status.Error(codeFor(res.Reason), res.Message)
		}
	}

	out := &CommandResponse{
		RequestID: res.RequestID,
		Kind:      string(res.Kind),
		Applied:   res.Applied,
		Reason:    res.Reason,
		Message:   res.Message,
		Intent:    res.Intent,
		Conflicts: res.Conflicts,
		CanUndo:   h.commands.CanUndo(),
		CanRedo:   h.commands.CanRedo(),
	}
	if res.View != nil {
		vs := toViewState(*res.View)
		out.View = &vs
	}
	if a := res.Action; a != nil {
		out.PalletID = a.PalletID
		if a.Applied {
			out.AffectedCount = 1
		}
		if a.Event != nil {
			out.Events = []model.PalletEvent{*a.Event}
		}
	}
	if b := res.Bulk; b != nil {
		out.AffectedCount = b.AffectedCount
		out.Skipped = b.Skipped
		out.Events = b.Events
	}
	return out, nil
}

// isOutcome reports reasons that are a valid result rather than a failure.
func isOutcome(reason string) bool {
	switch dto.Outcome(reason) {
	case dto.OutcomeNotFound, dto.OutcomeNoMatch, dto.OutcomeNoCapacity:
		return true
	}
	return false
}

func codeFor(reason string) codes.Code {
	switch reason {
	case string(intent.ReasonPayloadTooLarge):
		return codes.ResourceExhausted
	case string(intent.ReasonPromptMissing), string(intent.ReasonPromptTooLong),
		string(intent.ReasonInvariantViolated), string(dto.OutcomeInvalidRequest):
		return codes.InvalidArgument
	case command.ReasonInFlight, command.ReasonStale:
		return codes.Aborted
	case command.ReasonNothingToUndo, command.ReasonNothingToRedo:
		return codes.FailedPrecondition
	}
	return codes.Internal
}

// setReason exposes the machine-readable reason as trailer metadata. It is
// a no-op outside a server transport.
func setReason(ctx context.Context, reason string) {
	_ = grpc.SetTrailer(ctx, metadata.Pairs(ReasonTrailer, reason))
}

const ReasonTrailer = "x-reason"
