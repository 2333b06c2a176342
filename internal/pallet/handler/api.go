package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/kpi"
	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"github.com/fekuna/spaceflow-wms-service/internal/model"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet/dto"
	"google.golang.org/grpc"
)

const ServiceName = "spaceflow.wms.v1.PalletService"

type Empty struct{}

type SubmitCommandRequest struct {
	Prompt string `json:"prompt"`
}

// ExecuteIntentRequest carries a structured intent, for callers that did
// their own translation. The intent is decoded with the same rules as
// translator output.
type ExecuteIntentRequest struct {
	Intent json.RawMessage `json:"intent"`
	Prompt string          `json:"prompt,omitempty"`
}

type CommandResponse struct {
	RequestID     string              `json:"requestId"`
	Kind          string              `json:"kind"`
	Applied       bool                `json:"applied"`
	Reason        string              `json:"reason,omitempty"`
	Message       string              `json:"message"`
	Intent        *model.Intent       `json:"intent,omitempty"`
	View          *ViewState          `json:"view,omitempty"`
	PalletID      string              `json:"palletId,omitempty"`
	AffectedCount int                 `json:"affectedCount"`
	Skipped       []string            `json:"skipped,omitempty"`
	Events        []model.PalletEvent `json:"events,omitempty"`
	Conflicts     []string            `json:"conflicts,omitempty"`
	CanUndo       bool                `json:"canUndo"`
	CanRedo       bool                `json:"canRedo"`
}

type ViewState struct {
	ActiveFilter     *model.Filter `json:"activeFilter"`
	HighlightColor   *string       `json:"highlightColor"`
	HoveredPalletID  *string       `json:"hoveredPalletId"`
	SelectedPalletID *string       `json:"selectedPalletId"`
	FilterRevision   uint64        `json:"filterRevision"`
	Total            int           `json:"total"`
	Visible          int           `json:"visible"`
}

type ListPalletsRequest struct {
	// All lists every pallet instead of the filtered view.
	All bool `json:"all"`
}

type PalletView struct {
	model.Pallet
	Position location.Vec3 `json:"position"`
}

type ListPalletsResponse struct {
	Pallets []PalletView `json:"pallets"`
	View    ViewState    `json:"view"`
}

type GetPalletRequest struct {
	ID string `json:"id"`
}

type GetPalletResponse struct {
	Pallet PalletView          `json:"pallet"`
	Events []model.PalletEvent `json:"events"`
}

type ListEventsRequest struct {
	PalletID string     `json:"palletId,omitempty"`
	Type     string     `json:"type,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Limit    int        `json:"limit,omitempty"`
}

type ListEventsResponse struct {
	Events []model.PalletEvent `json:"events"`
}

type ApplyFilterRequest struct {
	Filter model.Filter `json:"filter"`
}

type SetFocusRequest struct {
	HoveredPalletID  *string `json:"hoveredPalletId"`
	SelectedPalletID *string `json:"selectedPalletId"`
}

type SetSimulationRequest struct {
	Running  *bool `json:"running,omitempty"`
	PeriodMs int64 `json:"periodMs,omitempty"`
}

type SimulationState struct {
	Running bool `json:"running"`
}

type PalletServiceServer interface {
	SubmitCommand(context.Context, *SubmitCommandRequest) (*CommandResponse, error)
	ExecuteIntent(context.Context, *ExecuteIntentRequest) (*CommandResponse, error)
	Undo(context.Context, *Empty) (*CommandResponse, error)
	Redo(context.Context, *Empty) (*CommandResponse, error)
	Clear(context.Context, *Empty) (*CommandResponse, error)
	ListPallets(context.Context, *ListPalletsRequest) (*ListPalletsResponse, error)
	GetPallet(context.Context, *GetPalletRequest) (*GetPalletResponse, error)
	ListPalletEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
	ApplyFilter(context.Context, *ApplyFilterRequest) (*CommandResponse, error)
	ResetFilter(context.Context, *Empty) (*ViewState, error)
	SetFocus(context.Context, *SetFocusRequest) (*ViewState, error)
	GetKPIs(context.Context, *Empty) (*kpi.Summary, error)
	SetSimulation(context.Context, *SetSimulationRequest) (*SimulationState, error)
}

func RegisterPalletServiceServer(s grpc.ServiceRegistrar, srv PalletServiceServer) {
	s.RegisterService(&PalletServiceDesc, srv)
}

var PalletServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PalletServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SubmitCommand", PalletServiceServer.SubmitCommand),
		unary("ExecuteIntent", PalletServiceServer.ExecuteIntent),
		unary("Undo", PalletServiceServer.Undo),
		unary("Redo", PalletServiceServer.Redo),
		unary("Clear", PalletServiceServer.Clear),
		unary("ListPallets", PalletServiceServer.ListPallets),
		unary("GetPallet", PalletServiceServer.GetPallet),
		unary("ListPalletEvents", PalletServiceServer.ListPalletEvents),
		unary("ApplyFilter", PalletServiceServer.ApplyFilter),
		unary("ResetFilter", PalletServiceServer.ResetFilter),
		unary("SetFocus", PalletServiceServer.SetFocus),
		unary("GetKPIs", PalletServiceServer.GetKPIs),
		unary("SetSimulation", PalletServiceServer.SetSimulation),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "spaceflow/wms/v1/pallet_service",
}

// unary builds the method descriptor that generated stubs would contain.
func unary[Req, Resp any](name string, call func(PalletServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PalletServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PalletServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func toViewState(v dto.ViewState) ViewState {
	return ViewState{
		ActiveFilter:     v.ActiveFilter,
		HighlightColor:   v.HighlightColor,
		HoveredPalletID:  v.HoveredPalletID,
		SelectedPalletID: v.SelectedPalletID,
		FilterRevision:   v.FilterRevision,
		Total:            v.Total,
		Visible:          v.Visible,
	}
}
