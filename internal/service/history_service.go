package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/foyer/internal/history"
	"github.com/mmynk/foyer/internal/state"
)

// HistoryServiceName is the Connect service of budget samples.
const HistoryServiceName = "HistoryService"

// HistoryService implements the Connect HistoryService.
type HistoryService struct {
	household *Household
}

// NewHistoryService creates a HistoryService backed by the given household.
func NewHistoryService(household *Household) *HistoryService {
	return &HistoryService{household: household}
}

// NewHistoryServiceHandler returns the path prefix and handler serving svc.
func NewHistoryServiceHandler(svc *HistoryService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	return mount(HistoryServiceName,
		unary(HistoryServiceName, "CreateSample", svc.CreateSample, opts),
		unary(HistoryServiceName, "DeleteSample", svc.DeleteSample, opts),
		unary(HistoryServiceName, "UpdateSample", svc.UpdateSample, opts),
		unary(HistoryServiceName, "GetSample", svc.GetSample, opts),
		unary(HistoryServiceName, "ListSamples", svc.ListSamples, opts),
		unary(HistoryServiceName, "SetActiveSample", svc.SetActiveSample, opts),
		unary(HistoryServiceName, "RestoreSample", svc.RestoreSample, opts),
	)
}

// CreateSample records the current budget in the history.
func (s *HistoryService) CreateSample(ctx context.Context, _ *emptypb.Empty) (*SampleResponse, error) {
	res := &SampleResponse{}
	res.Result = s.household.do(func(st *state.State) bool {
		sample, ok := st.CreateSample(ctx)
		if ok {
			res.Sample = &sample
		}
		return ok
	})
	return res, nil
}

// DeleteSample removes a sample.
func (s *HistoryService) DeleteSample(ctx context.Context, req *SampleRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.DeleteSample(ctx, req.Date)
	})
	return &res, nil
}

// UpdateSample changes the note of a sample.
func (s *HistoryService) UpdateSample(ctx context.Context, req *UpdateSampleRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.UpdateSample(ctx, req.Date, req.Update)
	})
	return &res, nil
}

// GetSample returns a sample, the most recent one when no date is given.
func (s *HistoryService) GetSample(_ context.Context, req *SampleRequest) (*SampleResponse, error) {
	sample, ok := s.household.State().Sample(req.Date)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, history.ErrSampleNotFound)
	}
	return &SampleResponse{Result: Result{OK: true}, Sample: &sample}, nil
}

// ListSamples returns the history, most recent first, and the active date.
func (s *HistoryService) ListSamples(_ context.Context, _ *emptypb.Empty) (*ListSamplesResponse, error) {
	st := s.household.State()
	return &ListSamplesResponse{Samples: st.Samples(), ActiveDate: st.ActiveDate()}, nil
}

// SetActiveSample selects the sample being looked at.
func (s *HistoryService) SetActiveSample(_ context.Context, req *SampleRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.SetActiveSample(req.Date)
	})
	return &res, nil
}

// RestoreSample replaces the budget with the content of a sample.
func (s *HistoryService) RestoreSample(ctx context.Context, req *SampleRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.RestoreSample(ctx, req.Date)
	})
	return &res, nil
}
