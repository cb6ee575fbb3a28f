package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/foyer/internal/project"
	"github.com/mmynk/foyer/internal/state"
)

// ProjectServiceName is the Connect service of projects, their expenses and payments.
const ProjectServiceName = "ProjectService"

// ProjectService implements the Connect ProjectService.
type ProjectService struct {
	household *Household
}

// NewProjectService creates a ProjectService backed by the given household.
func NewProjectService(household *Household) *ProjectService {
	return &ProjectService{household: household}
}

// NewProjectServiceHandler returns the path prefix and handler serving svc.
func NewProjectServiceHandler(svc *ProjectService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	return mount(ProjectServiceName,
		unary(ProjectServiceName, "CreateProject", svc.CreateProject, opts),
		unary(ProjectServiceName, "DeleteProject", svc.DeleteProject, opts),
		unary(ProjectServiceName, "RenameProject", svc.RenameProject, opts),
		unary(ProjectServiceName, "SetProjectNote", svc.SetProjectNote, opts),
		unary(ProjectServiceName, "ListProjects", svc.ListProjects, opts),
		unary(ProjectServiceName, "GetProject", svc.GetProject, opts),
		unary(ProjectServiceName, "CurrentProject", svc.CurrentProject, opts),
		unary(ProjectServiceName, "SetCurrentProject", svc.SetCurrentProject, opts),
		unary(ProjectServiceName, "CreateExpense", svc.CreateExpense, opts),
		unary(ProjectServiceName, "UpdateExpense", svc.UpdateExpense, opts),
		unary(ProjectServiceName, "DeleteExpense", svc.DeleteExpense, opts),
		unary(ProjectServiceName, "ListExpenses", svc.ListExpenses, opts),
		unary(ProjectServiceName, "CreatePayment", svc.CreatePayment, opts),
		unary(ProjectServiceName, "UpdatePayment", svc.UpdatePayment, opts),
		unary(ProjectServiceName, "DeletePayment", svc.DeletePayment, opts),
		unary(ProjectServiceName, "ListPayments", svc.ListPayments, opts),
		unary(ProjectServiceName, "FreezeProject", svc.FreezeProject, opts),
		unary(ProjectServiceName, "GetSettlement", svc.GetSettlement, opts),
	)
}

// CreateProject adds a project and makes it current.
func (s *ProjectService) CreateProject(ctx context.Context, req *CreateProjectRequest) (*ProjectResponse, error) {
	res := &ProjectResponse{}
	res.Result = s.household.do(func(st *state.State) bool {
		p, ok := st.CreateProject(ctx, req.Name)
		if ok {
			res.Project = &p
		}
		return ok
	})
	return res, nil
}

// DeleteProject removes a project.
func (s *ProjectService) DeleteProject(ctx context.Context, req *ProjectRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.DeleteProject(ctx, req.ProjectID)
	})
	return &res, nil
}

// RenameProject changes the name of a project.
func (s *ProjectService) RenameProject(ctx context.Context, req *RenameProjectRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.RenameProject(ctx, req.ProjectID, req.Name)
	})
	return &res, nil
}

// SetProjectNote replaces the note of a project.
func (s *ProjectService) SetProjectNote(ctx context.Context, req *SetProjectNoteRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.SetProjectNote(ctx, req.ProjectID, req.Note)
	})
	return &res, nil
}

// ListProjects returns every project, most recently updated first.
func (s *ProjectService) ListProjects(_ context.Context, _ *emptypb.Empty) (*ListProjectsResponse, error) {
	st := s.household.State()
	return &ListProjectsResponse{Projects: st.Projects(), CurrentID: st.CurrentProjectID()}, nil
}

// GetProject returns one project.
func (s *ProjectService) GetProject(_ context.Context, req *ProjectRequest) (*ProjectResponse, error) {
	p, ok := s.household.State().Project(req.ProjectID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, project.ErrNotFound)
	}
	return &ProjectResponse{Result: Result{OK: true}, Project: &p}, nil
}

// CurrentProject returns the project being worked on, creating one when needed.
func (s *ProjectService) CurrentProject(ctx context.Context, _ *emptypb.Empty) (*ProjectResponse, error) {
	res := &ProjectResponse{}
	res.Result = s.household.do(func(st *state.State) bool {
		p := st.CurrentProject(ctx)
		res.Project = &p
		return true
	})
	return res, nil
}

// SetCurrentProject selects the project being worked on.
func (s *ProjectService) SetCurrentProject(_ context.Context, req *ProjectRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.SetCurrentProject(req.ProjectID)
	})
	return &res, nil
}

// CreateExpense adds an expense to a project.
func (s *ProjectService) CreateExpense(ctx context.Context, req *CreateExpenseRequest) (*ExpenseResponse, error) {
	res := &ExpenseResponse{}
	res.Result = s.household.do(func(st *state.State) bool {
		e, ok := st.CreateExpense(ctx, req.ProjectID, req.Expense)
		if ok {
			res.Expense = &e
		}
		return ok
	})
	return res, nil
}

// UpdateExpense applies a partial update to an expense.
func (s *ProjectService) UpdateExpense(ctx context.Context, req *UpdateExpenseRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.UpdateExpense(ctx, req.ProjectID, req.ID, req.Update)
	})
	return &res, nil
}

// DeleteExpense removes an expense.
func (s *ProjectService) DeleteExpense(ctx context.Context, req *ItemRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.DeleteExpense(ctx, req.ProjectID, req.ID)
	})
	return &res, nil
}

// ListExpenses returns the expenses of a project in the household sort order.
func (s *ProjectService) ListExpenses(_ context.Context, req *ProjectRequest) (*ExpensesResponse, error) {
	list, ok := s.household.State().Expenses(req.ProjectID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, project.ErrNotFound)
	}
	return &ExpensesResponse{List: list}, nil
}

// CreatePayment records a payment.
func (s *ProjectService) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentResponse, error) {
	res := &PaymentResponse{}
	res.Result = s.household.do(func(st *state.State) bool {
		p, ok := st.CreatePayment(ctx, req.ProjectID, req.Payment)
		if ok {
			res.Payment = &p
		}
		return ok
	})
	return res, nil
}

// UpdatePayment applies a partial update to a payment.
func (s *ProjectService) UpdatePayment(ctx context.Context, req *UpdatePaymentRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.UpdatePayment(ctx, req.ProjectID, req.ID, req.Update)
	})
	return &res, nil
}

// DeletePayment removes a payment.
func (s *ProjectService) DeletePayment(ctx context.Context, req *ItemRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.DeletePayment(ctx, req.ProjectID, req.ID)
	})
	return &res, nil
}

// ListPayments returns the payments of a project grouped by resident.
func (s *ProjectService) ListPayments(_ context.Context, req *ProjectRequest) (*PaymentsResponse, error) {
	groups, ok := s.household.State().Payments(req.ProjectID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, project.ErrNotFound)
	}
	return &PaymentsResponse{Groups: groups}, nil
}

// FreezeProject records the current members and ratios as the settlement baseline.
func (s *ProjectService) FreezeProject(ctx context.Context, req *ProjectRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.FreezeProject(ctx, req.ProjectID)
	})
	return &res, nil
}

// GetSettlement computes who owes what on a frozen project.
func (s *ProjectService) GetSettlement(_ context.Context, req *ProjectRequest) (*SettlementResponse, error) {
	res := &SettlementResponse{}
	res.Result = s.household.do(func(st *state.State) bool {
		settlement, ok := st.Settlement(req.ProjectID)
		if ok {
			res.Settlement = &settlement
		}
		return ok
	})
	return res, nil
}
