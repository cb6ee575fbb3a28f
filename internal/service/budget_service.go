package service

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/foyer/internal/budget"
	"github.com/mmynk/foyer/internal/export"
	"github.com/mmynk/foyer/internal/state"
)

// BudgetServiceName is the Connect service of accounts, members and settings.
const BudgetServiceName = "BudgetService"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BudgetService implements the Connect BudgetService.
type BudgetService struct {
	household *Household
}

// NewBudgetService creates a BudgetService backed by the given household.
func NewBudgetService(household *Household) *BudgetService {
	return &BudgetService{household: household}
}

// NewBudgetServiceHandler returns the path prefix and handler serving svc.
func NewBudgetServiceHandler(svc *BudgetService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	return mount(BudgetServiceName,
		unary(BudgetServiceName, "CreateTransaction", svc.CreateTransaction, opts),
		unary(BudgetServiceName, "UpdateTransaction", svc.UpdateTransaction, opts),
		unary(BudgetServiceName, "DeleteTransaction", svc.DeleteTransaction, opts),
		unary(BudgetServiceName, "ListTransactions", svc.ListTransactions, opts),
		unary(BudgetServiceName, "SetAccountNote", svc.SetAccountNote, opts),
		unary(BudgetServiceName, "SetVisibility", svc.SetVisibility, opts),
		unary(BudgetServiceName, "EmptyAccount", svc.EmptyAccount, opts),
		unary(BudgetServiceName, "AddUser", svc.AddUser, opts),
		unary(BudgetServiceName, "DeleteUser", svc.DeleteUser, opts),
		unary(BudgetServiceName, "RenameUser", svc.RenameUser, opts),
		unary(BudgetServiceName, "GetHousehold", svc.GetHousehold, opts),
		unary(BudgetServiceName, "GetSettings", svc.GetSettings, opts),
		unary(BudgetServiceName, "UpdateSettings", svc.UpdateSettings, opts),
		unary(BudgetServiceName, "ExportReport", svc.ExportReport, opts),
	)
}

// CreateTransaction adds a transaction to an account.
func (s *BudgetService) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*CreateTransactionResponse, error) {
	res := &CreateTransactionResponse{}
	res.Result = s.household.do(func(st *state.State) bool {
		tx, ok := st.CreateTransaction(ctx, req.Owner, req.Kind, req.Transaction)
		if ok {
			res.Transaction = &tx
		}
		return ok
	})
	return res, nil
}

// UpdateTransaction applies a partial update to a transaction.
func (s *BudgetService) UpdateTransaction(ctx context.Context, req *UpdateTransactionRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.UpdateTransaction(ctx, req.Owner, req.Kind, req.ID, req.Update)
	})
	return &res, nil
}

// DeleteTransaction removes a transaction.
func (s *BudgetService) DeleteTransaction(ctx context.Context, req *DeleteTransactionRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.DeleteTransaction(ctx, req.Owner, req.Kind, req.ID)
	})
	return &res, nil
}

// ListTransactions returns one ledger of an account in the household sort order.
func (s *BudgetService) ListTransactions(_ context.Context, req *ListTransactionsRequest) (*ListTransactionsResponse, error) {
	list, ok := s.household.State().Transactions(req.Owner, req.Kind)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, budget.ErrNotFound)
	}
	return &ListTransactionsResponse{List: list}, nil
}

// SetAccountNote replaces the note of an account.
func (s *BudgetService) SetAccountNote(ctx context.Context, req *SetAccountNoteRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.SetAccountNote(ctx, req.Owner, req.Note)
	})
	return &res, nil
}

// SetVisibility shows or hides a ledger.
func (s *BudgetService) SetVisibility(ctx context.Context, req *SetVisibilityRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.SetVisibility(ctx, req.Owner, req.Kind, req.Show)
	})
	return &res, nil
}

// EmptyAccount clears an account.
func (s *BudgetService) EmptyAccount(ctx context.Context, req *EmptyAccountRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.EmptyAccount(ctx, req.Owner)
	})
	return &res, nil
}

// AddUser adds a household member.
func (s *BudgetService) AddUser(ctx context.Context, req *AddUserRequest) (*AddUserResponse, error) {
	res := &AddUserResponse{}
	res.Result = s.household.do(func(st *state.State) bool {
		u, ok := st.AddUser(ctx, req.Name)
		if ok {
			res.User = &u
		}
		return ok
	})
	return res, nil
}

// DeleteUser removes a household member.
func (s *BudgetService) DeleteUser(ctx context.Context, req *DeleteUserRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.DeleteUser(ctx, req.ID)
	})
	return &res, nil
}

// RenameUser changes the name of a member.
func (s *BudgetService) RenameUser(ctx context.Context, req *RenameUserRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.RenameUser(ctx, req.ID, req.Name)
	})
	return &res, nil
}

// GetHousehold returns the common account, the members and the settings.
func (s *BudgetService) GetHousehold(_ context.Context, _ *emptypb.Empty) (*HouseholdResponse, error) {
	st := s.household.State()
	return &HouseholdResponse{
		Household:      st.Household(),
		Settings:       st.Settings(),
		UnsavedChanges: st.UnsavedChanges(),
	}, nil
}

// GetSettings returns the household preferences.
func (s *BudgetService) GetSettings(_ context.Context, _ *emptypb.Empty) (*SettingsResponse, error) {
	return &SettingsResponse{Settings: s.household.State().Settings()}, nil
}

// UpdateSettings changes the household preferences.
func (s *BudgetService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*Result, error) {
	res := s.household.do(func(st *state.State) bool {
		return st.UpdateSettings(ctx, req.Update)
	})
	return &res, nil
}

// ExportReport renders the budget as an XLSX workbook.
func (s *BudgetService) ExportReport(_ context.Context, _ *emptypb.Empty) (*FileResponse, error) {
	st := s.household.State()

	var buf bytes.Buffer
	if err := export.Write(&buf, st.Household(), st.Settings()); err != nil {
		slog.Error("ExportReport failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Report exported", "bytes", buf.Len())
	return &FileResponse{
		Filename:    "foyer.xlsx",
		ContentType: xlsxContentType,
		Content:     buf.Bytes(),
	}, nil
}
