package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/foyer/internal/auth"
	"github.com/mmynk/foyer/internal/middleware"
	"github.com/mmynk/foyer/internal/models"
	"github.com/mmynk/foyer/internal/notify"
	"github.com/mmynk/foyer/internal/state"
	"github.com/mmynk/foyer/internal/storage/memory"
)

// setupTestServer serves every service over a fresh in-memory household.
func setupTestServer(t *testing.T, opts ...connect.HandlerOption) string {
	t.Helper()

	recorder := &notify.Recorder{}
	st := state.New(state.Options{
		Store:    memory.New(0),
		Notifier: recorder,
	})
	household := NewHousehold(st, recorder)

	mux := http.NewServeMux()
	mux.Handle(NewBudgetServiceHandler(NewBudgetService(household), opts...))
	mux.Handle(NewProjectServiceHandler(NewProjectService(household), opts...))
	mux.Handle(NewHistoryServiceHandler(NewHistoryService(household), opts...))
	mux.Handle(NewBackupServiceHandler(NewBackupService(household), opts...))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL
}

func call[Req, Res any](t *testing.T, baseURL, service, method string, req *Req) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](http.DefaultClient, baseURL+Procedure(service, method), ClientOptions()...)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func mustCall[Req, Res any](t *testing.T, baseURL, service, method string, req *Req) *Res {
	t.Helper()
	res, err := call[Req, Res](t, baseURL, service, method, req)
	if err != nil {
		t.Fatalf("%s/%s failed: %v", service, method, err)
	}
	return res
}

func codeOf(err error) connect.Code {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code()
	}
	return connect.CodeUnknown
}

func TestBudgetService(t *testing.T) {
	url := setupTestServer(t)

	alice := mustCall[AddUserRequest, AddUserResponse](t, url, BudgetServiceName, "AddUser", &AddUserRequest{Name: "Alice"})
	bob := mustCall[AddUserRequest, AddUserResponse](t, url, BudgetServiceName, "AddUser", &AddUserRequest{Name: "Bob"})
	if !alice.OK || alice.User == nil || bob.User == nil {
		t.Fatalf("AddUser responses = %+v, %+v", alice, bob)
	}

	steps := []struct {
		owner string
		kind  models.Kind
		value string
	}{
		{owner: alice.User.ID, kind: models.Incomes, value: "1000"},
		{owner: alice.User.ID, kind: models.Expenses, value: "200"},
		{owner: bob.User.ID, kind: models.Incomes, value: "500"},
		{owner: bob.User.ID, kind: models.Expenses, value: "300"},
		{owner: "", kind: models.Expenses, value: "900"},
	}
	for _, s := range steps {
		res := mustCall[CreateTransactionRequest, CreateTransactionResponse](t, url, BudgetServiceName, "CreateTransaction", &CreateTransactionRequest{
			Owner:       s.owner,
			Kind:        s.kind,
			Transaction: models.TransactionDraft{Name: "Line", Value: s.value},
		})
		if !res.OK || res.Transaction == nil {
			t.Fatalf("CreateTransaction(%s) = %+v", s.value, res)
		}
	}

	t.Run("blank name", func(t *testing.T) {
		res := mustCall[CreateTransactionRequest, CreateTransactionResponse](t, url, BudgetServiceName, "CreateTransaction", &CreateTransactionRequest{
			Kind:        models.Incomes,
			Transaction: models.TransactionDraft{Name: "  ", Value: "10"},
		})
		if res.OK {
			t.Fatal("OK = true, want false")
		}
		if len(res.Notifications) != 1 || res.Notifications[0].Level != notify.LevelError {
			t.Errorf("Notifications = %+v, want one error", res.Notifications)
		}
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := call[ListTransactionsRequest, ListTransactionsResponse](t, url, BudgetServiceName, "ListTransactions", &ListTransactionsRequest{
			Owner: "nobody",
			Kind:  models.Incomes,
		})
		if codeOf(err) != connect.CodeNotFound {
			t.Errorf("error = %v, want NotFound", err)
		}
	})

	t.Run("household", func(t *testing.T) {
		res := mustCall[emptypb.Empty, HouseholdResponse](t, url, BudgetServiceName, "GetHousehold", &emptypb.Empty{})
		if len(res.Household.Users) != 2 {
			t.Fatalf("Users = %d, want 2", len(res.Household.Users))
		}
		ratios := map[string]float64{}
		for _, u := range res.Household.Users {
			ratios[u.Name] = u.Ratio
		}
		if ratios["Alice"] != 0.8 || ratios["Bob"] != 0.2 {
			t.Errorf("ratios = %v, want Alice 0.8, Bob 0.2", ratios)
		}
		if res.Household.Account.Expenses.Sum != 900 {
			t.Errorf("common expenses = %v, want 900", res.Household.Account.Expenses.Sum)
		}
		if res.UnsavedChanges == 0 {
			t.Error("UnsavedChanges = 0, want pending writes")
		}
	})

	t.Run("settings", func(t *testing.T) {
		currency := "CHF"
		res := mustCall[UpdateSettingsRequest, Result](t, url, BudgetServiceName, "UpdateSettings", &UpdateSettingsRequest{
			Update: models.SettingsUpdate{Currency: &currency},
		})
		if !res.OK || len(res.Notifications) != 1 || res.Notifications[0].Level != notify.LevelSuccess {
			t.Errorf("UpdateSettings = %+v", res)
		}
		got := mustCall[emptypb.Empty, SettingsResponse](t, url, BudgetServiceName, "GetSettings", &emptypb.Empty{})
		if got.Settings.Currency != "CHF" {
			t.Errorf("Currency = %q, want CHF", got.Settings.Currency)
		}
	})

	t.Run("report", func(t *testing.T) {
		res := mustCall[emptypb.Empty, FileResponse](t, url, BudgetServiceName, "ExportReport", &emptypb.Empty{})
		if !bytes.HasPrefix(res.Content, []byte("PK")) {
			t.Errorf("report is not a zip archive")
		}
		if !strings.HasSuffix(res.Filename, ".xlsx") {
			t.Errorf("Filename = %q", res.Filename)
		}
	})
}

func TestProjectService(t *testing.T) {
	url := setupTestServer(t)

	for _, name := range []string{"Alice", "Bob"} {
		mustCall[AddUserRequest, AddUserResponse](t, url, BudgetServiceName, "AddUser", &AddUserRequest{Name: name})
	}

	created := mustCall[CreateProjectRequest, ProjectResponse](t, url, ProjectServiceName, "CreateProject", &CreateProjectRequest{Name: "Bathroom"})
	if !created.OK || created.Project == nil {
		t.Fatalf("CreateProject = %+v", created)
	}
	id := created.Project.ID

	expense := mustCall[CreateExpenseRequest, ExpenseResponse](t, url, ProjectServiceName, "CreateExpense", &CreateExpenseRequest{
		ProjectID: id,
		Expense:   models.ExpenseDraft{Name: "Tiles", Price: 40, Quantity: 10},
	})
	if !expense.OK {
		t.Fatalf("CreateExpense = %+v", expense)
	}
	payment := mustCall[CreatePaymentRequest, PaymentResponse](t, url, ProjectServiceName, "CreatePayment", &CreatePaymentRequest{
		ProjectID: id,
		Payment:   models.PaymentDraft{Resident: "Alice", Value: 400},
	})
	if !payment.OK || payment.Payment.Date.IsZero() {
		t.Fatalf("CreatePayment = %+v", payment)
	}

	notFrozen := mustCall[ProjectRequest, SettlementResponse](t, url, ProjectServiceName, "GetSettlement", &ProjectRequest{ProjectID: id})
	if notFrozen.OK || len(notFrozen.Notifications) != 1 {
		t.Errorf("GetSettlement before freeze = %+v", notFrozen)
	}

	mustCall[ProjectRequest, Result](t, url, ProjectServiceName, "FreezeProject", &ProjectRequest{ProjectID: id})
	settled := mustCall[ProjectRequest, SettlementResponse](t, url, ProjectServiceName, "GetSettlement", &ProjectRequest{ProjectID: id})
	if !settled.OK || settled.Settlement == nil {
		t.Fatalf("GetSettlement = %+v", settled)
	}
	if len(settled.Settlement.Debts) != 1 || settled.Settlement.Debts[0].Amount != 200 {
		t.Errorf("Debts = %+v, want Bob owes Alice 200", settled.Settlement.Debts)
	}

	list := mustCall[emptypb.Empty, ListProjectsResponse](t, url, ProjectServiceName, "ListProjects", &emptypb.Empty{})
	if len(list.Projects) != 1 || list.CurrentID != id {
		t.Errorf("ListProjects = %+v", list)
	}

	expenses := mustCall[ProjectRequest, ExpensesResponse](t, url, ProjectServiceName, "ListExpenses", &ProjectRequest{ProjectID: id})
	if expenses.List.Sum != 400 {
		t.Errorf("expenses sum = %v, want 400", expenses.List.Sum)
	}

	if _, err := call[ProjectRequest, ProjectResponse](t, url, ProjectServiceName, "GetProject", &ProjectRequest{ProjectID: "missing"}); codeOf(err) != connect.CodeNotFound {
		t.Errorf("GetProject(missing) error = %v, want NotFound", err)
	}

	deleted := mustCall[ItemRequest, Result](t, url, ProjectServiceName, "DeletePayment", &ItemRequest{ProjectID: id, ID: payment.Payment.ID})
	if !deleted.OK {
		t.Errorf("DeletePayment = %+v", deleted)
	}
	payments := mustCall[ProjectRequest, PaymentsResponse](t, url, ProjectServiceName, "ListPayments", &ProjectRequest{ProjectID: id})
	if len(payments.Groups) != 0 {
		t.Errorf("payments = %+v, want none", payments.Groups)
	}
}

func TestHistoryService(t *testing.T) {
	url := setupTestServer(t)

	mustCall[CreateTransactionRequest, CreateTransactionResponse](t, url, BudgetServiceName, "CreateTransaction", &CreateTransactionRequest{
		Kind:        models.Incomes,
		Transaction: models.TransactionDraft{Name: "Salary", Value: "3000"},
	})
	created := mustCall[emptypb.Empty, SampleResponse](t, url, HistoryServiceName, "CreateSample", &emptypb.Empty{})
	if !created.OK || created.Sample == nil {
		t.Fatalf("CreateSample = %+v", created)
	}

	head := mustCall[SampleRequest, SampleResponse](t, url, HistoryServiceName, "GetSample", &SampleRequest{})
	if head.Sample.Date != created.Sample.Date {
		t.Errorf("GetSample(\"\") = %s, want %s", head.Sample.Date, created.Sample.Date)
	}

	mustCall[EmptyAccountRequest, Result](t, url, BudgetServiceName, "EmptyAccount", &EmptyAccountRequest{})
	restored := mustCall[SampleRequest, Result](t, url, HistoryServiceName, "RestoreSample", &SampleRequest{Date: created.Sample.Date})
	if !restored.OK {
		t.Fatalf("RestoreSample = %+v", restored)
	}
	incomes := mustCall[ListTransactionsRequest, ListTransactionsResponse](t, url, BudgetServiceName, "ListTransactions", &ListTransactionsRequest{Kind: models.Incomes})
	if incomes.List.Sum != 3000 {
		t.Errorf("incomes after restore = %v, want 3000", incomes.List.Sum)
	}

	if _, err := call[SampleRequest, SampleResponse](t, url, HistoryServiceName, "GetSample", &SampleRequest{Date: "1999-01-01T00:00:00.000Z"}); codeOf(err) != connect.CodeNotFound {
		t.Errorf("GetSample(unknown) error = %v, want NotFound", err)
	}

	mustCall[SampleRequest, Result](t, url, HistoryServiceName, "DeleteSample", &SampleRequest{Date: created.Sample.Date})
	list := mustCall[emptypb.Empty, ListSamplesResponse](t, url, HistoryServiceName, "ListSamples", &emptypb.Empty{})
	if len(list.Samples) != 0 || list.ActiveDate != "" {
		t.Errorf("ListSamples = %+v, want an empty history", list)
	}
}

func TestBackupService(t *testing.T) {
	url := setupTestServer(t)

	mustCall[AddUserRequest, AddUserResponse](t, url, BudgetServiceName, "AddUser", &AddUserRequest{Name: "Alice"})
	backup := mustCall[emptypb.Empty, FileResponse](t, url, BackupServiceName, "Export", &emptypb.Empty{})
	if backup.ContentType != "application/json" || len(backup.Content) == 0 {
		t.Fatalf("Export = %+v", backup)
	}

	reset := mustCall[emptypb.Empty, Result](t, url, BackupServiceName, "Reset", &emptypb.Empty{})
	if !reset.OK {
		t.Fatalf("Reset = %+v", reset)
	}
	empty := mustCall[emptypb.Empty, HouseholdResponse](t, url, BudgetServiceName, "GetHousehold", &emptypb.Empty{})
	if len(empty.Household.Users) != 0 {
		t.Fatalf("Users after reset = %d", len(empty.Household.Users))
	}

	imported := mustCall[ImportRequest, Result](t, url, BackupServiceName, "Import", &ImportRequest{Content: backup.Content})
	if !imported.OK || len(imported.Notifications) != 1 || imported.Notifications[0].Level != notify.LevelSuccess {
		t.Fatalf("Import = %+v", imported)
	}
	restored := mustCall[emptypb.Empty, HouseholdResponse](t, url, BudgetServiceName, "GetHousehold", &emptypb.Empty{})
	if len(restored.Household.Users) != 1 || restored.Household.Users[0].Name != "Alice" {
		t.Errorf("Users after import = %+v", restored.Household.Users)
	}

	rejected := mustCall[ImportRequest, Result](t, url, BackupServiceName, "Import", &ImportRequest{Content: []byte("not a backup")})
	if rejected.OK {
		t.Error("Import of garbage succeeded")
	}
}

func TestAuthService(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	authenticator, err := auth.NewPassphraseAuthenticator(string(hash))
	if err != nil {
		t.Fatal(err)
	}
	jwtManager := auth.NewJWTManager(strings.Repeat("k", 32), time.Hour)

	interceptors := connect.WithInterceptors(middleware.RequireAuth(jwtManager, LoginProcedure))
	url := setupTestServer(t, interceptors)
	mux := http.NewServeMux()
	mux.Handle(NewAuthServiceHandler(NewAuthService(authenticator, jwtManager), interceptors))
	authServer := httptest.NewServer(mux)
	t.Cleanup(authServer.Close)

	if _, err := call[LoginRequest, LoginResponse](t, authServer.URL, AuthServiceName, "Login", &LoginRequest{Passphrase: "wrong"}); codeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("Login(wrong) error = %v, want Unauthenticated", err)
	}

	login := mustCall[LoginRequest, LoginResponse](t, authServer.URL, AuthServiceName, "Login", &LoginRequest{Passphrase: "correct horse battery"})
	if login.Token == "" || login.ExpiresAt.IsZero() {
		t.Fatalf("Login = %+v", login)
	}

	if _, err := call[emptypb.Empty, SettingsResponse](t, url, BudgetServiceName, "GetSettings", &emptypb.Empty{}); codeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("GetSettings without token error = %v, want Unauthenticated", err)
	}

	client := connect.NewClient[emptypb.Empty, SettingsResponse](http.DefaultClient, url+Procedure(BudgetServiceName, "GetSettings"), ClientOptions()...)
	req := connect.NewRequest(&emptypb.Empty{})
	req.Header().Set("Authorization", "Bearer "+login.Token)
	if _, err := client.CallUnary(context.Background(), req); err != nil {
		t.Errorf("GetSettings with token failed: %v", err)
	}
}

func TestJSONCodec(t *testing.T) {
	codec := NewJSONCodec(CodecName)

	var req AddUserRequest
	if err := codec.Unmarshal(nil, &req); err != nil {
		t.Errorf("Unmarshal(empty) error = %v", err)
	}

	data, err := codec.Marshal(&emptypb.Empty{})
	if err != nil || string(data) != "{}" {
		t.Errorf("Marshal(Empty) = %q, %v", data, err)
	}

	data, err = codec.Marshal(&AddUserRequest{Name: "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	if err := codec.Unmarshal(data, &req); err != nil || req.Name != "Alice" {
		t.Errorf("round trip = %+v, %v", req, err)
	}
}
