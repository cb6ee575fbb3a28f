package state

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/foyer/internal/events"
	"github.com/mmynk/foyer/internal/models"
	"github.com/mmynk/foyer/internal/notify"
	"github.com/mmynk/foyer/internal/storage"
	"github.com/mmynk/foyer/internal/storage/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Minute)
	return c.now
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []events.ChangeMessage
}

func (p *recordingPublisher) PublishChange(_ context.Context, msg events.ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

type fixture struct {
	state     *State
	store     storage.Store
	notes     *notify.Recorder
	publisher *recordingPublisher
}

func newFixture(t *testing.T, store storage.Store) *fixture {
	t.Helper()
	if store == nil {
		store = memory.New(0)
	}
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	f := &fixture{
		store:     store,
		notes:     &notify.Recorder{},
		publisher: &recordingPublisher{},
	}
	f.state = New(Options{
		Store:     store,
		Notifier:  f.notes,
		Publisher: f.publisher,
		Clock:     clock.Now,
	})
	return f
}

func (f *fixture) stored(t *testing.T, key models.Key) string {
	t.Helper()
	v, err := f.store.Get(context.Background(), string(key), "")
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", key, err)
	}
	return v
}

func (f *fixture) mustCreate(t *testing.T, owner string, kind models.Kind, name, value string) models.Transaction {
	t.Helper()
	tx, ok := f.state.CreateTransaction(context.Background(), owner, kind, models.TransactionDraft{Name: name, Value: value})
	if !ok {
		t.Fatalf("CreateTransaction(%s, %s) failed: %v", name, value, f.notes.Drain())
	}
	return tx
}

func TestCreateTransactionPersists(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.mustCreate(t, "", models.Incomes, "Salary", "100")
	f.mustCreate(t, "", models.Incomes, "Bonus", "300")
	tx, ok := f.state.CreateTransaction(ctx, "", models.Expenses, models.TransactionDraft{
		Name:      "Insurance",
		Value:     "300",
		Frequency: models.Quarterly,
	})
	if !ok {
		t.Fatal("CreateTransaction() = false, want true")
	}
	if tx.Frequency != models.Quarterly {
		t.Errorf("Frequency = %q, want %q", tx.Frequency, models.Quarterly)
	}

	var account struct {
		Expenses models.Ledger `json:"expenses"`
	}
	if err := json.Unmarshal([]byte(f.stored(t, models.KeyAccount)), &account); err != nil {
		t.Fatalf("stored account is not JSON: %v", err)
	}
	if account.Expenses.Sum != 100 {
		t.Errorf("stored expenses sum = %v, want 100", account.Expenses.Sum)
	}
	if got := f.state.UnsavedChanges(); got != 3 {
		t.Errorf("UnsavedChanges() = %d, want 3", got)
	}
	if got := f.stored(t, models.KeyUnsavedChanges); got != "3" {
		t.Errorf("stored unsavedChanges = %q, want %q", got, "3")
	}
	if n := len(f.notes.Drain()); n != 0 {
		t.Errorf("got %d notifications, want none", n)
	}
}

func TestRejections(t *testing.T) {
	tests := []struct {
		name      string
		run       func(f *fixture, projectID string) bool
		wantNotes int
	}{
		{
			name: "blank transaction name",
			run: func(f *fixture, projectID string) bool {
				_, ok := f.state.CreateTransaction(context.Background(), "", models.Incomes, models.TransactionDraft{Name: "   ", Value: "10"})
				return ok
			},
			wantNotes: 1,
		},
		{
			name: "formula with a function call",
			run: func(f *fixture, projectID string) bool {
				_, ok := f.state.CreateTransaction(context.Background(), "", models.Incomes, models.TransactionDraft{Name: "Salary", Value: "sqrt(4)"})
				return ok
			},
			wantNotes: 1,
		},
		{
			name: "division by zero",
			run: func(f *fixture, projectID string) bool {
				_, ok := f.state.CreateTransaction(context.Background(), "", models.Incomes, models.TransactionDraft{Name: "Salary", Value: "1/0"})
				return ok
			},
			wantNotes: 1,
		},
		{
			name: "unknown transaction",
			run: func(f *fixture, projectID string) bool {
				return f.state.DeleteTransaction(context.Background(), "", models.Incomes, "missing")
			},
			wantNotes: 0,
		},
		{
			name: "unknown user",
			run: func(f *fixture, projectID string) bool {
				return f.state.RenameUser(context.Background(), "missing", "Bob")
			},
			wantNotes: 0,
		},
		{
			name: "blank expense name",
			run: func(f *fixture, projectID string) bool {
				_, ok := f.state.CreateExpense(context.Background(), projectID, models.ExpenseDraft{Name: "  ", Price: 10, Quantity: 1})
				return ok
			},
			wantNotes: 1,
		},
		{
			name: "negative payment",
			run: func(f *fixture, projectID string) bool {
				_, ok := f.state.CreatePayment(context.Background(), projectID, models.PaymentDraft{Resident: "Alice", Value: -5})
				return ok
			},
			wantNotes: 1,
		},
		{
			name: "unknown sample",
			run: func(f *fixture, projectID string) bool {
				return f.state.DeleteSample(context.Background(), "2024-01-01T00:00:00.000Z")
			},
			wantNotes: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			p, ok := f.state.CreateProject(context.Background(), "Kitchen")
			if !ok {
				t.Fatal("CreateProject() = false")
			}
			before := f.state.UnsavedChanges()

			if tt.run(f, p.ID) {
				t.Fatal("operation succeeded, want rejection")
			}
			notes := f.notes.Drain()
			if len(notes) != tt.wantNotes {
				t.Errorf("got %d notifications %v, want %d", len(notes), notes, tt.wantNotes)
			}
			for _, n := range notes {
				if n.Level != notify.LevelError {
					t.Errorf("notification level = %q, want %q", n.Level, notify.LevelError)
				}
			}
			if got := f.state.UnsavedChanges(); got != before {
				t.Errorf("UnsavedChanges() = %d, want %d", got, before)
			}
		})
	}
}

func TestRejectedCreateLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t, nil)
	f.mustCreate(t, "", models.Expenses, "Rent", "900")

	for _, name := range []string{"", " ", "\t\n"} {
		if _, ok := f.state.CreateTransaction(context.Background(), "", models.Expenses, models.TransactionDraft{Name: name, Value: "10"}); ok {
			t.Errorf("CreateTransaction(%q) = true, want false", name)
		}
	}

	list, ok := f.state.Transactions("", models.Expenses)
	if !ok {
		t.Fatal("Transactions() = false")
	}
	if len(list.Values) != 1 || list.Sum != 900 {
		t.Errorf("ledger = %d values, sum %v; want 1 value, sum 900", len(list.Values), list.Sum)
	}
}

func TestQuotaExceededKeepsMemory(t *testing.T) {
	f := newFixture(t, memory.New(16))

	tx, ok := f.state.CreateTransaction(context.Background(), "", models.Incomes, models.TransactionDraft{Name: "Salary", Value: "2000"})
	if !ok {
		t.Fatal("CreateTransaction() = false, want true when only storage fails")
	}

	list, _ := f.state.Transactions("", models.Incomes)
	if len(list.Values) != 1 || list.Values[0].ID != tx.ID {
		t.Errorf("in-memory ledger lost the transaction: %+v", list.Values)
	}

	notes := f.notes.Drain()
	if len(notes) != 1 || notes[0].Message != msgQuotaExceeded {
		t.Errorf("notifications = %v, want one quota message", notes)
	}
	if got := f.state.UnsavedChanges(); got != 0 {
		t.Errorf("UnsavedChanges() = %d, want 0", got)
	}
}

func TestIdenticalWritesAreSkipped(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if !f.state.SetAccountNote(ctx, "", "Shared flat") {
		t.Fatal("SetAccountNote() = false")
	}
	if !f.state.SetAccountNote(ctx, "", "  Shared flat ") {
		t.Fatal("SetAccountNote() = false")
	}

	if got := f.state.UnsavedChanges(); got != 1 {
		t.Errorf("UnsavedChanges() = %d, want 1", got)
	}
	if n := len(f.publisher.messages); n != 1 {
		t.Errorf("published %d messages, want 1", n)
	}
}

func TestPublishesChangedKeys(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	u, ok := f.state.AddUser(ctx, "Alice")
	if !ok {
		t.Fatal("AddUser() = false")
	}
	f.mustCreate(t, u.ID, models.Incomes, "Salary", "1000")

	if len(f.publisher.messages) != 2 {
		t.Fatalf("published %d messages, want 2", len(f.publisher.messages))
	}
	last := f.publisher.messages[1]
	want := []models.Key{models.KeyUsers, models.KeyUnsavedChanges}
	if len(last.Keys) != len(want) || last.Keys[0] != want[0] || last.Keys[1] != want[1] {
		t.Errorf("keys = %v, want %v", last.Keys, want)
	}
	if last.UnsavedChanges != 2 {
		t.Errorf("UnsavedChanges = %d, want 2", last.UnsavedChanges)
	}
}

func TestRatiosFollowPersonalAccounts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	alice, _ := f.state.AddUser(ctx, "Alice")
	bob, _ := f.state.AddUser(ctx, "Bob")
	f.mustCreate(t, alice.ID, models.Incomes, "Salary", "1000")
	f.mustCreate(t, alice.ID, models.Expenses, "Loan", "200")
	f.mustCreate(t, bob.ID, models.Incomes, "Salary", "500")
	f.mustCreate(t, bob.ID, models.Expenses, "Car", "300")

	ratios := map[string]float64{}
	for _, r := range f.state.Residents() {
		ratios[r.Name] = r.Ratio
	}
	if ratios["Alice"] != 0.8 || ratios["Bob"] != 0.2 {
		t.Errorf("ratios = %v, want Alice 0.8 and Bob 0.2", ratios)
	}

	if !f.state.EmptyAccount(ctx, bob.ID) {
		t.Fatal("EmptyAccount() = false")
	}
	for _, r := range f.state.Residents() {
		if r.Name == "Alice" && r.Ratio != 1 {
			t.Errorf("Alice ratio = %v, want 1 once Bob has no surplus", r.Ratio)
		}
	}
}

func TestAmountsNearFloatLimit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	alice, _ := f.state.AddUser(ctx, "Alice")
	bob, _ := f.state.AddUser(ctx, "Bob")
	f.mustCreate(t, alice.ID, models.Incomes, "Big", "1e308")
	f.mustCreate(t, bob.ID, models.Incomes, "Big", "1e308")
	f.notes.Drain()
	storedUsers := f.stored(t, models.KeyUsers)

	if _, ok := f.state.CreateTransaction(ctx, alice.ID, models.Incomes, models.TransactionDraft{Name: "Bigger", Value: "1e308"}); ok {
		t.Fatal("CreateTransaction() = true, want the overflowing total rejected")
	}
	notes := f.notes.Drain()
	if len(notes) != 1 || notes[0].Level != notify.LevelError || notes[0].Message == msgPersistFailed {
		t.Errorf("notifications = %+v, want one validation error", notes)
	}
	if got := f.stored(t, models.KeyUsers); got != storedUsers {
		t.Error("stored users changed after a rejected transaction")
	}

	h := f.state.Household()
	if len(h.Users) != 2 {
		t.Fatalf("Users = %d, want 2", len(h.Users))
	}
	sum := 0.0
	for _, u := range h.Users {
		if math.IsInf(u.Account.Incomes.Sum, 0) {
			t.Errorf("%s incomes sum = %v, want a finite amount", u.Name, u.Account.Incomes.Sum)
		}
		sum += u.Ratio
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("ratios add up to %v, want 1", sum)
	}

	if !f.state.RenameUser(ctx, alice.ID, "Alicia") {
		t.Errorf("RenameUser() = false: %v", f.notes.Drain())
	}
	if _, err := f.state.Export(ctx); err != nil {
		t.Errorf("Export() failed: %v", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	ptr := func(s string) *string { return &s }
	sortPtr := func(s models.SortType) *models.SortType { return &s }
	boolPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name      string
		update    models.SettingsUpdate
		wantOK    bool
		wantLevel notify.Level
		wantNotes int
		want      models.Settings
	}{
		{
			name:      "currency",
			update:    models.SettingsUpdate{Currency: ptr("CHF")},
			wantOK:    true,
			wantLevel: notify.LevelSuccess,
			wantNotes: 1,
			want:      models.Settings{Currency: "CHF", Sort: models.SortDesc},
		},
		{
			name:      "unchanged currency",
			update:    models.SettingsUpdate{Currency: ptr("EUR")},
			wantOK:    true,
			wantNotes: 0,
			want:      models.DefaultSettings(),
		},
		{
			name:      "every field",
			update:    models.SettingsUpdate{Currency: ptr("USD"), Sort: sortPtr(models.SortAbc), TwoDecimals: boolPtr(true)},
			wantOK:    true,
			wantLevel: notify.LevelSuccess,
			wantNotes: 3,
			want:      models.Settings{Currency: "USD", Sort: models.SortAbc, TwoDecimals: true},
		},
		{
			name:      "unknown currency",
			update:    models.SettingsUpdate{Currency: ptr("XYZW")},
			wantLevel: notify.LevelError,
			wantNotes: 1,
			want:      models.DefaultSettings(),
		},
		{
			name:      "unknown sort",
			update:    models.SettingsUpdate{Sort: sortPtr("random")},
			wantLevel: notify.LevelError,
			wantNotes: 1,
			want:      models.DefaultSettings(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			if ok := f.state.UpdateSettings(context.Background(), tt.update); ok != tt.wantOK {
				t.Errorf("UpdateSettings() = %v, want %v", ok, tt.wantOK)
			}
			notes := f.notes.Drain()
			if len(notes) != tt.wantNotes {
				t.Fatalf("got %d notifications %v, want %d", len(notes), notes, tt.wantNotes)
			}
			for _, n := range notes {
				if n.Level != tt.wantLevel {
					t.Errorf("notification level = %q, want %q", n.Level, tt.wantLevel)
				}
			}
			if got := f.state.Settings(); got != tt.want {
				t.Errorf("Settings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTransactionsFollowSortSetting(t *testing.T) {
	f := newFixture(t, nil)
	f.mustCreate(t, "", models.Expenses, "Rent", "900")
	f.mustCreate(t, "", models.Expenses, "Internet", "40")
	f.mustCreate(t, "", models.Expenses, "Electricity", "60")

	order := func() []string {
		list, _ := f.state.Transactions("", models.Expenses)
		var names []string
		for _, tx := range list.Values {
			names = append(names, tx.Name)
		}
		return names
	}

	if got := strings.Join(order(), ","); got != "Rent,Electricity,Internet" {
		t.Errorf("default order = %s", got)
	}
	abc := models.SortAbc
	f.state.UpdateSettings(context.Background(), models.SettingsUpdate{Sort: &abc})
	if got := strings.Join(order(), ","); got != "Electricity,Internet,Rent" {
		t.Errorf("abc order = %s", got)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.mustCreate(t, "", models.Incomes, "Salary", "1000")
	first, ok := f.state.CreateSample(ctx)
	if !ok {
		t.Fatal("CreateSample() = false")
	}
	f.mustCreate(t, "", models.Incomes, "Bonus", "500")
	second, _ := f.state.CreateSample(ctx)

	if head, _ := f.state.Sample(""); head.Date != second.Date {
		t.Errorf("Sample(\"\") = %s, want the latest sample %s", head.Date, second.Date)
	}
	if f.state.ActiveDate() != second.Date {
		t.Errorf("ActiveDate() = %s, want %s", f.state.ActiveDate(), second.Date)
	}

	if !f.state.RestoreSample(ctx, first.Date) {
		t.Fatal("RestoreSample() = false")
	}
	list, _ := f.state.Transactions("", models.Incomes)
	if len(list.Values) != 1 || list.Sum != 1000 {
		t.Errorf("restored incomes = %d values, sum %v; want 1 value, sum 1000", len(list.Values), list.Sum)
	}
	if f.state.ActiveDate() != first.Date {
		t.Errorf("ActiveDate() = %s, want %s", f.state.ActiveDate(), first.Date)
	}

	note := "Before the bonus"
	if !f.state.UpdateSample(ctx, first.Date, models.SampleUpdate{Note: &note}) {
		t.Fatal("UpdateSample() = false")
	}
	if s, _ := f.state.Sample(first.Date); s.Note != note {
		t.Errorf("Note = %q, want %q", s.Note, note)
	}

	f.state.DeleteSample(ctx, second.Date)
	f.state.DeleteSample(ctx, first.Date)
	if got := f.state.ActiveDate(); got != "" {
		t.Errorf("ActiveDate() = %q after deleting every sample, want empty", got)
	}
}

func TestProjects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	alice, _ := f.state.AddUser(ctx, "Alice")
	bob, _ := f.state.AddUser(ctx, "Bob")
	f.mustCreate(t, alice.ID, models.Incomes, "Salary", "800")
	f.mustCreate(t, bob.ID, models.Incomes, "Salary", "200")

	p := f.state.CurrentProject(ctx)
	if p.Name != "My project" {
		t.Errorf("Name = %q, want the default name", p.Name)
	}
	if again := f.state.CurrentProject(ctx); again.ID != p.ID {
		t.Errorf("CurrentProject() created a second project")
	}

	if _, ok := f.state.CreateExpense(ctx, p.ID, models.ExpenseDraft{Name: "Paint", Price: 25, Quantity: 4}); !ok {
		t.Fatal("CreateExpense() = false")
	}
	if _, ok := f.state.CreatePayment(ctx, p.ID, models.PaymentDraft{Resident: "Alice", Value: 100}); !ok {
		t.Fatal("CreatePayment() = false")
	}

	if _, ok := f.state.Settlement(p.ID); ok {
		t.Error("Settlement() succeeded on a project that was never frozen")
	}
	if notes := f.notes.Drain(); len(notes) != 1 || notes[0].Message != msgNotFrozen {
		t.Errorf("notifications = %v, want the freeze reminder", notes)
	}

	if !f.state.FreezeProject(ctx, p.ID) {
		t.Fatal("FreezeProject() = false")
	}
	settlement, ok := f.state.Settlement(p.ID)
	if !ok {
		t.Fatal("Settlement() = false")
	}
	if settlement.Total != 100 {
		t.Errorf("Total = %v, want 100", settlement.Total)
	}
	if len(settlement.Debts) != 1 || settlement.Debts[0].From != "Bob" || math.Abs(settlement.Debts[0].Amount-20) > 0.01 {
		t.Errorf("Debts = %+v, want Bob owes Alice 20", settlement.Debts)
	}

	expenses, _ := f.state.Expenses(p.ID)
	if expenses.Sum != 100 {
		t.Errorf("expenses sum = %v, want 100", expenses.Sum)
	}
	groups, _ := f.state.Payments(p.ID)
	if len(groups) != 1 || groups[0].Resident != "Alice" || groups[0].Sum != 100 {
		t.Errorf("payments = %+v", groups)
	}

	if !f.state.DeleteProject(ctx, p.ID) {
		t.Fatal("DeleteProject() = false")
	}
	if n := len(f.state.Projects()); n != 0 {
		t.Errorf("Projects() returned %d projects, want 0", n)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newFixture(t, nil)
	ctx := context.Background()

	alice, _ := src.state.AddUser(ctx, "Alice")
	src.mustCreate(t, "", models.Expenses, "Rent", "900")
	src.mustCreate(t, alice.ID, models.Incomes, "Salary", "2000")
	src.state.CreateSample(ctx)
	p, _ := src.state.CreateProject(ctx, "Garden")
	src.state.CreateExpense(ctx, p.ID, models.ExpenseDraft{Name: "Seeds", Price: 3.5, Quantity: 2})
	currency := "CHF"
	src.state.UpdateSettings(ctx, models.SettingsUpdate{Currency: &currency})

	data, err := src.state.Export(ctx)
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if got := src.state.UnsavedChanges(); got != 0 {
		t.Errorf("UnsavedChanges() after export = %d, want 0", got)
	}

	dst := newFixture(t, nil)
	if !dst.state.Import(ctx, data) {
		t.Fatalf("Import() = false: %v", dst.notes.Drain())
	}

	if got, want := dst.state.Household(), src.state.Household(); !sameJSON(t, got, want) {
		t.Errorf("household differs after import")
	}
	if got, want := dst.state.Samples(), src.state.Samples(); !sameJSON(t, got, want) {
		t.Errorf("history differs after import")
	}
	if got, want := dst.state.Projects(), src.state.Projects(); !sameJSON(t, got, want) {
		t.Errorf("projects differ after import")
	}
	if got := dst.state.Settings().Currency; got != "CHF" {
		t.Errorf("Currency = %q, want CHF", got)
	}
	if got := dst.state.UnsavedChanges(); got != 0 {
		t.Errorf("UnsavedChanges() after import = %d, want 0", got)
	}
	if dst.stored(t, models.KeyProjects) == "" {
		t.Error("projects were not persisted by the import")
	}
}

func TestImportStringEncodedValues(t *testing.T) {
	account, _ := json.Marshal(`{"incomes":{"values":{"a":{"id":"a","name":"Salary","value":"1200","frequency":"monthly"}},"sum":0},"type":"common"}`)
	users, _ := json.Marshal(`[]`)
	history, _ := json.Marshal(`[]`)
	data := []byte(`{"account":` + string(account) + `,"users":` + string(users) + `,"history":` + string(history) + `}`)

	f := newFixture(t, nil)
	if !f.state.Import(context.Background(), data) {
		t.Fatalf("Import() = false: %v", f.notes.Drain())
	}
	list, _ := f.state.Transactions("", models.Incomes)
	if list.Sum != 1200 {
		t.Errorf("incomes sum = %v, want 1200 after hydration", list.Sum)
	}
}

func TestImportRejectsInvalidBackup(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not JSON", data: "backup"},
		{name: "empty object", data: "{}"},
		{name: "wrong users shape", data: `{"users": {"id": "x"}}`},
		{name: "unknown key", data: `{"wallet": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.mustCreate(t, "", models.Incomes, "Salary", "100")

			if f.state.Import(context.Background(), []byte(tt.data)) {
				t.Fatal("Import() = true, want false")
			}
			if notes := f.notes.Drain(); len(notes) != 1 || notes[0].Message != msgImportInvalid {
				t.Errorf("notifications = %v", notes)
			}
			if list, _ := f.state.Transactions("", models.Incomes); len(list.Values) != 1 {
				t.Error("a rejected import changed the state")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	store := memory.New(0)
	src := newFixture(t, store)
	ctx := context.Background()

	bob, _ := src.state.AddUser(ctx, "Bob")
	src.mustCreate(t, bob.ID, models.Incomes, "Salary", "1500")
	src.state.CreateSample(ctx)

	dst := newFixture(t, store)
	if err := dst.state.Load(ctx); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !sameJSON(t, dst.state.Household(), src.state.Household()) {
		t.Error("household differs after load")
	}
	if got := len(dst.state.Samples()); got != 1 {
		t.Errorf("Samples() = %d, want 1", got)
	}
	if got, want := dst.state.UnsavedChanges(), src.state.UnsavedChanges(); got != want {
		t.Errorf("UnsavedChanges() = %d, want %d", got, want)
	}

	// Values read at load time are not written back unchanged.
	before := dst.state.UnsavedChanges()
	dst.state.SetAccountNote(ctx, bob.ID, "")
	if got := dst.state.UnsavedChanges(); got != before {
		t.Errorf("UnsavedChanges() = %d, want %d", got, before)
	}
}

func TestLoadCorruptKey(t *testing.T) {
	store := memory.New(0)
	ctx := context.Background()
	if err := store.Set(ctx, string(models.KeyUsers), "not json"); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, string(models.KeySettings), `{"currency":"CHF","sort":"abc"}`); err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, store)
	if err := f.state.Load(ctx); err == nil {
		t.Error("Load() succeeded, want an error for the corrupt users key")
	}
	if got := f.state.Settings(); got.Currency != "CHF" || got.Sort != models.SortAbc {
		t.Errorf("Settings() = %+v, want the stored settings", got)
	}
	if got := len(f.state.Household().Users); got != 0 {
		t.Errorf("Users = %d, want 0", got)
	}
}

func TestLoadKeyWithWrongFieldType(t *testing.T) {
	tests := []struct {
		name  string
		key   models.Key
		value string
		empty func(f *fixture) bool
	}{
		{
			name:  "users",
			key:   models.KeyUsers,
			value: `[{"id":"a","name":"Alice","ratio":1},{"id":"b","name":"Bob","ratio":"x"}]`,
			empty: func(f *fixture) bool { return len(f.state.Household().Users) == 0 },
		},
		{
			name:  "history",
			key:   models.KeyHistory,
			value: `[{"date":"2024-01-01T00:00:00.000Z","data":"{}"},{"date":42,"data":"{}"}]`,
			empty: func(f *fixture) bool { return len(f.state.Samples()) == 0 },
		},
		{
			name:  "projects",
			key:   models.KeyProjects,
			value: `[{"id":"p1","name":"Garden"},{"id":"p2","name":["Roof"]}]`,
			empty: func(f *fixture) bool { return len(f.state.Projects()) == 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New(0)
			ctx := context.Background()
			if err := store.Set(ctx, string(tt.key), tt.value); err != nil {
				t.Fatal(err)
			}

			f := newFixture(t, store)
			if err := f.state.Load(ctx); err == nil {
				t.Errorf("Load() succeeded, want an error for the %s key", tt.key)
			}
			if !tt.empty(f) {
				t.Errorf("%s kept part of the corrupt value, want the default", tt.key)
			}
		})
	}
}

func TestLoadWarnsAboutUnknownKeys(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	store := memory.New(0)
	ctx := context.Background()
	if err := store.Set(ctx, string(models.KeySettings), `{"currency":"EUR","sort":"abc"}`); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "budget-v1", `{}`); err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, store)
	if err := f.state.Load(ctx); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got := f.state.Settings().Currency; got != "EUR" {
		t.Errorf("Currency = %q, want EUR", got)
	}
	out := buf.String()
	if !strings.Contains(out, "Ignoring unknown stored key") || !strings.Contains(out, "key=budget-v1") {
		t.Errorf("log output = %q, want a warning naming budget-v1", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "unknown") && strings.Contains(line, "key=settings") {
			t.Errorf("known key reported as unknown: %q", line)
		}
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.state.AddUser(ctx, "Alice")
	f.mustCreate(t, "", models.Expenses, "Rent", "900")
	f.state.CreateSample(ctx)
	f.state.CreateProject(ctx, "Garden")
	f.notes.Drain()

	if !f.state.Reset(ctx) {
		t.Fatal("Reset() = false")
	}
	h := f.state.Household()
	if len(h.Users) != 0 || len(h.Account.Expenses.Values) != 0 {
		t.Errorf("household not empty after reset: %+v", h)
	}
	if len(f.state.Samples()) != 0 || len(f.state.Projects()) != 0 {
		t.Error("history or projects not empty after reset")
	}
	if f.stored(t, models.KeyUsers) != "[]" {
		t.Errorf("stored users = %q, want []", f.stored(t, models.KeyUsers))
	}
	if got := f.state.UnsavedChanges(); got != 0 {
		t.Errorf("UnsavedChanges() = %d, want 0", got)
	}
	if notes := f.notes.Drain(); len(notes) != 1 || notes[0].Level != notify.LevelSuccess {
		t.Errorf("notifications = %v, want one success", notes)
	}
}

func TestConcurrentMutations(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.state.CreateTransaction(ctx, "", models.Incomes, models.TransactionDraft{Name: "Job", Value: "10"})
		}()
	}
	wg.Wait()

	list, _ := f.state.Transactions("", models.Incomes)
	if len(list.Values) != 20 || list.Sum != 200 {
		t.Errorf("ledger = %d values, sum %v; want 20 values, sum 200", len(list.Values), list.Sum)
	}
}

func sameJSON(t *testing.T, a, b any) bool {
	t.Helper()
	ja, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	jb, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	return string(ja) == string(jb)
}
