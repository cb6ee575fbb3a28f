package service

import (
	"time"

	"github.com/mmynk/foyer/internal/budget"
	"github.com/mmynk/foyer/internal/calculator"
	"github.com/mmynk/foyer/internal/models"
	"github.com/mmynk/foyer/internal/project"
)

// CreateTransactionRequest adds a transaction to an account. Owner is empty for the
// common account, otherwise a member ID; the same holds for every Owner below.
type CreateTransactionRequest struct {
	Owner       string                  `json:"owner,omitempty"`
	Kind        models.Kind             `json:"kind"`
	Transaction models.TransactionDraft `json:"transaction"`
}

type CreateTransactionResponse struct {
	Result
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

type UpdateTransactionRequest struct {
	Owner  string                   `json:"owner,omitempty"`
	Kind   models.Kind              `json:"kind"`
	ID     string                   `json:"id"`
	Update models.TransactionUpdate `json:"update"`
}

type DeleteTransactionRequest struct {
	Owner string      `json:"owner,omitempty"`
	Kind  models.Kind `json:"kind"`
	ID    string      `json:"id"`
}

type ListTransactionsRequest struct {
	Owner string      `json:"owner,omitempty"`
	Kind  models.Kind `json:"kind"`
}

type ListTransactionsResponse struct {
	List models.TransactionList `json:"list"`
}

type SetAccountNoteRequest struct {
	Owner string `json:"owner,omitempty"`
	Note  string `json:"note"`
}

type SetVisibilityRequest struct {
	Owner string      `json:"owner,omitempty"`
	Kind  models.Kind `json:"kind"`
	Show  bool        `json:"show"`
}

type EmptyAccountRequest struct {
	Owner string `json:"owner,omitempty"`
}

type AddUserRequest struct {
	Name string `json:"name"`
}

type AddUserResponse struct {
	Result
	User *budget.User `json:"user,omitempty"`
}

type DeleteUserRequest struct {
	ID string `json:"id"`
}

type RenameUserRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type HouseholdResponse struct {
	Household      budget.Snapshot `json:"household"`
	Settings       models.Settings `json:"settings"`
	UnsavedChanges int             `json:"unsavedChanges"`
}

type SettingsResponse struct {
	Settings models.Settings `json:"settings"`
}

type UpdateSettingsRequest struct {
	Update models.SettingsUpdate `json:"update"`
}

// FileResponse carries a downloadable document.
type FileResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}

type CreateProjectRequest struct {
	Name string `json:"name"`
}

type ProjectRequest struct {
	ProjectID string `json:"projectId"`
}

type ProjectResponse struct {
	Result
	Project *project.Project `json:"project,omitempty"`
}

type RenameProjectRequest struct {
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
}

type SetProjectNoteRequest struct {
	ProjectID string `json:"projectId"`
	Note      string `json:"note"`
}

type ListProjectsResponse struct {
	Projects  []project.Project `json:"projects"`
	CurrentID string            `json:"currentId,omitempty"`
}

type CreateExpenseRequest struct {
	ProjectID string              `json:"projectId"`
	Expense   models.ExpenseDraft `json:"expense"`
}

type ExpenseResponse struct {
	Result
	Expense *models.Expense `json:"expense,omitempty"`
}

type UpdateExpenseRequest struct {
	ProjectID string               `json:"projectId"`
	ID        string               `json:"id"`
	Update    models.ExpenseUpdate `json:"update"`
}

// ItemRequest designates an expense or a payment of a project.
type ItemRequest struct {
	ProjectID string `json:"projectId"`
	ID        string `json:"id"`
}

type ExpensesResponse struct {
	List models.ExpenseList `json:"list"`
}

type CreatePaymentRequest struct {
	ProjectID string              `json:"projectId"`
	Payment   models.PaymentDraft `json:"payment"`
}

type PaymentResponse struct {
	Result
	Payment *models.Payment `json:"payment,omitempty"`
}

type UpdatePaymentRequest struct {
	ProjectID string               `json:"projectId"`
	ID        string               `json:"id"`
	Update    models.PaymentUpdate `json:"update"`
}

type PaymentsResponse struct {
	Groups []models.PaymentGroup `json:"groups"`
}

type SettlementResponse struct {
	Result
	Settlement *calculator.Settlement `json:"settlement,omitempty"`
}

type SampleRequest struct {
	// Date of the sample; empty means the most recent one where that makes sense.
	Date string `json:"date"`
}

type SampleResponse struct {
	Result
	Sample *models.Sample `json:"sample,omitempty"`
}

type UpdateSampleRequest struct {
	Date   string              `json:"date"`
	Update models.SampleUpdate `json:"update"`
}

type ListSamplesResponse struct {
	Samples    []models.Sample `json:"samples"`
	ActiveDate string          `json:"activeDate,omitempty"`
}

type ImportRequest struct {
	Content []byte `json:"content"`
}

type LoginRequest struct {
	Passphrase string `json:"passphrase"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
