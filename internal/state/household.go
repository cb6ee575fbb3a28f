package state

import (
	"context"

	"github.com/mmynk/foyer/internal/budget"
	"github.com/mmynk/foyer/internal/models"
)

// CreateTransaction adds a transaction to the account of owner ("" for the common account).
func (s *State) CreateTransaction(ctx context.Context, owner string, kind models.Kind, draft models.TransactionDraft) (models.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, key, err := s.household.CreateTransaction(owner, kind, draft)
	return tx, s.apply(ctx, "transaction.create", []models.Key{key}, err)
}

// UpdateTransaction applies a partial update to a transaction.
func (s *State) UpdateTransaction(ctx context.Context, owner string, kind models.Kind, id string, update models.TransactionUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.household.UpdateTransaction(owner, kind, id, update)
	return s.apply(ctx, "transaction.update", []models.Key{key}, err)
}

// DeleteTransaction removes a transaction.
func (s *State) DeleteTransaction(ctx context.Context, owner string, kind models.Kind, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.household.DeleteTransaction(owner, kind, id)
	return s.apply(ctx, "transaction.delete", []models.Key{key}, err)
}

// Transactions returns a ledger ordered by the household sort preference.
func (s *State) Transactions(owner string, kind models.Kind) (models.TransactionList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, _, err := s.household.AccountOf(owner)
	if err != nil {
		return models.TransactionList{}, false
	}
	list, err := account.Sorted(kind, s.settings.Sort)
	if err != nil {
		return models.TransactionList{}, false
	}
	return list, true
}

// SetAccountNote replaces the note of an account.
func (s *State) SetAccountNote(ctx context.Context, owner, note string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, key, err := s.household.AccountOf(owner)
	if err == nil {
		account.SetNote(note)
	}
	return s.apply(ctx, "account.note", []models.Key{key}, err)
}

// SetVisibility shows or hides a ledger of an account.
func (s *State) SetVisibility(ctx context.Context, owner string, kind models.Kind, show bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, key, err := s.household.AccountOf(owner)
	if err == nil {
		err = account.SetVisibility(kind, show)
	}
	return s.apply(ctx, "account.visibility", []models.Key{key}, err)
}

// EmptyAccount clears an account. Emptying a personal account shares the bill again.
func (s *State) EmptyAccount(ctx context.Context, owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, key, err := s.household.AccountOf(owner)
	if err == nil {
		account.Empty()
		if account.Type == models.Personal {
			s.household.ComputeRatios()
		}
	}
	return s.apply(ctx, "account.empty", []models.Key{key}, err)
}

// AddUser adds a household member.
func (s *State) AddUser(ctx context.Context, name string) (budget.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.household.AddUser(name)
	if !s.apply(ctx, "user.add", []models.Key{models.KeyUsers}, err) {
		return budget.User{}, false
	}
	return *u.Clone(), true
}

// DeleteUser removes a household member.
func (s *State) DeleteUser(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.household.DeleteUser(id)
	return s.apply(ctx, "user.delete", []models.Key{models.KeyUsers}, err)
}

// RenameUser changes the name of a member.
func (s *State) RenameUser(ctx context.Context, id, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.household.RenameUser(id, name)
	return s.apply(ctx, "user.rename", []models.Key{models.KeyUsers}, err)
}

// Household returns a copy of the common account and the members.
func (s *State) Household() budget.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.household.Snapshot().Clone()
}

// Residents returns the current name and ratio of every member.
func (s *State) Residents() []models.Resident {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.household.Residents()
}
