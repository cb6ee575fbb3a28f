package budget

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/mmynk/foyer/internal/calculator"
	"github.com/mmynk/foyer/internal/models"
)

// User is a household member with a personal account and a share of the common bill.
type User struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Ratio   float64  `json:"ratio"`
	Account *Account `json:"account"`
}

// Snapshot is the part of the household saved in the history.
type Snapshot struct {
	Account *Account `json:"account"`
	Users   []*User  `json:"users"`
}

// Household is the common account plus its members.
// Whenever at least one user exists their ratios add up to 1.
type Household struct {
	Account *Account
	Users   []*User
}

// NewHousehold returns a household with an empty common account and no members.
func NewHousehold() *Household {
	return &Household{Account: NewAccount(models.Common)}
}

// AddUser creates a member with an empty personal account.
func (h *Household) AddUser(name string) (*User, error) {
	trimmed, err := validateName(name)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:      uuid.NewString(),
		Name:    trimmed,
		Account: NewAccount(models.Personal),
	}
	h.Users = append(h.Users, u)
	h.ComputeRatios()
	return u, nil
}

// DeleteUser removes a member and shares the bill among the others.
func (h *Household) DeleteUser(id string) error {
	i := h.index(id)
	if i < 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	h.Users = slices.Delete(h.Users, i, i+1)
	h.ComputeRatios()
	return nil
}

// RenameUser changes the name of a member.
func (h *Household) RenameUser(id, name string) error {
	u, ok := h.User(id)
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	trimmed, err := validateName(name)
	if err != nil {
		return err
	}
	u.Name = trimmed
	return nil
}

// User looks a member up by ID.
func (h *Household) User(id string) (*User, bool) {
	if i := h.index(id); i >= 0 {
		return h.Users[i], true
	}
	return nil, false
}

func (h *Household) index(id string) int {
	return slices.IndexFunc(h.Users, func(u *User) bool { return u.ID == id })
}

// AccountOf resolves an account owner: the empty string is the common account,
// anything else is a user ID. It also returns the key that holds the account.
func (h *Household) AccountOf(owner string) (*Account, models.Key, error) {
	if owner == "" {
		return h.Account, models.KeyAccount, nil
	}
	u, ok := h.User(owner)
	if !ok {
		return nil, "", fmt.Errorf("user %s: %w", owner, ErrNotFound)
	}
	return u.Account, models.KeyUsers, nil
}

// CreateTransaction adds a transaction to the account of owner.
func (h *Household) CreateTransaction(owner string, kind models.Kind, draft models.TransactionDraft) (models.Transaction, models.Key, error) {
	account, key, err := h.AccountOf(owner)
	if err != nil {
		return models.Transaction{}, "", err
	}
	tx, err := account.Create(kind, draft)
	if err != nil {
		return models.Transaction{}, "", err
	}
	h.afterChange(account, true)
	return tx, key, nil
}

// UpdateTransaction applies a partial update to a transaction of owner.
func (h *Household) UpdateTransaction(owner string, kind models.Kind, id string, update models.TransactionUpdate) (models.Key, error) {
	account, key, err := h.AccountOf(owner)
	if err != nil {
		return "", err
	}
	recompute, err := account.Update(kind, id, update)
	if err != nil {
		return "", err
	}
	h.afterChange(account, recompute)
	return key, nil
}

// DeleteTransaction removes a transaction of owner.
func (h *Household) DeleteTransaction(owner string, kind models.Kind, id string) (models.Key, error) {
	account, key, err := h.AccountOf(owner)
	if err != nil {
		return "", err
	}
	if err := account.Delete(kind, id); err != nil {
		return "", err
	}
	h.afterChange(account, true)
	return key, nil
}

func (h *Household) afterChange(account *Account, recompute bool) {
	if recompute && account.Type == models.Personal {
		h.ComputeRatios()
	}
}

// ComputeRatios shares the common bill among the members in proportion to their surplus.
func (h *Household) ComputeRatios() {
	surpluses := make([]float64, len(h.Users))
	for i, u := range h.Users {
		surpluses[i] = u.Account.Surplus()
	}
	for i, ratio := range calculator.ComputeRatios(surpluses) {
		h.Users[i].Ratio = ratio
	}
}

// Residents returns the current name and ratio of every member, as frozen into projects.
func (h *Household) Residents() []models.Resident {
	residents := make([]models.Resident, len(h.Users))
	for i, u := range h.Users {
		residents[i] = models.Resident{Name: u.Name, Ratio: u.Ratio}
	}
	return residents
}

// Empty resets the common account and removes every member.
func (h *Household) Empty() {
	h.Account.Empty()
	h.Users = nil
}

// Snapshot returns the account and the members as they are now.
// The snapshot shares memory with the household and must be encoded before the next mutation.
func (h *Household) Snapshot() Snapshot {
	return Snapshot{Account: h.Account, Users: h.Users}
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Account = u.Account.Clone()
	return &c
}

// Clone returns a deep copy of the snapshot that shares nothing with the household.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{Account: s.Account.Clone(), Users: make([]*User, 0, len(s.Users))}
	for _, u := range s.Users {
		c.Users = append(c.Users, u.Clone())
	}
	return c
}

// Restore replaces the household with a snapshot. The common account keeps its identity.
func (h *Household) Restore(s Snapshot) {
	if s.Account == nil {
		h.Account.Empty()
	} else {
		*h.Account = *s.Account
	}
	h.Users = s.Users
	h.Hydrate()
}

// Hydrate repairs the household after decoding: accounts are hydrated, members without
// a valid name are dropped and the ratios are recomputed. It returns the number of
// dropped transactions and users.
func (h *Household) Hydrate() int {
	if h.Account == nil {
		h.Account = NewAccount(models.Common)
	}
	dropped := h.Account.Hydrate(models.Common)

	users := h.Users[:0]
	for _, u := range h.Users {
		if u == nil || u.ID == "" {
			dropped++
			continue
		}
		name, err := validateName(u.Name)
		if err != nil {
			dropped++
			continue
		}
		u.Name = name
		if u.Account == nil {
			u.Account = NewAccount(models.Personal)
		}
		dropped += u.Account.Hydrate(models.Personal)
		users = append(users, u)
	}
	h.Users = users
	h.ComputeRatios()
	return dropped
}
