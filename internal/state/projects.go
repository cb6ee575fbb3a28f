package state

import (
	"context"
	"errors"

	"github.com/mmynk/foyer/internal/calculator"
	"github.com/mmynk/foyer/internal/models"
	"github.com/mmynk/foyer/internal/project"
)

const msgNotFrozen = "Freeze the residents of this project before settling it."

var projectKeys = []models.Key{models.KeyProjects}

// CreateProject adds a project and makes it current.
func (s *State) CreateProject(ctx context.Context, name string) (project.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.projects.Create(name)
	if err == nil {
		err = s.projects.SetCurrent(p.ID)
	}
	if !s.apply(ctx, "project.create", projectKeys, err) {
		return project.Project{}, false
	}
	return *p.Clone(), true
}

// DeleteProject removes a project.
func (s *State) DeleteProject(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, "project.delete", projectKeys, s.projects.Delete(id))
}

// RenameProject changes the name of a project.
func (s *State) RenameProject(ctx context.Context, id, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, "project.rename", projectKeys, s.projects.Rename(id, name))
}

// SetProjectNote replaces the note of a project.
func (s *State) SetProjectNote(ctx context.Context, id, note string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, "project.note", projectKeys, s.projects.SetNote(id, note))
}

// Projects returns copies of every project, most recently updated first.
func (s *State) Projects() []project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.projects.List()
	out := make([]project.Project, 0, len(list))
	for _, p := range list {
		out = append(out, *p.Clone())
	}
	return out
}

// Project returns a copy of one project.
func (s *State) Project(id string) (project.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects.Get(id)
	if !ok {
		return project.Project{}, false
	}
	return *p.Clone(), true
}

// CurrentProject returns the project being worked on, creating one when none is selected.
func (s *State) CurrentProject(ctx context.Context) project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, created := s.projects.Current()
	if created {
		s.apply(ctx, "project.create", projectKeys, nil)
	}
	return *p.Clone()
}

// SetCurrentProject selects the project being worked on. The selection is not persisted.
func (s *State) SetCurrentProject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.projects.SetCurrent(id); err != nil {
		s.reject("project.select", err)
		return false
	}
	return true
}

// mutateProject runs fn on project id and persists the projects key when it succeeds.
func (s *State) mutateProject(ctx context.Context, op, id string, fn func(p *project.Project) error) bool {
	p, ok := s.projects.Get(id)
	if !ok {
		return s.apply(ctx, op, projectKeys, project.ErrNotFound)
	}
	return s.apply(ctx, op, projectKeys, fn(p))
}

// CreateExpense adds an expense to a project.
func (s *State) CreateExpense(ctx context.Context, projectID string, draft models.ExpenseDraft) (models.Expense, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expense models.Expense
	ok := s.mutateProject(ctx, "expense.create", projectID, func(p *project.Project) error {
		var err error
		expense, err = p.CreateExpense(draft)
		return err
	})
	return expense, ok
}

// UpdateExpense applies a partial update to an expense.
func (s *State) UpdateExpense(ctx context.Context, projectID, id string, update models.ExpenseUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateProject(ctx, "expense.update", projectID, func(p *project.Project) error {
		return p.UpdateExpense(id, update)
	})
}

// DeleteExpense removes an expense.
func (s *State) DeleteExpense(ctx context.Context, projectID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateProject(ctx, "expense.delete", projectID, func(p *project.Project) error {
		return p.DeleteExpense(id)
	})
}

// Expenses returns the expenses of a project in the household sort order.
func (s *State) Expenses(projectID string) (models.ExpenseList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects.Get(projectID)
	if !ok {
		return models.ExpenseList{}, false
	}
	return p.ExpensesSorted(s.settings.Sort), true
}

// CreatePayment records a payment in a project.
func (s *State) CreatePayment(ctx context.Context, projectID string, draft models.PaymentDraft) (models.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payment models.Payment
	ok := s.mutateProject(ctx, "payment.create", projectID, func(p *project.Project) error {
		var err error
		payment, err = p.CreatePayment(draft)
		return err
	})
	return payment, ok
}

// UpdatePayment applies a partial update to a payment.
func (s *State) UpdatePayment(ctx context.Context, projectID, id string, update models.PaymentUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateProject(ctx, "payment.update", projectID, func(p *project.Project) error {
		return p.UpdatePayment(id, update)
	})
}

// DeletePayment removes a payment.
func (s *State) DeletePayment(ctx context.Context, projectID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateProject(ctx, "payment.delete", projectID, func(p *project.Project) error {
		return p.DeletePayment(id)
	})
}

// Payments returns the payments of a project grouped by resident.
func (s *State) Payments(projectID string) ([]models.PaymentGroup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects.Get(projectID)
	if !ok {
		return nil, false
	}
	return p.PaymentsByResident(s.settings.Sort), true
}

// FreezeProject records the current members and their ratios as the settlement baseline.
func (s *State) FreezeProject(ctx context.Context, projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	residents := s.household.Residents()
	return s.mutateProject(ctx, "project.freeze", projectID, func(p *project.Project) error {
		p.Freeze(residents)
		return nil
	})
}

// Settlement computes who owes what on a frozen project.
func (s *State) Settlement(projectID string) (calculator.Settlement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects.Get(projectID)
	if !ok {
		return calculator.Settlement{}, false
	}
	settlement, err := p.Settlement()
	if errors.Is(err, project.ErrNotFrozen) {
		s.notifier.Error(msgNotFrozen)
		return calculator.Settlement{}, false
	}
	if err != nil {
		s.reject("project.settlement", err)
		return calculator.Settlement{}, false
	}
	return settlement, true
}

// CurrentProjectID returns the ID of the selected project, empty when none is.
func (s *State) CurrentProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.CurrentID()
}
