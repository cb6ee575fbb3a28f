package project

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Manager owns every project of the household and remembers the one being worked on.
// The current project is session state and is never persisted.
type Manager struct {
	projects map[string]*Project
	current  string
	clock    func() time.Time
}

// NewManager returns an empty manager. A nil clock means time.Now.
func NewManager(clock func() time.Time) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		projects: make(map[string]*Project),
		clock:    clock,
	}
}

// Create adds a project. Unlike New, a blank name is rejected.
func (m *Manager) Create(name string) (*Project, error) {
	trimmed, err := validateName("name", name, ErrEmptyName)
	if err != nil {
		return nil, err
	}
	p := New(trimmed, m.clock)
	m.projects[p.ID] = p
	return p, nil
}

// Delete removes a project. Deleting the current project clears the current pointer.
func (m *Manager) Delete(id string) error {
	if _, ok := m.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	delete(m.projects, id)
	if m.current == id {
		m.current = ""
	}
	return nil
}

// Rename changes the name of a project.
func (m *Manager) Rename(id, name string) error {
	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	trimmed, err := validateName("name", name, ErrEmptyName)
	if err != nil {
		return err
	}
	p.Name = trimmed
	p.Touch()
	return nil
}

// SetNote replaces the note of a project.
func (m *Manager) SetNote(id, note string) error {
	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	p.Note = strings.TrimSpace(note)
	p.Touch()
	return nil
}

// Get looks a project up by ID.
func (m *Manager) Get(id string) (*Project, bool) {
	p, ok := m.projects[id]
	return p, ok
}

// List returns every project, most recently updated first.
func (m *Manager) List() []*Project {
	list := make([]*Project, 0, len(m.projects))
	for _, p := range m.projects {
		list = append(list, p)
	}
	slices.SortFunc(list, func(a, b *Project) int {
		if n := b.UpdatedAt.Compare(a.UpdatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return list
}

// Current returns the project being worked on. When there is none, a project with
// the default name is created and made current; created reports that case.
func (m *Manager) Current() (p *Project, created bool) {
	if existing, ok := m.projects[m.current]; ok {
		return existing, false
	}
	p = New("", m.clock)
	m.projects[p.ID] = p
	m.current = p.ID
	return p, true
}

// CurrentID returns the ID of the current project, empty when none is selected.
func (m *Manager) CurrentID() string {
	return m.current
}

// SetCurrent selects the project being worked on.
func (m *Manager) SetCurrent(id string) error {
	if _, ok := m.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	m.current = id
	return nil
}

// Empty removes every project.
func (m *Manager) Empty() {
	clear(m.projects)
	m.current = ""
}

// Replace swaps every project for the given ones, as decoded from storage or a backup.
// Projects without an ID are dropped; the current selection survives when still present.
func (m *Manager) Replace(projects []*Project) {
	clear(m.projects)
	for _, p := range projects {
		if p == nil || p.ID == "" {
			continue
		}
		p.hydrate(m.clock)
		m.projects[p.ID] = p
	}
	if _, ok := m.projects[m.current]; !ok {
		m.current = ""
	}
}

// Len returns the number of projects.
func (m *Manager) Len() int {
	return len(m.projects)
}
