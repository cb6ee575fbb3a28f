// Package history keeps dated snapshots of the household budget, most recent first.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mmynk/foyer/internal/budget"
	"github.com/mmynk/foyer/internal/models"
)

var ErrSampleNotFound = errors.New("sample not found")

// Store is an ordered list of samples plus the session-only active date.
// Sample dates are unique and the active date is either empty or one of them.
type Store struct {
	samples []models.Sample
	active  string
}

// New returns an empty history.
func New() *Store {
	return &Store{}
}

// Create encodes the snapshot, dates it with now and inserts it at the head of the history.
// If a sample already uses that millisecond, the date is pushed forward until it is free.
// The new sample becomes the active one.
func (s *Store) Create(snapshot budget.Snapshot, now time.Time) (models.Sample, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return models.Sample{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	at := now.UTC().Truncate(time.Millisecond)
	date := at.Format(models.SampleDateLayout)
	for s.index(date) >= 0 {
		at = at.Add(time.Millisecond)
		date = at.Format(models.SampleDateLayout)
	}

	sample := models.Sample{Date: date, Data: string(data)}
	s.samples = slices.Insert(s.samples, 0, sample)
	s.active = date
	return sample, nil
}

// Delete removes the sample dated date. When it was the active one, the sample now at the
// same position becomes active, or the previous one if the deleted sample was the last.
func (s *Store) Delete(date string) error {
	i := s.index(date)
	if i < 0 {
		return fmt.Errorf("%s: %w", date, ErrSampleNotFound)
	}

	wasActive := date == s.ActiveDate()
	s.samples = slices.Delete(s.samples, i, i+1)
	if !wasActive {
		return nil
	}

	switch {
	case len(s.samples) == 0:
		s.active = ""
	case i < len(s.samples):
		s.active = s.samples[i].Date
	default:
		s.active = s.samples[i-1].Date
	}
	return nil
}

// Update merges the fields present in update into the sample dated date.
func (s *Store) Update(date string, update models.SampleUpdate) error {
	i := s.index(date)
	if i < 0 {
		return fmt.Errorf("%s: %w", date, ErrSampleNotFound)
	}
	if update.Note != nil {
		s.samples[i].Note = strings.TrimSpace(*update.Note)
	}
	return nil
}

// Get returns the sample dated date, or the most recent one when date is empty.
func (s *Store) Get(date string) (models.Sample, bool) {
	if date == "" {
		if len(s.samples) == 0 {
			return models.Sample{}, false
		}
		return s.samples[0], true
	}
	i := s.index(date)
	if i < 0 {
		return models.Sample{}, false
	}
	return s.samples[i], true
}

// ActiveDate returns the date of the active sample. When none was chosen,
// the most recent sample becomes active.
func (s *Store) ActiveDate() string {
	if s.active == "" && len(s.samples) > 0 {
		s.active = s.samples[0].Date
	}
	return s.active
}

// SetActive makes the sample dated date the active one. An empty date clears the choice.
func (s *Store) SetActive(date string) error {
	if date != "" && s.index(date) < 0 {
		return fmt.Errorf("%s: %w", date, ErrSampleNotFound)
	}
	s.active = date
	return nil
}

// Active returns the active sample.
func (s *Store) Active() (models.Sample, bool) {
	date := s.ActiveDate()
	if date == "" {
		return models.Sample{}, false
	}
	return s.Get(date)
}

// List returns a copy of the samples, most recent first.
func (s *Store) List() []models.Sample {
	return slices.Clone(s.samples)
}

// Len returns the number of samples.
func (s *Store) Len() int {
	return len(s.samples)
}

// Empty removes every sample and clears the active date.
func (s *Store) Empty() {
	s.samples = nil
	s.active = ""
}

// Replace swaps the history for samples decoded from storage or a backup.
// Samples with an empty or duplicated date are dropped.
func (s *Store) Replace(samples []models.Sample) {
	kept := make([]models.Sample, 0, len(samples))
	seen := make(map[string]bool, len(samples))
	for _, sample := range samples {
		if sample.Date == "" || seen[sample.Date] {
			continue
		}
		seen[sample.Date] = true
		kept = append(kept, sample)
	}
	s.samples = kept
	if s.active != "" && s.index(s.active) < 0 {
		s.active = ""
	}
}

// Decode parses the snapshot held by a sample.
func Decode(sample models.Sample) (budget.Snapshot, error) {
	var snapshot budget.Snapshot
	if err := json.Unmarshal([]byte(sample.Data), &snapshot); err != nil {
		return budget.Snapshot{}, fmt.Errorf("failed to decode sample %s: %w", sample.Date, err)
	}
	return snapshot, nil
}

func (s *Store) index(date string) int {
	return slices.IndexFunc(s.samples, func(sample models.Sample) bool {
		return sample.Date == date
	})
}
