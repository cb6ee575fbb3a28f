package state

import (
	"context"
	"fmt"

	"github.com/mmynk/foyer/internal/history"
	"github.com/mmynk/foyer/internal/models"
)

var historyKeys = []models.Key{models.KeyHistory}

// CreateSample records the current account and members in the history.
func (s *State) CreateSample(ctx context.Context) (models.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, err := s.history.Create(s.household.Snapshot(), s.clock())
	if !s.apply(ctx, "history.create", historyKeys, err) {
		return models.Sample{}, false
	}
	return sample, true
}

// DeleteSample removes a sample.
func (s *State) DeleteSample(ctx context.Context, date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, "history.delete", historyKeys, s.history.Delete(date))
}

// UpdateSample changes the note of a sample.
func (s *State) UpdateSample(ctx context.Context, date string, update models.SampleUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, "history.update", historyKeys, s.history.Update(date, update))
}

// Sample returns the sample dated date, or the most recent one when date is empty.
func (s *State) Sample(date string) (models.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Get(date)
}

// Samples returns the history, most recent first.
func (s *State) Samples() []models.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nonNil(s.history.List())
}

// ActiveDate returns the date of the sample being looked at.
func (s *State) ActiveDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.ActiveDate()
}

// SetActiveSample selects the sample being looked at. The selection is not persisted.
func (s *State) SetActiveSample(date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.history.SetActive(date); err != nil {
		s.reject("history.select", err)
		return false
	}
	return true
}

// RestoreSample replaces the account and the members with the content of a sample.
func (s *State) RestoreSample(ctx context.Context, date string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, ok := s.history.Get(date)
	if !ok {
		return s.apply(ctx, "history.restore", nil, fmt.Errorf("%s: %w", date, history.ErrSampleNotFound))
	}
	snapshot, err := history.Decode(sample)
	if err != nil {
		return s.apply(ctx, "history.restore", nil, err)
	}

	s.household.Restore(snapshot)
	if err := s.history.SetActive(sample.Date); err != nil {
		return s.apply(ctx, "history.restore", nil, err)
	}
	return s.apply(ctx, "history.restore", []models.Key{models.KeyAccount, models.KeyUsers}, nil)
}
