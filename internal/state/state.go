// Package state owns the household state and runs every mutation through the same
// pipeline: mutate in memory, then persist exactly the keys that changed.
//
// Persistence failures never roll memory back. They are logged, counted and reported
// to the notifier; the next successful write of the same key catches storage up.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/mmynk/foyer/internal/budget"
	"github.com/mmynk/foyer/internal/events"
	"github.com/mmynk/foyer/internal/history"
	"github.com/mmynk/foyer/internal/metrics"
	"github.com/mmynk/foyer/internal/models"
	"github.com/mmynk/foyer/internal/notify"
	"github.com/mmynk/foyer/internal/project"
	"github.com/mmynk/foyer/internal/storage"
	"github.com/mmynk/foyer/internal/storage/memory"
)

// Messages shown when storage refuses a write.
const (
	msgQuotaExceeded = "No storage space left. Export a backup, then delete old history samples or projects."
	msgPersistFailed = "Your last changes could not be saved."
)

// Options wires a State to its collaborators. Zero values get working defaults.
type Options struct {
	Store     storage.Store
	Notifier  notify.Notifier
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Clock     func() time.Time
}

// State is the composition root of the household: budget, history, projects and settings.
// Every exported method is atomic with respect to the others.
type State struct {
	mu sync.Mutex

	store     storage.Store
	notifier  notify.Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	clock     func() time.Time

	household *budget.Household
	history   *history.Store
	projects  *project.Manager
	settings  models.Settings
	unsaved   int

	// written holds the last value stored under each key.
	written map[models.Key]string
}

// New returns an empty household bound to opts. Call Load to read the stored state.
func New(opts Options) *State {
	s := &State{
		store:     opts.Store,
		notifier:  opts.Notifier,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		written:   make(map[models.Key]string),
	}
	if s.store == nil {
		s.store = memory.New(0)
	}
	if s.notifier == nil {
		s.notifier = notify.Discard
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	if s.clock == nil {
		s.clock = time.Now
	}

	s.household = budget.NewHousehold()
	s.history = history.New()
	s.projects = project.NewManager(s.clock)
	s.settings = models.DefaultSettings()
	return s
}

// apply records the outcome of a mutation and persists the keys it changed.
// It returns whether the mutation succeeded.
func (s *State) apply(ctx context.Context, op string, keys []models.Key, err error) bool {
	if err != nil {
		s.reject(op, err)
		return false
	}
	s.metrics.Mutation(op, metrics.ResultOK)
	s.persist(ctx, keys...)
	return true
}

// reject reports a failed mutation. Validation errors notify the user once,
// lookup misses are silent.
func (s *State) reject(op string, err error) {
	var budgetErr *budget.ValidationError
	var projectErr *project.ValidationError

	switch {
	case errors.As(err, &budgetErr):
		s.invalid(op, budgetErr.Field, budgetErr.Message, err)
	case errors.As(err, &projectErr):
		s.invalid(op, projectErr.Field, projectErr.Message, err)
	case errors.Is(err, budget.ErrNotFound), errors.Is(err, project.ErrNotFound), errors.Is(err, history.ErrSampleNotFound):
		slog.Debug("Lookup miss", "operation", op, "error", err)
		s.metrics.Mutation(op, metrics.ResultMiss)
	default:
		slog.Warn("Operation rejected", "operation", op, "error", err)
		s.metrics.Mutation(op, metrics.ResultRejected)
		s.notifier.Error(err.Error())
	}
}

func (s *State) invalid(op, field, message string, err error) {
	slog.Debug("Validation failed", "operation", op, "field", field, "error", err)
	s.metrics.Mutation(op, metrics.ResultRejected)
	s.metrics.ValidationFailures.WithLabelValues(field).Inc()
	s.notifier.Error(message)
}

// persist writes the given keys. Values identical to the last written ones are skipped.
// Every successful write counts as one unsaved change; the counter itself is then persisted
// and a change event is published.
func (s *State) persist(ctx context.Context, keys ...models.Key) {
	s.observe(keys)

	var written []models.Key
	var failed error
	for _, key := range uniqueKeys(keys) {
		if key == models.KeyUnsavedChanges {
			continue
		}
		ok, err := s.write(ctx, key)
		if err != nil {
			failed = err
			continue
		}
		if ok {
			written = append(written, key)
		}
	}

	if len(written) > 0 {
		s.unsaved += len(written)
		if _, err := s.write(ctx, models.KeyUnsavedChanges); err != nil {
			failed = err
		} else {
			written = append(written, models.KeyUnsavedChanges)
		}
		s.metrics.UnsavedChanges.Set(float64(s.unsaved))
		s.publish(ctx, written)
	}

	if failed != nil {
		if errors.Is(failed, storage.ErrQuotaExceeded) {
			s.notifier.Error(msgQuotaExceeded)
		} else {
			s.notifier.Error(msgPersistFailed)
		}
	}
}

// write stores one key and reports whether anything was written.
func (s *State) write(ctx context.Context, key models.Key) (bool, error) {
	value, err := s.encode(key)
	if err != nil {
		slog.Error("Failed to encode state", "key", key, "error", err)
		s.metrics.PersistFailures.WithLabelValues(string(key), "encode").Inc()
		return false, err
	}

	if prev, ok := s.written[key]; ok && prev == value {
		s.metrics.SkippedWrites.WithLabelValues(string(key)).Inc()
		return false, nil
	}

	if err := s.store.Set(ctx, string(key), value); err != nil {
		reason := "error"
		if errors.Is(err, storage.ErrQuotaExceeded) {
			reason = "quota"
		}
		slog.Error("Failed to persist state", "key", key, "reason", reason, "error", err)
		s.metrics.PersistFailures.WithLabelValues(string(key), reason).Inc()
		return false, err
	}

	s.written[key] = value
	s.metrics.Writes.WithLabelValues(string(key)).Inc()
	return true, nil
}

func (s *State) publish(ctx context.Context, keys []models.Key) {
	msg := events.ChangeMessage{Keys: keys, UnsavedChanges: s.unsaved, Timestamp: s.clock().UTC()}
	if err := s.publisher.PublishChange(ctx, msg); err != nil {
		slog.Warn("Failed to publish change", "keys", keys, "error", err)
	}
}

// observe refreshes the gauges that follow the in-memory state.
func (s *State) observe(keys []models.Key) {
	for _, key := range keys {
		switch key {
		case models.KeyUsers:
			ratios := make(map[string]float64, len(s.household.Users))
			for _, u := range s.household.Users {
				ratios[u.ID] = u.Ratio
			}
			s.metrics.SetRatios(ratios)
		case models.KeyHistory:
			s.metrics.HistorySamples.Set(float64(s.history.Len()))
		}
	}
}

// encode serialises the current value of a key.
func (s *State) encode(key models.Key) (string, error) {
	var v any
	switch key {
	case models.KeyAccount:
		v = s.household.Account
	case models.KeyUsers:
		v = nonNil(s.household.Users)
	case models.KeyHistory:
		v = nonNil(s.history.List())
	case models.KeyProjects:
		v = nonNil(s.projects.List())
	case models.KeySettings:
		v = s.settings
	case models.KeyUnsavedChanges:
		return strconv.Itoa(s.unsaved), nil
	default:
		return "", fmt.Errorf("unknown key %q", key)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnsavedChanges returns the number of writes since the last export.
func (s *State) UnsavedChanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsaved
}

func uniqueKeys(keys []models.Key) []models.Key {
	var out []models.Key
	for _, k := range keys {
		if k != "" && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
