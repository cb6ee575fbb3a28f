package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/foyer/internal/budget"
	"github.com/mmynk/foyer/internal/models"
	"github.com/mmynk/foyer/internal/project"
)

// decoded is a complete household read from storage or from a backup.
type decoded struct {
	account  *budget.Account
	users    []*budget.User
	samples  []models.Sample
	projects []*project.Project
	settings models.Settings
	unsaved  int
}

func emptyDecoded() decoded {
	return decoded{
		account:  budget.NewAccount(models.Common),
		settings: models.DefaultSettings(),
	}
}

// decodeKey parses the stored form of one key into d.
// Values wrapped in a JSON string, as older backups store them, are unwrapped first.
func decodeKey(key models.Key, data []byte, d *decoded) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		data = []byte(inner)
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var err error
	switch key {
	case models.KeyAccount:
		account := budget.NewAccount(models.Common)
		if err = json.Unmarshal(data, account); err == nil {
			d.account = account
		}
	case models.KeyUsers:
		var users []*budget.User
		if err = json.Unmarshal(data, &users); err == nil {
			d.users = users
		}
	case models.KeyHistory:
		var samples []models.Sample
		if err = json.Unmarshal(data, &samples); err == nil {
			d.samples = samples
		}
	case models.KeyProjects:
		var projects []*project.Project
		if err = json.Unmarshal(data, &projects); err == nil {
			d.projects = projects
		}
	case models.KeySettings:
		settings := models.DefaultSettings()
		if err = json.Unmarshal(data, &settings); err == nil {
			d.settings = sanitizeSettings(settings)
		}
	case models.KeyUnsavedChanges:
		d.unsaved, err = strconv.Atoi(string(data))
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// install replaces the in-memory household with d. The common account keeps its identity.
func (s *State) install(d decoded) {
	*s.household.Account = *d.account
	s.household.Users = d.users
	if dropped := s.household.Hydrate(); dropped > 0 {
		slog.Warn("Dropped invalid entries while loading", "count", dropped)
	}
	s.history.Replace(d.samples)
	s.projects.Replace(d.projects)
	s.settings = d.settings
	s.unsaved = max(d.unsaved, 0)

	s.observe(models.Keys)
	s.metrics.UnsavedChanges.Set(float64(s.unsaved))
}

// Load reads every key from storage and replaces the in-memory state.
// A key that cannot be decoded keeps its default value; the returned error lists such keys.
func (s *State) Load(ctx context.Context) error {
	raw := make([]string, len(models.Keys))
	var stored []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keys, err := s.store.Keys(gctx)
		if err != nil {
			return fmt.Errorf("list keys: %w", err)
		}
		stored = keys
		return nil
	})
	for i, key := range models.Keys {
		g.Go(func() error {
			v, err := s.store.Get(gctx, string(key), "")
			if err != nil {
				return fmt.Errorf("load %s: %w", key, err)
			}
			raw[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, key := range stored {
		if !slices.Contains(models.Keys, models.Key(key)) {
			slog.Warn("Ignoring unknown stored key", "key", key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := emptyDecoded()
	var errs []error
	clear(s.written)
	for i, key := range models.Keys {
		if raw[i] == "" {
			continue
		}
		s.written[key] = raw[i]
		if err := decodeKey(key, []byte(raw[i]), &d); err != nil {
			slog.Error("Failed to decode stored state", "key", key, "error", err)
			errs = append(errs, err)
		}
	}

	s.install(d)
	slog.Info("State loaded",
		"users", len(s.household.Users),
		"samples", s.history.Len(),
		"projects", s.projects.Len(),
		"unsaved_changes", s.unsaved,
	)
	return errors.Join(errs...)
}
