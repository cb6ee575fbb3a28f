package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/foyer/internal/metrics"
	"github.com/mmynk/foyer/internal/models"
)

// Messages shown after a backup operation.
const (
	msgImported      = "Your backup has been imported."
	msgImportInvalid = "This file is not a valid backup."
	msgReset         = "Everything has been deleted."
)

// exportedKeys are the keys written to a backup. The unsaved counter is not part of it.
var exportedKeys = []models.Key{
	models.KeyAccount,
	models.KeyUsers,
	models.KeyHistory,
	models.KeyProjects,
	models.KeySettings,
}

// Export returns a JSON document holding every persisted key and resets the unsaved counter.
func (s *State) Export(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := make(map[models.Key]json.RawMessage, len(exportedKeys))
	for _, key := range exportedKeys {
		value, err := s.encode(key)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", key, err)
		}
		doc[key] = json.RawMessage(value)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	s.unsaved = 0
	s.metrics.UnsavedChanges.Set(0)
	if _, err := s.write(ctx, models.KeyUnsavedChanges); err != nil {
		s.notifier.Error(msgPersistFailed)
	}
	slog.Info("Backup exported", "bytes", len(data))
	return data, nil
}

// Import replaces the whole household with a backup produced by Export.
// Nothing changes unless every key of the backup decodes.
func (s *State) Import(ctx context.Context, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := decodeBackup(data)
	if err != nil {
		slog.Warn("Rejected backup", "error", err)
		s.metrics.Mutation("backup.import", metrics.ResultRejected)
		s.notifier.Error(msgImportInvalid)
		return false
	}

	s.install(d)
	s.unsaved = 0
	s.apply(ctx, "backup.import", exportedKeys, nil)
	s.resetUnsaved(ctx)
	s.notifier.Success(msgImported)
	return true
}

// Reset deletes every budget, member, sample and project and restores the default settings.
func (s *State) Reset(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.household.Empty()
	s.history.Empty()
	s.projects.Empty()
	s.settings = models.DefaultSettings()
	s.apply(ctx, "backup.reset", exportedKeys, nil)
	s.resetUnsaved(ctx)
	s.notifier.Success(msgReset)
	return true
}

// resetUnsaved zeroes the unsaved counter after the whole state was replaced.
func (s *State) resetUnsaved(ctx context.Context) {
	s.unsaved = 0
	s.metrics.UnsavedChanges.Set(0)
	if _, err := s.write(ctx, models.KeyUnsavedChanges); err != nil {
		slog.Warn("Failed to reset unsaved changes", "error", err)
	}
}

func decodeBackup(data []byte) (decoded, error) {
	var doc map[models.Key]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return decoded{}, fmt.Errorf("decode backup: %w", err)
	}
	if len(doc) == 0 {
		return decoded{}, errors.New("backup is empty")
	}

	d := emptyDecoded()
	for key, raw := range doc {
		if key == models.KeyUnsavedChanges {
			continue
		}
		if err := decodeKey(key, raw, &d); err != nil {
			return decoded{}, err
		}
	}
	return d, nil
}
