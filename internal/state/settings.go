package state

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/currency"

	"github.com/mmynk/foyer/internal/models"
)

var sortDescriptions = map[models.SortType]string{
	models.SortAbc:  "alphabetically",
	models.SortZyx:  "in reverse alphabetical order",
	models.SortAsc:  "from the smallest amount to the largest",
	models.SortDesc: "from the largest amount to the smallest",
}

// Settings returns the household preferences.
func (s *State) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings applies the fields present in update. Each field that actually changes
// is confirmed with a success notification.
func (s *State) UpdateSettings(ctx context.Context, update models.SettingsUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	var messages []string

	if update.Currency != nil {
		unit, err := currency.ParseISO(strings.TrimSpace(*update.Currency))
		if err != nil {
			s.reject("settings.update", fmt.Errorf("%q is not a valid currency", *update.Currency))
			return false
		}
		if code := unit.String(); code != next.Currency {
			next.Currency = code
			messages = append(messages, fmt.Sprintf("Amounts will be shown in %s.", code))
		}
	}
	if update.Sort != nil {
		if !update.Sort.Valid() {
			s.reject("settings.update", fmt.Errorf("%q is not a valid sort order", *update.Sort))
			return false
		}
		if *update.Sort != next.Sort {
			next.Sort = *update.Sort
			messages = append(messages, fmt.Sprintf("Incomes and expenses will be sorted %s.", sortDescriptions[next.Sort]))
		}
	}
	if update.TwoDecimals != nil && *update.TwoDecimals != next.TwoDecimals {
		next.TwoDecimals = *update.TwoDecimals
		if next.TwoDecimals {
			messages = append(messages, "Amounts will be shown with two decimals.")
		} else {
			messages = append(messages, "Amounts will be rounded.")
		}
	}

	s.settings = next
	s.apply(ctx, "settings.update", []models.Key{models.KeySettings}, nil)
	for _, msg := range messages {
		s.notifier.Success(msg)
	}
	return true
}

// sanitizeSettings replaces unknown stored values with defaults.
func sanitizeSettings(settings models.Settings) models.Settings {
	defaults := models.DefaultSettings()
	if unit, err := currency.ParseISO(settings.Currency); err == nil {
		settings.Currency = unit.String()
	} else {
		settings.Currency = defaults.Currency
	}
	if !settings.Sort.Valid() {
		settings.Sort = defaults.Sort
	}
	return settings
}
