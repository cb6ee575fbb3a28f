// Package export renders the household budget as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/mmynk/foyer/internal/budget"
	"github.com/mmynk/foyer/internal/calculator"
	"github.com/mmynk/foyer/internal/models"
)

const (
	commonSheet = "Common"
	ratioSheet  = "Ratios"

	// Excel refuses longer sheet names.
	maxSheetName = 31
)

var accountHeaders = []string{"Kind", "Name", "Value", "Frequency", "Monthly", "Note"}

var kindTitles = map[models.Kind]string{
	models.Incomes:          "Incomes",
	models.Expenses:         "Expenses",
	models.PersonalExpenses: "Personal expenses",
}

// Report builds a workbook with one sheet per account and a sheet of member ratios.
// Ledgers are listed in the order given by settings.Sort.
func Report(h budget.Snapshot, settings models.Settings) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), commonSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	account := h.Account
	if account == nil {
		account = budget.NewAccount(models.Common)
	}
	if err := writeAccount(f, commonSheet, account, settings); err != nil {
		return nil, err
	}

	used := map[string]bool{strings.ToLower(commonSheet): true, strings.ToLower(ratioSheet): true}
	for _, u := range h.Users {
		if u == nil || u.Account == nil {
			continue
		}
		name := sheetName(u.Name, used)
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeAccount(f, name, u.Account, settings); err != nil {
			return nil, err
		}
	}

	if err := writeRatios(f, h.Users); err != nil {
		return nil, err
	}
	return f, nil
}

// Write renders the report into w.
func Write(w io.Writer, h budget.Snapshot, settings models.Settings) error {
	f, err := Report(h, settings)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeAccount(f *excelize.File, sheet string, account *budget.Account, settings models.Settings) error {
	row := 1
	if err := setRow(f, sheet, row, toCells(accountHeaders)); err != nil {
		return err
	}

	for _, kind := range models.Kinds {
		if account.Type == models.Common && kind == models.PersonalExpenses {
			continue
		}
		list, err := account.Sorted(kind, settings.Sort)
		if err != nil {
			return err
		}
		for _, tx := range list.Values {
			row++
			monthly, _ := calculator.Monthly(tx)
			cells := []any{kindTitles[kind], tx.Name, tx.Value, string(tx.Frequency), calculator.Round(monthly), tx.Note}
			if err := setRow(f, sheet, row, cells); err != nil {
				return err
			}
		}
		row++
		if err := setRow(f, sheet, row, []any{"Total " + strings.ToLower(kindTitles[kind]), "", "", "", list.Sum, ""}); err != nil {
			return err
		}
	}

	row += 2
	if err := setRow(f, sheet, row, []any{"Surplus", "", "", "", account.Surplus(), settings.Currency}); err != nil {
		return err
	}
	if account.Note != "" {
		row++
		if err := setRow(f, sheet, row, []any{"Note", account.Note}); err != nil {
			return err
		}
	}
	return nil
}

func writeRatios(f *excelize.File, users []*budget.User) error {
	if _, err := f.NewSheet(ratioSheet); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", ratioSheet, err)
	}
	if err := setRow(f, ratioSheet, 1, []any{"Member", "Surplus", "Ratio"}); err != nil {
		return err
	}
	row := 1
	for _, u := range users {
		if u == nil {
			continue
		}
		surplus := 0.0
		if u.Account != nil {
			surplus = u.Account.Surplus()
		}
		row++
		if err := setRow(f, ratioSheet, row, []any{u.Name, surplus, u.Ratio}); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// sheetName turns a member name into a unique, valid sheet name.
// used holds the lower-cased names already taken.
func sheetName(name string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Member"
	}
	base = truncate(base, maxSheetName)

	candidate := base
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
