package google

import (
	"fmt"
	"strconv"
	"strings"

	"dompet/internal/core"
	ports "dompet/internal/sheets"
)

// transactionRow renders t in Header column order.
func transactionRow(t core.Transaction) []any {
	return []any{
		t.ID,
		t.Date.String(),
		t.Description,
		t.Amount.String(),
		t.Kind(),
		t.Category,
		t.AccountID,
		t.Version,
	}
}

// findRow returns the 1-based row whose first cell holds id, or 0.
func findRow(values [][]any, id int64) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if v, ok := parseID(row[0]); ok && v == id {
			return i + 1
		}
	}
	return 0
}

// parseID reads an ID cell, which the API returns as a formatted string or,
// with unformatted rendering, as a number.
func parseID(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if x != float64(int64(x)) {
			return 0, false
		}
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(x), "'")
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// rowRange is the A1 range covering every column of one row.
func rowRange(sheet string, row int) string {
	last := string(rune('A' + len(ports.Header) - 1))
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), row, last, row)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
