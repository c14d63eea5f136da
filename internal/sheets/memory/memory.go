package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dompet/internal/core"
	"dompet/internal/sheets"
)

var _ sheets.Mirror = (*Writer)(nil)

// Writer keeps the mirrored rows in memory, one table per year. It backs the
// worker when no spreadsheet is configured.
type Writer struct {
	mu     sync.Mutex
	tables map[int]map[int64]core.Transaction
}

func New() *Writer {
	return &Writer{tables: make(map[int]map[int64]core.Transaction)}
}

// Upsert stores the transaction and returns a synthetic row reference.
func (w *Writer) Upsert(_ context.Context, t core.Transaction) (string, error) {
	if t.ID <= 0 {
		return "", fmt.Errorf("transaction without id: %w", core.ErrNotFound)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	year := t.Date.Year()
	if w.tables[year] == nil {
		w.tables[year] = make(map[int64]core.Transaction)
	}
	w.tables[year][t.ID] = t
	return fmt.Sprintf("mem:%d:%d", year, t.ID), nil
}

// Delete removes the row; deleting an absent row is not an error.
func (w *Writer) Delete(_ context.Context, t core.Transaction) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.tables[t.Date.Year()], t.ID)
	return nil
}

// Rows returns the rows of one year ordered by ID.
func (w *Writer) Rows(year int) []core.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]core.Transaction, 0, len(w.tables[year]))
	for _, t := range w.tables[year] {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
