// Package export writes an owner's expenses to CSV, either for the whole
// history or restricted to the current/previous half-month window.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"expense-tracker/internal/entity/expense"
	"expense-tracker/internal/model/period"
)

const fileTimestampLayout = "20060102_150405"

var header = []string{"Amount", "Category", "Description", "Date", "Recurring"}

type expensesStorage interface {
	ListExpenses(ctx context.Context, ownerID int64, category string, from, to time.Time) ([]expense.Record, error)
}

type Exporter struct {
	storage expensesStorage
	dir     string
	now     func() time.Time
}

func NewExporter(storage expensesStorage, dir string) *Exporter {
	return &Exporter{storage: storage, dir: dir, now: time.Now}
}

// Write streams the owner's expenses as CSV rows ordered by date and
// returns how many rows were written.
func (e *Exporter) Write(ctx context.Context, w io.Writer, ownerID int64, scope period.Scope) (int, error) {
	var from, to time.Time
	if p, ok := period.ForScope(scope, e.now()); ok {
		from, to = p.Start, p.End
	}

	records, err := e.storage.ListExpenses(ctx, ownerID, "", from, to)
	if err != nil {
		return 0, errors.Wrap(err, "export expenses")
	}

	cw := csv.NewWriter(w)
	if err = cw.Write(header); err != nil {
		return 0, errors.Wrap(err, "export expenses")
	}
	for _, rec := range records {
		recurring := "0"
		if rec.Recurring {
			recurring = "1"
		}
		row := []string{
			rec.Amount.StringFixed(2),
			rec.Category,
			rec.Description,
			rec.Date.Format(period.DateLayout),
			recurring,
		}
		if err = cw.Write(row); err != nil {
			return 0, errors.Wrap(err, "export expenses")
		}
	}
	cw.Flush()
	if err = cw.Error(); err != nil {
		return 0, errors.Wrap(err, "export expenses")
	}
	return len(records), nil
}

// ToFile writes the export into the configured directory and returns the
// file path along with the row count.
func (e *Exporter) ToFile(ctx context.Context, ownerID int64, username string, scope period.Scope) (string, int, error) {
	if e.dir != "" {
		if err := os.MkdirAll(e.dir, 0o755); err != nil {
			return "", 0, errors.Wrap(err, "create export directory")
		}
	}
	path := filepath.Join(e.dir, Filename(username, e.now()))

	f, err := os.Create(path)
	if err != nil {
		return "", 0, errors.Wrap(err, "create export file")
	}
	defer f.Close()

	n, err := e.Write(ctx, f, ownerID, scope)
	if err != nil {
		return "", 0, err
	}
	return path, n, nil
}

func Filename(username string, at time.Time) string {
	return fmt.Sprintf("expenses_%s_%s.csv", username, at.Format(fileTimestampLayout))
}
