package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "finora/internal/log"
	"finora/internal/models"

	"github.com/shopspring/decimal"
)

// SchemaVersion is written in the first column of every row.
const SchemaVersion = "2"

const uncategorized = "Uncategorized"

// canonicalHeader is the only layout ever written.
var canonicalHeader = []string{"SchemaVersion", "ID", "Username", "Date", "Kind", "Category", "Amount", "Notes"}

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// CSVBackend stores the ledger as one flat text table with a header row.
//
// Load accepts older layouts: columns are matched by header name, Type is
// read as Kind, and rows that carry separate Income / Expenses amounts are
// split into one entry per non-zero amount. Profile columns (CredentialHash,
// RiskAppetite, InvestmentPlan, Age, SavingGoals) are ignored. A Name column
// is never used as the owner; rows without Username are skipped.
type CSVBackend struct {
	path string
	log  *applog.Logger
}

func NewCSVBackend(path string, logger *applog.Logger) *CSVBackend {
	if logger == nil {
		logger = applog.Discard()
	}
	return &CSVBackend{path: path, log: logger.WithComponent(applog.ComponentLedger)}
}

func (b *CSVBackend) Path() string { return b.path }

func (b *CSVBackend) Load(ctx context.Context) (LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}
	f, err := os.Open(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return LoadResult{}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	return DecodeCSV(ctx, f, "", b.log)
}

// DecodeCSV reads a ledger table in any known layout. With owner set, rows
// without a Username belong to owner and rows of other users are skipped;
// with owner empty, rows without a Username are skipped.
func DecodeCSV(ctx context.Context, src io.Reader, owner string, logger *applog.Logger) (LoadResult, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return LoadResult{}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("read ledger header: %w", err)
	}
	cols := indexHeader(header)

	var res LoadResult
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return LoadResult{}, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			// a broken quote only spoils its own row
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Skipped++
				logger.WarnContext(ctx, "unreadable ledger row", "line", line, applog.FieldError, err)
				continue
			}
			return LoadResult{}, fmt.Errorf("read ledger row: %w", err)
		}

		entries, err := cols.parse(rec, owner)
		if err != nil {
			res.Skipped++
			logger.WarnContext(ctx, "skipping ledger row", "line", line, applog.FieldError, err)
			continue
		}
		res.Entries = append(res.Entries, entries...)
	}
	return res, nil
}

// Save writes the whole ledger to a temp file next to the target, syncs it
// and renames it over the target, so readers see either the old or the new
// file.
func (b *CSVBackend) Save(ctx context.Context, entries []models.Entry) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(canonicalHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		if err := w.Write(encodeRow(e)); err != nil {
			return fmt.Errorf("write entry %d: %w", e.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("swap ledger file: %w", err)
	}
	return nil
}

func encodeRow(e models.Entry) []string {
	date := ""
	if !e.Date.IsZero() {
		date = e.Date.Format(time.DateOnly)
	}
	return []string{
		SchemaVersion,
		strconv.FormatInt(e.ID, 10),
		e.Owner,
		date,
		string(e.Kind),
		e.Category,
		e.Amount.String(),
		e.Notes,
	}
}

type columns map[string]int

func indexHeader(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

// get returns the first non-empty value among the named columns.
func (c columns) get(rec []string, names ...string) string {
	for _, n := range names {
		if i, ok := c[n]; ok && i < len(rec) {
			if v := strings.TrimSpace(rec[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

func (c columns) parse(rec []string, defaultOwner string) ([]models.Entry, error) {
	owner := c.get(rec, "username")
	switch {
	case owner == "" && defaultOwner == "":
		return nil, errors.New("no username")
	case owner == "":
		owner = defaultOwner
	case defaultOwner != "" && !strings.EqualFold(owner, defaultOwner):
		return nil, fmt.Errorf("row belongs to %q", owner)
	case defaultOwner != "":
		owner = defaultOwner
	}

	base := models.Entry{
		Owner:    owner,
		Category: c.get(rec, "category"),
		Notes:    c.get(rec, "notes", "note"),
	}
	hasCategory := base.Category != ""
	if !hasCategory {
		base.Category = uncategorized
	}

	if raw := c.get(rec, "id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("bad id %q", raw)
		}
		base.ID = id
	}

	if raw := c.get(rec, "date"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		if !plausibleDate(d) {
			return nil, fmt.Errorf("implausible date %q", raw)
		}
		base.Date = civilDay(d)
	}

	if raw := c.get(rec, "kind", "type"); raw != "" {
		kind, ok := models.ParseEntryKind(raw)
		if !ok {
			return nil, fmt.Errorf("bad kind %q", raw)
		}
		amount, err := parseAmount(c.get(rec, "amount"))
		if err != nil {
			return nil, err
		}
		base.Kind = kind
		base.Amount = amount
		return []models.Entry{base}, nil
	}

	// legacy layout: one row may carry both an income and an expense amount
	var out []models.Entry
	income, err := parseAmount(c.get(rec, "income"))
	if err != nil {
		return nil, err
	}
	expense, err := parseAmount(c.get(rec, "expenses", "expense"))
	if err != nil {
		return nil, err
	}
	if income.IsPositive() {
		e := base
		e.ID = 0
		e.Kind = models.KindIncome
		e.Amount = income
		if !hasCategory {
			e.Category = "Income"
		}
		out = append(out, e)
	}
	if expense.IsPositive() {
		e := base
		e.ID = 0
		e.Kind = models.KindExpense
		e.Amount = expense
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, errors.New("no kind and no income/expense amount")
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}

// parseAmount treats an empty cell as zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return d, nil
}
