// Package ledger keeps the append-only collection of dated income and
// expense entries, partitioned by username.
//
// The Store holds an immutable in-memory snapshot. Every write builds the
// next snapshot, hands it to a Backend for a full rewrite, and swaps it in
// only after the backend confirmed the write.
package ledger

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "finora/internal/log"
	"finora/internal/models"

	"github.com/shopspring/decimal"
)

// EntryID identifies an entry within the whole ledger.
type EntryID int64

const (
	maxCategoryLen = 32
	maxNotesLen    = 255

	// entry dates outside these years are typos, not history
	minYear = 1900
	maxYear = 9999
)

func plausibleDate(t time.Time) bool {
	y := t.Year()
	return y >= minYear && y <= maxYear
}

// Backend persists the full ledger. Save must replace the previous state
// atomically or leave it untouched.
type Backend interface {
	Load(ctx context.Context) (LoadResult, error)
	Save(ctx context.Context, entries []models.Entry) error
}

// LoadResult is what a backend could read. Skipped counts rows that were
// dropped during schema reconciliation.
type LoadResult struct {
	Entries []models.Entry
	Skipped int
}

// OwnerChecker tells whether a username belongs to a registered user.
type OwnerChecker interface {
	Exists(ctx context.Context, username string) (bool, error)
}

type Store struct {
	mu      sync.Mutex // serializes read-modify-write
	backend Backend
	owners  OwnerChecker
	log     *applog.Logger

	snapshot atomic.Pointer[[]models.Entry]
	nextID   int64
}

// Open builds a Store over backend and loads its current state.
// owners may be nil, in which case owner existence is not checked.
func Open(ctx context.Context, backend Backend, owners OwnerChecker, logger *applog.Logger) (*Store, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	s := &Store{
		backend: backend,
		owners:  owners,
		log:     logger.WithComponent(applog.ComponentLedger),
	}
	empty := []models.Entry{}
	s.snapshot.Store(&empty)
	s.nextID = 1

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Append validates e, persists it for owner and returns its id. The entry
// is durable when Append returns nil.
func (s *Store) Append(ctx context.Context, owner string, e models.Entry) (EntryID, error) {
	e, err := s.prepare(ctx, owner, e)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.snapshot.Load()
	e.ID = s.nextID
	next := make([]models.Entry, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, e)

	if err := s.backend.Save(ctx, next); err != nil {
		return 0, &PersistenceError{Op: applog.OpAppend, Err: err}
	}
	s.snapshot.Store(&next)
	s.nextID++

	s.log.DebugContext(ctx, "entry appended",
		applog.FieldUsername, e.Owner,
		applog.FieldEntryID, e.ID,
		applog.FieldKind, e.Kind,
		applog.FieldCategory, e.Category)
	return EntryID(e.ID), nil
}

// Import appends the entries of owner that are not already present, in
// one write. Entries are matched by content (date, kind, category, amount,
// notes) with multiplicity, so importing the same set twice adds nothing.
func (s *Store) Import(ctx context.Context, owner string, entries []models.Entry) (int, error) {
	prepared := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		p, err := s.prepare(ctx, owner, e)
		if err != nil {
			return 0, err
		}
		prepared = append(prepared, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.snapshot.Load()
	have := make(map[string]int)
	for _, e := range cur {
		if e.Owner == owner {
			have[fingerprint(e)]++
		}
	}

	next := slices.Clone(cur)
	id := s.nextID
	for _, e := range prepared {
		fp := fingerprint(e)
		if have[fp] > 0 {
			have[fp]--
			continue
		}
		e.ID = id
		id++
		next = append(next, e)
	}
	added := len(next) - len(cur)
	if added == 0 {
		return 0, nil
	}

	if err := s.backend.Save(ctx, next); err != nil {
		return 0, &PersistenceError{Op: "import", Err: err}
	}
	s.snapshot.Store(&next)
	s.nextID = id
	return added, nil
}

// ListFor returns owner's entries ordered by date, ties in insertion order.
// The sequence is lazy and restartable; each iteration reads the ledger as
// it is when the iteration starts.
func (s *Store) ListFor(owner string) iter.Seq[models.Entry] {
	return func(yield func(models.Entry) bool) {
		cur := *s.snapshot.Load()
		owned := make([]models.Entry, 0, len(cur))
		for _, e := range cur {
			if e.Owner == owner {
				owned = append(owned, e)
			}
		}
		slices.SortStableFunc(owned, func(a, b models.Entry) int {
			return a.Date.Compare(b.Date)
		})
		for _, e := range owned {
			if !yield(e) {
				return
			}
		}
	}
}

// Reload re-reads the persisted ledger. On failure the in-memory state is
// kept as it was.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.backend.Load(ctx)
	if err != nil {
		return &PersistenceError{Op: applog.OpReload, Err: err}
	}

	entries := res.Entries
	if entries == nil {
		entries = []models.Entry{}
	}
	var maxID int64
	for _, e := range entries {
		maxID = max(maxID, e.ID)
	}
	// rows from older schemas may carry no id; number them in file order
	for i := range entries {
		if entries[i].ID == 0 {
			maxID++
			entries[i].ID = maxID
		}
	}

	s.snapshot.Store(&entries)
	s.nextID = maxID + 1

	if res.Skipped > 0 {
		s.log.WarnContext(ctx, "ledger rows skipped during reload",
			applog.FieldSkipped, res.Skipped, applog.FieldCount, len(entries))
	} else {
		s.log.DebugContext(ctx, "ledger reloaded", applog.FieldCount, len(entries))
	}
	return nil
}

// Len returns the number of entries across all owners.
func (s *Store) Len() int {
	return len(*s.snapshot.Load())
}

func (s *Store) prepare(ctx context.Context, owner string, e models.Entry) (models.Entry, error) {
	e.Owner = strings.TrimSpace(owner)
	e.Category = strings.TrimSpace(e.Category)
	e.Notes = strings.TrimSpace(e.Notes)
	e.Date = civilDay(e.Date)
	e.ID = 0

	if err := Validate(e); err != nil {
		return e, err
	}

	if s.owners != nil {
		ok, err := s.owners.Exists(ctx, e.Owner)
		if err != nil {
			return e, &PersistenceError{Op: "lookup owner", Err: err}
		}
		if !ok {
			return e, &ValidationError{Field: "owner", Reason: fmt.Sprintf("unknown user %q", e.Owner)}
		}
	}
	return e, nil
}

// Validate checks the entry invariants: known kind, non-negative amount
// with at most two decimals, a date, and a short non-empty category.
func Validate(e models.Entry) error {
	if e.Owner == "" {
		return &ValidationError{Field: "owner", Reason: "is empty"}
	}
	if !e.Kind.Valid() {
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("%q is not Income or Expense", e.Kind)}
	}
	if e.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if !e.Amount.Equal(e.Amount.Truncate(2)) {
		return &ValidationError{Field: "amount", Reason: "at most two decimal places"}
	}
	if e.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	if !plausibleDate(e.Date) {
		return &ValidationError{Field: "date", Reason: fmt.Sprintf("year must be between %d and %d", minYear, maxYear)}
	}
	if e.Category == "" {
		return &ValidationError{Field: "category", Reason: "is required"}
	}
	if len([]rune(e.Category)) > maxCategoryLen {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("longer than %d characters", maxCategoryLen)}
	}
	if len([]rune(e.Notes)) > maxNotesLen {
		return &ValidationError{Field: "notes", Reason: fmt.Sprintf("longer than %d characters", maxNotesLen)}
	}
	return nil
}

// civilDay drops the time of day; entries are dated, not timestamped.
func civilDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fingerprint(e models.Entry) string {
	return strings.Join([]string{
		e.Date.Format(time.DateOnly),
		string(e.Kind),
		e.Category,
		e.Amount.StringFixed(2),
		e.Notes,
	}, "\x1f")
}

// Amount parses a user supplied amount.
func Amount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "not a number"}
	}
	return d, nil
}
