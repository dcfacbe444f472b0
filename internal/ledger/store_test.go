package ledger

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"finora/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend keeps the last saved ledger in memory and can be told to fail.
type memBackend struct {
	mu       sync.Mutex
	saved    []models.Entry
	saves    int
	failSave error
	failLoad error
}

func (m *memBackend) Load(ctx context.Context) (LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad != nil {
		return LoadResult{}, m.failLoad
	}
	return LoadResult{Entries: slices.Clone(m.saved)}, nil
}

func (m *memBackend) Save(ctx context.Context, entries []models.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.saves++
	m.saved = slices.Clone(entries)
	return nil
}

type ownerSet map[string]bool

func (o ownerSet) Exists(ctx context.Context, username string) (bool, error) {
	return o[username], nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func entry(kind models.EntryKind, category, amount string, date time.Time) models.Entry {
	return models.Entry{
		Date:     date,
		Kind:     kind,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
	}
}

func openStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	s, err := Open(context.Background(), backend, ownerSet{"alice": true, "bob": true}, nil)
	require.NoError(t, err)
	return s
}

func TestAppend_AssignsIDsAndPersists(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := openStore(t, backend)

	id1, err := s.Append(ctx, "alice", entry(models.KindIncome, "Salary", "1000", day(2025, 1, 1)))
	require.NoError(t, err)
	id2, err := s.Append(ctx, "alice", entry(models.KindExpense, "Food", "200", day(2025, 1, 2)))
	require.NoError(t, err)

	assert.Equal(t, EntryID(1), id1)
	assert.Equal(t, EntryID(2), id2)
	assert.Equal(t, 2, backend.saves, "every append rewrites the backend")
	assert.Len(t, backend.saved, 2)
}

func TestAppend_Validation(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, &memBackend{})

	cases := []struct {
		name  string
		owner string
		e     models.Entry
		field string
	}{
		{"negative amount", "alice", entry(models.KindExpense, "Food", "-1", day(2025, 1, 1)), "amount"},
		{"too many decimals", "alice", entry(models.KindExpense, "Food", "1.001", day(2025, 1, 1)), "amount"},
		{"unknown kind", "alice", entry("Transfer", "Food", "1", day(2025, 1, 1)), "kind"},
		{"missing category", "alice", entry(models.KindExpense, "  ", "1", day(2025, 1, 1)), "category"},
		{"missing date", "alice", entry(models.KindExpense, "Food", "1", time.Time{}), "date"},
		{"ancient date", "alice", entry(models.KindExpense, "Food", "1", day(2, 1, 1)), "date"},
		{"year before 1900", "alice", entry(models.KindExpense, "Food", "1", day(1899, 12, 31)), "date"},
		{"unknown owner", "mallory", entry(models.KindExpense, "Food", "1", day(2025, 1, 1)), "owner"},
		{"empty owner", "", entry(models.KindExpense, "Food", "1", day(2025, 1, 1)), "owner"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Append(ctx, tc.owner, tc.e)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
	assert.Equal(t, 0, s.Len(), "rejected entries must not be stored")
}

func TestAppend_EarliestYearIsAllowed(t *testing.T) {
	s := openStore(t, &memBackend{})
	_, err := s.Append(context.Background(), "alice", entry(models.KindExpense, "Food", "1", day(1900, 1, 1)))
	assert.NoError(t, err)
}

func TestAppend_ZeroAmountIsAllowed(t *testing.T) {
	s := openStore(t, &memBackend{})
	_, err := s.Append(context.Background(), "alice", entry(models.KindExpense, "Food", "0", day(2025, 1, 1)))
	assert.NoError(t, err)
}

func TestAppend_PersistenceFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := openStore(t, backend)

	_, err := s.Append(ctx, "alice", entry(models.KindIncome, "Salary", "10", day(2025, 1, 1)))
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	backend.failSave = diskFull
	_, err = s.Append(ctx, "alice", entry(models.KindExpense, "Food", "5", day(2025, 1, 2)))

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, 1, s.Len())

	// the failed id is not burned
	backend.failSave = nil
	id, err := s.Append(ctx, "alice", entry(models.KindExpense, "Food", "5", day(2025, 1, 2)))
	require.NoError(t, err)
	assert.Equal(t, EntryID(2), id)
}

func TestListFor_OrderAndPartition(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, &memBackend{})

	mustAppend := func(owner string, e models.Entry) {
		_, err := s.Append(ctx, owner, e)
		require.NoError(t, err)
	}
	mustAppend("alice", entry(models.KindExpense, "Rent", "500", day(2025, 2, 1)))
	mustAppend("alice", entry(models.KindIncome, "Salary", "1000", day(2025, 1, 1)))
	mustAppend("bob", entry(models.KindExpense, "Food", "7", day(2025, 1, 1)))
	mustAppend("alice", entry(models.KindExpense, "Food", "200", day(2025, 2, 1)))
	// time of day is dropped, so this ties with the two February entries
	mustAppend("alice", entry(models.KindExpense, "Transport", "3", time.Date(2025, 2, 1, 23, 0, 0, 0, time.UTC)))

	got := slices.Collect(s.ListFor("alice"))
	require.Len(t, got, 4)

	var categories []string
	for _, e := range got {
		assert.Equal(t, "alice", e.Owner)
		categories = append(categories, e.Category)
	}
	assert.Equal(t, []string{"Salary", "Rent", "Food", "Transport"}, categories)

	bobs := slices.Collect(s.ListFor("bob"))
	require.Len(t, bobs, 1)
	assert.Equal(t, "Food", bobs[0].Category)
}

func TestListFor_IdempotentAndRestartable(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, &memBackend{})
	for i := 1; i <= 3; i++ {
		_, err := s.Append(ctx, "alice", entry(models.KindExpense, "Food", "1", day(2025, 1, i)))
		require.NoError(t, err)
	}

	seq := s.ListFor("alice")
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)

	// stopping early is fine and does not affect the next pass
	for range seq {
		break
	}
	assert.Len(t, slices.Collect(seq), 3)
}

func TestListFor_SeesAppendsOnNextIteration(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, &memBackend{})
	seq := s.ListFor("alice")
	assert.Empty(t, slices.Collect(seq))

	_, err := s.Append(ctx, "alice", entry(models.KindIncome, "Salary", "1", day(2025, 1, 1)))
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 1)
}

func TestReload_FailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := openStore(t, backend)
	_, err := s.Append(ctx, "alice", entry(models.KindIncome, "Salary", "1", day(2025, 1, 1)))
	require.NoError(t, err)

	backend.failLoad = errors.New("io error")
	var perr *PersistenceError
	require.ErrorAs(t, s.Reload(ctx), &perr)
	assert.Equal(t, 1, s.Len())
}

func TestReload_NumbersEntriesWithoutID(t *testing.T) {
	backend := &memBackend{saved: []models.Entry{
		{ID: 7, Owner: "alice", Kind: models.KindIncome, Category: "Salary", Date: day(2025, 1, 1)},
		{Owner: "alice", Kind: models.KindExpense, Category: "Food", Date: day(2025, 1, 1)},
	}}
	s := openStore(t, backend)

	got := slices.Collect(s.ListFor("alice"))
	require.Len(t, got, 2)
	assert.Equal(t, int64(7), got[0].ID)
	assert.Equal(t, int64(8), got[1].ID)

	id, err := s.Append(context.Background(), "alice", entry(models.KindExpense, "Rent", "1", day(2025, 1, 2)))
	require.NoError(t, err)
	assert.Equal(t, EntryID(9), id)
}

func TestImport_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, &memBackend{})
	_, err := s.Append(ctx, "alice", entry(models.KindExpense, "Food", "4.50", day(2025, 1, 1)))
	require.NoError(t, err)

	batch := []models.Entry{
		entry(models.KindExpense, "Food", "4.5", day(2025, 1, 1)), // already present
		entry(models.KindExpense, "Food", "4.5", day(2025, 1, 1)), // a second coffee
		entry(models.KindIncome, "Salary", "900", day(2025, 1, 3)),
	}
	added, err := s.Import(ctx, "alice", batch)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = s.Import(ctx, "alice", batch)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Len(t, slices.Collect(s.ListFor("alice")), 3)
}

func TestImport_RejectsWholeBatchOnInvalidEntry(t *testing.T) {
	s := openStore(t, &memBackend{})
	_, err := s.Import(context.Background(), "alice", []models.Entry{
		entry(models.KindIncome, "Salary", "1", day(2025, 1, 1)),
		entry(models.KindExpense, "Food", "-1", day(2025, 1, 1)),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, s.Len())
}

func TestAppend_ConcurrentWritersAreSerialized(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	s := openStore(t, backend)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		owner := "alice"
		if i%2 == 1 {
			owner = "bob"
		}
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, owner, entry(models.KindExpense, "Food", "1", day(2025, 1, 1)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
	assert.Len(t, backend.saved, 20, "last rewrite must contain every entry")
	seen := map[int64]bool{}
	for _, e := range backend.saved {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
	}
}

func TestAmount(t *testing.T) {
	d, err := Amount(" 12.34 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("12.34")))

	_, err = Amount("twelve")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
