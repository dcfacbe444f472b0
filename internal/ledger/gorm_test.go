package ledger

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"finora/internal/config"
	"finora/internal/database"
	"finora/internal/models"

	"github.com/stretchr/testify/require"
)

func TestGormBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := database.Init(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "ledger.db")})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))

	s := openStore(t, NewGormBackend(db))
	_, err = s.Append(ctx, "alice", entry(models.KindIncome, "Salary", "1000.5", day(2025, 4, 1)))
	require.NoError(t, err)
	_, err = s.Append(ctx, "alice", entry(models.KindExpense, "Rent", "500", day(2025, 4, 2)))
	require.NoError(t, err)
	before := slices.Collect(s.ListFor("alice"))

	require.NoError(t, s.Reload(ctx))
	after := slices.Collect(s.ListFor("alice"))
	require.Len(t, after, 2)
	for i := range before {
		assertSameEntry(t, before[i], after[i])
	}
}
