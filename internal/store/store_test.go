package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invoice-rag/internal/models"
	"invoice-rag/pkg/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, zap.NewNop()).Run())

	return New(db, NewHashEmbedder(64), zap.NewNop())
}

func sampleRecord(invoiceID, employee, status string) models.AnalysisRecord {
	return models.AnalysisRecord{
		InvoiceID:    invoiceID,
		FilePath:     "inv/" + invoiceID,
		Status:       status,
		Reason:       "reason for " + invoiceID,
		EmployeeName: employee,
		FolderName:   "inv",
	}
}

func TestStore_SaveAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleRecord("a1.pdf", "employee_1_inv", models.StatusFullyReimbursed), "taxi receipt"))
	require.NoError(t, store.Save(ctx, sampleRecord("a2.pdf", "employee_2_inv", models.StatusDeclined), "hotel bill"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_Search(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleRecord("taxi1.pdf", "employee_1_inv", models.StatusFullyReimbursed),
		"taxi fare to the airport"))
	require.NoError(t, store.Save(ctx, sampleRecord("hotel1.pdf", "employee_2_inv", models.StatusDeclined),
		"hotel accommodation three nights"))

	results, err := store.Search(ctx, "taxi fare", nil, 5)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "taxi1.pdf", results[0].Record.InvoiceID, "most similar record first")
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
	assert.NotEmpty(t, results[0].ID)
	assert.Contains(t, results[0].Document, "taxi fare to the airport")
}

func TestStore_Search_TopK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		rec := sampleRecord("x.pdf", "employee_1_inv", models.StatusDeclined)
		require.NoError(t, store.Save(ctx, rec, "some invoice text"))
	}

	results, err := store.Search(ctx, "invoice", nil, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// topK <= 0 falls back to the default of 5
	results, err = store.Search(ctx, "invoice", nil, 0)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestStore_Search_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleRecord("a1.pdf", "employee_1_inv", models.StatusFullyReimbursed), "doc a"))
	require.NoError(t, store.Save(ctx, sampleRecord("a2.pdf", "employee_1_inv", models.StatusDeclined), "doc b"))
	require.NoError(t, store.Save(ctx, sampleRecord("a3.pdf", "employee_2_inv", models.StatusDeclined), "doc c"))

	t.Run("filter by employee", func(t *testing.T) {
		results, err := store.Search(ctx, "doc", map[string]string{"employee_name": "employee_1_inv"}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("filter by employee and status", func(t *testing.T) {
		results, err := store.Search(ctx, "doc", map[string]string{
			"employee_name": "employee_1_inv",
			"status":        models.StatusDeclined,
		}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "a2.pdf", results[0].Record.InvoiceID)
	})

	t.Run("unknown filter keys are ignored", func(t *testing.T) {
		results, err := store.Search(ctx, "doc", map[string]string{
			"reason":        "x; DROP TABLE analysis_records",
			"employee_name": "employee_2_inv",
		}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("empty filter values are ignored", func(t *testing.T) {
		results, err := store.Search(ctx, "doc", map[string]string{"employee_name": ""}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("no match", func(t *testing.T) {
		results, err := store.Search(ctx, "doc", map[string]string{"employee_name": "nobody"}, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestStore_Search_EmptyStore(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "anything", nil, 5)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBuildWhere(t *testing.T) {
	t.Run("no filters", func(t *testing.T) {
		where, args := buildWhere(nil)
		assert.Empty(t, where)
		assert.Empty(t, args)
	})

	t.Run("deterministic clause order", func(t *testing.T) {
		where, args := buildWhere(map[string]string{
			"status":        "Declined",
			"employee_name": "employee_1_x",
		})
		assert.Equal(t, " WHERE employee_name = ? AND status = ?", where)
		assert.Equal(t, []interface{}{"employee_1_x", "Declined"}, args)
	})
}
