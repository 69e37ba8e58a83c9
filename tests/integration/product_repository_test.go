package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/internal/domain/catalog"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"github.com/wellnest/backend/internal/infrastructure/persistence"
	"github.com/wellnest/backend/tests/testutil"
)

func TestMain(m *testing.M) {
	code := m.Run()
	TerminateContainer()
	os.Exit(code)
}

func TestProductRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormProductRepository(testDB.DB)
	ctx := context.Background()

	t.Run("Save and find by id and slug", func(t *testing.T) {
		p := testutil.TestProduct(t, "triphala-churna", "349", 12, "100g", "250g")

		require.NoError(t, repo.Save(ctx, p))

		byID, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "triphala-churna", byID.Slug)
		assert.True(t, byID.Price.Amount().Equal(valueobject.MustINR("349").Amount()))
		assert.Equal(t, []string{"100g", "250g"}, byID.Variants)
		assert.Equal(t, 12, byID.Stock)

		bySlug, err := repo.FindBySlug(ctx, "TRIPHALA-CHURNA")
		require.NoError(t, err)
		assert.Equal(t, p.ID, bySlug.ID)
	})

	t.Run("Duplicate slug is rejected", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, testutil.TestProduct(t, "neem-soap", "99", 5)))

		err := repo.Save(ctx, testutil.TestProduct(t, "neem-soap", "120", 1))
		require.Error(t, err)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "ALREADY_EXISTS", de.Code)
	})

	t.Run("Missing product", func(t *testing.T) {
		_, err := repo.FindBySlug(ctx, "does-not-exist")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("FindByIDs skips unknown ids", func(t *testing.T) {
		a := testutil.TestProduct(t, "brahmi-oil", "299", 3)
		b := testutil.TestProduct(t, "tulsi-drops", "199", 3)
		require.NoError(t, repo.Save(ctx, a))
		require.NoError(t, repo.Save(ctx, b))

		found, err := repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})
}

func TestProductRepository_List_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormProductRepository(testDB.DB)
	ctx := context.Background()

	for _, slug := range []string{"moringa-powder", "moringa-capsules", "amla-juice", "shilajit-resin"} {
		require.NoError(t, repo.Save(ctx, testutil.TestProduct(t, slug, "250", 4)))
	}
	draft := testutil.TestProduct(t, "moringa-tea", "150", 4)
	draft.Status = catalog.ProductStatusInactive
	require.NoError(t, repo.Save(ctx, draft))
	soldOut := testutil.TestProduct(t, "amla-candy", "80", 0)
	require.NoError(t, repo.Save(ctx, soldOut))

	t.Run("Only active products by default", func(t *testing.T) {
		products, total, err := repo.List(ctx, catalog.ProductFilter{Filter: shared.Filter{Page: 1, PageSize: 20}})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, products, 5)
	})

	t.Run("Search is case-insensitive", func(t *testing.T) {
		products, total, err := repo.List(ctx, catalog.ProductFilter{Filter: shared.Filter{Page: 1, PageSize: 20, Search: "MORINGA"}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, p := range products {
			assert.Contains(t, p.Slug, "moringa")
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		page1, total, err := repo.List(ctx, catalog.ProductFilter{Filter: shared.Filter{Page: 1, PageSize: 2, OrderBy: "slug", OrderDir: "asc"}})
		require.NoError(t, err)
		page2, _, err := repo.List(ctx, catalog.ProductFilter{Filter: shared.Filter{Page: 2, PageSize: 2, OrderBy: "slug", OrderDir: "asc"}})
		require.NoError(t, err)

		assert.Equal(t, int64(5), total)
		require.Len(t, page1, 2)
		require.Len(t, page2, 2)
		assert.Equal(t, "amla-candy", page1[0].Slug)
		assert.NotEqual(t, page1[1].ID, page2[0].ID)
	})

	t.Run("In-stock filter", func(t *testing.T) {
		_, total, err := repo.List(ctx, catalog.ProductFilter{Filter: shared.Filter{Page: 1, PageSize: 20}, InStock: true})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
	})

	t.Run("Unknown sort field falls back", func(t *testing.T) {
		_, _, err := repo.List(ctx, catalog.ProductFilter{Filter: shared.Filter{Page: 1, PageSize: 20, OrderBy: "price; DROP TABLE products"}})
		require.NoError(t, err)
		assert.Equal(t, 6, countRows(t, testDB, "products"))
	})
}

func TestProductRepository_Stock_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormProductRepository(testDB.DB)
	ctx := context.Background()

	t.Run("Decrement is all or nothing", func(t *testing.T) {
		plenty := testDB.SeedProduct(testutil.TestProduct(t, "giloy-tablets", "199", 10))
		scarce := testDB.SeedProduct(testutil.TestProduct(t, "kesar-strands", "899", 1))

		err := repo.DecrementStock(ctx, []catalog.StockDecrement{
			{ProductID: plenty.ID, Quantity: 3},
			{ProductID: scarce.ID, Quantity: 2},
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, 10, testDB.StockOf(plenty))
		assert.Equal(t, 1, testDB.StockOf(scarce))
	})

	t.Run("Repeated lines are merged", func(t *testing.T) {
		p := testDB.SeedProduct(testutil.TestProduct(t, "castor-oil", "149", 5))

		require.NoError(t, repo.DecrementStock(ctx, []catalog.StockDecrement{
			{ProductID: p.ID, Quantity: 2},
			{ProductID: p.ID, Quantity: 3},
		}))
		assert.Equal(t, 0, testDB.StockOf(p))

		require.NoError(t, repo.RestoreStock(ctx, []catalog.StockDecrement{{ProductID: p.ID, Quantity: 4}}))
		assert.Equal(t, 4, testDB.StockOf(p))
	})

	t.Run("Decrement inside a rolled back transaction", func(t *testing.T) {
		p := testDB.SeedProduct(testutil.TestProduct(t, "ghee-500ml", "650", 6))
		db := testDB.Database()

		boom := errors.New("payment gateway down")
		err := db.Transaction(ctx, func(txCtx context.Context) error {
			if err := repo.DecrementStock(txCtx, []catalog.StockDecrement{{ProductID: p.ID, Quantity: 6}}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 6, testDB.StockOf(p))
	})

	t.Run("Concurrent buyers never oversell", func(t *testing.T) {
		p := testDB.SeedProduct(testutil.TestProduct(t, "chyawanprash", "420", 5))

		const buyers = 12
		var (
			wg        sync.WaitGroup
			sold      atomic.Int32
			soldOut   atomic.Int32
			unexpects = make(chan error, buyers)
		)
		for i := 0; i < buyers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.DecrementStock(ctx, []catalog.StockDecrement{{ProductID: p.ID, Quantity: 1}})
				switch {
				case err == nil:
					sold.Add(1)
				case errors.Is(err, shared.ErrInsufficientStock):
					soldOut.Add(1)
				default:
					unexpects <- err
				}
			}()
		}
		wg.Wait()
		close(unexpects)

		for err := range unexpects {
			t.Errorf("unexpected error: %v", err)
		}
		assert.Equal(t, int32(5), sold.Load())
		assert.Equal(t, int32(buyers-5), soldOut.Load())
		assert.Equal(t, 0, testDB.StockOf(p))
	})
}

func countRows(t *testing.T, testDB *TestDB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, testDB.DB.Raw("SELECT COUNT(*) FROM "+table).Scan(&n).Error)
	return n
}
