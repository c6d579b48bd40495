package store

import (
	"context"
	"sync"
	"testing"

	"bakehouse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, st *Store, name string, stock *int64) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, BasePrice: 350, Active: true, StockQuantity: stock}
	require.NoError(t, st.Inventory.db.Create(p).Error)
	return p
}

func TestDecrementStock(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p := seedProduct(t, st, "Sourdough Loaf", int64p(5))

	got, err := st.Inventory.DecrementStock(ctx, p.ID, 3)
	require.NoError(t, err)
	require.NotNil(t, got.StockQuantity)
	assert.Equal(t, int64(2), *got.StockQuantity)

	// Reducing below zero must fail and leave stock untouched.
	_, err = st.Inventory.DecrementStock(ctx, p.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err = st.Inventory.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *got.StockQuantity)

	_, err = st.Inventory.DecrementStock(ctx, p.ID, 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestDecrementStockMissingProduct(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Inventory.DecrementStock(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecrementStockRejectsNonPositiveQuantity(t *testing.T) {
	st := newTestStore(t)
	p := seedProduct(t, st, "Bagel", int64p(5))
	_, err := st.Inventory.DecrementStock(context.Background(), p.ID, 0)
	assert.Error(t, err)
	_, err = st.Inventory.DecrementStock(context.Background(), p.ID, -2)
	assert.Error(t, err)
}

func TestIncrementStockRestores(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p := seedProduct(t, st, "Croissant", int64p(1))

	_, err := st.Inventory.DecrementStock(ctx, p.ID, 1)
	require.NoError(t, err)

	got, err := st.Inventory.IncrementStock(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), *got.StockQuantity)
}

func TestConcurrentDecrementNeverOversells(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p := seedProduct(t, st, "Limited Cake", int64p(1))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = st.Inventory.DecrementStock(ctx, p.ID, 1)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, wins, "exactly one reservation may win the single unit")

	final, err := st.Inventory.FindByIDs(ctx, []uint{p.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), *final[p.ID].StockQuantity)
}

func TestActiveVariantsForProducts(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	p := seedProduct(t, st, "Focaccia", nil)

	require.NoError(t, st.Inventory.db.Create(&model.ProductVariant{
		ProductID: p.ID, Name: "Large", PriceAdjustment: 150, Active: true,
	}).Error)
	require.NoError(t, st.Inventory.db.Create(&model.ProductVariant{
		ProductID: p.ID, Name: "Retired", PriceAdjustment: 0, Active: false,
	}).Error)

	got, err := st.Inventory.ActiveVariantsForProducts(ctx, []uint{p.ID})
	require.NoError(t, err)
	require.Len(t, got[p.ID], 1)
	assert.Equal(t, "Large", got[p.ID][0].Name)
}
