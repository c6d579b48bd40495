package checkout

import (
	"testing"

	"bakehouse/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestPriceLine(t *testing.T) {
	p := model.Product{Name: "Cake", BasePrice: 500}

	plain := priceLine(p, nil, 3)
	assert.Equal(t, int64(500), plain.UnitPrice)
	assert.Equal(t, int64(1500), plain.LineTotal)

	large := priceLine(p, &model.ProductVariant{Name: "Large", PriceAdjustment: 150}, 2)
	assert.Equal(t, int64(650), large.UnitPrice)
	assert.Equal(t, int64(1300), large.LineTotal)

	// Adjustments can be negative (mini sizes).
	mini := priceLine(p, &model.ProductVariant{Name: "Mini", PriceAdjustment: -200}, 1)
	assert.Equal(t, int64(300), mini.UnitPrice)
}

func TestSubtotal(t *testing.T) {
	lines := []PricedLine{
		{LineTotal: 700},
		{LineTotal: 1300},
	}
	assert.Equal(t, int64(2000), subtotal(lines))
	assert.Equal(t, int64(0), subtotal(nil))
}

func TestOrderTotal(t *testing.T) {
	assert.Equal(t, int64(1800), orderTotal(2000, 0, 200))
	assert.Equal(t, int64(2300), orderTotal(2000, 500, 200))
	// Discounts never drive the total negative.
	assert.Equal(t, int64(0), orderTotal(100, 0, 500))
}
