package checkout

import (
	"bakehouse/internal/model"
)

// PricedLine is one cart line after product/variant resolution, with prices
// snapshotted in minor units.
type PricedLine struct {
	Product   model.Product
	Variant   *model.ProductVariant
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

// priceLine computes unit price as base price plus the variant adjustment
// (zero without a variant).
func priceLine(p model.Product, v *model.ProductVariant, quantity int) PricedLine {
	unit := p.BasePrice
	if v != nil {
		unit += v.PriceAdjustment
	}
	return PricedLine{
		Product:   p,
		Variant:   v,
		Quantity:  quantity,
		UnitPrice: unit,
		LineTotal: unit * int64(quantity),
	}
}

// subtotal sums line totals.
func subtotal(lines []PricedLine) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.LineTotal
	}
	return sum
}

// orderTotal applies the delivery fee and discount, clamped at zero.
func orderTotal(subtotal, deliveryFee, discount int64) int64 {
	t := subtotal + deliveryFee - discount
	if t < 0 {
		return 0
	}
	return t
}
