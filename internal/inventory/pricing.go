package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/nportas/stockai/internal/scanning"
)

// DefaultTaxRate applies when no supplier resolves for a line item
const DefaultTaxRate = 21.0

var oneHundred = decimal.NewFromInt(100)

// round2 rounds to the cent, half up
func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// GrossPrice computes the tax-inclusive unit price for a pre-tax price and
// a supplier surcharge rate (percent), rounded to the cent half up.
func GrossPrice(precio, rate float64) float64 {
	p := decimal.NewFromFloat(precio)
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(rate).Div(oneHundred))
	return round2(p.Mul(factor))
}

// TaxRateFor returns a supplier's surcharge rate, or the default when the
// supplier is unresolved or carries no rate
func TaxRateFor(proveedor *Supplier) float64 {
	if proveedor == nil || proveedor.Impuesto <= 0 {
		return DefaultTaxRate
	}
	return proveedor.Impuesto
}

// PriceProducts fills in precio_con_impuestos on every priced line item.
// Bonus lines (no price, or price zero) pass through untouched: no tax is
// ever applied to them.
func PriceProducts(productos []scanning.DetectedProduct, rate float64) []scanning.DetectedProduct {
	priced := make([]scanning.DetectedProduct, len(productos))
	copy(priced, productos)
	for i := range priced {
		p := priced[i].PrecioSinImpuestos
		if p == nil || *p == 0 {
			continue
		}
		gross := GrossPrice(*p, rate)
		priced[i].PrecioConImpuestos = &gross
	}
	return priced
}

// Summarize computes the invoice-level summary over the priced line items:
// subtotal, tax amount and total, each rounded to the cent independently
// from the unrounded subtotal. Summing the already-rounded per-line totals
// can differ by a cent; that drift is accepted. Returns nil when no line
// carries a price.
func Summarize(productos []scanning.DetectedProduct, rate float64) *InvoiceSummary {
	subtotal := decimal.Zero
	hasPriced := false
	for _, prod := range productos {
		if prod.EsBonificacion || prod.PrecioSinImpuestos == nil || *prod.PrecioSinImpuestos == 0 {
			continue
		}
		hasPriced = true
		linea := decimal.NewFromFloat(*prod.PrecioSinImpuestos).Mul(decimal.NewFromInt(int64(prod.Cantidad)))
		subtotal = subtotal.Add(linea)
	}
	if !hasPriced {
		return nil
	}

	impuestos := subtotal.Mul(decimal.NewFromFloat(rate)).Div(oneHundred)
	total := subtotal.Add(impuestos)

	return &InvoiceSummary{
		Subtotal:  round2(subtotal),
		Impuestos: round2(impuestos),
		Total:     round2(total),
	}
}
