package pricing

import "math"

// Money represents a monetary value in minor currency units (öre).
type Money = float64

// OrderLine describes a single product entry within an order.
type OrderLine struct {
	StockID    string  `json:"stockId"`
	LineInfo   string  `json:"lineInfo"`
	Quantity   int     `json:"quantity"`
	UnitPrice  Money   `json:"unitPrice"`
	VATPercent float64 `json:"vatPercent"`
}

// OrderLineWithCalculations extends an OrderLine with derived amounts.
// Derived fields are recomputed whenever inputs change and never persisted
// independently of their source line.
type OrderLineWithCalculations struct {
	OrderLine
	VATAmount Money `json:"vatAmount"`
	LineTotal Money `json:"lineTotal"`
}

// OrderTotals aggregates computed amounts over an order.
type OrderTotals struct {
	Subtotal   Money `json:"subtotal"`
	VATTotal   Money `json:"vatTotal"`
	GrandTotal Money `json:"grandTotal"`
}

// VAT returns the rounded tax amount for the given amount and rate. Zero
// amount or zero rate yields zero. Rounding is half away from zero, matching
// display arithmetic elsewhere in the storefront.
func VAT(amount Money, vatPercent float64) Money {
	if amount == 0 || vatPercent == 0 {
		return 0
	}
	return math.Round(amount * vatPercent / 100)
}

// LineTotal computes the total for one line. VAT is computed on the extended
// subtotal (unit price times quantity), not per unit: rounding per-unit VAT
// first and multiplying can land on a different öre value.
func LineTotal(unitPrice Money, quantity int, vatPercent float64) Money {
	subtotal := unitPrice * Money(quantity)
	return subtotal + VAT(subtotal, vatPercent)
}

// ComputeLines derives VAT and totals for each line independently. Empty
// input yields empty output.
func ComputeLines(lines []OrderLine) []OrderLineWithCalculations {
	out := make([]OrderLineWithCalculations, 0, len(lines))
	for _, line := range lines {
		subtotal := line.UnitPrice * Money(line.Quantity)
		vat := VAT(subtotal, line.VATPercent)
		out = append(out, OrderLineWithCalculations{
			OrderLine: line,
			VATAmount: vat,
			LineTotal: subtotal + vat,
		})
	}
	return out
}

// ComputeTotals aggregates line amounts into order totals. Each aggregate is
// rounded to two decimals after summation to absorb floating-point drift
// from repeated addition. The per-line VAT was already rounded on the
// extended subtotal, so the sum of displayed line totals can differ from the
// displayed grand total by one öre for some input combinations; that
// behaviour is preserved as observed.
func ComputeTotals(lines []OrderLineWithCalculations) OrderTotals {
	var subtotal, vatTotal, grandTotal Money
	for _, line := range lines {
		subtotal += line.UnitPrice * Money(line.Quantity)
		vatTotal += line.VATAmount
		grandTotal += line.LineTotal
	}
	return OrderTotals{
		Subtotal:   round2(subtotal),
		VATTotal:   round2(vatTotal),
		GrandTotal: round2(grandTotal),
	}
}

// ValidateLines recomputes every derived value from raw inputs and compares
// it to the stored value. It also requires non-negative unit price and VAT
// rate and a positive quantity. Vacuously true for empty input. The
// calculation functions trust their inputs; this is the explicit audit for
// callers that want to verify before or after the fact.
func ValidateLines(lines []OrderLineWithCalculations) bool {
	for _, line := range lines {
		if line.UnitPrice < 0 || line.Quantity <= 0 || line.VATPercent < 0 {
			return false
		}
		subtotal := line.UnitPrice * Money(line.Quantity)
		if line.VATAmount != VAT(subtotal, line.VATPercent) {
			return false
		}
		if line.LineTotal != LineTotal(line.UnitPrice, line.Quantity, line.VATPercent) {
			return false
		}
	}
	return true
}

func round2(v Money) Money {
	return math.Round(v*100) / 100
}
