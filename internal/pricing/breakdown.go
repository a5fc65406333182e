package pricing

// RateBreakdown summarises the lines carrying one VAT rate.
type RateBreakdown struct {
	Subtotal  Money `json:"subtotal"`
	VATAmount Money `json:"vatAmount"`
	LineCount int   `json:"lineCount"`
}

// GroupByVATPercent buckets lines by their VAT rate.
func GroupByVATPercent(lines []OrderLine) map[float64][]OrderLine {
	groups := make(map[float64][]OrderLine, len(lines))
	for _, line := range lines {
		groups[line.VATPercent] = append(groups[line.VATPercent], line)
	}
	return groups
}

// VATBreakdown reports, per VAT rate, the extended subtotal and the VAT
// charged on it. VAT is computed per line on the extended subtotal, the same
// way ComputeLines does, so the breakdown reconciles with the line amounts.
func VATBreakdown(lines []OrderLine) map[float64]RateBreakdown {
	breakdown := make(map[float64]RateBreakdown, len(lines))
	for rate, group := range GroupByVATPercent(lines) {
		entry := breakdown[rate]
		for _, line := range group {
			subtotal := line.UnitPrice * Money(line.Quantity)
			entry.Subtotal += subtotal
			entry.VATAmount += VAT(subtotal, line.VATPercent)
			entry.LineCount++
		}
		breakdown[rate] = entry
	}
	return breakdown
}

// AverageVAT returns the arithmetic mean VAT rate over the lines, zero when
// there are none.
func AverageVAT(lines []OrderLine) float64 {
	if len(lines) == 0 {
		return 0
	}
	var sum float64
	for _, line := range lines {
		sum += line.VATPercent
	}
	return sum / float64(len(lines))
}

// TotalQuantity sums the quantities across all lines.
func TotalQuantity(lines []OrderLine) int {
	var total int
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}
