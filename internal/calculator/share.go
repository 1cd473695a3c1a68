package calculator

import "fmt"

// ShareCents splits a flat pass price evenly across a group.
// Leftover cents go to the first members so the shares always add up to
// the price. Amounts are for display; no money moves here.
func ShareCents(priceCents int64, headcount int) ([]int64, error) {
	if headcount <= 0 {
		return nil, fmt.Errorf("headcount must be positive, got %d", headcount)
	}
	if priceCents < 0 {
		return nil, fmt.Errorf("price cannot be negative, got %d", priceCents)
	}

	base := priceCents / int64(headcount)
	remainder := priceCents % int64(headcount)

	shares := make([]int64, headcount)
	for i := range shares {
		shares[i] = base
		if int64(i) < remainder {
			shares[i]++
		}
	}
	return shares, nil
}
