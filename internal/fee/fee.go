// Package fee implements the basis-points fee deduction applied to freshly
// minted receipt units.
package fee

// Denominator is the basis-points scale: 10000 bps = 100%.
const Denominator = 10000

// DefaultBps is the standard pool fee, 30 bps (0.3%).
const DefaultBps = 30

// Model computes the fee deduction on minted unit amounts. The zero value
// charges no fee.
type Model struct {
	Bps uint64 // fee in basis points, must be < Denominator
}

// Default returns the standard 0.3% fee model.
func Default() Model {
	return Model{Bps: DefaultBps}
}

// Apply returns units after the fee deduction, rounding down. Pure and
// total: never errors, never rounds up.
func (m Model) Apply(units uint64) uint64 {
	if m.Bps == 0 {
		return units
	}
	return units * (Denominator - m.Bps) / Denominator
}

// Take returns the fee portion itself, i.e. units - Apply(units).
func (m Model) Take(units uint64) uint64 {
	return units - m.Apply(units)
}
