package pool

import "math/big"

// Accounting constants. The reserve asset uses 8-decimal smallest units,
// the receipt token 6-decimal smallest units.
const (
	// MinLiquidity is the bootstrap floor in reserve smallest units
	// (100000 = 0.001 of the whole reserve unit).
	MinLiquidity = 100_000

	// UnitScaleDivisor converts a reserve amount (8 decimals) into receipt
	// units (6 decimals) at the bootstrap 1:1 value ratio. A straight unit
	// conversion, not a ratio calculation.
	UnitScaleDivisor = 100

	// FlatUnitAmount is the fixed per-depositor mint under the flat-unit
	// policy: 1.0 receipt token at 6 decimals.
	FlatUnitAmount = 1_000_000

	// USDUnitScale scales the advisory USD-to-units conversion.
	USDUnitScale = 1_000_000
)

// BootstrapUnits converts the first deposit into receipt units by decimal
// rebasing: reserveAmount / UnitScaleDivisor.
func BootstrapUnits(reserveAmount uint64) uint64 {
	return reserveAmount / UnitScaleDivisor
}

// ProportionalUnits computes the canonical LP-share mint for a deposit:
// floor(reserveAmount * totalUnits / reserveBalance), evaluated against
// pre-deposit reserves. Rounding always favors the pool.
func ProportionalUnits(reserveAmount, totalUnits, reserveBalance uint64) uint64 {
	return mulDiv(reserveAmount, totalUnits, reserveBalance)
}

// ProportionalReserve computes the reserve released for a burn:
// floor(unitsToBurn * reserveBalance / totalUnits). The pool retains any
// remainder.
func ProportionalReserve(unitsToBurn, reserveBalance, totalUnits uint64) uint64 {
	return mulDiv(unitsToBurn, reserveBalance, totalUnits)
}

// UnitsFromUSD computes the advisory receipt-unit figure from USD and
// maturation references: floor(usd * USDUnitScale / maturation). Stored as
// purchase metadata only; never drives a mint.
func UnitsFromUSD(usd, maturation uint64) uint64 {
	return mulDiv(usd, USDUnitScale, maturation)
}

// mulDiv returns floor(a * b / den) with 128-bit intermediate precision.
// Returns 0 when den is 0. A quotient that overflows uint64 saturates to
// the maximum, which the engine's reserve and slippage guards then reject.
func mulDiv(a, b, den uint64) uint64 {
	if den == 0 {
		return 0
	}

	var x, y big.Int
	x.SetUint64(a)
	y.SetUint64(b)
	x.Mul(&x, &y)
	x.Quo(&x, y.SetUint64(den))

	if !x.IsUint64() {
		return ^uint64(0)
	}
	return x.Uint64()
}
