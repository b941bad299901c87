package reporting

import (
	"math/big"
	"strings"
)

var (
	wad      = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	hundred  = big.NewInt(100)
	interest = big.NewRat(5, 4) // 25% bonus on the secondary asset grant
)

// humanAmount renders a 1e18-scaled amount as a comma-grouped decimal with
// two fractional digits, e.g. 1234567890000000000000 -> "1,234.57".
func humanAmount(v *big.Int) string {
	cents := new(big.Rat).SetFrac(new(big.Int).Mul(v, hundred), wad)
	return groupCents(roundRat(cents))
}

// humanAmountWithBonus renders v scaled by the bonus factor.
func humanAmountWithBonus(v *big.Int) string {
	cents := new(big.Rat).SetFrac(new(big.Int).Mul(v, hundred), wad)
	cents.Mul(cents, interest)
	return groupCents(roundRat(cents))
}

// roundRat rounds a rational to the nearest integer, ties away from zero.
func roundRat(r *big.Rat) *big.Int {
	neg := r.Sign() < 0
	abs := new(big.Rat).Abs(r)
	num := new(big.Int).Mul(abs.Num(), big.NewInt(2))
	num.Add(num, abs.Denom()) // +denom/2 before truncation rounds to nearest
	den := new(big.Int).Mul(abs.Denom(), big.NewInt(2))
	out := num.Quo(num, den)
	if neg {
		out.Neg(out)
	}
	return out
}

// groupCents renders an integer cent amount as "1,234.56".
func groupCents(cents *big.Int) string {
	neg := cents.Sign() < 0
	abs := new(big.Int).Abs(cents)

	q, r := new(big.Int).QuoRem(abs, hundred, new(big.Int))
	intPart := groupThousands(q.String())

	frac := r.String()
	if len(frac) == 1 {
		frac = "0" + frac
	}

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteString(intPart)
	sb.WriteByte('.')
	sb.WriteString(frac)
	return sb.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}
