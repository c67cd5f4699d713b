package valuation

import (
	"math/big"
	"strings"
)

const Loading = "Loading..."

// FormatUSD renders a ValueDecimals value with four truncated fractional
// digits, e.g. "-12.3456".
func FormatUSD(value *big.Int) string {
	formatted := FormatUnits(value, ValueDecimals)
	left, right, _ := strings.Cut(formatted, ".")
	if len(right) > 4 {
		right = right[:4]
	}
	return left + "." + right + strings.Repeat("0", 4-len(right))
}

// FormatValue renders an address value, or Loading when it is incomplete.
func FormatValue(info *AddressValue) string {
	if info == nil || info.HasMissingPrices {
		return Loading
	}
	return FormatUSD(info.Total)
}

// FormatUnits prints amount shifted by decimals, keeping at least one
// fractional digit and dropping trailing zeros.
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0.0"
	}
	sign := ""
	abs := new(big.Int).Set(amount)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}
	if decimals <= 0 {
		return sign + abs.String() + ".0"
	}
	digits := abs.String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
	if frac == "" {
		frac = "0"
	}
	return sign + whole + "." + frac
}
