package canon

import (
	"math"
	"strconv"
)

// PriceUndetermined is shown when a listing carries no usable price.
const PriceUndetermined = "価格未定"

// SqmPerTsubo is the floor area of one tsubo in square meters.
const SqmPerTsubo = 3.30579

// FormatPrice renders a price in 万円. Odd amounts keep their remainder as
// an exact decimal extension: 12345000 -> "1234.5万円". Negative prices are
// treated like a missing one.
func FormatPrice(price *int64) string {
	if price == nil || *price <= 0 {
		return PriceUndetermined
	}
	man := *price / 10000
	rem := *price % 10000
	if rem == 0 {
		return strconv.FormatInt(man, 10) + "万円"
	}
	return formatNumber(float64(man)+float64(rem)/10000) + "万円"
}

// FormatArea renders square meters as "{tsubo}坪({sqm}㎡)", tsubo rounded
// half-up to one decimal. Missing or zero area renders as "".
func FormatArea(sqm *float64) string {
	if sqm == nil || *sqm == 0 || math.IsNaN(*sqm) {
		return ""
	}
	tsubo := math.Floor(*sqm/SqmPerTsubo*10+0.5) / 10
	return formatNumber(tsubo) + "坪(" + formatNumber(*sqm) + "㎡)"
}

// formatNumber prints the shortest decimal that round-trips, without
// exponent, and never "-0".
func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
