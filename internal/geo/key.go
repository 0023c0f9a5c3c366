package geo

import (
	"fmt"
	"math"

	"tripmeter/internal/domain"
)

// KeyPrecision is the number of decimals endpoints are rounded to when
// deciding whether two requests target the same pair.
const KeyPrecision = 6

// Round rounds v to KeyPrecision decimals.
func Round(v float64) float64 {
	scale := math.Pow10(KeyPrecision)
	return math.Round(v*scale) / scale
}

// PairKey identifies an ordered (from, to) endpoint pair after rounding.
func PairKey(from, to domain.GeoPoint) string {
	return fmt.Sprintf("%.6f,%.6f;%.6f,%.6f", Round(from.Lat), Round(from.Lng), Round(to.Lat), Round(to.Lng))
}
