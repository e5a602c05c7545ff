package pricing

import "strings"

// unitAliases maps the spellings users and imports send to canonical units.
var unitAliases = map[string]Unit{
	"g":          UnitGram,
	"gr":         UnitGram,
	"gram":       UnitGram,
	"grams":      UnitGram,
	"kg":         UnitKilogram,
	"kilo":       UnitKilogram,
	"kilogram":   UnitKilogram,
	"kilograms":  UnitKilogram,
	"ml":         UnitMilliliter,
	"milliliter": UnitMilliliter,
	"millilitre": UnitMilliliter,
	"l":          UnitLiter,
	"ltr":        UnitLiter,
	"lit":        UnitLiter,
	"liter":      UnitLiter,
	"litre":      UnitLiter,
	"st":         UnitPieces,
	"stk":        UnitPieces,
	"pcs":        UnitPieces,
	"piece":      UnitPieces,
	"pieces":     UnitPieces,
}

// ParseUnit converts a unit spelling to its canonical form.
// The second result is false for unknown units.
func ParseUnit(s string) (Unit, bool) {
	u := strings.ToLower(strings.TrimSpace(s))
	if u == "" {
		return UnitNone, true
	}
	canonical, ok := unitAliases[u]
	return canonical, ok
}

// IsWeight reports whether u measures mass.
func (u Unit) IsWeight() bool {
	return u == UnitGram || u == UnitKilogram
}

// IsVolume reports whether u measures volume.
func (u Unit) IsVolume() bool {
	return u == UnitMilliliter || u == UnitLiter
}

// Basis returns the scale a normalized price for u is expressed in.
func (u Unit) Basis() Basis {
	switch {
	case u.IsWeight():
		return BasisKilogram
	case u.IsVolume():
		return BasisLiter
	default:
		return BasisPiece
	}
}

// toBaseAmount converts amount to grams or milliliters.
// Pieces and unitless amounts are returned unchanged.
func toBaseAmount(amount float64, u Unit) float64 {
	switch u {
	case UnitKilogram, UnitLiter:
		return amount * 1000
	default:
		return amount
	}
}

// Normalize returns the SEK-equivalent price of e per kilogram, per liter
// or per piece depending on its unit.
//
// A missing or non-positive quantity counts as one package and a missing
// amount as a package size of one. rate is "1 SEK buys rate DKK"; a
// non-positive rate falls back to DefaultExchangeRate.
func Normalize(e Entry, rate float64) float64 {
	quantity := 1.0
	if e.Quantity != nil && *e.Quantity > 0 {
		quantity = *e.Quantity
	}
	amount := 1.0
	if e.Amount != nil {
		amount = *e.Amount
	}

	total := toBaseAmount(amount, e.Unit) * quantity

	var perUnit float64
	if total > 0 {
		perUnit = e.Price / total
	} else {
		perUnit = e.Price / quantity
	}

	if e.Unit.IsWeight() || e.Unit.IsVolume() {
		perUnit *= 1000
	}

	if e.Currency == CurrencyDKK {
		if rate <= 0 {
			rate = DefaultExchangeRate
		}
		perUnit /= rate
	}
	return perUnit
}
