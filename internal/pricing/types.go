// Package pricing normalizes user-submitted grocery prices to a comparable
// basis and aggregates them into per-item Sweden/Denmark comparisons.
package pricing

import "time"

// Country is the ISO code of the country a price was observed in.
type Country string

const (
	CountrySE Country = "SE"
	CountryDK Country = "DK"
)

// Valid reports whether c is one of the compared countries.
func (c Country) Valid() bool {
	return c == CountrySE || c == CountryDK
}

// Currency is the currency a price was paid in.
type Currency string

const (
	CurrencySEK Currency = "SEK"
	CurrencyDKK Currency = "DKK"
)

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	return c == CurrencySEK || c == CurrencyDKK
}

// CurrencyFor returns the home currency of a country.
func CurrencyFor(c Country) Currency {
	if c == CountryDK {
		return CurrencyDKK
	}
	return CurrencySEK
}

// Unit is the unit of measure of a package amount.
type Unit string

const (
	UnitNone       Unit = ""
	UnitGram       Unit = "gram"
	UnitKilogram   Unit = "kilogram"
	UnitMilliliter Unit = "milliliter"
	UnitLiter      Unit = "liter"
	UnitPieces     Unit = "pieces"
)

// DefaultExchangeRate is used when no live SEK to DKK rate is available.
// It is expressed as "1 SEK buys N DKK".
const DefaultExchangeRate = 0.69

// Entry is one submitted price observation.
type Entry struct {
	ID        string    `json:"id"`
	Item      string    `json:"item"`
	Brand     *string   `json:"brand,omitempty"`
	Price     float64   `json:"price"`
	Currency  Currency  `json:"currency"`
	Quantity  *float64  `json:"quantity,omitempty"` // number of identical packages
	Amount    *float64  `json:"amount,omitempty"`   // package size in Unit
	Unit      Unit      `json:"unit,omitempty"`
	Store     *string   `json:"store,omitempty"`
	Country   Country   `json:"country"`
	Date      string    `json:"date"` // YYYY-MM-DD
	UserID    string    `json:"userId"`
	UserEmail *string   `json:"userEmail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Basis describes what a normalized price is expressed per.
type Basis string

const (
	BasisKilogram Basis = "per_kilogram"
	BasisLiter    Basis = "per_liter"
	BasisPiece    Basis = "per_piece"
	BasisMixed    Basis = "mixed"
)

// Comparison is the aggregated view of one item across both countries.
// Prices are SEK-equivalent.
type Comparison struct {
	Item              string   `json:"item"`
	AvgPriceSE        *float64 `json:"avgPriceSE"`
	AvgPriceDK        *float64 `json:"avgPriceDK"`
	CountSE           int      `json:"countSE"`
	CountDK           int      `json:"countDK"`
	Difference        *float64 `json:"difference"`
	PercentDifference *float64 `json:"percentDifference"`
	Basis             Basis    `json:"basis"`
}
