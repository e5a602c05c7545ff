package pricing

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ItemKey returns the grouping key for an item name: trimmed, lower-cased
// and in Unicode composed form so "mjölk" typed with a combining
// diaeresis groups with the precomposed spelling.
func ItemKey(item string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(item)))
}

type bucket struct {
	se    []float64
	dk    []float64
	basis Basis
}

func (b *bucket) addBasis(basis Basis) {
	switch b.basis {
	case "":
		b.basis = basis
	case basis:
	default:
		b.basis = BasisMixed
	}
}

// Aggregate groups entries by item and computes the per-country average of
// their normalized prices. Entries from countries other than SE and DK are
// skipped. The result is ordered by item key.
func Aggregate(entries []Entry, rate float64) []Comparison {
	groups := make(map[string]*bucket)

	for _, e := range entries {
		if !e.Country.Valid() {
			continue
		}
		key := ItemKey(e.Item)
		b, ok := groups[key]
		if !ok {
			b = &bucket{}
			groups[key] = b
		}

		price := Normalize(e, rate)
		if e.Country == CountrySE {
			b.se = append(b.se, price)
		} else {
			b.dk = append(b.dk, price)
		}
		b.addBasis(e.Unit.Basis())
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]Comparison, 0, len(keys))
	for _, k := range keys {
		b := groups[k]
		c := Comparison{
			Item:       k,
			AvgPriceSE: mean(b.se),
			AvgPriceDK: mean(b.dk),
			CountSE:    len(b.se),
			CountDK:    len(b.dk),
			Basis:      b.basis,
		}
		if c.AvgPriceSE != nil && c.AvgPriceDK != nil {
			diff := *c.AvgPriceDK - *c.AvgPriceSE
			c.Difference = &diff
			c.PercentDifference = percentDifference(*c.AvgPriceSE, *c.AvgPriceDK)
		}
		result = append(result, c)
	}
	return result
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}

// percentDifference is the saving, as a non-positive percentage of the
// higher average, of buying in the cheaper country. It carries no
// direction; see Cheaper.
func percentDifference(a, b float64) *float64 {
	hi := math.Max(a, b)
	lo := math.Min(a, b)
	if hi == 0 {
		zero := 0.0
		return &zero
	}
	pct := -(math.Abs(hi-lo) / hi) * 100
	if pct == 0 {
		pct = 0 // avoid -0 in JSON
	}
	return &pct
}

// Cheaper returns the country with the lower average, or "" when either
// average is missing or both are equal.
func Cheaper(c Comparison) Country {
	if c.AvgPriceSE == nil || c.AvgPriceDK == nil {
		return ""
	}
	switch {
	case *c.AvgPriceSE < *c.AvgPriceDK:
		return CountrySE
	case *c.AvgPriceDK < *c.AvgPriceSE:
		return CountryDK
	default:
		return ""
	}
}

// Filter keeps the comparisons whose item contains search,
// case-insensitively. An empty search keeps everything.
func Filter(comparisons []Comparison, search string) []Comparison {
	needle := ItemKey(search)
	if needle == "" {
		return comparisons
	}
	out := make([]Comparison, 0, len(comparisons))
	for _, c := range comparisons {
		if strings.Contains(c.Item, needle) {
			out = append(out, c)
		}
	}
	return out
}
