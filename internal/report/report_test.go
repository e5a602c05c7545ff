package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/grocerycompare/price-service/internal/pricing"
)

func f(v float64) *float64 { return &v }

var comparisons = []pricing.Comparison{
	{
		Item: "milk", AvgPriceSE: f(15), AvgPriceDK: f(17.391304), CountSE: 2, CountDK: 1,
		Difference: f(2.391304), PercentDifference: f(-13.75), Basis: pricing.BasisLiter,
	},
	{Item: "bread", AvgPriceSE: f(30), CountSE: 1, Basis: pricing.BasisPiece},
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	meta := Meta{Rate: 0.69, RateSource: "fallback", GeneratedAt: time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)}
	require.NoError(t, WriteXLSX(&buf, comparisons, meta))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{comparisonSheet, infoSheet}, wb.GetSheetList())

	rows, err := wb.GetRows(comparisonSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "milk", rows[1][0])
	assert.Equal(t, "per_liter", rows[1][1])
	assert.Equal(t, "SE", rows[1][8])
	assert.Equal(t, "bread", rows[2][0])
	assert.Equal(t, "", rows[2][4], "missing average is left blank")

	source, err := wb.GetCellValue(infoSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "fallback", source)
	generated, err := wb.GetCellValue(infoSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-02T10:00:00Z", generated)
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil, Meta{Rate: 0.69}))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(comparisonSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, comparisons))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ITEM"))
	assert.Contains(t, lines[1], "15.00")
	assert.Contains(t, lines[1], "-13.75")
	assert.Contains(t, lines[1], "SE")
	assert.Contains(t, lines[2], "bread")
	assert.Contains(t, lines[2], "-")
}
