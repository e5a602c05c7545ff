package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grocerycompare/price-service/internal/entries"
	"github.com/grocerycompare/price-service/internal/exchangerate"
	"github.com/grocerycompare/price-service/internal/pricing"
	"github.com/grocerycompare/price-service/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ComparisonQuery selects the entries to compare.
type ComparisonQuery struct {
	entries.Filter
	Search string `form:"search"`
}

// ComparisonRow is one compared item.
type ComparisonRow struct {
	pricing.Comparison
	Cheaper pricing.Country `json:"cheaper,omitempty"`
}

// ComparisonResponse holds the comparison and the rate it used.
type ComparisonResponse struct {
	Comparisons  []ComparisonRow     `json:"comparisons"`
	ExchangeRate exchangerate.Record `json:"exchangeRate"`
}

func (a *API) compare(c *gin.Context) ([]pricing.Comparison, exchangerate.Record, bool) {
	var q ComparisonQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		a.badRequest(c, err)
		return nil, exchangerate.Record{}, false
	}
	ctx := c.Request.Context()
	rate := a.rates.Quote(ctx)
	list, err := a.entries.Compare(ctx, q.Filter, q.Search, rate.SekToDkk)
	if err != nil {
		a.fail(c, err)
		return nil, exchangerate.Record{}, false
	}
	return list, rate, true
}

// Comparison aggregates prices per item
// @Summary Compare prices
// @Description Averages normalized SEK-equivalent prices per item in Sweden and Denmark
// @Tags comparison
// @Produce json
// @Param groceryType query string false "Item name, case-insensitive"
// @Param store query string false "Store name"
// @Param startDate query string false "Earliest date (YYYY-MM-DD)"
// @Param endDate query string false "Latest date (YYYY-MM-DD)"
// @Param search query string false "Substring of the item name"
// @Success 200 {object} ComparisonResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /api/comparison [get]
func (a *API) Comparison(c *gin.Context) {
	list, rate, ok := a.compare(c)
	if !ok {
		return
	}
	rows := make([]ComparisonRow, len(list))
	for i, cmp := range list {
		rows[i] = ComparisonRow{Comparison: cmp, Cheaper: pricing.Cheaper(cmp)}
	}
	c.JSON(http.StatusOK, ComparisonResponse{Comparisons: rows, ExchangeRate: rate})
}

// ExportComparison downloads the comparison as a workbook
// @Summary Export comparison
// @Tags comparison
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param search query string false "Substring of the item name"
// @Success 200 {file} file
// @Router /api/comparison/export.xlsx [get]
func (a *API) ExportComparison(c *gin.Context) {
	list, rate, ok := a.compare(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	meta := report.Meta{Rate: rate.SekToDkk, RateSource: rate.Source, GeneratedAt: a.now()}
	if err := report.WriteXLSX(&buf, list, meta); err != nil {
		a.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="price-comparison.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ExchangeRate returns the SEK to DKK rate in use
// @Summary Current exchange rate
// @Tags comparison
// @Produce json
// @Success 200 {object} exchangerate.Record
// @Router /api/exchange-rate [get]
func (a *API) ExchangeRate(c *gin.Context) {
	c.JSON(http.StatusOK, a.rates.Quote(c.Request.Context()))
}
