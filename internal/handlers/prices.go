package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grocerycompare/price-service/internal/entries"
	"github.com/grocerycompare/price-service/internal/pricing"
)

// ListPricesResponse is a page of price entries.
type ListPricesResponse struct {
	Prices []pricing.Entry `json:"prices"`
}

// SuggestionsResponse lists autocomplete values.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// BulkDeleteRequest lists entries to delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// ListPrices returns price entries
// @Summary List price entries
// @Description Returns price entries newest first, optionally filtered
// @Tags prices
// @Produce json
// @Param groceryType query string false "Item name, case-insensitive"
// @Param country query string false "Country" Enums(SE, DK)
// @Param store query string false "Store name"
// @Param startDate query string false "Earliest date (YYYY-MM-DD)"
// @Param endDate query string false "Latest date (YYYY-MM-DD)"
// @Success 200 {object} ListPricesResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /api/prices [get]
func (a *API) ListPrices(c *gin.Context) {
	var f entries.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		a.badRequest(c, err)
		return
	}
	list, err := a.entries.List(c.Request.Context(), f)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ListPricesResponse{Prices: list})
}

// CreatePrice stores a price observation
// @Summary Add a price
// @Description Stores a price observation; data contributors and the administrator only
// @Tags prices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param entry body entries.Input true "Observation"
// @Success 201 {object} pricing.Entry
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 403 {object} ErrorResponse "Not a data contributor"
// @Router /api/prices [post]
func (a *API) CreatePrice(c *gin.Context) {
	var in entries.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, err)
		return
	}
	e, err := a.entries.Create(c.Request.Context(), a.actor(c), in)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// Suggestions autocompletes item, brand and store names
// @Summary Autocomplete values
// @Tags prices
// @Produce json
// @Param field query string true "Field" Enums(item, brand, store)
// @Param q query string false "Typed text"
// @Success 200 {object} SuggestionsResponse
// @Failure 400 {object} ErrorResponse "Unknown field"
// @Router /api/prices/suggestions [get]
func (a *API) Suggestions(c *gin.Context) {
	list, err := a.entries.Suggestions(c.Request.Context(), c.Query("field"), c.Query("q"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SuggestionsResponse{Suggestions: list})
}

// UpdatePrice edits an entry
// @Summary Edit a price
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Param entry body entries.Input true "Observation"
// @Success 200 {object} pricing.Entry
// @Failure 400 {object} ErrorResponse "Validation failed"
// @Failure 404 {object} ErrorResponse "Entry not found"
// @Router /api/admin/prices/{id} [put]
func (a *API) UpdatePrice(c *gin.Context) {
	var in entries.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, err)
		return
	}
	e, err := a.entries.Update(c.Request.Context(), a.actor(c), c.Param("id"), in)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// DeletePrice removes an entry
// @Summary Delete a price
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 404 {object} ErrorResponse "Entry not found"
// @Router /api/admin/prices/{id} [delete]
func (a *API) DeletePrice(c *gin.Context) {
	if err := a.entries.Delete(c.Request.Context(), a.actor(c), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BulkDeletePrices removes several entries
// @Summary Delete several prices
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BulkDeleteRequest true "Entry IDs"
// @Success 200 {object} entries.BulkResult
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 500 {object} ErrorResponse "Some deletes failed"
// @Router /api/admin/prices/bulk-delete [post]
func (a *API) BulkDeletePrices(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	res, err := a.entries.BulkDelete(c.Request.Context(), a.actor(c), req.IDs)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
