package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grocerycompare/price-service/internal/i18n"
)

// TranslationsResponse maps English keys to text in one language.
type TranslationsResponse struct {
	Lang         i18n.Lang         `json:"lang"`
	Translations map[string]string `json:"translations"`
}

// TranslationListResponse is the full translation table.
type TranslationListResponse struct {
	Translations []i18n.Translation `json:"translations"`
}

// Translations returns the UI strings for the negotiated language
// @Summary UI strings
// @Tags translations
// @Produce json
// @Param lang query string false "Language" Enums(en, sv, da)
// @Success 200 {object} TranslationsResponse
// @Router /api/translations [get]
func (a *API) Translations(c *gin.Context) {
	lang := a.lang(c)
	c.JSON(http.StatusOK, TranslationsResponse{Lang: lang, Translations: a.catalog.Map(lang)})
}

// ListTranslations returns every translation
// @Summary List translations
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TranslationListResponse
// @Router /api/admin/translations [get]
func (a *API) ListTranslations(c *gin.Context) {
	c.JSON(http.StatusOK, TranslationListResponse{Translations: a.catalog.All()})
}

// PutTranslation creates or replaces a translation
// @Summary Save translation
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param translation body i18n.Translation true "Translation keyed by its English text"
// @Success 200 {object} i18n.Translation
// @Failure 400 {object} ErrorResponse "Missing English text"
// @Router /api/admin/translations [put]
func (a *API) PutTranslation(c *gin.Context) {
	var t i18n.Translation
	if err := c.ShouldBindJSON(&t); err != nil {
		a.badRequest(c, err)
		return
	}
	if err := a.catalog.Put(c.Request.Context(), t); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTranslation removes a translation
// @Summary Delete translation
// @Tags admin
// @Security BearerAuth
// @Param key query string true "English text"
// @Success 204
// @Failure 404 {object} ErrorResponse "Translation not found"
// @Router /api/admin/translations [delete]
func (a *API) DeleteTranslation(c *gin.Context) {
	if err := a.catalog.Delete(c.Request.Context(), c.Query("key")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
