package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grocerycompare/price-service/internal/access"
	"github.com/grocerycompare/price-service/internal/entries"
	"github.com/grocerycompare/price-service/internal/i18n"
	"github.com/grocerycompare/price-service/internal/identity"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	msgGeneric            = "Something went wrong. Please try again."
	msgInvalidCredentials = "Invalid email or password"
)

var accessStatus = map[string]int{
	access.ErrDuplicatePending.Code:   http.StatusConflict,
	access.ErrPreviouslyRejected.Code: http.StatusForbidden,
	access.ErrRequestPending.Code:     http.StatusForbidden,
	access.ErrRequestRejected.Code:    http.StatusForbidden,
	access.ErrWeakPassword.Code:       http.StatusBadRequest,
	access.ErrInvalidEmail.Code:       http.StatusBadRequest,
	access.ErrEmptyPassword.Code:      http.StatusBadRequest,
	access.ErrRequestNotFound.Code:    http.StatusNotFound,
	access.ErrUserNotFound.Code:       http.StatusNotFound,
	access.ErrNotPending.Code:         http.StatusConflict,
	access.ErrPendingDelete.Code:      http.StatusConflict,
}

// classify maps err to a status and user-facing message. Unknown errors
// are infrastructure failures and get the generic message.
func classify(err error) (int, string) {
	var (
		aerr *access.Error
		verr *entries.ValidationError
	)
	switch {
	case errors.As(err, &aerr):
		status, ok := accessStatus[aerr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		return status, aerr.Message
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case identity.IsAuthError(err), errors.Is(err, identity.ErrInvalidSession):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, entries.ErrNotContributor), errors.Is(err, entries.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, entries.ErrNotFound):
		return http.StatusNotFound, "Price entry not found"
	case errors.Is(err, i18n.ErrNotFound):
		return http.StatusNotFound, "Translation not found"
	case errors.Is(err, i18n.ErrEmptyKey):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, msgGeneric
	}
}

// fail writes err as a JSON error in the request's language.
func (a *API) fail(c *gin.Context, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		c.Error(err)
		a.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: a.catalog.T(a.lang(c), msg)})
}

// badRequest reports a malformed request body or query.
func (a *API) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}
