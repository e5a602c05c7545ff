package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grocerycompare/price-service/internal/access"
	"github.com/grocerycompare/price-service/internal/middleware"
)

// ListRequestsResponse lists access requests.
type ListRequestsResponse struct {
	Requests []AccessRequestView `json:"requests"`
}

// ListUsersResponse lists app users, placeholders included.
type ListUsersResponse struct {
	Users []access.User `json:"users"`
}

// ContributorRequest sets the contributor flag.
type ContributorRequest struct {
	Contributor *bool `json:"isDataContributor" binding:"required"`
}

// ListRequests returns access requests
// @Summary List access requests
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status" Enums(pending, approved, rejected)
// @Success 200 {object} ListRequestsResponse
// @Failure 400 {object} ErrorResponse "Unknown status"
// @Router /api/admin/requests [get]
func (a *API) ListRequests(c *gin.Context) {
	var status access.Status
	if s := c.Query("status"); s != "" {
		parsed, err := access.ParseStatus(s)
		if err != nil {
			a.badRequest(c, err)
			return
		}
		status = parsed
	}

	list, err := a.access.List(c.Request.Context(), status)
	if err != nil {
		a.fail(c, err)
		return
	}
	views := make([]AccessRequestView, len(list))
	for i, r := range list {
		views[i] = requestView(r)
	}
	c.JSON(http.StatusOK, ListRequestsResponse{Requests: views})
}

func (a *API) reviewer(c *gin.Context) string {
	sess, _ := middleware.Session(c)
	return sess.Email
}

// ApproveRequest approves a pending request
// @Summary Approve access request
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} AccessRequestView
// @Failure 404 {object} ErrorResponse "Request not found"
// @Failure 409 {object} ErrorResponse "Already reviewed"
// @Router /api/admin/requests/{id}/approve [post]
func (a *API) ApproveRequest(c *gin.Context) {
	r, err := a.access.Approve(c.Request.Context(), c.Param("id"), a.reviewer(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requestView(*r))
}

// RejectRequest rejects a pending request
// @Summary Reject access request
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} AccessRequestView
// @Failure 404 {object} ErrorResponse "Request not found"
// @Failure 409 {object} ErrorResponse "Already reviewed"
// @Router /api/admin/requests/{id}/reject [post]
func (a *API) RejectRequest(c *gin.Context) {
	r, err := a.access.Reject(c.Request.Context(), c.Param("id"), a.reviewer(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, requestView(*r))
}

// DeleteRequest removes a reviewed request
// @Summary Delete access request
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 204
// @Failure 404 {object} ErrorResponse "Request not found"
// @Failure 409 {object} ErrorResponse "Request still pending"
// @Router /api/admin/requests/{id} [delete]
func (a *API) DeleteRequest(c *gin.Context) {
	if err := a.access.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListUsers returns app users
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ListUsersResponse
// @Router /api/admin/users [get]
func (a *API) ListUsers(c *gin.Context) {
	users, err := a.access.ListUsers(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	if users == nil {
		users = []access.User{}
	}
	c.JSON(http.StatusOK, ListUsersResponse{Users: users})
}

// SetContributor grants or revokes data contributor access
// @Summary Set contributor flag
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body ContributorRequest true "Flag"
// @Success 200 {object} access.User
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /api/admin/users/{id}/contributor [put]
func (a *API) SetContributor(c *gin.Context) {
	var req ContributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	u, err := a.access.SetContributor(c.Request.Context(), c.Param("id"), *req.Contributor)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
