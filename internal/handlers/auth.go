package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grocerycompare/price-service/internal/access"
	"github.com/grocerycompare/price-service/internal/identity"
	"github.com/grocerycompare/price-service/internal/middleware"
)

// CredentialsRequest is the body of sign-up and sign-in.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AccessRequestView is an access request without its password digest.
type AccessRequestView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requestedAt"`
	ReviewedBy  *string    `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
}

func requestView(r access.Request) AccessRequestView {
	v := AccessRequestView{
		ID:          r.ID,
		Email:       r.Email,
		Status:      string(r.State.Status()),
		RequestedAt: r.RequestedAt,
	}
	if rev, ok := access.ReviewOf(r.State); ok {
		v.ReviewedBy = &rev.By
		v.ReviewedAt = &rev.At
	}
	return v
}

// SignUpResponse confirms a submitted access request.
type SignUpResponse struct {
	Message string            `json:"message"`
	Request AccessRequestView `json:"request"`
}

// SessionResponse is returned after a successful sign-in.
type SessionResponse struct {
	Session identity.Session `json:"session"`
	User    *access.User     `json:"user"`
	IsAdmin bool             `json:"isAdmin"`
}

// MeResponse describes the signed-in user.
type MeResponse struct {
	User    *access.User `json:"user"`
	IsAdmin bool         `json:"isAdmin"`
}

// SignUp files an access request
// @Summary Request access
// @Description Files an access request that the administrator must approve before the first sign-in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Email and password"
// @Success 201 {object} SignUpResponse
// @Failure 400 {object} ErrorResponse "Invalid email or password"
// @Failure 403 {object} ErrorResponse "Previously rejected"
// @Failure 409 {object} ErrorResponse "Request already pending"
// @Router /api/auth/signup [post]
func (a *API) SignUp(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}

	r, err := a.access.Submit(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, SignUpResponse{
		Message: a.catalog.T(a.lang(c), "Your request has been submitted and is awaiting approval"),
		Request: requestView(*r),
	})
}

// SignIn starts a session
// @Summary Sign in
// @Description Signs in; the first sign-in after approval creates the account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Email and password"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse "Weak password"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 403 {object} ErrorResponse "Request pending or rejected"
// @Router /api/auth/signin [post]
func (a *API) SignIn(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	sess, err := a.access.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		a.fail(c, err)
		return
	}
	user, err := a.access.GetUser(ctx, sess.UserID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		Session: sess,
		User:    user,
		IsAdmin: a.adminEmail != "" && identity.NormalizeEmail(sess.Email) == identity.NormalizeEmail(a.adminEmail),
	})
}

// SignOut ends the session of the bearer token
// @Summary Sign out
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} ErrorResponse "Missing or invalid token"
// @Router /api/auth/signout [post]
func (a *API) SignOut(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	err := a.access.SignOut(c.Request.Context(), token)
	if err != nil && !errors.Is(err, identity.ErrInvalidSession) {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the signed-in user
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} ErrorResponse "Missing or invalid token"
// @Router /api/auth/me [get]
func (a *API) Me(c *gin.Context) {
	sess, _ := middleware.Session(c)
	user, err := a.access.GetUser(c.Request.Context(), sess.UserID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MeResponse{User: user, IsAdmin: middleware.IsAdmin(c, a.adminEmail)})
}
