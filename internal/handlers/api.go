package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/grocerycompare/price-service/internal/access"
	"github.com/grocerycompare/price-service/internal/entries"
	"github.com/grocerycompare/price-service/internal/exchangerate"
	"github.com/grocerycompare/price-service/internal/i18n"
	"github.com/grocerycompare/price-service/internal/identity"
	"github.com/grocerycompare/price-service/internal/middleware"
	"github.com/grocerycompare/price-service/internal/pricing"
)

// AccessService is the access request workflow.
type AccessService interface {
	Submit(ctx context.Context, email, password string) (*access.Request, error)
	SignIn(ctx context.Context, email, password string) (identity.Session, error)
	SignOut(ctx context.Context, token string) error
	GetUser(ctx context.Context, id string) (*access.User, error)

	List(ctx context.Context, status access.Status) ([]access.Request, error)
	Approve(ctx context.Context, id, admin string) (*access.Request, error)
	Reject(ctx context.Context, id, admin string) (*access.Request, error)
	Delete(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]access.User, error)
	SetContributor(ctx context.Context, id string, contributor bool) (*access.User, error)
}

// EntryService manages price entries.
type EntryService interface {
	Create(ctx context.Context, actor entries.Actor, in entries.Input) (*pricing.Entry, error)
	List(ctx context.Context, f entries.Filter) ([]pricing.Entry, error)
	Update(ctx context.Context, actor entries.Actor, id string, in entries.Input) (*pricing.Entry, error)
	Delete(ctx context.Context, actor entries.Actor, id string) error
	BulkDelete(ctx context.Context, actor entries.Actor, ids []string) (entries.BulkResult, error)
	Suggestions(ctx context.Context, field, text string) ([]string, error)
	Compare(ctx context.Context, f entries.Filter, search string, sekToDkk float64) ([]pricing.Comparison, error)
}

// RateQuoter supplies the current exchange rate.
type RateQuoter interface {
	Quote(ctx context.Context) exchangerate.Record
}

// Deps are the collaborators of the API.
type Deps struct {
	Access     AccessService
	Entries    EntryService
	Rates      RateQuoter
	Catalog    *i18n.Catalog
	Sessions   middleware.SessionVerifier
	AdminEmail string
	// Ping checks the database; nil reports "not configured".
	Ping   func(ctx context.Context) error
	Logger *zerolog.Logger
}

// API holds the HTTP handlers.
type API struct {
	access     AccessService
	entries    EntryService
	rates      RateQuoter
	catalog    *i18n.Catalog
	sessions   middleware.SessionVerifier
	adminEmail string
	ping       func(ctx context.Context) error
	logger     *zerolog.Logger
	now        func() time.Time
}

// New creates the API.
func New(d Deps) *API {
	logger := d.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &API{
		access:     d.Access,
		entries:    d.Entries,
		rates:      d.Rates,
		catalog:    d.Catalog,
		sessions:   d.Sessions,
		adminEmail: d.AdminEmail,
		ping:       d.Ping,
		logger:     logger,
		now:        time.Now,
	}
}

// Register mounts every route on r. Extra middleware applies to /api only.
func (a *API) Register(r gin.IRouter, apiMiddleware ...gin.HandlerFunc) {
	r.GET("/health", a.HealthCheck)

	api := r.Group("/api", apiMiddleware...)
	auth := middleware.Auth(a.sessions)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", a.SignUp)
		authGroup.POST("/signin", a.SignIn)
		authGroup.POST("/signout", a.SignOut)
		authGroup.GET("/me", auth, a.Me)
	}

	api.GET("/prices", a.ListPrices)
	api.POST("/prices", auth, a.CreatePrice)
	api.GET("/prices/suggestions", a.Suggestions)
	api.GET("/comparison", a.Comparison)
	api.GET("/comparison/export.xlsx", a.ExportComparison)
	api.GET("/exchange-rate", a.ExchangeRate)
	api.GET("/translations", a.Translations)

	admin := api.Group("/admin", auth, middleware.RequireAdmin(a.adminEmail))
	{
		admin.PUT("/prices/:id", a.UpdatePrice)
		admin.DELETE("/prices/:id", a.DeletePrice)
		admin.POST("/prices/bulk-delete", a.BulkDeletePrices)

		admin.GET("/requests", a.ListRequests)
		admin.POST("/requests/:id/approve", a.ApproveRequest)
		admin.POST("/requests/:id/reject", a.RejectRequest)
		admin.DELETE("/requests/:id", a.DeleteRequest)

		admin.GET("/users", a.ListUsers)
		admin.PUT("/users/:id/contributor", a.SetContributor)

		admin.GET("/translations", a.ListTranslations)
		admin.PUT("/translations", a.PutTranslation)
		admin.DELETE("/translations", a.DeleteTranslation)
	}
}

// actor returns the signed-in user of c.
func (a *API) actor(c *gin.Context) entries.Actor {
	sess, _ := middleware.Session(c)
	return entries.Actor{
		UserID: sess.UserID,
		Email:  sess.Email,
		Admin:  middleware.IsAdmin(c, a.adminEmail),
	}
}

func (a *API) lang(c *gin.Context) i18n.Lang {
	return i18n.Resolve(c.GetHeader("Accept-Language"), c.Query("lang"))
}
