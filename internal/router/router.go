package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/greecode/admin-portal/api"
	"github.com/greecode/admin-portal/internal/handler"
	"github.com/greecode/admin-portal/internal/middleware"
	"github.com/greecode/admin-portal/internal/session"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathSwagger = "/swagger"
)

// Deps are the handlers and the gate registry behind the route table.
type Deps struct {
	Sessions      *session.Manager
	Auth          *handler.AuthHandler
	Concerns      *handler.ConcernHandler
	Ready         gin.HandlerFunc
	SecureCookies bool
}

// New builds the gin engine: public probes and swagger, auth and intake, and the guarded admin group.
func New(d Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(PathHealth, handler.Health)
	if d.Ready != nil {
		r.GET(PathReady, d.Ready)
	}
	r.GET(PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, PathSwagger+"/") })
	r.GET(PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = PathSwagger + "/index.html"
			c.Request.RequestURI = PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(PathSwagger+"/openapi.json"))(c)
	})

	v1 := r.Group("/api/v1")
	v1.POST("/support/concerns", d.Concerns.Create)
	v1.POST("/support/concerns/:id/messages", d.Concerns.RequesterReply)

	withSession := v1.Group("", middleware.ClientIdentity(d.SecureCookies), middleware.WithGate(d.Sessions))
	auth := withSession.Group("/auth")
	{
		auth.POST("/login", d.Auth.Login)
		auth.POST("/2fa", d.Auth.VerifyTwoFactor)
		auth.POST("/logout", d.Auth.Logout)
		auth.GET("/session", d.Auth.Session)
		auth.POST("/welcome/dismiss", d.Auth.DismissWelcome)
	}

	admin := withSession.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/concerns", d.Concerns.List)
		admin.GET("/concerns/summary", d.Concerns.Summary)
		admin.GET("/concerns/:id", d.Concerns.Get)
		admin.POST("/concerns/:id/accept", d.Concerns.Accept)
		admin.POST("/concerns/:id/messages", d.Concerns.SendMessage)
		admin.POST("/concerns/:id/close", d.Concerns.Close)
	}

	return r
}
