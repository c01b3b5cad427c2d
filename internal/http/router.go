package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/storefront/internal/auth"
	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/http/handlers"
	"github.com/geocoder89/storefront/internal/http/middlewares"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const Version = "1.0.0"

// UsersStore is the credential store the auth routes and the auth gate share.
type UsersStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

// Deps is everything the HTTP surface needs, built once in main.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Users    UsersStore
	Products handlers.ProductsStore
	Hasher   handlers.PasswordHasher
	JWT      *auth.Manager
	// Limiter backs the register/login limit, WriteLimiter the per user limit
	// on product writes. Both default to in-process limiters.
	Limiter      middlewares.Limiter
	WriteLimiter middlewares.Limiter

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// Checks are pinged by /readyz, keyed by dependency name.
	Checks map[string]handlers.PingFunc
	// ShuttingDown turns /readyz to 503 while the server drains.
	ShuttingDown func() bool
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORS(cfg.CORSAllowedOrigins))

	if cfg.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware(cfg.OTelServiceName))
	}
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.ExposeErrorDetails(cfg.ExposeErrorDetails))

	// health
	h := handlers.NewHealthHandler(cfg.OTelServiceName, Version, d.Checks).WithDraining(d.ShuttingDown)
	r.GET("/", h.Banner)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// auth gate
	authMW := middlewares.NewAuthMiddleware(d.JWT)
	if cfg.AuthRevalidateUser {
		authMW = authMW.WithRevalidation(d.Users)
	}
	requireAuth := authMW.RequireAuth()

	limiter := d.Limiter
	if limiter == nil {
		limiter = middlewares.NewMemoryLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow())
	}
	authLimit := middlewares.RateLimit(limiter, middlewares.KeyByIP)

	writeLimiter := d.WriteLimiter
	if writeLimiter == nil {
		writeLimiter = middlewares.NewMemoryLimiter(cfg.WriteRateLimit, cfg.WriteRateWindow())
	}
	// runs after requireAuth so the key is the caller's user id
	writeLimit := middlewares.RateLimit(writeLimiter, middlewares.KeyByUserOrIP)
	requireJSON := middlewares.RequireJSON()

	// Wire up handlers
	authHandler := handlers.NewAuthHandler(d.Users, d.Users, d.Hasher, d.JWT, d.Prom)
	productsHandler := handlers.NewProductsHandler(d.Products)

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", authLimit, requireJSON, authHandler.Register)
	authRoutes.POST("/login", authLimit, requireJSON, authHandler.Login)
	authRoutes.GET("/profile", requireAuth, authHandler.Profile)

	products := api.Group("/products")
	products.GET("", productsHandler.List)
	products.GET("/:id", productsHandler.GetByID)
	products.POST("/create-product", requireAuth, writeLimit, requireJSON, productsHandler.Create)
	products.PUT("/:id", requireAuth, writeLimit, requireJSON, productsHandler.Update)
	products.DELETE("/:id", requireAuth, writeLimit, productsHandler.Delete)

	return r
}
