package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/devshare/devshare/internal/account"
	"github.com/devshare/devshare/internal/billing"
	"github.com/devshare/devshare/internal/mailer"
	"github.com/devshare/devshare/internal/posts"
	"github.com/devshare/devshare/internal/uploads"
	"github.com/devshare/devshare/pkg/config"
	"github.com/devshare/devshare/pkg/logging"
)

// Deps carries the services the router exposes
type Deps struct {
	Posts   *posts.Service
	Watcher *posts.Watcher
	Billing *billing.Service
	Account *account.Service
	Mailer  *mailer.Mailer
	Uploads *uploads.Store
}

// Router sets up API routes
type Router struct {
	handler *JSONRPCHandler
	deps    Deps
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(cfg *config.Config, deps Deps) *Router {
	router := &Router{
		handler: NewJSONRPCHandler(),
		deps:    deps,
		cfg:     cfg,
		logger:  logging.GetLogger().With(zap.String("component", "api-router")),
	}
	router.registerMethods()
	return router
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(IdentityMiddleware(r.cfg.Auth.JWTSecret))

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// JSON-RPC endpoint
	engine.POST("/", r.handler.Handle)

	// Live query subscriptions
	watch := NewWatchHandler(r.deps.Watcher)
	engine.GET("/ws", watch.Handle)

	// Mail relays, rate limited per client IP
	relay := NewRelayAPI(r.deps.Mailer, r.deps.Uploads)
	relayLimit := NewRateLimiter(rate.Every(time.Second), 5)
	engine.POST("/subscribe", relayLimit.Middleware(), relay.Subscribe)
	engine.POST("/contact", relayLimit.Middleware(), relay.Contact)

	// Media uploads and static serving
	engine.POST("/upload", RequireIdentity(), relay.Upload)
	engine.Static(r.deps.Uploads.BaseURL(), r.deps.Uploads.Root())
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	postsAPI := NewPostsAPI(r.deps.Posts)
	answersAPI := NewAnswersAPI(r.deps.Posts)

	r.handler.RegisterMethod("posts.create", postsAPI.Create)
	r.handler.RegisterMethod("posts.get", postsAPI.Get)
	r.handler.RegisterMethod("posts.update", postsAPI.Update)
	r.handler.RegisterMethod("posts.delete", postsAPI.Delete)
	r.handler.RegisterMethod("posts.delete_question", postsAPI.DeleteQuestion)
	r.handler.RegisterMethod("posts.latest", postsAPI.Latest)
	r.handler.RegisterMethod("tags.unique", postsAPI.UniqueTags)

	r.handler.RegisterMethod("answers.add", answersAPI.Add)
	r.handler.RegisterMethod("answers.update", answersAPI.Update)
	r.handler.RegisterMethod("answers.delete", answersAPI.Delete)
	r.handler.RegisterMethod("answers.list", answersAPI.List)

	if r.deps.Billing != nil {
		billingAPI := NewBillingAPI(r.deps.Billing)
		r.handler.RegisterMethod("billing.create_payment_intent", billingAPI.CreatePaymentIntent)
		r.handler.RegisterMethod("billing.price_info", billingAPI.PriceInfo)
	}

	accountAPI := NewAccountAPI(r.deps.Account)
	r.handler.RegisterMethod("account.delete", accountAPI.Delete)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "devshare-api",
	})
}
