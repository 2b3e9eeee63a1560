package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/claraops/callsheet/internal/clients"
	"github.com/claraops/callsheet/internal/config"
	"github.com/claraops/callsheet/internal/dedupe"
	"github.com/claraops/callsheet/internal/forward"
	"github.com/claraops/callsheet/internal/handlers"
)

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires the webhook receivers and operational endpoints.
// Public surface:
//
//	GET  /                          service overview
//	GET  /health, /ready            liveness / store readiness
//	POST /webhooks/dispatch[/:client]  multi-client dispatcher
//	POST /webhooks/{transport,fireprotection,elitefire}
//
// GET on each webhook path returns its status document.
func NewRouter(cfg config.Config, fpStore dedupe.Store) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	// Request isolation: a panic anywhere in the pipeline answers 500
	// and leaves the process up.
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}))
	r.Use(corsMiddleware())

	fwd := forward.NewForwarder()
	guard := dedupe.NewGuard(fpStore)

	dispatch := handlers.Dispatch(cfg, fwd)
	transport := handlers.Transport(cfg, fwd)
	fireProtection := handlers.FireProtection(cfg, fwd, guard)
	eliteFire := handlers.EliteFire(cfg, fwd)

	r.GET("/", handlers.OverviewHandler(clients.Registry(cfg.SheetURLs)))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the fingerprint store dependency is reachable.
	// The in-memory store has nothing to ping and is always ready.
	r.GET("/ready", func(c *gin.Context) {
		p, ok := fpStore.(Pinger)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	dispatchGroup := r.Group("/webhooks/dispatch")
	dispatchGroup.Use(clients.SelectorMiddleware())
	dispatchGroup.POST("", dispatch.Handle)
	dispatchGroup.POST("/:client", dispatch.Handle)
	dispatchGroup.GET("", handlers.StatusHandler(dispatch))

	for _, rv := range []*handlers.Receiver{transport, fireProtection, eliteFire} {
		r.POST("/webhooks/"+rv.Name, rv.Handle)
		r.GET("/webhooks/"+rv.Name, handlers.StatusHandler(rv))
	}

	return r
}

// corsMiddleware emits permissive CORS headers on every response and
// short-circuits preflight requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
