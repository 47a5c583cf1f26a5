package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/vendala/backoffice/pkg/asyncx"
	"github.com/vendala/backoffice/pkg/config"
	"github.com/vendala/backoffice/pkg/errx"
	"github.com/vendala/backoffice/pkg/iam/authz"
	"github.com/vendala/backoffice/pkg/logx"
)

func main() {
	// 1. Initialize Logger
	logLevel := getEnv("LOG_LEVEL", "info")
	switch logLevel {
	case "debug":
		logx.SetLevel(logx.LevelDebug)
	case "warn":
		logx.SetLevel(logx.LevelWarn)
	case "error":
		logx.SetLevel(logx.LevelError)
	default:
		logx.SetLevel(logx.LevelInfo)
	}

	logx.Info("🚀 Starting Vendala Backoffice API Server...")

	// 2. Load Config & Initialize Dependency Container
	cfg := config.Load()
	container := NewContainer(cfg)
	defer container.Cleanup()

	// 3. Create Fiber App with Config
	app := fiber.New(fiber.Config{
		AppName:               "Vendala Backoffice API",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
		IdleTimeout:           120 * time.Second,
		EnablePrintRoutes:     false,
	})

	// 4. Global Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.New().String()
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:  getCORSOrigins(),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Tenant-Id, X-Platform-User, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// 5. Health Check & Info Endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/", infoHandler)

	// 6. Register Routes & Seed the Endpoint Registry
	//
	// One table drives both: routing and the policy registry stay in sync
	// by construction.
	routes := buildRouteTable(container)
	authz.Register(app, routes, container.IAM.Middleware)
	logx.Infof("✓ %d routes registered", len(routes))

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := container.IAM.Matrix.SeedEndpoints(seedCtx, authz.Endpoints(routes)); err != nil {
		logx.Fatalf("Failed to seed endpoint registry: %v", err)
	}
	cancelSeed()
	logx.Info("✓ Endpoint registry seeded")

	// 7. Background Services
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	container.StartBackgroundServices(bgCtx)

	// 8. 404 Handler
	app.Use(notFoundHandler)

	// 9. Print Route Summary
	printRouteSummary()

	// 10. Start Server with Graceful Shutdown
	startServer(app, cfg)
}

// ============================================================================
// Handler Functions
// ============================================================================

// healthCheckHandler returns a health check handler
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "vendala-backoffice",
			"version": getEnv("APP_VERSION", "0.1.0"),
		}

		// Probe database and redis concurrently; report both regardless
		// of which fails.
		probes := asyncx.AllSettled(c.Context(),
			func(ctx context.Context) (string, error) {
				return "db", container.DB.PingContext(ctx)
			},
			func(ctx context.Context) (string, error) {
				return "redis", container.Redis.Ping(ctx).Err()
			},
		)
		for _, p := range probes {
			if p.OK() {
				health[p.Value] = "healthy"
				continue
			}
			health[p.Value] = "unhealthy"
			health["status"] = "degraded"
		}

		// Key source degraded mode: the service is up but every protected
		// route fails closed until the identity provider is reachable.
		if container.IAM.Bootstrapper.Degraded() {
			health["key_source"] = "degraded"
			health["status"] = "degraded"
		} else {
			health["key_source"] = "healthy"
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}

		return c.Status(status).JSON(health)
	}
}

// infoHandler returns basic API information
func infoHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":     "Vendala Backoffice API",
		"version":     getEnv("APP_VERSION", "0.1.0"),
		"description": "Multi-tenant SaaS administration backend",
		"features": []string{
			"Multi-tenant architecture",
			"OIDC token verification",
			"Dynamic permission matrix",
		},
		"endpoints": fiber.Map{
			"health": "/health",
		},
	})
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"message":    "The requested endpoint does not exist",
		"request_id": c.Get("X-Request-ID"),
	})
}

// ============================================================================
// Error Handler
// ============================================================================

// globalErrorHandler converts internal errors to standard HTTP responses
func globalErrorHandler(c *fiber.Ctx, err error) error {
	logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"ip":         c.IP(),
		"request_id": c.Get("X-Request-ID"),
		"user_agent": c.Get("User-Agent"),
	}).Err(err).Error("Request error")

	return errx.HandleFiber(c, err)
}

// ============================================================================
// Utility Functions
// ============================================================================

// getCORSOrigins returns allowed CORS origins
func getCORSOrigins() string {
	origins := os.Getenv("CORS_ORIGINS")
	if origins == "" {
		return "*" // Default for development
	}
	return origins
}

// printRouteSummary prints a summary of registered routes
func printRouteSummary() {
	logx.Info("📋 Route Summary:")
	logx.Info("   ├─ Platform: /api/v1/platform/*")
	logx.Info("   ├─ Policy admin: /api/v1/authz/*")
	logx.Info("   ├─ Tenant APIs: /api/v1/{orders,billing,support,profile}/*")
	logx.Info("   └─ Health: /health")
}

// startServer starts the server with graceful shutdown
func startServer(app *fiber.App, cfg *config.Config) {
	port := strconv.Itoa(cfg.Server.Port)

	// Run server in a goroutine
	go func() {
		logx.Info("=" + repeatString("=", 60))
		logx.Infof("🚀 Server listening on port %s", port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", port)
		logx.Info("=" + repeatString("=", 60))

		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	gracefulShutdown(app)
}

// gracefulShutdown handles graceful server shutdown
func gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Wait for interrupt signal
	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	// Shutdown the server with timeout
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("✅ Server exited successfully")
}
