package iamcontainer

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/vendala/backoffice/pkg/config"
	"github.com/vendala/backoffice/pkg/iam/authz"
	"github.com/vendala/backoffice/pkg/iam/keyset"
	"github.com/vendala/backoffice/pkg/iam/policy/policyapi"
	"github.com/vendala/backoffice/pkg/iam/policy/policyinfra"
	"github.com/vendala/backoffice/pkg/iam/policy/policysrv"
	"github.com/vendala/backoffice/pkg/iam/role"
	"github.com/vendala/backoffice/pkg/iam/tenant"
	"github.com/vendala/backoffice/pkg/iam/tenant/tenantinfra"
	"github.com/vendala/backoffice/pkg/iam/token"
	"github.com/vendala/backoffice/pkg/logx"
	"github.com/vendala/backoffice/pkg/notifx"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// No hidden globals, no ambient state — everything comes through here.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config

	// Notifier delivers operator alerts (degraded key source). Injected as
	// an interface so this module has zero knowledge of the concrete
	// notification implementation.
	Notifier notifx.Notifier
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// Only expose what cmd/ actually needs; repos and infra stay private.
// ---------------------------------------------------------------------------

type Container struct {
	// Key source bootstrap — cmd/ reads Degraded() for the health endpoint
	Bootstrapper *keyset.Bootstrapper

	// Matrix — policy decisions plus the administrative operations
	Matrix *policysrv.Matrix

	// API handlers — needed by cmd/ to register routes
	PolicyHandlers *policyapi.Handlers

	// Middleware — guards every route in the table
	Middleware *authz.Middleware

	bus             *policysrv.RedisInvalidationBus
	refreshInterval time.Duration
}

// ---------------------------------------------------------------------------
// New: constructs the entire IAM dependency graph.
// Order matters: infra → repos → services → handlers → middleware.
// ---------------------------------------------------------------------------

func New(deps Deps) *Container {
	logx.Info("🔧 Initializing IAM container...")

	c := &Container{refreshInterval: deps.Cfg.Policy.RefreshInterval}

	// ── Repositories ─────────────────────────────────────────────────────

	tenantRepo := tenantinfra.NewPostgresTenantRepository(deps.DB)
	endpointRepo := policyinfra.NewPostgresEndpointRepository(deps.DB)
	grantRepo := policyinfra.NewPostgresGrantRepository(deps.DB)

	// ── Key source ───────────────────────────────────────────────────────

	source := keyset.NewJWKSSource(deps.Cfg.OIDC.JWKSURL, keyset.JWKSOptions{
		TTL:            deps.Cfg.OIDC.KeyTTL,
		FetchTimeout:   deps.Cfg.OIDC.FetchTimeout,
		FetchPerMinute: deps.Cfg.OIDC.FetchPerMinute,
	})
	c.Bootstrapper = keyset.NewBootstrapper(source, keyset.BootstrapOptions{
		ReachabilityTimeout: deps.Cfg.OIDC.ReachabilityTimeout,
		MaxAttempts:         deps.Cfg.OIDC.BootstrapMaxAttempts,
		BaseDelay:           deps.Cfg.OIDC.BootstrapBaseDelay,
		Notifier:            deps.Notifier,
		AlertsTo:            deps.Cfg.Notify.AlertsTo,
	})

	// ── Pipeline pieces ──────────────────────────────────────────────────

	verifier := token.NewVerifier(source, deps.Cfg.OIDC.IssuerAllowList, deps.Cfg.OIDC.ClientID)
	extractor := role.NewExtractor(deps.Cfg.OIDC.SuperAdminEmail)
	resolver := tenant.NewResolver(
		tenantRepo,
		deps.Cfg.Server.SelfHostnames,
		deps.Cfg.Server.BaseDomain,
		[]string{"/health", "/.well-known"},
	)

	// ── Policy matrix ────────────────────────────────────────────────────

	c.bus = policysrv.NewRedisInvalidationBus(deps.Redis, deps.Cfg.Policy.InvalidationChannel)
	c.Matrix = policysrv.NewMatrix(endpointRepo, grantRepo, c.bus)

	// ── Handlers and middleware ──────────────────────────────────────────

	c.PolicyHandlers = policyapi.NewHandlers(c.Matrix)
	c.Middleware = authz.NewMiddleware(resolver, verifier, extractor, c.Matrix)

	logx.Info("✅ IAM container initialized")
	return c
}

// StartBackgroundServices starts the IAM background workers: the JWKS
// bootstrap, the invalidation listener, and the periodic snapshot refresh.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	go c.Bootstrapper.Run(ctx)
	logx.Info("  ✅ JWKS bootstrap started")

	go c.bus.Listen(ctx, func(ctx context.Context) {
		if err := c.Matrix.Refresh(ctx); err != nil {
			logx.WithError(err).Warn("policy: refresh on invalidation failed")
		}
	})
	logx.Info("  ✅ Policy invalidation listener started")

	go c.periodicRefresh(ctx)
	logx.Info("  ✅ Policy refresh loop started")
}

func (c *Container) periodicRefresh(ctx context.Context) {
	interval := c.refreshInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Matrix.Refresh(ctx); err != nil {
				logx.WithError(err).Warn("policy: periodic refresh failed")
			}
		}
	}
}
