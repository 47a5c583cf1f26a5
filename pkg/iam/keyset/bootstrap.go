package keyset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vendala/backoffice/pkg/asyncx"
	"github.com/vendala/backoffice/pkg/logx"
	"github.com/vendala/backoffice/pkg/notifx"
)

// Bootstrapper warms the key cache at service start. Per-request key lookups
// never retry; the retry budget lives here, so request latency stays bounded.
// When every attempt fails the service keeps running in degraded mode —
// protected routes fail closed instead of the process crashing — and an
// operator alert goes out.
type Bootstrapper struct {
	source              *JWKSSource
	notifier            notifx.Notifier
	alertsTo            []string
	reachabilityTimeout time.Duration
	maxAttempts         int
	baseDelay           time.Duration

	degraded atomic.Bool
}

// BootstrapOptions configures the startup key fetch.
type BootstrapOptions struct {
	// ReachabilityTimeout bounds the initial provider reachability probe.
	// Default 15s.
	ReachabilityTimeout time.Duration

	// MaxAttempts bounds the retry loop. Default 5.
	MaxAttempts int

	// BaseDelay is the first backoff delay; it doubles per attempt.
	// Default 1s.
	BaseDelay time.Duration

	// Notifier receives the degraded-mode operator alert. Optional.
	Notifier notifx.Notifier

	// AlertsTo are the alert recipients.
	AlertsTo []string
}

// NewBootstrapper wires a bootstrapper around a JWKS source.
func NewBootstrapper(source *JWKSSource, opts BootstrapOptions) *Bootstrapper {
	if opts.ReachabilityTimeout <= 0 {
		opts.ReachabilityTimeout = 15 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	return &Bootstrapper{
		source:              source,
		notifier:            opts.Notifier,
		alertsTo:            opts.AlertsTo,
		reachabilityTimeout: opts.ReachabilityTimeout,
		maxAttempts:         opts.MaxAttempts,
		baseDelay:           opts.BaseDelay,
	}
}

// Degraded reports whether bootstrap exhausted its attempts. Exposed on the
// health endpoint.
func (b *Bootstrapper) Degraded() bool {
	return b.degraded.Load()
}

// Run probes the provider and warms the key cache, retrying with exponential
// backoff. It never returns an error: failure degrades, it does not crash.
func (b *Bootstrapper) Run(ctx context.Context) {
	attempt := 0
	_, err := asyncx.RetryWithBackoff(ctx, b.maxAttempts, b.baseDelay,
		func(ctx context.Context) (struct{}, error) {
			attempt++
			if err := b.attempt(ctx); err != nil {
				logx.WithError(err).Fields(logx.Fields{
					"attempt":      attempt,
					"max_attempts": b.maxAttempts,
				}).Warn("keyset: bootstrap attempt failed")
				return struct{}{}, err
			}
			return struct{}{}, nil
		})
	if err == nil {
		b.degraded.Store(false)
		logx.WithField("attempt", attempt).Info("keyset: bootstrap complete")
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logx.Warn("keyset: bootstrap cancelled")
		return
	}

	b.degraded.Store(true)
	logx.Error("keyset: bootstrap exhausted all attempts, running degraded: protected routes will fail closed")
	b.alert(ctx)
}

func (b *Bootstrapper) attempt(ctx context.Context) error {
	if err := b.probe(ctx); err != nil {
		return err
	}
	return b.source.refresh(ctx)
}

// probe checks the provider answers at all before spending the fetch budget.
func (b *Bootstrapper) probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, b.reachabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, b.source.url, nil)
	if err != nil {
		return err
	}
	resp, err := b.source.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (b *Bootstrapper) alert(ctx context.Context) {
	if b.notifier == nil || len(b.alertsTo) == 0 {
		return
	}
	err := b.notifier.SendEmail(ctx, notifx.EmailMessage{
		To:      b.alertsTo,
		Subject: "[backoffice] identity provider key bootstrap failed",
		TextBody: "The backoffice could not fetch signing keys from the identity provider at startup. " +
			"The service is running in degraded mode: all protected routes fail closed until keys can be fetched.",
	})
	if err != nil {
		logx.WithError(err).Error("keyset: failed to send degraded-mode alert")
	}
}
