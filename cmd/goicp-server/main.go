// Command goicp-server runs the registration engine as a long-lived
// HTTP service instead of a one-shot CLI invocation, for deployments
// that want to submit registration jobs over the network.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anirudhpillai/goicp/internal/obs"
	"github.com/anirudhpillai/goicp/pkg/api/rest"
	"github.com/anirudhpillai/goicp/pkg/api/rest/middleware"
	"github.com/anirudhpillai/goicp/pkg/tenant"
)

func main() {
	var (
		host           = flag.String("host", "0.0.0.0", "server host")
		port           = flag.Int("port", 8080, "server port")
		authEnabled    = flag.Bool("auth", false, "require a bearer JWT on /v1/register")
		jwtSecret      = flag.String("jwt-secret", "", "HMAC secret for JWT validation")
		corsEnabled    = flag.Bool("cors", true, "enable CORS")
		rateEnabled    = flag.Bool("rate-limit", true, "enable per-client rate limiting")
		rateQPS        = flag.Float64("rate-qps", 2, "registration submissions per second per client")
		rateBurst      = flag.Int("rate-burst", 4, "rate limiter burst size")
		quotaMaxPoints = flag.Int64("quota-max-points", 200000, "max combined model+data points per job")
		quotaMaxJobs   = flag.Int("quota-max-concurrent", 2, "max concurrent jobs per tenant")
	)
	flag.Parse()

	log.Printf("goicp-server starting on %s:%d", *host, *port)

	obsLog := obs.NewDefaultLogger()
	metrics := obs.NewMetrics()

	cfg := rest.Config{
		Host:        *host,
		Port:        *port,
		CORSEnabled: *corsEnabled,
		CORSOrigins: []string{"*"},
		Auth: middleware.AuthConfig{
			Enabled:     *authEnabled,
			JWTSecret:   *jwtSecret,
			PublicPaths: []string{"/v1/health"},
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        *rateEnabled,
			RequestsPerSec: *rateQPS,
			Burst:          *rateBurst,
			PerUser:        *authEnabled,
		},
		Quota: tenant.Quota{
			MaxPoints:     *quotaMaxPoints,
			MaxConcurrent: *quotaMaxJobs,
		},
	}

	server := rest.NewServer(cfg, obsLog, metrics)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal: %v", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("error stopping server: %v", err)
	}
}
