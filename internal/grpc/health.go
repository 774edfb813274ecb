package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is what orchestrators pass when probing the cart specifically.
const ServiceName = "storefront.cart"

// HealthReporter keeps the gRPC health status in line with cart storage
// reachability.
type HealthReporter struct {
	health   *health.Server
	store    storage.Storage
	interval time.Duration
	log      logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHealthReporter(store storage.Storage, interval time.Duration, log logger.Logger) *HealthReporter {
	return &HealthReporter{
		health:   health.NewServer(),
		store:    store,
		interval: interval,
		log:      log,
	}
}

// NewServer builds a gRPC server exposing health and reflection.
func NewServer(reporter *HealthReporter) *grpc.Server {
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthpb.RegisterHealthServer(srv, reporter.health)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(srv)
	return srv
}

// Check probes storage once and records the result.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("cart storage unreachable")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return status
}

func (h *HealthReporter) Start(ctx context.Context) {
	ctx, h.cancel = context.WithCancel(ctx)
	h.Check(ctx)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Check(ctx)
			}
		}
	}()
}

// Stop halts probing and marks every service as not serving.
func (h *HealthReporter) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
	h.health.Shutdown()
}
