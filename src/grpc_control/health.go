package grpc_control

import (
	"fmt"
	"net"
	"sync"

	"market-sync/src/logger"
	"market-sync/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const defaultGrpcPort = 50051

// HealthService publishes the availability of the push channel and the
// snapshot API over the standard gRPC health protocol. The empty service
// name reports the process itself.
type HealthService struct {
	Addr   string
	Logger *logger.Logger

	health *health.Server
	grpc   *grpc.Server

	mu       sync.Mutex
	statuses map[string]bool
}

// -----------------------------------------------------------------------------

// NewHealthService registers services, all NOT_SERVING until reported otherwise.
func NewHealthService(cfg *models.MConfig, log *logger.Logger, services ...string) *HealthService {
	port := cfg.GrpcPort
	if port == 0 {
		port = defaultGrpcPort
	}

	h := &HealthService{
		Addr:     fmt.Sprintf("%s:%d", cfg.GrpcHost, port),
		Logger:   log,
		health:   health.NewServer(),
		grpc:     grpc.NewServer(),
		statuses: make(map[string]bool),
	}

	h.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, s := range services {
		h.statuses[s] = false
		h.health.SetServingStatus(s, healthpb.HealthCheckResponse_NOT_SERVING)
	}

	healthpb.RegisterHealthServer(h.grpc, h.health)
	reflection.Register(h.grpc)
	return h
}

// -----------------------------------------------------------------------------

// SetServing implements IHealthReporter. Only transitions are logged.
func (h *HealthService) SetServing(service string, serving bool) {
	h.mu.Lock()
	prev, known := h.statuses[service]
	h.statuses[service] = serving
	h.mu.Unlock()

	if known && prev == serving {
		return
	}

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(service, status)
	h.Logger.Info("Health %s -> %s", service, status)
}

// -----------------------------------------------------------------------------

// Start listens on Addr and serves until Stop.
func (h *HealthService) Start() error {
	lis, err := net.Listen("tcp", h.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on %s: %w", h.Addr, err)
	}
	return h.Serve(lis)
}

// Serve serves on an existing listener.
func (h *HealthService) Serve(lis net.Listener) error {
	h.Logger.Info("Starting gRPC health server on %s", lis.Addr())
	return h.grpc.Serve(lis)
}

// -----------------------------------------------------------------------------

func (h *HealthService) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
