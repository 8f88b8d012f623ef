package main

import (
	"market-sync/src/grpc_control"
	"market-sync/src/logger"
	"market-sync/src/server"
)

// -----------------------------------------------------------------------------

// startServers runs the view server and the gRPC health endpoint
func startServers(srv *server.ViewServer, health *grpc_control.HealthService, appLogger *logger.Logger) {

	// 1. View server (REST + WebSocket)
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("View server failed: %v", err)
		}
	}()

	// 2. gRPC health
	go func() {
		if err := health.Start(); err != nil {
			appLogger.Critical("gRPC health server failed: %v", err)
		}
	}()
}

// -----------------------------------------------------------------------------

func stopServers(srv *server.ViewServer, health *grpc_control.HealthService, appLogger *logger.Logger) {
	if err := srv.Stop(); err != nil {
		appLogger.Warning("View server shutdown: %v", err)
	}
	health.Stop()
}
