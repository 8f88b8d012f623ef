package main

import (
	"market-sync/src/config"
	"market-sync/src/data_source/binance"
	"market-sync/src/grpc_control"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/network"
	"market-sync/src/server"
	"market-sync/src/session"
	"market-sync/src/storage"
	"market-sync/src/transport"
)

// -----------------------------------------------------------------------------

// setupDatabase opens the configured backend and creates its schema
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.NewDatabase(config, appLogger.Named("Storage"))
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// loadInitialView restores the last declared view, or the configured default
func loadInitialView(config *config.Config, db interfaces.IDatabase, appLogger *logger.Logger) models.MViewState {
	view, ok, err := db.LoadViewState(sessionID)
	switch {
	case err != nil:
		appLogger.Warning("Could not load saved view, using defaults: %v", err)
	case ok:
		appLogger.Info("Restored view: page=%s symbols=%d chart=%s/%s", view.Page, len(view.Symbols), view.Symbol, view.Interval)
		if view.Interval == "" || config.SupportsInterval(view.Interval) {
			return view
		}
		appLogger.Warning("Saved interval %q no longer supported, using defaults", view.Interval)
	}
	return config.DefaultViewState()
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig, appLogger *logger.Logger) interfaces.INetworkManager {
	return network.NewAsyncNetworkManager(config, appLogger.Named("NetworkManager"))
}

// -----------------------------------------------------------------------------

func setupSnapshotSource(config *config.Config, networkManager interfaces.INetworkManager, appLogger *logger.Logger) interfaces.ISnapshotSource {
	source := binance.NewBinanceSource(config.Backend.RestURL, networkManager, appLogger.Named("SnapshotSource"))
	appLogger.Info("Snapshot source: %s (%s)", source.Name(), source.BaseURL)
	return source
}

// -----------------------------------------------------------------------------

func setupTransport(config *config.Config, appLogger *logger.Logger) interfaces.IPushTransport {
	return transport.NewPushClient(config.Backend.PushURL, transport.OptionsFromConfig(config.Backend), appLogger.Named("PushClient"))
}

// -----------------------------------------------------------------------------

func setupHealth(config *config.Config, appLogger *logger.Logger) *grpc_control.HealthService {
	return grpc_control.NewHealthService(config.MConfig, appLogger.Named("Health"), session.ServicePush, session.ServiceSnapshot)
}

// -----------------------------------------------------------------------------

func setupViewServer(config *config.Config, appLogger *logger.Logger) *server.ViewServer {
	return server.NewViewServer(config, appLogger.Named("ViewServer"))
}
