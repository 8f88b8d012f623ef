package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"market-sync/src/config"
	"market-sync/src/logger"
	"market-sync/src/session"
)

const sessionID = "main"

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.MConfig, config.Name)

	// 1. Persistence (last declared view)
	db, err := setupDatabase(config.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	defer db.Close()

	initial := loadInitialView(config, db, appLogger)

	// 2. Collaborators
	networkManager := setupNetwork(config.MConfig, appLogger)
	source := setupSnapshotSource(config, networkManager, appLogger)
	transport := setupTransport(config, appLogger)
	health := setupHealth(config, appLogger)
	srv := setupViewServer(config, appLogger)

	// 3. Session
	sess := session.NewSession(sessionID, config.Backend.SeriesCapacity, initial, session.Dependencies{
		Transport: transport,
		Source:    source,
		Sink:      srv,
		Database:  db,
		Health:    health,
	}, appLogger.Named("Session"))
	srv.SetSession(sess)

	// 4. Servers
	startServers(srv, health, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := &sync.WaitGroup{}
	if err := transport.Start(ctx, wg); err != nil {
		appLogger.Critical("Failed to start push client: %v", err)
		return
	}

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := sess.Run(ctx); err != nil {
			appLogger.Error("Session stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down...")
	case <-sessionDone:
		appLogger.Warning("Session exited, shutting down")
	}

	cancel()
	<-sessionDone
	wg.Wait()
	stopServers(srv, health, appLogger)
}
