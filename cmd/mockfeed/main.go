// Command mockfeed is a local stand-in for the dashboard backend: a
// random-walk market behind the same REST and push endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-sync/src/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "listen address")
	period := flag.Duration("period", time.Second, "push period")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random walk seed")
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)
	appLogger := logger.NewLogger(nil, "MockFeed")

	f := newFeed(newMarket(*seed), *period, appLogger)
	srv := &http.Server{Addr: *addr, Handler: f.routes()}

	go func() {
		appLogger.Info("Mock feed on http://%s (push ws://%s/ws, period %s)", *addr, *addr, *period)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Critical("Mock feed failed: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
