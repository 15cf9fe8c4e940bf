package main

import (
	"os"
	"os/signal"
	"syscall"

	"hermes/internal/bootstrap"
	"hermes/pkg/logger"
)

func main() {
	container := bootstrap.NewContainer()
	container.MustInit()
	defer logger.Sync()

	log := container.Log

	if err := container.Start(); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	waitForShutdown(container)
}

// waitForShutdown blocks until a termination signal or a fatal
// component failure, then runs the coordinated shutdown.
func waitForShutdown(container *bootstrap.Container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		container.Log.Infof("Received signal %s, shutting down...", sig)
	case <-container.Context.Done():
		container.Log.Warn("Application context cancelled, shutting down...")
	}

	container.Shutdown()
}
