package main

import (
	"FaceLens/internal/config"
	"FaceLens/pkg/log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		// log is not up yet; LOG_LEVEL may come from .env
		os.Stderr.WriteString("Error loading .env file: " + err.Error() + "\n")
	}

	logger := log.NewLogger()

	env, err := config.LoadEnv()
	if err != nil {
		logger.Fatal(err)
	}

	validator := config.NewValidator()
	if err := env.Validate(validator); err != nil {
		logger.Fatal(err)
	}

	fiberApp := config.NewFiber(logger, int(env.MaxUploadSize)*2)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithEnv(env),
		config.WithValidator(validator),
		config.WithMiddleware(),
		config.WithUtils(),
		config.WithVisionProvider(),
		config.WithAnnotator(),
		config.WithAnnotationStore(),
		config.WithResultCache(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Infof("Server running on port %s", env.Port)

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
