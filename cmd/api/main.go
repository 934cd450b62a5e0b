package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markdave123-py/docingest/internal/app"
	"github.com/markdave123-py/docingest/internal/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer application.Close()

	application.DocProcessor.Start(ctx, cfg.IngestWorkers)

	if application.Inbox != nil {
		go func() {
			if err := application.Inbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("inbox stopped: %v", err)
			}
		}()
	}

	go func() {
		if err := application.Server.Start(); err != nil {
			log.Printf("server error: %v", err)
			cancel()
		}
	}()

	log.Println("docingest is running; DB connected and bootstrapped.")
	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	application.DocProcessor.Wait()
}
