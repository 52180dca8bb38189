package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neurolytics/neuroscan/internal/application"
	appanalysis "github.com/neurolytics/neuroscan/internal/application/analysis"
	appchat "github.com/neurolytics/neuroscan/internal/application/chat"
	"github.com/neurolytics/neuroscan/internal/config"
	aiclient "github.com/neurolytics/neuroscan/internal/infra/ai/openai"
	"github.com/neurolytics/neuroscan/internal/infra/httpserver"
	minioStore "github.com/neurolytics/neuroscan/internal/infra/storage"
	"github.com/neurolytics/neuroscan/internal/infra/viewer"
	"github.com/neurolytics/neuroscan/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// init minio artifact store
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
		cfg.PresignExpiry(),
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// init inference client; model configuration is immutable from here on
	client := aiclient.NewClient(aiclient.Config{
		APIKey:       cfg.AI.APIKey,
		BaseURL:      cfg.AI.BaseURL,
		Model:        cfg.AI.Model,
		Temperature:  cfg.AI.Temperature,
		MaxTokens:    cfg.AI.MaxOutputTokens,
		PollInterval: cfg.PollInterval(),
		PollTimeout:  cfg.PollTimeout(),
	})

	// init services
	analysisSvc := &appanalysis.Service{
		AI:    client,
		Store: store,
		Clock: application.SystemClock{},
	}
	chatSvc := appchat.NewService(client, store)
	launcher := viewer.NewLauncher(cfg.Viewer.Command, cfg.Viewer.ScansRoot)

	checkers := map[string]middleware.HealthChecker{
		"storage": middleware.CheckerFunc(store.Ping),
	}

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(analysisSvc, chatSvc, launcher, checkers))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
