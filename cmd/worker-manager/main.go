// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"listing-grader/internal/bootstrap"
	"listing-grader/internal/common/camunda"
	"listing-grader/internal/common/config"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/common/observability"

	"listing-grader/internal/workers/grading"
	dgr "listing-grader/internal/workers/grading/derive-grading-rules"
	rc "listing-grader/internal/workers/grading/run-convergence"
	se "listing-grader/internal/workers/grading/select-exemplars"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if err := cfg.RequireCamunda(); err != nil {
		zapLog.Fatal("camunda config invalid", zap.Error(err))
	}

	zapLog = logger.Build(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: cfg.App.Name,
	})
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New(observability.Options{
		ServiceName:    "worker-manager",
		TracingEnabled: cfg.Tracing.Enabled,
		SampleRatio:    cfg.Tracing.SampleRatio,
	}, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = bootstrap.RetryWithBackoff(ctx, func() error {
		var err error
		zeebe, err = camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda), log)
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Backends, loader, publisher, runner ---
	services, err := bootstrap.New(ctx, cfg, log, bootstrap.Options{
		ConnectAttempts: 15,
		Observability:   obs,
	})
	if err != nil {
		zapLog.Fatal("backend initialization failed", zap.Error(err))
	}
	defer services.Close()

	// --- Workers ---
	activities := grading.Activities(cfg)
	if err := activities.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	workers := camunda.NewWorkers(zeebe.GetClient(), log)

	workers.Start(se.TaskType, config.GetWorkerConfig(cfg, se.TaskType),
		camunda.Instrument(se.TaskType, se.NewHandler(se.LoadConfig(cfg), services.Loader, log), obs))

	workers.Start(dgr.TaskType, config.GetWorkerConfig(cfg, dgr.TaskType),
		camunda.Instrument(dgr.TaskType, dgr.NewHandler(dgr.LoadConfig(cfg), log), obs))

	workers.Start(rc.TaskType, config.GetWorkerConfig(cfg, rc.TaskType),
		camunda.Instrument(rc.TaskType, rc.NewHandler(rc.LoadConfig(cfg), services.Runner, log), obs))

	zapLog.Info("grading workers registered", zap.Strings("taskTypes", workers.TaskTypes()))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable", err)
			return
		}
		if err := services.Ready(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable", err)
			return
		}
		writeStatus(w, http.StatusOK, "ready", nil)
	})
	mux.HandleFunc("/activities", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(activities)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	server := &http.Server{
		Addr:              cfg.Metrics.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	workers.Close()
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string, err error) {
	body := map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if err != nil {
		body["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
