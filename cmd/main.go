package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"interview-engine/pkg/api"
	"interview-engine/pkg/config"
	"interview-engine/pkg/genai"
	"interview-engine/pkg/session"
	"interview-engine/pkg/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "interview-engine",
		Short: "Real-time mock-interview session engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.NewEntry(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	payloads, err := store.NewDiskStore(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	defer payloads.Close()

	var history *store.HistoryStore
	if cfg.Storage.HistoryPath != "" {
		history, err = store.OpenHistory(cfg.Storage.HistoryPath)
		if err != nil {
			return err
		}
		defer history.Close()
	}

	engine := session.NewEngine(cfg, payloads, history, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		return err
	}

	generator := genai.NewClient(cfg.GenAI.URL, cfg.GenAI.RequestTimeout)
	handlers := api.NewHandlers(engine, history, generator, cfg.BuildQuestions(), log)

	router := mux.NewRouter()
	handlers.Register(router)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("address", cfg.Server.Address).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced to shut down")
	}

	engine.Shutdown()
	log.Info("server exited")
	return nil
}
