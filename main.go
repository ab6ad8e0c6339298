package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/LilVoxy/finance_etl/ETL/config"
	"github.com/LilVoxy/finance_etl/ETL/metrics"
	"github.com/LilVoxy/finance_etl/ETL/models"
	"github.com/LilVoxy/finance_etl/ETL/utils"
	"github.com/LilVoxy/finance_etl/middleware"
	"github.com/LilVoxy/finance_etl/routes"
	"github.com/LilVoxy/finance_etl/websocket"
)

var configPath string

var serverCmd = &cobra.Command{
	Use:          "finance-report-server",
	Short:        "Сервер отчетов по слою Gold, аномалиям и журналу запусков",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func serve(cfg config.ETLConfig) error {
	logger, err := utils.NewETLLogger(cfg.Paths.LogsDir, cfg.EnableDetailedLogging)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Info("Запуск сервера отчетов...")

	// База метаданных с журналом запусков
	db, err := config.ConnectMetadata(cfg.Paths.MetadataDB)
	if err != nil {
		return err
	}
	defer db.Close()

	runLog := models.NewSQLiteETLLogRepository(db)
	if err := runLog.CreateETLLogTable(); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.NewRunLogCollector(runLog),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Создаем менеджер WebSocket и опрос отчетов об аномалиях
	wsManager := websocket.NewManager(logger)
	go wsManager.Run(ctx)

	feed := websocket.NewAlertFeed(wsManager, cfg.Paths.AlertsDir, cfg.Server.AlertPollInterval, logger)
	if err := feed.Start(); err != nil {
		return err
	}
	defer feed.Stop()

	// Создаем маршрутизатор
	router := mux.NewRouter()
	routes.SetupRoutes(router, routes.Dependencies{
		Paths:       cfg.Paths,
		RunLog:      runLog,
		Registry:    registry,
		Streams:     wsManager,
		RateLimiter: middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger),
		Logger:      logger,
	})

	// Настраиваем сервер
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запускаем сервер в отдельной горутине
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Сервер запущен на %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Ожидаем сигнал завершения или ошибку запуска
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("ошибка запуска сервера: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Получен сигнал завершения, закрываем соединения...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}

	logger.Info("Сервер остановлен")
	return nil
}

func main() {
	serverCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Путь к файлу конфигурации YAML")
	if err := serverCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}
