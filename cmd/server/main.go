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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"learninghouse/internal/api"
	"learninghouse/internal/auth"
	"learninghouse/internal/brain"
	"learninghouse/internal/config"
	"learninghouse/internal/history"
	"learninghouse/internal/logging"
	"learninghouse/internal/metrics"
	"learninghouse/internal/mqtt"
	"learninghouse/internal/sensors"
)

func main() {
	configFile := flag.String("config", "", "Path to an optional YAML settings file")
	flag.Parse()

	settings, err := config.Load(*configFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load settings")
	}

	log := logging.New(settings.LoggingLevel, settings.LogJSON)
	if err := run(settings, log); err != nil {
		log.WithError(err).Fatal("service stopped")
	}
}

func run(settings *config.Settings, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(settings.BrainsDirectory, 0755); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := brain.NewStore(settings.BrainsDirectory)
	sensorStore := sensors.NewStore(settings.BrainsDirectory, log)

	opts := []brain.Option{brain.WithMetrics(metrics.New(registry))}
	if settings.History.Enabled {
		runs, err := history.Open(settings.HistoryPath())
		if err != nil {
			return err
		}
		defer runs.Close()
		opts = append(opts, brain.WithHistory(runs))
	}

	service := brain.NewService(store, sensorStore, log, opts...)
	configs := brain.NewConfigurationService(store, log)
	configs.OnDelete(service.Forget)

	tokens := auth.NewTokenIssuer(settings.JWTSecret, settings.JWTExpire())
	authService, err := auth.NewService(settings.BrainsDirectory, tokens, settings.InitialAdminPassword, log)
	if err != nil {
		return err
	}

	if settings.MQTT.Enabled {
		bridge, err := mqtt.Connect(service, mqtt.Config{
			Broker:      settings.MQTT.Broker,
			ClientID:    settings.MQTT.ClientID,
			Username:    settings.MQTT.Username,
			Password:    settings.MQTT.Password,
			TopicPrefix: settings.MQTT.TopicPrefix,
			QoS:         byte(settings.MQTT.QoS),
		}, log)
		if err != nil {
			return err
		}
		defer bridge.Close()
	}

	if !settings.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(service, configs, sensorStore, authService, registry, log)

	server := &http.Server{
		Addr:              settings.Address(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", server.Addr).
			WithField("environment", settings.Environment).
			WithField("versions", service.Versions().String()).
			Info("learningHouse service started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
