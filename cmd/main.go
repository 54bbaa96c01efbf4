package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "co2_monitor/docs"
	"co2_monitor/internal/config"
	"co2_monitor/internal/delivery"
	"co2_monitor/internal/handlers"
	"co2_monitor/internal/logger"
	"co2_monitor/internal/metrics"
	"co2_monitor/internal/netatmo"
	"co2_monitor/internal/repository"
	"co2_monitor/internal/repository/db"
	"co2_monitor/internal/server"
	"co2_monitor/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title                       CO2 Monitor API
// @version                     1.0
// @description                 Polls a Netatmo station and exposes the CO2 status, badge, theme and notifications.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-key" {
		if err := hashKey(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// load config.yml
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid config", "err", err)
	}

	// open DB
	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	api, err := netatmo.NewClient(netatmo.Config{
		BaseURL:      cfg.Netatmo.APIBase,
		ClientID:     cfg.Netatmo.ClientID,
		ClientSecret: cfg.Netatmo.ClientSecret,
		RedirectURI:  cfg.Netatmo.RedirectURI,
		Scopes:       cfg.Netatmo.Scopes,
		Timeout:      cfg.Netatmo.Timeout,
	})
	if err != nil {
		log.Fatalw("failed to init netatmo client", "err", err)
	}

	logins, err := service.NewLoginStates(cfg.Auth.StateSecret, cfg.Auth.StateTTL)
	if err != nil {
		log.Fatalw("failed to init login states", "err", err)
	}

	notifier, closers := buildNotifier(cfg.Notify, log)
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(conn)
	m := metrics.New()
	connectivity := service.NewConnectivity(true)
	agent := service.NewAgent(service.AgentDeps{
		API:                api,
		Store:              repos.Store,
		Notifications:      repos.Notifications,
		Notifier:           notifier,
		Metrics:            m,
		Connectivity:       connectivity,
		LoginStates:        logins,
		Log:                log,
		MaxRefreshAttempts: cfg.Agent.MaxRefreshAttempts,
	})
	services := service.NewService(agent,
		service.NewHistoryService(repos.Notifications),
		service.NewAPIKeyService(cfg.API.KeyHash))
	apiHandler := handlers.NewHandler(services, log.Named("http"), m.Handler())

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go connectivity.Watch(ctx, cfg.Agent.ProbeAddr, cfg.Agent.ProbeInterval, log.Named("connectivity"))

	if err := agent.Start(ctx); err != nil {
		log.Fatalw("failed to start agent", "err", err)
	}

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, agent, srv, log)
}

// buildNotifier fans notifications out to the log and every configured sink.
// Sinks that fail to connect are skipped.
func buildNotifier(cfg config.NotifyConfig, log *logger.Logger) (*delivery.Multi, []io.Closer) {
	channels := []delivery.Channel{delivery.NewLogChannel(log.Named("notify"))}
	var closers []io.Closer

	if cfg.WebhookURL != "" {
		wh, err := delivery.NewWebhookChannel(cfg.WebhookURL)
		if err != nil {
			log.Errorw("webhook_channel_disabled", "err", err)
		} else {
			channels = append(channels, wh)
		}
	}
	if cfg.AMQPURL != "" {
		ch, err := delivery.NewAMQPChannel(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			log.Errorw("amqp_channel_disabled", "err", err)
		} else {
			channels = append(channels, ch)
			closers = append(closers, ch)
		}
	}
	if cfg.MQTTBroker != "" {
		ch, err := delivery.NewMQTTChannel(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
		if err != nil {
			log.Errorw("mqtt_channel_disabled", "err", err)
		} else {
			channels = append(channels, ch)
			closers = append(closers, ch)
		}
	}

	multi := delivery.NewMulti(channels...)
	log.Infow("notification_channels", "count", multi.Len())
	return multi, closers
}

// hashKey reads an API key from r and prints its bcrypt hash for api.key_hash.
func hashKey(r io.Reader, w io.Writer) error {
	raw, err := io.ReadAll(io.LimitReader(r, 1<<10))
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return fmt.Errorf("empty key on stdin")
	}
	hash, err := service.HashAPIKey(key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		log.Infow("http_listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !server.IsClosed(err) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, agent *service.Agent, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop timers and background goroutines
	cancel()
	agent.Stop()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
