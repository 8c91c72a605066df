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

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/config"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/locationapi"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/locator"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/logger"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/metrics"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile    string        `short:"c" long:"config"         env:"CONFIG_FILE"      description:"Path to configuration file"       default:"config.yaml"`
	Addr          string        `short:"a" long:"addr"           env:"LISTEN_ADDRESS"   description:"Address to listen on"             default:"0.0.0.0"`
	Port          int           `short:"p" long:"port"           env:"LISTEN_PORT"      description:"Port to listen on"                default:"8080"`
	SecureCookies bool          `short:"s" long:"secure-cookies" env:"SECURE_COOKIES"   description:"Mark session cookies as Secure"`
	ShutdownGrace time.Duration `long:"shutdown-timeout"         env:"SHUTDOWN_TIMEOUT" description:"Graceful shutdown timeout"        default:"10s"`
}

func main() {
	// Missing .env is fine: flags and the environment still apply.
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.ConfigFile).Msg("Failed to load configuration")
	}

	if err := run(opts, cfg); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(opts Options, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	client := locationapi.New(locationapi.Options{
		BaseURL:           cfg.LocationAPI.BaseURL,
		EnrichmentURL:     cfg.Enrichment.URL,
		Timeout:           cfg.LocationAPI.Timeout,
		EnrichmentTimeout: cfg.Enrichment.Timeout,
		EnrichmentRate:    cfg.Enrichment.Rate,
		EnrichmentBurst:   cfg.Enrichment.Burst,
		Metrics:           m,
	})

	store := locator.NewStore(ctx, client, server.SessionOptions(cfg, m), cfg.Session.TTL)

	srvCtx, err := server.NewServerContext(cfg, store, m)
	if err != nil {
		return err
	}
	srvCtx.SecureCookies = opts.SecureCookies

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return store.Run(gctx)
	})

	g.Go(func() error {
		log.Info().
			Str("addr", listenAddr).
			Str("location_api", cfg.LocationAPI.BaseURL).
			Int("search_limit", cfg.Search.Limit).
			Msg("Web server started")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down web server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownGrace)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
