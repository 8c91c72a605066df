package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/config"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/export"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/locationapi"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/logger"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"   env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Query      string `short:"q" long:"query"    description:"Text filter passed to the location API"`
	Limit      int    `short:"l" long:"limit"    description:"Page size requested from the location API" default:"500"`
	MaxPages   int    `short:"m" long:"max-pages" description:"Stop after this many pages" default:"100"`
	Enrich     bool   `short:"e" long:"enrich"   description:"Fetch surrounding areas and facilities for every outlet"`
	Workers    int    `short:"w" long:"workers"  description:"Concurrent enrichment lookups" default:"4"`
	Output     string `short:"o" long:"out"      description:"Output file path. Writes to stdout if empty"`
	Format     string `short:"f" long:"format"   description:"Output format" choice:"json" choice:"yaml" choice:"geojson" choice:"csv" default:"json"`
}

func main() {
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	if opts.Limit <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --limit must be > 0")
		os.Exit(1)
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.ConfigFile).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := locationapi.New(locationapi.Options{
		BaseURL:           cfg.LocationAPI.BaseURL,
		EnrichmentURL:     cfg.Enrichment.URL,
		Timeout:           cfg.LocationAPI.Timeout,
		EnrichmentTimeout: cfg.Enrichment.Timeout,
		EnrichmentRate:    cfg.Enrichment.Rate,
		EnrichmentBurst:   cfg.Enrichment.Burst,
	})

	outlets, err := fetchAll(ctx, client, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch outlets")
	}

	records := make([]export.Record, len(outlets))
	enrichments := make([]outlet.Enrichment, len(outlets))

	if opts.Enrich {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, opts.Workers))
		for i, o := range outlets {
			g.Go(func() error {
				enrichments[i] = client.FetchEnrichment(gctx, o.Code)
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, o := range outlets {
		records[i] = export.NewRecord(outlet.NewDetail(o, enrichments[i]))
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, opts.Format, records); err != nil {
		log.Fatal().Err(err).Str("format", opts.Format).Msg("Failed to encode outlets")
	}

	if opts.Output == "" {
		_, _ = os.Stdout.Write(buf.Bytes())
		return
	}

	if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write output file")
	}

	log.Info().
		Int("outlets", len(records)).
		Str("path", opts.Output).
		Str("format", opts.Format).
		Msg("Export completed")
}

// fetchAll pages through the location API until a short page is returned.
func fetchAll(ctx context.Context, client *locationapi.Client, opts Options) ([]outlet.Outlet, error) {
	var all []outlet.Outlet

	for page := 1; page <= opts.MaxPages; page++ {
		batch, err := client.SearchOutlets(ctx, locationapi.SearchParams{
			Query: opts.Query,
			Page:  page,
			Limit: opts.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		all = append(all, batch...)
		log.Debug().Int("page", page).Int("count", len(batch)).Msg("Fetched outlet page")

		if len(batch) < opts.Limit {
			break
		}
	}

	return all, nil
}
