package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"flightlooker/chart"
	"flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
	"flightlooker/processor"
	"flightlooker/rates"
	"flightlooker/reader/amadeus"
	"flightlooker/reader/demo"
	"flightlooker/search"
	"flightlooker/vpn"
	"flightlooker/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	origin := flag.String("origin", "WAW", "Origin airport IATA code")
	destination := flag.String("destination", "BCN", "Destination airport IATA code")
	date := flag.String("date", "", "Departure date YYYY-MM-DD (default: 30 days from now)")
	countriesFlag := flag.String("countries", "poland,germany,sweden,czech", "Comma-separated countries to probe, in order")
	adults := flag.Int("adults", 1, "Number of adult passengers")
	useVPN := flag.Bool("use-vpn", false, "Switch identity through NordVPN instead of simulating")
	saveCSV := flag.Bool("save-csv", false, "Export the ranking as CSV")
	noCharts := flag.Bool("no-charts", false, "Skip chart rendering")
	top := flag.Int("top", 0, "Show only the N cheapest markets (0 = all)")
	configPath := flag.String("config", "", "Path to configuration file")
	countriesPath := flag.String("countries-file", "", "Path to the country table file")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	if *useVPN {
		cfg.VPN.Provider = "nordvpn"
	}
	if *saveCSV {
		cfg.Writer.CSV.Enabled = true
	}
	if *noCharts {
		cfg.Charts.Enabled = false
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	countries := config.DefaultCountries()
	if *countriesPath != "" {
		countries, err = config.LoadCountries(*countriesPath)
		if err != nil {
			log.WithError(err).Error("Failed to load country table")
			os.Exit(1)
		}
	}

	departure := *date
	if departure == "" {
		departure = time.Now().AddDate(0, 0, 30).Format("2006-01-02")
	}

	req := models.SearchRequest{
		Origin:        strings.ToUpper(strings.TrimSpace(*origin)),
		Destination:   strings.ToUpper(strings.TrimSpace(*destination)),
		DepartureDate: departure,
		Adults:        *adults,
		Countries:     splitCountries(*countriesFlag),
	}
	if err := req.Validate(); err != nil {
		log.WithError(err).Error("Invalid search request")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Flightlooker.Name,
		"version": cfg.Flightlooker.Version,
		"route":   req.Origin + "-" + req.Destination,
		"date":    req.DepartureDate,
	}).Info("starting flightlooker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
		cancel()
	}()

	if cfg.Logging.CloudWatch {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "", cfg.Logging.DashboardName)
	}
	if cfg.Logging.Report {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	if err := run(ctx, cfg, countries, req, *top); err != nil {
		log.WithError(err).Error("run failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, countries *config.Countries, req models.SearchRequest, top int) error {
	log := logger.GetLogger()

	source, err := selectSource(cfg)
	if err != nil {
		return err
	}
	switcher, err := vpn.New(cfg)
	if err != nil {
		return err
	}
	if switcher.Simulated() {
		log.WithComponent("main").Info("identity switching simulated; prices reflect your real location")
	}

	table, err := rates.NewFetcher(cfg).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("load exchange rates: %w", err)
	}
	log.WithFields(logger.Fields{"source": table.Source, "currencies": len(table.Rates)}).Info("exchange rates loaded")

	orchestrator := search.NewOrchestrator(switcher, source, countries, cfg)
	results, err := orchestrator.Search(ctx, req)
	if err != nil {
		return err
	}

	ranking := processor.Aggregate(results, table, cfg.Rates.ReportingCurrency)
	summary, err := processor.Statistics(ranking)
	if err != nil {
		var insufficient *models.InsufficientDataError
		if !errors.As(err, &insufficient) {
			return err
		}
		summary = nil
	}

	display := ranking
	if top > 0 && top < len(display.Entries) {
		display.Entries = display.Entries[:top]
	}
	writer.PrintReport(os.Stdout, req, results, display, summary)

	exporter, err := writer.NewExporter(ctx, cfg)
	if err != nil {
		return err
	}
	defer exporter.Close()
	if _, err := exporter.Export(ctx, req, ranking); err != nil {
		log.WithError(err).Warn("some exports failed")
	}

	if cfg.Charts.Enabled {
		if _, err := chart.NewRenderer(cfg).Render(req, ranking, summary); err != nil {
			log.WithError(err).Warn("chart rendering failed")
		}
	}

	return nil
}

func selectSource(cfg *config.Config) (search.OfferSource, error) {
	if cfg.Source.Amadeus.Enabled && cfg.Source.Amadeus.APIKey != "" {
		return amadeus.NewClient(cfg), nil
	}
	if cfg.Source.Demo.Enabled {
		logger.GetLogger().WithComponent("main").Info("using demo offer source")
		return demo.NewGenerator(cfg), nil
	}
	return nil, fmt.Errorf("no offer source available: enable demo or configure amadeus credentials")
}

func splitCountries(raw string) []string {
	parts := strings.Split(raw, ",")
	countries := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := strings.TrimSpace(p); c != "" {
			countries = append(countries, c)
		}
	}
	return countries
}
