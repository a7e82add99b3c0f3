// Command datedeals scans a range of departure dates for one route and
// reports the cheapest market per date, so flexible travelers can pick the
// day as well as the country.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
	"flightlooker/processor"
	"flightlooker/rates"
	"flightlooker/reader/amadeus"
	"flightlooker/reader/demo"
	"flightlooker/search"
	"flightlooker/vpn"
)

type dateDeal struct {
	date    string
	entry   models.RankedEntry
	probed  int
	failed  int
	markets int
}

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	origin := flag.String("origin", "WAW", "Origin airport IATA code")
	destination := flag.String("destination", "BCN", "Destination airport IATA code")
	start := flag.String("start", "", "First departure date YYYY-MM-DD (default: 7 days from now)")
	days := flag.Int("days", 7, "Number of consecutive departure dates to scan")
	countriesFlag := flag.String("countries", "poland,germany,sweden,czech", "Comma-separated countries to probe per date")
	adults := flag.Int("adults", 1, "Number of adult passengers")
	useVPN := flag.Bool("use-vpn", false, "Switch identity through NordVPN instead of simulating")
	configPath := flag.String("config", "", "Path to configuration file")

	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	if *useVPN {
		cfg.VPN.Provider = "nordvpn"
	}
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if *days <= 0 {
		log.Error("days must be positive")
		os.Exit(1)
	}

	firstDate := *start
	if firstDate == "" {
		firstDate = time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	}
	startDay, err := time.Parse("2006-01-02", firstDate)
	if err != nil {
		log.WithError(err).Error("Invalid start date")
		os.Exit(1)
	}

	countries := splitList(*countriesFlag)
	baseReq := models.SearchRequest{
		Origin:        strings.ToUpper(strings.TrimSpace(*origin)),
		Destination:   strings.ToUpper(strings.TrimSpace(*destination)),
		DepartureDate: firstDate,
		Adults:        *adults,
		Countries:     countries,
	}
	if err := baseReq.Validate(); err != nil {
		log.WithError(err).Error("Invalid search request")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := scan(ctx, cfg, baseReq, startDay, *days); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("scan interrupted")
			return
		}
		log.WithError(err).Error("scan failed")
		os.Exit(1)
	}
}

func scan(ctx context.Context, cfg *config.Config, baseReq models.SearchRequest, startDay time.Time, days int) error {
	log := logger.GetLogger().WithComponent("datedeals")

	var source search.OfferSource
	switch {
	case cfg.Source.Amadeus.Enabled && cfg.Source.Amadeus.APIKey != "":
		source = amadeus.NewClient(cfg)
	case cfg.Source.Demo.Enabled:
		log.Info("using demo offer source")
		source = demo.NewGenerator(cfg)
	default:
		return fmt.Errorf("no offer source available: enable demo or configure amadeus credentials")
	}

	switcher, err := vpn.New(cfg)
	if err != nil {
		return err
	}

	table, err := rates.NewFetcher(cfg).Fetch(ctx)
	if err != nil {
		return fmt.Errorf("load exchange rates: %w", err)
	}

	orchestrator := search.NewOrchestrator(switcher, source, config.DefaultCountries(), cfg)

	var deals []dateDeal
	for i := 0; i < days; i++ {
		req := baseReq
		req.DepartureDate = startDay.AddDate(0, 0, i).Format("2006-01-02")

		log.WithFields(logger.Fields{"date": req.DepartureDate}).Info("scanning departure date")
		results, err := orchestrator.Search(ctx, req)
		if err != nil {
			return err
		}

		ranking := processor.Aggregate(results, table, cfg.Rates.ReportingCurrency)
		deal := dateDeal{
			date:    req.DepartureDate,
			probed:  len(results),
			failed:  ranking.Failed,
			markets: len(ranking.Entries),
		}
		if len(ranking.Entries) > 0 {
			deal.entry = ranking.Entries[0]
		}
		deals = append(deals, deal)
	}

	printDeals(os.Stdout, baseReq, cfg.Rates.ReportingCurrency, deals)
	return nil
}

func printDeals(w *os.File, req models.SearchRequest, currency string, deals []dateDeal) {
	line := strings.Repeat("=", 64)
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "  %s -> %s, cheapest market per departure date (%s)\n", req.Origin, req.Destination, currency)
	fmt.Fprintln(w, line)

	usable := make([]dateDeal, 0, len(deals))
	for _, d := range deals {
		if d.markets == 0 {
			fmt.Fprintf(w, "  %s  no usable offers (%d probed, %d failed)\n", d.date, d.probed, d.failed)
			continue
		}
		usable = append(usable, d)
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].entry.Price.LessThan(usable[j].entry.Price)
	})

	best := decimal.Zero
	for i, d := range usable {
		if i == 0 {
			best = d.entry.Price
		}
		premium := ""
		if i > 0 {
			premium = fmt.Sprintf("  (+%s)", d.entry.Price.Sub(best).StringFixed(2))
		}
		fmt.Fprintf(w, "  %2d. %s  %-14s %10s %s%s\n",
			i+1, d.date, d.entry.Country, d.entry.Price.StringFixed(2), currency, premium)
	}
	fmt.Fprintln(w, line)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
