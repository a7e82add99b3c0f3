// Package rates supplies the frozen per-run exchange rate snapshot. Live
// rates come from the NBP (Narodowy Bank Polski) table A feed with a local
// file cache; a static fallback table keeps the tool usable offline.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
)

// Fetcher loads the exchange rate table once per run. The returned table is
// treated as frozen for the whole run.
type Fetcher struct {
	config     *config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
	now        func() time.Time
}

type cacheFile struct {
	Timestamp time.Time                  `json:"timestamp"`
	Source    string                     `json:"source"`
	Rates     map[string]decimal.Decimal `json:"rates"`
}

type nbpResponse struct {
	Rates []struct {
		Mid decimal.Decimal `json:"mid"`
	} `json:"rates"`
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Rates.Timeout},
		// NBP allows generous request rates; 10 rps keeps the full table
		// fetch under three seconds without hammering the feed.
		limiter: rate.NewLimiter(rate.Limit(10), 1),
		log:     logger.GetLogger(),
		now:     time.Now,
	}
}

// Fetch returns the rate snapshot for this run: a still-valid cache if one
// exists, otherwise a live fetch, otherwise the static fallback. It only
// fails when reading an existing cache file fails in an unexpected way.
func (f *Fetcher) Fetch(ctx context.Context) (*models.RateTable, error) {
	log := f.log.WithComponent("rates")

	if table := f.loadCache(); table != nil {
		log.WithFields(logger.Fields{
			"fetched_at": table.FetchedAt.Format(time.RFC3339),
			"source":     table.Source,
		}).Info("using cached exchange rates")
		return table, nil
	}

	if f.config.Rates.Live {
		table, err := f.fetchLive(ctx)
		if err == nil {
			f.saveCache(table)
			return table, nil
		}
		log.WithError(err).Warn("live rate fetch failed, using fallback table")
	}

	table := &models.RateTable{
		Base:      f.config.Rates.ReportingCurrency,
		Rates:     FallbackTable(),
		FetchedAt: f.now(),
		Source:    "fallback",
	}
	f.saveCache(table)
	return table, nil
}

func (f *Fetcher) fetchLive(ctx context.Context) (*models.RateTable, error) {
	log := f.log.WithComponent("rates")
	log.Info("fetching fresh exchange rates from NBP")

	rates := make(map[string]decimal.Decimal)
	fetched := 0
	for _, code := range nbpSupported {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		mid, err := f.fetchRate(ctx, code)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"currency": code}).Debug("rate fetch failed")
			continue
		}
		rates[code] = mid
		fetched++
	}

	if fetched == 0 {
		return nil, fmt.Errorf("no rates could be fetched from NBP")
	}

	// Codes the feed does not publish still need a rate for normalization.
	for code, fallback := range FallbackTable() {
		if _, ok := rates[code]; !ok {
			rates[code] = fallback
		}
	}

	log.WithFields(logger.Fields{"fetched": fetched}).Info("exchange rates fetched")
	return &models.RateTable{
		Base:      f.config.Rates.ReportingCurrency,
		Rates:     rates,
		FetchedAt: f.now(),
		Source:    "nbp",
	}, nil
}

func (f *Fetcher) fetchRate(ctx context.Context, code string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s/?format=json", f.config.Rates.BaseURL, strings.ToLower(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("nbp returned status %d for %s", resp.StatusCode, code)
	}

	var body nbpResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode nbp response for %s: %w", code, err)
	}
	if len(body.Rates) == 0 {
		return decimal.Zero, fmt.Errorf("nbp response for %s has no rates", code)
	}
	return body.Rates[0].Mid, nil
}

// loadCache returns the cached table when it is still valid under the NBP
// publication schedule, nil otherwise.
func (f *Fetcher) loadCache() *models.RateTable {
	path := f.config.Rates.CacheFile
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var cached cacheFile
	if err := json.Unmarshal(data, &cached); err != nil {
		f.log.WithComponent("rates").WithError(err).Debug("ignoring unreadable rate cache")
		return nil
	}
	if len(cached.Rates) == 0 || !f.cacheValid(cached.Timestamp) {
		return nil
	}

	return &models.RateTable{
		Base:      f.config.Rates.ReportingCurrency,
		Rates:     cached.Rates,
		FetchedAt: cached.Timestamp,
		Source:    cached.Source,
	}
}

// cacheValid applies the NBP publication rule: rates are published once per
// business day around noon, so a cache from today is always valid and a
// cache from yesterday is valid until today's noon.
func (f *Fetcher) cacheValid(fetchedAt time.Time) bool {
	now := f.now()
	cacheDate := fetchedAt.Truncate(24 * time.Hour)
	today := now.Truncate(24 * time.Hour)

	if cacheDate.Equal(today) {
		return true
	}
	if cacheDate.Equal(today.AddDate(0, 0, -1)) && now.Hour() < 12 {
		return true
	}
	return false
}

func (f *Fetcher) saveCache(table *models.RateTable) {
	path := f.config.Rates.CacheFile
	if path == "" {
		return
	}

	data, err := json.MarshalIndent(cacheFile{
		Timestamp: table.FetchedAt,
		Source:    table.Source,
		Rates:     table.Rates,
	}, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		f.log.WithComponent("rates").WithError(err).Debug("failed to write rate cache")
	}
}
