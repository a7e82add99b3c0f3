package search

import (
	"context"
	"fmt"
	"time"

	"flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
	"flightlooker/vpn"
)

// Orchestrator drives the full multi-country run. Countries are probed in
// the exact order requested, one at a time, with a courtesy delay between
// probes. Duplicate country names are probed independently.
type Orchestrator struct {
	prober    *Prober
	switcher  vpn.Switcher
	countries *config.Countries
	config    *config.Config
	log       *logger.Log
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewOrchestrator(switcher vpn.Switcher, source OfferSource, countries *config.Countries, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		prober:    NewProber(switcher, source, cfg),
		switcher:  switcher,
		countries: countries,
		config:    cfg,
		log:       logger.GetLogger(),
		sleep:     sleepCtx,
	}
}

// Search probes every requested country and returns one result per entry, in
// request order. Failed probes are recorded, never fatal: a run where every
// country fails still completes and returns all results. The only errors are
// an unknown country name and context cancellation before the run finishes.
func (o *Orchestrator) Search(ctx context.Context, req models.SearchRequest) ([]models.CountryResult, error) {
	log := o.log.WithComponent("search")

	resolved := make([]config.Country, 0, len(req.Countries))
	for _, name := range req.Countries {
		country, ok := o.countries.Get(name)
		if !ok {
			return nil, &models.InvalidRequestError{
				Field:  "countries",
				Reason: fmt.Sprintf("unknown country %q (%d known markets)", name, len(o.countries.Names())),
			}
		}
		resolved = append(resolved, country)
	}

	defer func() {
		// Best effort; the run result does not depend on the teardown.
		if err := o.switcher.Disconnect(context.Background()); err != nil {
			log.WithError(err).Debug("disconnect after run failed")
		}
	}()

	log.WithFields(logger.Fields{
		"route":     req.Origin + "-" + req.Destination,
		"date":      req.DepartureDate,
		"countries": len(resolved),
	}).Info("starting multi-country search")

	start := time.Now()
	results := make([]models.CountryResult, 0, len(resolved))
	failures := 0

	for i, country := range resolved {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if i > 0 && o.config.Search.CourtesyDelay > 0 {
			if err := o.sleep(ctx, o.config.Search.CourtesyDelay); err != nil {
				return results, err
			}
		}

		result := o.prober.Probe(ctx, country, req)
		results = append(results, result)

		if result.Status == models.StatusFetchFailed || result.Status == models.StatusSwitchFailed {
			failures++
			if o.config.Search.MaxFailures > 0 && failures >= o.config.Search.MaxFailures {
				log.WithFields(logger.Fields{"failures": failures}).Warn("failure budget exhausted, stopping run early")
				break
			}
		}
		if o.config.Search.MaxElapsed > 0 && time.Since(start) >= o.config.Search.MaxElapsed {
			log.WithFields(logger.Fields{"elapsed": time.Since(start).String()}).Warn("time budget exhausted, stopping run early")
			break
		}
	}

	log.WithFields(logger.Fields{
		"probed":   len(results),
		"failures": failures,
		"elapsed":  time.Since(start).Round(time.Millisecond).String(),
	}).Info("multi-country search complete")

	return results, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
