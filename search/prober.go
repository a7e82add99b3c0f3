package search

import (
	"context"
	"errors"
	"time"

	"flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
	"flightlooker/vpn"
)

// Prober executes a single country probe end to end.
type Prober struct {
	switcher vpn.Switcher
	source   OfferSource
	timeout  time.Duration
	log      *logger.Log
}

func NewProber(switcher vpn.Switcher, source OfferSource, cfg *config.Config) *Prober {
	return &Prober{
		switcher: switcher,
		source:   source,
		timeout:  cfg.Search.Timeout,
		log:      logger.GetLogger(),
	}
}

// Probe switches the network identity to the given country and queries the
// offer source. A failed switch means the probe never queries: prices fetched
// through the wrong identity would be attributed to the wrong market.
func (p *Prober) Probe(ctx context.Context, country config.Country, req models.SearchRequest) models.CountryResult {
	log := p.log.WithComponent("search").WithFields(logger.Fields{
		"country":  country.Name,
		"currency": country.Currency,
	})
	start := time.Now()

	result := models.CountryResult{
		Country:  country.Name,
		Currency: country.Currency,
	}

	if err := p.switcher.Connect(ctx, country); err != nil {
		log.WithError(err).Warn("identity switch failed, skipping country")
		result.Status = models.StatusSwitchFailed
		result.Error = err.Error()
		result.Duration = time.Since(start)
		logger.RecordProbe(string(result.Status))
		return result
	}

	fetchCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	offers, err := p.source.Search(fetchCtx, req, country.Currency)
	result.Duration = time.Since(start)

	switch {
	case err != nil:
		kind := "network_error"
		var fetchErr *models.FetchError
		if errors.As(err, &fetchErr) {
			kind = string(fetchErr.Kind)
		}
		log.WithError(err).WithFields(logger.Fields{"kind": kind}).Warn("offer fetch failed")
		result.Status = models.StatusFetchFailed
		result.Error = err.Error()
	case len(offers) == 0:
		log.Info("no offers for this market")
		result.Status = models.StatusNoOffers
	default:
		log.WithFields(logger.Fields{
			"offers":      len(offers),
			"duration_ms": result.Duration.Milliseconds(),
		}).Info("probe complete")
		result.Status = models.StatusOK
		result.Offers = offers
	}

	logger.RecordProbe(string(result.Status))
	return result
}
