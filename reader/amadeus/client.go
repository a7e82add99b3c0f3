// Package amadeus implements the offer source against the Amadeus
// flight-offers API.
package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
)

// Client fetches flight offers from the Amadeus API. Safe for sequential
// reuse across probes; the OAuth token is cached until shortly before expiry.
type Client struct {
	config     *config.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient builds the Amadeus client with a pooled transport from
// configuration.
func NewClient(cfg *config.Config) *Client {
	log := logger.GetLogger()

	pool := cfg.Source.Amadeus.ConnectionPool
	transport := &http.Transport{
		MaxIdleConns:        pool.MaxIdleConns,
		MaxIdleConnsPerHost: pool.MaxIdleConns,
		MaxConnsPerHost:     pool.MaxConnsPerHost,
		IdleConnTimeout:     pool.IdleConnTimeout,
	}

	rl := cfg.Source.Amadeus.RateLimit
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}

	client := &Client{
		config: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Source.Amadeus.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}

	log.WithComponent("amadeus_source").WithFields(logger.Fields{
		"max_idle_conns":     pool.MaxIdleConns,
		"max_conns_per_host": pool.MaxConnsPerHost,
		"timeout":            cfg.Source.Amadeus.Timeout,
	}).Info("amadeus client initialized")

	return client
}

// Name identifies this source in logs and reports.
func (c *Client) Name() string { return "amadeus" }

// Search runs one flight-offers query and returns the offers in the
// requested currency. Failures are reported as *models.FetchError.
func (c *Client) Search(ctx context.Context, req models.SearchRequest, currency string) ([]models.Offer, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &models.FetchError{Kind: models.FetchNetworkError, Err: err}
	}

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	log := c.log.WithComponent("amadeus_source").WithFields(logger.Fields{
		"origin":      req.Origin,
		"destination": req.Destination,
		"date":        req.DepartureDate,
		"currency":    currency,
	})

	params := url.Values{}
	params.Set("originLocationCode", req.Origin)
	params.Set("destinationLocationCode", req.Destination)
	params.Set("departureDate", req.DepartureDate)
	params.Set("adults", strconv.Itoa(req.Adults))
	params.Set("currencyCode", currency)
	params.Set("max", strconv.Itoa(c.config.Source.Amadeus.MaxOffers))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Source.Amadeus.OffersURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &models.FetchError{Kind: models.FetchNetworkError, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &models.FetchError{Kind: models.FetchNetworkError, Err: err}
	}
	defer resp.Body.Close()
	logger.LogPerformanceEntry(log, "amadeus_source", "flight_offers", time.Since(start), nil)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &models.FetchError{Kind: models.FetchRateLimited, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return nil, &models.FetchError{Kind: models.FetchNetworkError, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &models.FetchError{Kind: models.FetchMalformedResponse, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body models.AmadeusOffersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &models.FetchError{Kind: models.FetchMalformedResponse, Err: err}
	}

	offers := make([]models.Offer, 0, len(body.Data))
	for _, raw := range body.Data {
		offer, err := toOffer(raw, currency)
		if err != nil {
			log.WithError(err).Warn("skipping malformed offer")
			continue
		}
		offers = append(offers, offer)
	}

	log.WithFields(logger.Fields{"offers": len(offers)}).Info("flight offers fetched")
	logger.RecordOffers(c.Name(), len(offers))
	return offers, nil
}

func toOffer(raw models.AmadeusOffer, currency string) (models.Offer, error) {
	price, err := decimal.NewFromString(raw.Price.Total)
	if err != nil {
		return models.Offer{}, fmt.Errorf("parse price %q: %w", raw.Price.Total, err)
	}
	if len(raw.Itineraries) == 0 || len(raw.Itineraries[0].Segments) == 0 {
		return models.Offer{}, fmt.Errorf("offer has no itinerary segments")
	}

	itinerary := raw.Itineraries[0]
	first := itinerary.Segments[0]
	last := itinerary.Segments[len(itinerary.Segments)-1]

	cur := raw.Price.Currency
	if cur == "" {
		cur = currency
	}

	offer := models.Offer{
		Price:    price,
		Currency: cur,
		Airline:  first.CarrierCode,
		Stops:    len(itinerary.Segments) - 1,
		Duration: itinerary.Duration,
		Source:   "amadeus",
	}
	if t, err := time.Parse("2006-01-02T15:04:05", first.Departure.At); err == nil {
		offer.Departure = t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", last.Arrival.At); err == nil {
		offer.Arrival = t
	}
	return offer, nil
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	cfg := c.config.Source.Amadeus
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return "", &models.FetchError{Kind: models.FetchNetworkError, Err: fmt.Errorf("missing amadeus credentials")}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", cfg.APIKey)
	form.Set("client_secret", cfg.APISecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &models.FetchError{Kind: models.FetchNetworkError, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &models.FetchError{Kind: models.FetchNetworkError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &models.FetchError{Kind: models.FetchMalformedResponse, Err: fmt.Errorf("token status %d", resp.StatusCode)}
	}

	var body models.AmadeusTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &models.FetchError{Kind: models.FetchMalformedResponse, Err: err}
	}
	if body.AccessToken == "" {
		return "", &models.FetchError{Kind: models.FetchMalformedResponse, Err: fmt.Errorf("empty access token")}
	}

	c.token = body.AccessToken
	// Renew a minute early so in-flight searches never race expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn-60) * time.Second)

	c.log.WithComponent("amadeus_source").Info("obtained amadeus access token")
	return c.token, nil
}
