package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"flightlooker/config"
	"flightlooker/models"
)

func sampleRequest() models.SearchRequest {
	return models.SearchRequest{
		Origin:        "WAW",
		Destination:   "BCN",
		DepartureDate: "2026-10-01",
		Adults:        1,
		Countries:     []string{"poland"},
	}
}

func offersPayload() models.AmadeusOffersResponse {
	return models.AmadeusOffersResponse{
		Data: []models.AmadeusOffer{
			{
				Price: models.AmadeusPrice{Total: "441.53", Currency: "PLN"},
				Itineraries: []models.AmadeusItinerary{{
					Duration: "PT3H05M",
					Segments: []models.AmadeusSegment{{
						CarrierCode: "LO",
						Departure:   models.AmadeusPoint{IataCode: "WAW", At: "2026-10-01T08:30:00"},
						Arrival:     models.AmadeusPoint{IataCode: "BCN", At: "2026-10-01T11:35:00"},
					}},
				}},
			},
			{
				Price: models.AmadeusPrice{Total: "523.10", Currency: "PLN"},
				Itineraries: []models.AmadeusItinerary{{
					Duration: "PT6H40M",
					Segments: []models.AmadeusSegment{
						{CarrierCode: "LH", Departure: models.AmadeusPoint{At: "2026-10-01T06:00:00"}, Arrival: models.AmadeusPoint{At: "2026-10-01T07:30:00"}},
						{CarrierCode: "LH", Departure: models.AmadeusPoint{At: "2026-10-01T09:10:00"}, Arrival: models.AmadeusPoint{At: "2026-10-01T12:40:00"}},
					},
				}},
			},
		},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Source.Amadeus.Enabled = true
	cfg.Source.Amadeus.APIKey = "test-key"
	cfg.Source.Amadeus.APISecret = "test-secret"
	cfg.Source.Amadeus.AuthURL = srv.URL + "/v1/security/oauth2/token"
	cfg.Source.Amadeus.OffersURL = srv.URL + "/v2/shopping/flight-offers"
	cfg.Source.Amadeus.RateLimit.RequestsPerSecond = 100
	cfg.Source.Amadeus.RateLimit.BurstSize = 100
	return NewClient(cfg)
}

func tokenHandler(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(models.AmadeusTokenResponse{AccessToken: "test-token", ExpiresIn: 1799})
}

func TestSearch(t *testing.T) {
	var gotAuth string
	var gotQuery map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			tokenHandler(w)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{
			"originLocationCode":      r.URL.Query().Get("originLocationCode"),
			"destinationLocationCode": r.URL.Query().Get("destinationLocationCode"),
			"currencyCode":            r.URL.Query().Get("currencyCode"),
			"adults":                  r.URL.Query().Get("adults"),
		}
		json.NewEncoder(w).Encode(offersPayload())
	})

	offers, err := client.Search(context.Background(), sampleRequest(), "PLN")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2", len(offers))
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotQuery["originLocationCode"] != "WAW" || gotQuery["destinationLocationCode"] != "BCN" {
		t.Errorf("route query = %v", gotQuery)
	}
	if gotQuery["currencyCode"] != "PLN" {
		t.Errorf("currencyCode = %q", gotQuery["currencyCode"])
	}

	direct := offers[0]
	if !direct.Price.Equal(decimal.RequireFromString("441.53")) {
		t.Errorf("price = %s, want 441.53", direct.Price)
	}
	if direct.Currency != "PLN" || direct.Airline != "LO" || direct.Stops != 0 {
		t.Errorf("offer = %+v", direct)
	}
	if offers[1].Stops != 1 {
		t.Errorf("connecting offer stops = %d, want 1", offers[1].Stops)
	}
}

func TestSearchStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   models.FetchKind
	}{
		{http.StatusTooManyRequests, models.FetchRateLimited},
		{http.StatusInternalServerError, models.FetchNetworkError},
		{http.StatusBadGateway, models.FetchNetworkError},
		{http.StatusBadRequest, models.FetchMalformedResponse},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/security/oauth2/token" {
				tokenHandler(w)
				return
			}
			w.WriteHeader(tc.status)
		})

		_, err := client.Search(context.Background(), sampleRequest(), "PLN")
		var fetchErr *models.FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("status %d: err = %T, want FetchError", tc.status, err)
		}
		if fetchErr.Kind != tc.kind {
			t.Errorf("status %d: kind = %s, want %s", tc.status, fetchErr.Kind, tc.kind)
		}
	}
}

func TestSearchMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			tokenHandler(w)
			return
		}
		w.Write([]byte("not json"))
	})

	_, err := client.Search(context.Background(), sampleRequest(), "PLN")
	var fetchErr *models.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Kind != models.FetchMalformedResponse {
		t.Fatalf("err = %v, want malformed_response FetchError", err)
	}
}

func TestSearchSkipsMalformedOffers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			tokenHandler(w)
			return
		}
		payload := offersPayload()
		payload.Data = append(payload.Data, models.AmadeusOffer{
			Price: models.AmadeusPrice{Total: "not-a-number"},
		})
		json.NewEncoder(w).Encode(payload)
	})

	offers, err := client.Search(context.Background(), sampleRequest(), "PLN")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2 (malformed one skipped)", len(offers))
	}
}

func TestTokenCached(t *testing.T) {
	tokenCalls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/security/oauth2/token" {
			tokenCalls++
			tokenHandler(w)
			return
		}
		json.NewEncoder(w).Encode(offersPayload())
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.Search(ctx, sampleRequest(), "PLN"); err != nil {
			t.Fatalf("Search %d: %v", i, err)
		}
	}
	if tokenCalls != 1 {
		t.Errorf("token requested %d times, want 1", tokenCalls)
	}
}

func TestTokenFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Search(context.Background(), sampleRequest(), "PLN")
	var fetchErr *models.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %T, want FetchError", err)
	}
}

func TestMissingCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Amadeus.Enabled = true
	client := NewClient(cfg)

	_, err := client.Search(context.Background(), sampleRequest(), "PLN")
	if err == nil {
		t.Fatal("expected error without credentials")
	}
}
