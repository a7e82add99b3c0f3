package models

// AmadeusTokenResponse is the OAuth2 client-credentials response from the
// Amadeus auth endpoint.
type AmadeusTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AmadeusOffersResponse is the flight-offers search response body.
type AmadeusOffersResponse struct {
	Data []AmadeusOffer `json:"data"`
}

type AmadeusOffer struct {
	Price       AmadeusPrice       `json:"price"`
	Itineraries []AmadeusItinerary `json:"itineraries"`
}

type AmadeusPrice struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type AmadeusItinerary struct {
	Duration string           `json:"duration"`
	Segments []AmadeusSegment `json:"segments"`
}

type AmadeusSegment struct {
	CarrierCode string       `json:"carrierCode"`
	Departure   AmadeusPoint `json:"departure"`
	Arrival     AmadeusPoint `json:"arrival"`
}

type AmadeusPoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}
