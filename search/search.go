// Package search runs the per-country probe loop: switch identity, query the
// offer source from that country's point of presence, classify the outcome.
// Probes run strictly sequentially because the VPN tunnel is a single shared
// resource.
package search

import (
	"context"

	"flightlooker/models"
)

// OfferSource is a provider of flight offers. Implementations query with the
// given market currency so prices come back the way a local buyer sees them.
type OfferSource interface {
	Name() string
	Search(ctx context.Context, req models.SearchRequest, currency string) ([]models.Offer, error)
}
