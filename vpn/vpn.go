// Package vpn controls the apparent origin country of outbound requests.
// Only one egress identity can be active at a time, so a Switcher is a
// single shared stateful resource and must not be used by concurrent probes.
package vpn

import (
	"context"
	"fmt"

	"flightlooker/config"
)

// Switcher changes the network egress identity to a given country. Connect
// leaves the previous identity torn down even when it fails, so a failed
// switch never skews the next probe.
type Switcher interface {
	Connect(ctx context.Context, country config.Country) error
	Disconnect(ctx context.Context) error
	// Simulated reports whether this switcher performs no real network
	// changes.
	Simulated() bool
}

// New selects the switcher implementation once at startup based on
// configuration.
func New(cfg *config.Config) (Switcher, error) {
	switch cfg.VPN.Provider {
	case "nordvpn":
		return NewNordVPN(cfg), nil
	case "simulation":
		return NewSimulation(), nil
	default:
		return nil, fmt.Errorf("unknown vpn provider %q", cfg.VPN.Provider)
	}
}
