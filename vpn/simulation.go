package vpn

import (
	"context"
	"sync"

	"flightlooker/config"
	"flightlooker/logger"
)

// Simulation is a no-op switcher. Every switch trivially succeeds and no
// real network state changes, so the whole tool runs without credentials.
type Simulation struct {
	log *logger.Log
	mu  sync.Mutex

	current string
}

func NewSimulation() *Simulation {
	return &Simulation{log: logger.GetLogger()}
}

func (s *Simulation) Simulated() bool { return true }

func (s *Simulation) Connect(ctx context.Context, country config.Country) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = country.Code
	s.mu.Unlock()
	s.log.WithComponent("vpn").WithFields(logger.Fields{
		"country": country.Name,
		"code":    country.Code,
	}).Debug("simulated identity switch")
	return nil
}

func (s *Simulation) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.current = ""
	s.mu.Unlock()
	return nil
}

// Current returns the last country code the simulation switched to. Used by
// tests to assert switch ordering.
func (s *Simulation) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
