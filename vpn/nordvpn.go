package vpn

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
)

// NordVPN switches egress identity through the nordvpn CLI.
type NordVPN struct {
	config *config.Config
	log    *logger.Log
	mu     sync.Mutex

	loggedIn bool
	current  string

	// runCommand is swapped out in tests.
	runCommand func(ctx context.Context, name string, args ...string) (string, error)
}

// NewNordVPN creates a switcher backed by the nordvpn CLI. Login happens
// lazily on the first Connect when a token is configured.
func NewNordVPN(cfg *config.Config) *NordVPN {
	return &NordVPN{
		config:     cfg,
		log:        logger.GetLogger(),
		runCommand: runExec,
	}
}

func runExec(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

func (n *NordVPN) Simulated() bool { return false }

// Connect tears down any previous tunnel and establishes one in the given
// country. On failure the previous identity stays disconnected.
func (n *NordVPN) Connect(ctx context.Context, country config.Country) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	log := n.log.WithComponent("vpn").WithFields(logger.Fields{
		"country": country.Name,
		"code":    country.Code,
	})

	if err := n.ensureLogin(ctx); err != nil {
		return &models.SwitchError{Country: country.Name, Err: err}
	}

	connectCtx := ctx
	if n.config.VPN.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, n.config.VPN.ConnectTimeout)
		defer cancel()
	}

	// Drop the previous tunnel first so a failed connect cannot leave the
	// old country's identity active.
	if n.current != "" {
		if out, err := n.runCommand(connectCtx, "nordvpn", "disconnect"); err != nil {
			log.WithError(err).WithFields(logger.Fields{"output": strings.TrimSpace(out)}).Warn("disconnect before switch failed")
		}
		n.current = ""
	}

	start := time.Now()
	out, err := n.runCommand(connectCtx, "nordvpn", "connect", country.Code)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{"output": strings.TrimSpace(out)}).Error("vpn connect failed")
		return &models.SwitchError{Country: country.Name, Err: fmt.Errorf("nordvpn connect: %w", err)}
	}

	if n.config.VPN.SettleDelay > 0 {
		select {
		case <-time.After(n.config.VPN.SettleDelay):
		case <-ctx.Done():
			return &models.SwitchError{Country: country.Name, Err: ctx.Err()}
		}
	}

	n.current = country.Code
	logger.LogPerformanceEntry(log, "vpn", "connect", time.Since(start), nil)
	log.Info("vpn connected")
	return nil
}

// Disconnect drops the active tunnel, if any.
func (n *NordVPN) Disconnect(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == "" {
		return nil
	}

	out, err := n.runCommand(ctx, "nordvpn", "disconnect")
	n.current = ""
	if err != nil {
		n.log.WithComponent("vpn").WithError(err).WithFields(logger.Fields{"output": strings.TrimSpace(out)}).Warn("vpn disconnect failed")
		return fmt.Errorf("nordvpn disconnect: %w", err)
	}
	n.log.WithComponent("vpn").Info("vpn disconnected")
	return nil
}

func (n *NordVPN) ensureLogin(ctx context.Context) error {
	if n.loggedIn {
		return nil
	}

	out, err := n.runCommand(ctx, "nordvpn", "account")
	if err == nil && strings.Contains(strings.ToLower(out), "email") {
		n.loggedIn = true
		return nil
	}

	token := n.config.VPN.Token
	if token == "" {
		return fmt.Errorf("not logged in to nordvpn and no token configured")
	}

	out, err = n.runCommand(ctx, "nordvpn", "login", "--token", token)
	if err != nil {
		return fmt.Errorf("nordvpn login: %w", err)
	}
	lower := strings.ToLower(out)
	if !strings.Contains(lower, "welcome") && !strings.Contains(lower, "logged in") {
		return fmt.Errorf("nordvpn login rejected: %s", strings.TrimSpace(out))
	}

	n.log.WithComponent("vpn").Info("logged in to nordvpn")
	n.loggedIn = true
	return nil
}
