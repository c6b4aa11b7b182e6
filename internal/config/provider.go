package config

import "sync"

// Provider guards the active configuration for concurrent readers (the
// refresh cycle, the config endpoint) and its single writer (the config
// endpoint's POST handler). Changes take effect on the next refresh cycle.
type Provider struct {
	mu  sync.RWMutex
	cfg Config
}

// NewProvider wraps an initial configuration.
func NewProvider(cfg *Config) *Provider {
	return &Provider{cfg: *cfg}
}

// Current returns a copy of the active configuration.
func (p *Provider) Current() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cfg := p.cfg
	cfg.SystemProcesses = append([]string(nil), p.cfg.SystemProcesses...)
	return cfg
}

// Replace swaps in a new configuration after validating it.
func (p *Provider) Replace(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	return nil
}
