package devicetest

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-present/engine/device"
)

// Provider exposes a fake Device as a device.Provider and counts Destroy calls.
type Provider struct {
	mu        sync.Mutex
	dev       *Device
	destroyed int
}

var _ device.Provider = &Provider{}

// NewProvider wraps dev.
//
// Parameters:
//   - dev: the fake device
//
// Returns:
//   - *Provider: the provider
func NewProvider(dev *Device) *Provider {
	return &Provider{dev: dev}
}

// Device returns the wrapped fake.
func (p *Provider) Device() *Device {
	return p.dev
}

func (p *Provider) Target() device.Target {
	return p.dev.Target()
}

func (p *Provider) Name() string {
	return p.dev.Name()
}

func (p *Provider) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed++
}

// Destroyed returns how many times Destroy was called.
func (p *Provider) Destroyed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}
