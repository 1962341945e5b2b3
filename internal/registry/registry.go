// Package registry holds the in-memory list of monitored applications.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/studylock/studylock/internal/domain"
)

// DefaultSeed returns the apps every session starts with.
func DefaultSeed() []domain.MonitoredApp {
	return []domain.MonitoredApp{
		{ID: "1", Name: "Instagram", Icon: "fab fa-instagram", Blocked: true, UsageMinutes: 45},
		{ID: "2", Name: "YouTube", Icon: "fab fa-youtube", Blocked: false, UsageMinutes: 120},
		{ID: "3", Name: "WhatsApp", Icon: "fab fa-whatsapp", Blocked: true, UsageMinutes: 30},
		{ID: "4", Name: "Snapchat", Icon: "fab fa-snapchat", Blocked: true, UsageMinutes: 15},
		{ID: "5", Name: "Reddit", Icon: "fab fa-reddit", Blocked: false, UsageMinutes: 65},
	}
}

var usageTrend = []domain.UsagePoint{
	{Label: "08:00", Minutes: 12},
	{Label: "10:00", Minutes: 45},
	{Label: "12:00", Minutes: 30},
	{Label: "14:00", Minutes: 80},
	{Label: "16:00", Minutes: 40},
	{Label: "18:00", Minutes: 95},
	{Label: "20:00", Minutes: 20},
}

// Option configures a Registry.
type Option func(*Registry)

// WithToggleObserver registers fn to be called after every successful toggle.
func WithToggleObserver(fn func(domain.MonitoredApp)) Option {
	return func(r *Registry) {
		r.onToggle = fn
	}
}

// Registry is a concurrency-safe list of monitored apps. Stored order is
// insertion order and never changes.
type Registry struct {
	mu       sync.RWMutex
	apps     []domain.MonitoredApp
	index    map[string]int
	onToggle func(domain.MonitoredApp)
}

// New builds a registry from seed. App ids must be unique.
func New(seed []domain.MonitoredApp, opts ...Option) (*Registry, error) {
	r := &Registry{
		apps:  make([]domain.MonitoredApp, 0, len(seed)),
		index: make(map[string]int, len(seed)),
	}
	for _, app := range seed {
		if _, exists := r.index[app.ID]; exists {
			return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateApp, app.ID)
		}
		r.index[app.ID] = len(r.apps)
		r.apps = append(r.apps, app)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NewSeeded builds a registry from DefaultSeed.
func NewSeeded(opts ...Option) *Registry {
	r, err := New(DefaultSeed(), opts...)
	if err != nil {
		panic("registry: invalid default seed: " + err.Error())
	}
	return r
}

// Apps returns a copy of the apps in insertion order.
func (r *Registry) Apps() []domain.MonitoredApp {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.apps)
}

// Get returns the app with the given id.
func (r *Registry) Get(id string) (domain.MonitoredApp, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return domain.MonitoredApp{}, fmt.Errorf("%w: %q", domain.ErrAppNotFound, id)
	}
	return r.apps[i], nil
}

// ToggleBlocked flips the blocked flag of the app and returns the updated app.
func (r *Registry) ToggleBlocked(id string) (domain.MonitoredApp, error) {
	r.mu.Lock()
	i, ok := r.index[id]
	if !ok {
		r.mu.Unlock()
		return domain.MonitoredApp{}, fmt.Errorf("%w: %q", domain.ErrAppNotFound, id)
	}
	r.apps[i].Blocked = !r.apps[i].Blocked
	app := r.apps[i]
	r.mu.Unlock()

	if r.onToggle != nil {
		r.onToggle(app)
	}
	return app, nil
}

// SetIcon assigns icon to the app. Icons outside domain.IconPalette are
// rejected and leave the app unchanged.
func (r *Registry) SetIcon(id string, icon domain.IconRef) (domain.MonitoredApp, error) {
	if !icon.Known() {
		return domain.MonitoredApp{}, fmt.Errorf("%w: %q", domain.ErrUnknownIcon, icon)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return domain.MonitoredApp{}, fmt.Errorf("%w: %q", domain.ErrAppNotFound, id)
	}
	r.apps[i].Icon = icon
	return r.apps[i], nil
}

// TopDistractions returns the n apps with the most usage, highest first.
// Ties keep insertion order. The registry itself is not reordered.
func (r *Registry) TopDistractions(n int) []domain.MonitoredApp {
	if n <= 0 {
		return []domain.MonitoredApp{}
	}
	sorted := r.Apps()
	slices.SortStableFunc(sorted, func(a, b domain.MonitoredApp) int {
		return b.UsageMinutes - a.UsageMinutes
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// BlockedCount returns how many apps are currently blocked.
func (r *Registry) BlockedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, app := range r.apps {
		if app.Blocked {
			n++
		}
	}
	return n
}

// TotalUsageMinutes sums the static usage of all apps.
func (r *Registry) TotalUsageMinutes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, app := range r.apps {
		total += app.UsageMinutes
	}
	return total
}

// UsageTrend returns the mock hourly usage series shown on the overview.
func UsageTrend() []domain.UsagePoint {
	return slices.Clone(usageTrend)
}
