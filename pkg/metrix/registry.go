// SPDX-License-Identifier: GPL-3.0-or-later

package metrix

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"
)

var reName = regexp.MustCompile(`^[A-Za-z0-9:_]+$`)

var reservedSuffixes = []string{"_sum", "_count", "_bucket", "_total"}

// Config carries the registry-wide settings. They are read-only after New.
type Config struct {
	// Prefix, when set, is prepended to every family name as "<prefix>:".
	Prefix string
	// TTL is the eviction cycle period and the base unit of all horizons.
	TTL time.Duration
	// BackgroundResilience is the number of extra TTLs a weak instrument
	// stays in memory after leaving the exposition.
	BackgroundResilience int
	// LongTermResilience is the number of extra TTLs a long-term instrument
	// stays exposed and in memory.
	LongTermResilience int
}

// Registry is the process-wide set of metric families. The reserved
// families exist from New on; the format configuration adds the rest.
type Registry struct {
	prefix               string
	ttl                  time.Duration
	backgroundResilience int
	longTermResilience   int
	now                  func() time.Time

	mu       sync.Mutex
	families map[string]*Family // by base name
	exposed  map[string]bool
	order    []*Family

	ParserErrors          *Family
	LinesParsed           *Family
	ParserErrorsPerTarget *Family
	LinesParsedPerTarget  *Family
	Connected             *Family
	SSHBytesIn            *Family
}

// New creates a Registry and registers the reserved families.
func New(cfg Config) *Registry {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	r := &Registry{
		prefix:               cfg.Prefix,
		ttl:                  ttl,
		backgroundResilience: cfg.BackgroundResilience,
		longTermResilience:   cfg.LongTermResilience,
		now:                  time.Now,
		families:             make(map[string]*Family),
		exposed:              make(map[string]bool),
	}

	r.ParserErrors = r.mustNewFamily("parser_errors",
		"Number of input lines that failed to parse.", KindCounter, ResilienceLongTerm, nil)
	r.LinesParsed = r.mustNewFamily("lines_parsed",
		"Number of input lines parsed successfully.", KindCounter, ResilienceLongTerm, nil)
	r.ParserErrorsPerTarget = r.mustNewFamily("parser_errors_per_target",
		"Number of input lines that failed to parse, by target.", KindCounter, ResilienceLongTerm, nil)
	r.LinesParsedPerTarget = r.mustNewFamily("lines_parsed_per_target",
		"Number of input lines parsed successfully, by target.", KindCounter, ResilienceLongTerm, nil)
	r.Connected = r.mustNewFamily("connected",
		"Whether the tail stream of a target is established.", KindGauge, ResilienceZombie, nil)
	r.SSHBytesIn = r.mustNewFamily("ssh_bytes_in",
		"Bytes read from tailed log streams.", KindCounter, ResilienceLongTerm, nil)

	return r
}

func (r *Registry) TTL() time.Duration { return r.ttl }

// NewFamily registers a family under its base name. Counters get "_total"
// appended and every family gets the prefix applied to its exposed name.
// Histogram bounds must be strictly increasing; a missing trailing +Inf
// bound is added.
func (r *Registry) NewFamily(name, help string, kind Kind, res Resilience, bounds []float64) (*Family, error) {
	if !reName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", errInvalidName, name)
	}
	for _, suffix := range reservedSuffixes {
		if strings.HasSuffix(name, suffix) {
			return nil, fmt.Errorf("%w: %q", errReservedSuffix, name)
		}
	}
	if kind != KindHistogram && len(bounds) > 0 {
		return nil, fmt.Errorf("%w: %q", errBoundsWithoutHisto, name)
	}
	if kind == KindHistogram {
		var err error
		if bounds, err = normalizeBounds(bounds); err != nil {
			return nil, fmt.Errorf("%w: %q", err, name)
		}
	}

	exposedName := name
	if kind == KindCounter {
		exposedName += "_total"
	}
	if r.prefix != "" {
		exposedName = r.prefix + ":" + exposedName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.families[name]; ok {
		return nil, fmt.Errorf("%w: %q", errNameCollision, name)
	}
	if r.exposed[exposedName] {
		return nil, fmt.Errorf("%w: %q", errNameCollision, exposedName)
	}

	f := &Family{
		name:       exposedName,
		help:       help,
		kind:       kind,
		bounds:     bounds,
		resilience: res,
		reg:        r,
		children:   make(map[string]Instrument),
	}
	r.families[name] = f
	r.exposed[exposedName] = true
	r.order = append(r.order, f)
	return f, nil
}

func (r *Registry) mustNewFamily(name, help string, kind Kind, res Resilience, bounds []float64) *Family {
	f, err := r.NewFamily(name, help, kind, res, bounds)
	if err != nil {
		panic(err)
	}
	return f
}

// Lookup returns the family registered under the base name.
func (r *Registry) Lookup(name string) (*Family, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[name]
	return f, ok
}

// Families returns the families in registration order.
func (r *Registry) Families() []*Family {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Family(nil), r.order...)
}

// ActiveInstruments counts the live instruments across all families.
func (r *Registry) ActiveInstruments() int {
	var n int
	for _, f := range r.Families() {
		n += f.size()
	}
	return n
}

// StartEviction launches one eviction cycle per registered family. All
// families are registered before scrapers start, so later additions are
// not a concern.
func (r *Registry) StartEviction(ctx context.Context) {
	for _, f := range r.Families() {
		go f.runEviction(ctx)
	}
}

func normalizeBounds(bounds []float64) ([]float64, error) {
	if len(bounds) == 0 {
		return nil, errHistogramBounds
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return nil, errHistogramBounds
		}
	}
	out := append([]float64(nil), bounds...)
	if !math.IsInf(out[len(out)-1], +1) {
		out = append(out, math.Inf(+1))
	}
	return out, nil
}
