// SPDX-License-Identifier: GPL-3.0-or-later

package metrix

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Gauge is an accumulator that can move in both directions.
type Gauge struct {
	fam *Family
	ls  *LabelSet

	mu   sync.Mutex
	last time.Time
	val  float64
}

func (g *Gauge) Add(v float64) {
	now := g.fam.reg.now()
	g.mu.Lock()
	g.val += v
	g.last = now
	g.mu.Unlock()
}

func (g *Gauge) Set(v float64) {
	now := g.fam.reg.now()
	g.mu.Lock()
	g.val = v
	g.last = now
	g.mu.Unlock()
}

func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.val
}

func (g *Gauge) LastUpdated() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func (g *Gauge) Labels() *LabelSet { return g.ls }

func (g *Gauge) ExposeTo(w io.Writer) (int, error) {
	if _, err := fmt.Fprintf(w, "%s{%s} %s\n", g.fam.name, g.ls.Render(), formatValue(g.Value())); err != nil {
		return 0, err
	}
	return 1, nil
}

func (g *Gauge) touch(t time.Time) {
	g.mu.Lock()
	g.last = t
	g.mu.Unlock()
}
