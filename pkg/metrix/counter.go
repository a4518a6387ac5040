// SPDX-License-Identifier: GPL-3.0-or-later

package metrix

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Counter is a monotonically non-decreasing accumulator.
type Counter struct {
	fam *Family
	ls  *LabelSet

	mu   sync.Mutex
	last time.Time
	val  float64
}

// Add increments the counter. A negative delta is a programming error.
func (c *Counter) Add(v float64) {
	if v < 0 {
		panic(errNegativeCounterAdd)
	}
	now := c.fam.reg.now()
	c.mu.Lock()
	c.val += v
	c.last = now
	c.mu.Unlock()
}

// Set replaces the value. Moving backwards is a programming error.
func (c *Counter) Set(v float64) {
	now := c.fam.reg.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if v < c.val {
		panic(errCounterRegress)
	}
	c.val = v
	c.last = now
}

func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}

func (c *Counter) LastUpdated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Counter) Labels() *LabelSet { return c.ls }

func (c *Counter) ExposeTo(w io.Writer) (int, error) {
	if _, err := fmt.Fprintf(w, "%s{%s} %s\n", c.fam.name, c.ls.Render(), formatValue(c.Value())); err != nil {
		return 0, err
	}
	return 1, nil
}

func (c *Counter) touch(t time.Time) {
	c.mu.Lock()
	c.last = t
	c.mu.Unlock()
}
