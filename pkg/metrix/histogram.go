// SPDX-License-Identifier: GPL-3.0-or-later

package metrix

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Histogram counts observations into fixed buckets. Each observation lands
// in the single lowest bucket whose upper bound covers it; ExposeTo
// accumulates while writing, so the emitted stream is cumulative.
type Histogram struct {
	fam *Family
	ls  *LabelSet

	mu     sync.Mutex
	last   time.Time
	sum    float64
	count  uint64
	counts []uint64 // one slot per bucket, +Inf last
}

func (h *Histogram) Add(v float64) {
	now := h.fam.reg.now()
	h.mu.Lock()
	h.counts[findBucket(h.fam.bounds, v)]++
	h.count++
	h.sum += v
	h.last = now
	h.mu.Unlock()
}

func (h *Histogram) LastUpdated() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *Histogram) Labels() *LabelSet { return h.ls }

func (h *Histogram) ExposeTo(w io.Writer) (int, error) {
	h.mu.Lock()
	sum, count := h.sum, h.count
	counts := append([]uint64(nil), h.counts...)
	h.mu.Unlock()

	var n int
	var cum uint64
	for i, bound := range h.fam.bounds {
		cum += counts[i]
		_, err := fmt.Fprintf(w, "%s_bucket{%s} %d\n", h.fam.name, h.ls.RenderLE(formatBucketBound(bound)), cum)
		if err != nil {
			return n, err
		}
		n++
	}

	labels := h.ls.Render()
	if _, err := fmt.Fprintf(w, "%s_count{%s} %d\n", h.fam.name, labels, count); err != nil {
		return n, err
	}
	n++
	if _, err := fmt.Fprintf(w, "%s_sum{%s} %s\n", h.fam.name, labels, formatValue(sum)); err != nil {
		return n, err
	}
	return n + 1, nil
}

func (h *Histogram) touch(t time.Time) {
	h.mu.Lock()
	h.last = t
	h.mu.Unlock()
}

// findBucket returns the index of the lowest bucket whose upper bound is
// greater than or equal to v. The last bound is +Inf, so there is always one.
func findBucket(bounds []float64, v float64) int {
	if n := len(bounds); n >= 35 {
		return sort.SearchFloat64s(bounds, v)
	}
	for i, b := range bounds {
		if v <= b {
			return i
		}
	}
	return len(bounds) - 1
}
