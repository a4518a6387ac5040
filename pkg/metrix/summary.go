// SPDX-License-Identifier: GPL-3.0-or-later

package metrix

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Summary keeps a running sum and an observation count.
type Summary struct {
	fam *Family
	ls  *LabelSet

	mu    sync.Mutex
	last  time.Time
	sum   float64
	count uint64
}

func (s *Summary) Add(v float64) {
	now := s.fam.reg.now()
	s.mu.Lock()
	s.sum += v
	s.count++
	s.last = now
	s.mu.Unlock()
}

func (s *Summary) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Summary) Labels() *LabelSet { return s.ls }

func (s *Summary) ExposeTo(w io.Writer) (int, error) {
	s.mu.Lock()
	sum, count := s.sum, s.count
	s.mu.Unlock()

	labels := s.ls.Render()
	if _, err := fmt.Fprintf(w, "%s_sum{%s} %s\n", s.fam.name, labels, formatValue(sum)); err != nil {
		return 0, err
	}
	if _, err := fmt.Fprintf(w, "%s_count{%s} %d\n", s.fam.name, labels, count); err != nil {
		return 1, err
	}
	return 2, nil
}

func (s *Summary) touch(t time.Time) {
	s.mu.Lock()
	s.last = t
	s.mu.Unlock()
}
