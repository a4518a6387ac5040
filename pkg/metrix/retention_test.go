// SPDX-License-Identifier: GPL-3.0-or-later

package metrix

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock(reg *Registry) *fakeClock {
	c := &fakeClock{t: time.Unix(1700000000, 0)}
	reg.now = c.now
	return c
}

func sampleLines(t *testing.T, f *Family) []string {
	t.Helper()
	var buf bytes.Buffer
	_, err := f.ExposeTo(&buf)
	require.NoError(t, err)

	var lines []string
	for _, l := range strings.Split(buf.String(), "\n") {
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func TestRetentionScenarios(t *testing.T) {
	tests := map[string]struct {
		run func(t *testing.T)
	}{
		"weak instruments leave the exposition after one ttl": {
			run: func(t *testing.T) {
				reg := New(Config{TTL: time.Second, BackgroundResilience: 1})
				clock := newFakeClock(reg)

				f, err := reg.NewFamily("hits", "Hits.", KindCounter, ResilienceWeak, nil)
				require.NoError(t, err)
				f.WithLabels(NewLabelSet("prod")).Add(1)

				assert.Len(t, sampleLines(t, f), 1)

				clock.advance(time.Second)
				assert.Len(t, sampleLines(t, f), 1)

				clock.advance(time.Millisecond)
				assert.Empty(t, sampleLines(t, f))
				assert.Equal(t, 1, f.size())
			},
		},
		"weak instruments leave memory after the background horizon": {
			run: func(t *testing.T) {
				reg := New(Config{TTL: time.Second, BackgroundResilience: 1})
				clock := newFakeClock(reg)

				f, err := reg.NewFamily("hits", "Hits.", KindCounter, ResilienceWeak, nil)
				require.NoError(t, err)
				f.WithLabels(NewLabelSet("prod")).Add(1)

				clock.advance(2 * time.Second)
				f.evict(clock.now())
				assert.Equal(t, 1, f.size())

				clock.advance(time.Millisecond)
				f.evict(clock.now())
				assert.Equal(t, 0, f.size())
			},
		},
		"touch resets the horizons": {
			run: func(t *testing.T) {
				reg := New(Config{TTL: time.Second, BackgroundResilience: 1})
				clock := newFakeClock(reg)

				f, err := reg.NewFamily("hits", "Hits.", KindCounter, ResilienceWeak, nil)
				require.NoError(t, err)
				ls := NewLabelSet("prod")
				f.WithLabels(ls).Add(1)

				clock.advance(1500 * time.Millisecond)
				assert.Empty(t, sampleLines(t, f))

				f.WithLabels(ls).Add(1)
				assert.Len(t, sampleLines(t, f), 1)
			},
		},
		"long term instruments use the extended horizon": {
			run: func(t *testing.T) {
				reg := New(Config{TTL: time.Second, BackgroundResilience: 1, LongTermResilience: 4})
				clock := newFakeClock(reg)

				f, err := reg.NewFamily("hits", "Hits.", KindCounter, ResilienceLongTerm, nil)
				require.NoError(t, err)
				f.WithLabels(NewLabelSet("prod")).Add(1)

				clock.advance(5 * time.Second)
				assert.Len(t, sampleLines(t, f), 1)
				f.evict(clock.now())
				assert.Equal(t, 1, f.size())

				clock.advance(time.Millisecond)
				assert.Empty(t, sampleLines(t, f))
				f.evict(clock.now())
				assert.Equal(t, 0, f.size())
			},
		},
		"zombie instruments survive eviction": {
			run: func(t *testing.T) {
				reg := New(Config{TTL: time.Second})
				clock := newFakeClock(reg)

				reg.Connected.WithLabels(NewLabelSet("prod")).Add(1)

				clock.advance(24 * time.Hour)
				reg.Connected.evict(clock.now())
				assert.Equal(t, 1, reg.Connected.size())
				assert.Len(t, sampleLines(t, reg.Connected), 1)
			},
		},
		"drop removes a zombie instrument": {
			run: func(t *testing.T) {
				reg := New(Config{TTL: time.Second})
				newFakeClock(reg)

				ls := NewLabelSet("prod")
				ls.Set("host", "web1")
				reg.Connected.WithLabels(ls).Add(1)
				require.Equal(t, 1, reg.Connected.size())

				reg.Connected.Drop(ls)
				assert.Equal(t, 0, reg.Connected.size())
				assert.Empty(t, sampleLines(t, reg.Connected))
			},
		},
		"eviction is per label set": {
			run: func(t *testing.T) {
				reg := New(Config{TTL: time.Second, BackgroundResilience: 0})
				clock := newFakeClock(reg)

				f, err := reg.NewFamily("hits", "Hits.", KindCounter, ResilienceWeak, nil)
				require.NoError(t, err)

				old := NewLabelSet("prod")
				old.Set("host", "web1")
				f.WithLabels(old).Add(1)

				clock.advance(800 * time.Millisecond)
				fresh := NewLabelSet("prod")
				fresh.Set("host", "web2")
				f.WithLabels(fresh).Add(1)

				clock.advance(500 * time.Millisecond)
				f.evict(clock.now())
				assert.Equal(t, 1, f.size())

				lines := sampleLines(t, f)
				require.Len(t, lines, 1)
				assert.Contains(t, lines[0], `host="web2"`)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, test.run)
	}
}
