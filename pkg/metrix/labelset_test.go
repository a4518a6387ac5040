// SPDX-License-Identifier: GPL-3.0-or-later

package metrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelSetScenarios(t *testing.T) {
	tests := map[string]struct {
		run func(t *testing.T)
	}{
		"set appends new keys and overwrites in place": {
			run: func(t *testing.T) {
				ls := NewLabelSet("prod")
				ls.Set("a", "1")
				ls.Set("b", "2")
				ls.Set("a", "3")

				v, ok := ls.Get("a")
				require.True(t, ok)
				assert.Equal(t, "3", v)
				assert.Equal(t, `environment="prod",a="3",b="2"`, ls.Render())
			},
		},
		"get resolves environment": {
			run: func(t *testing.T) {
				ls := NewLabelSet("prod")
				v, ok := ls.Get("environment")
				require.True(t, ok)
				assert.Equal(t, "prod", v)

				_, ok = ls.Get("missing")
				assert.False(t, ok)
			},
		},
		"clone is equal but independent": {
			run: func(t *testing.T) {
				ls := NewLabelSet("prod")
				ls.Set("a", "1")

				c := ls.Clone()
				assert.True(t, c.Equal(ls))
				assert.Equal(t, ls.Key(), c.Key())

				c.Set("a", "2")
				assert.False(t, c.Equal(ls))
				v, _ := ls.Get("a")
				assert.Equal(t, "1", v)
			},
		},
		"order is part of the identity": {
			run: func(t *testing.T) {
				ab := NewLabelSet("prod")
				ab.Set("a", "1")
				ab.Set("b", "2")

				ba := NewLabelSet("prod")
				ba.Set("b", "2")
				ba.Set("a", "1")

				assert.False(t, ab.Equal(ba))
				assert.NotEqual(t, ab.Key(), ba.Key())
			},
		},
		"render escapes values": {
			run: func(t *testing.T) {
				ls := NewLabelSet("prod")
				ls.Set("path", `C:\logs`)
				ls.Set("msg", "a\"b\nc")

				assert.Equal(t, `environment="prod",path="C:\\logs",msg="a\"b\nc"`, ls.Render())
			},
		},
		"le renders right after environment": {
			run: func(t *testing.T) {
				ls := NewLabelSet("prod")
				ls.Set("a", "1")

				assert.Equal(t, `environment="prod",le="10",a="1"`, ls.RenderLE("10"))
			},
		},
		"render is deterministic": {
			run: func(t *testing.T) {
				ls := NewLabelSet("prod")
				ls.Set("a", "1")
				assert.Equal(t, ls.Render(), ls.Render())
			},
		},
		"empty environment panics": {
			run: func(t *testing.T) {
				assert.Panics(t, func() { NewLabelSet("") })
			},
		},
		"environment key is reserved": {
			run: func(t *testing.T) {
				ls := NewLabelSet("prod")
				assert.Panics(t, func() { ls.Set("environment", "other") })
			},
		},
	}

	for name, test := range tests {
		t.Run(name, test.run)
	}
}
