// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logscrape/logscrape/pkg/metrix"
	"github.com/logscrape/logscrape/pkg/scrapecfg"
)

func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	cfg, err := scrapecfg.Parse(nil)
	require.NoError(t, err)
	return New(cfg, metrix.New(metrix.Config{}), nil)
}

func localTarget(t *testing.T, name string) scrapecfg.TargetConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	return scrapecfg.TargetConfig{
		ID:          scrapecfg.LocalTargetID(path),
		Environment: "prod",
		Host:        path,
		File:        path,
		Local:       true,
	}
}

func stopAll(s *Supervisor) {
	for id := range s.running {
		s.stop(id)
	}
	s.wg.Wait()
}

func TestSupervisorReconcile(t *testing.T) {
	tests := map[string]struct {
		run func(t *testing.T)
	}{
		"new targets are started": {
			run: func(t *testing.T) {
				s := newTestSupervisor(t)
				defer stopAll(s)

				a, b := localTarget(t, "a.log"), localTarget(t, "b.log")
				s.reconcile(context.Background(), []scrapecfg.TargetConfig{a, b})

				assert.Len(t, s.running, 2)
				assert.Contains(t, s.running, a.ID)
				assert.Contains(t, s.running, b.ID)
			},
		},
		"unchanged targets keep running": {
			run: func(t *testing.T) {
				s := newTestSupervisor(t)
				defer stopAll(s)

				a := localTarget(t, "a.log")
				s.reconcile(context.Background(), []scrapecfg.TargetConfig{a})
				before := s.running[a.ID]

				s.reconcile(context.Background(), []scrapecfg.TargetConfig{a})
				assert.Same(t, before, s.running[a.ID])
			},
		},
		"changed targets are restarted": {
			run: func(t *testing.T) {
				s := newTestSupervisor(t)
				defer stopAll(s)

				a := localTarget(t, "a.log")
				s.reconcile(context.Background(), []scrapecfg.TargetConfig{a})
				before := s.running[a.ID]

				changed := a
				changed.Environment = "staging"
				s.reconcile(context.Background(), []scrapecfg.TargetConfig{changed})

				require.Contains(t, s.running, a.ID)
				assert.NotSame(t, before, s.running[a.ID])
			},
		},
		"vanished dynamic targets are stopped": {
			run: func(t *testing.T) {
				s := newTestSupervisor(t)
				defer stopAll(s)

				a, b := localTarget(t, "a.log"), localTarget(t, "b.log")
				s.reconcile(context.Background(), []scrapecfg.TargetConfig{a, b})
				s.reconcile(context.Background(), []scrapecfg.TargetConfig{a})

				assert.Len(t, s.running, 1)
				assert.Contains(t, s.running, a.ID)
			},
		},
		"static targets survive reconciliation": {
			run: func(t *testing.T) {
				s := newTestSupervisor(t)
				defer stopAll(s)

				static := localTarget(t, "static.log")
				s.start(context.Background(), static, true)

				s.reconcile(context.Background(), nil)
				assert.Contains(t, s.running, static.ID)
			},
		},
		"stop waits for termination and drops the connected gauge": {
			run: func(t *testing.T) {
				s := newTestSupervisor(t)

				a := localTarget(t, "a.log")
				s.start(context.Background(), a, false)
				s.stop(a.ID)

				assert.NotContains(t, s.running, a.ID)
				assert.Equal(t, 0, s.reg.ActiveInstruments())
			},
		},
	}

	for name, test := range tests {
		t.Run(name, test.run)
	}
}

func TestTargetHash(t *testing.T) {
	a := scrapecfg.TargetConfig{ID: "ssh://web1/access.log", Environment: "prod", Host: "web1"}
	same := a
	changed := a
	changed.Connection.User = "deploy"

	assert.Equal(t, targetHash(a), targetHash(same))
	assert.NotEqual(t, targetHash(a), targetHash(changed))
}
