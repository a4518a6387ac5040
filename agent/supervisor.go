// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"log/slog"
	"os/exec"
	"time"

	"github.com/gohugoio/hashstructure"
	"github.com/sourcegraph/conc"

	"github.com/logscrape/logscrape/logger"
	"github.com/logscrape/logscrape/pkg/logs"
	"github.com/logscrape/logscrape/pkg/metrix"
	"github.com/logscrape/logscrape/pkg/scrapecfg"
	"github.com/logscrape/logscrape/pkg/tailer"
)

// Supervisor owns the set of running scrapers. Static targets run for the
// whole process lifetime; targets produced by the inventory script are
// reconciled on every reload.
type Supervisor struct {
	*logger.Logger

	cfg     *scrapecfg.Config
	reg     *metrix.Registry
	readers []logs.ColumnReader

	wg      *conc.WaitGroup
	running map[string]*runningTarget
}

type runningTarget struct {
	cancel context.CancelFunc
	done   chan struct{}
	hash   uint64
	static bool
}

func New(cfg *scrapecfg.Config, reg *metrix.Registry, readers []logs.ColumnReader) *Supervisor {
	return &Supervisor{
		Logger:  logger.New().With(slog.String("component", "supervisor")),
		cfg:     cfg,
		reg:     reg,
		readers: readers,
		wg:      conc.NewWaitGroup(),
		running: make(map[string]*runningTarget),
	}
}

// Run starts the static targets and, when a script is configured, drives
// the inventory loop. It blocks until ctx is cancelled and every scraper
// has terminated.
func (s *Supervisor) Run(ctx context.Context) error {
	targets, err := s.cfg.Targets()
	if err != nil {
		return err
	}
	for _, t := range targets {
		s.start(ctx, t, true)
	}
	s.Infof("started %d static targets", len(targets))

	if s.cfg.Script != "" {
		s.runInventory(ctx)
	}

	<-ctx.Done()
	s.wg.Wait()
	return nil
}

func (s *Supervisor) runInventory(ctx context.Context) {
	for {
		s.reloadInventory(ctx)
		if s.cfg.ReloadInterval <= 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(s.cfg.ReloadInterval) * time.Second):
		}
	}
}

// reloadInventory runs the script and reconciles against its output. Any
// failure skips the cycle and keeps the current target set.
func (s *Supervisor) reloadInventory(ctx context.Context) {
	out, err := exec.CommandContext(ctx, "/bin/sh", "-c", s.cfg.Script).Output()
	if err != nil {
		s.Errorf("inventory script failed: %v", err)
		return
	}
	targets, err := scrapecfg.ParseInventory(out, s.cfg.StaticConnection())
	if err != nil {
		s.Errorf("inventory output rejected: %v", err)
		return
	}
	s.reconcile(ctx, targets)
}

// reconcile brings the dynamic half of the running set in line with the
// desired targets. A target whose configuration changed is restarted.
func (s *Supervisor) reconcile(ctx context.Context, desired []scrapecfg.TargetConfig) {
	seen := make(map[string]bool, len(desired))
	var started, stopped int

	for _, t := range desired {
		seen[t.ID] = true
		rt, ok := s.running[t.ID]
		if ok && rt.hash == targetHash(t) {
			continue
		}
		if ok {
			s.stop(t.ID)
			stopped++
		}
		s.start(ctx, t, false)
		started++
	}

	for id, rt := range s.running {
		if rt.static || seen[id] {
			continue
		}
		s.stop(id)
		stopped++
	}

	if started > 0 || stopped > 0 {
		s.Infof("reconciled inventory: %d started, %d stopped", started, stopped)
	}
}

func (s *Supervisor) start(ctx context.Context, t scrapecfg.TargetConfig, static bool) {
	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.running[t.ID] = &runningTarget{
		cancel: cancel,
		done:   done,
		hash:   targetHash(t),
		static: static,
	}

	s.wg.Go(func() {
		defer close(done)
		if t.Local {
			tailer.NewLocalTailer(t, s.reg, s.readers).Run(cctx)
		} else {
			tailer.NewSSHScraper(t, s.reg, s.readers).Run(cctx)
		}
	})
}

// stop cancels a scraper and waits for it to terminate, so that its
// connected gauge child is gone when stop returns.
func (s *Supervisor) stop(id string) {
	rt, ok := s.running[id]
	if !ok {
		return
	}
	rt.cancel()
	<-rt.done
	delete(s.running, id)
}

func targetHash(t scrapecfg.TargetConfig) uint64 {
	h, err := hashstructure.Hash(t, nil)
	if err != nil {
		panic(err)
	}
	return h
}
