// SPDX-License-Identifier: GPL-3.0-or-later

package tailer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/logscrape/logscrape/logger"
	"github.com/logscrape/logscrape/pkg/logs"
	"github.com/logscrape/logscrape/pkg/metrix"
	"github.com/logscrape/logscrape/pkg/scrapecfg"
)

// LocalTailer follows a log file on the local filesystem by name: it starts
// at end-of-file and keeps reading across truncation and rotation, feeding
// the same parser pipeline as the SSH scrapers.
type LocalTailer struct {
	*logger.Logger

	cfg    scrapecfg.TargetConfig
	reg    *metrix.Registry
	parser *logs.Parser
}

func NewLocalTailer(cfg scrapecfg.TargetConfig, reg *metrix.Registry, readers []logs.ColumnReader) *LocalTailer {
	return &LocalTailer{
		Logger: logger.New().With(
			slog.String("component", "tailer"),
			slog.String("target", cfg.ID),
		),
		cfg: cfg,
		reg: reg,
		parser: logs.NewParser(logs.ParserConfig{
			Environment: cfg.Environment,
			TargetID:    cfg.ID,
		}, reg, readers),
	}
}

// Run follows the file until ctx is cancelled, retrying after a cooldown on
// any failure. On termination the connected gauge child is dropped.
func (t *LocalTailer) Run(ctx context.Context) {
	defer t.reg.Connected.Drop(t.connectedLabels())

	for {
		t.setConnected(0)

		err := t.tailOnce(ctx)
		t.setConnected(0)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			t.Errorf("tail failed: %v, retrying in %s", err, cooldown)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(cooldown):
		}
	}
}

func (t *LocalTailer) tailOnce(ctx context.Context) error {
	f, err := newFollower(ctx, t.cfg.File)
	if err != nil {
		return err
	}
	defer f.Close()

	t.setConnected(1)
	t.Infof("tailing %s", t.cfg.File)

	return t.parser.Run(ctx, f)
}

func (t *LocalTailer) connectedLabels() *metrix.LabelSet {
	ls := metrix.NewLabelSet(t.cfg.Environment)
	ls.Set("host", t.cfg.Host)
	return ls
}

func (t *LocalTailer) setConnected(v float64) {
	t.reg.Connected.WithLabels(t.connectedLabels()).(*metrix.Gauge).Set(v)
}

const followerPollInterval = time.Second

// follower is an io.Reader over a named file that blocks at end-of-file
// until more data arrives. Rotation (the name pointing at a new file) and
// truncation reopen or rewind; a watch on the parent directory wakes the
// reader up, with a coarse poll as a safety net.
type follower struct {
	ctx   context.Context
	path  string
	watch *fsnotify.Watcher
	file  *os.File
}

func newFollower(ctx context.Context, path string) (*follower, error) {
	watch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watch.Add(filepath.Dir(path)); err != nil {
		watch.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Open(path)
	if err != nil {
		watch.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		watch.Close()
		return nil, err
	}

	return &follower{ctx: ctx, path: path, watch: watch, file: f}, nil
}

func (f *follower) Read(p []byte) (int, error) {
	for {
		n, err := f.file.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}

		select {
		case <-f.ctx.Done():
			return 0, f.ctx.Err()
		case ev := <-f.watch.Events:
			if ev.Name != f.path {
				continue
			}
			if err := f.sync(); err != nil {
				return 0, err
			}
		case err := <-f.watch.Errors:
			return 0, err
		case <-time.After(followerPollInterval):
			if err := f.sync(); err != nil {
				return 0, err
			}
		}
	}
}

// sync re-points the reader when the name was rotated away or the file was
// truncated. A freshly rotated-in file is read from the start.
func (f *follower) sync() error {
	st, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cur, err := f.file.Stat()
	if err != nil {
		return err
	}

	if !os.SameFile(st, cur) {
		nf, err := os.Open(f.path)
		if err != nil {
			return err
		}
		f.file.Close()
		f.file = nf
		return nil
	}

	pos, err := f.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if st.Size() < pos {
		_, err = f.file.Seek(0, io.SeekStart)
		return err
	}
	return nil
}

func (f *follower) Close() error {
	f.watch.Close()
	return f.file.Close()
}
