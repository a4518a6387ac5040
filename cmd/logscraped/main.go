// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/logscrape/logscrape/agent"
	"github.com/logscrape/logscrape/logger"
	"github.com/logscrape/logscrape/pkg/scrapecfg"
	"github.com/logscrape/logscrape/web"
)

var version = "v0.1.0"

type options struct {
	Config  string `short:"c" long:"config" description:"Configuration file path (overrides SCRAPECONFIG)"`
	Listen  string `short:"l" long:"listen" description:"HTTP listen address" default:":5000"`
	Debug   bool   `short:"d" long:"debug" description:"Enable debug logging"`
	Version bool   `short:"v" long:"version" description:"Print version and exit"`
}

func parseCLI() *options {
	opt := &options{}
	parser := flags.NewParser(opt, flags.Default)
	parser.Name = "logscraped"
	parser.Usage = "[OPTIONS]"

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	return opt
}

func main() {
	opt := parseCLI()

	if opt.Version {
		fmt.Printf("logscraped %s\n", version)
		return
	}
	if opt.Debug {
		logger.Level.SetByName("debug")
	}

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Debugf)); err != nil {
		logger.Warningf("failed to set GOMAXPROCS: %v", err)
	}

	cfg, err := loadConfig(opt.Config)
	if err != nil {
		logger.Errorf("loading configuration: %v", err)
		os.Exit(1)
	}

	reg, readers, err := scrapecfg.Compile(cfg)
	if err != nil {
		logger.Errorf("invalid configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg.StartEviction(ctx)

	srv := web.NewServer(opt.Listen, web.NewExposer(reg))
	sup := agent.New(cfg, reg, readers)

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Run(ctx) }()
	go func() { errCh <- sup.Run(ctx) }()

	var failed bool
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			logger.Errorf("fatal: %v", err)
			failed = true
			stop()
		}
	}
	if failed {
		os.Exit(1)
	}
	logger.Info("shut down")
}

func loadConfig(path string) (*scrapecfg.Config, error) {
	if path != "" {
		return scrapecfg.Load(path)
	}
	return scrapecfg.LoadFromEnv()
}
