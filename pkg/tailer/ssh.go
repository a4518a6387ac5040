// SPDX-License-Identifier: GPL-3.0-or-later

package tailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/crypto/ssh"

	"github.com/logscrape/logscrape/logger"
	"github.com/logscrape/logscrape/pkg/logs"
	"github.com/logscrape/logscrape/pkg/metrix"
	"github.com/logscrape/logscrape/pkg/scrapecfg"
)

const cooldown = 30 * time.Second

// SSHScraper tails one remote log file over SSH and feeds it to a parser,
// reconnecting after a cooldown until cancelled.
type SSHScraper struct {
	*logger.Logger

	cfg     scrapecfg.TargetConfig
	reg     *metrix.Registry
	parser  *logs.Parser
	timeout time.Duration
}

func NewSSHScraper(cfg scrapecfg.TargetConfig, reg *metrix.Registry, readers []logs.ColumnReader) *SSHScraper {
	return &SSHScraper{
		Logger: logger.New().With(
			slog.String("component", "scraper"),
			slog.String("target", cfg.ID),
		),
		cfg: cfg,
		reg: reg,
		parser: logs.NewParser(logs.ParserConfig{
			Environment: cfg.Environment,
			TargetID:    cfg.ID,
		}, reg, readers),
		timeout: time.Duration(cfg.Connection.ReadTimeoutMS) * time.Millisecond,
	}
}

// Run drives the connect/tail/cooldown cycle until ctx is cancelled. On
// termination the connected gauge child of this target is dropped.
func (s *SSHScraper) Run(ctx context.Context) {
	defer s.reg.Connected.Drop(s.connectedLabels())

	for {
		s.setConnected(0)

		err := s.tailOnce(ctx)
		s.setConnected(0)
		if ctx.Err() != nil {
			return
		}

		switch {
		case err == nil:
			s.Infof("stream ended, reconnecting in %s", cooldown)
		case errors.Is(err, ErrStarvation):
			s.Warningf("stream starved for %s, reconnecting in %s", s.timeout, cooldown)
		default:
			s.Errorf("%s error: %v, reconnecting in %s", errorKind(err), err, cooldown)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(cooldown):
		}
	}
}

func (s *SSHScraper) tailOnce(ctx context.Context) error {
	client, err := s.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}
	defer sess.Close()

	stdout, err := sess.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attaching to remote stdout: %w", err)
	}

	if err := sess.Start(tailCommand(s.cfg.File)); err != nil {
		return fmt.Errorf("starting remote tail: %w", err)
	}

	s.setConnected(1)
	s.Infof("tailing %s", s.cfg.File)

	stream := NewStream(stdout, s.timeout)
	defer stream.Close()

	// Unblock the pump's pending read on cancellation.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-watchDone:
		}
	}()

	if err := s.parser.Run(ctx, stream); err != nil {
		return err
	}
	if err := sess.Wait(); err != nil {
		return fmt.Errorf("remote tail exited: %w", err)
	}
	return nil
}

func (s *SSHScraper) dial() (*ssh.Client, error) {
	conn := s.cfg.Connection

	var auth []ssh.AuthMethod
	if conn.PKey != "" {
		signer, err := loadSigner(conn.PKey, conn.PKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("loading private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if conn.Password != "" {
		auth = append(auth, ssh.Password(conn.Password))
	}

	client, err := ssh.Dial("tcp", sshAddr(s.cfg.Host), &ssh.ClientConfig{
		User:            conn.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         time.Duration(conn.ConnectTimeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", s.cfg.Host, err)
	}
	return client, nil
}

func (s *SSHScraper) connectedLabels() *metrix.LabelSet {
	ls := metrix.NewLabelSet(s.cfg.Environment)
	ls.Set("host", s.cfg.Host)
	return ls
}

func (s *SSHScraper) setConnected(v float64) {
	s.reg.Connected.WithLabels(s.connectedLabels()).(*metrix.Gauge).Set(v)
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(key)
}

func tailCommand(file string) string {
	return fmt.Sprintf(`tail -n0 --follow=name "%s" 2>/dev/null`, file)
}

func sshAddr(host string) string {
	if strings.Contains(host, ":") {
		return host
	}
	return net.JoinHostPort(host, "22")
}

func errorKind(err error) string {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case strings.Contains(err.Error(), "unable to authenticate"):
		return "auth"
	case errors.As(err, new(*net.OpError)):
		return "socket"
	default:
		return "connection"
	}
}
