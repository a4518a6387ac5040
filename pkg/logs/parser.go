// SPDX-License-Identifier: GPL-3.0-or-later

package logs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/logscrape/logscrape/logger"
	"github.com/logscrape/logscrape/pkg/metrix"
)

const targetLabel = "target"

// Parser pulls CSV records from a byte stream and turns them into
// instrument updates. One Parser serves one target connection; the shared
// reader vector is safe to reuse across parsers.
type Parser struct {
	*logger.Logger

	reg     *metrix.Registry
	readers []ColumnReader
	csv     CSVConfig

	env    string
	target string
}

type ParserConfig struct {
	Environment string
	TargetID    string
	CSV         CSVConfig
}

func NewParser(cfg ParserConfig, reg *metrix.Registry, readers []ColumnReader) *Parser {
	csv := cfg.CSV
	if csv.Delimiter == 0 {
		csv = DefaultCSVConfig()
	}
	return &Parser{
		Logger: logger.New().With(
			slog.String("component", "parser"),
			slog.String("target", cfg.TargetID),
		),
		reg:     reg,
		readers: readers,
		csv:     csv,
		env:     cfg.Environment,
		target:  cfg.TargetID,
	}
}

// Run reads records until end-of-stream, a read error, or cancellation.
// Cancellation is a clean, silent termination. Every raw byte consumed is
// flushed to ssh_bytes_in at the following record boundary.
func (p *Parser) Run(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(r)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		raw, err := br.ReadString('\n')
		if raw != "" {
			p.flushBytes(len(raw))
			if line := strings.TrimRight(raw, "\r\n"); line != "" {
				p.processRecord(line)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (p *Parser) processRecord(line string) {
	parsed, err := p.parseRecord(line)
	if err != nil {
		p.Debugf("dropping record: %v", err)
		p.countParseError()
		return
	}

	p.reg.LinesParsed.WithLabels(parsed.Labels).Add(1)

	perTarget := parsed.Labels.Clone()
	perTarget.Set(targetLabel, p.target)
	p.reg.LinesParsedPerTarget.WithLabels(perTarget).Add(1)

	for name, v := range parsed.Metrics {
		fam, ok := p.reg.Lookup(name)
		if !ok {
			panic(fmt.Sprintf("logs: metric %q is not registered", name))
		}
		fam.WithLabels(parsed.Labels).Add(v)
	}
}

func (p *Parser) parseRecord(line string) (parsed *ParsedLine, err error) {
	fields, err := splitFields(line, p.csv)
	if err != nil {
		return nil, err
	}
	if len(fields) != len(p.readers) {
		return nil, fmt.Errorf("%w: got %d, want %d", errColumnCount, len(fields), len(p.readers))
	}

	defer func() {
		if r := recover(); r != nil {
			p.Errorf("unexpected reader failure: %v", r)
			parsed, err = nil, fmt.Errorf("reader failure: %v", r)
		}
	}()

	parsed = &ParsedLine{
		Labels:  metrix.NewLabelSet(p.env),
		Metrics: make(map[string]float64),
	}
	for i, rd := range p.readers {
		if err := rd.Read(fields[i], parsed); err != nil {
			return nil, err
		}
	}
	return parsed, nil
}

func (p *Parser) countParseError() {
	p.reg.ParserErrors.WithLabels(metrix.NewLabelSet(p.env)).Add(1)

	ls := metrix.NewLabelSet(p.env)
	ls.Set(targetLabel, p.target)
	p.reg.ParserErrorsPerTarget.WithLabels(ls).Add(1)
}

func (p *Parser) flushBytes(n int) {
	p.reg.SSHBytesIn.WithLabels(metrix.NewLabelSet(p.env)).Add(float64(n))
}
