// SPDX-License-Identifier: GPL-3.0-or-later

package scrapecfg

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/logscrape/logscrape/pkg/logs"
	"github.com/logscrape/logscrape/pkg/metrix"
)

var rePrefix = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

// defaultBuckets is used for histogram specs given without bounds.
// The registry appends the +Inf sentinel.
var defaultBuckets = []float64{.005, .01, .025, .05, .075, .1, .25, .5, .75, 1, 2.5, 5, 7.5, 10}

// FormatEntry is one column of the format section: either null (ignore the
// column) or a single-key mapping "name: type[+histogram_spec]".
type FormatEntry struct {
	Name string
	Type string
	Spec string
}

func (e *FormatEntry) UnmarshalYAML(unmarshal func(any) error) error {
	var m map[string]string
	if err := unmarshal(&m); err != nil {
		return fmt.Errorf("%w: %v", errBadFormatEntry, err)
	}
	if len(m) == 0 {
		*e = FormatEntry{}
		return nil
	}
	if len(m) > 1 {
		return errBadFormatEntry
	}
	for name, typ := range m {
		e.Name = name
		e.Type, e.Spec, _ = strings.Cut(typ, "+")
	}
	return nil
}

func (e *FormatEntry) ignored() bool { return e.Name == "" }

// Compile turns the configuration into the process registry and the shared
// column reader vector. All naming and schema validation happens here, so a
// compiled configuration cannot produce unknown-metric updates later.
func Compile(cfg *Config) (*metrix.Registry, []logs.ColumnReader, error) {
	reg := metrix.New(metrix.Config{
		Prefix:               cfg.Global.Prefix,
		TTL:                  time.Duration(cfg.Global.TTL) * time.Second,
		BackgroundResilience: cfg.Global.BackgroundResilience,
		LongTermResilience:   cfg.Global.LongTermResilience,
	})

	readers := make([]logs.ColumnReader, 0, len(cfg.Global.Format))
	for _, entry := range cfg.Global.Format {
		rd, err := compileEntry(reg, cfg.Global.Histograms, entry)
		if err != nil {
			return nil, nil, err
		}
		readers = append(readers, rd)
	}
	return reg, readers, nil
}

func compileEntry(reg *metrix.Registry, histograms map[string][]float64, entry FormatEntry) (logs.ColumnReader, error) {
	if entry.ignored() {
		return logs.NewIgnoreReader(), nil
	}

	switch entry.Type {
	case "label":
		if entry.Spec != "" {
			return nil, fmt.Errorf("%w: %q", errHistogramOnLabel, entry.Name)
		}
		if entry.Name == "environment" {
			return nil, errReservedLabel
		}
		return logs.NewLabelReader(entry.Name), nil

	case "request_header":
		return logs.NewRequestHeaderReader(), nil

	case "number", "clf_number":
		kind, bounds := metrix.KindCounter, []float64(nil)
		if entry.Spec != "" {
			b, ok := histograms[entry.Spec]
			if !ok {
				return nil, fmt.Errorf("%w: %q", errUndefinedSpec, entry.Spec)
			}
			if len(b) == 0 {
				b = defaultBuckets
			}
			kind, bounds = metrix.KindHistogram, b
		}
		help := fmt.Sprintf("Values observed in the %s column.", entry.Name)
		if _, err := reg.NewFamily(entry.Name, help, kind, metrix.ResilienceWeak, bounds); err != nil {
			return nil, err
		}
		if entry.Type == "clf_number" {
			return logs.NewCLFNumberReader(entry.Name), nil
		}
		return logs.NewNumberReader(entry.Name), nil
	}

	return nil, fmt.Errorf("%w: %q", errUnknownColumnType, entry.Type)
}
