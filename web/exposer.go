// SPDX-License-Identifier: GPL-3.0-or-later

package web

import (
	"fmt"
	"io"

	"github.com/prometheus/procfs"

	"github.com/logscrape/logscrape/pkg/metrix"
)

// Exposer serialises the registry plus the synthesised process metrics as
// the Prometheus text format. Process metrics and the scrape bookkeeping
// gauges are never prefixed.
type Exposer struct {
	reg *metrix.Registry
}

func NewExposer(reg *metrix.Registry) *Exposer {
	return &Exposer{reg: reg}
}

// ExposeTo writes one full exposition pass. exposed_metrics counts every
// sample line written before it, and is written last so it reflects the
// current pass.
func (e *Exposer) ExposeTo(w io.Writer) error {
	var total int
	for _, f := range e.reg.Families() {
		n, err := f.ExposeTo(w)
		if err != nil {
			return err
		}
		total += n
	}

	n, err := writeProcessMetrics(w)
	if err != nil {
		return err
	}
	total += n

	if err := writeGauge(w, "scraper_active_metrics",
		"Number of live instruments in the registry.",
		fmt.Sprintf("%d", e.reg.ActiveInstruments())); err != nil {
		return err
	}
	total++

	return writeGauge(w, "exposed_metrics",
		"Number of samples written in this exposition pass.",
		fmt.Sprintf("%d", total))
}

func writeProcessMetrics(w io.Writer) (int, error) {
	p, err := procfs.Self()
	if err != nil {
		return 0, nil
	}
	stat, err := p.Stat()
	if err != nil {
		return 0, nil
	}

	if err := writeSample(w, "process_cpu_seconds_total",
		"Total user and system CPU time spent in seconds.", "counter",
		fmt.Sprintf("%g", stat.CPUTime())); err != nil {
		return 0, err
	}
	if err := writeSample(w, "process_resident_memory_bytes",
		"Resident memory size in bytes.", "gauge",
		fmt.Sprintf("%d", stat.ResidentMemory())); err != nil {
		return 1, err
	}

	n := 2
	if start, err := stat.StartTime(); err == nil {
		if err := writeSample(w, "process_start_time_seconds",
			"Start time of the process since unix epoch in seconds.", "gauge",
			fmt.Sprintf("%g", start)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func writeGauge(w io.Writer, name, help, value string) error {
	return writeSample(w, name, help, "gauge", value)
}

func writeSample(w io.Writer, name, help, kind, value string) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %s\n", name, help, name, kind, name, value)
	return err
}
