// SPDX-License-Identifier: GPL-3.0-or-later

package logs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/logscrape/logscrape/pkg/metrix"
)

// ParsedLine is the transient result of parsing one record: the labels
// accumulated so far and the metric observations keyed by family base name.
type ParsedLine struct {
	Labels  *metrix.LabelSet
	Metrics map[string]float64
}

// ColumnReader consumes one raw field and mutates the parse buffer.
// Readers are stateless and shared across targets.
type ColumnReader interface {
	Read(field string, line *ParsedLine) error
}

type (
	labelReader         struct{ name string }
	numberReader        struct{ name string }
	clfNumberReader     struct{ name string }
	requestHeaderReader struct{}
	ignoreReader        struct{}
)

func NewLabelReader(name string) ColumnReader     { return labelReader{name: name} }
func NewNumberReader(name string) ColumnReader    { return numberReader{name: name} }
func NewCLFNumberReader(name string) ColumnReader { return clfNumberReader{name: name} }
func NewRequestHeaderReader() ColumnReader        { return requestHeaderReader{} }
func NewIgnoreReader() ColumnReader               { return ignoreReader{} }

func (r labelReader) Read(field string, line *ParsedLine) error {
	line.Labels.Set(r.name, field)
	return nil
}

func (r numberReader) Read(field string, line *ParsedLine) error {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", errBadNumber, field)
	}
	line.Metrics[r.name] = v
	return nil
}

func (r clfNumberReader) Read(field string, line *ParsedLine) error {
	if field == "-" {
		line.Metrics[r.name] = 0
		return nil
	}
	return numberReader(r).Read(field, line)
}

func (r requestHeaderReader) Read(field string, line *ParsedLine) error {
	parts := strings.Split(field, " ")
	if len(parts) != 3 {
		return fmt.Errorf("%w: %q", errBadRequestHeader, field)
	}
	uri, _, _ := strings.Cut(parts[1], "?")
	line.Labels.Set("request_method", parts[0])
	line.Labels.Set("request_uri", uri)
	line.Labels.Set("request_http_version", parts[2])
	return nil
}

func (r ignoreReader) Read(string, *ParsedLine) error { return nil }
