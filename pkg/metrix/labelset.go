// SPDX-License-Identifier: GPL-3.0-or-later

package metrix

import "strings"

// LabelSet is an insertion-ordered sequence of label pairs plus a mandatory
// environment value that always renders first. Order is part of the identity:
// two sets with the same pairs in a different order are distinct.
type LabelSet struct {
	env   string
	pairs []Label
}

// NewLabelSet creates a LabelSet. An empty environment is a programming error.
func NewLabelSet(environment string) *LabelSet {
	if environment == "" {
		panic(errEmptyEnvironment)
	}
	return &LabelSet{env: environment}
}

func (s *LabelSet) Environment() string { return s.env }

// Set overwrites the value of an existing key in place or appends a new pair.
func (s *LabelSet) Set(key, value string) {
	if key == "" {
		panic(errInvalidLabelKey)
	}
	if key == environmentKey {
		panic(errReservedLabelKey)
	}
	for i := range s.pairs {
		if s.pairs[i].Key == key {
			s.pairs[i].Value = value
			return
		}
	}
	s.pairs = append(s.pairs, Label{Key: key, Value: value})
}

func (s *LabelSet) Get(key string) (string, bool) {
	if key == environmentKey {
		return s.env, true
	}
	for _, p := range s.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func (s *LabelSet) Clone() *LabelSet {
	c := &LabelSet{env: s.env}
	if len(s.pairs) > 0 {
		c.pairs = append(make([]Label, 0, len(s.pairs)), s.pairs...)
	}
	return c
}

func (s *LabelSet) Equal(o *LabelSet) bool {
	if s.env != o.env || len(s.pairs) != len(o.pairs) {
		return false
	}
	for i := range s.pairs {
		if s.pairs[i] != o.pairs[i] {
			return false
		}
	}
	return true
}

// Key returns the canonical identity of the set.
func (s *LabelSet) Key() string {
	var b strings.Builder
	b.WriteString(s.env)
	for _, p := range s.pairs {
		b.WriteByte('\xff')
		b.WriteString(p.Key)
		b.WriteByte('\xfe')
		b.WriteString(p.Value)
	}
	return b.String()
}

// Render produces the Prometheus label list body, without the braces.
func (s *LabelSet) Render() string { return s.render("") }

// RenderLE is Render with an le label placed right after environment.
func (s *LabelSet) RenderLE(le string) string { return s.render(le) }

func (s *LabelSet) render(le string) string {
	var b strings.Builder
	b.WriteString(`environment="`)
	b.WriteString(escapeLabelValue(s.env))
	b.WriteByte('"')
	if le != "" {
		b.WriteString(`,le="`)
		b.WriteString(le)
		b.WriteByte('"')
	}
	for _, p := range s.pairs {
		b.WriteByte(',')
		b.WriteString(p.Key)
		b.WriteString(`="`)
		b.WriteString(escapeLabelValue(p.Value))
		b.WriteByte('"')
	}
	return b.String()
}
