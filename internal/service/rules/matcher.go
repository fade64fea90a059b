package rules

import (
	"strings"

	"github.com/sandevgo/docportal/internal/core"
)

// Matcher answers messages from a fixed, ordered keyword list.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	rules   []core.Rule
	lowered []string
}

func NewMatcher(rules []core.Rule) *Matcher {
	m := &Matcher{
		rules:   make([]core.Rule, len(rules)),
		lowered: make([]string, len(rules)),
	}
	copy(m.rules, rules)
	for i, r := range m.rules {
		m.lowered[i] = strings.ToLower(r.Trigger)
	}
	return m
}

// Match returns the reply of the first rule whose trigger occurs in text.
func (m *Matcher) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	lowered := strings.ToLower(text)
	for i, trigger := range m.lowered {
		if trigger == "" {
			continue
		}
		if strings.Contains(lowered, trigger) {
			return m.rules[i].Reply, true
		}
	}
	return "", false
}

func (m *Matcher) Rules() []core.Rule {
	out := make([]core.Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

func (m *Matcher) Len() int {
	return len(m.rules)
}
