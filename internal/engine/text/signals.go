// internal/engine/text/signals.go
package text

import (
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Signal is a structural marker detected by keyword matching.
type Signal int

const (
	SignalFeatures Signal = iota
	SignalRequirements
	SignalExamples
	SignalCTA
)

var signalKeywords = map[Signal][]string{
	SignalFeatures:     {"features", "key features", "includes", "what's included", "highlights"},
	SignalRequirements: {"requirements", "requires", "compatible with", "compatibility", "dependencies", "supported versions"},
	SignalExamples:     {"example", "demo", "sample", "tutorial", "showcase", "walkthrough"},
	SignalCTA:          {"buy now", "get it now", "download", "try it", "check out", "start today", "contact us", "get started"},
}

// SignalSet records which signals a text carries.
type SignalSet struct {
	Features     bool
	Requirements bool
	Examples     bool
	CTA          bool
	Links        bool
}

// SignalMatcher finds every structural keyword in one pass over the text.
// The underlying automaton keeps per-match state, so Match is serialized.
type SignalMatcher struct {
	mu       sync.Mutex
	matcher  *ahocorasick.Matcher
	keywords []string
	kinds    []Signal
}

func NewSignalMatcher() *SignalMatcher {
	m := &SignalMatcher{}
	for _, sig := range []Signal{SignalFeatures, SignalRequirements, SignalExamples, SignalCTA} {
		for _, kw := range signalKeywords[sig] {
			m.keywords = append(m.keywords, kw)
			m.kinds = append(m.kinds, sig)
		}
	}
	m.matcher = ahocorasick.NewStringMatcher(m.keywords)
	return m
}

// Match reports the signals carried by an analyzed description. Links come
// from the markup analysis, not from keywords.
func (m *SignalMatcher) Match(st Structure) SignalSet {
	folded := Fold(st.Text)

	m.mu.Lock()
	hits := m.matcher.Match([]byte(folded))
	m.mu.Unlock()

	set := SignalSet{Links: st.HasLinks}
	for _, idx := range hits {
		if idx < 0 || idx >= len(m.kinds) {
			continue
		}
		switch m.kinds[idx] {
		case SignalFeatures:
			set.Features = true
		case SignalRequirements:
			set.Requirements = true
		case SignalExamples:
			set.Examples = true
		case SignalCTA:
			set.CTA = true
		}
	}
	return set
}
