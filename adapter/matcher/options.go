package matcher

import (
	"github.com/monqlabs/monq/domain"
)

// Option configures a [Matcher].
type Option func(*Matcher)

// WithComparer sets the value comparer used for relational operators.
func WithComparer(c domain.Comparer) Option {
	return func(m *Matcher) {
		if c != nil {
			m.comparer = c
		}
	}
}
