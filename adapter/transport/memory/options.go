package memory

import (
	"github.com/monqlabs/monq/domain"
)

// Option configures a [Transport].
type Option func(*Transport)

// WithMatcher sets the filter matcher.
func WithMatcher(m domain.Matcher) Option {
	return func(t *Transport) {
		if m != nil {
			t.matcher = m
		}
	}
}

// WithComparer sets the value comparer used for sorting and index keys.
func WithComparer(c domain.Comparer) Option {
	return func(t *Transport) {
		if c != nil {
			t.comparer = c
		}
	}
}
