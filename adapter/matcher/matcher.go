// Package matcher contains the default [domain.Matcher] implementation. It
// evaluates compiled filter documents against raw wire documents and
// understands exactly the operator grammar the expression compiler emits.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/monqlabs/monq/adapter/comparer"
	"github.com/monqlabs/monq/adapter/query"
	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrUnknownOperator is returned when a filter carries a dollar key the
// matcher does not support.
type ErrUnknownOperator struct {
	Operator string
}

func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// ErrOperandType is returned when an operator is applied to an operand of
// an invalid type.
type ErrOperandType struct {
	Operator string
	Want     string
	Actual   any
}

func (e ErrOperandType) Error() string {
	return fmt.Sprintf("%s operand should be of type %s, got %T", e.Operator, e.Want, e.Actual)
}

// Matcher implements [domain.Matcher].
type Matcher struct {
	comparer domain.Comparer
}

// NewMatcher returns a new implementation of [domain.Matcher].
func NewMatcher(options ...Option) domain.Matcher {
	m := &Matcher{
		comparer: comparer.NewComparer(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Matches implements [domain.Matcher]. Sibling keys of the filter are
// conjunctive.
func (m *Matcher) Matches(filter bson.M, doc bson.M) (bool, error) {
	for key, cond := range filter {
		var ok bool
		var err error
		switch key {
		case query.OpAnd:
			ok, err = m.matchLogical(cond, doc, true)
		case query.OpOr:
			ok, err = m.matchLogical(cond, doc, false)
		default:
			if strings.HasPrefix(key, "$") {
				return false, ErrUnknownOperator{Operator: key}
			}
			ok, err = m.matchField(key, cond, doc)
		}
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (m *Matcher) matchLogical(cond any, doc bson.M, conjunction bool) (bool, error) {
	subs, ok := asFilterList(cond)
	if !ok {
		op := query.OpOr
		if conjunction {
			op = query.OpAnd
		}
		return false, ErrOperandType{Operator: op, Want: "list of documents", Actual: cond}
	}
	for _, sub := range subs {
		matched, err := m.Matches(sub, doc)
		if err != nil {
			return false, err
		}
		if matched != conjunction {
			return !conjunction, nil
		}
	}
	return conjunction, nil
}

func (m *Matcher) matchField(key string, cond any, doc bson.M) (bool, error) {
	values := lookup(doc, strings.Split(key, "."))

	conds, ok := asDocument(cond)
	if !ok {
		// Plain scalar condition is an equality test.
		return m.eq(values, cond)
	}
	if len(conds) == 0 {
		return true, nil
	}
	if !operatorDocument(conds) {
		// A condition document without dollar keys is an exact
		// sub-document equality test, not an operator mapping.
		return m.eq(values, conds)
	}

	for op, operand := range conds {
		matched, err := m.matchOperator(op, operand, values)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func (m *Matcher) matchOperator(op string, operand any, values []any) (bool, error) {
	switch op {
	case query.OpEq:
		return m.eq(values, operand)
	case query.OpNe:
		matched, err := m.eq(values, operand)
		return !matched, err
	case query.OpLt:
		return m.relational(values, operand, func(c int) bool { return c < 0 })
	case query.OpLte:
		return m.relational(values, operand, func(c int) bool { return c <= 0 })
	case query.OpGt:
		return m.relational(values, operand, func(c int) bool { return c > 0 })
	case query.OpGte:
		return m.relational(values, operand, func(c int) bool { return c >= 0 })
	case query.OpIn:
		return m.in(values, op, operand)
	case query.OpNin:
		matched, err := m.in(values, op, operand)
		return !matched, err
	case query.OpRegex:
		return m.regex(values, operand)
	}
	return false, ErrUnknownOperator{Operator: op}
}

// eq matches when any addressed value, or any element of an addressed
// array, equals the operand. An unaddressed path equals null.
func (m *Matcher) eq(values []any, operand any) (bool, error) {
	if len(values) == 0 {
		return operand == nil, nil
	}
	for _, v := range values {
		for _, candidate := range expand(v) {
			if !m.comparer.Comparable(candidate, operand) {
				continue
			}
			c, err := m.comparer.Compare(candidate, operand)
			if err != nil {
				return false, err
			}
			if c == 0 {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *Matcher) relational(values []any, operand any, accept func(int) bool) (bool, error) {
	for _, v := range values {
		for _, candidate := range expand(v) {
			if candidate == nil || !m.comparer.Comparable(candidate, operand) {
				continue
			}
			c, err := m.comparer.Compare(candidate, operand)
			if err != nil {
				return false, err
			}
			if accept(c) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *Matcher) in(values []any, op string, operand any) (bool, error) {
	members, ok := asArray(operand)
	if !ok {
		return false, ErrOperandType{Operator: op, Want: "list", Actual: operand}
	}
	for _, member := range members {
		matched, err := m.eq(values, member)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) regex(values []any, operand any) (bool, error) {
	var re *regexp.Regexp
	var err error
	switch p := operand.(type) {
	case *regexp.Regexp:
		re = p
	case primitive.Regex:
		re, err = regexp.Compile(p.Pattern)
	case string:
		re, err = regexp.Compile(p)
	default:
		return false, ErrOperandType{Operator: query.OpRegex, Want: "pattern", Actual: operand}
	}
	if err != nil {
		return false, err
	}

	for _, v := range values {
		for _, candidate := range expand(v) {
			if s, ok := candidate.(string); ok && re.MatchString(s) {
				return true, nil
			}
		}
	}
	return false, nil
}

// lookup returns every value addressed by the dotted path, fanning out
// over array elements at intermediate segments. An empty result means the
// path is undefined on the document.
func lookup(v any, parts []string) []any {
	if len(parts) == 0 {
		return []any{v}
	}
	switch t := v.(type) {
	case bson.M:
		next, ok := t[parts[0]]
		if !ok {
			return nil
		}
		return lookup(next, parts[1:])
	case map[string]any:
		return lookup(bson.M(t), parts)
	case []any, bson.A:
		arr, _ := asArray(t)
		var out []any
		for _, el := range arr {
			out = append(out, lookup(el, parts)...)
		}
		return out
	}
	return nil
}

// expand flattens an addressed array so operators apply to its elements as
// well as to the array itself.
func expand(v any) []any {
	if arr, ok := asArray(v); ok {
		out := make([]any, 0, len(arr)+1)
		out = append(out, arr...)
		return append(out, v)
	}
	return []any{v}
}

// operatorDocument reports whether the condition document carries operator
// keys. Mixed keys are treated as operators so unknown ones still fail
// loudly.
func operatorDocument(conds bson.M) bool {
	for key := range conds {
		if strings.HasPrefix(key, "$") {
			return true
		}
	}
	return false
}

func asDocument(v any) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]any:
		return d, true
	}
	return nil, false
}

func asArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case []any:
		return a, true
	case bson.A:
		return a, true
	}
	return nil, false
}

func asFilterList(v any) ([]bson.M, bool) {
	switch l := v.(type) {
	case []bson.M:
		return l, true
	case []any, bson.A:
		arr, _ := asArray(v)
		out := make([]bson.M, 0, len(arr))
		for _, el := range arr {
			d, ok := asDocument(el)
			if !ok {
				return nil, false
			}
			out = append(out, d)
		}
		return out, true
	case []map[string]any:
		out := make([]bson.M, len(l))
		for n, el := range l {
			out[n] = bson.M(el)
		}
		return out, true
	}
	return nil, false
}
