// Package query contains the expression types and the compiler that turn
// the typed filter/sort DSL into wire filter documents.
package query

import (
	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
)

// Wire operator tokens.
const (
	OpEq          = "$eq"
	OpNe          = "$ne"
	OpLt          = "$lt"
	OpLte         = "$lte"
	OpGt          = "$gt"
	OpGte         = "$gte"
	OpIn          = "$in"
	OpNin         = "$nin"
	OpAnd         = "$and"
	OpOr          = "$or"
	OpRegex       = "$regex"
	OpSet         = "$set"
	OpSetOnInsert = "$setOnInsert"
)

// IsLogical reports whether the key is a logical combinator, whose compiled
// value is a list of sub-documents rather than an operator mapping.
func IsLogical(key string) bool {
	return key == OpAnd || key == OpOr
}

// Expression is a single `field operator value` predicate. The key is
// always resolved to its final dotted string at construction time.
type Expression struct {
	Key      string
	Operator string
	Value    any
}

// NewExpression builds a predicate from a raw string key or a [FieldPath].
func NewExpression(key any, operator string, value any) Expression {
	return Expression{Key: resolveKey(key), Operator: operator, Value: value}
}

func resolveKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case FieldPath:
		return k.Path()
	case *FieldPath:
		return k.Path()
	}
	panic(domain.ErrInvalidPredicate{Value: key})
}

// Compile produces the wire filter fragment for this predicate. Logical
// combinators compile their children into a list of sub-documents; every
// other predicate compiles to `{key: {operator: value}}`.
func (e Expression) Compile() (bson.M, error) {
	if IsLogical(e.Key) {
		subs, err := compileChildren(e.Value)
		if err != nil {
			return nil, err
		}
		return bson.M{e.Key: subs}, nil
	}
	return bson.M{e.Key: bson.M{e.Operator: e.Value}}, nil
}

// CompileMany flattens a list of predicates into one filter document.
// Predicates sharing a non-logical key merge their operator/value pairs
// into a single sub-document, a repeated operator keeping the later value.
// A logical key always maps to the list of its compiled children, replacing
// any prior accumulation under that key.
func CompileMany(exprs []Expression) (bson.M, error) {
	compiled := make(bson.M, len(exprs))
	for _, e := range exprs {
		if IsLogical(e.Key) {
			subs, err := compileChildren(e.Value)
			if err != nil {
				return nil, err
			}
			compiled[e.Key] = subs
			continue
		}
		sub, ok := compiled[e.Key].(bson.M)
		if !ok {
			sub = make(bson.M, 1)
			compiled[e.Key] = sub
		}
		sub[e.Operator] = e.Value
	}
	return compiled, nil
}

func compileChildren(value any) ([]bson.M, error) {
	var children []any
	switch l := value.(type) {
	case []any:
		children = l
	case bson.A:
		children = l
	case []bson.M:
		children = make([]any, len(l))
		for n, c := range l {
			children[n] = c
		}
	case []map[string]any:
		children = make([]any, len(l))
		for n, c := range l {
			children[n] = c
		}
	default:
		return nil, domain.ErrInvalidPredicate{Value: value}
	}
	subs := make([]bson.M, 0, len(children))
	for _, child := range children {
		switch c := child.(type) {
		case Expression:
			sub, err := c.Compile()
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		case bson.M:
			subs = append(subs, c)
		case map[string]any:
			subs = append(subs, bson.M(c))
		default:
			return nil, domain.ErrInvalidPredicate{Value: child}
		}
	}
	return subs, nil
}

// Unpack expands a plain mapping-style filter into predicates, the inverse
// of [CompileMany]. A logical key keeps its child list under the logical
// token; a mapping value contributes one predicate per operator/operand
// pair; any other value becomes an equality predicate.
func Unpack(d bson.M) []Expression {
	exprs := make([]Expression, 0, len(d))
	for key, value := range d {
		if IsLogical(key) {
			exprs = append(exprs, Expression{Key: key, Operator: key, Value: value})
			continue
		}
		switch m := value.(type) {
		case bson.M:
			for op, v := range m {
				exprs = append(exprs, Expression{Key: key, Operator: op, Value: v})
			}
		case map[string]any:
			for op, v := range m {
				exprs = append(exprs, Expression{Key: key, Operator: op, Value: v})
			}
		default:
			exprs = append(exprs, Expression{Key: key, Operator: OpEq, Value: value})
		}
	}
	return exprs
}

// SortExpression is a single `field direction` ordering fragment.
type SortExpression struct {
	Key       string
	Direction domain.Order
}

// NewSortExpression builds an ordering fragment from a raw string key or a
// [FieldPath].
func NewSortExpression(key any, direction domain.Order) SortExpression {
	return SortExpression{Key: resolveKey(key), Direction: direction}
}

// Compile produces the wire sort fragment, direction following the signed
// integer convention.
func (s SortExpression) Compile() bson.E {
	return bson.E{Key: s.Key, Value: int(s.Direction)}
}

// CompileSort flattens ordering fragments into one wire sort document,
// keys applying in array order.
func CompileSort(exprs []SortExpression) bson.D {
	sort := make(bson.D, len(exprs))
	for n, s := range exprs {
		sort[n] = s.Compile()
	}
	return sort
}
