package query

import (
	"regexp"

	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Asc builds an ascending ordering fragment.
func Asc(key any) SortExpression {
	return NewSortExpression(key, domain.Ascending)
}

// Desc builds a descending ordering fragment.
func Desc(key any) SortExpression {
	return NewSortExpression(key, domain.Descending)
}

// In builds a membership predicate.
func In(key any, values []any) Expression {
	return NewExpression(key, OpIn, values)
}

// NotIn builds a negated membership predicate.
func NotIn(key any, values []any) Expression {
	return NewExpression(key, OpNin, values)
}

// And combines predicates under the $and combinator. Arguments may be
// expressions or raw filter mappings. Passing a pre-evaluated boolean is a
// programming error and panics immediately.
func And(preds ...any) Expression {
	return logical(OpAnd, preds)
}

// Or combines predicates under the $or combinator, with the same argument
// contract as [And].
func Or(preds ...any) Expression {
	return logical(OpOr, preds)
}

func logical(op string, preds []any) Expression {
	for _, p := range preds {
		if _, ok := p.(bool); ok {
			panic(domain.ErrInvalidPredicate{Value: p})
		}
	}
	return Expression{Key: op, Operator: op, Value: preds}
}

// Contains builds a substring predicate on a textual field. On a field of
// any other declared type it degrades to an equality predicate, which is a
// permissive fallback rather than an error.
func Contains(field FieldPath, value any) Expression {
	if field.Textual() {
		return Expression{Key: field.Path(), Operator: OpRegex, Value: value}
	}
	return field.Equals(value)
}

// Regex builds a pattern predicate on a textual field. The pattern may be
// a compiled [*regexp.Regexp] or [primitive.Regex], whose source text is
// extracted, or a raw string. A non-textual field fails with
// [domain.ErrInvalidFieldType].
func Regex(field FieldPath, pattern any) (Expression, error) {
	if !field.Textual() {
		return Expression{}, domain.ErrInvalidFieldType{Field: field.Path(), Want: "string"}
	}
	var source string
	switch p := pattern.(type) {
	case *regexp.Regexp:
		source = p.String()
	case primitive.Regex:
		source = p.Pattern
	case string:
		source = p
	default:
		return Expression{}, domain.ErrInvalidPredicate{Value: pattern}
	}
	return Expression{Key: field.Path(), Operator: OpRegex, Value: source}, nil
}

// Filter builds the filter document for a mixed list of raw mappings and
// expressions, unpacking mappings first. A predicate of any other type
// fails with [domain.ErrInvalidPredicate].
func Filter(preds ...any) ([]Expression, error) {
	exprs := make([]Expression, 0, len(preds))
	for _, p := range preds {
		switch t := p.(type) {
		case Expression:
			exprs = append(exprs, t)
		case bson.M:
			exprs = append(exprs, Unpack(t)...)
		case map[string]any:
			exprs = append(exprs, Unpack(bson.M(t))...)
		default:
			return nil, domain.ErrInvalidPredicate{Value: p}
		}
	}
	return exprs, nil
}
