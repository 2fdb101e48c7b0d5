package query

import (
	"testing"

	"github.com/monqlabs/monq/domain"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
)

type ExpressionTestSuite struct {
	suite.Suite
}

// A predicate compiles to exactly {key: {operator: value}}.
func (s *ExpressionTestSuite) TestCompile() {
	e := NewExpression("year", OpLt, 1940)
	compiled, err := e.Compile()
	s.NoError(err)
	s.Equal(bson.M{"year": bson.M{"$lt": 1940}}, compiled)
}

// Predicates sharing a key with distinct operators merge into one
// sub-document.
func (s *ExpressionTestSuite) TestCompileManyMergesOperators() {
	exprs := []Expression{
		NewExpression("year", OpGt, 1930),
		NewExpression("year", OpLt, 1940),
	}
	compiled, err := CompileMany(exprs)
	s.NoError(err)
	s.Equal(bson.M{"year": bson.M{"$gt": 1930, "$lt": 1940}}, compiled)
}

// Applying the same operator twice keeps the later value.
func (s *ExpressionTestSuite) TestCompileManyLaterOperatorWins() {
	exprs := []Expression{
		NewExpression("year", OpLt, 1940),
		NewExpression("year", OpLt, 1950),
	}
	compiled, err := CompileMany(exprs)
	s.NoError(err)
	s.Equal(bson.M{"year": bson.M{"$lt": 1950}}, compiled)
}

// Predicates on distinct keys become sibling keys of the filter.
func (s *ExpressionTestSuite) TestCompileManySiblingKeys() {
	exprs := []Expression{
		NewExpression("year", OpGte, 1930),
		NewExpression("name", OpEq, "Casablanca"),
	}
	compiled, err := CompileMany(exprs)
	s.NoError(err)
	s.Equal(bson.M{
		"year": bson.M{"$gte": 1930},
		"name": bson.M{"$eq": "Casablanca"},
	}, compiled)
}

// A logical key compiles to a list of sub-documents, never a merged
// operator mapping.
func (s *ExpressionTestSuite) TestCompileManyLogicalList() {
	exprs := []Expression{
		Or(
			NewExpression("name", OpEq, "Casablanca"),
			NewExpression("year", OpGt, 2000),
		),
	}
	compiled, err := CompileMany(exprs)
	s.NoError(err)
	s.Equal(bson.M{"$or": []bson.M{
		{"name": bson.M{"$eq": "Casablanca"}},
		{"year": bson.M{"$gt": 2000}},
	}}, compiled)
}

// A later logical expression replaces prior accumulation under its key.
func (s *ExpressionTestSuite) TestCompileManyLogicalReplaces() {
	exprs := []Expression{
		And(NewExpression("year", OpGt, 2000)),
		And(NewExpression("year", OpLt, 2003)),
	}
	compiled, err := CompileMany(exprs)
	s.NoError(err)
	s.Equal(bson.M{"$and": []bson.M{
		{"year": bson.M{"$lt": 2003}},
	}}, compiled)
}

// Logical children may be raw filter mappings.
func (s *ExpressionTestSuite) TestCompileLogicalRawChildren() {
	e := And(bson.M{"year": bson.M{"$gt": 2000}})
	compiled, err := e.Compile()
	s.NoError(err)
	s.Equal(bson.M{"$and": []bson.M{
		{"year": bson.M{"$gt": 2000}},
	}}, compiled)
}

// A logical child of an unsupported type fails compilation.
// Logical child lists are accepted in every natural list shape.
func (s *ExpressionTestSuite) TestCompileLogicalListShapes() {
	want := bson.M{"$or": []bson.M{
		{"name": "Casablanca"},
		{"year": 1939},
	}}
	for _, children := range []any{
		[]bson.M{{"name": "Casablanca"}, {"year": 1939}},
		bson.A{bson.M{"name": "Casablanca"}, bson.M{"year": 1939}},
		[]map[string]any{{"name": "Casablanca"}, {"year": 1939}},
	} {
		e := Expression{Key: OpOr, Operator: OpOr, Value: children}
		compiled, err := e.Compile()
		s.NoError(err)
		s.Equal(want, compiled)
	}
}

// A logical key unpacks as one predicate carrying its child list under
// the logical token.
func (s *ExpressionTestSuite) TestUnpackLogical() {
	children := []bson.M{{"name": "Casablanca"}, {"year": 1939}}
	exprs := Unpack(bson.M{"$or": children})
	s.Len(exprs, 1)
	s.Equal(Expression{Key: OpOr, Operator: OpOr, Value: children}, exprs[0])

	compiled, err := CompileMany(exprs)
	s.NoError(err)
	s.Equal(bson.M{"$or": children}, compiled)
}

func (s *ExpressionTestSuite) TestCompileLogicalBadChild() {
	e := Expression{Key: OpAnd, Operator: OpAnd, Value: []any{42}}
	_, err := e.Compile()
	s.ErrorAs(err, &domain.ErrInvalidPredicate{})
}

// A scalar mapping value unpacks into one equality predicate.
func (s *ExpressionTestSuite) TestUnpackScalar() {
	exprs := Unpack(bson.M{"year": 1939})
	s.Len(exprs, 1)
	s.Equal(Expression{Key: "year", Operator: OpEq, Value: 1939}, exprs[0])
}

// A mapping value unpacks into one predicate per operator.
func (s *ExpressionTestSuite) TestUnpackOperators() {
	exprs := Unpack(bson.M{"year": bson.M{"$lt": 1940, "$gt": 1930}})
	s.Len(exprs, 2)
	s.ElementsMatch([]Expression{
		{Key: "year", Operator: OpLt, Value: 1940},
		{Key: "year", Operator: OpGt, Value: 1930},
	}, exprs)
}

// Unpacking a compiled non-logical predicate yields it back.
func (s *ExpressionTestSuite) TestRoundTrip() {
	e := NewExpression("year", OpGte, 1930)
	compiled, err := e.Compile()
	s.NoError(err)
	exprs := Unpack(compiled)
	s.Len(exprs, 1)
	s.Equal(e, exprs[0])
}

// Sort fragments compile to the signed integer wire convention and apply
// in array order.
func (s *ExpressionTestSuite) TestCompileSort() {
	sort := CompileSort([]SortExpression{
		Asc("year"),
		Desc("name"),
	})
	s.Equal(bson.D{{Key: "year", Value: 1}, {Key: "name", Value: -1}}, sort)
}

func TestExpressionTestSuite(t *testing.T) {
	suite.Run(t, new(ExpressionTestSuite))
}
