package query

import (
	"reflect"
	"regexp"
	"testing"

	"github.com/monqlabs/monq/adapter/schema"
	"github.com/monqlabs/monq/domain"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type address struct {
	City    string `bson:"city"`
	Country string `bson:"country"`
}

type director struct {
	Name    string  `bson:"name"`
	Address address `bson:"address"`
}

type movie struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Year     int                `bson:"year"`
	Director director           `bson:"director"`
}

type FieldPathTestSuite struct {
	suite.Suite
	sch *domain.ModelSchema
}

func (s *FieldPathTestSuite) SetupSuite() {
	var err error
	s.sch, err = schema.Build(reflect.TypeOf(movie{}))
	s.Require().NoError(err)
}

// A root attribute compiles to its wire alias.
func (s *FieldPathTestSuite) TestRootPath() {
	p, err := NewPath(s.sch, "Year")
	s.NoError(err)
	s.Equal("year", p.Path())
}

// The identity attribute compiles to its declared alias, not its Go name.
func (s *FieldPathTestSuite) TestIdentityAlias() {
	p, err := NewPath(s.sch, "ID")
	s.NoError(err)
	s.Equal("_id", p.Path())
}

// A two-level nested access compiles to "parent.child".
func (s *FieldPathTestSuite) TestNestedPath() {
	p, err := NewPath(s.sch, "Director", "Name")
	s.NoError(err)
	s.Equal("director.name", p.Path())
}

// A three-level access compiles to "a.b.c".
func (s *FieldPathTestSuite) TestDeeplyNestedPath() {
	p, err := NewPath(s.sch, "Director", "Address", "City")
	s.NoError(err)
	s.Equal("director.address.city", p.Path())
}

// Wire aliases resolve as well as Go attribute names.
func (s *FieldPathTestSuite) TestResolveByAlias() {
	p, err := NewPath(s.sch, "director", "address", "country")
	s.NoError(err)
	s.Equal("director.address.country", p.Path())
}

// An attribute the nested type does not declare fails with an invalid key
// error naming model and attribute.
func (s *FieldPathTestSuite) TestUnknownChild() {
	_, err := NewPath(s.sch, "Director", "Oscar")
	var invalid domain.ErrInvalidKey
	s.ErrorAs(err, &invalid)
	s.Equal("director", invalid.Model)
	s.Equal("Oscar", invalid.Name)
}

// Descending into a leaf field fails with an invalid key error.
func (s *FieldPathTestSuite) TestChildOfLeaf() {
	year, err := NewPath(s.sch, "Year")
	s.Require().NoError(err)
	_, err = year.Child("anything")
	s.ErrorAs(err, &domain.ErrInvalidKey{})
}

// Comparison builders carry the compiled path and wire operator.
func (s *FieldPathTestSuite) TestComparisonBuilders() {
	year, err := NewPath(s.sch, "Year")
	s.Require().NoError(err)

	s.Equal(Expression{Key: "year", Operator: OpEq, Value: 1939}, year.Equals(1939))
	s.Equal(Expression{Key: "year", Operator: OpNe, Value: 1939}, year.NotEquals(1939))
	s.Equal(Expression{Key: "year", Operator: OpLt, Value: 1939}, year.LessThan(1939))
	s.Equal(Expression{Key: "year", Operator: OpLte, Value: 1939}, year.LessThanOrEqual(1939))
	s.Equal(Expression{Key: "year", Operator: OpGt, Value: 1939}, year.GreaterThan(1939))
	s.Equal(Expression{Key: "year", Operator: OpGte, Value: 1939}, year.GreaterThanOrEqual(1939))
}

// In and NotIn wrap their value sequences under the membership operators.
func (s *FieldPathTestSuite) TestMembership() {
	year, err := NewPath(s.sch, "Year")
	s.Require().NoError(err)

	e := In(year, []any{1939, 1942})
	s.Equal(Expression{Key: "year", Operator: OpIn, Value: []any{1939, 1942}}, e)
	e = NotIn(year, []any{1939})
	s.Equal(Expression{Key: "year", Operator: OpNin, Value: []any{1939}}, e)
}

// Contains emits a pattern predicate on textual fields.
func (s *FieldPathTestSuite) TestContainsTextual() {
	name, err := NewPath(s.sch, "Name")
	s.Require().NoError(err)
	s.Equal(Expression{Key: "name", Operator: OpRegex, Value: "wind"}, Contains(name, "wind"))
}

// Contains degrades to equality on non-textual fields instead of failing.
func (s *FieldPathTestSuite) TestContainsDegrades() {
	year, err := NewPath(s.sch, "Year")
	s.Require().NoError(err)
	s.Equal(Expression{Key: "year", Operator: OpEq, Value: 1939}, Contains(year, 1939))
}

// Regex on a non-textual field fails with an invalid field type error.
func (s *FieldPathTestSuite) TestRegexNonTextual() {
	year, err := NewPath(s.sch, "Year")
	s.Require().NoError(err)
	_, err = Regex(year, "19..")
	var invalid domain.ErrInvalidFieldType
	s.ErrorAs(err, &invalid)
	s.Equal("year", invalid.Field)
}

// Regex extracts the source text of a compiled pattern.
func (s *FieldPathTestSuite) TestRegexCompiledPattern() {
	name, err := NewPath(s.sch, "Name")
	s.Require().NoError(err)
	e, err := Regex(name, regexp.MustCompile("^Casa"))
	s.NoError(err)
	s.Equal(Expression{Key: "name", Operator: OpRegex, Value: "^Casa"}, e)
}

// And and Or panic when handed a pre-evaluated boolean instead of
// expressions.
func (s *FieldPathTestSuite) TestLogicalBooleanMisuse() {
	s.Panics(func() { And(true) })
	s.Panics(func() { Or(false) })
}

func TestFieldPathTestSuite(t *testing.T) {
	suite.Run(t, new(FieldPathTestSuite))
}
