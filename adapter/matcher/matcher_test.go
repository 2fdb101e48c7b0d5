package matcher

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
)

type MatcherTestSuite struct {
	suite.Suite
	matcher *Matcher
}

func (s *MatcherTestSuite) SetupSuite() {
	s.matcher = NewMatcher().(*Matcher)
}

func (s *MatcherTestSuite) matches(filter, doc bson.M) bool {
	ok, err := s.matcher.Matches(filter, doc)
	s.Require().NoError(err)
	return ok
}

// A scalar condition is an equality test.
func (s *MatcherTestSuite) TestScalarEquality() {
	doc := bson.M{"name": "Casablanca", "year": 1942}
	s.True(s.matches(bson.M{"name": "Casablanca"}, doc))
	s.False(s.matches(bson.M{"name": "Vertigo"}, doc))
}

// Sibling keys of a filter are conjunctive.
func (s *MatcherTestSuite) TestSiblingConjunction() {
	doc := bson.M{"name": "Casablanca", "year": 1942}
	s.True(s.matches(bson.M{"name": "Casablanca", "year": 1942}, doc))
	s.False(s.matches(bson.M{"name": "Casablanca", "year": 1939}, doc))
}

// Relational operators honor the comparer's numeric order.
func (s *MatcherTestSuite) TestRelational() {
	doc := bson.M{"year": 1942}
	s.True(s.matches(bson.M{"year": bson.M{"$lt": 1950}}, doc))
	s.False(s.matches(bson.M{"year": bson.M{"$lt": 1942}}, doc))
	s.True(s.matches(bson.M{"year": bson.M{"$lte": 1942}}, doc))
	s.True(s.matches(bson.M{"year": bson.M{"$gt": 1939}}, doc))
	s.True(s.matches(bson.M{"year": bson.M{"$gte": int64(1942)}}, doc))
	s.True(s.matches(bson.M{"year": bson.M{"$ne": 1939}}, doc))
}

// Several operators under one key are ANDed together.
func (s *MatcherTestSuite) TestOperatorRange() {
	s.True(s.matches(bson.M{"year": bson.M{"$gt": 1930, "$lt": 1950}}, bson.M{"year": 1942}))
	s.False(s.matches(bson.M{"year": bson.M{"$gt": 1930, "$lt": 1940}}, bson.M{"year": 1942}))
}

// Membership operators test against a list of candidates.
func (s *MatcherTestSuite) TestMembership() {
	doc := bson.M{"year": 1942}
	s.True(s.matches(bson.M{"year": bson.M{"$in": []any{1939, 1942}}}, doc))
	s.False(s.matches(bson.M{"year": bson.M{"$in": []any{1939}}}, doc))
	s.True(s.matches(bson.M{"year": bson.M{"$nin": []any{1939}}}, doc))

	_, err := s.matcher.Matches(bson.M{"year": bson.M{"$in": 1939}}, doc)
	s.ErrorAs(err, &ErrOperandType{})
}

// Logical combinators nest and evaluate their branch lists.
func (s *MatcherTestSuite) TestLogical() {
	doc := bson.M{"name": "Casablanca", "year": 1942}
	s.True(s.matches(bson.M{"$and": []bson.M{
		{"year": bson.M{"$gt": 1940}},
		{"year": bson.M{"$lt": 1950}},
	}}, doc))
	s.True(s.matches(bson.M{"$or": []bson.M{
		{"name": "Vertigo"},
		{"year": 1942},
	}}, doc))
	s.False(s.matches(bson.M{"$or": []bson.M{
		{"name": "Vertigo"},
		{"year": 1939},
	}}, doc))

	_, err := s.matcher.Matches(bson.M{"$and": "not a list"}, doc)
	s.ErrorAs(err, &ErrOperandType{})
}

// A condition document without dollar keys is an exact sub-document
// equality test.
func (s *MatcherTestSuite) TestSubdocumentEquality() {
	doc := bson.M{"director": bson.M{"name": "Michael Curtiz"}}
	s.True(s.matches(bson.M{"director": bson.M{"name": "Michael Curtiz"}}, doc))
	s.False(s.matches(bson.M{"director": bson.M{"name": "Victor Fleming"}}, doc))
	s.False(s.matches(bson.M{"director": bson.M{"name": "Michael Curtiz", "born": 1886}}, doc))
}

// Dotted paths address nested documents.
func (s *MatcherTestSuite) TestDottedPath() {
	doc := bson.M{"director": bson.M{"address": bson.M{"city": "Atlanta"}}}
	s.True(s.matches(bson.M{"director.address.city": "Atlanta"}, doc))
	s.False(s.matches(bson.M{"director.address.city": "Boston"}, doc))
}

// An unaddressed path equals null and nothing else.
func (s *MatcherTestSuite) TestUndefinedPath() {
	doc := bson.M{"name": "Casablanca"}
	s.True(s.matches(bson.M{"missing": nil}, doc))
	s.False(s.matches(bson.M{"missing": 1}, doc))
}

// Array fields match when any element satisfies the condition.
func (s *MatcherTestSuite) TestArrayElement() {
	doc := bson.M{"tags": []any{"classic", "drama"}}
	s.True(s.matches(bson.M{"tags": "drama"}, doc))
	s.False(s.matches(bson.M{"tags": "comedy"}, doc))
}

// Intermediate array segments fan out over their elements.
func (s *MatcherTestSuite) TestArrayFanOut() {
	doc := bson.M{"cast": []any{
		bson.M{"name": "Bogart"},
		bson.M{"name": "Bergman"},
	}}
	s.True(s.matches(bson.M{"cast.name": "Bergman"}, doc))
	s.False(s.matches(bson.M{"cast.name": "Stewart"}, doc))
}

// Pattern conditions accept strings and compiled patterns.
func (s *MatcherTestSuite) TestRegex() {
	doc := bson.M{"name": "Gone with the wind"}
	s.True(s.matches(bson.M{"name": bson.M{"$regex": "wind"}}, doc))
	s.True(s.matches(bson.M{"name": bson.M{"$regex": regexp.MustCompile("^Gone")}}, doc))
	s.False(s.matches(bson.M{"name": bson.M{"$regex": "^wind"}}, doc))

	_, err := s.matcher.Matches(bson.M{"name": bson.M{"$regex": 1}}, doc)
	s.ErrorAs(err, &ErrOperandType{})
}

// An empty operator document matches every document.
func (s *MatcherTestSuite) TestEmptyCondition() {
	s.True(s.matches(bson.M{"year": bson.M{}}, bson.M{"year": 1942}))
	s.True(s.matches(bson.M{}, bson.M{"year": 1942}))
}

// Unsupported dollar keys are rejected, top level and per field.
func (s *MatcherTestSuite) TestUnknownOperator() {
	_, err := s.matcher.Matches(bson.M{"$nor": []bson.M{}}, bson.M{})
	s.ErrorAs(err, &ErrUnknownOperator{})

	_, err = s.matcher.Matches(bson.M{"year": bson.M{"$mod": 2}}, bson.M{"year": 4})
	s.ErrorAs(err, &ErrUnknownOperator{})
}

func TestMatcherTestSuite(t *testing.T) {
	suite.Run(t, new(MatcherTestSuite))
}
