package comparer

import (
	"testing"
	"time"

	"github.com/monqlabs/monq/domain"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ComparerTestSuite struct {
	suite.Suite
	comparer domain.Comparer
}

func (s *ComparerTestSuite) SetupSuite() {
	s.comparer = NewComparer()
}

func (s *ComparerTestSuite) compare(a, b any) int {
	comp, err := s.comparer.Compare(a, b)
	s.Require().NoError(err)
	return comp
}

// Nil sorts before every other value.
func (s *ComparerTestSuite) TestNil() {
	s.Equal(0, s.compare(nil, nil))
	s.Equal(-1, s.compare(nil, 0))
	s.Equal(1, s.compare("", nil))
}

// Numbers compare across integer and float representations without
// precision loss.
func (s *ComparerTestSuite) TestNumbers() {
	s.Equal(0, s.compare(1, int64(1)))
	s.Equal(0, s.compare(2, float64(2)))
	s.Equal(-1, s.compare(int32(3), 3.5))
	s.Equal(1, s.compare(uint8(200), 100))
}

// Strings compare lexicographically and sort after numbers.
func (s *ComparerTestSuite) TestStrings() {
	s.Equal(-1, s.compare("a", "b"))
	s.Equal(0, s.compare("a", "a"))
	s.Equal(1, s.compare("a", 999))
}

// Object identifiers compare by their raw bytes.
func (s *ComparerTestSuite) TestObjectIDs() {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	s.Equal(0, s.compare(a, a))
	s.Equal(-1, s.compare(a, b))
	s.Equal(1, s.compare(a, "zzz"))
}

// False sorts before true.
func (s *ComparerTestSuite) TestBooleans() {
	s.Equal(-1, s.compare(false, true))
	s.Equal(1, s.compare(true, false))
	s.Equal(0, s.compare(true, true))
}

// Times compare chronologically, accepting wire datetimes.
func (s *ComparerTestSuite) TestTimes() {
	early := time.Date(1939, 12, 15, 0, 0, 0, 0, time.UTC)
	late := time.Date(1942, 11, 26, 0, 0, 0, 0, time.UTC)
	s.Equal(-1, s.compare(early, late))
	s.Equal(0, s.compare(early, primitive.NewDateTimeFromTime(early)))
}

// Arrays compare elementwise with length as tiebreak.
func (s *ComparerTestSuite) TestArrays() {
	s.Equal(-1, s.compare([]any{1, 2}, []any{1, 3}))
	s.Equal(-1, s.compare([]any{1}, bson.A{1, 0}))
	s.Equal(0, s.compare(bson.A{"x"}, []any{"x"}))
}

// Documents compare by sorted keys, then values, then size.
func (s *ComparerTestSuite) TestDocuments() {
	s.Equal(0, s.compare(bson.M{"a": 1}, map[string]any{"a": 1}))
	s.Equal(-1, s.compare(bson.M{"a": 1}, bson.M{"a": 2}))
	s.Equal(-1, s.compare(bson.M{"a": 1}, bson.M{"b": 1}))
	s.Equal(-1, s.compare(bson.M{"a": 1}, bson.M{"a": 1, "b": 1}))
}

// Unsupported operand types are not comparable.
func (s *ComparerTestSuite) TestNotComparable() {
	_, err := s.comparer.Compare(struct{}{}, make(chan int))
	s.ErrorAs(err, &domain.ErrCannotCompare{})
	s.False(s.comparer.Comparable(struct{}{}, make(chan int)))
	s.True(s.comparer.Comparable(1, "a"))
}

func TestComparerTestSuite(t *testing.T) {
	suite.Run(t, new(ComparerTestSuite))
}
