// Package comparer contains the default [domain.Comparer] implementation,
// providing a total order over the wire value types the transports handle.
package comparer

import (
	"bytes"
	"cmp"
	"math/big"
	"slices"
	"time"

	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comparer implements [domain.Comparer].
type Comparer struct{}

// NewComparer returns a new implementation of [domain.Comparer].
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements [domain.Comparer].
func (c *Comparer) Comparable(a, b any) bool {
	_, err := c.Compare(a, b)
	return err == nil
}

// Compare implements [domain.Comparer]. Values of different types compare
// in a fixed type order so that mixed-type sorting stays stable.
func (c *Comparer) Compare(a any, b any) (int, error) {

	// nil (undefined/null)
	if a == nil {
		if b == nil {
			return 0, nil
		}
		return -1, nil
	}
	if b == nil {
		return 1, nil
	}

	// Numbers
	if a, ok := asNumber(a); ok {
		// big.Float safely compares float64 and int64 without
		// precision loss
		if b, ok := asNumber(b); ok {
			return a.Cmp(b), nil
		}
		return -1, nil
	}
	if _, ok := asNumber(b); ok {
		return 1, nil
	}

	// Strings
	if a, ok := a.(string); ok {
		if b, ok := b.(string); ok {
			return cmp.Compare(a, b), nil
		}
		return -1, nil
	}
	if _, ok := b.(string); ok {
		return 1, nil
	}

	// Object identifiers
	if a, ok := a.(primitive.ObjectID); ok {
		if b, ok := b.(primitive.ObjectID); ok {
			return bytes.Compare(a[:], b[:]), nil
		}
		return -1, nil
	}
	if _, ok := b.(primitive.ObjectID); ok {
		return 1, nil
	}

	// Booleans
	if a, ok := a.(bool); ok {
		if b, ok := b.(bool); ok {
			return compareBool(a, b), nil
		}
		return -1, nil
	}
	if _, ok := b.(bool); ok {
		return 1, nil
	}

	// Timestamps
	if a, ok := asTime(a); ok {
		if b, ok := asTime(b); ok {
			return a.Compare(b), nil
		}
		return -1, nil
	}
	if _, ok := asTime(b); ok {
		return 1, nil
	}

	// Arrays
	if a, ok := asArray(a); ok {
		if b, ok := asArray(b); ok {
			return c.compareArray(a, b)
		}
		return -1, nil
	}
	if _, ok := asArray(b); ok {
		return 1, nil
	}

	// Sub-documents
	da, aOK := asDocument(a)
	db, bOK := asDocument(b)
	if !aOK || !bOK {
		return 0, domain.ErrCannotCompare{A: a, B: b}
	}
	return c.compareDocument(da, db)
}

func (c *Comparer) compareDocument(a, b bson.M) (int, error) {
	aKeys := make([]string, 0, len(a))
	for k := range a {
		aKeys = append(aKeys, k)
	}
	bKeys := make([]string, 0, len(b))
	for k := range b {
		bKeys = append(bKeys, k)
	}
	slices.Sort(aKeys)
	slices.Sort(bKeys)

	for i := range min(len(aKeys), len(bKeys)) {
		if comp := cmp.Compare(aKeys[i], bKeys[i]); comp != 0 {
			return comp, nil
		}
		comp, err := c.Compare(a[aKeys[i]], b[bKeys[i]])
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	return cmp.Compare(len(a), len(b)), nil
}

func (c *Comparer) compareArray(a, b []any) (int, error) {
	for i := range min(len(a), len(b)) {
		comp, err := c.Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	// Common section was identical, longest one wins
	return cmp.Compare(len(a), len(b)), nil
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if a {
		return 1
	}
	return -1
}

func asNumber(v any) (*big.Float, bool) {
	r := big.NewFloat(0)
	switch n := v.(type) {
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		r.SetFloat64(float64(n))
	case float64:
		r.SetFloat64(n)
	default:
		return nil, false
	}
	return r, true
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
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

func asDocument(v any) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]any:
		return d, true
	}
	return nil, false
}
