package memory

import (
	"github.com/vinicius-lino-figueiredo/bst"

	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson"
)

type treeComparer struct {
	comparer domain.Comparer
}

func newTreeComparer(comparer domain.Comparer) bst.Comparer[any, bson.M] {
	return &treeComparer{comparer: comparer}
}

// CompareKeys implements [bst.Comparer].
func (tc *treeComparer) CompareKeys(a any, b any) (int, error) {
	return tc.comparer.Compare(a, b)
}

// CompareValues implements [bst.Comparer]. Documents are the same entry
// when their identities coincide.
func (tc *treeComparer) CompareValues(a bson.M, b bson.M) (bool, error) {
	if aID, ok := a["_id"]; ok {
		if bID, ok := b["_id"]; ok {
			c, err := tc.comparer.Compare(aID, bID)
			return c == 0, err
		}
	}
	c, err := tc.comparer.Compare(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}
