package domain

import (
	"go.mongodb.org/mongo-driver/bson"
)

// FindOption configures a transport find through the functional options
// pattern.
type FindOption func(*FindOptions)

// FindOptions contains parameters for customizing a transport find.
type FindOptions struct {
	// Sort holds the sort keys in priority order, values following the
	// 1/-1 wire convention. Nil means unsorted.
	Sort bson.D
	// Skip specifies the number of documents to skip. Zero means no
	// skip.
	Skip int64
	// Limit specifies the maximum number of documents to return. Zero
	// means no limit.
	Limit int64
}

// WithSort specifies the sort order for find results.
func WithSort(s bson.D) FindOption {
	return func(fo *FindOptions) {
		fo.Sort = s
	}
}

// WithSkip sets the number of documents to skip in find results.
func WithSkip(s int64) FindOption {
	return func(fo *FindOptions) {
		fo.Skip = s
	}
}

// WithLimit sets the maximum number of documents to return.
func WithLimit(l int64) FindOption {
	return func(fo *FindOptions) {
		fo.Limit = l
	}
}
