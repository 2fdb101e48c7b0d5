// Package decoder contains the default [domain.Decoder] implementation,
// materializing raw wire documents into typed model values.
package decoder

import (
	"fmt"
	stdreflect "reflect"
	"time"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"
	"github.com/monqlabs/monq/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDecode wraps third party decoding errors with the source and target
// involved.
type ErrDecode struct {
	Source any
	Target any
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T", e.Source, e.Target)
}

// Decoder implements [domain.Decoder].
type Decoder struct{}

// NewDecoder returns a new implementation of [domain.Decoder].
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements [domain.Decoder]. Field matching follows the bson tag,
// so decoded structs line up with the wire aliases the schema declares.
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}

	value := reflect.ValueNoEscapeOf(target)
	if value.Kind() != reflect.Ptr || value.IsNil() {
		return domain.ErrNonPointer
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "bson",
		Result:     target,
		DecodeHook: wireHook,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source); err != nil {
		errDec := ErrDecode{Source: source, Target: target}
		return fmt.Errorf("%w: %w", errDec, err)
	}
	return nil
}

// wireHook converts the driver's scalar wrapper types into their natural
// Go counterparts before struct assignment.
func wireHook(from stdreflect.Type, to stdreflect.Type, data any) (any, error) {
	switch v := data.(type) {
	case primitive.DateTime:
		if to == stdreflect.TypeOf(time.Time{}) {
			return v.Time(), nil
		}
	case string:
		if to == stdreflect.TypeOf(primitive.ObjectID{}) {
			id, err := primitive.ObjectIDFromHex(v)
			if err != nil {
				return nil, domain.ErrInvalidObjectID{Value: v}
			}
			return id, nil
		}
	case primitive.A:
		if to.Kind() == stdreflect.Slice {
			return []any(v), nil
		}
	}
	return data, nil
}
