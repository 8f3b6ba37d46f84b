package dto

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/muchasmas/scholarship-api/internal/models"
)

// NewValidator returns a validator aware of Date and Optional fields. Field
// errors are reported with their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Date); ok {
			return d.Time
		}
		return nil
	}, Date{})
	v.RegisterCustomTypeFunc(optionalValue,
		models.Optional[string]{},
		models.Optional[*string]{},
		models.Optional[bool]{},
		models.Optional[int]{},
		models.Optional[Date]{},
		models.Optional[*Date]{},
		models.Optional[models.ScholarState]{},
	)
	return v
}

// optionalValue yields the wrapped value when present and nil otherwise, so
// omitempty skips absent fields.
func optionalValue(field reflect.Value) interface{} {
	p, ok := field.Interface().(interface{ Any() (any, bool) })
	if !ok {
		return nil
	}
	if v, set := p.Any(); set {
		return v
	}
	return nil
}
