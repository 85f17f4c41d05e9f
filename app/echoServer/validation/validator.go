package validation

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: NewEngine()}
}

func (v *Validator) Validate(i interface{}) error {
	return v.v.Struct(i)
}

// NewEngine returns a validator that understands decimal.Decimal fields,
// so tags such as `validate:"gt=0"` work on money.
func NewEngine() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}
