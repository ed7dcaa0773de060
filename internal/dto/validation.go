package dto

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/therafiali/internal-app-sub000/internal/models"
)

// NewValidator returns a validator that understands decimal amounts and
// payment method tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	v.RegisterStructValidation(paymentMethodValidation, models.PaymentMethod{})
	_ = v.RegisterValidation("modal", func(fl validator.FieldLevel) bool {
		return models.ModalType(fl.Field().String()).Valid()
	})
	return v
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func paymentMethodValidation(sl validator.StructLevel) {
	pm, ok := sl.Current().Interface().(models.PaymentMethod)
	if !ok {
		return
	}
	if err := pm.Validate(); err != nil {
		sl.ReportError(pm.Tag, "Tag", "tag", "paymenttag", string(pm.Type))
	}
}
