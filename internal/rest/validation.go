package rest

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/utils"
	"github.com/nyaruka/phonenumbers"
)

// NewValidator returns a validator reporting JSON field names and knowing the
// "iso8601" and "usphone" tags.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		_, err := utils.ParseISO8601(fl.Field().String(), time.UTC)
		return err == nil
	})
	_ = v.RegisterValidation("usphone", func(fl validator.FieldLevel) bool {
		return IsUSPhoneNumber(fl.Field().String())
	})
	return v
}

// IsUSPhoneNumber reports whether phone is a valid number per libphonenumber
// metadata, reading numbers without a country code as US numbers.
func IsUSPhoneNumber(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}
	number, err := phonenumbers.Parse(phone, "US")
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(number)
}
