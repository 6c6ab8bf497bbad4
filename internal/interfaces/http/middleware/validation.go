package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator configures gin's validator with custom tags. Call once at startup.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// Use JSON tag names for field names in validation errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	_ = v.RegisterValidation("tr_iban", validateTurkishIBAN)
}

// validateTurkishIBAN checks the shape of a Turkish IBAN: TR prefix, two check
// digits, 22 account digits. The mod-97 check is left to the bank side.
func validateTurkishIBAN(fl validator.FieldLevel) bool {
	iban := strings.ToUpper(strings.ReplaceAll(fl.Field().String(), " ", ""))
	if len(iban) != 26 {
		return false
	}
	if !strings.HasPrefix(iban, "TR") {
		return false
	}
	for _, r := range iban[2:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
