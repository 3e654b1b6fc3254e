package validator

import (
	"log"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterGinValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		err := v.RegisterValidation("e164", phoneNumberValidator)
		if err != nil {
			log.Fatal("register e164 validator failed")
		}
	}
}

// ITU-T E.164: leading + followed by 8 to 15 digits, no leading zero.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

var phoneNumberValidator validator.Func = func(fl validator.FieldLevel) bool {
	return e164Pattern.MatchString(fl.Field().String())
}
