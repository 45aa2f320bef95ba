package api

import (
	"reflect"
	"strings"

	"github.com/qtforge/cortex/pkg/utils"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// configureValidator wires english translations into the binding validator and
// makes validation errors report json field names instead of Go ones. It also
// registers the asciipath rule used on user-supplied filesystem paths.
func configureValidator(validate *validator.Validate) error {
	locale := en.New()
	trans, _ := ut.New(locale, locale).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return err
	}
	if err := validate.RegisterValidation("asciipath", validateASCIIPath); err != nil {
		return err
	}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
	return nil
}

// validateASCIIPath rejects paths the meta-object code generator cannot
// handle. Empty values pass; pair with required when the field is mandatory.
func validateASCIIPath(fl validator.FieldLevel) bool {
	return utils.IsASCII(fl.Field().String())
}
