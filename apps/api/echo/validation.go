package echoapi

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/aquatrack/aquatrack/core"
)

var (
	appValidate   *validator.Validate
	appTranslator ut.Translator
)

// initValidation wires the request validator; a caller-provided pair wins
// so apps can share one across servers.
func initValidation(opts *Options) {
	if opts.Validate != nil && opts.Translator != nil {
		appValidate, appTranslator = opts.Validate, opts.Translator
		return
	}
	_en := en.New()
	uni := ut.New(_en, _en)
	appTranslator, _ = uni.GetTranslator("en")
	appValidate = validator.New()
	core.InitValidators(appValidate, appTranslator)
}
