package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

var (
	correctOptionTag  = "correctopt"
	correctOptionText = "the correct answer must be one of the options"
)

// InitValidators registers the course validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(questionStructValidation, Question{})
	core.RegisterCustomTranslation(validate, translator, correctOptionTag, correctOptionText)
}

// questionStructValidation checks that the answer key points into the options.
func questionStructValidation(sl validator.StructLevel) {
	q, ok := sl.Current().Interface().(Question)
	if !ok {
		return
	}
	if q.Correct < 0 || q.Correct >= len(q.A) {
		sl.ReportError(q.Correct, "correct", "Correct", correctOptionTag, "")
	}
}
