package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

var (
	rolesTag  = "roles"
	rolesText = "invalid role"
)

// InitValidators registers the user validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(rolesTag, rolesValidation)
	core.RegisterCustomTranslation(validate, translator, rolesTag, rolesText)
}

// rolesValidation checks that the role is one of AllRoles
func rolesValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).IsValid()
}
