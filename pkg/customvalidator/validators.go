package customvalidator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var ruPhoneRegex = regexp.MustCompile(`^\+7\d{10}$`)

// RegisterCustomValidations вешает на валидатор правила, используемые в DTO.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("e164_RU", isRussianPhoneNumber); err != nil {
		return err
	}
	return nil
}

func isRussianPhoneNumber(fl validator.FieldLevel) bool {
	return ruPhoneRegex.MatchString(fl.Field().String())
}
