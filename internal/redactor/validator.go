package redactor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aisa-it/redactor/internal/redactor/apierrors"
	"github.com/go-playground/validator"
)

var exportFormatRe = regexp.MustCompile(`(?i)^(md|markdown|html?|pdf)$`)

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	if err := v.RegisterValidation("tagName", tagNameValidator); err != nil {
		return nil
	}
	if err := v.RegisterValidation("docTitle", docTitleValidator); err != nil {
		return nil
	}
	if err := v.RegisterValidation("exportFormat", exportFormatValidator); err != nil {
		return nil
	}
	return &RequestValidator{v}
}

// Validate возвращает ErrInvalidRequest с именем первого неверного поля.
func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.validator.Struct(i); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil
		}
		fields := make([]string, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, fe.Field())
		}
		return apierrors.ErrInvalidRequest.WithFormattedMessage(strings.Join(fields, ", "))
	}
	return nil
}

func tagNameValidator(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	l := utf8.RuneCountInString(value)
	return l >= 1 && l <= 50
}

func docTitleValidator(fl validator.FieldLevel) bool {
	return utf8.RuneCountInString(fl.Field().String()) <= 150
}

func exportFormatValidator(fl validator.FieldLevel) bool {
	return exportFormatRe.MatchString(fl.Field().String())
}
