package web

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type AskParams struct {
	Question string `json:"question" validate:"required"`
	K        int    `json:"k" validate:"omitempty,min=1,max=10"`
}

func (p *AskParams) Validate() map[string]string {
	return validationErrors(validate.Struct(p))
}

func validationErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return map[string]string{"request": err.Error()}
	}
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
	}
	return out
}
