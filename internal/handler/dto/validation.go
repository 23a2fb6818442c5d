package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yourusername/survey-api/internal/domain/entity"
)

// RegisterValidators adds the custom binding tags to gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return entity.QuestionType(fl.Field().String()).IsValid()
	})
}
