package router

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/medledger/chain-api/internal/model"
)

// registerValidations installs custom binding rules on gin's validator
// engine. Safe to call more than once.
func registerValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("speedprofile", func(fl validator.FieldLevel) bool {
		return model.SpeedProfile(fl.Field().String()).Valid()
	})
}
