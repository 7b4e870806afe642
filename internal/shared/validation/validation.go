package validation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"ats-backend/internal/scoring"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// Register installs the custom binding validations on gin's validator. It
// is safe to call more than once.
func Register() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		registerErr = v.RegisterValidation("experiencelevel", experienceLevel)
	})
	return registerErr
}

func experienceLevel(fl validator.FieldLevel) bool {
	_, err := scoring.ParseExperienceLevel(fl.Field().String())
	return err == nil
}

// Issues flattens validator errors into field/issue pairs for error details.
func Issues(err error) []map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, map[string]string{
			"field": fe.Field(),
			"issue": fe.Tag(),
		})
	}
	return out
}
