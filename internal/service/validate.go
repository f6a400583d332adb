package service

import (
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// finite reports whether v is neither NaN nor infinite. NaN compares false
// against everything, so range checks alone let it through.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
