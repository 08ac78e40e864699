package hop

import (
	"math"

	"github.com/samuelfneumann/math32"
)

// erfinvFn is the inverse error function
//
//	erfinv'(z) = √π/2 exp(erfinv(z)²)
var erfinvFn = &elemFn{
	name: "Erfinv",
	f64:  math.Erfinv,
	d64: func(z float64) float64 {
		return 0.5 * math.Sqrt(math.Pi) * math.Exp(math.Pow(math.Erfinv(z), 2))
	},
	f32: math32.Erfinv,
	d32: func(z float32) float32 {
		scale := math32.Sqrt(math32.Pi) / float32(2.0)
		return scale * math32.Exp(math32.Pow(math32.Erfinv(z), 2))
	},
}
