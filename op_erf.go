package hop

import (
	"math"

	"github.com/chewxy/math32"
)

// erfFn is the error function
//
//	erf(x) = 2/√π ∫₀ˣ exp(-t²) dt
//	erf'(x) = 2/√π exp(-x²)
var erfFn = &elemFn{
	name: "Erf",
	f64:  math.Erf,
	d64: func(x float64) float64 {
		return 2 / math.Sqrt(math.Pi) * math.Exp(-math.Pow(x, 2))
	},
	f32: lift32(math.Erf),
	d32: func(x float32) float32 {
		scale := float32(2.0 / math.Sqrt(math.Pi))
		return scale * math32.Exp(-math32.Pow(x, 2))
	},
}
