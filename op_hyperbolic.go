package hop

import (
	"math"

	"github.com/chewxy/math32"
)

// Below this magnitude the hyperbolic quotients are evaluated by their
// Taylor series. The truncation error of the series is O(x⁶), far below
// float64 resolution at this scale.
const seriesThreshold = 1e-4

// Above this magnitude sinh(x) is indistinguishable from eˣ/2.
const asymptoticThreshold = 20.0

var sinhFn = &elemFn{
	name: "Sinh",
	f64:  math.Sinh,
	d64:  math.Cosh,
	f32:  lift32(math.Sinh),
	d32:  lift32(math.Cosh),
}

var coshFn = &elemFn{
	name: "Cosh",
	f64:  math.Cosh,
	d64:  math.Sinh,
	f32:  lift32(math.Cosh),
	d32:  lift32(math.Sinh),
}

// acoshFn is defined on [1, ∞). Its derivative diverges at 1, so
// callers clamp the argument away from 1 first.
var acoshFn = &elemFn{
	name: "Acosh",
	f64:  math.Acosh,
	d64: func(x float64) float64 {
		return 1 / math.Sqrt(x*x-1)
	},
	f32: lift32(math.Acosh),
	d32: func(x float32) float32 {
		return 1 / math32.Sqrt(x*x-1)
	},
}

// artanhFn is defined on (-1, 1)
var artanhFn = &elemFn{
	name: "Artanh",
	f64:  math.Atanh,
	d64: func(x float64) float64 {
		return 1 / (1 - x*x)
	},
	f32: lift32(math.Atanh),
	d32: func(x float32) float32 {
		return 1 / (1 - x*x)
	},
}

// sinhcFn is sinh(x)/x, continuously extended by 1 at x = 0
var sinhcFn = &elemFn{
	name: "Sinhc",
	f64:  sinhc,
	d64:  sinhcDiff,
	f32:  lift32(sinhc),
	d32:  lift32(sinhcDiff),
}

// logSinhcFn is log(sinh(x)/x), continuously extended by 0 at x = 0
var logSinhcFn = &elemFn{
	name: "LogSinhc",
	f64:  logSinhc,
	d64:  logSinhcDiff,
	f32:  lift32(logSinhc),
	d32:  lift32(logSinhcDiff),
}

func sinhc(x float64) float64 {
	if math.Abs(x) < seriesThreshold {
		x2 := x * x
		return 1 + x2/6 + x2*x2/120
	}
	return math.Sinh(x) / x
}

// sinhcDiff is (x cosh x - sinh x) / x²
func sinhcDiff(x float64) float64 {
	if math.Abs(x) < seriesThreshold {
		return x/3 + x*x*x/30
	}
	return (x*math.Cosh(x) - math.Sinh(x)) / (x * x)
}

func logSinhc(x float64) float64 {
	ax := math.Abs(x)
	switch {
	case ax < seriesThreshold:
		x2 := x * x
		return x2/6 - x2*x2/180

	case ax > asymptoticThreshold:
		// log(sinh x) = x - log 2 + log(1 - e^{-2x})
		return ax - math.Ln2 + math.Log1p(-math.Exp(-2*ax)) - math.Log(ax)

	default:
		return math.Log(math.Sinh(ax) / ax)
	}
}

// logSinhcDiff is coth x - 1/x
func logSinhcDiff(x float64) float64 {
	if math.Abs(x) < seriesThreshold {
		return x/3 - x*x*x/45
	}
	return 1/math.Tanh(x) - 1/x
}
