package distribution

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// radialPoints is the number of grid points a radialTable integrates
// over
const radialPoints = 4097

// radialTable tabulates the distribution of the geodesic distance from
// the mean of a Poincaré ball normal of dimension dim, curvature -c and
// scale σ. The unnormalized density of the radius r ≥ 0 is
//
//	g(r) = exp(-r²/(2σ²)) (sinh(√c r)/√c)^(dim-1)
//
// which is tabulated on [0, (dim-1)√c σ² + 12σ], past whose upper end
// the mass of g is negligible.
type radialTable struct {
	dim   int
	c     float64
	scale float64

	r []float64

	// cdf and m2 are the normalized running integrals of g(r) and
	// r²g(r), so m2 ends at E[r²]
	cdf []float64
	m2  []float64

	logZ float64
}

func newRadialTable(dim int, c, scale float64) *radialTable {
	t := &radialTable{dim: dim, c: c, scale: scale}

	upper := float64(dim-1)*math.Sqrt(c)*scale*scale + 12*scale
	t.r = make([]float64, radialPoints)
	floats.Span(t.r, 0, upper)

	logG := make([]float64, radialPoints)
	for i, r := range t.r {
		logG[i] = t.logDensity(r)
	}
	max := floats.Max(logG)

	// Integrate g(r) e^{-max} and r² g(r) e^{-max} to avoid overflow
	g := make([]float64, radialPoints)
	r2g := make([]float64, radialPoints)
	for i, lg := range logG {
		g[i] = math.Exp(lg - max)
		r2g[i] = t.r[i] * t.r[i] * g[i]
	}

	z := integrate.Trapezoidal(t.r, g)
	t.logZ = max + math.Log(z)

	t.cdf = cumTrapezoid(t.r, g)
	floats.Scale(1/z, t.cdf)
	t.m2 = cumTrapezoid(t.r, r2g)
	floats.Scale(1/z, t.m2)

	return t
}

// logDensity returns log g(r), the unnormalized log density
func (t *radialTable) logDensity(r float64) float64 {
	l := -r * r / (2 * t.scale * t.scale)
	if t.dim > 1 {
		// log(sinh(√c r)/√c) = log r + log(sinh(√c r)/(√c r))
		sc := math.Sqrt(t.c) * r
		l += float64(t.dim-1) * (math.Log(r) + logSinhc(sc))
	}
	return l
}

// pdf returns the normalized density at r
func (t *radialTable) pdf(r float64) float64 {
	return math.Exp(t.logDensity(r) - t.logZ)
}

// secondMoment returns E[r²]
func (t *radialTable) secondMoment() float64 {
	return t.m2[len(t.m2)-1]
}

// quantile returns the radius at which the CDF reaches u, by linear
// interpolation of the tabulated CDF
func (t *radialTable) quantile(u float64) float64 {
	i := sort.SearchFloat64s(t.cdf, u)
	switch {
	case i == 0:
		return 0
	case i >= len(t.cdf):
		return t.r[len(t.r)-1]
	}

	lo, hi := t.cdf[i-1], t.cdf[i]
	if hi == lo {
		return t.r[i]
	}
	frac := (u - lo) / (hi - lo)
	return t.r[i-1] + frac*(t.r[i]-t.r[i-1])
}

// at linearly interpolates the tabulated values ys at radius r
func (t *radialTable) at(ys []float64, r float64) float64 {
	if r <= 0 {
		return ys[0]
	}
	last := len(t.r) - 1
	if r >= t.r[last] {
		return ys[last]
	}

	step := t.r[1] - t.r[0]
	i := int(r / step)
	if i >= last {
		i = last - 1
	}
	frac := (r - t.r[i]) / step
	return ys[i] + frac*(ys[i+1]-ys[i])
}

// dRadius returns the derivative of a sample r with respect to the
// scale under implicit reparameterization, dr/dσ = -(∂F/∂σ)(r) / f(r),
// where F is the CDF and f the density. Since ∂g/∂σ = r²g/σ³,
//
//	∂F/∂σ(r) = (M₂(r) - F(r) E[r²]) / σ³
//
// with M₂(r) the normalized integral of s²g(s) over [0, r].
func (t *radialTable) dRadius(r float64) float64 {
	f := t.pdf(r)
	if !(f > 0) || math.IsInf(f, 0) {
		return 0
	}

	dF := (t.at(t.m2, r) - t.at(t.cdf, r)*t.secondMoment()) /
		(t.scale * t.scale * t.scale)
	return -dF / f
}

// cumTrapezoid returns the running trapezoidal integral of f over the
// grid x, starting at 0
func cumTrapezoid(x, f []float64) []float64 {
	areas := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		areas[i] = 0.5 * (x[i] - x[i-1]) * (f[i] + f[i-1])
	}
	return floats.CumSum(areas, areas)
}

// logSinhc returns log(sinh(x)/x) for x ≥ 0 without overflow
func logSinhc(x float64) float64 {
	switch {
	case x < 1e-4:
		return x * x / 6
	case x > 20:
		return x - math.Ln2 - math.Log(x)
	default:
		return math.Log(math.Sinh(x) / x)
	}
}
