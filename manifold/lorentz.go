package manifold

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Lorentz is the hyperboloid model of hyperbolic space of curvature
// -c: the upper sheet of
//
//	{x ∈ ℝᴰ : <x, x>_L = -1/c, x₀ > 0}
//
// where <x, y>_L = -x₀y₀ + x₁y₁ + ... + x_{D-1}y_{D-1} is the Minkowski
// inner product. The apex of the sheet, (1/√c, 0, ..., 0), is called
// the origin.
//
// All methods take batches of points or tangent vectors as (N, D)
// matrices and operate row-wise.
type Lorentz struct {
	c     float64
	sqrtC float64
}

// NewLorentz returns a new hyperboloid of curvature -c
func NewLorentz(c float64) (*Lorentz, error) {
	if err := checkCurvature(c); err != nil {
		return nil, fmt.Errorf("newLorentz: %w", err)
	}
	return &Lorentz{c: c, sqrtC: math.Sqrt(c)}, nil
}

// C returns the magnitude of the curvature
func (l *Lorentz) C() float64 { return l.c }

// Origin returns rows copies of the apex of a hyperboloid in ℝᴰ as a
// constant (rows, D) matrix
func (l *Lorentz) Origin(g *G.ExprGraph, dt tensor.Dtype, rows,
	dim int) (*G.Node, error) {
	backing := make([]float64, rows*dim)
	for i := 0; i < rows; i++ {
		backing[i*dim] = 1 / l.sqrtC
	}
	return hop.Constant(g, dt, tensor.Shape{rows, dim}, backing)
}

// Inner returns the Minkowski inner product of corresponding rows of
// x and y as an (N, 1) matrix
func (l *Lorentz) Inner(x, y *G.Node) (*G.Node, error) {
	if err := hop.CheckSameShape(x, y); err != nil {
		return nil, fmt.Errorf("inner: %v", err)
	}

	d := x.Shape()[1]
	signature := make([]float64, d)
	signature[0] = -1
	for i := 1; i < d; i++ {
		signature[i] = 1
	}
	sig, err := hop.Constant(x.Graph(), x.Dtype(), tensor.Shape{d, 1},
		signature)
	if err != nil {
		return nil, fmt.Errorf("inner: %v", err)
	}

	prod, err := G.HadamardProd(x, y)
	if err != nil {
		return nil, fmt.Errorf("inner: %v", err)
	}
	return G.Mul(prod, sig)
}

// Norm returns the Minkowski norm √<u, u>_L of each tangent vector u
// as an (N, 1) matrix. Tangent vectors are space-like, so the squared
// norm is non-negative up to rounding; it is clamped at minNormSq.
func (l *Lorentz) Norm(u *G.Node) (*G.Node, error) {
	sq, err := l.Inner(u, u)
	if err != nil {
		return nil, fmt.Errorf("norm: %v", err)
	}
	sq, err = hop.ClampMin(sq, minNormSq)
	if err != nil {
		return nil, fmt.Errorf("norm: %v", err)
	}
	return G.Sqrt(sq)
}

// alpha returns -c<x, y>_L, the hyperbolic cosine of the scaled
// geodesic distance between x and y
func (l *Lorentz) alpha(x, y *G.Node) (*G.Node, error) {
	inner, err := l.Inner(x, y)
	if err != nil {
		return nil, err
	}
	negC, err := hop.ScalarLike(x, -l.c)
	if err != nil {
		return nil, err
	}
	return G.HadamardProd(negC, inner)
}

// theta returns acosh(α), the geodesic distance scaled by √c. α is
// clamped to 1 + ε first, which keeps the gradient finite for
// coincident points.
func (l *Lorentz) theta(alpha *G.Node) (*G.Node, error) {
	a, err := hop.ClampMin(alpha, 1+acoshEps)
	if err != nil {
		return nil, err
	}
	return hop.Acosh(a)
}

// Dist returns the geodesic distance acosh(-c<x, y>_L)/√c between
// corresponding rows of x and y as an (N, 1) matrix
func (l *Lorentz) Dist(x, y *G.Node) (*G.Node, error) {
	alpha, err := l.alpha(x, y)
	if err != nil {
		return nil, fmt.Errorf("dist: %v", err)
	}
	theta, err := l.theta(alpha)
	if err != nil {
		return nil, fmt.Errorf("dist: %v", err)
	}

	invSqrtC, err := hop.ScalarLike(x, 1/l.sqrtC)
	if err != nil {
		return nil, fmt.Errorf("dist: %v", err)
	}
	return G.HadamardProd(invSqrtC, theta)
}

// Expmap maps each tangent vector u at x onto the hyperboloid along the
// geodesic it generates:
//
//	exp_x(u) = cosh(θ) x + sinh(θ)/θ u,  θ = √c ‖u‖_L
//
// At u = 0 the result is x.
func (l *Lorentz) Expmap(x, u *G.Node) (*G.Node, error) {
	if err := hop.CheckSameShape(x, u); err != nil {
		return nil, fmt.Errorf("expmap: %v", err)
	}

	norm, err := l.Norm(u)
	if err != nil {
		return nil, fmt.Errorf("expmap: %v", err)
	}
	sqrtC, err := hop.ScalarLike(x, l.sqrtC)
	if err != nil {
		return nil, fmt.Errorf("expmap: %v", err)
	}
	theta, err := G.HadamardProd(sqrtC, norm)
	if err != nil {
		return nil, fmt.Errorf("expmap: %v", err)
	}

	cosh, err := hop.Cosh(theta)
	if err != nil {
		return nil, fmt.Errorf("expmap: %v", err)
	}
	sinhc, err := hop.Sinhc(theta)
	if err != nil {
		return nil, fmt.Errorf("expmap: %v", err)
	}

	xTerm, err := hop.RowScale(x, cosh)
	if err != nil {
		return nil, fmt.Errorf("expmap: %v", err)
	}
	uTerm, err := hop.RowScale(u, sinhc)
	if err != nil {
		return nil, fmt.Errorf("expmap: %v", err)
	}

	return G.Add(xTerm, uTerm)
}

// Logmap is the inverse of Expmap: it returns the tangent vector at x
// whose exponential is y,
//
//	log_x(y) = θ/sinh(θ) (y - αx),  α = -c<x, y>_L,  θ = acosh(α)
func (l *Lorentz) Logmap(x, y *G.Node) (*G.Node, error) {
	if err := hop.CheckSameShape(x, y); err != nil {
		return nil, fmt.Errorf("logmap: %v", err)
	}

	alpha, err := l.alpha(x, y)
	if err != nil {
		return nil, fmt.Errorf("logmap: %v", err)
	}
	theta, err := l.theta(alpha)
	if err != nil {
		return nil, fmt.Errorf("logmap: %v", err)
	}
	sinhc, err := hop.Sinhc(theta)
	if err != nil {
		return nil, fmt.Errorf("logmap: %v", err)
	}

	ax, err := hop.RowScale(x, alpha)
	if err != nil {
		return nil, fmt.Errorf("logmap: %v", err)
	}
	dir, err := G.Sub(y, ax)
	if err != nil {
		return nil, fmt.Errorf("logmap: %v", err)
	}

	return hop.RowDiv(dir, sinhc)
}

// Transp parallel transports each tangent vector v at x to the tangent
// space at y along the geodesic from x to y:
//
//	v + c<y, v>_L / (1 - c<x, y>_L) (x + y)
//
// The denominator is 1 + α ≥ 2, so the transport has no singularity.
func (l *Lorentz) Transp(x, y, v *G.Node) (*G.Node, error) {
	if err := hop.CheckSameShape(x, y, v); err != nil {
		return nil, fmt.Errorf("transp: %v", err)
	}

	yv, err := l.Inner(y, v)
	if err != nil {
		return nil, fmt.Errorf("transp: %v", err)
	}
	alpha, err := l.alpha(x, y)
	if err != nil {
		return nil, fmt.Errorf("transp: %v", err)
	}

	c, err := hop.ScalarLike(x, l.c)
	if err != nil {
		return nil, fmt.Errorf("transp: %v", err)
	}
	one, err := hop.ScalarLike(x, 1)
	if err != nil {
		return nil, fmt.Errorf("transp: %v", err)
	}

	num, err := G.HadamardProd(c, yv)
	if err != nil {
		return nil, fmt.Errorf("transp: %v", err)
	}
	den, err := G.Add(one, alpha)
	if err != nil {
		return nil, fmt.Errorf("transp: %v", err)
	}
	coef, err := G.HadamardDiv(num, den)
	if err != nil {
		return nil, fmt.Errorf("transp: %v", err)
	}

	xy, err := G.Add(x, y)
	if err != nil {
		return nil, fmt.Errorf("transp: %v", err)
	}
	shift, err := hop.RowScale(xy, coef)
	if err != nil {
		return nil, fmt.Errorf("transp: %v", err)
	}

	return G.Add(v, shift)
}

// Transp0 parallel transports tangent vectors at the origin to the
// tangent spaces at y
func (l *Lorentz) Transp0(y, v *G.Node) (*G.Node, error) {
	o, err := l.originLike(y)
	if err != nil {
		return nil, fmt.Errorf("transp0: %v", err)
	}
	return l.Transp(o, y, v)
}

// Transp0Back parallel transports tangent vectors at y to the tangent
// space at the origin
func (l *Lorentz) Transp0Back(y, v *G.Node) (*G.Node, error) {
	o, err := l.originLike(y)
	if err != nil {
		return nil, fmt.Errorf("transp0Back: %v", err)
	}
	return l.Transp(y, o, v)
}

// Expmap0 is Expmap at the origin
func (l *Lorentz) Expmap0(u *G.Node) (*G.Node, error) {
	o, err := l.originLike(u)
	if err != nil {
		return nil, fmt.Errorf("expmap0: %v", err)
	}
	return l.Expmap(o, u)
}

// Logmap0 is Logmap at the origin
func (l *Lorentz) Logmap0(y *G.Node) (*G.Node, error) {
	o, err := l.originLike(y)
	if err != nil {
		return nil, fmt.Errorf("logmap0: %v", err)
	}
	return l.Logmap(o, y)
}

// originLike returns the origin repeated once for each row of x
func (l *Lorentz) originLike(x *G.Node) (*G.Node, error) {
	if err := hop.CheckRows(x); err != nil {
		return nil, err
	}
	return l.Origin(x.Graph(), x.Dtype(), x.Shape()[0], x.Shape()[1])
}

// Contains reports whether point lies on the upper sheet of the
// hyperboloid, with <x, x>_L within a relative tolerance tol of -1/c
func (l *Lorentz) Contains(point []float64, tol float64) bool {
	if len(point) < 2 || !(point[0] > 0) {
		return false
	}

	inner := -point[0] * point[0]
	for _, x := range point[1:] {
		inner += x * x
	}

	target := -1 / l.c
	return math.Abs(inner-target) <= tol*math.Max(1, math.Abs(target))
}
