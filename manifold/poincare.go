package manifold

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
)

// PoincareBall is the Poincaré ball model of hyperbolic space of
// curvature -c: the open ball {x ∈ ℝᴰ : ‖x‖ < 1/√c} with the metric
// conformally scaled by λ_x = 2 / (1 - c‖x‖²).
//
// All methods take batches of points or tangent vectors as (N, D)
// matrices and operate row-wise.
type PoincareBall struct {
	c     float64
	sqrtC float64
}

// NewPoincareBall returns a new Poincaré ball of curvature -c
func NewPoincareBall(c float64) (*PoincareBall, error) {
	if err := checkCurvature(c); err != nil {
		return nil, fmt.Errorf("newPoincareBall: %w", err)
	}
	return &PoincareBall{c: c, sqrtC: math.Sqrt(c)}, nil
}

// C returns the magnitude of the curvature
func (p *PoincareBall) C() float64 { return p.c }

// MobiusAdd computes the Möbius addition x ⊕ y of corresponding rows:
//
//	        (1 + 2c<x,y> + c‖y‖²) x + (1 - c‖x‖²) y
//	x ⊕ y = ---------------------------------------
//	           1 + 2c<x,y> + c²‖x‖²‖y‖²
func (p *PoincareBall) MobiusAdd(x, y *G.Node) (*G.Node, error) {
	if err := hop.CheckSameShape(x, y); err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}

	xy, err := hop.RowDot(x, y)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}
	x2, err := hop.RowDot(x, x)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}
	y2, err := hop.RowDot(y, y)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}

	one, err := hop.ScalarLike(x, 1)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}
	c, err := hop.ScalarLike(x, p.c)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}
	twoC, err := hop.ScalarLike(x, 2*p.c)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}
	cSq, err := hop.ScalarLike(x, p.c*p.c)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}

	// 1 + 2c<x,y>, shared by the x coefficient and the denominator
	base := G.Must(G.Add(one, G.Must(G.HadamardProd(twoC, xy))))

	xCoef := G.Must(G.Add(base, G.Must(G.HadamardProd(c, y2))))
	yCoef := G.Must(G.Sub(one, G.Must(G.HadamardProd(c, x2))))
	den := G.Must(G.Add(base, G.Must(G.HadamardProd(cSq,
		G.Must(G.HadamardProd(x2, y2))))))

	den, err = hop.ClampMin(den, minNorm)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}

	xTerm, err := hop.RowScale(x, xCoef)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}
	yTerm, err := hop.RowScale(y, yCoef)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}
	num, err := G.Add(xTerm, yTerm)
	if err != nil {
		return nil, fmt.Errorf("mobiusAdd: %v", err)
	}

	return hop.RowDiv(num, den)
}

// ExpmapPolar moves each point x by a geodesic of length r in the
// direction u, where u need not be normalized and r is an (N, 1)
// matrix of non-negative radii:
//
//	x ⊕ (tanh(√c r / 2) u / (√c ‖u‖))
//
// The radius is measured in the metric of the ball at the origin, so
// that r is the hyperbolic distance from the origin when x = 0.
func (p *PoincareBall) ExpmapPolar(x, u, r *G.Node) (*G.Node, error) {
	if err := hop.CheckSameShape(x, u); err != nil {
		return nil, fmt.Errorf("expmapPolar: %v", err)
	}
	if err := hop.CheckRows(x, r); err != nil {
		return nil, fmt.Errorf("expmapPolar: %v", err)
	}

	uNorm, err := hop.RowNorm(u, minNorm*minNorm)
	if err != nil {
		return nil, fmt.Errorf("expmapPolar: %v", err)
	}

	halfSqrtC, err := hop.ScalarLike(x, p.sqrtC/2)
	if err != nil {
		return nil, fmt.Errorf("expmapPolar: %v", err)
	}
	sqrtC, err := hop.ScalarLike(x, p.sqrtC)
	if err != nil {
		return nil, fmt.Errorf("expmapPolar: %v", err)
	}

	t := G.Must(G.Tanh(G.Must(G.HadamardProd(halfSqrtC, r))))
	coef, err := G.HadamardDiv(t, G.Must(G.HadamardProd(sqrtC, uNorm)))
	if err != nil {
		return nil, fmt.Errorf("expmapPolar: %v", err)
	}

	step, err := hop.RowScale(u, coef)
	if err != nil {
		return nil, fmt.Errorf("expmapPolar: %v", err)
	}

	return p.MobiusAdd(x, step)
}

// Lambda returns the conformal factor λ_x = 2 / (1 - c‖x‖²) of each
// point as an (N, 1) matrix
func (p *PoincareBall) Lambda(x *G.Node) (*G.Node, error) {
	x2, err := hop.RowDot(x, x)
	if err != nil {
		return nil, fmt.Errorf("lambda: %v", err)
	}

	one, err := hop.ScalarLike(x, 1)
	if err != nil {
		return nil, fmt.Errorf("lambda: %v", err)
	}
	two, err := hop.ScalarLike(x, 2)
	if err != nil {
		return nil, fmt.Errorf("lambda: %v", err)
	}
	c, err := hop.ScalarLike(x, p.c)
	if err != nil {
		return nil, fmt.Errorf("lambda: %v", err)
	}

	den := G.Must(G.Sub(one, G.Must(G.HadamardProd(c, x2))))
	den, err = hop.ClampMin(den, minNorm)
	if err != nil {
		return nil, fmt.Errorf("lambda: %v", err)
	}

	return G.HadamardDiv(two, den)
}

// Norm returns the Riemannian norm λ_x ‖u‖ of each tangent vector u at
// x as an (N, 1) matrix
func (p *PoincareBall) Norm(x, u *G.Node) (*G.Node, error) {
	lambda, err := p.Lambda(x)
	if err != nil {
		return nil, fmt.Errorf("norm: %v", err)
	}
	uNorm, err := hop.RowNorm(u, minNormSq)
	if err != nil {
		return nil, fmt.Errorf("norm: %v", err)
	}
	return G.HadamardProd(lambda, uNorm)
}

// Expmap maps each tangent vector u at x onto the ball:
//
//	exp_x(u) = x ⊕ (tanh(√c λ_x ‖u‖ / 2) u / (√c ‖u‖))
func (p *PoincareBall) Expmap(x, u *G.Node) (*G.Node, error) {
	r, err := p.Norm(x, u)
	if err != nil {
		return nil, fmt.Errorf("expmap: %v", err)
	}

	// exp_x(u) is the polar exponential with the Riemannian length of u
	return p.ExpmapPolar(x, u, r)
}

// Logmap is the inverse of Expmap:
//
//	log_x(y) = 2/(√c λ_x) artanh(√c ‖w‖) w / ‖w‖,  w = (-x) ⊕ y
func (p *PoincareBall) Logmap(x, y *G.Node) (*G.Node, error) {
	w, wNorm, err := p.difference(x, y)
	if err != nil {
		return nil, fmt.Errorf("logmap: %v", err)
	}
	a, err := p.artanhScaled(wNorm)
	if err != nil {
		return nil, fmt.Errorf("logmap: %v", err)
	}

	lambda, err := p.Lambda(x)
	if err != nil {
		return nil, fmt.Errorf("logmap: %v", err)
	}
	twoOverSqrtC, err := hop.ScalarLike(x, 2/p.sqrtC)
	if err != nil {
		return nil, fmt.Errorf("logmap: %v", err)
	}

	coef := G.Must(G.HadamardProd(twoOverSqrtC, a))
	coef = G.Must(G.HadamardDiv(coef, G.Must(G.HadamardProd(lambda, wNorm))))

	return hop.RowScale(w, coef)
}

// Dist returns the geodesic distance between corresponding rows of x
// and y as an (N, 1) matrix:
//
//	d(x, y) = 2/√c artanh(√c ‖(-x) ⊕ y‖)
func (p *PoincareBall) Dist(x, y *G.Node) (*G.Node, error) {
	_, wNorm, err := p.difference(x, y)
	if err != nil {
		return nil, fmt.Errorf("dist: %v", err)
	}
	a, err := p.artanhScaled(wNorm)
	if err != nil {
		return nil, fmt.Errorf("dist: %v", err)
	}

	twoOverSqrtC, err := hop.ScalarLike(x, 2/p.sqrtC)
	if err != nil {
		return nil, fmt.Errorf("dist: %v", err)
	}
	return G.HadamardProd(twoOverSqrtC, a)
}

// difference returns w = (-x) ⊕ y and its Euclidean norm
func (p *PoincareBall) difference(x, y *G.Node) (*G.Node, *G.Node, error) {
	negX, err := G.Neg(x)
	if err != nil {
		return nil, nil, err
	}
	w, err := p.MobiusAdd(negX, y)
	if err != nil {
		return nil, nil, err
	}
	wNorm, err := hop.RowNorm(w, minNormSq)
	if err != nil {
		return nil, nil, err
	}
	return w, wNorm, nil
}

// artanhScaled returns artanh(√c n), with √c n clamped below 1
func (p *PoincareBall) artanhScaled(n *G.Node) (*G.Node, error) {
	sqrtC, err := hop.ScalarLike(n, p.sqrtC)
	if err != nil {
		return nil, err
	}
	z, err := G.HadamardProd(sqrtC, n)
	if err != nil {
		return nil, err
	}
	z, err = hop.Clamp(z, -1+artanhEps, 1-artanhEps, false)
	if err != nil {
		return nil, err
	}
	return hop.Artanh(z)
}

// Contains reports whether point lies strictly inside the ball
func (p *PoincareBall) Contains(point []float64) bool {
	var sq float64
	for _, x := range point {
		sq += x * x
	}
	return p.c*sq < 1
}
