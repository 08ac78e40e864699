package distribution

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/hop"
	"github.com/samuelfneumann/hop/manifold"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// locTolerance is the relative tolerance within which a location must
// satisfy <x, x>_L = -1/c to be accepted as a point on the hyperboloid
const locTolerance = 1e-6

// WrappedNormal is the wrapped normal distribution on the hyperboloid
// model of hyperbolic space. A sample is drawn by sampling a tangent
// vector at the origin (1/√c, 0, ..., 0) from a diagonal normal with
// zero mean, transporting it in parallel to the location, and mapping
// it onto the hyperboloid with the exponential map there.
//
// The location is a (B, D) matrix of points on the hyperboloid in ℝᴰ
// and the scale a (B, D-1) matrix holding the standard deviation of
// each coordinate of the tangent normal. A location vector of length D
// with a scale vector of length D-1 is an unbatched distribution.
type WrappedNormal struct {
	mean    *G.Node
	loc     *G.Node
	scale   *G.Node
	base    *IID
	lorentz *manifold.Lorentz
	points  layout
	tangent layout
}

// NewWrappedNormal returns a new WrappedNormal on the hyperboloid of
// curvature -c. If validate is true, the location must lie on the
// hyperboloid and the scale must be positive, otherwise an error
// wrapping ErrConstraintViolation is returned. Validation reads the
// values of loc and scale, so they must already be set.
func NewWrappedNormal(loc, scale *G.Node, c float64, seed uint64,
	validate bool) (*WrappedNormal, error) {
	lorentz, err := manifold.NewLorentz(c)
	if err != nil {
		return nil, fmt.Errorf("newWrappedNormal: %w", err)
	}
	if err := checkFloat64(loc, scale); err != nil {
		return nil, fmt.Errorf("newWrappedNormal: %v", err)
	}

	locRows, batched, err := asRows(loc)
	if err != nil {
		return nil, fmt.Errorf("newWrappedNormal: loc: %v", err)
	}
	scaleRows, scaleBatched, err := asRows(scale)
	if err != nil {
		return nil, fmt.Errorf("newWrappedNormal: scale: %v", err)
	}

	b, d := locRows.Shape()[0], locRows.Shape()[1]
	if d < 2 {
		return nil, fmt.Errorf("newWrappedNormal: expected points with at "+
			"least 2 coordinates but got loc of shape %v", loc.Shape())
	}
	if batched != scaleBatched || !hop.SameShape(scaleRows.Shape(),
		tensor.Shape{b, d - 1}) {
		return nil, fmt.Errorf("newWrappedNormal: expected scale with %v "+
			"coordinates per location of shape %v but got %v", d-1,
			loc.Shape(), scale.Shape())
	}

	if validate {
		if err := checkValues("scale", scale, true); err != nil {
			return nil, fmt.Errorf("newWrappedNormal: %w", err)
		}
		if err := checkOnHyperboloid(lorentz, loc, d); err != nil {
			return nil, fmt.Errorf("newWrappedNormal: %w", err)
		}
	}

	zero, err := hop.Fill(scale.Graph(), tensor.Float64, scaleRows.Shape(), 0)
	if err != nil {
		return nil, fmt.Errorf("newWrappedNormal: %v", err)
	}
	normal, err := NewNormal(zero, scaleRows, seed)
	if err != nil {
		return nil, fmt.Errorf("newWrappedNormal: could not construct "+
			"base distribution: %v", err)
	}

	return &WrappedNormal{
		mean:    loc,
		loc:     locRows,
		scale:   scaleRows,
		base:    NewIID(normal),
		lorentz: lorentz,
		points:  layout{batch: b, dim: d, batched: batched},
		tangent: layout{batch: b, dim: d - 1, batched: batched},
	}, nil
}

// checkOnHyperboloid returns an error wrapping ErrConstraintViolation
// if any row of the value of loc is not on the hyperboloid
func checkOnHyperboloid(l *manifold.Lorentz, loc *G.Node, d int) error {
	if err := checkValues("loc", loc, false); err != nil {
		return err
	}
	data, err := hop.Float64s(loc)
	if err != nil {
		return fmt.Errorf("cannot validate loc: %v", err)
	}

	for i := 0; i < len(data); i += d {
		if point := data[i : i+d]; !l.Contains(point, locTolerance) {
			return fmt.Errorf("%w: loc %v is not on the hyperboloid of "+
				"curvature -%v", ErrConstraintViolation, point, l.C())
		}
	}
	return nil
}

// Wrap pushes tangent vectors at the origin forward onto the
// hyperboloid: each vector v, whose D-1 coordinates are the spatial
// coordinates of a tangent vector at the origin, is transported in
// parallel to the location and exponentiated there. v has shape
// (B, D-1) or (n, B, D-1), or (D-1) or (n, D-1) for an unbatched
// distribution. The result has the same shape with D coordinates.
func (w *WrappedNormal) Wrap(v *G.Node) (*G.Node, error) {
	rows, k, lead, err := w.tangent.rows(v)
	if err != nil {
		return nil, fmt.Errorf("wrap: %v", err)
	}

	z, err := w.wrapRows(rows, k)
	if err != nil {
		return nil, fmt.Errorf("wrap: %v", err)
	}

	return w.points.points(z, lead)
}

// wrapRows maps a (k*B, D-1) matrix of spatial tangent coordinates at
// the origin to a (k*B, D) matrix of points
func (w *WrappedNormal) wrapRows(v *G.Node, k int) (*G.Node, error) {
	loc, err := hop.Tile(w.loc, k)
	if err != nil {
		return nil, err
	}

	// Tangent vectors at the origin have a zero time coordinate
	v, err = hop.PadLeft(v, 1)
	if err != nil {
		return nil, err
	}

	u, err := w.lorentz.Transp0(loc, v)
	if err != nil {
		return nil, err
	}
	return w.lorentz.Expmap(loc, u)
}

// Rsample returns samples reparameterized samples as an (n, B, D)
// tensor, or an (n, D) matrix for an unbatched distribution
func (w *WrappedNormal) Rsample(samples int) (*G.Node, error) {
	v, err := w.base.Rsample(samples)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}

	z, err := w.wrapRows(v, samples)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}

	return w.points.points(z, w.points.sampleShape(samples))
}

// Sample returns samples laid out as in Rsample, through which no
// gradient flows
func (w *WrappedNormal) Sample(samples int) (*G.Node, error) {
	z, err := w.Rsample(samples)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	return hop.StopGradient(z)
}

// LogProb returns the log density of points z on the hyperboloid. The
// point is mapped back to the tangent space at the origin, where the
// base density is evaluated and corrected by the log determinant of
// the Jacobian of the exponential map:
//
//	log p(z) = log 𝒩(v; 0, σ) - (D-2) log(sinh(√c r)/(√c r))
//
// where u = log_loc(z), r = ‖u‖_L and v is u transported to the
// origin. z has shape (B, D) or (n, B, D), or (D) or (n, D) for an
// unbatched distribution, and the result drops the trailing axis.
func (w *WrappedNormal) LogProb(z *G.Node) (*G.Node, error) {
	rows, k, lead, err := w.points.rows(z)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	loc, err := hop.Tile(w.loc, k)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	u, err := w.lorentz.Logmap(loc, rows)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	v, err := w.lorentz.Transp0Back(loc, u)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	v, err = hop.Columns(v, 1, w.points.dim)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	logProb, err := w.base.LogProb(v)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	logDet, err := w.logDetExpmap(u)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	logProb, err = G.Sub(logProb, logDet)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	return w.points.scalars(logProb, lead)
}

// logDetExpmap returns the log determinant of the Jacobian of the
// exponential map at each tangent vector u, (dim-1) log(sinh(θ)/θ)
// with θ = √c ‖u‖_L, as a (k*B, 1) matrix
func (w *WrappedNormal) logDetExpmap(u *G.Node) (*G.Node, error) {
	norm, err := w.lorentz.Norm(u)
	if err != nil {
		return nil, err
	}

	sqrtC, err := hop.ScalarLike(u, math.Sqrt(w.lorentz.C()))
	if err != nil {
		return nil, err
	}
	theta, err := G.HadamardProd(sqrtC, norm)
	if err != nil {
		return nil, err
	}

	logSinhc, err := hop.LogSinhc(theta)
	if err != nil {
		return nil, err
	}

	dim := w.tangent.dim
	factor, err := hop.ScalarLike(u, float64(dim-1))
	if err != nil {
		return nil, err
	}
	return G.HadamardProd(factor, logSinhc)
}

// Mean returns the location of the distribution, in the shape it was
// given
func (w *WrappedNormal) Mean() *G.Node { return w.mean }

// Scale returns the (B, D-1) matrix of tangent standard deviations
func (w *WrappedNormal) Scale() *G.Node { return w.scale }

// Manifold returns the hyperboloid the distribution is defined on
func (w *WrappedNormal) Manifold() *manifold.Lorentz { return w.lorentz }

func (w *WrappedNormal) HasRsample() bool { return true }

// BatchShape returns (B), or the empty shape for an unbatched
// distribution
func (w *WrappedNormal) BatchShape() tensor.Shape {
	return w.points.batchShape()
}

// EventShape returns (D-1), the intrinsic dimension of the hyperboloid
func (w *WrappedNormal) EventShape() tensor.Shape {
	return tensor.Shape{w.tangent.dim}
}
