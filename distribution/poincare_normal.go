package distribution

import (
	"fmt"

	"github.com/samuelfneumann/hop"
	"github.com/samuelfneumann/hop/manifold"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// PoincareNormal is the Riemannian normal distribution on the Poincaré
// ball, whose density with respect to the Riemannian volume decays
// with the squared geodesic distance from its mean:
//
//	p(x) ∝ exp(-d(μ, x)²/(2σ²))
//
// A sample is drawn as the point at geodesic distance r from the mean
// in direction v, where v is uniform on the unit sphere and r follows
// a HyperbolicRadius with the same scale.
//
// The mean is a (B, D) matrix of points inside the ball and the scale
// a (B, 1) matrix or a vector of length B. A mean vector of length D
// with a single scale is an unbatched distribution.
type PoincareNormal struct {
	mean        *G.Node
	loc         *G.Node
	scale       *G.Node
	ball        *manifold.PoincareBall
	radial      Radial
	directional Directional
	points      layout
}

// NewPoincareNormal returns a new PoincareNormal on the ball of
// curvature -c. The radius and direction of samples are drawn with
// seeds seed and seed+1.
//
// The mean and scale must not contain NaN. If validate is true, the
// mean must also be inside the ball and the scale positive. Violations
// return an error wrapping ErrConstraintViolation.
func NewPoincareNormal(loc, scale *G.Node, c float64, seed uint64,
	validate bool) (*PoincareNormal, error) {
	scaleRows, err := scaleColumn(loc, scale)
	if err != nil {
		return nil, fmt.Errorf("newPoincareNormal: %v", err)
	}

	d := loc.Shape()[loc.Dims()-1]
	radial, err := NewHyperbolicRadius(d, c, scaleRows, seed)
	if err != nil {
		return nil, fmt.Errorf("newPoincareNormal: %w", err)
	}
	directional, err := NewHypersphericalUniform(loc.Graph(), d-1, seed+1)
	if err != nil {
		return nil, fmt.Errorf("newPoincareNormal: %v", err)
	}

	return NewPoincareNormalWith(loc, scale, c, radial, directional,
		validate)
}

// NewPoincareNormalWith returns a new PoincareNormal which samples its
// radii from radial and its directions from directional. The radial
// distribution must hold one distribution per location on the ball of
// dimension D and curvature -c, and the directional distribution must
// be over the unit sphere in ℝᴰ. Both should be parameterized by the
// given scale for LogProb to be the density of the samples.
func NewPoincareNormalWith(loc, scale *G.Node, c float64, radial Radial,
	directional Directional, validate bool) (*PoincareNormal, error) {
	if radial == nil || directional == nil {
		return nil, fmt.Errorf("newPoincareNormalWith: nil radial or " +
			"directional distribution")
	}

	ball, err := manifold.NewPoincareBall(c)
	if err != nil {
		return nil, fmt.Errorf("newPoincareNormalWith: %w", err)
	}
	if err := checkFloat64(loc, scale); err != nil {
		return nil, fmt.Errorf("newPoincareNormalWith: %v", err)
	}

	locRows, batched, err := asRows(loc)
	if err != nil {
		return nil, fmt.Errorf("newPoincareNormalWith: loc: %v", err)
	}
	scaleRows, err := scaleColumn(loc, scale)
	if err != nil {
		return nil, fmt.Errorf("newPoincareNormalWith: %v", err)
	}

	b, d := locRows.Shape()[0], locRows.Shape()[1]
	if radial.Dim() != d || radial.C() != c || !hop.SameShape(
		radial.BatchShape(), tensor.Shape{b}) {
		return nil, fmt.Errorf("newPoincareNormalWith: radial distribution "+
			"of dimension %v, curvature %v and batch shape %v does not "+
			"match loc of shape %v and curvature %v", radial.Dim(),
			radial.C(), radial.BatchShape(), loc.Shape(), c)
	}
	if directional.Dim() != d-1 {
		return nil, fmt.Errorf("newPoincareNormalWith: expected directions "+
			"on the sphere of dimension %v but got %v", d-1,
			directional.Dim())
	}

	if err := checkPoincareParams(ball, loc, scale, d, validate); err != nil {
		return nil, fmt.Errorf("newPoincareNormalWith: %w", err)
	}

	return &PoincareNormal{
		mean:        loc,
		loc:         locRows,
		scale:       scaleRows,
		ball:        ball,
		radial:      radial,
		directional: directional,
		points:      layout{batch: b, dim: d, batched: batched},
	}, nil
}

// scaleColumn returns the scale of a Poincaré normal as a (B, 1)
// matrix matching the rows of loc
func scaleColumn(loc, scale *G.Node) (*G.Node, error) {
	if loc.Dims() != 1 && loc.Dims() != 2 {
		return nil, fmt.Errorf("expected loc to be a vector or matrix but "+
			"got shape %v", loc.Shape())
	}

	b := 1
	if loc.Dims() == 2 {
		b = loc.Shape()[0]
	}

	if scale.Shape().TotalSize() != b || scale.Dims() > 2 ||
		(scale.Dims() == 2 && scale.Shape()[1] != 1) {
		return nil, fmt.Errorf("expected one scale per location of shape %v "+
			"but got scale of shape %v", loc.Shape(), scale.Shape())
	}

	want := tensor.Shape{b, 1}
	if hop.SameShape(scale.Shape(), want) {
		return scale, nil
	}
	return G.Reshape(scale, want)
}

// checkPoincareParams returns an error wrapping ErrConstraintViolation
// if loc or scale contain NaN, or if validate is true and loc is not
// inside the ball or scale is not positive. NaN checks are skipped for
// nodes without a value unless validate is true.
func checkPoincareParams(ball *manifold.PoincareBall, loc, scale *G.Node,
	d int, validate bool) error {
	if !validate {
		for _, n := range []*G.Node{loc, scale} {
			if n.Value() == nil {
				continue
			}
			if err := checkValues(n.Name(), n, false); err != nil {
				return err
			}
		}
		return nil
	}

	if err := checkValues("scale", scale, true); err != nil {
		return err
	}
	if err := checkValues("loc", loc, false); err != nil {
		return err
	}

	data, err := hop.Float64s(loc)
	if err != nil {
		return fmt.Errorf("cannot validate loc: %v", err)
	}
	for i := 0; i < len(data); i += d {
		if point := data[i : i+d]; !ball.Contains(point) {
			return fmt.Errorf("%w: loc %v is not inside the Poincaré ball "+
				"of curvature -%v", ErrConstraintViolation, point, ball.C())
		}
	}
	return nil
}

// Rsample returns samples reparameterized samples as an (n, B, D)
// tensor, or an (n, D) matrix for an unbatched distribution. Gradients
// flow to the mean through the exponential map and to the scale
// through the implicitly reparameterized radii.
func (p *PoincareNormal) Rsample(samples int) (*G.Node, error) {
	r, err := p.radial.Rsample(samples)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}

	v, err := p.directional.Sample(samples * p.points.batch)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}

	loc, err := hop.Tile(p.loc, samples)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}

	x, err := p.ball.ExpmapPolar(loc, v, r)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}

	return p.points.points(x, p.points.sampleShape(samples))
}

// Sample returns samples laid out as in Rsample, through which no
// gradient flows
func (p *PoincareNormal) Sample(samples int) (*G.Node, error) {
	x, err := p.Rsample(samples)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	return hop.StopGradient(x)
}

// LogProb returns the log density of points x inside the ball,
//
//	log p(x) = -d(μ, x)²/(2σ²) - log |S^(D-1)| - log Z(σ)
//
// where log Z(σ) is the log normalizer of the radial distribution. x
// has shape (B, D) or (n, B, D), or (D) or (n, D) for an unbatched
// distribution, and the result drops the trailing axis.
func (p *PoincareNormal) LogProb(x *G.Node) (*G.Node, error) {
	rows, k, lead, err := p.points.rows(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	loc, err := hop.Tile(p.loc, k)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	scale, err := hop.Tile(p.scale, k)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	dist, err := p.ball.Dist(loc, rows)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	negHalf, err := hop.ScalarLike(dist, -0.5)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	sqDist, err := G.Square(dist)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	sqScale, err := G.Square(scale)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	logProb, err := G.HadamardDiv(sqDist, sqScale)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	logProb, err = G.HadamardProd(negHalf, logProb)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	dirLogNorm, err := p.directional.LogNormalizer()
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	logProb, err = G.Sub(logProb, dirLogNorm)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	radLogNorm, err := p.radial.LogNormalizer()
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	radLogNorm, err = hop.Tile(radLogNorm, k)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	logProb, err = G.Sub(logProb, radLogNorm)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	return p.points.scalars(logProb, lead)
}

// Mean returns the mean of the distribution, in the shape it was given
func (p *PoincareNormal) Mean() *G.Node { return p.mean }

// Scale returns the (B, 1) matrix of scales
func (p *PoincareNormal) Scale() *G.Node { return p.scale }

// Manifold returns the ball the distribution is defined on
func (p *PoincareNormal) Manifold() *manifold.PoincareBall { return p.ball }

// Radial returns the distribution of the distance of samples from the
// mean
func (p *PoincareNormal) Radial() Radial { return p.radial }

// Directional returns the distribution of the direction of samples
// from the mean
func (p *PoincareNormal) Directional() Directional {
	return p.directional
}

func (p *PoincareNormal) HasRsample() bool { return true }

// BatchShape returns (B), or the empty shape for an unbatched
// distribution
func (p *PoincareNormal) BatchShape() tensor.Shape {
	return p.points.batchShape()
}

// EventShape returns (D)
func (p *PoincareNormal) EventShape() tensor.Shape {
	return tensor.Shape{p.points.dim}
}
