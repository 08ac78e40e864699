package distribution

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// HyperbolicRadius is the distribution of the geodesic distance r
// between the mean of a Poincaré ball normal and its samples, for a
// ball of dimension dim and curvature -c. Its density is
//
//	p(r) = exp(-r²/(2σ²)) (sinh(√c r)/√c)^(dim-1) / Z(σ),   r ≥ 0
//
// HyperbolicRadius holds one distribution for each row of a (B, 1)
// matrix of scales σ. Samples are drawn by numerically inverting the
// CDF and are reparameterized implicitly, so they are differentiable
// with respect to the scales.
type HyperbolicRadius struct {
	dim   int
	c     float64
	scale *G.Node
	seeds *seeder
}

// NewHyperbolicRadius returns a new HyperbolicRadius
func NewHyperbolicRadius(dim int, c float64, scale *G.Node,
	seed uint64) (*HyperbolicRadius, error) {
	if dim < 1 {
		return nil, fmt.Errorf("newHyperbolicRadius: dimension must be "+
			"positive, got %v", dim)
	}
	if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
		return nil, fmt.Errorf("newHyperbolicRadius: %w: curvature "+
			"magnitude must be positive and finite, got %v",
			ErrConstraintViolation, c)
	}
	if err := checkFloat64(scale); err != nil {
		return nil, fmt.Errorf("newHyperbolicRadius: %v", err)
	}
	if scale.Dims() != 2 || scale.Shape()[1] != 1 {
		return nil, fmt.Errorf("newHyperbolicRadius: expected scale of shape "+
			"(B, 1) but got %v", scale.Shape())
	}

	return &HyperbolicRadius{
		dim:   dim,
		c:     c,
		scale: scale,
		seeds: newSeeder(seed),
	}, nil
}

// Rsample returns differentiable radii as a (samples*B, 1) matrix
func (h *HyperbolicRadius) Rsample(samples int) (*G.Node, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("rsample: cannot draw %v samples", samples)
	}

	op := newRadiusSampleOp(h.dim, h.c, samples, h.seeds.next())
	return G.ApplyOp(op, h.scale)
}

// Sample returns radii laid out as in Rsample, through which no
// gradient flows
func (h *HyperbolicRadius) Sample(samples int) (*G.Node, error) {
	r, err := h.Rsample(samples)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}
	return hop.StopGradient(r)
}

// LogNormalizer returns log Z(σ) as a (B, 1) matrix
func (h *HyperbolicRadius) LogNormalizer() (*G.Node, error) {
	return G.ApplyOp(&radiusLogNormOp{dim: h.dim, c: h.c}, h.scale)
}

// LogProb returns the log density of a (k*B, 1) matrix of radii
func (h *HyperbolicRadius) LogProb(r *G.Node) (*G.Node, error) {
	if r.Dims() != 2 || r.Shape()[1] != 1 {
		return nil, fmt.Errorf("logProb: expected radii of shape (k*B, 1) "+
			"but got %v", r.Shape())
	}
	batch := h.scale.Shape()[0]
	if r.Shape()[0]%batch != 0 {
		return nil, fmt.Errorf("logProb: expected a multiple of %v rows but "+
			"got shape %v", batch, r.Shape())
	}
	k := r.Shape()[0] / batch

	scale, err := hop.Tile(h.scale, k)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	logZ, err := h.LogNormalizer()
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	logZ, err = hop.Tile(logZ, k)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	negHalf, err := hop.ScalarLike(r, -0.5)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	lp := G.Must(G.HadamardDiv(G.Must(G.Square(r)), G.Must(G.Square(scale))))
	lp = G.Must(G.HadamardProd(negHalf, lp))

	if h.dim > 1 {
		// log(sinh(√c r)/√c) = log r + log(sinh(√c r)/(√c r))
		sqrtC, err := hop.ScalarLike(r, math.Sqrt(h.c))
		if err != nil {
			return nil, fmt.Errorf("logProb: %v", err)
		}
		dim, err := hop.ScalarLike(r, float64(h.dim-1))
		if err != nil {
			return nil, fmt.Errorf("logProb: %v", err)
		}
		logSinh := G.Must(hop.LogSinhc(G.Must(G.HadamardProd(sqrtC, r))))
		logSinh = G.Must(G.Add(G.Must(G.Log(r)), logSinh))
		lp = G.Must(G.Add(lp, G.Must(G.HadamardProd(dim, logSinh))))
	}

	return G.Sub(lp, logZ)
}

// Scale returns the (B, 1) matrix of scales
func (h *HyperbolicRadius) Scale() *G.Node { return h.scale }

func (h *HyperbolicRadius) Dim() int { return h.dim }

func (h *HyperbolicRadius) C() float64 { return h.c }

// BatchShape returns the number of distributions held
func (h *HyperbolicRadius) BatchShape() tensor.Shape {
	return tensor.Shape{h.scale.Shape()[0]}
}
