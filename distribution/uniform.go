package distribution

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// HypersphericalUniform is the uniform distribution on the unit sphere
// S^dim = {x ∈ ℝ^(dim+1) : ‖x‖ = 1}
type HypersphericalUniform struct {
	g     *G.ExprGraph
	dim   int
	seeds *seeder
}

// NewHypersphericalUniform returns a new uniform distribution over the
// sphere of dimension dim, whose samples are added to graph g
func NewHypersphericalUniform(g *G.ExprGraph, dim int,
	seed uint64) (*HypersphericalUniform, error) {
	if dim < 0 {
		return nil, fmt.Errorf("newHypersphericalUniform: dimension must "+
			"be non-negative, got %v", dim)
	}
	return &HypersphericalUniform{g: g, dim: dim, seeds: newSeeder(seed)}, nil
}

// Dim returns the dimension of the sphere
func (h *HypersphericalUniform) Dim() int { return h.dim }

// Sample returns samples unit vectors as a (samples, dim+1) matrix.
// The vectors are standard normal draws scaled to unit length.
func (h *HypersphericalUniform) Sample(samples int) (*G.Node, error) {
	shape := tensor.Shape{1, h.dim + 1}
	zero, err := hop.Fill(h.g, tensor.Float64, shape, 0)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}
	one, err := hop.Fill(h.g, tensor.Float64, shape, 1)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	x, err := NormalRand(zero, one, h.seeds.next(), samples)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}
	x, err = G.Reshape(x, tensor.Shape{samples, h.dim + 1})
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	norm, err := hop.RowNorm(x, 1e-30)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}
	return hop.RowDiv(x, norm)
}

// LogNormalizer returns the log of the surface area of the sphere,
//
//	log |S^dim| = log 2 + ((dim+1)/2) log π - log Γ((dim+1)/2)
func (h *HypersphericalUniform) LogNormalizer() (*G.Node, error) {
	return h.g.Constant(G.NewF64(h.logSurfaceArea())), nil
}

// LogProb returns the log density, the negative log surface area, of
// each row of a matrix of unit vectors as an (N, 1) matrix
func (h *HypersphericalUniform) LogProb(x *G.Node) (*G.Node, error) {
	if x.Dims() != 2 || x.Shape()[1] != h.dim+1 {
		return nil, fmt.Errorf("logProb: expected shape (N, %v) but got %v",
			h.dim+1, x.Shape())
	}
	return hop.Fill(h.g, tensor.Float64, tensor.Shape{x.Shape()[0], 1},
		-h.logSurfaceArea())
}

func (h *HypersphericalUniform) logSurfaceArea() float64 {
	half := float64(h.dim+1) / 2
	lgamma, _ := math.Lgamma(half)
	return math.Ln2 + half*math.Log(math.Pi) - lgamma
}
