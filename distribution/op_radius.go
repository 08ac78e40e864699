package distribution

import (
	"fmt"
	"hash"
	"math"

	"golang.org/x/exp/rand"

	"github.com/chewxy/hm"
	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// radiusSampleOp draws samples radii from the radial distribution of
// each scale in its (B, 1) input by inverting the tabulated CDF. The
// output is a (samples*B, 1) matrix holding sample j of scale b in row
// j*B + b.
type radiusSampleOp struct {
	dim     int
	c       float64
	samples int
	seed    uint64
	rng     *rand.Rand
}

func newRadiusSampleOp(dim int, c float64, samples int,
	seed uint64) *radiusSampleOp {
	return &radiusSampleOp{
		dim:     dim,
		c:       c,
		samples: samples,
		seed:    seed,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (r *radiusSampleOp) Arity() int { return 1 }

func (r *radiusSampleOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (r *radiusSampleOp) InferShape(inputs ...G.DimSizer) (tensor.Shape,
	error) {
	if err := hop.CheckArity(r, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	shapes, err := G.DimSizersToShapes(inputs)
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return tensor.Shape{r.samples * shapes[0][0], 1}, nil
}

func (r *radiusSampleOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := hop.CheckArity(r, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	scales, err := scaleValues(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	batch := len(scales)
	out := make([]float64, r.samples*batch)
	for b, scale := range scales {
		if !validScale(scale) {
			for j := 0; j < r.samples; j++ {
				r.rng.Float64()
				out[j*batch+b] = math.NaN()
			}
			continue
		}
		table := newRadialTable(r.dim, r.c, scale)
		for j := 0; j < r.samples; j++ {
			out[j*batch+b] = table.quantile(r.rng.Float64())
		}
	}

	return newValue(inputs[0].Dtype(), tensor.Shape{r.samples * batch, 1},
		out), nil
}

func (r *radiusSampleOp) ReturnsPtr() bool { return false }

func (r *radiusSampleOp) CallsExtern() bool { return false }

func (r *radiusSampleOp) OverwritesInput() int { return -1 }

func (r *radiusSampleOp) String() string {
	return fmt.Sprintf("RadiusSample{dim=%v, c=%v, samples=%v, seed=%v}()",
		r.dim, r.c, r.samples, r.seed)
}

func (r *radiusSampleOp) WriteHash(h hash.Hash) { fmt.Fprint(h, r.String()) }

func (r *radiusSampleOp) Hashcode() uint32 { return hop.SimpleHash(r) }

func (r *radiusSampleOp) DiffWRT(inputs int) []bool {
	if inputs != 1 {
		panic(fmt.Sprintf("radius sampling only supports one input, got %d "+
			"instead", inputs))
	}
	return []bool{true}
}

func (r *radiusSampleOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	if err := hop.CheckArity(r, len(inputs)); err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	diff := &radiusSampleDiffOp{dim: r.dim, c: r.c, samples: r.samples}
	d, err := G.ApplyOp(diff, inputs[0], output, grad)
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}
	return G.Nodes{d}, nil
}

// radiusSampleDiffOp backpropagates the gradient of sampled radii to
// their scales. Its inputs are the (B, 1) scales, the (samples*B, 1)
// radii and the gradient of the radii.
type radiusSampleDiffOp struct {
	dim     int
	c       float64
	samples int
}

func (r *radiusSampleDiffOp) Arity() int { return 3 }

func (r *radiusSampleDiffOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a, a, a)
}

func (r *radiusSampleDiffOp) InferShape(inputs ...G.DimSizer) (tensor.Shape,
	error) {
	if err := hop.CheckArity(r, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	shapes, err := G.DimSizersToShapes(inputs)
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return shapes[0].Clone(), nil
}

func (r *radiusSampleDiffOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := hop.CheckArity(r, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	scales, err := scaleValues(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	radii, err := values(inputs[1])
	if err != nil {
		return nil, fmt.Errorf("do: radii: %v", err)
	}
	grad, err := values(inputs[2])
	if err != nil {
		return nil, fmt.Errorf("do: gradient: %v", err)
	}

	batch := len(scales)
	if len(radii) != r.samples*batch || len(grad) != len(radii) {
		return nil, fmt.Errorf("do: expected %v radii and gradients but got "+
			"%v and %v", r.samples*batch, len(radii), len(grad))
	}

	out := make([]float64, batch)
	for b, scale := range scales {
		if !validScale(scale) {
			out[b] = math.NaN()
			continue
		}
		table := newRadialTable(r.dim, r.c, scale)
		for j := 0; j < r.samples; j++ {
			i := j*batch + b
			out[b] += grad[i] * table.dRadius(radii[i])
		}
	}

	return newValue(inputs[0].Dtype(), inputs[0].Shape(), out), nil
}

func (r *radiusSampleDiffOp) ReturnsPtr() bool { return false }

func (r *radiusSampleDiffOp) CallsExtern() bool { return false }

func (r *radiusSampleDiffOp) OverwritesInput() int { return -1 }

func (r *radiusSampleDiffOp) String() string {
	return fmt.Sprintf("RadiusSampleDiff{dim=%v, c=%v, samples=%v}()",
		r.dim, r.c, r.samples)
}

func (r *radiusSampleDiffOp) WriteHash(h hash.Hash) {
	fmt.Fprint(h, r.String())
}

func (r *radiusSampleDiffOp) Hashcode() uint32 { return hop.SimpleHash(r) }

func (r *radiusSampleDiffOp) DiffWRT(inputs int) []bool { return make([]bool, inputs) }

func (r *radiusSampleDiffOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return hop.NoGradient(inputs)
}

// radiusLogNormOp computes the log normalizing constant log Z(σ) of
// the radial distribution of each scale in its (B, 1) input
type radiusLogNormOp struct {
	dim int
	c   float64
}

func (r *radiusLogNormOp) Arity() int { return 1 }

func (r *radiusLogNormOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (r *radiusLogNormOp) InferShape(inputs ...G.DimSizer) (tensor.Shape,
	error) {
	if err := hop.CheckArity(r, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	shapes, err := G.DimSizersToShapes(inputs)
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return shapes[0].Clone(), nil
}

func (r *radiusLogNormOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := hop.CheckArity(r, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	scales, err := scaleValues(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	out := make([]float64, len(scales))
	for b, scale := range scales {
		if !validScale(scale) {
			out[b] = math.NaN()
			continue
		}
		out[b] = newRadialTable(r.dim, r.c, scale).logZ
	}

	return newValue(inputs[0].Dtype(), inputs[0].Shape(), out), nil
}

func (r *radiusLogNormOp) ReturnsPtr() bool { return false }

func (r *radiusLogNormOp) CallsExtern() bool { return false }

func (r *radiusLogNormOp) OverwritesInput() int { return -1 }

func (r *radiusLogNormOp) String() string {
	return fmt.Sprintf("RadiusLogNormalizer{dim=%v, c=%v}()", r.dim, r.c)
}

func (r *radiusLogNormOp) WriteHash(h hash.Hash) { fmt.Fprint(h, r.String()) }

func (r *radiusLogNormOp) Hashcode() uint32 { return hop.SimpleHash(r) }

func (r *radiusLogNormOp) DiffWRT(inputs int) []bool {
	if inputs != 1 {
		panic(fmt.Sprintf("radial log normalizer only supports one input, "+
			"got %d instead", inputs))
	}
	return []bool{true}
}

func (r *radiusLogNormOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	if err := hop.CheckArity(r, len(inputs)); err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	diff := &radiusLogNormDiffOp{dim: r.dim, c: r.c}
	d, err := G.ApplyOp(diff, inputs[0], grad)
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}
	return G.Nodes{d}, nil
}

// radiusLogNormDiffOp computes grad * d log Z/dσ = grad * E[r²]/σ³
type radiusLogNormDiffOp struct {
	dim int
	c   float64
}

func (r *radiusLogNormDiffOp) Arity() int { return 2 }

func (r *radiusLogNormDiffOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a, a)
}

func (r *radiusLogNormDiffOp) InferShape(inputs ...G.DimSizer) (tensor.Shape,
	error) {
	if err := hop.CheckArity(r, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	shapes, err := G.DimSizersToShapes(inputs)
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return shapes[0].Clone(), nil
}

func (r *radiusLogNormDiffOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := hop.CheckArity(r, len(inputs)); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	scales, err := scaleValues(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	grad, err := values(inputs[1])
	if err != nil {
		return nil, fmt.Errorf("do: gradient: %v", err)
	}
	if len(grad) != len(scales) {
		return nil, fmt.Errorf("do: expected %v gradients but got %v",
			len(scales), len(grad))
	}

	out := make([]float64, len(scales))
	for b, scale := range scales {
		if !validScale(scale) {
			out[b] = math.NaN()
			continue
		}
		m2 := newRadialTable(r.dim, r.c, scale).secondMoment()
		out[b] = grad[b] * m2 / (scale * scale * scale)
	}

	return newValue(inputs[0].Dtype(), inputs[0].Shape(), out), nil
}

func (r *radiusLogNormDiffOp) ReturnsPtr() bool { return false }

func (r *radiusLogNormDiffOp) CallsExtern() bool { return false }

func (r *radiusLogNormDiffOp) OverwritesInput() int { return -1 }

func (r *radiusLogNormDiffOp) String() string {
	return fmt.Sprintf("RadiusLogNormalizerDiff{dim=%v, c=%v}()", r.dim, r.c)
}

func (r *radiusLogNormDiffOp) WriteHash(h hash.Hash) {
	fmt.Fprint(h, r.String())
}

func (r *radiusLogNormDiffOp) Hashcode() uint32 { return hop.SimpleHash(r) }

func (r *radiusLogNormDiffOp) DiffWRT(inputs int) []bool { return make([]bool, inputs) }

func (r *radiusLogNormDiffOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return hop.NoGradient(inputs)
}

// scaleValues returns the elements of a value of scales
func scaleValues(v G.Value) ([]float64, error) {
	scales, err := values(v)
	if err != nil {
		return nil, fmt.Errorf("scale: %v", err)
	}
	return scales, nil
}

// validScale reports whether a radial distribution exists for scale.
// Operations return NaN for the entries of other scales, so that
// unvalidated parameters propagate NaN instead of failing the graph.
func validScale(scale float64) bool {
	return scale > 0 && !math.IsInf(scale, 0)
}
