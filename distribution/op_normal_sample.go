package distribution

import (
	"fmt"
	"hash"

	"golang.org/x/exp/rand"

	"github.com/chewxy/hm"
	"github.com/samuelfneumann/hop"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// normalSampleOp draws numSamples samples from each of the normal
// distributions whose means and standard deviations are its two
// inputs. Sample j of the distribution at flat index i is written to
// flat index j*size + i of the output.
type normalSampleOp struct {
	dt         tensor.Dtype
	shape      tensor.Shape
	dist       distuv.Normal
	seed       uint64
	numSamples int
}

func newNormalSampleOp(dt tensor.Dtype, seed uint64, numSamples int,
	shape ...int) (*normalSampleOp, error) {
	if dt != tensor.Float64 && dt != tensor.Float32 {
		return nil, fmt.Errorf("newNormalSampleOp: dtype %v not supported",
			dt)
	}
	if numSamples <= 0 {
		return nil, fmt.Errorf("newNormalSampleOp: cannot draw %v samples",
			numSamples)
	}

	return &normalSampleOp{
		dt:    dt,
		shape: tensor.Shape(shape).Clone(),
		seed:  seed,
		dist: distuv.Normal{
			Mu:    0.0,
			Sigma: 1.0,
			Src:   rand.NewSource(seed),
		},
		numSamples: numSamples,
	}, nil
}

func (n *normalSampleOp) Arity() int { return 2 }

func (n *normalSampleOp) Type() hm.Type {
	in := G.TensorType{
		Dims: n.shape.Dims(),
		Of:   n.dt,
	}
	out := G.TensorType{
		Dims: n.shape.Dims() + 1,
		Of:   n.dt,
	}

	return hm.NewFnType(in, in, out)
}

func (n *normalSampleOp) InferShape(...G.DimSizer) (tensor.Shape, error) {
	return append(tensor.Shape{n.numSamples}, n.shape...), nil
}

func (n *normalSampleOp) ReturnsPtr() bool { return false }

func (n *normalSampleOp) CallsExtern() bool { return false }

func (n *normalSampleOp) OverwritesInput() int { return -1 }

func (n *normalSampleOp) String() string {
	return fmt.Sprintf("NormalSample{shape=%v, samples=%v, seed=%v}()",
		n.shape, n.numSamples, n.seed)
}

func (n *normalSampleOp) WriteHash(h hash.Hash) {
	fmt.Fprint(h, n.String())
}

func (n *normalSampleOp) Hashcode() uint32 {
	return hop.SimpleHash(n)
}

// DiffWRT returns false for both inputs. Draws enter a graph through
// constant inputs, and reparameterized samples take their gradients
// from the operations that shift and scale the draws.
func (n *normalSampleOp) DiffWRT(inputs int) []bool { return make([]bool, inputs) }

func (n *normalSampleOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return hop.NoGradient(inputs)
}

func (n *normalSampleOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := n.checkInputs(inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	mean, err := values(inputs[0])
	if err != nil {
		return nil, fmt.Errorf("do: mean: %v", err)
	}
	std, err := values(inputs[1])
	if err != nil {
		return nil, fmt.Errorf("do: stddev: %v", err)
	}

	size := len(mean)
	out := make([]float64, n.numSamples*size)
	for j := 0; j < n.numSamples; j++ {
		for i := range mean {
			out[j*size+i] = mean[i] + std[i]*n.dist.Rand()
		}
	}

	shape := append(tensor.Shape{n.numSamples}, n.shape...)
	return newValue(n.dt, shape, out), nil
}

func (n *normalSampleOp) checkInputs(inputs ...G.Value) error {
	if err := hop.CheckArity(n, len(inputs)); err != nil {
		return err
	}

	names := []string{"mean", "stddev"}
	for i, in := range inputs {
		t, ok := in.(tensor.Tensor)
		if !ok || t == nil {
			return fmt.Errorf("cannot sample from %v of type %T", names[i],
				in)
		} else if t.Size() == 0 {
			return fmt.Errorf("cannot sample from empty %v tensor",
				names[i])
		} else if !t.Shape().Eq(n.shape) {
			return fmt.Errorf("expected %v to have shape %v but got %v",
				names[i], n.shape, t.Shape())
		} else if !t.Dtype().Eq(n.dt) {
			return fmt.Errorf("expected %v to have dtype %v but got %v",
				names[i], n.dt, t.Dtype())
		}
	}

	return nil
}
