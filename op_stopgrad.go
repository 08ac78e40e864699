package hop

import (
	"fmt"
	"hash"

	"github.com/chewxy/hm"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// stopGradientOp is the identity whose gradient is zero. It marks
// values that must be treated as constants by backpropagation.
type stopGradientOp struct{}

func (s *stopGradientOp) Arity() int { return 1 }

func (s *stopGradientOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (s *stopGradientOp) InferShape(inputs ...G.DimSizer) (tensor.Shape,
	error) {
	if err := CheckArity(s, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return inputs[0].(tensor.Shape).Clone(), nil
}

func (s *stopGradientOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := checkValues(s, inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	return mapValue(
		inputs[0],
		func(x float64) float64 { return x },
		func(x float32) float32 { return x },
	)
}

func (s *stopGradientOp) ReturnsPtr() bool { return false }

func (s *stopGradientOp) CallsExtern() bool { return false }

func (s *stopGradientOp) OverwritesInput() int { return -1 }

func (s *stopGradientOp) String() string { return "StopGradient" }

func (s *stopGradientOp) WriteHash(h hash.Hash) { fmt.Fprint(h, "StopGradient()") }

func (s *stopGradientOp) Hashcode() uint32 { return SimpleHash(s) }

func (s *stopGradientOp) DiffWRT(inputs int) []bool {
	return []bool{true}
}

func (s *stopGradientOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	if err := CheckArity(s, len(inputs)); err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	zero, err := ScalarLike(grad, 0)
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	g, err := G.HadamardProd(zero, grad)
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}
	return G.Nodes{g}, nil
}
