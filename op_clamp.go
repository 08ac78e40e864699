package hop

import (
	"fmt"
	"hash"
	"math"

	"github.com/chewxy/hm"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/top"
)

type clampOp struct {
	min, max     float64
	passGradient bool
}

func newClampOp(min, max float64, passGradient bool) (*clampOp, error) {
	if math.IsNaN(min) || math.IsNaN(max) {
		return nil, fmt.Errorf("newClampOp: bounds cannot be NaN")
	} else if min > max {
		return nil, fmt.Errorf("newClampOp: min (%v) must not exceed max (%v)",
			min, max)
	}

	op := &clampOp{
		min:          min,
		max:          max,
		passGradient: passGradient,
	}

	return op, nil
}

// bounds returns the clamping bounds as values of dtype dt, as
// required by the tensor package
func (c *clampOp) bounds(dt tensor.Dtype) (interface{}, interface{}, error) {
	switch dt {
	case tensor.Float64:
		return c.min, c.max, nil

	case tensor.Float32:
		min, max := float32(c.min), float32(c.max)
		if math.IsInf(c.max, 1) || c.max > math.MaxFloat32 {
			max = float32(math.Inf(1))
		}
		if math.IsInf(c.min, -1) || c.min < -math.MaxFloat32 {
			min = float32(math.Inf(-1))
		}
		return min, max, nil

	default:
		return nil, nil, fmt.Errorf("cannot clamp dtype %v", dt)
	}
}

func (c *clampOp) clamp64(x float64) float64 {
	return math.Max(c.min, math.Min(c.max, x))
}

func (c *clampOp) clamp32(x float32) float32 {
	return float32(c.clamp64(float64(x)))
}

func (c *clampOp) DiffWRT(inputs int) []bool {
	return []bool{true}
}

func (c *clampOp) SymDiff(inputs G.Nodes, output, grad *G.Node) (G.Nodes,
	error) {
	err := CheckArity(c, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	diffOp := &clampDiffOp{c}
	nodes := make(G.Nodes, 1)

	nodes[0], err = G.ApplyOp(diffOp, inputs[0], grad)

	return nodes, err
}

func (c *clampOp) Arity() int { return 1 }

func (c *clampOp) Type() hm.Type {
	a := hm.TypeVariable('a')

	return hm.NewFnType(a, a)
}

func (c *clampOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := CheckArity(c, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return inputs[0].(tensor.Shape).Clone(), nil
}

func (c *clampOp) ReturnsPtr() bool { return false }

func (c *clampOp) CallsExtern() bool { return false }

func (c *clampOp) OverwritesInput() int { return -1 }

func (c *clampOp) String() string {
	return fmt.Sprintf("Clamp{min=%v, max=%v}()", c.min, c.max)
}

// WriteHash writes the hash of the receiver to a hash struct
func (c *clampOp) WriteHash(h hash.Hash) { fmt.Fprint(h, c.String()) }

// Hashcode returns the hash code of the receiver
func (c *clampOp) Hashcode() uint32 { return SimpleHash(c) }

func (c *clampOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := checkValues(c, inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	in, ok := inputs[0].(tensor.Tensor)
	if !ok {
		// Scalar values
		return mapValue(inputs[0], c.clamp64, c.clamp32)
	}

	min, max, err := c.bounds(in.Dtype())
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	cl, err := tensor.Clamp(materialize(in), min, max)
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	return cl, nil
}

type clampDiffOp struct {
	op *clampOp
}

func (c *clampDiffOp) Arity() int { return 2 }

func (c *clampDiffOp) Type() hm.Type {
	a := hm.TypeVariable('a')

	return hm.NewFnType(a, a, a)
}

func (c *clampDiffOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := CheckArity(c, len(inputs)); err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return inputs[0].(tensor.Shape).Clone(), nil
}

func (c *clampDiffOp) ReturnsPtr() bool { return false }

func (c *clampDiffOp) CallsExtern() bool { return false }

func (c *clampDiffOp) OverwritesInput() int { return -1 }

// WriteHash writes the hash of the receiver to a hash struct
func (c *clampDiffOp) WriteHash(h hash.Hash) { fmt.Fprint(h, c.String()) }

// Hashcode returns the hash code of the receiver
func (c *clampDiffOp) Hashcode() uint32 { return SimpleHash(c) }

func (c *clampDiffOp) DiffWRT(inputs int) []bool { return make([]bool, inputs) }

func (c *clampDiffOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return NoGradient(inputs)
}

func (c *clampDiffOp) String() string {
	return fmt.Sprintf("ClampDiff{min=%v, max=%v}()", c.op.min, c.op.max)
}

// Do computes the gradient of the clamp:
//
//	        { grad if min <= x <= max or passGradient
//	grad' = {
//	        { 0    otherwise
func (c *clampDiffOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := checkValues(c, inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	in, okIn := inputs[0].(tensor.Tensor)
	grad, okGrad := inputs[1].(tensor.Tensor)
	if !okIn || !okGrad {
		// Scalar values
		return zipValue(inputs[0], inputs[1], c.mask64, c.mask32)
	}

	if c.op.passGradient {
		return materialize(grad).Clone().(tensor.Tensor), nil
	}

	min, max, err := c.op.bounds(in.Dtype())
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	mask, err := top.ClampB(materialize(in), min, max)
	if err != nil {
		return nil, fmt.Errorf("do: could not compute clamp mask: %v", err)
	}

	return tensor.Mul(mask, materialize(grad))
}

func (c *clampDiffOp) mask64(x, g float64) float64 {
	if c.op.passGradient || (x >= c.op.min && x <= c.op.max) {
		return g
	}
	return 0
}

func (c *clampDiffOp) mask32(x, g float32) float32 {
	return float32(c.mask64(float64(x), float64(g)))
}
