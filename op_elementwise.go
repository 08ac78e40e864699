package hop

import (
	"fmt"
	"hash"

	"github.com/chewxy/hm"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// elemFn is a scalar function together with its derivative, in both
// float64 and float32 precision
type elemFn struct {
	name string
	f64  func(float64) float64
	d64  func(float64) float64
	f32  func(float32) float32
	d32  func(float32) float32
}

// lift32 evaluates a float64 function in float32
func lift32(f func(float64) float64) func(float32) float32 {
	return func(x float32) float32 {
		return float32(f(float64(x)))
	}
}

// elemOp applies an elemFn element-wise. Its symbolic derivative is
// the elemDiffOp of the same function.
type elemOp struct {
	fn *elemFn
}

func newElemOp(fn *elemFn) *elemOp {
	return &elemOp{fn}
}

// Arity implements the gorgonia.Op interface
func (e *elemOp) Arity() int { return 1 }

// Type implements the gorgonia.Op interface
func (e *elemOp) Type() hm.Type {
	// All pointwise unary operations have this type:
	// op :: (Arithable a) => a -> a
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

// InferShape returns the output shape as a function of the inputs
func (e *elemOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	err := CheckArity(e, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if inputs[0] == nil {
		return nil, fmt.Errorf("inferShape: nil input")
	}

	shapes, err := G.DimSizersToShapes(inputs)
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return shapes[0].Clone(), nil
}

// Do applies the function to each element of the input, returning
// a newly allocated value
func (e *elemOp) Do(values ...G.Value) (G.Value, error) {
	if err := checkValues(e, values...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	v, err := mapValue(values[0], e.fn.f64, e.fn.f32)
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	return v, nil
}

func (e *elemOp) ReturnsPtr() bool { return false }

func (e *elemOp) CallsExtern() bool { return false }

func (e *elemOp) OverwritesInput() int { return -1 }

func (e *elemOp) String() string { return e.fn.name }

// WriteHash writes the hash of the receiver to a hash struct
func (e *elemOp) WriteHash(h hash.Hash) { fmt.Fprintf(h, "%v()", e.fn.name) }

// Hashcode returns the hash code of the receiver
func (e *elemOp) Hashcode() uint32 { return SimpleHash(e) }

// DiffWRT returns which inputs the operation is differentiable with
// respect to
func (e *elemOp) DiffWRT(inputs int) []bool {
	if inputs != 1 {
		panic(fmt.Sprintf("%v operator only supports one input, got %d "+
			"instead", e.fn.name, inputs))
	}
	return []bool{true}
}

// SymDiff constructs the symbolic derivative of the operation
func (e *elemOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	err := CheckArity(e, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("symDiff: %v", err)
	}

	diffOp := &elemDiffOp{e.fn}
	nodes := make(G.Nodes, 1)

	nodes[0], err = G.ApplyOp(diffOp, inputs[0], grad)

	return nodes, err
}

// elemDiffOp computes grad * f'(x) element-wise
type elemDiffOp struct {
	fn *elemFn
}

func (e *elemDiffOp) Arity() int { return 2 }

func (e *elemDiffOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a, a)
}

func (e *elemDiffOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	err := CheckArity(e, len(inputs))
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	if inputs[0] == nil {
		return nil, fmt.Errorf("inferShape: nil input")
	}

	shapes, err := G.DimSizersToShapes(inputs)
	if err != nil {
		return nil, fmt.Errorf("inferShape: %v", err)
	}
	return shapes[0].Clone(), nil
}

func (e *elemDiffOp) Do(inputs ...G.Value) (G.Value, error) {
	if err := checkValues(e, inputs...); err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}

	d64, d32 := e.fn.d64, e.fn.d32
	v, err := zipValue(
		inputs[0],
		inputs[1],
		func(x, g float64) float64 { return g * d64(x) },
		func(x, g float32) float32 { return g * d32(x) },
	)
	if err != nil {
		return nil, fmt.Errorf("do: %v", err)
	}
	return v, nil
}

func (e *elemDiffOp) ReturnsPtr() bool { return false }

func (e *elemDiffOp) CallsExtern() bool { return false }

func (e *elemDiffOp) OverwritesInput() int { return -1 }

func (e *elemDiffOp) String() string { return e.fn.name + "Diff" }

func (e *elemDiffOp) WriteHash(h hash.Hash) {
	fmt.Fprintf(h, "%vDiff()", e.fn.name)
}

func (e *elemDiffOp) Hashcode() uint32 { return SimpleHash(e) }

func (e *elemDiffOp) DiffWRT(inputs int) []bool { return make([]bool, inputs) }

func (e *elemDiffOp) SymDiff(inputs G.Nodes, output,
	grad *G.Node) (G.Nodes, error) {
	return NoGradient(inputs)
}
