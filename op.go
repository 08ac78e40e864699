// Package hop provides the Gorgonia operations needed to compute on
// hyperbolic manifolds. The hyperbolic functions have their removable
// singularities filled in, and clamps have well defined gradients.
// Every operation is differentiable unless noted otherwise.
package hop

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Repeat repeats each element of x along axis repeats times, in the
// same way as numpy.repeat.
func Repeat(x *G.Node, axis, repeats int) (*G.Node, error) {
	op, err := newRepeatOp(axis, repeats)
	if err != nil {
		return nil, fmt.Errorf("repeat: %v", err)
	}

	return G.ApplyOp(op, x)
}

// Tile stacks n copies of x along the first axis, so that a (B, ...)
// input becomes (n*B, ...) with the i-th copy occupying rows
// [i*B, (i+1)*B). The gradient of x is the sum of the gradients of its
// copies.
func Tile(x *G.Node, n int) (*G.Node, error) {
	if n <= 0 {
		return nil, fmt.Errorf("tile: expected n > 0, got %v", n)
	}
	if n == 1 {
		return x, nil
	}

	shape := x.Shape().Clone()
	if len(shape) == 0 {
		return nil, fmt.Errorf("tile: cannot tile scalar")
	}

	flat, err := G.Reshape(x, tensor.Shape{1, shape.TotalSize()})
	if err != nil {
		return nil, fmt.Errorf("tile: %v", err)
	}

	rep, err := Repeat(flat, 0, n)
	if err != nil {
		return nil, fmt.Errorf("tile: %v", err)
	}

	out := append(tensor.Shape{n * shape[0]}, shape[1:]...)
	return G.Reshape(rep, out)
}

// Clamp clamps a node's values to be between min and max. If
// passGradient is true, then the gradient is passed through the
// clamping operation unchanged:
//
//	        { 1 if min <= x <= max
//	grad =  {
//	        { 1 otherwise
//
// Otherwise, the regular clamp gradient is used:
//
//	        { 1 if min <= x <= max
//	grad =  {
//	        { 0 otherwise
func Clamp(x *G.Node, min, max float64, passGradient bool) (*G.Node,
	error) {
	op, err := newClampOp(min, max, passGradient)
	if err != nil {
		return nil, fmt.Errorf("clamp: %v", err)
	}

	return G.ApplyOp(op, x)
}

// ClampMin clamps a node's values from below
func ClampMin(x *G.Node, min float64) (*G.Node, error) {
	return Clamp(x, min, math.Inf(1), false)
}

// Erf computes the element-wise error function
func Erf(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(newElemOp(erfFn), x)
}

// Erfc computes the element-wise complementary error function
func Erfc(x *G.Node) (*G.Node, error) {
	retVal, err := Erf(x)
	if err != nil {
		return nil, fmt.Errorf("erfc: %v", err)
	}

	one, err := ScalarLike(x, 1.0)
	if err != nil {
		return nil, fmt.Errorf("erfc: %v", err)
	}

	return G.Sub(one, retVal)
}

// Erfinv computes the element-wise inverse error function
func Erfinv(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(newElemOp(erfinvFn), x)
}

// Sinh computes the element-wise hyperbolic sine
func Sinh(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(newElemOp(sinhFn), x)
}

// Cosh computes the element-wise hyperbolic cosine
func Cosh(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(newElemOp(coshFn), x)
}

// Acosh computes the element-wise inverse hyperbolic cosine. The
// gradient is unbounded at 1; clamp the input above 1 when it may
// reach it.
func Acosh(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(newElemOp(acoshFn), x)
}

// Artanh computes the element-wise inverse hyperbolic tangent. The
// gradient is unbounded at ±1.
func Artanh(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(newElemOp(artanhFn), x)
}

// Sinhc computes sinh(x)/x element-wise, with the value 1 at x = 0
func Sinhc(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(newElemOp(sinhcFn), x)
}

// LogSinhc computes log(sinh(x)/x) element-wise, with the value 0 at
// x = 0. Unlike composing Log and Sinh, it does not overflow for large
// x and does not cancel catastrophically for small x.
func LogSinhc(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(newElemOp(logSinhcFn), x)
}

// StopGradient returns a node with the value of x through which no
// gradient flows
func StopGradient(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(&stopGradientOp{}, x)
}

// ScalarLike returns a constant scalar with value v in the graph of n,
// of the same dtype as n
func ScalarLike(n *G.Node, v float64) (*G.Node, error) {
	switch n.Dtype() {
	case tensor.Float64:
		return n.Graph().Constant(G.NewF64(v)), nil

	case tensor.Float32:
		return n.Graph().Constant(G.NewF32(float32(v))), nil

	default:
		return nil, fmt.Errorf("scalarLike: unsupported dtype %v", n.Dtype())
	}
}

// Prod calculates the product of a Node along an axis
func Prod(input *G.Node, along int) (*G.Node, error) {
	shape := input.Shape()
	if along < 0 || along >= len(shape) {
		return nil, fmt.Errorf("prod: axis %v out of range for shape %v",
			along, shape)
	}

	// Calculate the first columns along the axis along
	dims := make([]tensor.Slice, len(shape))
	dims[along] = G.S(0)
	prod, err := G.Slice(input, dims...)
	if err != nil {
		return nil, fmt.Errorf("prod: %v", err)
	}

	for i := 1; i < shape[along]; i++ {
		// Calculate the column that should be multiplied next
		dims[along] = G.S(i)

		s, err := G.Slice(input, dims...)
		if err != nil {
			return nil, fmt.Errorf("prod: %v", err)
		}
		prod, err = G.HadamardProd(prod, s)
		if err != nil {
			return nil, fmt.Errorf("prod: %v", err)
		}
	}
	return prod, nil
}
