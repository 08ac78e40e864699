package hop

import (
	"errors"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ErrConstraintViolation is returned when a parameter lies outside the
// domain it is constrained to, such as a point off its manifold or a
// NaN scale.
var ErrConstraintViolation = errors.New("constraint violation")

// The functions below operate on batches of points stored as (N, D)
// matrices, one point per row. Per-point scalars are stored as (N, 1)
// matrices.

// CheckRows returns an error if any of the nodes is not a matrix or if
// the nodes do not all have the same number of rows
func CheckRows(nodes ...*G.Node) error {
	for i, n := range nodes {
		if n.Dims() != 2 {
			return fmt.Errorf("expected input %d to be a matrix but got "+
				"shape %v", i, n.Shape())
		}
		if n.Shape()[0] != nodes[0].Shape()[0] {
			return fmt.Errorf("expected %d rows but input %d has shape %v",
				nodes[0].Shape()[0], i, n.Shape())
		}
	}
	return nil
}

// CheckSameShape returns an error if the nodes do not all have the
// same matrix shape
func CheckSameShape(nodes ...*G.Node) error {
	if err := CheckRows(nodes...); err != nil {
		return err
	}
	for i, n := range nodes {
		if !SameShape(n.Shape(), nodes[0].Shape()) {
			return fmt.Errorf("expected shape %v but input %d has shape %v",
				nodes[0].Shape(), i, n.Shape())
		}
	}
	return nil
}

// SameShape reports whether a and b have the same number of axes and
// the same size along each axis. Unlike tensor.Shape.Eq, it does not
// consider a vector of length n equal to an (n, 1) or (1, n) matrix.
func SameShape(a, b tensor.Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RowSum sums each row of an (N, D) matrix, returning an (N, 1) matrix
func RowSum(x *G.Node) (*G.Node, error) {
	d := x.Shape()[1]
	ones, err := Fill(x.Graph(), x.Dtype(), tensor.Shape{d, 1}, 1)
	if err != nil {
		return nil, fmt.Errorf("rowSum: %v", err)
	}
	return G.Mul(x, ones)
}

// RowDot computes the Euclidean inner product of corresponding rows of
// x and y, returning an (N, 1) matrix
func RowDot(x, y *G.Node) (*G.Node, error) {
	prod, err := G.HadamardProd(x, y)
	if err != nil {
		return nil, fmt.Errorf("rowDot: %v", err)
	}
	return RowSum(prod)
}

// RowNorm computes the Euclidean norm of each row of x, returning an
// (N, 1) matrix. The squared norm is clamped at minSq before the square
// root, which keeps both the value and the gradient finite at 0.
func RowNorm(x *G.Node, minSq float64) (*G.Node, error) {
	sq, err := RowDot(x, x)
	if err != nil {
		return nil, fmt.Errorf("rowNorm: %v", err)
	}
	sq, err = ClampMin(sq, minSq)
	if err != nil {
		return nil, fmt.Errorf("rowNorm: %v", err)
	}
	return G.Sqrt(sq)
}

// RowScale multiplies each row of the (N, D) matrix x by the
// corresponding element of the (N, 1) matrix s
func RowScale(x, s *G.Node) (*G.Node, error) {
	spread, err := spreadRows(x, s)
	if err != nil {
		return nil, fmt.Errorf("rowScale: %v", err)
	}
	return G.HadamardProd(x, spread)
}

// RowDiv divides each row of the (N, D) matrix x by the corresponding
// element of the (N, 1) matrix s
func RowDiv(x, s *G.Node) (*G.Node, error) {
	spread, err := spreadRows(x, s)
	if err != nil {
		return nil, fmt.Errorf("rowDiv: %v", err)
	}
	return G.HadamardDiv(x, spread)
}

// spreadRows repeats the (N, 1) column s across the columns of the
// (N, D) matrix x as the outer product of s with a row of ones. The
// gradient of the product reaches s as an (N, 1) matrix, which the
// broadcasting operations do not guarantee.
func spreadRows(x, s *G.Node) (*G.Node, error) {
	if err := CheckRows(x, s); err != nil {
		return nil, err
	}
	if s.Shape()[1] != 1 {
		return nil, fmt.Errorf("expected an (N, 1) matrix but got shape %v",
			s.Shape())
	}

	d := x.Shape()[1]
	if d == 1 {
		return s, nil
	}
	ones, err := Fill(x.Graph(), x.Dtype(), tensor.Shape{1, d}, 1)
	if err != nil {
		return nil, err
	}
	return G.Mul(s, ones)
}

// Column returns column i of the (N, D) matrix x as an (N, 1) matrix
func Column(x *G.Node, i int) (*G.Node, error) {
	return Columns(x, i, i+1)
}

// Columns returns columns [from, to) of the (N, D) matrix x. Columns
// are selected by multiplication with a constant selection matrix, so
// the result is always contiguous and differentiable.
func Columns(x *G.Node, from, to int) (*G.Node, error) {
	d := x.Shape()[1]
	if from < 0 || to > d || from >= to {
		return nil, fmt.Errorf("columns: invalid range [%v, %v) for %v "+
			"columns", from, to, d)
	}

	sel := make([]float64, d*(to-from))
	for j := from; j < to; j++ {
		sel[j*(to-from)+(j-from)] = 1
	}

	s, err := Constant(x.Graph(), x.Dtype(), tensor.Shape{d, to - from}, sel)
	if err != nil {
		return nil, fmt.Errorf("columns: %v", err)
	}
	return G.Mul(x, s)
}

// PadLeft prepends k zero columns to the (N, D) matrix x
func PadLeft(x *G.Node, k int) (*G.Node, error) {
	if err := CheckRows(x); err != nil {
		return nil, fmt.Errorf("padLeft: %v", err)
	}
	if k < 0 {
		return nil, fmt.Errorf("padLeft: cannot pad %v columns", k)
	}
	d := x.Shape()[1]
	out, err := embed(x, k, d+k)
	if err != nil {
		return nil, fmt.Errorf("padLeft: %v", err)
	}
	return out, nil
}

// ConcatColumns joins matrices with the same number of rows side by
// side. Each block is placed by multiplication with a constant
// embedding matrix, so gradients reach every block with its own shape,
// including single columns.
func ConcatColumns(blocks ...*G.Node) (*G.Node, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("concatColumns: no blocks to concatenate")
	}
	if err := CheckRows(blocks...); err != nil {
		return nil, fmt.Errorf("concatColumns: %v", err)
	}

	width := 0
	for _, b := range blocks {
		width += b.Shape()[1]
	}

	var out *G.Node
	offset := 0
	for _, b := range blocks {
		placed, err := embed(b, offset, width)
		if err != nil {
			return nil, fmt.Errorf("concatColumns: %v", err)
		}
		offset += b.Shape()[1]

		if out == nil {
			out = placed
			continue
		}
		if out, err = G.Add(out, placed); err != nil {
			return nil, fmt.Errorf("concatColumns: %v", err)
		}
	}
	return out, nil
}

// embed places the columns of the (N, D) matrix x at columns
// [offset, offset+D) of an otherwise zero (N, width) matrix
func embed(x *G.Node, offset, width int) (*G.Node, error) {
	d := x.Shape()[1]
	if offset < 0 || offset+d > width {
		return nil, fmt.Errorf("cannot place %v columns at offset %v of %v",
			d, offset, width)
	}
	if offset == 0 && d == width {
		return x, nil
	}

	emb := make([]float64, d*width)
	for j := 0; j < d; j++ {
		emb[j*width+j+offset] = 1
	}
	e, err := Constant(x.Graph(), x.Dtype(), tensor.Shape{d, width}, emb)
	if err != nil {
		return nil, err
	}
	return G.Mul(x, e)
}

// Constant adds a constant tensor of the given shape to g. The backing
// data is converted to dt.
func Constant(g *G.ExprGraph, dt tensor.Dtype, shape tensor.Shape,
	backing []float64) (*G.Node, error) {
	if shape.TotalSize() != len(backing) {
		return nil, fmt.Errorf("constant: %v elements cannot fill shape %v",
			len(backing), shape)
	}

	var t *tensor.Dense
	switch dt {
	case tensor.Float64:
		data := make([]float64, len(backing))
		copy(data, backing)
		t = tensor.New(tensor.WithShape(shape.Clone()...),
			tensor.WithBacking(data))

	case tensor.Float32:
		data := make([]float32, len(backing))
		for i, v := range backing {
			data[i] = float32(v)
		}
		t = tensor.New(tensor.WithShape(shape.Clone()...),
			tensor.WithBacking(data))

	default:
		return nil, fmt.Errorf("constant: unsupported dtype %v", dt)
	}

	return g.Constant(t), nil
}

// Fill adds a constant tensor of the given shape, with every element
// equal to v, to g
func Fill(g *G.ExprGraph, dt tensor.Dtype, shape tensor.Shape,
	v float64) (*G.Node, error) {
	backing := make([]float64, shape.TotalSize())
	for i := range backing {
		backing[i] = v
	}
	return Constant(g, dt, shape, backing)
}

// Float64s returns the elements of a node's value. It returns an error
// if the node has no value yet or does not hold float64 data.
func Float64s(n *G.Node) ([]float64, error) {
	v := n.Value()
	if v == nil {
		return nil, fmt.Errorf("node %v has no value", n.Name())
	}

	data, err := ValueFloat64s(v)
	if err != nil {
		return nil, fmt.Errorf("node %v: %v", n.Name(), err)
	}
	return data, nil
}

// ValueFloat64s returns the elements of a float64 value as a
// contiguous slice. The slice may alias the value's backing data.
func ValueFloat64s(v G.Value) ([]float64, error) {
	switch v := v.(type) {
	case *G.F64:
		return []float64{float64(*v)}, nil

	case tensor.Tensor:
		switch data := materialize(v).Data().(type) {
		case float64:
			return []float64{data}, nil
		case []float64:
			return data, nil
		}
	}

	return nil, fmt.Errorf("expected float64 data but got %T of dtype %v",
		v, v.Dtype())
}
