package distribution

import (
	"fmt"

	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// layout describes how values of a batch of B distributions over
// dim-dimensional points are shaped. Batched distributions take values
// of shape (B, dim), or (n₁, ..., nₖ, B, dim) for samples indexed by any
// number of leading axes. Unbatched distributions drop the B axis. The
// batch itself is always a single axis, since parameters are (B, dim)
// matrices.
//
// Internally, all values are flattened to (n*B, dim) matrices, where n
// is the product of the sample axes, so that sample j of distribution b
// is row j*B + b.
type layout struct {
	batch   int
	dim     int
	batched bool
}

// asRows returns a parameter as a (B, cols) matrix. A vector is an
// unbatched parameter and becomes a single row.
func asRows(param *G.Node) (*G.Node, bool, error) {
	switch param.Dims() {
	case 1:
		rows, err := G.Reshape(param, tensor.Shape{1, param.Shape()[0]})
		return rows, false, err

	case 2:
		return param, true, nil

	default:
		return nil, false, fmt.Errorf("expected a vector or matrix but "+
			"got shape %v", param.Shape())
	}
}

// batchShape returns the batch shape of the distributions
func (l layout) batchShape() tensor.Shape {
	if l.batched {
		return tensor.Shape{l.batch}
	}
	return tensor.Shape{}
}

// rows flattens x into a (k*B, dim) matrix holding k samples of each
// distribution. It returns the matrix, k and the shape that x has
// without its trailing axis.
func (l layout) rows(x *G.Node) (*G.Node, int, tensor.Shape, error) {
	shape := x.Shape()
	if len(shape) == 0 || shape[len(shape)-1] != l.dim {
		return nil, 0, nil, fmt.Errorf("expected values with %v coordinates "+
			"but got shape %v", l.dim, shape)
	}

	lead := shape[:len(shape)-1].Clone()
	sampleAxes := lead
	if l.batched {
		if len(lead) == 0 || lead[len(lead)-1] != l.batch {
			return nil, 0, nil, fmt.Errorf("shape %v incompatible with batch "+
				"shape %v and event size %v", shape, l.batchShape(), l.dim)
		}
		sampleAxes = lead[:len(lead)-1]
	}

	k := 1
	for _, n := range sampleAxes {
		k *= n
	}
	if k == 0 {
		return nil, 0, nil, fmt.Errorf("no values in shape %v", shape)
	}

	flat := tensor.Shape{k * l.batch, l.dim}
	if hop.SameShape(shape, flat) {
		return x, k, lead, nil
	}

	rows, err := G.Reshape(x, flat)
	if err != nil {
		return nil, 0, nil, err
	}
	return rows, k, lead, nil
}

// points reshapes a (k*B, cols) matrix to the shape lead + (cols)
func (l layout) points(rows *G.Node, lead tensor.Shape) (*G.Node, error) {
	shape := append(lead.Clone(), rows.Shape()[1])
	if hop.SameShape(shape, rows.Shape()) {
		return rows, nil
	}
	return G.Reshape(rows, shape)
}

// scalars reshapes a (k*B, 1) matrix of one value per row to the shape
// lead, which may be a scalar shape
func (l layout) scalars(rows *G.Node, lead tensor.Shape) (*G.Node, error) {
	if len(lead) == 0 {
		return G.Sum(rows)
	}
	return G.Reshape(rows, lead.Clone())
}

// sampleShape returns the leading shape of n samples
func (l layout) sampleShape(n int) tensor.Shape {
	if l.batched {
		return tensor.Shape{n, l.batch}
	}
	return tensor.Shape{n}
}
