package distribution

import (
	"fmt"

	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// IID treats the columns of a batch of univariate distributions as
// the coordinates of a single multivariate event with independent,
// identically shaped coordinates. A Univariate with (B, d) parameters
// becomes B distributions over ℝᵈ: log densities and entropies are
// summed over the columns, and densities and CDFs multiplied.
type IID struct {
	Univariate
}

// NewIID returns a new IID over the columns of d
func NewIID(d Univariate) *IID {
	return &IID{d}
}

// BatchShape returns the number of distributions stored by the
// receiver
func (i *IID) BatchShape() tensor.Shape {
	return i.Univariate.BatchShape()[:1].Clone()
}

// EventShape returns the shape of a single draw
func (i *IID) EventShape() tensor.Shape {
	return i.Univariate.BatchShape()[1:].Clone()
}

// Prob returns the joint density of each row of x as a (k*B, 1) matrix
func (i *IID) Prob(x *G.Node) (*G.Node, error) {
	x, err := i.Univariate.Prob(x)
	if err != nil {
		return nil, fmt.Errorf("prob: could not compute iid prob: %v", err)
	}

	x, err = rowProd(x)
	if err != nil {
		return nil, fmt.Errorf("prob: could not combine event dims: %v", err)
	}
	return x, nil
}

// LogProb returns the joint log density of each row of x as a
// (k*B, 1) matrix
func (i *IID) LogProb(x *G.Node) (*G.Node, error) {
	x, err := i.Univariate.LogProb(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: could not compute iid prob: %v",
			err)
	}

	x, err = hop.RowSum(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: could not combine event dims: %v",
			err)
	}
	return x, nil
}

// Entropy returns the joint entropy of each distribution as a (B, 1)
// matrix
func (i *IID) Entropy() (*G.Node, error) {
	x, err := i.Univariate.Entropy()
	if err != nil {
		return nil, fmt.Errorf("entropy: could not take entropy of each "+
			"i.i.d. variable: %v", err)
	}

	x, err = hop.RowSum(x)
	if err != nil {
		return nil, fmt.Errorf("entropy: could not combine event dims: %v",
			err)
	}
	return x, nil
}

// Cdf returns the joint CDF of each row of x as a (k*B, 1) matrix
func (i *IID) Cdf(x *G.Node) (*G.Node, error) {
	x, err := i.Univariate.Cdf(x)
	if err != nil {
		return nil, fmt.Errorf("cdf: could not compute iid cdf: %v", err)
	}

	x, err = rowProd(x)
	if err != nil {
		return nil, fmt.Errorf("cdf: could not combine event dims: %v", err)
	}
	return x, nil
}

// rowProd multiplies the elements of each row of an (N, d) matrix,
// returning an (N, 1) matrix
func rowProd(x *G.Node) (*G.Node, error) {
	if x.Shape()[1] == 1 {
		return x, nil
	}

	prod, err := hop.Prod(x, 1)
	if err != nil {
		return nil, err
	}
	return G.Reshape(prod, tensor.Shape{x.Shape()[0], 1})
}
