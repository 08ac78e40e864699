package distribution

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Normal is a univariate normal distribution, which may hold
// a batch of normal distributions simultaneously. The mean and
// standard deviation are (B, d) matrices, and each of their elements
// defines a different distribution. For example, consider a mean and
// standard deviation with a single row:
//
//	mean   := [m_1, m_2, ..., m_N]
//	stddev := [s_1, s_2, ..., s_N]
//
// Then the Normal is considered to hold the following distributions:
//
//	[𝒩(m_1, s_1), 𝒩(m_2, s_2), ..., 𝒩(m_N, s_N)]
//
// A scalar mean and standard deviation are treated as a (1, 1) matrix,
// and vectors as a single row.
//
// Inputs to the methods of a Normal must be (k*B, d) matrices, which
// hold k values for each distribution: row j*B + b of the input is
// evaluated under row b of the parameters,
//
//	x := ⎡x_11, x_21, ..., x_N1⎤ ⎫
//	     ⎢x_12, x_22, ..., x_N2⎥ ⎥
//	     ⎢... ... ... ..., ... ⎥ ⎬ ← k rows per distribution row
//	     ⎣x_1k, x_2k, ... x_Nk ⎦ ⎭
//
// For scalar and vector parameters, inputs of the same shape as the
// parameters are also accepted. For a scalar Normal, a vector input is
// treated as a batch of values.
//
// Normal supports the following data types:
//   - tensor.Float64
type Normal struct {
	mean   *G.Node
	stddev *G.Node

	// shape of the mean as given to NewNormal
	paramShape tensor.Shape

	seeds *seeder
}

// NewNormal returns a new Normal.
func NewNormal(mean, stddev *G.Node, seed uint64) (*Normal, error) {
	if !hop.SameShape(mean.Shape(), stddev.Shape()) {
		return nil, fmt.Errorf("newNormal: expected mean and stddev to "+
			"have the same shape but got %v and %v", mean.Shape(),
			stddev.Shape())
	}

	if mean.Dtype() != stddev.Dtype() {
		return nil, fmt.Errorf("newNormal: expected mean and stddev to "+
			"have the same data type but got %v and %v", mean.Dtype(),
			stddev.Dtype())
	} else if err := checkFloat64(mean); err != nil {
		return nil, fmt.Errorf("newNormal: %v", err)
	}

	normal := &Normal{
		paramShape: mean.Shape().Clone(),
		seeds:      newSeeder(seed),
	}

	var err error
	switch mean.Dims() {
	case 0:
		normal.mean, err = G.Reshape(mean, tensor.Shape{1, 1})
		if err != nil {
			return nil, fmt.Errorf("newNormal: could not expand mean to "+
				"shape (1, 1): %v", err)
		}
		normal.stddev, err = G.Reshape(stddev, tensor.Shape{1, 1})
		if err != nil {
			return nil, fmt.Errorf("newNormal: could not expand stddev to "+
				"shape (1, 1): %v", err)
		}

	default:
		normal.mean, _, err = asRows(mean)
		if err != nil {
			return nil, fmt.Errorf("newNormal: mean: %v", err)
		}
		normal.stddev, _, err = asRows(stddev)
		if err != nil {
			return nil, fmt.Errorf("newNormal: stddev: %v", err)
		}
	}

	return normal, nil
}

// Prob calculates the probability density of x
func (n *Normal) Prob(x *G.Node) (*G.Node, error) {
	logProb, err := n.LogProb(x)
	if err != nil {
		return nil, fmt.Errorf("prob: %v", err)
	}

	return G.Exp(logProb)
}

// LogProb calculates the log probability density of x
//
//	log 𝒩(x; μ, σ) = -½((x - μ)/σ)² - log σ - log √(2π)
func (n *Normal) LogProb(x *G.Node) (*G.Node, error) {
	x, restore, err := n.fixShape(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	mean, stddev, err := n.params(x)
	if err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	negativeHalf := x.Graph().Constant(G.NewF64(-0.5))
	lnRootTwoPi := x.Graph().Constant(G.NewF64(0.5 * math.Log(2*math.Pi)))

	x = G.Must(G.Sub(x, mean))
	x = G.Must(G.HadamardDiv(x, stddev))
	x = G.Must(G.Square(x))
	x = G.Must(G.HadamardProd(negativeHalf, x))
	x = G.Must(G.Sub(x, G.Must(G.Log(stddev))))
	x = G.Must(G.Sub(x, lnRootTwoPi))

	return restore(x)
}

// Cdf computes the cumulative distribution function of x
//
//	F(x) = ½(1 + erf((x - μ) / (σ√2)))
func (n *Normal) Cdf(x *G.Node) (*G.Node, error) {
	x, restore, err := n.fixShape(x)
	if err != nil {
		return nil, fmt.Errorf("cdf: %v", err)
	}
	mean, stddev, err := n.params(x)
	if err != nil {
		return nil, fmt.Errorf("cdf: %v", err)
	}

	rootTwo := x.Graph().Constant(G.NewF64(math.Sqrt(2.0)))
	one := x.Graph().Constant(G.NewF64(1.0))
	half := x.Graph().Constant(G.NewF64(0.5))

	x = G.Must(G.Sub(x, mean))
	x = G.Must(G.HadamardDiv(x, rootTwo))
	x = G.Must(G.HadamardDiv(x, stddev))
	x = G.Must(hop.Erf(x))
	x = G.Must(G.Add(one, x))
	x = G.Must(G.HadamardProd(half, x))

	return restore(x)
}

// Quantile computes the inverse cumulative distribution function at
// probability p
//
//	F⁻¹(p) = μ + σ√2 erfinv(2p - 1)
func (n *Normal) Quantile(p *G.Node) (*G.Node, error) {
	p, restore, err := n.fixShape(p)
	if err != nil {
		return nil, fmt.Errorf("quantile: %v", err)
	}
	mean, stddev, err := n.params(p)
	if err != nil {
		return nil, fmt.Errorf("quantile: %v", err)
	}

	rootTwo := p.Graph().Constant(G.NewF64(math.Sqrt(2.0)))
	one := p.Graph().Constant(G.NewF64(1.0))
	two := p.Graph().Constant(G.NewF64(2.0))

	p = G.Must(G.HadamardProd(two, p))
	p = G.Must(G.Sub(p, one))
	p = G.Must(hop.Erfinv(p))
	p = G.Must(G.HadamardProd(p, rootTwo))
	p = G.Must(G.HadamardProd(p, stddev))
	p = G.Must(G.Add(mean, p))

	return restore(p)
}

// BatchShape returns the number of distributions stored by the
// receiver
func (n *Normal) BatchShape() tensor.Shape {
	return n.mean.Shape().Clone()
}

// EventShape returns the shape of a single draw, which is a scalar
func (n *Normal) EventShape() tensor.Shape {
	return tensor.Shape{}
}

// Variance returns the variance of the distribution(s) stored by the
// receiver
func (n *Normal) Variance() *G.Node {
	return G.Must(G.Square(n.stddev))
}

// StdDev returns the standard deviation of the distribution(s)
// stored by the receiver
func (n *Normal) StdDev() *G.Node {
	return n.stddev
}

// Mean returns the mean of the distribution(s) stored by the
// receiver
func (n *Normal) Mean() *G.Node {
	return n.mean
}

// Entropy returns the entropy of the distribution(s) stored by the
// receiver
//
//	H = ½ log(2πσ²) + ½
func (n *Normal) Entropy() (*G.Node, error) {
	half := n.mean.Graph().Constant(G.NewF64(0.5))
	twoPi := n.mean.Graph().Constant(G.NewF64(math.Pi * 2.0))

	entropy := G.Must(G.Square(n.stddev))
	entropy = G.Must(G.HadamardProd(entropy, twoPi))
	entropy = G.Must(G.Log(entropy))
	entropy = G.Must(G.HadamardProd(half, entropy))
	entropy = G.Must(G.Add(entropy, half))

	return entropy, nil
}

func (n *Normal) HasRsample() bool { return true }

// Rsample returns samples reparameterized as μ + σε with ε drawn from
// the standard normal. The result is a (samples*B, d) matrix, with
// sample j of row b of the parameters in row j*B + b.
func (n *Normal) Rsample(samples int) (*G.Node, error) {
	g := n.mean.Graph()
	shape := n.mean.Shape()

	zero, err := hop.Fill(g, tensor.Float64, shape, 0)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}
	one, err := hop.Fill(g, tensor.Float64, shape, 1)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}

	eps, err := NormalRand(zero, one, n.seeds.next(), samples)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}
	eps, err = G.Reshape(eps, tensor.Shape{samples * shape[0], shape[1]})
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}

	mean, stddev, err := n.params(eps)
	if err != nil {
		return nil, fmt.Errorf("rsample: %v", err)
	}

	return G.Add(mean, G.Must(G.HadamardProd(stddev, eps)))
}

// Sample returns samples laid out as in Rsample, through which no
// gradient flows
func (n *Normal) Sample(samples int) (*G.Node, error) {
	x, err := n.Rsample(samples)
	if err != nil {
		return nil, fmt.Errorf("sample: %v", err)
	}

	return hop.StopGradient(x)
}

// params returns the mean and standard deviation tiled to match the
// rows of x
func (n *Normal) params(x *G.Node) (*G.Node, *G.Node, error) {
	rows := n.mean.Shape()[0]
	if x.Shape()[0]%rows != 0 {
		return nil, nil, fmt.Errorf("expected a multiple of %v rows but "+
			"got shape %v", rows, x.Shape())
	}
	k := x.Shape()[0] / rows

	mean, err := hop.Tile(n.mean, k)
	if err != nil {
		return nil, nil, err
	}
	stddev, err := hop.Tile(n.stddev, k)
	if err != nil {
		return nil, nil, err
	}
	return mean, stddev, nil
}

// fixShape adjusts the shape of x so that it can be used in some
// method, returning the adjusted node and a function that restores the
// original shape of x on a result. It returns an error indicating if x
// is of an invalid shape which could not be adjusted.
func (n *Normal) fixShape(x *G.Node) (*G.Node, func(*G.Node) (*G.Node,
	error), error) {
	cols := n.mean.Shape()[1]
	keep := func(y *G.Node) (*G.Node, error) { return y, nil }

	switch x.Dims() {
	case 2:
		if x.Shape()[1] != cols {
			return nil, nil, fmt.Errorf("expected %v columns but got shape %v",
				cols, x.Shape())
		}
		return x, keep, nil

	case 0, 1:
		if len(n.paramShape) == 2 {
			return nil, nil, fmt.Errorf("expected a matrix with %v columns "+
				"but got shape %v", cols, x.Shape())
		}

		// When the distribution shape was a scalar, then a vector
		// input x indicates a batch of samples
		rows := tensor.Shape{1, cols}
		if cols == 1 {
			rows = tensor.Shape{x.Shape().TotalSize(), 1}
		} else if x.Shape().TotalSize() != cols {
			return nil, nil, fmt.Errorf("expected shape %v but got %v",
				n.paramShape, x.Shape())
		}

		shape := x.Shape().Clone()
		restore := func(y *G.Node) (*G.Node, error) {
			if len(shape) == 0 {
				return G.Sum(y)
			}
			return G.Reshape(y, shape)
		}

		y, err := G.Reshape(x, rows)
		return y, restore, err

	default:
		return nil, nil, fmt.Errorf("expected at most 2 dimensions but got "+
			"shape %v", x.Shape())
	}
}
