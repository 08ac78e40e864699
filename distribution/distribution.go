// Package distribution provides probability distributions as
// differentiable Gorgonia graph operations: a batched univariate
// normal, and the two wrapped normal distributions on hyperbolic
// space together with the radial and directional distributions the
// Poincaré ball normal is built from.
//
// Parameters are batched along rows. A distribution with location of
// shape (B, D) holds B distributions; n samples of it are returned as
// an (n, B, D) tensor. Unbatched parameters (vectors) drop the batch
// axis from all shapes.
package distribution

import (
	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ErrConstraintViolation is returned, possibly wrapped, when a
// distribution is constructed with parameters outside their domain
var ErrConstraintViolation = hop.ErrConstraintViolation

// Distribution is a probability distribution
type Distribution interface {
	// LogProb returns the log of the probability density of the node.
	// The node must hold one value for each distribution in the batch,
	// optionally preceded by a sample axis.
	LogProb(*G.Node) (*G.Node, error)

	Mean() *G.Node

	// Sample returns a node that generates new samples each time the
	// graph is run. No gradient flows through the samples.
	Sample(samples int) (*G.Node, error)

	// Rsample returns a node that generates new reparameterized
	// samples each time the graph is run. The samples are
	// differentiable with respect to the parameters of the
	// distribution.
	Rsample(samples int) (*G.Node, error)

	// HasRsample returns whether the distribution has reparameterized
	// samples or not
	HasRsample() bool

	BatchShape() tensor.Shape
	EventShape() tensor.Shape
}

// Univariate is a Distribution over real numbers
type Univariate interface {
	Distribution

	// Prob returns the probability density of the node
	Prob(*G.Node) (*G.Node, error)

	// Cdf returns the cumulative distribution function at the node
	Cdf(*G.Node) (*G.Node, error)

	Entropy() (*G.Node, error)
	StdDev() *G.Node
	Variance() *G.Node
}

// Quantiler is a Univariate distribution that can return the inverse
// of the CDF function, sometimes called the quantile function.
type Quantiler interface {
	Univariate
	Quantile(*G.Node) (*G.Node, error)
}

// Radial is a distribution over non-negative radii, one for each
// distribution in a batch of B
type Radial interface {
	// Rsample returns differentiable radii as a (samples*B, 1) matrix,
	// with sample i of distribution b in row i*B + b
	Rsample(samples int) (*G.Node, error)

	// LogNormalizer returns the log of the normalizing constant of
	// each distribution as a (B, 1) matrix
	LogNormalizer() (*G.Node, error)

	// Dim returns the dimension of the ball the radii are distances in
	Dim() int

	// C returns the magnitude of the curvature of that ball
	C() float64

	// BatchShape returns (B)
	BatchShape() tensor.Shape
}

// Directional is a distribution over unit vectors
type Directional interface {
	// Sample returns samples unit vectors, one per row
	Sample(samples int) (*G.Node, error)

	// LogNormalizer returns the log of the normalizing constant as a
	// scalar
	LogNormalizer() (*G.Node, error)

	// Dim returns the dimension of the sphere, one less than the
	// length of the unit vectors sampled
	Dim() int
}

var (
	_ Quantiler    = (*Normal)(nil)
	_ Univariate   = (*IID)(nil)
	_ Distribution = (*WrappedNormal)(nil)
	_ Distribution = (*PoincareNormal)(nil)
	_ Radial       = (*HyperbolicRadius)(nil)
	_ Directional  = (*HypersphericalUniform)(nil)
)
